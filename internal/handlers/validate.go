package handlers

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// FieldError is one validation failure in the 422 detail list.
type FieldError struct {
	Loc   []any  `json:"loc"`
	Msg   string `json:"msg"`
	Type  string `json:"type"`
	Input any    `json:"input,omitempty"`
}

// decodeObject parses raw JSON into a field map. Anything other than a JSON
// object is a protocol error, not a validation error.
func decodeObject(raw []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("body is not a JSON object")
	}
	return fields, nil
}

// fieldSet walks one decoded JSON object, consuming known fields and
// collecting every violation so the whole list is returned in one shot.
type fieldSet struct {
	loc    []any
	fields map[string]json.RawMessage
	seen   map[string]bool
	errs   []FieldError
}

func newFieldSet(loc []any, fields map[string]json.RawMessage) *fieldSet {
	return &fieldSet{loc: loc, fields: fields, seen: make(map[string]bool)}
}

func (v *fieldSet) addError(loc []any, msg, typ string, input any) {
	v.errs = append(v.errs, FieldError{Loc: loc, Msg: msg, Type: typ, Input: input})
}

func (v *fieldSet) fieldLoc(name string) []any {
	loc := make([]any, 0, len(v.loc)+1)
	loc = append(loc, v.loc...)
	return append(loc, name)
}

// crossError records a cross-field violation at the object root.
func (v *fieldSet) crossError(msg string) {
	v.addError(append([]any{}, v.loc...), msg, "value_error", nil)
}

func (v *fieldSet) take(name string) (json.RawMessage, bool) {
	raw, ok := v.fields[name]
	if ok {
		v.seen[name] = true
	}
	return raw, ok
}

// jsonKind classifies a raw JSON value by its first significant byte:
// 's' string, 'o' object, 'a' array, 'b' bool, 'z' null, 'd' number.
func jsonKind(raw json.RawMessage) byte {
	for _, c := range raw {
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			continue
		case c == '"':
			return 's'
		case c == '{':
			return 'o'
		case c == '[':
			return 'a'
		case c == 't' || c == 'f':
			return 'b'
		case c == 'n':
			return 'z'
		default:
			return 'd'
		}
	}
	return 'z'
}

// decodeAny decodes a raw value for inclusion as the offending input in a
// field error.
func decodeAny(raw json.RawMessage) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

// stringField reads a string. Required fields that are absent or null produce
// a missing/type error; optional fields return nil in those cases.
func (v *fieldSet) stringField(name string, required bool) *string {
	raw, ok := v.take(name)
	if !ok {
		if required {
			v.addError(v.fieldLoc(name), "Field required", "missing", nil)
		}
		return nil
	}
	if jsonKind(raw) == 'z' {
		if required {
			v.addError(v.fieldLoc(name), "Input should be a valid string", "string_type", nil)
		}
		return nil
	}
	if jsonKind(raw) != 's' {
		v.addError(v.fieldLoc(name), "Input should be a valid string", "string_type", decodeAny(raw))
		return nil
	}
	var s string
	json.Unmarshal(raw, &s)
	return &s
}

// intValue parses raw as an integer, accepting integral floats.
func (v *fieldSet) intValue(name string, raw json.RawMessage) (int, bool) {
	if jsonKind(raw) != 'd' {
		v.addError(v.fieldLoc(name), "Input should be a valid integer", "int_type", decodeAny(raw))
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil || f != math.Trunc(f) {
		v.addError(v.fieldLoc(name), "Input should be a valid integer", "int_type", decodeAny(raw))
		return 0, false
	}
	return int(f), true
}

// ageField reads a required age in whole years, bounded 10..120.
func (v *fieldSet) ageField(name string) (int, bool) {
	raw, ok := v.take(name)
	if !ok {
		v.addError(v.fieldLoc(name), "Field required", "missing", nil)
		return 0, false
	}
	n, ok := v.intValue(name, raw)
	if !ok {
		return 0, false
	}
	if n < 10 || n > 120 {
		v.addError(v.fieldLoc(name), "Input should be between 10 and 120", "int_range", n)
		return 0, false
	}
	return n, true
}

// countField reads an optional non-negative integer count, defaulting to 0.
func (v *fieldSet) countField(name string) int {
	raw, ok := v.take(name)
	if !ok || jsonKind(raw) == 'z' {
		return 0
	}
	n, ok := v.intValue(name, raw)
	if !ok {
		return 0
	}
	if n < 0 {
		v.addError(v.fieldLoc(name), "Input should be greater than or equal to 0", "int_range", n)
		return 0
	}
	return n
}

// topKField reads an optional result-count override, bounded 1..20.
func (v *fieldSet) topKField(name string) *int {
	raw, ok := v.take(name)
	if !ok || jsonKind(raw) == 'z' {
		return nil
	}
	n, ok := v.intValue(name, raw)
	if !ok {
		return nil
	}
	if n < 1 || n > 20 {
		v.addError(v.fieldLoc(name), "Input should be between 1 and 20", "int_range", n)
		return nil
	}
	return &n
}

// numberField reads an optional non-negative number (months or GBP).
func (v *fieldSet) numberField(name string) *float64 {
	raw, ok := v.take(name)
	if !ok || jsonKind(raw) == 'z' {
		return nil
	}
	if jsonKind(raw) != 'd' {
		v.addError(v.fieldLoc(name), "Input should be a valid number", "number_type", decodeAny(raw))
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		v.addError(v.fieldLoc(name), "Input should be a valid number", "number_type", string(raw))
		return nil
	}
	if f < 0 {
		v.addError(v.fieldLoc(name), "Input should be greater than or equal to 0", "number_range", f)
		return nil
	}
	return &f
}

// boolField reads an optional boolean flag with a default.
func (v *fieldSet) boolField(name string, def bool) bool {
	raw, ok := v.take(name)
	if !ok || jsonKind(raw) == 'z' {
		return def
	}
	if jsonKind(raw) != 'b' {
		v.addError(v.fieldLoc(name), "Input should be a valid boolean", "bool_type", decodeAny(raw))
		return def
	}
	var b bool
	json.Unmarshal(raw, &b)
	return b
}

// dateField reads a required ISO-8601 calendar date at UTC midnight.
func (v *fieldSet) dateField(name string) (time.Time, bool) {
	raw, ok := v.take(name)
	if !ok {
		v.addError(v.fieldLoc(name), "Field required", "missing", nil)
		return time.Time{}, false
	}
	if jsonKind(raw) != 's' {
		v.addError(v.fieldLoc(name), "Input should be a valid date in YYYY-MM-DD format", "date_type", decodeAny(raw))
		return time.Time{}, false
	}
	var s string
	json.Unmarshal(raw, &s)
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		v.addError(v.fieldLoc(name), "Input should be a valid date in YYYY-MM-DD format", "date_type", s)
		return time.Time{}, false
	}
	return t, true
}

// literalField reads a required closed-enum string.
func (v *fieldSet) literalField(name string, allowed []string) (string, bool) {
	raw, ok := v.take(name)
	if !ok {
		v.addError(v.fieldLoc(name), "Field required", "missing", nil)
		return "", false
	}
	msg := "Input should be " + quoteOptions(allowed)
	if jsonKind(raw) != 's' {
		v.addError(v.fieldLoc(name), msg, "literal_error", decodeAny(raw))
		return "", false
	}
	var s string
	json.Unmarshal(raw, &s)
	for _, a := range allowed {
		if s == a {
			return s, true
		}
	}
	v.addError(v.fieldLoc(name), msg, "literal_error", s)
	return "", false
}

// objectField reads an optional nested object, returning its raw JSON and
// decoded fields, or nils when absent/null.
func (v *fieldSet) objectField(name string) (json.RawMessage, map[string]json.RawMessage) {
	raw, ok := v.take(name)
	if !ok || jsonKind(raw) == 'z' {
		return nil, nil
	}
	if jsonKind(raw) != 'o' {
		v.addError(v.fieldLoc(name), "Input should be an object", "value_error", decodeAny(raw))
		return nil, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		v.addError(v.fieldLoc(name), "Input should be an object", "value_error", string(raw))
		return nil, nil
	}
	return raw, fields
}

// forbidExtras records an error for each field the walker did not consume,
// in name order for stable output.
func (v *fieldSet) forbidExtras() {
	var extras []string
	for name := range v.fields {
		if !v.seen[name] {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	for _, name := range extras {
		v.addError(v.fieldLoc(name), "Extra inputs are not permitted", "extra_forbidden", decodeAny(v.fields[name]))
	}
}

// quoteOptions renders the accepted enum literals for an error message.
func quoteOptions(opts []string) string {
	quoted := make([]string, len(opts))
	for i, o := range opts {
		quoted[i] = "'" + o + "'"
	}
	if len(quoted) == 1 {
		return quoted[0]
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + " or " + quoted[len(quoted)-1]
}
