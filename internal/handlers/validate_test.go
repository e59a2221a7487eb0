package handlers

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(t *testing.T, body string) map[string]json.RawMessage {
	t.Helper()
	fields, err := decodeObject([]byte(body))
	require.NoError(t, err)
	return fields
}

// errorKeys indexes errors by dotted loc, for set comparisons.
func errorKeys(errs []FieldError) map[string]string {
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		parts := make([]string, len(e.Loc))
		for i, l := range e.Loc {
			parts[i] = fmt.Sprintf("%v", l)
		}
		out[strings.Join(parts, ".")] = e.Type
	}
	return out
}

func errorMessages(errs []FieldError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Msg
	}
	return out
}

func parseCalc(t *testing.T, body string, requireIdentifier bool) (*CalculationRequest, []FieldError) {
	t.Helper()
	raw := json.RawMessage(body)
	return parseCalculationRequest([]any{"body"}, fieldsOf(t, body), raw, requireIdentifier)
}

func TestDecodeObject(t *testing.T) {
	_, err := decodeObject([]byte(`{"a":1}`))
	assert.NoError(t, err)

	for _, bad := range []string{`[1,2]`, `"text"`, `null`, `{"a":`} {
		_, err := decodeObject([]byte(bad))
		assert.Error(t, err, "input %s", bad)
	}
}

func TestParseCalculation_AllRequiredMissing(t *testing.T) {
	req, errs := parseCalc(t, `{}`, true)
	require.Nil(t, req)

	keys := errorKeys(errs)
	expected := map[string]string{
		"body.offence_date":      "missing",
		"body.conviction_date":   "missing",
		"body.sentence_date":     "missing",
		"body.age_at_offence":    "missing",
		"body.age_at_conviction": "missing",
		"body.age_at_sentence":   "missing",
		"body.plea_stage":        "missing",
		"body.sentence_type":     "missing",
		"body":                   "value_error",
	}
	assert.Equal(t, expected, keys)
	assert.Len(t, errs, len(expected))
}

func TestParseCalculation_TypeTags(t *testing.T) {
	body := `{
		"offence_id": 7,
		"offence_date": 42,
		"conviction_date": "not-a-date",
		"sentence_date": "2024-03-01",
		"age_at_offence": "thirty",
		"age_at_conviction": 30.5,
		"age_at_sentence": 30,
		"plea_stage": "maybe",
		"sentence_type": true,
		"culpability": 5,
		"pre_plea_term_months": "twelve",
		"dangerousness_assessed": "yes"
	}`
	req, errs := parseCalc(t, body, true)
	require.Nil(t, req)

	keys := errorKeys(errs)
	expected := map[string]string{
		"body.offence_id":             "string_type",
		"body.offence_date":           "date_type",
		"body.conviction_date":        "date_type",
		"body.age_at_offence":         "int_type",
		"body.age_at_conviction":      "int_type",
		"body.plea_stage":             "literal_error",
		"body.sentence_type":          "literal_error",
		"body.culpability":            "string_type",
		"body.pre_plea_term_months":   "number_type",
		"body.dangerousness_assessed": "bool_type",
	}
	assert.Equal(t, expected, keys)
	// A failed identifier field suppresses the cross-field identifier rule.
	assert.NotContains(t, errorMessages(errs), "Provide either offence_id or offence_query")
}

func TestParseCalculation_Ranges(t *testing.T) {
	body := `{
		"offence_id": "abc",
		"offence_date": "2024-01-10",
		"conviction_date": "2024-02-01",
		"sentence_date": "2024-03-01",
		"age_at_offence": 9,
		"age_at_conviction": 121,
		"age_at_sentence": 30,
		"plea_stage": "first_stage",
		"sentence_type": "fine",
		"pre_plea_term_months": -0.5,
		"extension_months": -1,
		"fine_amount": -10,
		"prior_domestic_burglary_count": -1
	}`
	req, errs := parseCalc(t, body, true)
	require.Nil(t, req)

	keys := errorKeys(errs)
	expected := map[string]string{
		"body.age_at_offence":                "int_range",
		"body.age_at_conviction":             "int_range",
		"body.pre_plea_term_months":          "number_range",
		"body.extension_months":              "number_range",
		"body.fine_amount":                   "number_range",
		"body.prior_domestic_burglary_count": "int_range",
	}
	assert.Equal(t, expected, keys)

	for _, e := range errs {
		if e.Type == "int_range" && e.Loc[1] == "age_at_offence" {
			assert.Equal(t, "Input should be between 10 and 120", e.Msg)
			assert.Equal(t, 9, e.Input)
		}
	}
}

func TestParseCalculation_ExtraForbidden(t *testing.T) {
	body := `{
		"offence_id": "abc",
		"offence_date": "2024-01-10",
		"conviction_date": "2024-02-01",
		"sentence_date": "2024-03-01",
		"age_at_offence": 30,
		"age_at_conviction": 30,
		"age_at_sentence": 30,
		"plea_stage": "first_stage",
		"sentence_type": "fine",
		"bogus_field": {"nested": true}
	}`
	req, errs := parseCalc(t, body, true)
	require.Nil(t, req)
	require.Len(t, errs, 1)

	assert.Equal(t, []any{"body", "bogus_field"}, errs[0].Loc)
	assert.Equal(t, "Extra inputs are not permitted", errs[0].Msg)
	assert.Equal(t, "extra_forbidden", errs[0].Type)
	assert.Equal(t, map[string]any{"nested": true}, errs[0].Input)
}

func TestParseCalculation_CrossFieldOrdering(t *testing.T) {
	body := `{
		"offence_id": "abc",
		"offence_date": "2024-05-01",
		"conviction_date": "2024-04-01",
		"sentence_date": "2024-03-01",
		"age_at_offence": 40,
		"age_at_conviction": 35,
		"age_at_sentence": 30,
		"plea_stage": "first_stage",
		"sentence_type": "fine"
	}`
	req, errs := parseCalc(t, body, true)
	require.Nil(t, req)
	require.Len(t, errs, 4)

	msgs := errorMessages(errs)
	assert.ElementsMatch(t, []string{
		"offence_date must be on or before conviction_date",
		"conviction_date must be on or before sentence_date",
		"age_at_offence must be less than or equal to age_at_conviction",
		"age_at_conviction must be less than or equal to age_at_sentence",
	}, msgs)
	for _, e := range errs {
		assert.Equal(t, []any{"body"}, e.Loc)
		assert.Equal(t, "value_error", e.Type)
	}
}

func TestParseCalculation_IdentifierRequired(t *testing.T) {
	body := `{
		"offence_date": "2024-01-10",
		"conviction_date": "2024-02-01",
		"sentence_date": "2024-03-01",
		"age_at_offence": 30,
		"age_at_conviction": 30,
		"age_at_sentence": 30,
		"plea_stage": "first_stage",
		"sentence_type": "fine"
	}`
	_, errs := parseCalc(t, body, true)
	require.Len(t, errs, 1)
	assert.Equal(t, "Provide either offence_id or offence_query", errs[0].Msg)
	assert.Equal(t, "value_error", errs[0].Type)
	assert.Equal(t, []any{"body"}, errs[0].Loc)

	// The same body parses cleanly when the identifier may be inherited.
	req, errs := parseCalc(t, body, false)
	assert.Empty(t, errs)
	assert.NotNil(t, req)
}

func TestParseCalculation_DefaultsAndValues(t *testing.T) {
	body := `{
		"offence_query": "common assault",
		"offence_date": "2024-01-10",
		"conviction_date": "2024-02-01",
		"sentence_date": "2024-03-01",
		"age_at_offence": 30.0,
		"age_at_conviction": 30,
		"age_at_sentence": 31,
		"plea_stage": "day_of_trial",
		"sentence_type": "determinate_custodial_sentence",
		"culpability": "B",
		"harm": "2",
		"pre_plea_term_months": 18,
		"fine_amount": 250.5,
		"prior_domestic_burglary_count": 2,
		"terrorism_flag": true
	}`
	req, errs := parseCalc(t, body, true)
	require.Empty(t, errs)
	require.NotNil(t, req)

	in := req.Input
	assert.Equal(t, "common assault", req.OffenceQuery)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), in.OffenceDate)
	assert.Equal(t, 30, in.AgeAtOffence)
	assert.Equal(t, 31, in.AgeAtSentence)
	require.NotNil(t, in.PrePleaTermMonths)
	assert.Equal(t, 18.0, *in.PrePleaTermMonths)
	require.NotNil(t, in.FineAmount)
	assert.Equal(t, 250.5, *in.FineAmount)
	assert.Equal(t, 2, in.PriorDomesticBurglaryCount)
	assert.True(t, in.TerrorismFlag)

	// Defaults.
	assert.True(t, in.ReplicateACEReleaseBug)
	assert.False(t, in.MinimumSentenceUnjustOrExceptional)
	assert.Zero(t, in.ExtensionMonths)
	assert.Zero(t, in.PriorClassATraffickingCount)
	assert.False(t, in.DangerousnessAssessed)
}

func TestParseCalculation_NullOptionals(t *testing.T) {
	body := `{
		"offence_id": "abc",
		"offence_query": null,
		"offence_date": "2024-01-10",
		"conviction_date": "2024-02-01",
		"sentence_date": "2024-03-01",
		"age_at_offence": 30,
		"age_at_conviction": 30,
		"age_at_sentence": 30,
		"plea_stage": "not_guilty",
		"sentence_type": "fine",
		"culpability": null,
		"pre_plea_term_months": null,
		"fine_amount": null,
		"replicate_ace_release_bug": null
	}`
	req, errs := parseCalc(t, body, true)
	require.Empty(t, errs)
	require.NotNil(t, req)

	assert.Equal(t, "abc", req.OffenceID)
	assert.Empty(t, req.OffenceQuery)
	assert.Empty(t, req.Input.Culpability)
	assert.Nil(t, req.Input.PrePleaTermMonths)
	assert.Nil(t, req.Input.FineAmount)
	assert.True(t, req.Input.ReplicateACEReleaseBug)
}

func TestParseCalculation_NullIdentifiersRequireOne(t *testing.T) {
	body := `{
		"offence_id": null,
		"offence_date": "2024-01-10",
		"conviction_date": "2024-02-01",
		"sentence_date": "2024-03-01",
		"age_at_offence": 30,
		"age_at_conviction": 30,
		"age_at_sentence": 30,
		"plea_stage": "not_guilty",
		"sentence_type": "fine"
	}`
	_, errs := parseCalc(t, body, true)
	require.Len(t, errs, 1)
	assert.Equal(t, "Provide either offence_id or offence_query", errs[0].Msg)
}

func TestParseCalculation_LiteralMessageListsOptions(t *testing.T) {
	body := `{
		"offence_id": "abc",
		"offence_date": "2024-01-10",
		"conviction_date": "2024-02-01",
		"sentence_date": "2024-03-01",
		"age_at_offence": 30,
		"age_at_conviction": 30,
		"age_at_sentence": 30,
		"plea_stage": "immediately",
		"sentence_type": "fine"
	}`
	_, errs := parseCalc(t, body, true)
	require.Len(t, errs, 1)
	assert.Equal(t, "literal_error", errs[0].Type)
	assert.Contains(t, errs[0].Msg, "'first_stage'")
	assert.Contains(t, errs[0].Msg, "or 'not_guilty'")
	assert.Equal(t, "immediately", errs[0].Input)
}

func TestParseSearch(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		req, errs := parseSearchRequest(fieldsOf(t, `{"query":"assault","offence_id":"abc","top_k":7}`))
		require.Empty(t, errs)
		assert.Equal(t, "assault", req.Query)
		require.NotNil(t, req.OffenceID)
		assert.Equal(t, "abc", *req.OffenceID)
		assert.Equal(t, 7, req.TopK)
	})

	t.Run("defaults", func(t *testing.T) {
		req, errs := parseSearchRequest(fieldsOf(t, `{"query":"assault"}`))
		require.Empty(t, errs)
		assert.Nil(t, req.OffenceID)
		assert.Zero(t, req.TopK)
	})

	t.Run("missing query", func(t *testing.T) {
		_, errs := parseSearchRequest(fieldsOf(t, `{}`))
		require.Len(t, errs, 1)
		assert.Equal(t, []any{"body", "query"}, errs[0].Loc)
		assert.Equal(t, "missing", errs[0].Type)
	})

	t.Run("top_k out of range", func(t *testing.T) {
		for _, k := range []int{0, 21, -5} {
			_, errs := parseSearchRequest(fieldsOf(t, fmt.Sprintf(`{"query":"q","top_k":%d}`, k)))
			require.Len(t, errs, 1, "top_k %d", k)
			assert.Equal(t, "int_range", errs[0].Type)
			assert.Equal(t, "Input should be between 1 and 20", errs[0].Msg)
		}
	})

	t.Run("extra field", func(t *testing.T) {
		_, errs := parseSearchRequest(fieldsOf(t, `{"query":"q","filters":{}}`))
		require.Len(t, errs, 1)
		assert.Equal(t, "extra_forbidden", errs[0].Type)
	})
}

func TestParseChat(t *testing.T) {
	t.Run("message only", func(t *testing.T) {
		req, errs := parseChatRequest(fieldsOf(t, `{"message":"what is the sentence?"}`))
		require.Empty(t, errs)
		assert.Equal(t, "what is the sentence?", req.Message)
		assert.Nil(t, req.Calculation)
		assert.Equal(t, 5, req.TopK)
	})

	t.Run("missing message", func(t *testing.T) {
		_, errs := parseChatRequest(fieldsOf(t, `{}`))
		require.Len(t, errs, 1)
		assert.Equal(t, []any{"body", "message"}, errs[0].Loc)
		assert.Equal(t, "missing", errs[0].Type)
	})

	t.Run("calculation must be an object", func(t *testing.T) {
		_, errs := parseChatRequest(fieldsOf(t, `{"message":"m","calculation":"nope"}`))
		require.Len(t, errs, 1)
		assert.Equal(t, []any{"body", "calculation"}, errs[0].Loc)
		assert.Equal(t, "value_error", errs[0].Type)
		assert.Equal(t, "Input should be an object", errs[0].Msg)
	})

	t.Run("nested errors carry the calculation prefix", func(t *testing.T) {
		body := `{"message":"m","calculation":{
			"offence_date": "2024-01-10",
			"conviction_date": "2024-02-01",
			"sentence_date": "2024-03-01",
			"age_at_offence": 5,
			"age_at_conviction": 30,
			"age_at_sentence": 30,
			"plea_stage": "first_stage",
			"sentence_type": "fine"
		}}`
		_, errs := parseChatRequest(fieldsOf(t, body))
		require.Len(t, errs, 1)
		assert.Equal(t, []any{"body", "calculation", "age_at_offence"}, errs[0].Loc)
		assert.Equal(t, "int_range", errs[0].Type)
	})

	t.Run("nested calculation may omit identifiers", func(t *testing.T) {
		body := `{"message":"m","calculation":{
			"offence_date": "2024-01-10",
			"conviction_date": "2024-02-01",
			"sentence_date": "2024-03-01",
			"age_at_offence": 30,
			"age_at_conviction": 30,
			"age_at_sentence": 30,
			"plea_stage": "first_stage",
			"sentence_type": "fine"
		}}`
		req, errs := parseChatRequest(fieldsOf(t, body))
		require.Empty(t, errs)
		require.NotNil(t, req.Calculation)
		assert.Empty(t, req.Calculation.OffenceID)
	})
}
