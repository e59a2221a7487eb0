package handlers

import (
	"encoding/json"

	"github.com/sentencechat/backend/internal/sentencing"
)

// CalculationRequest is a validated calculation body before offence
// resolution. Raw preserves the client JSON for the audit record.
type CalculationRequest struct {
	OffenceID    string
	OffenceQuery string
	Input        sentencing.CalculationInput
	Raw          json.RawMessage
}

// SearchRequest is a validated /search_guidelines body. TopK is 0 when the
// client did not override it; the retrieval service applies its default.
type SearchRequest struct {
	Query     string
	OffenceID *string
	TopK      int
}

// ChatRequest is a validated /chat_turn body. TopK defaults to 5 for chat
// turns.
type ChatRequest struct {
	Message      string
	OffenceID    string
	OffenceQuery string
	Calculation  *CalculationRequest
	TopK         int
}

func pleaStageLiterals() []string {
	out := make([]string, len(sentencing.PleaStages))
	for i, s := range sentencing.PleaStages {
		out[i] = string(s)
	}
	return out
}

func sentenceTypeLiterals() []string {
	out := make([]string, len(sentencing.SentenceTypes))
	for i, s := range sentencing.SentenceTypes {
		out[i] = string(s)
	}
	return out
}

// parseCalculationRequest validates one calculation object rooted at loc.
// requireIdentifier is false for the nested object of a chat turn, where the
// offence identifier may be inherited from the outer request and the rule is
// enforced only after inheritance.
func parseCalculationRequest(loc []any, fields map[string]json.RawMessage, raw json.RawMessage, requireIdentifier bool) (*CalculationRequest, []FieldError) {
	v := newFieldSet(loc, fields)
	req := &CalculationRequest{Raw: raw}
	in := &req.Input

	errsBeforeIdentifiers := len(v.errs)
	if s := v.stringField("offence_id", false); s != nil {
		req.OffenceID = *s
	}
	if s := v.stringField("offence_query", false); s != nil {
		req.OffenceQuery = *s
	}
	identifiersClean := len(v.errs) == errsBeforeIdentifiers

	offenceDate, okOffenceDate := v.dateField("offence_date")
	convictionDate, okConvictionDate := v.dateField("conviction_date")
	sentenceDate, okSentenceDate := v.dateField("sentence_date")
	in.OffenceDate, in.ConvictionDate, in.SentenceDate = offenceDate, convictionDate, sentenceDate

	ageOffence, okAgeOffence := v.ageField("age_at_offence")
	ageConviction, okAgeConviction := v.ageField("age_at_conviction")
	ageSentence, okAgeSentence := v.ageField("age_at_sentence")
	in.AgeAtOffence, in.AgeAtConviction, in.AgeAtSentence = ageOffence, ageConviction, ageSentence

	if s, ok := v.literalField("plea_stage", pleaStageLiterals()); ok {
		in.PleaStage = sentencing.PleaStage(s)
	}
	if s, ok := v.literalField("sentence_type", sentenceTypeLiterals()); ok {
		in.SentenceType = sentencing.SentenceType(s)
	}

	if s := v.stringField("culpability", false); s != nil {
		in.Culpability = *s
	}
	if s := v.stringField("harm", false); s != nil {
		in.Harm = *s
	}

	in.PrePleaTermMonths = v.numberField("pre_plea_term_months")
	if f := v.numberField("extension_months"); f != nil {
		in.ExtensionMonths = *f
	}
	in.FineAmount = v.numberField("fine_amount")

	in.DangerousnessAssessed = v.boolField("dangerousness_assessed", false)
	in.PriorListedOffenceWithCustody = v.boolField("prior_listed_offence_with_custody", false)
	in.PriorDomesticBurglaryCount = v.countField("prior_domestic_burglary_count")
	in.PriorClassATraffickingCount = v.countField("prior_class_a_trafficking_count")
	in.PriorRelevantWeaponConviction = v.boolField("prior_relevant_weapon_conviction", false)
	in.TerrorismFlag = v.boolField("terrorism_flag", false)
	in.MinimumSentenceUnjustOrExceptional = v.boolField("minimum_sentence_unjust_or_exceptional", false)
	in.ReplicateACEReleaseBug = v.boolField("replicate_ace_release_bug", true)

	v.forbidExtras()

	if requireIdentifier && identifiersClean && req.OffenceID == "" && req.OffenceQuery == "" {
		v.crossError("Provide either offence_id or offence_query")
	}
	if okOffenceDate && okConvictionDate && offenceDate.After(convictionDate) {
		v.crossError("offence_date must be on or before conviction_date")
	}
	if okConvictionDate && okSentenceDate && convictionDate.After(sentenceDate) {
		v.crossError("conviction_date must be on or before sentence_date")
	}
	if okAgeOffence && okAgeConviction && ageOffence > ageConviction {
		v.crossError("age_at_offence must be less than or equal to age_at_conviction")
	}
	if okAgeConviction && okAgeSentence && ageConviction > ageSentence {
		v.crossError("age_at_conviction must be less than or equal to age_at_sentence")
	}

	if len(v.errs) > 0 {
		return nil, v.errs
	}
	return req, nil
}

func parseSearchRequest(fields map[string]json.RawMessage) (*SearchRequest, []FieldError) {
	v := newFieldSet([]any{"body"}, fields)
	req := &SearchRequest{}

	if s := v.stringField("query", true); s != nil {
		req.Query = *s
	}
	req.OffenceID = v.stringField("offence_id", false)
	if k := v.topKField("top_k"); k != nil {
		req.TopK = *k
	}
	v.forbidExtras()

	if len(v.errs) > 0 {
		return nil, v.errs
	}
	return req, nil
}

func parseChatRequest(fields map[string]json.RawMessage) (*ChatRequest, []FieldError) {
	v := newFieldSet([]any{"body"}, fields)
	req := &ChatRequest{TopK: 5}

	if s := v.stringField("message", true); s != nil {
		req.Message = *s
	}
	if s := v.stringField("offence_id", false); s != nil {
		req.OffenceID = *s
	}
	if s := v.stringField("offence_query", false); s != nil {
		req.OffenceQuery = *s
	}
	if k := v.topKField("top_k"); k != nil {
		req.TopK = *k
	}
	raw, calcFields := v.objectField("calculation")
	v.forbidExtras()

	errs := v.errs
	if calcFields != nil {
		calc, calcErrs := parseCalculationRequest([]any{"body", "calculation"}, calcFields, raw, false)
		req.Calculation = calc
		errs = append(errs, calcErrs...)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return req, nil
}
