package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sentencechat/backend/internal/metrics"
	"github.com/sentencechat/backend/internal/retrieval"
	"github.com/sentencechat/backend/internal/sentencing"
	"github.com/sentencechat/backend/internal/store"
)

const (
	followUpOffence  = "Which offence is this for? Provide offence_id or offence name."
	replyNeedsDetail = "I need one more detail before I can calculate a sentence."
)

// ChatTurnResponse is one conversational turn: reply text, the calculation
// when one ran, guideline citations and any follow-up prompts.
type ChatTurnResponse struct {
	Reply             string                        `json:"reply"`
	Calculation       *sentencing.CalculationResult `json:"calculation"`
	Citations         []store.GuidelineChunk        `json:"citations"`
	FollowUpQuestions []string                      `json:"follow_up_questions"`
}

// HandleChatTurn drives an optional calculation plus retrieval and composes
// the reply. A nested calculation inherits the outer offence identifiers when
// it carries none of its own.
func HandleChatTurn(st store.Store, svc *retrieval.Service, audit *store.AuditWriter, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		fields, err := decodeObject(body)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		req, errs := parseChatRequest(fields)
		if len(errs) > 0 {
			writeDetail(w, http.StatusUnprocessableEntity, errs)
			return
		}

		ctx := r.Context()
		var calcResult *sentencing.CalculationResult
		var offenceFilter *string
		if req.OffenceID != "" {
			offenceFilter = &req.OffenceID
		}

		if req.Calculation != nil {
			calc := req.Calculation
			if calc.OffenceID == "" && calc.OffenceQuery == "" {
				calc.OffenceID = req.OffenceID
				if calc.OffenceID == "" {
					calc.OffenceQuery = req.OffenceQuery
				}
			}
			if calc.OffenceID == "" && calc.OffenceQuery == "" {
				writeDetail(w, http.StatusBadRequest, "Provide offence_id or offence_query")
				return
			}
			result, offence, apiErr := runCalculation(ctx, st, audit, m, calc)
			if apiErr != nil {
				writeAPIError(w, apiErr)
				return
			}
			calcResult = result
			offenceFilter = &offence.OffenceID
		}

		citations, err := svc.Search(ctx, req.Message, offenceFilter, req.TopK)
		if err != nil {
			writeAPIError(w, storeError(err))
			return
		}
		if citations == nil {
			citations = []store.GuidelineChunk{}
		}

		resp := ChatTurnResponse{
			Calculation:       calcResult,
			Citations:         citations,
			FollowUpQuestions: []string{},
		}
		if calcResult == nil && req.OffenceID == "" && req.OffenceQuery == "" {
			resp.Reply = replyNeedsDetail
			resp.FollowUpQuestions = append(resp.FollowUpQuestions, followUpOffence)
		} else {
			resp.Reply = composeReply(calcResult, citations)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// composeReply joins the calculation summary, warnings and the top citation
// into blank-line-separated paragraphs.
func composeReply(calc *sentencing.CalculationResult, citations []store.GuidelineChunk) string {
	var paragraphs []string

	if calc != nil {
		paragraphs = append(paragraphs, fmt.Sprintf(
			"Calculated sentence for %s: post-plea term %s months, estimated custody served %s months, victim surcharge £%s.",
			calc.OffenceName,
			monthsOrNA(calc.PostPleaTermMonths),
			monthsOrNA(calc.EstimatedTimeInCustodyMonths),
			formatAmount(calc.VictimSurchargeGBP)))
		if len(calc.Warnings) > 0 {
			paragraphs = append(paragraphs, "Warnings: "+strings.Join(calc.Warnings, " "))
		}
	}

	if len(citations) > 0 {
		top := citations[0]
		heading := "section"
		if top.SectionHeading != nil && *top.SectionHeading != "" {
			heading = *top.SectionHeading
		} else if top.SectionType != nil && *top.SectionType != "" {
			heading = *top.SectionType
		}
		url := "no-url"
		if top.SourceURL != nil && *top.SourceURL != "" {
			url = *top.SourceURL
		}
		paragraphs = append(paragraphs, fmt.Sprintf("Top supporting guideline section: %s (%s).", heading, url))
	} else {
		paragraphs = append(paragraphs, "No guideline citation found for this query.")
	}

	return strings.Join(paragraphs, "\n\n")
}

func monthsOrNA(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return formatAmount(*v)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
