package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/sentencechat/backend/internal/metrics"
	"github.com/sentencechat/backend/internal/sentencing"
	"github.com/sentencechat/backend/internal/store"
)

// HandleCalculateSentence validates the request, resolves the offence, runs
// the rules engine and responds with the calculation result.
func HandleCalculateSentence(st store.Store, audit *store.AuditWriter, m *metrics.Metrics) http.HandlerFunc {
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
		req, errs := parseCalculationRequest([]any{"body"}, fields, body, true)
		if len(errs) > 0 {
			writeDetail(w, http.StatusUnprocessableEntity, errs)
			return
		}

		result, _, apiErr := runCalculation(r.Context(), st, audit, m, req)
		if apiErr != nil {
			writeAPIError(w, apiErr)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// runCalculation executes the calculation path shared by /calculate_sentence
// and chat turns: resolve the offence, fetch matrix rows, run the engine,
// record metrics and enqueue the audit write. The audit write happens after
// the result is final and never delays or fails the response.
func runCalculation(ctx context.Context, st store.Store, audit *store.AuditWriter, m *metrics.Metrics, req *CalculationRequest) (*sentencing.CalculationResult, *sentencing.OffenceRecord, *apiError) {
	offence, resolutionTrace, apiErr := resolveOffence(ctx, st, req.OffenceID, req.OffenceQuery)
	if apiErr != nil {
		return nil, nil, apiErr
	}

	rows, err := st.FetchSentencingMatrix(ctx, offence.OffenceID)
	if err != nil {
		return nil, nil, storeError(err)
	}

	in := req.Input
	in.Offence = *offence
	result := sentencing.Calculate(&in, rows)
	if len(resolutionTrace) > 0 {
		result.Trace = append(resolutionTrace, result.Trace...)
	}

	if m != nil {
		m.RecordCalculation(offence.MinimumSentenceCode, result.MinimumSentenceTriggered, result.ReleaseFraction)
	}
	if audit != nil {
		audit.Enqueue(offence.OffenceID, req.Raw, result)
	}
	return result, offence, nil
}
