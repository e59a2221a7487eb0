package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/sentencechat/backend/internal/sentencing"
	"github.com/sentencechat/backend/internal/store"
)

// resolveOffence produces the canonical offence record, by id when present,
// otherwise by fuzzy name search (top trigram match, limit 5). The returned
// trace lines describe query resolution for inclusion in the calculation
// trace.
func resolveOffence(ctx context.Context, st store.Store, offenceID, offenceQuery string) (*sentencing.OffenceRecord, []string, *apiError) {
	if offenceID != "" {
		if _, err := uuid.Parse(offenceID); err != nil {
			return nil, nil, &apiError{http.StatusUnprocessableEntity, fmt.Sprintf("Invalid offence_id: %s", offenceID)}
		}
		offence, err := st.FetchOffenceByID(ctx, offenceID)
		if err != nil {
			return nil, nil, storeError(err)
		}
		if offence == nil {
			return nil, nil, &apiError{http.StatusNotFound, fmt.Sprintf("Offence not found: %s", offenceID)}
		}
		return offence, nil, nil
	}

	if offenceQuery != "" {
		matches, err := st.SearchOffences(ctx, offenceQuery, 5)
		if err != nil {
			return nil, nil, storeError(err)
		}
		if len(matches) == 0 {
			return nil, nil, &apiError{http.StatusNotFound, fmt.Sprintf("No offence found for query: %s", offenceQuery)}
		}
		top := matches[0].OffenceRecord
		trace := []string{fmt.Sprintf("Resolved offence query '%s' to '%s' (%s).", offenceQuery, top.CanonicalName, top.OffenceID)}
		if len(matches) > 1 {
			trace = append(trace, "Multiple matches found; top similarity match selected automatically.")
		}
		return &top, trace, nil
	}

	return nil, nil, &apiError{http.StatusBadRequest, "Provide offence_id or offence_query"}
}

// storeError maps store failures onto the error envelope: malformed
// identifiers are client errors, everything else surfaces as a 500 with the
// store's message.
func storeError(err error) *apiError {
	if errors.Is(err, store.ErrInvalidOffenceID) {
		return &apiError{http.StatusUnprocessableEntity, err.Error()}
	}
	return &apiError{http.StatusInternalServerError, err.Error()}
}
