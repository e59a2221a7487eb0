package handlers

import (
	"io"
	"net/http"

	"github.com/sentencechat/backend/internal/retrieval"
	"github.com/sentencechat/backend/internal/store"
)

// HandleSearchGuidelines runs hybrid or lexical retrieval over the guideline
// chunk index.
func HandleSearchGuidelines(svc *retrieval.Service) http.HandlerFunc {
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
		req, errs := parseSearchRequest(fields)
		if len(errs) > 0 {
			writeDetail(w, http.StatusUnprocessableEntity, errs)
			return
		}

		results, err := svc.Search(r.Context(), req.Query, req.OffenceID, req.TopK)
		if err != nil {
			writeAPIError(w, storeError(err))
			return
		}
		if results == nil {
			results = []store.GuidelineChunk{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
	}
}
