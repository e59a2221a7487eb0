package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// apiError carries an HTTP status and a detail payload (string or field-error
// list) out of the resolution and orchestration helpers.
type apiError struct {
	status int
	detail any
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%v", e.detail)
}

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeDetail wraps detail in the error envelope shared by every route.
func writeDetail(w http.ResponseWriter, status int, detail any) {
	writeJSON(w, status, map[string]any{"detail": detail})
}

func writeAPIError(w http.ResponseWriter, e *apiError) {
	writeDetail(w, e.status, e.detail)
}
