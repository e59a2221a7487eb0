package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sentencechat/backend/internal/store"
)

// HandleHealth reports liveness plus store connectivity. The probe is bounded
// so a slow store cannot hang the health check.
func HandleHealth(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		storeStatus := "connected"
		if err := st.Ping(ctx); err != nil {
			storeStatus = "error"
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"store":  storeStatus,
		})
	}
}
