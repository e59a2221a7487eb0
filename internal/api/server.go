// Package api assembles the HTTP surface: route table, middleware chain and
// request instrumentation.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentencechat/backend/internal/handlers"
	"github.com/sentencechat/backend/internal/metrics"
	"github.com/sentencechat/backend/internal/middleware"
	"github.com/sentencechat/backend/internal/retrieval"
	"github.com/sentencechat/backend/internal/store"
)

// Server owns the route table for the sentencing API.
type Server struct {
	store     store.Store
	retrieval *retrieval.Service
	audit     *store.AuditWriter
	metrics   *metrics.Metrics
	limiter   *middleware.RateLimiter
}

// NewServer wires the shared dependencies into a Server. The audit writer,
// metrics and limiter may be nil (disabled).
func NewServer(st store.Store, svc *retrieval.Service, audit *store.AuditWriter, m *metrics.Metrics, limiter *middleware.RateLimiter) *Server {
	return &Server{
		store:     st,
		retrieval: svc,
		audit:     audit,
		metrics:   m,
		limiter:   limiter,
	}
}

// Handler builds the routed handler with the middleware chain
// CORS -> request id -> logging -> rate limit -> instrumentation.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", handlers.HandleHealth(s.store)).Methods("GET")
	router.HandleFunc("/calculate_sentence", handlers.HandleCalculateSentence(s.store, s.audit, s.metrics)).Methods("POST", "OPTIONS")
	router.HandleFunc("/search_guidelines", handlers.HandleSearchGuidelines(s.retrieval)).Methods("POST", "OPTIONS")
	router.HandleFunc("/chat_turn", handlers.HandleChatTurn(s.store, s.retrieval, s.audit, s.metrics)).Methods("POST", "OPTIONS")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.Use(middleware.CORS)
	router.Use(middleware.RequestID)
	router.Use(middleware.Logging)
	if s.limiter != nil {
		router.Use(s.limiter.Middleware)
	}
	if s.metrics != nil {
		router.Use(s.instrument)
	}

	return router
}

// instrument records request count and latency against the matched route
// template.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.RecordHTTPRequest(route, r.Method, rec.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
