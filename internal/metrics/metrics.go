// Package metrics registers the Prometheus collectors for the sentencing
// API: HTTP traffic, calculation outcomes, retrieval modes and the audit
// pipeline.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the sentencing service
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Calculation metrics
	CalculationsTotal *prometheus.CounterVec

	// Retrieval metrics
	RetrievalSearchesTotal *prometheus.CounterVec
	EmbeddingCacheTotal    *prometheus.CounterVec

	// Audit pipeline metrics
	AuditRecordsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers all metrics on the given registerer; tests pass
// a private registry.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentencing_http_requests_total",
				Help: "Total number of HTTP requests served",
			},
			[]string{"route", "method", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sentencing_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),

		CalculationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentencing_calculations_total",
				Help: "Total number of sentencing calculations performed",
			},
			[]string{"minimum_code", "release_fraction"},
		),

		RetrievalSearchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentencing_retrieval_searches_total",
				Help: "Total number of guideline retrieval searches",
			},
			[]string{"mode"}, // mode: hybrid, text, text_fallback
		),

		EmbeddingCacheTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentencing_embedding_cache_total",
				Help: "Embedding cache lookups by result",
			},
			[]string{"result"}, // result: hit, miss
		),

		AuditRecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentencing_audit_records_total",
				Help: "Calculation audit records by outcome",
			},
			[]string{"outcome"}, // outcome: stored, dropped, failed
		),
	}
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordCalculation records a completed calculation. The minimum code is
// the offence's code when a floor triggered, "none" otherwise; the release
// fraction renders to two decimals or "none".
func (m *Metrics) RecordCalculation(minimumCode string, triggered bool, releaseFraction *float64) {
	code := "none"
	if triggered && minimumCode != "" {
		code = minimumCode
	}
	fraction := "none"
	if releaseFraction != nil {
		fraction = strconv.FormatFloat(*releaseFraction, 'f', 2, 64)
	}
	m.CalculationsTotal.WithLabelValues(code, fraction).Inc()
}

// RecordRetrieval records one retrieval search by mode.
func (m *Metrics) RecordRetrieval(mode string) {
	m.RetrievalSearchesTotal.WithLabelValues(mode).Inc()
}

// RecordEmbeddingCache records one cache lookup.
func (m *Metrics) RecordEmbeddingCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.EmbeddingCacheTotal.WithLabelValues(result).Inc()
}

// AuditStored implements store.AuditObserver.
func (m *Metrics) AuditStored() {
	m.AuditRecordsTotal.WithLabelValues("stored").Inc()
}

// AuditDropped implements store.AuditObserver.
func (m *Metrics) AuditDropped() {
	m.AuditRecordsTotal.WithLabelValues("dropped").Inc()
}

// AuditFailed implements store.AuditObserver.
func (m *Metrics) AuditFailed() {
	m.AuditRecordsTotal.WithLabelValues("failed").Inc()
}
