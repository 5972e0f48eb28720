// Package server — metrics.go registers all Prometheus metrics for the HTTP
// server and exposes helpers used by handlers and middleware.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric label values shared across registrations.
const (
	// labelHandler is the "handler" label value used to partition metrics by
	// the logical endpoint name rather than the raw URL path.
	labelHandler = "handler"

	// outcomeOK and outcomeError partition operation counters by result.
	outcomeOK    = "ok"
	outcomeError = "error"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// ragOperationsTotal counts completed store operations, partitioned by
	// operation ("upsert", "query") and outcome.
	ragOperationsTotal *prometheus.CounterVec

	// ragDurationSeconds records the duration of each store operation,
	// embedding included.
	ragDurationSeconds *prometheus.HistogramVec

	// enhanceRequestsTotal counts completed enhancement calls, partitioned by
	// kind ("text", "message", "recent") and outcome.
	enhanceRequestsTotal *prometheus.CounterVec

	// enhanceDurationSeconds records the wall-clock duration of each
	// enhancement call, LLM round trip included.
	enhanceDurationSeconds *prometheus.HistogramVec

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, handler name, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default —
// this keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		ragOperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "echorelay",
			Subsystem: "rag",
			Name:      "operations_total",
			Help:      "Total number of retrieval store operations completed, partitioned by operation and outcome.",
		}, []string{"operation", "outcome"}),

		ragDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "echorelay",
			Subsystem: "rag",
			Name:      "duration_seconds",
			Help:      "Duration of retrieval store operations, embedding included.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"operation"}),

		enhanceRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "echorelay",
			Subsystem: "enhance",
			Name:      "requests_total",
			Help:      "Total number of enhancement calls completed, partitioned by kind and outcome.",
		}, []string{"kind", "outcome"}),

		enhanceDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "echorelay",
			Subsystem: "enhance",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of enhancement calls, LLM round trip included.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}, []string{"kind"}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "echorelay",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "echorelay",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}

// observeRAG records one completed store operation.
func (m *serverMetrics) observeRAG(operation string, start time.Time, err error) {
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
	}
	m.ragOperationsTotal.WithLabelValues(operation, outcome).Inc()
	m.ragDurationSeconds.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// observeEnhance records one completed enhancement call.
func (m *serverMetrics) observeEnhance(kind string, start time.Time, err error) {
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
	}
	m.enhanceRequestsTotal.WithLabelValues(kind, outcome).Inc()
	m.enhanceDurationSeconds.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// instrument wraps next so that every request increments httpRequestsTotal
// and records its latency under the given handler name.
func (s *Server) instrument(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(rw, r)

		s.metrics.httpRequestsTotal.WithLabelValues(r.Method, name, strconv.Itoa(rw.status)).Inc()
		s.metrics.httpDurationSeconds.WithLabelValues(r.Method, name).Observe(time.Since(start).Seconds())
	})
}
