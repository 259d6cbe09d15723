// Package metrics exposes Prometheus counters for suggestion traffic, AI
// calls, storage operations and HTTP requests.
//
// Every method is safe on a nil *Metrics, so packages can take an optional
// recorder without guarding each call site.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lumina"

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics owns a private registry so tests and multiple servers in one
// process never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	suggestRequests *prometheus.CounterVec
	suggestCache    *prometheus.CounterVec
	aiRequests      *prometheus.CounterVec
	aiDuration      *prometheus.HistogramVec
	storageOps      *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
}

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		suggestRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggest_requests_total",
			Help:      "Reference suggestion lookups by transport.",
		}, []string{"transport"}),
		suggestCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggest_cache_total",
			Help:      "Suggestion cache lookups by result (hit or miss).",
		}, []string{"result"}),
		aiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_requests_total",
			Help:      "Generative model calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		aiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_request_duration_seconds",
			Help:      "Generative model call latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"operation"}),
		storageOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_operations_total",
			Help:      "Library operations by backend, operation and outcome.",
		}, []string{"backend", "operation", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.suggestRequests,
		m.suggestCache,
		m.aiRequests,
		m.aiDuration,
		m.storageOps,
		m.httpRequests,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Suggest counts one suggestion lookup.
func (m *Metrics) Suggest(transport string, cacheHit bool) {
	if m == nil {
		return
	}
	m.suggestRequests.WithLabelValues(transport).Inc()
	result := "miss"
	if cacheHit {
		result = "hit"
	}
	m.suggestCache.WithLabelValues(result).Inc()
}

// AIRequest records one model call.
func (m *Metrics) AIRequest(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.aiRequests.WithLabelValues(operation, outcome(err)).Inc()
	m.aiDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// Storage records one library operation.
func (m *Metrics) Storage(backend, operation string, err error) {
	if m == nil {
		return
	}
	m.storageOps.WithLabelValues(backend, operation, outcome(err)).Inc()
}

// HTTPRequest records one served request.
func (m *Metrics) HTTPRequest(method string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
