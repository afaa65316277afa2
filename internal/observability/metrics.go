package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the console.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	apiCalls        *prometheus.CounterVec
	apiDuration     *prometheus.HistogramVec
	auditEntries    *prometheus.CounterVec
}

// NewMetrics initialises the registry and the base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wms_console_http_requests_total",
		Help: "HTTP requests served by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wms_console_http_request_duration_seconds",
		Help:    "HTTP request latency per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	apiCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wms_console_api_calls_total",
		Help: "Calls made to the WMS API by operation and outcome.",
	}, []string{"op", "outcome"})
	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wms_console_api_call_duration_seconds",
		Help:    "WMS API call latency per operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	audit := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wms_console_audit_entries_total",
		Help: "Audit entries handled by mode and result.",
	}, []string{"mode", "result"})
	registry.MustRegister(requests, duration, apiCalls, apiDuration, audit)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		apiCalls:        apiCalls,
		apiDuration:     apiDuration,
		auditEntries:    audit,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveAPICall satisfies wmsapi.Observer.
func (m *Metrics) ObserveAPICall(op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.apiCalls.WithLabelValues(op, outcome).Inc()
	m.apiDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveAudit counts an audit entry written or dropped.
func (m *Metrics) ObserveAudit(mode string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.auditEntries.WithLabelValues(mode, result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
