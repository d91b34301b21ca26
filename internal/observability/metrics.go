package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus metrics for the application: HTTP traffic
// plus the domain counters the services increment.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	entriesPosted   *prometheus.CounterVec
	allocations     *prometheus.CounterVec
	creditsGranted  prometheus.Counter
	creditsDefault  prometheus.Counter
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cuaderno_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cuaderno_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	entries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cuaderno_journal_entries_posted_total",
		Help: "Journal entries posted by operation type.",
	}, []string{"operation"})
	allocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cuaderno_payment_allocations_total",
		Help: "Payment allocations recorded by component.",
	}, []string{"component"})
	granted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cuaderno_credits_granted_total",
		Help: "Credits granted.",
	})
	defaulted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cuaderno_credits_defaulted_total",
		Help: "Credits marked defaulted, manually or by the aging scan.",
	})
	registry.MustRegister(requests, duration, entries, allocations, granted, defaulted)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		entriesPosted:   entries,
		allocations:     allocations,
		creditsGranted:  granted,
		creditsDefault:  defaulted,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
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

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// EntryPosted counts a posted journal entry.
func (m *Metrics) EntryPosted(operation string) {
	if m == nil {
		return
	}
	m.entriesPosted.WithLabelValues(operation).Inc()
}

// PaymentAllocated counts one allocation component.
func (m *Metrics) PaymentAllocated(component string) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(component).Inc()
}

// CreditGranted counts a granted credit.
func (m *Metrics) CreditGranted() {
	if m == nil {
		return
	}
	m.creditsGranted.Inc()
}

// CreditDefaulted counts a defaulted credit.
func (m *Metrics) CreditDefaulted() {
	if m == nil {
		return
	}
	m.creditsDefault.Inc()
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
