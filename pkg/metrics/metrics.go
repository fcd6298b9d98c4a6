package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the Prometheus collectors exported by the API and worker.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	applications  prometheus.Counter
	compensations *prometheus.CounterVec
	webhookEvents *prometheus.CounterVec
}

// New builds a Metrics instance on its own registry, including Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		applications: f.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_applications_total",
			Help: "Job applications accepted.",
		}),
		compensations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_registration_compensations_total",
			Help: "Profile rollbacks after a failed identity creation, by outcome.",
		}, []string{"outcome"}),
		webhookEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_webhook_events_total",
			Help: "Verified payment webhook events by type.",
		}, []string{"type"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ApplicationSubmitted counts an accepted job application.
func (m *Metrics) ApplicationSubmitted() {
	if m == nil {
		return
	}
	m.applications.Inc()
}

// Compensation counts a registration rollback: "deleted", "enqueued" or "failed".
func (m *Metrics) Compensation(outcome string) {
	if m == nil {
		return
	}
	m.compensations.WithLabelValues(outcome).Inc()
}

// WebhookEvent counts a verified webhook by event type.
func (m *Metrics) WebhookEvent(eventType string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(eventType).Inc()
}
