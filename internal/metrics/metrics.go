// Package metrics holds the Prometheus collectors shared by the front-end.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector exposed on /metrics. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	BackendRequests *prometheus.CounterVec
	BackendDuration *prometheus.HistogramVec
	UIActions       *prometheus.CounterVec
	WriteFailures   *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	RateLimited     prometheus.Counter
}

// New creates the collectors and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		BackendRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gastos_backend_requests_total",
				Help: "Requests sent to the expense backend by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		BackendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gastos_backend_request_duration_seconds",
				Help:    "Round-trip duration of expense backend requests",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
		UIActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gastos_ui_actions_total",
				Help: "View-state actions triggered from the UI",
			},
			[]string{"action"},
		),
		WriteFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gastos_write_failures_total",
				Help: "Create/update attempts that surfaced an error message",
			},
			[]string{"operation"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gastos_http_requests_total",
				Help: "HTTP requests served by the front-end",
			},
			[]string{"method", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gastos_http_request_duration_seconds",
				Help:    "Front-end request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		RateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gastos_rate_limited_total",
				Help: "Requests rejected by the rate limiter",
			},
		),
	}

	m.registry.MustRegister(
		m.BackendRequests,
		m.BackendDuration,
		m.UIActions,
		m.WriteFailures,
		m.HTTPRequests,
		m.HTTPDuration,
		m.RateLimited,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveBackend(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.BackendRequests.WithLabelValues(operation, outcome).Inc()
	m.BackendDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) Action(action string) {
	if m == nil {
		return
	}
	m.UIActions.WithLabelValues(action).Inc()
}

func (m *Metrics) WriteFailed(operation string) {
	if m == nil {
		return
	}
	m.WriteFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObserveHTTP(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) RateLimitHit() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}
