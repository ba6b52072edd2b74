package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taskhub/core/internal/domain/entities"
)

// Metrics holds the Prometheus collectors exported by the service.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	notificationsCreated *prometheus.CounterVec
	fanoutFailures       prometheus.Counter
}

// New creates and registers all collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		notificationsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_created_total",
				Help: "Total number of notifications created, by type",
			},
			[]string{"type"},
		),
		fanoutFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "notification_fanout_failures_total",
				Help: "Total number of notifications that could not be written",
			},
		),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.notificationsCreated,
		m.fanoutFailures,
		prometheus.NewGoCollector(),
	)

	return m
}

// NotificationCreated counts one delivered notification.
func (m *Metrics) NotificationCreated(t entities.NotificationType) {
	if m == nil {
		return
	}
	m.notificationsCreated.WithLabelValues(string(t)).Inc()
}

// FanoutFailed counts one notification that was dropped.
func (m *Metrics) FanoutFailed() {
	if m == nil {
		return
	}
	m.fanoutFailures.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
