package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the plugin's collectors. It uses its own registry so the
// plugin can be reactivated in the same process without duplicate registration.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	gatewayRequests   *prometheus.CounterVec
	gatewayDurationMs *prometheus.HistogramVec
	pollsTotal        *prometheus.CounterVec
	pollsSkipped      *prometheus.CounterVec
	staleCompletions  *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	smsFallbacks      prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		gatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crimewatch_gateway_requests_total",
			Help: "Backend requests by operation and outcome (ok or error kind)",
		}, []string{"operation", "outcome"}),
		gatewayDurationMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crimewatch_gateway_request_duration_ms",
			Help:    "Backend request duration in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"operation"}),
		pollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crimewatch_alert_polls_total",
			Help: "Completed alert polls by watch and outcome",
		}, []string{"watch", "outcome"}),
		pollsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crimewatch_alert_polls_skipped_total",
			Help: "Scheduled polls skipped because a previous poll was still in flight",
		}, []string{"watch"}),
		staleCompletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crimewatch_alert_stale_completions_total",
			Help: "Poll completions discarded because a newer poll already applied",
		}, []string{"watch"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crimewatch_alert_notifications_total",
			Help: "Alert notifications raised by watch",
		}, []string{"watch"}),
		smsFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crimewatch_sms_fallbacks_total",
			Help: "SMS analyses answered with the safe default",
		}),
	}

	m.registry.MustRegister(
		m.gatewayRequests,
		m.gatewayDurationMs,
		m.pollsTotal,
		m.pollsSkipped,
		m.staleCompletions,
		m.notifications,
		m.smsFallbacks,
	)

	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry (useful in tests).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveGatewayRequest(operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.gatewayRequests.WithLabelValues(operation, outcome).Inc()
	m.gatewayDurationMs.WithLabelValues(operation).Observe(float64(d.Milliseconds()))
}

func (m *Metrics) IncPoll(watch, outcome string) {
	if m == nil {
		return
	}
	m.pollsTotal.WithLabelValues(watch, outcome).Inc()
}

func (m *Metrics) IncPollSkipped(watch string) {
	if m == nil {
		return
	}
	m.pollsSkipped.WithLabelValues(watch).Inc()
}

func (m *Metrics) IncStaleCompletion(watch string) {
	if m == nil {
		return
	}
	m.staleCompletions.WithLabelValues(watch).Inc()
}

func (m *Metrics) IncNotification(watch string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(watch).Inc()
}

func (m *Metrics) IncSMSFallback() {
	if m == nil {
		return
	}
	m.smsFallbacks.Inc()
}
