package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequestDuration  *prometheus.HistogramVec
	AuthAttempts         *prometheus.CounterVec
	SessionRefreshes     *prometheus.CounterVec
	SessionEvents        *prometheus.CounterVec
	RedirectDecisions    *prometheus.CounterVec
	PricingFetchDuration *prometheus.HistogramVec
	LiveProviders        prometheus.Gauge
	AuditDropped         prometheus.Counter
}

// New creates and registers all metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pointer_http_request_duration_seconds",
			Help:    "Latency of HTTP requests by route pattern",
			Buckets: latencyBuckets,
		}, []string{"route", "method", "status"}),
		AuthAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pointer_auth_attempts_total",
			Help: "Identity operations by action and outcome",
		}, []string{"action", "outcome"}),
		SessionRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pointer_session_refreshes_total",
			Help: "Session store refreshes by outcome",
		}, []string{"outcome"}),
		SessionEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pointer_session_events_total",
			Help: "Auth state change events applied to session stores",
		}, []string{"event"}),
		RedirectDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pointer_redirect_decisions_total",
			Help: "Redirect decisions by path taken",
		}, []string{"outcome"}),
		PricingFetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pointer_pricing_fetch_duration_seconds",
			Help:    "Duration of pricing plan reads from the backing store",
			Buckets: latencyBuckets,
		}, []string{"source", "outcome"}),
		LiveProviders: f.NewGauge(prometheus.GaugeOpts{
			Name: "pointer_session_providers_live",
			Help: "Mounted per-browser session providers",
		}),
		AuditDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "pointer_audit_events_dropped_total",
			Help: "Audit events dropped because the buffer was full",
		}),
	}
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, method, status string, start time.Time) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(route, method, status).Observe(time.Since(start).Seconds())
}

// IncAuthAttempt counts an identity operation by audit action and outcome.
func (m *Metrics) IncAuthAttempt(action, outcome string) {
	if m == nil {
		return
	}
	m.AuthAttempts.WithLabelValues(action, outcome).Inc()
}

// IncSessionRefresh counts a store refresh (session, empty, error).
func (m *Metrics) IncSessionRefresh(outcome string) {
	if m == nil {
		return
	}
	m.SessionRefreshes.WithLabelValues(outcome).Inc()
}

// IncSessionEvent counts a pushed auth event.
func (m *Metrics) IncSessionEvent(event string) {
	if m == nil {
		return
	}
	m.SessionEvents.WithLabelValues(event).Inc()
}

// IncRedirectDecision counts a redirect decision (cached, refreshed, anonymous).
func (m *Metrics) IncRedirectDecision(outcome string) {
	if m == nil {
		return
	}
	m.RedirectDecisions.WithLabelValues(outcome).Inc()
}

// ObservePricingFetch records a pricing read.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObservePricingFetch(source, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.PricingFetchDuration.WithLabelValues(source, outcome).Observe(time.Since(start).Seconds())
}

// ProviderMounted and ProviderUnmounted track the live provider gauge.
func (m *Metrics) ProviderMounted() {
	if m == nil {
		return
	}
	m.LiveProviders.Inc()
}

func (m *Metrics) ProviderUnmounted() {
	if m == nil {
		return
	}
	m.LiveProviders.Dec()
}

// IncAuditDropped counts an audit event that could not be buffered.
func (m *Metrics) IncAuditDropped() {
	if m == nil {
		return
	}
	m.AuditDropped.Inc()
}
