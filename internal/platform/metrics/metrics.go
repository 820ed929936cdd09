package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the conference
// orchestrator.
type Metrics struct {
	registry                *prometheus.Registry
	requestsTotal           prometheus.Counter
	conferencesCreatedTotal prometheus.Counter
	adHocConferencesTotal   prometheus.Counter
	conferencesEndedTotal   prometheus.Counter
	broadcastsCreatedTotal  prometheus.Counter
	broadcastsRemovedTotal  prometheus.Counter
	activeConferences       prometheus.Gauge
	activeBroadcasts        prometheus.Gauge
	errorsTotal             prometheus.Counter
}

// New creates and registers Prometheus metrics for the orchestrator.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conf_requests_total",
			Help: "Total number of HTTP admin requests received",
		}),
		conferencesCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conf_conferences_created_total",
			Help: "Total number of conferences created",
		}),
		adHocConferencesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conf_adhoc_conferences_created_total",
			Help: "Total number of conferences auto-provisioned from a template",
		}),
		conferencesEndedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conf_conferences_ended_total",
			Help: "Total number of conferences destroyed",
		}),
		broadcastsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conf_broadcasts_created_total",
			Help: "Total number of broadcast sessions created",
		}),
		broadcastsRemovedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conf_broadcasts_removed_total",
			Help: "Total number of broadcast sessions removed",
		}),
		activeConferences: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "conf_active_conferences",
			Help: "Number of active conferences",
		}),
		activeBroadcasts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "conf_active_broadcasts",
			Help: "Number of registered broadcast sessions",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conf_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.conferencesCreatedTotal,
		m.adHocConferencesTotal,
		m.conferencesEndedTotal,
		m.broadcastsCreatedTotal,
		m.broadcastsRemovedTotal,
		m.activeConferences,
		m.activeBroadcasts,
		m.errorsTotal,
	)

	return m
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncConferencesCreated increments the conferences created counter.
func (m *Metrics) IncConferencesCreated() {
	m.conferencesCreatedTotal.Inc()
}

// IncAdHocConferences increments the ad-hoc conferences counter.
func (m *Metrics) IncAdHocConferences() {
	m.adHocConferencesTotal.Inc()
}

// IncConferencesEnded increments the conferences destroyed counter.
func (m *Metrics) IncConferencesEnded() {
	m.conferencesEndedTotal.Inc()
}

// IncBroadcastsCreated increments the broadcasts created counter.
func (m *Metrics) IncBroadcastsCreated() {
	m.broadcastsCreatedTotal.Inc()
}

// IncBroadcastsRemoved increments the broadcasts removed counter.
func (m *Metrics) IncBroadcastsRemoved() {
	m.broadcastsRemovedTotal.Inc()
}

// SetActiveConferences sets the active conferences gauge.
func (m *Metrics) SetActiveConferences(n int) {
	m.activeConferences.Set(float64(n))
}

// SetActiveBroadcasts sets the registered broadcasts gauge.
func (m *Metrics) SetActiveBroadcasts(n int) {
	m.activeBroadcasts.Set(float64(n))
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
