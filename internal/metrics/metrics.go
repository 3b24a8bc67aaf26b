// Package metrics exposes deployhook counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deploy results.
const (
	DeploySucceeded = "succeeded"
	DeployFailed    = "failed"
	DeployDropped   = "dropped"
)

// Metrics holds the service's collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry          *prometheus.Registry
	webhookEvents     *prometheus.CounterVec
	deploys           *prometheus.CounterVec
	dashboardFailures *prometheus.CounterVec
}

// New creates a registry with the service counters and the Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deployhook",
			Name:      "webhook_events_total",
			Help:      "GitHub webhook deliveries by event type.",
		}, []string{"event"}),
		deploys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deployhook",
			Name:      "deploys_total",
			Help:      "Deployments by result.",
		}, []string{"result"}),
		dashboardFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deployhook",
			Name:      "dashboard_failures_total",
			Help:      "Failed dashboard data requests by path.",
		}, []string{"path"}),
	}

	m.registry.MustRegister(
		m.webhookEvents,
		m.deploys,
		m.dashboardFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WebhookEvent counts one webhook delivery.
func (m *Metrics) WebhookEvent(event string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(event).Inc()
}

// Deploy counts one deployment outcome.
func (m *Metrics) Deploy(result string) {
	if m == nil {
		return
	}
	m.deploys.WithLabelValues(result).Inc()
}

// DashboardFailure counts one failed dashboard request.
func (m *Metrics) DashboardFailure(path string) {
	if m == nil {
		return
	}
	m.dashboardFailures.WithLabelValues(path).Inc()
}

// ObserveStreams exports the number of open dashboard update streams.
func (m *Metrics) ObserveStreams(count func() int) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "deployhook",
		Name:      "dashboard_streams",
		Help:      "Open dashboard update streams.",
	}, func() float64 { return float64(count()) }))
}
