// ABOUTME: Prometheus instruments for the router loop on a per-gateway registry.
// ABOUTME: Message and error counters, turn latency, registry and session gauges.

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pacman_gateway"

// Metrics holds the router's instruments.
type Metrics struct {
	registry *prometheus.Registry

	// messages counts handled requests by type tag.
	messages *prometheus.CounterVec

	// errors counts failed requests by error code.
	errors *prometheus.CounterVec

	// turnDuration measures STATE handling, decision unit included.
	turnDuration prometheus.Histogram

	registeredAgents prometheus.Gauge
	activeSessions   prometheus.Gauge
}

// New creates instruments on a fresh registry that also carries the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "messages_total",
			Help:      "Requests handled by the router, by message type",
		}, []string{"type"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "errors_total",
			Help:      "Requests answered with an error reply, by error code",
		}, []string{"code"}),
		turnDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "turn_duration_seconds",
			Help:      "Time to handle a STATE request including the decision unit",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		registeredAgents: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registered_agents",
			Help:      "Agents currently known to the registry",
		}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Agents with an active game session",
		}),
	}
}

// ObserveMessage counts one handled request.
func (m *Metrics) ObserveMessage(msgType string) {
	m.messages.WithLabelValues(msgType).Inc()
}

// ObserveError counts one error reply.
func (m *Metrics) ObserveError(code string) {
	m.errors.WithLabelValues(code).Inc()
}

// ObserveTurn records how long a turn took.
func (m *Metrics) ObserveTurn(d time.Duration) {
	m.turnDuration.Observe(d.Seconds())
}

// SetRegistered updates the registered agents gauge.
func (m *Metrics) SetRegistered(n int) {
	m.registeredAgents.Set(float64(n))
}

// SetSessions updates the active sessions gauge.
func (m *Metrics) SetSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
