package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	httpDuration *prometheus.HistogramVec
	transitions  *prometheus.CounterVec
	events       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_transitions_total",
				Help: "Stock ledger operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_events_total",
				Help: "Ledger events by delivery outcome",
			},
			[]string{"outcome"},
		),
	}

	m.registry.MustRegister(
		m.httpDuration,
		m.transitions,
		m.events,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *Metrics) LedgerTransition(operation, outcome string) {
	m.transitions.WithLabelValues(operation, outcome).Inc()
}

// EventDelivered counts one event as "published", "failed" or "dropped".
func (m *Metrics) EventDelivered(outcome string) {
	m.events.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
