// Package metrics provides Prometheus metrics for planboard.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	MutationsTotal  *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CollectionSize  *prometheus.GaugeVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		MutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planboard_mutations_total",
				Help: "Total successful state mutations by entity and operation.",
			},
			[]string{"entity", "op"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planboard_errors_total",
				Help: "Total errors by module and type.",
			},
			[]string{"module", "type"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "planboard_http_request_duration_seconds",
				Help:    "HTTP request duration by method and route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		CollectionSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "planboard_collection_records",
				Help: "Current number of records per persisted collection.",
			},
			[]string{"kind"},
		),
		registry: reg,
	}

	reg.MustRegister(m.MutationsTotal)
	reg.MustRegister(m.ErrorsTotal)
	reg.MustRegister(m.RequestDuration)
	reg.MustRegister(m.CollectionSize)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordMutation increments the mutation counter.
func (m *Metrics) RecordMutation(entity, op string) {
	m.MutationsTotal.WithLabelValues(entity, op).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(module, errType string) {
	m.ErrorsTotal.WithLabelValues(module, errType).Inc()
}

// ObserveRequest records an HTTP request duration.
func (m *Metrics) ObserveRequest(method, route string, seconds float64) {
	m.RequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// SetCollectionSize sets the record count gauge for a collection.
func (m *Metrics) SetCollectionSize(kind string, n int) {
	m.CollectionSize.WithLabelValues(kind).Set(float64(n))
}
