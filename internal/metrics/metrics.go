// Package metrics exposes the dashboard's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/siddheshvrane/solar-dashboard/internal/models"
)

const namespace = "solar_dashboard"

// Fetch results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics groups every collector. A nil *Metrics is valid and records
// nothing, so components can run without instrumentation.
type Metrics struct {
	fetches   *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	records   *prometheus.GaugeVec
	malformed *prometheus.CounterVec
	stale     *prometheus.CounterVec
	wsClients prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Document store fetches by source and result.",
		}, []string{"source", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Latency of a full collection fetch.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"source"}),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records",
			Help:      "Records held for each source after the last accepted fetch.",
		}, []string{"source"}),
		malformed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_records_total",
			Help:      "Documents skipped because they could not be parsed.",
		}, []string{"source"}),
		stale: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_results_total",
			Help:      "Fetch results discarded because a newer result was already cached.",
		}, []string{"source"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "Connected websocket clients.",
		}),
	}
	reg.MustRegister(m.fetches, m.duration, m.records, m.malformed, m.stale, m.wsClients)
	return m
}

func (m *Metrics) ObserveFetch(src models.Source, result string, seconds float64) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(string(src), result).Inc()
	m.duration.WithLabelValues(string(src)).Observe(seconds)
}

func (m *Metrics) SetRecords(src models.Source, n int) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(string(src)).Set(float64(n))
}

func (m *Metrics) IncMalformed(src models.Source) {
	if m == nil {
		return
	}
	m.malformed.WithLabelValues(string(src)).Inc()
}

func (m *Metrics) IncStale(src models.Source) {
	if m == nil {
		return
	}
	m.stale.WithLabelValues(string(src)).Inc()
}

func (m *Metrics) SetWSClients(n int) {
	if m == nil {
		return
	}
	m.wsClients.Set(float64(n))
}
