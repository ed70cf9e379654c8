package http

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors for the service. Collectors are
// registered against an injected registerer so tests can use a private
// registry instead of the process-global one.
type Metrics struct {
	RequestsTotal         *prometheus.CounterVec
	RequestDuration       *prometheus.HistogramVec
	ResolutionsTotal      *prometheus.CounterVec
	SyncRunsTotal         *prometheus.CounterVec
	TrendingSize          prometheus.Gauge
	ImportsThrottledTotal prometheus.Counter

	gatherer prometheus.Gatherer
}

func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "melodex_requests_total",
				Help: "Total number of handled HTTP requests",
			},
			[]string{"route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "melodex_request_duration_seconds",
				Help:    "Time spent handling HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "melodex_resolutions_total",
				Help: "Total number of title hint resolutions",
			},
			[]string{"outcome"},
		),
		SyncRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "melodex_sync_runs_total",
				Help: "Total number of trending synchronization runs",
			},
			[]string{"status"},
		),
		TrendingSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "melodex_trending_size",
				Help: "Number of tracks in the current trending snapshot",
			},
		),
		ImportsThrottledTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "melodex_imports_throttled_total",
				Help: "Total number of bulk imports rejected by the flood gate",
			},
		),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ResolutionsTotal,
		m.SyncRunsTotal,
		m.TrendingSize,
		m.ImportsThrottledTotal,
	)

	return m
}

func (m *Metrics) RecordRequest(route, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(route, status).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (m *Metrics) RecordResolution(outcome string) {
	m.ResolutionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordSyncRun(status string, size int) {
	m.SyncRunsTotal.WithLabelValues(status).Inc()
	if status == "ok" {
		m.TrendingSize.Set(float64(size))
	}
}

func (m *Metrics) RecordThrottledImport() {
	m.ImportsThrottledTotal.Inc()
}
