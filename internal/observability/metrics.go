// Package observability holds the Prometheus metrics recorded by every load
// and the small HTTP server exposing them while a run is in progress.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "localedb"

// Metrics holds the Prometheus counters, histograms, and gauges for LocaleDB loads.
type Metrics struct {
	LoadRunning  prometheus.Gauge
	Loads        *prometheus.CounterVec   // labels: dataset, outcome={done,failed,already_loaded}
	LoadDuration *prometheus.HistogramVec // labels: dataset

	// Row accounting.
	RowsExtracted *prometheus.CounterVec // labels: dataset
	RowsDropped   *prometheus.CounterVec // labels: dataset
	RowsLoaded    *prometheus.CounterVec // labels: table
	RowsSkipped   *prometheus.CounterVec // labels: table

	// Source downloads.
	FetchRequests *prometheus.CounterVec // labels: outcome={success,retry,error}
	FetchDuration prometheus.Histogram
	FetchBytes    prometheus.Counter

	// Locale resolution.
	ResolverCache *prometheus.CounterVec // labels: method, result={hit,miss}
}

// NewMetrics creates and registers all load metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		LoadRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "load_running",
			Help:      "1 while a dataset load is in progress.",
		}),
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Finished dataset loads by outcome.",
		}, []string{"dataset", "outcome"}),
		LoadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Wall time of one dataset load including vacuum.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}, []string{"dataset"}),
		RowsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_extracted_total",
			Help:      "Source rows parsed.",
		}, []string{"dataset"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Source rows removed by transform rules before resolution.",
		}, []string{"dataset"}),
		RowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Rows written to a target table.",
		}, []string{"table"}),
		RowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Rows not written because their key was already present.",
		}, []string{"table"}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Source download attempts by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of one successful source download.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		FetchBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_bytes_total",
			Help:      "Bytes downloaded from sources.",
		}),
		ResolverCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_cache_total",
			Help:      "Locale resolver cache lookups by method and result.",
		}, []string{"method", "result"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.LoadRunning,
		m.Loads,
		m.LoadDuration,
		m.RowsExtracted,
		m.RowsDropped,
		m.RowsLoaded,
		m.RowsSkipped,
		m.FetchRequests,
		m.FetchDuration,
		m.FetchBytes,
		m.ResolverCache,
	}
}
