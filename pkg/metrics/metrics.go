// Package metrics defines the Prometheus metric collectors used across the
// platform and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	ScanQueriesTotal     *prometheus.CounterVec
	ScanLatency          *prometheus.HistogramVec
	ScanMatchesCount     prometheus.Histogram
	ScanPatternLength    prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	TextsIngestedTotal   prometheus.Counter
	SnapshotsTotal       *prometheus.CounterVec
	PartitionTextCount   *prometheus.GaugeVec
	ActivePartitions     prometheus.Gauge
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		ScanQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scan_queries_total",
				Help: "Total scan queries by mode (exists, first, all) and result type (hit, zero_match, error).",
			},
			[]string{"mode", "result_type"},
		),
		ScanLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scan_latency_seconds",
				Help:    "Scan query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		ScanMatchesCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scan_matches_count",
				Help:    "Number of window matches found per scan query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500, 1000},
			},
		),
		ScanPatternLength: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scan_pattern_length",
				Help:    "Length of scanned patterns in symbols.",
				Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses.",
			},
		),
		TextsIngestedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "texts_ingested_total",
				Help: "Total texts added to the corpus.",
			},
		),
		SnapshotsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corpus_snapshots_total",
				Help: "Total corpus snapshot operations by status.",
			},
			[]string{"status"},
		),
		PartitionTextCount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "partition_text_count",
				Help: "Number of texts per corpus partition.",
			},
			[]string{"partition_id"},
		),
		ActivePartitions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "active_partitions",
				Help: "Number of active corpus partitions.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.ScanQueriesTotal,
		m.ScanLatency,
		m.ScanMatchesCount,
		m.ScanPatternLength,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.TextsIngestedTotal,
		m.SnapshotsTotal,
		m.PartitionTextCount,
		m.ActivePartitions,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
