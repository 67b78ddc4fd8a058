// Package metrics defines the Prometheus metric collectors used across the
// lexicon service and serves them for scraping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal      *prometheus.CounterVec
	HTTPRequestDuration    *prometheus.HistogramVec
	HTTPRequestsInFlight   prometheus.Gauge
	DiscoverRequestsTotal  *prometheus.CounterVec
	DiscoverLatency        *prometheus.HistogramVec
	DiscoverMatches        *prometheus.HistogramVec
	StrategyFailuresTotal  *prometheus.CounterVec
	SwapRetriesTotal       prometheus.Counter
	CacheHitsTotal         prometheus.Counter
	CacheMissesTotal       prometheus.Counter
	ScansTotal             *prometheus.CounterVec
	ScanOccurrences        prometheus.Histogram
	SegmentsExtracted      prometheus.Histogram
	RootsIndexedTotal      *prometheus.CounterVec
	PositionsDroppedTotal  prometheus.Counter
	LookupEventsTotal      *prometheus.CounterVec
	CircuitBreakerState    *prometheus.GaugeVec
	RateLimitRejectedTotal prometheus.Counter
}

// New creates all collectors and registers them with reg. A nil reg uses
// the default Prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
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
		DiscoverRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexicon_discover_requests_total",
				Help: "Discovery requests by outcome (found, not_found, cached).",
			},
			[]string{"outcome"},
		),
		DiscoverLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lexicon_discover_latency_seconds",
				Help:    "Discovery latency in seconds by strategy.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"strategy"},
		),
		DiscoverMatches: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lexicon_discover_matches",
				Help:    "Matches returned per discovery request by strategy.",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
			},
			[]string{"strategy"},
		),
		StrategyFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexicon_strategy_failures_total",
				Help: "Discovery strategies that failed and were returned empty.",
			},
			[]string{"strategy"},
		),
		SwapRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lexicon_swap_retries_total",
				Help: "Root lookups resolved only after swapping dictionary and root arguments.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lexicon_cache_hits_total",
				Help: "Total number of discovery cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lexicon_cache_misses_total",
				Help: "Total number of discovery cache misses.",
			},
		),
		ScansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexicon_scans_total",
				Help: "Highlight scans by mode.",
			},
			[]string{"mode"},
		),
		ScanOccurrences: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lexicon_scan_occurrences",
				Help:    "Occurrences found per highlight scan.",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
			},
		),
		SegmentsExtracted: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lexicon_segments_extracted",
				Help:    "Segments returned per definition request.",
				Buckets: []float64{0, 1, 2, 3, 4, 5},
			},
		),
		RootsIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexicon_roots_indexed_total",
				Help: "Roots processed by the index builder by status.",
			},
			[]string{"status"},
		),
		PositionsDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lexicon_positions_dropped_total",
				Help: "Stored word positions dropped because they did not reproduce the word.",
			},
		),
		LookupEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexicon_lookup_events_total",
				Help: "Lookup analytics events by delivery status.",
			},
			[]string{"status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		RateLimitRejectedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lexicon_rate_limit_rejected_total",
				Help: "Requests rejected by the per-client rate limiter.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.DiscoverRequestsTotal,
		m.DiscoverLatency,
		m.DiscoverMatches,
		m.StrategyFailuresTotal,
		m.SwapRetriesTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.ScansTotal,
		m.ScanOccurrences,
		m.SegmentsExtracted,
		m.RootsIndexedTotal,
		m.PositionsDroppedTotal,
		m.LookupEventsTotal,
		m.CircuitBreakerState,
		m.RateLimitRejectedTotal,
	)

	return m
}

// NewUnregistered creates collectors on a private registry, for tests and
// one-shot CLI commands.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
