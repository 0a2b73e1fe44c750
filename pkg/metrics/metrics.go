// Package metrics defines the Prometheus metric collectors used across the
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	UploadsTotal         *prometheus.CounterVec
	ExtractionDuration   *prometheus.HistogramVec
	DocumentsStored      prometheus.Gauge
	DocumentChars        prometheus.Histogram
	AnalysesTotal        prometheus.Counter
	SearchesTotal        *prometheus.CounterVec
	SearchLatency        prometheus.Histogram
	SearchHitsCount      prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
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
				Help:    "HTTP request latency by method and path.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being served.",
			},
		),
		UploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "document_uploads_total",
				Help: "Total document uploads by format and outcome.",
			},
			[]string{"format", "outcome"},
		),
		ExtractionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "text_extraction_duration_seconds",
				Help:    "Text extraction latency by document format.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
			[]string{"format"},
		),
		DocumentsStored: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "documents_stored",
				Help: "Number of documents currently in the store.",
			},
		),
		DocumentChars: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "document_chars",
				Help:    "Stored document length in runes.",
				Buckets: prometheus.ExponentialBuckets(1000, 4, 8),
			},
		),
		AnalysesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "analyses_total",
				Help: "Total lexical analyses performed.",
			},
		),
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "searches_total",
				Help: "Total substring searches by outcome.",
			},
			[]string{"outcome"},
		),
		SearchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_duration_seconds",
				Help:    "Substring search latency.",
				Buckets: prometheus.DefBuckets,
			},
		),
		SearchHitsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_hits",
				Help:    "Number of matching chunks per search.",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "search_cache_hits_total",
				Help: "Total search cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "search_cache_misses_total",
				Help: "Total search cache misses.",
			},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.UploadsTotal,
		m.ExtractionDuration,
		m.DocumentsStored,
		m.DocumentChars,
		m.AnalysesTotal,
		m.SearchesTotal,
		m.SearchLatency,
		m.SearchHitsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)
	return m
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
