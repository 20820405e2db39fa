// Package metrics defines the Prometheus collectors used by SmartRead and
// exposes an HTTP handler for scraping.
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
	RecommendationsTotal *prometheus.CounterVec
	RecommendLatency     *prometheus.HistogramVec
	RecommendResults     *prometheus.HistogramVec
	CorpusDocuments      prometheus.Gauge
	CorpusReloadsTotal   prometheus.Counter
	CorpusSkippedFiles   prometheus.Gauge
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	TranslationsTotal    *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates the collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors with reg, which lets tests use a
// private registry.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartread_http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "smartread_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "smartread_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		RecommendationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartread_recommendations_total",
				Help: "Recommendation requests by mode and outcome (ok, no_matches, no_signal, no_data, invalid, error).",
			},
			[]string{"mode", "outcome"},
		),
		RecommendLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "smartread_recommend_latency_seconds",
				Help:    "Recommendation latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"mode", "cache_status"},
		),
		RecommendResults: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "smartread_recommend_results",
				Help:    "Number of passages returned per recommendation.",
				Buckets: []float64{0, 1, 3, 5, 10, 25, 50},
			},
			[]string{"mode"},
		),
		CorpusDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "smartread_corpus_documents",
				Help: "Passages in the currently loaded corpus.",
			},
		),
		CorpusReloadsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "smartread_corpus_reloads_total",
				Help: "Total corpus loads, including the first.",
			},
		),
		CorpusSkippedFiles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "smartread_corpus_skipped_files",
				Help: "Files skipped during the most recent corpus load.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "smartread_cache_hits_total",
				Help: "Total result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "smartread_cache_misses_total",
				Help: "Total result cache misses.",
			},
		),
		TranslationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartread_translations_total",
				Help: "Translation requests by source (lru, redis, remote) and outcome.",
			},
			[]string{"source", "outcome"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "smartread_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.RecommendationsTotal,
		m.RecommendLatency,
		m.RecommendResults,
		m.CorpusDocuments,
		m.CorpusReloadsTotal,
		m.CorpusSkippedFiles,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.TranslationsTotal,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
