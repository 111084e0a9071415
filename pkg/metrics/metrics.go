// Package metrics defines the Prometheus collectors used by the weighting
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
	FitDuration          prometheus.Histogram
	FitCorpusSize        prometheus.Histogram
	DocsNormalizedTotal  prometheus.Counter
	ZeroVectorDocsTotal  prometheus.Counter
	TransformDuration    *prometheus.HistogramVec
	SweepRunsTotal       *prometheus.CounterVec
	SweepCandidates      prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	StreamConsumedTotal  prometheus.Counter
	StreamPublishedTotal prometheus.Counter
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
		FitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fit_duration_seconds",
				Help:    "Time spent fitting IDF statistics on a training corpus.",
				Buckets: prometheus.DefBuckets,
			},
		),
		FitCorpusSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fit_corpus_documents",
				Help:    "Training corpus size per fit, in documents.",
				Buckets: prometheus.ExponentialBuckets(10, 4, 8),
			},
		),
		DocsNormalizedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "documents_normalized_total",
				Help: "Total documents run through the pivoted normalizer.",
			},
		),
		ZeroVectorDocsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "zero_vector_documents_total",
				Help: "Documents that normalized to the all-zero vector (no recognized terms).",
			},
		),
		TransformDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "transform_duration_seconds",
				Help:    "Corpus transform latency in seconds by source (api, stream).",
				Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"source"},
		),
		SweepRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sweep_runs_total",
				Help: "Slope-sweep runs by outcome (ok, error).",
			},
			[]string{"outcome"},
		),
		SweepCandidates: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sweep_candidate_slopes",
				Help:    "Candidate slopes evaluated per sweep run.",
				Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "transform_cache_hits_total",
				Help: "Transform-result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "transform_cache_misses_total",
				Help: "Transform-result cache misses.",
			},
		),
		StreamConsumedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "stream_documents_consumed_total",
				Help: "Count vectors consumed from the input topic.",
			},
		),
		StreamPublishedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "stream_documents_published_total",
				Help: "Normalized vectors published to the output topic.",
			},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.FitDuration,
		m.FitCorpusSize,
		m.DocsNormalizedTotal,
		m.ZeroVectorDocsTotal,
		m.TransformDuration,
		m.SweepRunsTotal,
		m.SweepCandidates,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.StreamConsumedTotal,
		m.StreamPublishedTotal,
	)
	return m
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
