// Package metrics defines the Prometheus metric collectors used across the
// toolkit and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the toolkit.
type Metrics struct {
	RecordsInTotal      *prometheus.CounterVec
	RecordsOutTotal     *prometheus.CounterVec
	RecordsSkippedTotal *prometheus.CounterVec
	GroupsFlushedTotal  *prometheus.CounterVec
	PairsEmittedTotal   prometheus.Counter
	DocsFedTotal        prometheus.Counter
	SimilarityRowsTotal prometheus.Counter
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		RecordsInTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_records_in_total",
				Help: "Input records read by each pipeline stage.",
			},
			[]string{"stage"},
		),
		RecordsOutTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_records_out_total",
				Help: "Output records written by each pipeline stage.",
			},
			[]string{"stage"},
		),
		RecordsSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_records_skipped_total",
				Help: "Records skipped by each stage, by reason (malformed, empty_document).",
			},
			[]string{"stage", "reason"},
		),
		GroupsFlushedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_groups_flushed_total",
				Help: "Key groups flushed by the reduce-type stages.",
			},
			[]string{"stage"},
		),
		PairsEmittedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pipeline_pairs_emitted_total",
				Help: "Document-pair contributions emitted by the pairwise mapper.",
			},
		),
		DocsFedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docfeed_documents_total",
				Help: "Documents bridged from Kafka into the pipeline input stream.",
			},
		),
		SimilarityRowsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "simloader_rows_total",
				Help: "Similarity rows loaded into PostgreSQL.",
			},
		),
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
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of similarity cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of similarity cache misses.",
			},
		),
	}

	prometheus.MustRegister(
		m.RecordsInTotal,
		m.RecordsOutTotal,
		m.RecordsSkippedTotal,
		m.GroupsFlushedTotal,
		m.PairsEmittedTotal,
		m.DocsFedTotal,
		m.SimilarityRowsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
