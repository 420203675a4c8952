// Package metrics exposes Prometheus instrumentation for the search service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. Everything is registered on a
// private registry so multiple instances never collide.
type Metrics struct {
	registry *prometheus.Registry

	searchRequests    *prometheus.CounterVec
	searchDuration    prometheus.Histogram
	documentsIngested prometheus.Counter
}

// New creates a Metrics instance with the Go runtime and process collectors
// registered alongside the service metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		searchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revsearch_search_requests_total",
			Help: "Total number of search requests by HTTP status code.",
		}, []string{"status"}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "revsearch_search_duration_seconds",
			Help:    "Search request latency in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		documentsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "revsearch_documents_ingested_total",
			Help: "Total number of documents written to the vector index.",
		}),
	}

	registry.MustRegister(m.searchRequests, m.searchDuration, m.documentsIngested)
	return m
}

// ObserveSearch records one search request with its status code and latency.
func (m *Metrics) ObserveSearch(status string, duration time.Duration) {
	m.searchRequests.WithLabelValues(status).Inc()
	m.searchDuration.Observe(duration.Seconds())
}

// AddDocumentsIngested adds to the ingested documents counter.
func (m *Metrics) AddDocumentsIngested(n int) {
	m.documentsIngested.Add(float64(n))
}

// Handler returns the HTTP handler serving the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
