// Package metrics exposes Prometheus collectors for ingestion and queries.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	rowsTotal       *prometheus.CounterVec
	referencesTotal *prometheus.CounterVec
	importDuration  *prometheus.HistogramVec
	queryTotal      *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		rowsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "publicworks",
			Subsystem: "ingest",
			Name:      "rows_total",
			Help:      "Rows processed per file kind and result (created, updated, rejected).",
		}, []string{"kind", "result"}),
		referencesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "publicworks",
			Subsystem: "catalog",
			Name:      "references_total",
			Help:      "Reference changes per domain and action (created, updated, merged, deleted).",
		}, []string{"domain", "action"}),
		importDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "publicworks",
			Subsystem: "ingest",
			Name:      "file_duration_seconds",
			Help:      "Wall time to import one source file.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"kind"}),
		queryTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "publicworks",
			Subsystem: "query",
			Name:      "aggregations_total",
			Help:      "Aggregation queries per dataset and result.",
		}, []string{"dataset", "result"}),
		queryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "publicworks",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Latency of aggregation queries.",
			Buckets: []float64{
				0.001, 0.005, 0.01, 0.05,
				0.1, 0.5, 1, 5,
			},
		}, []string{"dataset"}),
	}
})

func get() *metrics { return metricsSingleton() }

// RowProcessed counts one ingested row.
func RowProcessed(kind, result string) {
	get().rowsTotal.WithLabelValues(kind, result).Inc()
}

// ReferenceChanged counts a catalog mutation.
func ReferenceChanged(domain, action string) {
	get().referencesTotal.WithLabelValues(domain, action).Inc()
}

// ImportFinished records how long a file import took.
func ImportFinished(kind string, took time.Duration) {
	get().importDuration.WithLabelValues(kind).Observe(took.Seconds())
}

// QueryFinished records an aggregation query outcome.
func QueryFinished(dataset string, took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m := get()
	m.queryTotal.WithLabelValues(dataset, result).Inc()
	m.queryDuration.WithLabelValues(dataset).Observe(took.Seconds())
}

// Handler serves the default registry in the exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
