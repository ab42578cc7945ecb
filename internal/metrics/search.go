package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and ingestion Prometheus metrics.
var (
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "poisearch",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"sort_by", "outcome"}, // outcome: ok / degraded / error
	)

	SearchBranchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "poisearch",
			Name:      "search_branch_duration_seconds",
			Help:      "Duration of a single search engine branch in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"engine"},
	)

	SearchDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "poisearch",
			Name:      "search_degraded_total",
			Help:      "Searches answered without the semantic signal",
		},
		[]string{"reason"}, // timeout / embedder / canceled / index
	)

	IngestItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "poisearch",
			Name:      "ingest_items_total",
			Help:      "Ingested place records by outcome",
		},
		[]string{"status"}, // ok / error
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search and ingestion metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchBranchDuration)
	prometheus.MustRegister(SearchDegradedTotal)
	prometheus.MustRegister(IngestItemsTotal)
	searchMetricsRegistered = true
}
