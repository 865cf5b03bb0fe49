package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval and ingestion Prometheus metrics.
var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fusedex",
			Name:      "queries_total",
			Help:      "Total number of retrieval queries",
		},
		[]string{"mode", "outcome"}, // outcome: fused / sparse_only / dense_only / error
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fusedex",
			Name:      "query_duration_seconds",
			Help:      "Retrieval query duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"mode"},
	)

	IngestChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fusedex",
			Name:      "ingest_chunks_total",
			Help:      "Total chunks processed by ingestion",
		},
		[]string{"status"}, // "ok" / "error"
	)

	IndexedChunks = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fusedex",
			Name:      "indexed_chunks",
			Help:      "Chunks currently held by each index",
		},
		[]string{"index"}, // "sparse" / "dense"
	)
)
