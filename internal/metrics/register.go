// Package metrics defines the engine's Prometheus instruments.
// Registration is explicit so library consumers control the registry.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Register registers all engine metrics with the given registerer.
// Safe to call more than once with the same registry.
func Register(r prometheus.Registerer) {
	collectors := []prometheus.Collector{
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingTokensTotal,
		EmbeddingErrorsTotal,
		EmbeddingBudgetTokensRemaining,
		EmbeddingCacheTotal,
		QueriesTotal,
		QueryDuration,
		IngestChunksTotal,
		IndexedChunks,
	}
	for _, c := range collectors {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			panic(err)
		}
	}
}
