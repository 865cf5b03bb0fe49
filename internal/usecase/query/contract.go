package query

import (
	"context"

	"github.com/kailas-cloud/fusedex/internal/domain"
	"github.com/kailas-cloud/fusedex/internal/domain/search/hit"
)

// SparseSearcher is the lexical branch contract. In-memory, infallible.
type SparseSearcher interface {
	Search(query string, topK int) []hit.Ranked
}

// DenseSearcher is the vector branch contract.
type DenseSearcher interface {
	Search(ctx context.Context, vector []float32, topK int) ([]hit.Ranked, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
