package ingest

import (
	"context"

	"github.com/kailas-cloud/fusedex/internal/domain"
	"github.com/kailas-cloud/fusedex/internal/domain/chunk"
)

// SparseIndex is the lexical branch contract for corpus mutation.
type SparseIndex interface {
	Add(c chunk.Chunk) (added bool, err error)
	Remove(ids ...string) int
	Len() int
	Terms() int
	Reset()
}

// DenseIndex is the vector branch contract for corpus mutation.
type DenseIndex interface {
	Ensure(ctx context.Context) error
	Upsert(ctx context.Context, chunks []chunk.Chunk) error
	Delete(ctx context.Context, ids ...string) error
	Count(ctx context.Context) (int, error)
	Drop(ctx context.Context) error
}

// Embedder vectorizes batches of text into embeddings.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
