// Package ingest implements corpus mutation across both indices. Chunks
// enter the sparse index first because its Add is the atomic id-collision
// gate; sparse additions are unwound if the dense write fails, so a failed
// batch leaves both indices as they were.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/fusedex/internal/domain"
	"github.com/kailas-cloud/fusedex/internal/domain/chunk"
	domingest "github.com/kailas-cloud/fusedex/internal/domain/ingest"
	"github.com/kailas-cloud/fusedex/internal/metrics"
)

// Stats is a corpus census across both indices. InSync is the fusion
// precondition: both indices hold the same chunk set.
type Stats struct {
	SparseDocuments int
	SparseTerms     int
	DenseDocuments  int
	InSync          bool
}

// Service handles chunk ingestion, deletion and corpus maintenance.
type Service struct {
	sparse SparseIndex
	dense  DenseIndex
	embed  Embedder
	dim    int
	logger *zap.Logger

	mu      sync.Mutex
	ensured bool
}

// New creates an ingestion service. dim > 0 enables the per-chunk
// dimension check before any index write.
func New(sparse SparseIndex, dense DenseIndex, embed Embedder, dim int, logger *zap.Logger) *Service {
	return &Service{
		sparse: sparse,
		dense:  dense,
		embed:  embed,
		dim:    dim,
		logger: logger,
	}
}

// Ingest validates, embeds and indexes a batch of chunks. Every input item
// gets a per-item outcome in the report, aligned with input order: local
// failures (validation, dimension, id collision) reject the item and the
// batch continues; provider and backend failures mark the remainder.
// The batch is visible in both indices before Ingest returns.
func (s *Service) Ingest(ctx context.Context, items []domingest.Item) (domingest.Report, error) {
	if len(items) == 0 {
		return domingest.Report{}, nil
	}
	start := time.Now()
	results := make([]domingest.Result, len(items))

	valid := make([]chunk.Chunk, 0, len(items))
	validIdx := make([]int, 0, len(items))
	for idx, it := range items {
		c, err := chunk.New(it.ID, it.Text, it.Meta)
		if err != nil {
			results[idx] = domingest.NewError(it.ID, err)
			continue
		}
		valid = append(valid, c)
		validIdx = append(validIdx, idx)
	}

	if len(valid) == 0 {
		return s.finish(results, start), nil
	}

	// One provider round per batch; the embedder splits oversized input
	// and preserves order.
	texts := make([]string, len(valid))
	for i := range valid {
		texts[i] = valid[i].Text()
	}
	embRes, err := s.embed.BatchEmbed(ctx, texts)
	if err == nil && len(embRes.Embeddings) != len(valid) {
		err = fmt.Errorf("%w: %d vectors for %d texts",
			domain.ErrEmbeddingUnavailable, len(embRes.Embeddings), len(valid))
	}
	if err != nil {
		for i, idx := range validIdx {
			results[idx] = domingest.NewError(valid[i].ID(), fmt.Errorf("embed batch: %w", err))
		}
		s.logger.Error("Batch embedding failed, remainder skipped",
			zap.Int("chunks", len(valid)),
			zap.Error(err),
		)
		return s.finish(results, start), nil
	}
	domain.UsageFromContext(ctx).AddTokens(embRes.TotalTokens)

	// Dimension precheck keeps a bad vector out of both indices while the
	// rest of the batch proceeds.
	accepted := make([]chunk.Chunk, 0, len(valid))
	acceptedIdx := make([]int, 0, len(valid))
	for i, c := range valid {
		vec := embRes.Embeddings[i]
		if s.dim > 0 && len(vec) != s.dim {
			results[validIdx[i]] = domingest.NewError(c.ID(), domain.NewDimensionMismatch(s.dim, len(vec)))
			continue
		}
		accepted = append(accepted, c.WithEmbedding(vec))
		acceptedIdx = append(acceptedIdx, validIdx[i])
	}

	// Sparse first: Add is the collision gate. Only ids new to the index
	// are unwound on a dense failure; chunks that predate the batch stay.
	indexed := make([]chunk.Chunk, 0, len(accepted))
	indexedIdx := make([]int, 0, len(accepted))
	var unwind []string
	for i, c := range accepted {
		added, addErr := s.sparse.Add(c)
		if addErr != nil {
			results[acceptedIdx[i]] = domingest.NewError(c.ID(), addErr)
			continue
		}
		if added {
			unwind = append(unwind, c.ID())
		}
		indexed = append(indexed, c)
		indexedIdx = append(indexedIdx, acceptedIdx[i])
	}

	if len(indexed) > 0 {
		upsertErr := s.ensureDense(ctx)
		if upsertErr == nil {
			upsertErr = s.dense.Upsert(ctx, indexed)
		}
		if upsertErr != nil {
			s.sparse.Remove(unwind...)
			for i := range indexed {
				results[indexedIdx[i]] = domingest.NewError(indexed[i].ID(), fmt.Errorf("dense upsert: %w", upsertErr))
			}
			s.logger.Error("Dense upsert failed, sparse additions unwound",
				zap.Int("chunks", len(indexed)),
				zap.Error(upsertErr),
			)
			return s.finish(results, start), nil
		}
	}

	for _, idx := range indexedIdx {
		results[idx] = domingest.NewOK(items[idx].ID)
	}
	return s.finish(results, start), nil
}

// Delete removes chunks from both indices. The dense backend goes first:
// a backend failure leaves both indices untouched. Returns the number of
// chunks removed from the sparse index.
func (s *Service) Delete(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.dense.Delete(ctx, ids...); err != nil {
		return 0, fmt.Errorf("dense delete: %w", err)
	}
	removed := s.sparse.Remove(ids...)
	metrics.IndexedChunks.WithLabelValues("sparse").Set(float64(s.sparse.Len()))
	s.logger.Info("Chunks deleted",
		zap.Int("requested", len(ids)),
		zap.Int("removed", removed),
	)
	return removed, nil
}

// Stats reports the corpus census for both indices.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	denseCount, err := s.dense.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("dense count: %w", err)
	}
	st := Stats{
		SparseDocuments: s.sparse.Len(),
		SparseTerms:     s.sparse.Terms(),
		DenseDocuments:  denseCount,
	}
	st.InSync = st.SparseDocuments == st.DenseDocuments
	metrics.IndexedChunks.WithLabelValues("sparse").Set(float64(st.SparseDocuments))
	metrics.IndexedChunks.WithLabelValues("dense").Set(float64(st.DenseDocuments))
	return st, nil
}

// Drop deletes the whole corpus: the backend index and keys first, then
// the in-memory sparse state.
func (s *Service) Drop(ctx context.Context) error {
	if err := s.dense.Drop(ctx); err != nil {
		return fmt.Errorf("dense drop: %w", err)
	}
	s.sparse.Reset()

	s.mu.Lock()
	s.ensured = false
	s.mu.Unlock()

	metrics.IndexedChunks.WithLabelValues("sparse").Set(0)
	metrics.IndexedChunks.WithLabelValues("dense").Set(0)
	s.logger.Info("Corpus dropped")
	return nil
}

// ensureDense creates the backend index on first use.
func (s *Service) ensureDense(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured {
		return nil
	}
	if err := s.dense.Ensure(ctx); err != nil {
		return fmt.Errorf("ensure dense index: %w", err)
	}
	s.ensured = true
	return nil
}

func (s *Service) finish(results []domingest.Result, start time.Time) domingest.Report {
	report := domingest.NewReport(results)
	metrics.IngestChunksTotal.WithLabelValues("ok").Add(float64(report.Succeeded()))
	metrics.IngestChunksTotal.WithLabelValues("error").Add(float64(report.Failed()))
	metrics.IndexedChunks.WithLabelValues("sparse").Set(float64(s.sparse.Len()))
	s.logger.Info("Ingestion finished",
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("failed", report.Failed()),
		zap.Duration("duration", time.Since(start)),
	)
	return report
}
