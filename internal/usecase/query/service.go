// Package query implements the retrieval façade: the sparse and dense
// branches fan out concurrently, their ranked lists merge through
// reciprocal rank fusion, and losing one branch degrades the result
// instead of failing the query.
package query

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/fusedex/internal/domain"
	"github.com/kailas-cloud/fusedex/internal/domain/search/fuse"
	"github.com/kailas-cloud/fusedex/internal/domain/search/hit"
	"github.com/kailas-cloud/fusedex/internal/domain/search/mode"
	"github.com/kailas-cloud/fusedex/internal/domain/search/request"
	"github.com/kailas-cloud/fusedex/internal/domain/search/result"
	"github.com/kailas-cloud/fusedex/internal/metrics"
)

// DefaultOverfetch is the per-branch candidate multiplier: each index
// returns topK*overfetch hits so fusion has enough candidates to re-rank.
const DefaultOverfetch = 2

// Service executes retrieval queries.
type Service struct {
	sparse    SparseSearcher
	dense     DenseSearcher
	embed     Embedder
	overfetch int
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a query service. overfetch <= 0 falls back to
// DefaultOverfetch; timeout <= 0 disables the engine-level deadline.
func New(
	sparse SparseSearcher, dense DenseSearcher, embed Embedder,
	overfetch int, timeout time.Duration, logger *zap.Logger,
) *Service {
	if overfetch <= 0 {
		overfetch = DefaultOverfetch
	}
	return &Service{
		sparse:    sparse,
		dense:     dense,
		embed:     embed,
		overfetch: overfetch,
		timeout:   timeout,
		logger:    logger,
	}
}

// Query runs one retrieval request. Hybrid mode fans out to both indices
// and fuses; sparse and dense modes force a single branch. Every result
// passes through RRF so scores are uniform across modes.
func (s *Service) Query(ctx context.Context, req *request.Request) (result.Result, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := s.dispatch(ctx, req)
	duration := time.Since(start)

	m := string(req.Mode())
	metrics.QueryDuration.WithLabelValues(m).Observe(duration.Seconds())
	if err != nil {
		metrics.QueriesTotal.WithLabelValues(m, "error").Inc()
		return result.Result{}, err
	}
	metrics.QueriesTotal.WithLabelValues(m, string(res.Outcome())).Inc()

	s.logger.Debug("Query completed",
		zap.String("mode", m),
		zap.String("outcome", string(res.Outcome())),
		zap.Bool("degraded", res.Degraded()),
		zap.Int("hits", res.Len()),
		zap.Duration("duration", duration),
	)
	return res, nil
}

func (s *Service) dispatch(ctx context.Context, req *request.Request) (result.Result, error) {
	switch req.Mode() {
	case mode.Sparse:
		return s.querySparse(req), nil
	case mode.Dense:
		return s.queryDense(ctx, req)
	case mode.Hybrid:
		return s.queryHybrid(ctx, req)
	default:
		return result.Result{}, fmt.Errorf("%w: unsupported mode %q", domain.ErrInvalidQuery, req.Mode())
	}
}

// querySparse is the diagnostics path: lexical only, no embedding call.
func (s *Service) querySparse(req *request.Request) result.Result {
	hits := s.sparse.Search(req.Query(), s.fetchK(req))
	fused := fuse.Fuse(hits, nil, req.RRFK(), req.TopK())
	return result.New(fused, result.OutcomeSparseOnly, false)
}

func (s *Service) queryDense(ctx context.Context, req *request.Request) (result.Result, error) {
	hits, tokens, err := s.searchDense(ctx, req)
	domain.UsageFromContext(ctx).AddTokens(tokens)
	if err != nil {
		return result.Result{}, fmt.Errorf("%w: %w", domain.ErrRetrievalUnavailable, err)
	}
	fused := fuse.Fuse(nil, hits, req.RRFK(), req.TopK())
	return result.New(fused, result.OutcomeDenseOnly, false), nil
}

// queryHybrid fans out to both branches and fuses whatever survives.
// Channels are buffered so an abandoned branch finishes without leaking.
func (s *Service) queryHybrid(ctx context.Context, req *request.Request) (result.Result, error) {
	type denseOut struct {
		hits   []hit.Ranked
		tokens int
		err    error
	}
	sparseCh := make(chan []hit.Ranked, 1)
	denseCh := make(chan denseOut, 1)

	go func() {
		sparseCh <- s.sparse.Search(req.Query(), s.fetchK(req))
	}()
	go func() {
		hits, tokens, err := s.searchDense(ctx, req)
		denseCh <- denseOut{hits: hits, tokens: tokens, err: err}
	}()

	var (
		sparseHits, denseHits []hit.Ranked
		sparseOK, denseOK     bool
		denseErr, waitErr     error
	)
	receiveDense := func(out denseOut) {
		// Usage is recorded by the receiver: an abandoned branch must not
		// race the caller reading the collector after Query returns.
		domain.UsageFromContext(ctx).AddTokens(out.tokens)
		denseHits, denseErr = out.hits, out.err
		denseOK = out.err == nil
	}
	for n := 0; n < 2 && waitErr == nil; n++ {
		select {
		case sparseHits = <-sparseCh:
			sparseOK = true
		case out := <-denseCh:
			receiveDense(out)
		case <-ctx.Done():
			waitErr = ctx.Err()
		}
	}
	if waitErr != nil {
		// Deadline hit: grab any branch that finished in time.
		select {
		case sparseHits = <-sparseCh:
			sparseOK = true
		default:
		}
		select {
		case out := <-denseCh:
			receiveDense(out)
		default:
		}
	}

	switch {
	case sparseOK && denseOK:
		fused := fuse.Fuse(sparseHits, denseHits, req.RRFK(), req.TopK())
		return result.New(fused, result.OutcomeFused, false), nil
	case sparseOK:
		reason := denseErr
		if reason == nil {
			reason = waitErr
		}
		s.logger.Warn("Dense branch lost, degrading to sparse-only",
			zap.Error(reason),
		)
		fused := fuse.Fuse(sparseHits, nil, req.RRFK(), req.TopK())
		return result.New(fused, result.OutcomeSparseOnly, true), nil
	case denseOK:
		s.logger.Warn("Sparse branch lost, degrading to dense-only",
			zap.Error(waitErr),
		)
		fused := fuse.Fuse(nil, denseHits, req.RRFK(), req.TopK())
		return result.New(fused, result.OutcomeDenseOnly, true), nil
	default:
		err := denseErr
		if err == nil {
			err = waitErr
		}
		return result.Result{}, fmt.Errorf("%w: %w", domain.ErrRetrievalUnavailable, err)
	}
}

// searchDense embeds the query and runs KNN. Consumed tokens are returned
// even when the search step fails: the embedding call already spent them.
func (s *Service) searchDense(ctx context.Context, req *request.Request) ([]hit.Ranked, int, error) {
	embRes, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		return nil, 0, fmt.Errorf("vectorize query: %w", err)
	}

	hits, err := s.dense.Search(ctx, embRes.Embedding, s.fetchK(req))
	if err != nil {
		return nil, embRes.TotalTokens, fmt.Errorf("dense search: %w", err)
	}
	return hits, embRes.TotalTokens, nil
}

func (s *Service) fetchK(req *request.Request) int {
	return req.TopK() * s.overfetch
}
