package fusedex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kailas-cloud/fusedex/internal/db"
	dbMem "github.com/kailas-cloud/fusedex/internal/db/mem"
	dbRedis "github.com/kailas-cloud/fusedex/internal/db/redis"
	"github.com/kailas-cloud/fusedex/internal/domain"
	"github.com/kailas-cloud/fusedex/internal/domain/search/mode"
	"github.com/kailas-cloud/fusedex/internal/domain/search/request"
	"github.com/kailas-cloud/fusedex/internal/metrics"
	budgetrepo "github.com/kailas-cloud/fusedex/internal/repository/budget"
	"github.com/kailas-cloud/fusedex/internal/repository/dense"
	"github.com/kailas-cloud/fusedex/internal/repository/embcache"
	"github.com/kailas-cloud/fusedex/internal/repository/sparse"
	"github.com/kailas-cloud/fusedex/internal/transport/openai"
	"github.com/kailas-cloud/fusedex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/fusedex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/fusedex/internal/usecase/ingest"
	queryuc "github.com/kailas-cloud/fusedex/internal/usecase/query"
	usageuc "github.com/kailas-cloud/fusedex/internal/usecase/usage"

	domingest "github.com/kailas-cloud/fusedex/internal/domain/ingest"
)

const (
	defaultReadinessTimeout = 10 * time.Second

	// Budget counter TTLs: generous enough to outlive the period they
	// count, so a restart mid-period resumes from the stored value.
	budgetDailyTTL   = 48 * time.Hour
	budgetMonthlyTTL = 62 * 24 * time.Hour
)

// Retriever is the hybrid retrieval engine entry point. One instance
// owns the sparse index, the backend client and the embedding chain;
// constructed by New, torn down by Close.
type Retriever struct {
	store  db.Store
	ingest *ingestuc.Service
	query  *queryuc.Service
	health *healthuc.Service
	usage  *usageuc.Service
	budget *embedding.BudgetTracker // nil without a configured budget

	rrfK int
	topK int
}

// New creates a Retriever: connects the backend, waits for readiness and
// wires the retrieval pipeline.
func New(opts ...Option) (*Retriever, error) {
	cfg := &clientConfig{
		readinessTimeout: defaultReadinessTimeout,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("fusedex: backend required (use WithRedis or WithMemoryBackend)")
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("fusedex: backend not ready: %w", err)
	}

	return wireRetriever(store, cfg)
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("fusedex: create redis store: %w", err)
		}
		return s, nil
	case "mem":
		return dbMem.NewStore(), nil
	default:
		return nil, fmt.Errorf("fusedex: unknown driver %q", cfg.driver)
	}
}

func wireRetriever(store db.Store, cfg *clientConfig) (*Retriever, error) {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.metricsReg != nil {
		metrics.Register(cfg.metricsReg)
	}

	vcfg := domain.DefaultVectorConfig()
	if cfg.dimensions > 0 {
		vcfg.Dimensions = cfg.dimensions
	}
	if cfg.metric != "" {
		vcfg.DistanceMetric = string(cfg.metric)
	}
	if cfg.algorithm != "" {
		vcfg.Algorithm = cfg.algorithm
	}
	if cfg.batchSize > 0 {
		vcfg.BatchSize = cfg.batchSize
	}
	if cfg.openAI != nil && cfg.openAI.Model != "" {
		vcfg.Model = cfg.openAI.Model
	}
	corpus := cfg.corpus
	if corpus == "" {
		corpus = domain.DefaultCorpus
	}

	provider, checker, providerName := buildProvider(cfg, vcfg, logger)

	// The budget pair stays a typed nil unless configured; assigning a
	// nil *BudgetTracker directly would make the nil checks downstream
	// pass and panic on use.
	var tracker *embedding.BudgetTracker
	var budget embedding.BudgetChecker
	var budgetReader usageuc.BudgetReader
	if cfg.budgetDaily > 0 || cfg.budgetMonthly > 0 {
		action := embedding.BudgetActionWarn
		if cfg.budgetAction == BudgetActionReject {
			action = embedding.BudgetActionReject
		}
		tracker = embedding.NewBudgetTracker(providerName, cfg.budgetDaily, cfg.budgetMonthly, action, logger)
		tracker.WithStore(context.Background(), budgetrepo.New(store, budgetDailyTTL, budgetMonthlyTTL))
		budget = tracker
		budgetReader = tracker
	}

	instrumented := embedding.NewInstrumentedEmbedder(
		provider, providerName, vcfg.Model, vcfg.BatchSize, budget, logger,
	)

	// Cache sits outside the budget layer so a fully cached batch is
	// never rejected for an exhausted budget.
	var embChain interface {
		domain.Embedder
		domain.BatchEmbedder
	} = instrumented
	switch cfg.cacheStore {
	case cacheBackend:
		embChain = embcache.New(instrumented, store, cfg.cacheTTL, metrics.EmbeddingCacheTotal, logger)
	case cacheLocal:
		embChain = embcache.New(instrumented, embcache.NewLRU(cfg.cacheSize), 0, metrics.EmbeddingCacheTotal, logger)
	}

	sp := sparse.New()
	de := dense.New(store, corpus, vcfg)

	return &Retriever{
		store:  store,
		ingest: ingestuc.New(sp, de, embChain, vcfg.Dimensions, logger),
		query:  queryuc.New(sp, de, embChain, cfg.overfetch, cfg.queryTimeout, logger),
		health: healthuc.New(store, checker),
		usage:  usageuc.New(budgetReader, corpus),
		budget: tracker,
		rrfK:   cfg.rrfK,
		topK:   cfg.defaultTopK,
	}, nil
}

// buildProvider resolves the embedding provider: a caller-supplied
// Embedder wins, then the OpenAI-compatible transport, then an erroring
// stub so dense branches degrade instead of panicking.
func buildProvider(
	cfg *clientConfig, vcfg domain.VectorConfig, logger *zap.Logger,
) (domain.Embedder, healthuc.EmbeddingChecker, string) {
	switch {
	case cfg.embedder != nil:
		var prov domain.Embedder = &embedderAdapter{inner: cfg.embedder}
		if be, ok := cfg.embedder.(BatchEmbedder); ok {
			prov = &batchEmbedderAdapter{
				embedderAdapter: embedderAdapter{inner: cfg.embedder},
				batch:           be,
			}
		}
		var checker healthuc.EmbeddingChecker
		if hc, ok := cfg.embedder.(HealthChecker); ok {
			checker = hc
		}
		return prov, checker, "custom"
	case cfg.openAI != nil:
		name := cfg.openAI.Provider
		if name == "" {
			name = "openai"
		}
		e := openai.NewEmbedder(&openai.Config{
			APIKey:     cfg.openAI.APIKey,
			BaseURL:    cfg.openAI.BaseURL,
			Model:      vcfg.Model,
			Dimensions: cfg.openAI.Dimensions,
			User:       cfg.openAI.User,
			Provider:   name,
			Logger:     logger,
		})
		return e, e, name
	default:
		return noopEmbedder{}, nil, "none"
	}
}

// Ingest validates, embeds and indexes chunks in both indices. Chunks
// without an ID get a UUID. Per-chunk failures are reported in the
// IngestReport; the error return covers call-level failures only.
func (r *Retriever) Ingest(ctx context.Context, chunks []Chunk) (IngestReport, error) {
	items := make([]domingest.Item, len(chunks))
	for i, c := range chunks {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		items[i] = domingest.Item{ID: id, Text: c.Text, Meta: metaFromPairs(c.Meta)}
	}

	ctx, usage := domain.NewContextWithUsage(ctx)
	report, err := r.ingest.Ingest(ctx, items)
	if err != nil {
		return IngestReport{}, fmt.Errorf("ingest: %w", err)
	}
	return toIngestReport(report, usage.TotalTokens), nil
}

// Query retrieves the chunks most relevant to the query text. nil opts
// uses the engine defaults (hybrid mode). The only error paths are an
// invalid request and both branches failing; a hybrid query losing one
// branch returns a degraded Result instead.
func (r *Retriever) Query(ctx context.Context, query string, opts *QueryOptions) (Result, error) {
	if opts == nil {
		opts = &QueryOptions{}
	}
	topK := opts.TopK
	if topK == 0 {
		topK = r.topK
	}
	rrfK := opts.RRFK
	if rrfK == 0 {
		rrfK = r.rrfK
	}

	req, err := request.New(query, mode.Mode(opts.Mode), topK, rrfK)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	ctx, usage := domain.NewContextWithUsage(ctx)
	res, err := r.query.Query(ctx, &req)
	if err != nil {
		return Result{}, err
	}
	return toResult(&res, usage.TotalTokens), nil
}

// Delete removes chunks from both indices. Unknown ids are ignored.
// Returns the number of chunks actually removed.
func (r *Retriever) Delete(ctx context.Context, ids ...string) (int, error) {
	n, err := r.ingest.Delete(ctx, ids...)
	if err != nil {
		return 0, fmt.Errorf("delete: %w", err)
	}
	return n, nil
}

// Stats reports the corpus census for both indices.
func (r *Retriever) Stats(ctx context.Context) (Stats, error) {
	st, err := r.ingest.Stats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return Stats{
		SparseChunks: st.SparseDocuments,
		SparseTerms:  st.SparseTerms,
		DenseChunks:  st.DenseDocuments,
		InSync:       st.InSync,
	}, nil
}

// Drop deletes the whole corpus from both indices.
func (r *Retriever) Drop(ctx context.Context) error {
	if err := r.ingest.Drop(ctx); err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	return nil
}

// Ping checks backend connectivity.
func (r *Retriever) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close flushes pending budget counters and releases the backend client.
func (r *Retriever) Close() error {
	var err error
	if r.budget != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = multierr.Append(err, r.budget.Flush(ctx))
		cancel()
	}
	if r.store != nil {
		r.store.Close()
	}
	return err
}

// embedderAdapter wraps the public Embedder to satisfy domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    res.Embedding,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// batchEmbedderAdapter additionally forwards native batch calls, so the
// batch capability of a caller-supplied embedder is only advertised when
// it really exists.
type batchEmbedderAdapter struct {
	embedderAdapter
	batch BatchEmbedder
}

func (a *batchEmbedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	res, err := a.batch.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   res.Embeddings,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// noopEmbedder errors on every call (used when no embedder configured):
// hybrid queries degrade to sparse-only, ingestion reports per-chunk
// failures.
type noopEmbedder struct{}

func (noopEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, fmt.Errorf(
		"%w: embedder not configured (use WithEmbedder or WithOpenAIEmbedder)",
		domain.ErrEmbeddingUnavailable,
	)
}
