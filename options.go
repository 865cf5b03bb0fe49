package fusedex

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Retriever.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// cache store selection.
const (
	cacheNone    = ""
	cacheBackend = "backend"
	cacheLocal   = "memory"
)

type clientConfig struct {
	driver   string // "redis" or "mem"
	addrs    []string
	password string

	corpus     string
	dimensions int
	metric     Metric
	algorithm  string

	embedder Embedder
	openAI   *OpenAIConfig

	cacheStore string
	cacheTTL   time.Duration
	cacheSize  int

	budgetDaily   int64
	budgetMonthly int64
	budgetAction  BudgetAction

	batchSize        int
	rrfK             int
	overfetch        int
	defaultTopK      int
	queryTimeout     time.Duration
	readinessTimeout time.Duration

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// OpenAIConfig configures the built-in OpenAI-compatible embedding
// provider (OpenAI, SiliconFlow, Nebius, vLLM and others).
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // "" = api.openai.com
	Model      string // "" = BAAI/bge-m3
	Dimensions int    // request-side override, 0 = model default
	Provider   string // name for budget keys and logs, "" = "openai"
	User       string
}

// WithRedis configures the engine to use a Redis/Valkey backend
// (RediSearch module required).
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedisCluster configures the engine to use a Redis/Valkey cluster.
func WithRedisCluster(addrs []string, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = addrs
		c.password = password
	})
}

// WithMemoryBackend configures a fully in-process vector backend, for
// embedded deployments and tests. No persistence.
func WithMemoryBackend() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "mem"
	})
}

// WithCorpus sets the corpus name that namespaces backend keys and the
// vector index. Defaults to "default".
func WithCorpus(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.corpus = name
	})
}

// WithDimensions sets the corpus vector dimensionality.
// Defaults to 1024 (BGE-M3).
func WithDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dimensions = dim
	})
}

// WithMetric sets the similarity metric of the vector index.
// Defaults to MetricIP (inner product).
func WithMetric(m Metric) Option {
	return optionFunc(func(c *clientConfig) {
		c.metric = m
	})
}

// WithFlatIndex switches the vector index from HNSW to exact FLAT
// search. Slower on large corpora, exact on small ones.
func WithFlatIndex() Option {
	return optionFunc(func(c *clientConfig) {
		c.algorithm = "flat"
	})
}

// WithEmbedder sets the text embedding provider. Batch and health
// capabilities are picked up when the value also implements
// BatchEmbedder / HealthChecker.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithOpenAIEmbedder configures the built-in OpenAI-compatible embedding
// provider. Ignored when WithEmbedder is also given.
func WithOpenAIEmbedder(cfg OpenAIConfig) Option {
	return optionFunc(func(c *clientConfig) {
		c.openAI = &cfg
	})
}

// WithEmbeddingCache caches embeddings in the backend KV space keyed by
// text hash, so identical chunks and repeated queries are vectorized
// once. ttl 0 = no expiry.
func WithEmbeddingCache(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheStore = cacheBackend
		c.cacheTTL = ttl
	})
}

// WithLocalEmbeddingCache caches embeddings in an in-process LRU instead
// of the backend. size <= 0 uses the default capacity (10000).
func WithLocalEmbeddingCache(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheStore = cacheLocal
		c.cacheSize = size
	})
}

// WithEmbeddingBudget enforces daily/monthly embedding token limits
// (0 = unlimited). Counters persist in the backend KV space so limits
// survive restarts. Action defaults to BudgetActionWarn.
func WithEmbeddingBudget(daily, monthly int64, action BudgetAction) Option {
	return optionFunc(func(c *clientConfig) {
		c.budgetDaily = daily
		c.budgetMonthly = monthly
		c.budgetAction = action
	})
}

// WithBatchSize sets the provider batch ceiling: one embeddings call
// never carries more texts than this. Defaults to 64.
func WithBatchSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.batchSize = n
	})
}

// WithRRFK sets the default reciprocal rank fusion smoothing constant,
// overridable per query. Defaults to 60.
func WithRRFK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.rrfK = k
	})
}

// WithOverfetch sets the per-branch candidate multiplier: each index is
// asked for topK*overfetch hits before fusion. Defaults to 2.
func WithOverfetch(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.overfetch = n
	})
}

// WithDefaultTopK sets the result count used when a query does not pick
// one. Defaults to 10, capped at 500.
func WithDefaultTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultTopK = k
	})
}

// WithQueryTimeout bounds every query; a branch exceeding the deadline
// is abandoned and the query degrades to the surviving branch.
// 0 (default) disables the engine-level deadline.
func WithQueryTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryTimeout = d
	})
}

// WithReadinessTimeout bounds the backend readiness wait in New.
// Defaults to 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithLogger enables structured logging for engine operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers engine metrics (queries, embedding requests,
// tokens, cache, corpus sizes) on the given registerer.
// Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
