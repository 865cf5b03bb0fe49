package fusedex

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/fusedex/internal/config"
	"github.com/kailas-cloud/fusedex/internal/logger"
)

// NewFromConfig builds a Retriever from a YAML config file. Options
// given on top of the file are applied after it, so they win on
// conflicts.
func NewFromConfig(path string, extra ...Option) (*Retriever, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("fusedex: %w", err)
	}

	log, err := logger.NewLogger(cfg.Logging.Env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("fusedex: %w", err)
	}

	opts := optionsFromConfig(cfg)
	opts = append(opts, WithLogger(log))
	opts = append(opts, extra...)
	return New(opts...)
}

// optionsFromConfig translates a loaded config into functional options.
// Load has already applied defaults and validated, so the switches here
// only need the accepted values.
func optionsFromConfig(cfg config.Config) []Option {
	var opts []Option

	switch cfg.Backend.Driver {
	case "mem":
		opts = append(opts, WithMemoryBackend())
	default:
		if len(cfg.Backend.Addrs) > 1 {
			opts = append(opts, WithRedisCluster(cfg.Backend.Addrs, cfg.Backend.Password))
		} else {
			opts = append(opts, WithRedis(cfg.Backend.Addrs[0], cfg.Backend.Password))
		}
	}
	opts = append(opts,
		WithReadinessTimeout(time.Duration(cfg.Backend.ReadinessTimeout)*time.Second),
		WithCorpus(cfg.Corpus.Name),
		WithDimensions(cfg.Corpus.Dimensions),
		WithMetric(Metric(cfg.Corpus.Metric)),
	)
	if cfg.Corpus.Algorithm == "flat" {
		opts = append(opts, WithFlatIndex())
	}

	if cfg.Embedding.APIKey != "" || cfg.Embedding.BaseURL != "" {
		opts = append(opts, WithOpenAIEmbedder(OpenAIConfig{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   cfg.Embedding.Provider,
		}))
	}
	opts = append(opts, WithBatchSize(cfg.Embedding.BatchSize))

	if cache := cfg.Embedding.Cache; cache.Enabled {
		if cache.Store == "memory" {
			opts = append(opts, WithLocalEmbeddingCache(cache.Size))
		} else {
			opts = append(opts, WithEmbeddingCache(time.Duration(cache.TTLSec)*time.Second))
		}
	}

	if b := cfg.Embedding.Budget; b.DailyTokenLimit > 0 || b.MonthlyTokenLimit > 0 {
		action := BudgetActionWarn
		if b.Action == "reject" {
			action = BudgetActionReject
		}
		opts = append(opts, WithEmbeddingBudget(b.DailyTokenLimit, b.MonthlyTokenLimit, action))
	}

	opts = append(opts,
		WithRRFK(cfg.Retrieval.RRFK),
		WithOverfetch(cfg.Retrieval.Overfetch),
		WithDefaultTopK(cfg.Retrieval.DefaultTopK),
	)
	if cfg.Retrieval.TimeoutSec > 0 {
		opts = append(opts, WithQueryTimeout(time.Duration(cfg.Retrieval.TimeoutSec)*time.Second))
	}

	return opts
}
