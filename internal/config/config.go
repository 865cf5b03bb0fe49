// Package config loads the engine configuration from YAML with
// environment variable expansion.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/fusedex/internal/domain"
)

// Config holds the fusedex engine configuration.
type Config struct {
	Backend   BackendConfig   `yaml:"backend"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BackendConfig holds vector backend connection settings.
type BackendConfig struct {
	Driver           string   `yaml:"driver"` // redis, mem (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// CorpusConfig holds corpus identity and vector space settings.
type CorpusConfig struct {
	Name       string `yaml:"name"`
	Dimensions int    `yaml:"dimensions"`
	Metric     string `yaml:"metric"`    // ip, cosine, l2 (default: ip)
	Algorithm  string `yaml:"algorithm"` // hnsw, flat (default: hnsw)
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string       `yaml:"provider"` // provider name for budget keys and logs
	APIKey     string       `yaml:"api_key"`
	BaseURL    string       `yaml:"base_url"`
	Model      string       `yaml:"model"`
	Dimensions int          `yaml:"dimensions"` // request-side override, 0 = model default
	BatchSize  int          `yaml:"batch_size"` // texts per provider call, 0 = engine default
	Cache      CacheConfig  `yaml:"cache"`
	Budget     BudgetConfig `yaml:"budget"`
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Store   string `yaml:"store"`   // backend, memory ("" = follow the driver)
	Size    int    `yaml:"size"`    // in-process LRU capacity
	TTLSec  int    `yaml:"ttl_sec"` // backend entry expiry, 0 = no expiry
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// RetrievalConfig holds query-side settings.
type RetrievalConfig struct {
	RRFK        int `yaml:"rrf_k"`
	Overfetch   int `yaml:"overfetch"`
	DefaultTopK int `yaml:"default_top_k"`
	TimeoutSec  int `yaml:"timeout_sec"` // 0 = no engine-level deadline
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Env   string `yaml:"env"`   // prod, dev, local, docker
	Level string `yaml:"level"` // debug, info, warn, error ("" = env default)
}

// Load reads configuration from a YAML file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(path string) Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	vc := domain.DefaultVectorConfig()

	if c.Backend.Driver == "" {
		c.Backend.Driver = "redis"
	}
	if c.Backend.ReadinessTimeout <= 0 {
		c.Backend.ReadinessTimeout = 10
	}
	if c.Corpus.Name == "" {
		c.Corpus.Name = domain.DefaultCorpus
	}
	if c.Corpus.Dimensions <= 0 {
		c.Corpus.Dimensions = vc.Dimensions
	}
	if c.Corpus.Metric == "" {
		c.Corpus.Metric = vc.DistanceMetric
	}
	if c.Corpus.Algorithm == "" {
		c.Corpus.Algorithm = vc.Algorithm
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = vc.Model
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = vc.BatchSize
	}
	if c.Retrieval.RRFK <= 0 {
		c.Retrieval.RRFK = 60
	}
	if c.Retrieval.Overfetch <= 0 {
		c.Retrieval.Overfetch = 2
	}
	if c.Retrieval.DefaultTopK <= 0 {
		c.Retrieval.DefaultTopK = 10
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "prod"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Backend.Driver {
	case "redis":
		if len(c.Backend.Addrs) == 0 {
			return fmt.Errorf("backend.addrs is required for the redis driver")
		}
	case "mem":
		// in-process, no address
	default:
		return fmt.Errorf("backend.driver must be \"redis\" or \"mem\", got %q", c.Backend.Driver)
	}

	if c.Corpus.Dimensions <= 0 {
		return fmt.Errorf("corpus.dimensions must be positive, got %d", c.Corpus.Dimensions)
	}
	switch c.Corpus.Metric {
	case "ip", "cosine", "l2":
		// ok
	default:
		return fmt.Errorf("corpus.metric must be \"ip\", \"cosine\" or \"l2\", got %q", c.Corpus.Metric)
	}
	switch c.Corpus.Algorithm {
	case "hnsw", "flat":
		// ok
	default:
		return fmt.Errorf("corpus.algorithm must be \"hnsw\" or \"flat\", got %q", c.Corpus.Algorithm)
	}

	switch c.Embedding.Cache.Store {
	case "", "backend", "memory":
		// ok
	default:
		return fmt.Errorf("embedding.cache.store must be \"backend\" or \"memory\", got %q", c.Embedding.Cache.Store)
	}
	switch c.Embedding.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf(
			"embedding.budget.action must be \"warn\" or \"reject\", got %q",
			c.Embedding.Budget.Action,
		)
	}

	if c.Retrieval.DefaultTopK > 500 {
		return fmt.Errorf("retrieval.default_top_k must not exceed 500, got %d", c.Retrieval.DefaultTopK)
	}

	return nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
