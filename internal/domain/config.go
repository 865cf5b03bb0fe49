package domain

// KeyPrefix namespaces every backend key owned by the engine.
const KeyPrefix = "fusedex:"

// DefaultCorpus is the corpus name used when the caller does not pick one.
const DefaultCorpus = "default"

// VectorConfig holds internal vectorization settings, not exposed to clients.
type VectorConfig struct {
	Model          string
	Dimensions     int
	DistanceMetric string
	Algorithm      string
	BatchSize      int
	MaxChunkSizeKB int
}

// DefaultVectorConfig returns the default configuration tuned for BAAI/bge-m3.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:          "BAAI/bge-m3",
		Dimensions:     1024,
		DistanceMetric: "ip",
		Algorithm:      "hnsw",
		BatchSize:      64,
		MaxChunkSizeKB: 160,
	}
}
