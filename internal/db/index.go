package db

import "errors"

// DistanceMetric used by vector similarity queries.
type DistanceMetric string

const (
	// DistanceL2 is Euclidean distance.
	DistanceL2 DistanceMetric = "L2"
	// DistanceIP is inner product distance.
	DistanceIP DistanceMetric = "IP"
	// DistanceCosine is cosine distance.
	DistanceCosine DistanceMetric = "COSINE"
)

// VectorAlgorithm selects the indexing algorithm for FT.CREATE.
type VectorAlgorithm string

const (
	// VectorHNSW uses the HNSW algorithm.
	VectorHNSW VectorAlgorithm = "HNSW"
	// VectorFlat uses the FLAT (brute-force) algorithm.
	VectorFlat VectorAlgorithm = "FLAT"
)

// IndexDefinition describes the single-vector-field index a corpus needs.
// Payload fields (text, metadata) live in the same hash but are not indexed.
type IndexDefinition struct {
	Name   string
	Prefix string
	Field  string // hash field holding the vector blob
	Dim    int
	Metric DistanceMetric
	Algo   VectorAlgorithm

	// HNSW parameters (ignored for FLAT).
	M           int // max edges per node (default 16)
	EFConstruct int // build-time dynamic list size (default 200)
	// FLAT parameter (ignored for HNSW).
	BlockSize int
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return errors.New("index name contains invalid characters")
	}
	if idx.Prefix == "" {
		return errors.New("key prefix is required")
	}
	if idx.Field == "" {
		return errors.New("vector field name is required")
	}
	if idx.Dim <= 0 {
		return errors.New("vector field requires positive DIM")
	}
	switch idx.Metric {
	case DistanceL2, DistanceIP, DistanceCosine:
	default:
		return errors.New("unknown distance metric: " + string(idx.Metric))
	}
	switch idx.Algo {
	case VectorHNSW, VectorFlat:
	default:
		return errors.New("unknown vector algorithm: " + string(idx.Algo))
	}
	return nil
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == ':' || r == '-'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
