package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexing signals a chunk rejected by an index (malformed chunk or id collision).
	ErrIndexing = errors.New("chunk rejected by index")
	// ErrInvalidQuery signals a malformed query request.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrDimensionMismatch signals a vector dimension mismatch.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingUnavailable signals an embedding provider failure.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrBackendUnavailable signals an unreachable vector backend.
	ErrBackendUnavailable = errors.New("vector backend unavailable")
	// ErrRetrievalUnavailable signals that both retrieval branches failed.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
)

// DimensionError wraps ErrDimensionMismatch with the expected and observed lengths.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: want %d, got %d", ErrDimensionMismatch.Error(), e.Want, e.Got)
}

func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(want, got int) error {
	return &DimensionError{Want: want, Got: got}
}
