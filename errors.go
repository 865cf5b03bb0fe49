package fusedex

import "github.com/kailas-cloud/fusedex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrIndexing          = domain.ErrIndexing
	ErrInvalidQuery      = domain.ErrInvalidQuery
	ErrDimensionMismatch = domain.ErrDimensionMismatch

	ErrRateLimited            = domain.ErrRateLimited
	ErrEmbeddingQuotaExceeded = domain.ErrEmbeddingQuotaExceeded
	ErrEmbeddingUnavailable   = domain.ErrEmbeddingUnavailable

	ErrBackendUnavailable   = domain.ErrBackendUnavailable
	ErrRetrievalUnavailable = domain.ErrRetrievalUnavailable
)
