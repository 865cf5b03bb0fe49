package request

import (
	"fmt"

	"github.com/kailas-cloud/fusedex/internal/domain/search/fuse"
	"github.com/kailas-cloud/fusedex/internal/domain/search/mode"
)

// Query parameter limits.
const (
	// MaxQueryLength is the maximum allowed query length.
	MaxQueryLength = 4096
	DefaultTopK    = 10
	MaxTopK        = 500
)

// Request is a validated retrieval query.
type Request struct {
	query      string
	searchMode mode.Mode
	topK       int
	rrfK       int
}

// New validates and normalizes query parameters.
// Defaults: mode=hybrid, topK=10 (capped at 500), rrfK=60.
func New(query string, m mode.Mode, topK, rrfK int) (Request, error) {
	if query == "" {
		return Request{}, fmt.Errorf("query is required")
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if m == "" {
		m = mode.Hybrid
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("invalid query mode: %q", m)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	if rrfK < 0 {
		return Request{}, fmt.Errorf("rrf k must not be negative")
	}
	if rrfK == 0 {
		rrfK = fuse.DefaultK
	}

	return Request{query: query, searchMode: m, topK: topK, rrfK: rrfK}, nil
}

// Query returns the query text.
func (r *Request) Query() string { return r.query }

// Mode returns the retrieval strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// TopK returns the number of fused results to return.
func (r *Request) TopK() int { return r.topK }

// RRFK returns the reciprocal rank fusion smoothing constant.
func (r *Request) RRFK() int { return r.rrfK }
