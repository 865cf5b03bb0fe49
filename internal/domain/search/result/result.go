// Package result defines the outcome of one retrieval call: the fused hit
// list plus an explicit branch outcome, so degradation is observable
// rather than silent.
package result

import "github.com/kailas-cloud/fusedex/internal/domain/search/hit"

// Outcome identifies which retrieval branches produced the hits.
type Outcome string

const (
	// OutcomeFused means both branches responded and were merged.
	OutcomeFused Outcome = "fused"
	// OutcomeSparseOnly means only the lexical branch contributed.
	OutcomeSparseOnly Outcome = "sparse_only"
	// OutcomeDenseOnly means only the vector branch contributed.
	OutcomeDenseOnly Outcome = "dense_only"
)

// Result is the outcome of one retrieval call.
type Result struct {
	hits     []hit.Fused
	outcome  Outcome
	degraded bool
}

// New creates a result.
func New(hits []hit.Fused, outcome Outcome, degraded bool) Result {
	return Result{hits: hits, outcome: outcome, degraded: degraded}
}

// Hits returns the fused hits in descending RRF-score order.
func (r *Result) Hits() []hit.Fused { return r.hits }

// Outcome returns the branch combination that produced the hits.
func (r *Result) Outcome() Outcome { return r.outcome }

// Degraded reports whether a hybrid query lost a branch and fell back to
// single-index ranking.
func (r *Result) Degraded() bool { return r.degraded }

// Len returns the number of hits.
func (r *Result) Len() int { return len(r.hits) }
