// Package hit defines the ranked result types exchanged between the two
// retrieval branches and the fusion step.
package hit

import "github.com/kailas-cloud/fusedex/internal/domain/chunk"

// Ranked is a single hit from one index. Rank is 1-based within that
// index's result list; Score is index-native and never compared across
// indices.
type Ranked struct {
	id    string
	text  string
	meta  chunk.Metadata
	score float64
	rank  int
}

// NewRanked creates a ranked hit.
func NewRanked(id string, score float64, rank int, text string, meta chunk.Metadata) Ranked {
	return Ranked{id: id, text: text, meta: meta, score: score, rank: rank}
}

// ID returns the chunk identifier (the fusion join key).
func (h *Ranked) ID() string { return h.id }

// Text returns the chunk text.
func (h *Ranked) Text() string { return h.text }

// Metadata returns the chunk metadata.
func (h *Ranked) Metadata() chunk.Metadata { return h.meta }

// Score returns the index-native relevance score.
func (h *Ranked) Score() float64 { return h.score }

// Rank returns the 1-based position within the source list.
func (h *Ranked) Rank() int { return h.rank }

// Fused is a hit after reciprocal rank fusion, ordered by RRFScore.
type Fused struct {
	id       string
	text     string
	meta     chunk.Metadata
	rrfScore float64
}

// NewFused creates a fused hit.
func NewFused(id string, rrfScore float64, text string, meta chunk.Metadata) Fused {
	return Fused{id: id, text: text, meta: meta, rrfScore: rrfScore}
}

// ID returns the chunk identifier.
func (h *Fused) ID() string { return h.id }

// Text returns the chunk text.
func (h *Fused) Text() string { return h.text }

// Metadata returns the chunk metadata.
func (h *Fused) Metadata() chunk.Metadata { return h.meta }

// RRFScore returns the accumulated reciprocal rank score.
func (h *Fused) RRFScore() float64 { return h.rrfScore }
