// Package fuse implements Reciprocal Rank Fusion of two independently
// ranked hit lists. Fusion is rank-based: native scores never mix.
package fuse

import (
	"sort"

	"github.com/kailas-cloud/fusedex/internal/domain/search/hit"
)

// DefaultK is the standard RRF smoothing constant (Cormack et al., 2009).
const DefaultK = 60

type scored struct {
	first hit.Ranked // payload source: first list the chunk appeared in
	score float64
	best  int // minimum rank across both lists
}

// Fuse merges two ranked lists by chunk id: every appearance contributes
// 1/(k+rank) to the chunk's total, with rank the hit's own 1-based position.
// A chunk present in only one list scores from that list alone. Either list
// may be nil. Ordering is total: descending RRF score, then smaller best
// rank, then lexicographic id. The result is truncated to topK.
func Fuse(a, b []hit.Ranked, k, topK int) []hit.Fused {
	if topK <= 0 {
		return nil
	}
	if k <= 0 {
		k = DefaultK
	}

	merged := make(map[string]*scored, len(a)+len(b))
	accumulate := func(list []hit.Ranked) {
		for i := range list {
			h := &list[i]
			contribution := 1.0 / float64(k+h.Rank())
			if s, ok := merged[h.ID()]; ok {
				s.score += contribution
				if h.Rank() < s.best {
					s.best = h.Rank()
				}
				continue
			}
			merged[h.ID()] = &scored{first: *h, score: contribution, best: h.Rank()}
		}
	}
	accumulate(a)
	accumulate(b)

	out := make([]*scored, 0, len(merged))
	for _, s := range merged {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		if out[i].best != out[j].best {
			return out[i].best < out[j].best
		}
		return out[i].first.ID() < out[j].first.ID()
	})
	if len(out) > topK {
		out = out[:topK]
	}

	fused := make([]hit.Fused, len(out))
	for i, s := range out {
		fused[i] = hit.NewFused(s.first.ID(), s.score, s.first.Text(), s.first.Metadata())
	}
	return fused
}
