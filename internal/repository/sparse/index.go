// Package sparse implements the in-process lexical index: an inverted
// index over chunk tokens scored with BM25 (Okapi). State is memory-only
// and rebuildable by re-ingestion; persistence belongs to the dense side.
package sparse

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kailas-cloud/fusedex/internal/domain"
	"github.com/kailas-cloud/fusedex/internal/domain/chunk"
	"github.com/kailas-cloud/fusedex/internal/domain/search/hit"
	"github.com/kailas-cloud/fusedex/internal/domain/text"
)

// BM25 Okapi parameters.
const (
	K1 = 1.2
	B  = 0.75
)

// Stats is a snapshot of index size.
type Stats struct {
	Documents int
	Terms     int
}

// Index holds the inverted index and the per-document statistics BM25
// needs. Adds and removals take the write lock; searches run shared.
type Index struct {
	mu       sync.RWMutex
	seq      int
	pos      map[string]int            // id -> insertion sequence, breaks score ties
	texts    map[string]string         // id -> original text
	metas    map[string]chunk.Metadata // id -> passthrough metadata
	postings map[string]map[string]int // term -> id -> term frequency
	docLens  map[string]int            // id -> token count
	totalLen int
	k1       float64
	b        float64
}

// New creates an empty index with standard BM25 parameters.
func New() *Index {
	return &Index{
		pos:      make(map[string]int),
		texts:    make(map[string]string),
		metas:    make(map[string]chunk.Metadata),
		postings: make(map[string]map[string]int),
		docLens:  make(map[string]int),
		k1:       K1,
		b:        B,
	}
}

// Add indexes one chunk and reports whether a new entry was created.
// Re-adding an id with identical text is an idempotent no-op; an id
// collision with different text is rejected with ErrIndexing and the
// indexed original stays untouched.
func (i *Index) Add(c chunk.Chunk) (bool, error) {
	if c.Text() == "" {
		return false, fmt.Errorf("%w: empty text for id %q", domain.ErrIndexing, c.ID())
	}
	tokens := text.Tokenize(c.Text())

	i.mu.Lock()
	defer i.mu.Unlock()

	if existing, ok := i.texts[c.ID()]; ok {
		if existing == c.Text() {
			return false, nil
		}
		return false, fmt.Errorf("%w: id %q already indexed with different text", domain.ErrIndexing, c.ID())
	}

	i.seq++
	i.pos[c.ID()] = i.seq
	i.texts[c.ID()] = c.Text()
	i.metas[c.ID()] = c.Metadata()
	i.docLens[c.ID()] = len(tokens)
	i.totalLen += len(tokens)
	for _, term := range tokens {
		posting := i.postings[term]
		if posting == nil {
			posting = make(map[string]int)
			i.postings[term] = posting
		}
		posting[c.ID()]++
	}
	return true, nil
}

// Remove deletes chunks from the index. Unknown ids are ignored.
// Returns the number of chunks actually removed.
func (i *Index) Remove(ids ...string) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	removed := 0
	for _, id := range ids {
		txt, ok := i.texts[id]
		if !ok {
			continue
		}
		for _, term := range text.Tokenize(txt) {
			posting := i.postings[term]
			if posting == nil {
				continue
			}
			posting[id]--
			if posting[id] <= 0 {
				delete(posting, id)
			}
			if len(posting) == 0 {
				delete(i.postings, term)
			}
		}
		i.totalLen -= i.docLens[id]
		delete(i.texts, id)
		delete(i.metas, id)
		delete(i.docLens, id)
		delete(i.pos, id)
		removed++
	}
	return removed
}

// Search scores every chunk containing a query term with BM25 and returns
// the topK by descending score, 1-based ranks, ties broken by insertion
// order. Empty index, empty query tokens, or topK <= 0 yield no hits.
// Deterministic: identical state and query produce identical output.
func (i *Index) Search(query string, topK int) []hit.Ranked {
	if topK <= 0 {
		return nil
	}
	tokens := text.Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	n := len(i.texts)
	if n == 0 || i.totalLen == 0 {
		return nil
	}
	avgLen := float64(i.totalLen) / float64(n)

	scores := make(map[string]float64)
	for _, term := range tokens {
		posting := i.postings[term]
		if len(posting) == 0 {
			continue
		}
		df := float64(len(posting))
		idf := math.Log((float64(n)-df+0.5)/(df+0.5) + 1.0)
		for id, tf := range posting {
			freq := float64(tf)
			denom := freq + i.k1*(1.0-i.b+i.b*float64(i.docLens[id])/avgLen)
			scores[id] += idf * freq * (i.k1 + 1.0) / denom
		}
	}
	if len(scores) == 0 {
		return nil
	}

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool {
		if scores[ids[a]] != scores[ids[b]] {
			return scores[ids[a]] > scores[ids[b]]
		}
		return i.pos[ids[a]] < i.pos[ids[b]]
	})
	if len(ids) > topK {
		ids = ids[:topK]
	}

	hits := make([]hit.Ranked, len(ids))
	for rank, id := range ids {
		hits[rank] = hit.NewRanked(id, scores[id], rank+1, i.texts[id], i.metas[id])
	}
	return hits
}

// Stats returns the current index size.
func (i *Index) Stats() Stats {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return Stats{Documents: len(i.texts), Terms: len(i.postings)}
}

// Len returns the number of indexed chunks.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.texts)
}

// Terms returns the number of distinct indexed terms.
func (i *Index) Terms() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.postings)
}

// Reset drops all indexed state.
func (i *Index) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.seq = 0
	i.totalLen = 0
	i.pos = make(map[string]int)
	i.texts = make(map[string]string)
	i.metas = make(map[string]chunk.Metadata)
	i.postings = make(map[string]map[string]int)
	i.docLens = make(map[string]int)
}
