package mem

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kailas-cloud/fusedex/internal/db"
)

// CreateIndex registers an index definition.
func (s *Store) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}
	cp := *def
	s.indexes[def.Name] = &cp
	return nil
}

// DropIndex removes an index definition. Documents stay, matching
// FT.DROPINDEX without DD.
func (s *Store) DropIndex(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[name]; !ok {
		return db.ErrIndexNotFound
	}
	delete(s.indexes, name)
	return nil
}

// IndexExists reports whether an index definition is registered.
func (s *Store) IndexExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.indexes[name]
	return ok, nil
}

// SearchKNN scans every document under the index prefix and returns the
// K nearest by the index metric. Vectors with a dimension other than
// the query's are skipped.
func (s *Store) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.indexes[q.IndexName]
	if !ok {
		return nil, db.ErrIndexNotFound
	}

	entries := make([]db.SearchEntry, 0, q.K)
	for key, fields := range s.hashes {
		if !strings.HasPrefix(key, def.Prefix) {
			continue
		}
		blob, ok := fields[def.Field]
		if !ok {
			continue
		}
		vec := bytesToVector(blob)
		if len(vec) != len(q.Vector) {
			continue
		}
		entries = append(entries, db.SearchEntry{
			Key:    key,
			Score:  similarity(q.Vector, vec, q.Metric),
			Fields: selectFields(fields, q.ReturnFields),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Key < entries[j].Key
	})
	if len(entries) > q.K {
		entries = entries[:q.K]
	}

	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

// SearchCount counts documents under the index prefix. The query string
// is accepted for interface parity; only "*" semantics are supported.
func (s *Store) SearchCount(_ context.Context, index, _ string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.indexes[index]
	if !ok {
		return 0, db.ErrIndexNotFound
	}

	count := 0
	for key := range s.hashes {
		if strings.HasPrefix(key, def.Prefix) {
			count++
		}
	}
	return count, nil
}

// similarity scores a candidate against the query so that higher means
// closer, on the same scale the redis driver derives from FT.SEARCH
// distances for each metric.
func similarity(query, cand []float32, metric db.DistanceMetric) float64 {
	switch metric {
	case db.DistanceCosine:
		return max(0, cosine(query, cand))
	case db.DistanceL2:
		var sum float64
		for i := range query {
			d := float64(query[i]) - float64(cand[i])
			sum += d * d
		}
		return -sum
	default: // inner product
		var dot float64
		for i := range query {
			dot += float64(query[i]) * float64(cand[i])
		}
		return dot
	}
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func selectFields(fields map[string]string, want []string) map[string]string {
	if len(want) == 0 {
		out := make(map[string]string, len(fields))
		for k, v := range fields {
			out[k] = v
		}
		return out
	}
	out := make(map[string]string, len(want))
	for _, k := range want {
		if v, ok := fields[k]; ok {
			out[k] = v
		}
	}
	return out
}

func bytesToVector(blob string) []float32 {
	if len(blob)%4 != 0 {
		return nil
	}
	b := []byte(blob)
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec
}
