// Package dense stores chunk embeddings in a vector backend and serves
// the KNN branch of retrieval.
package dense

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/fusedex/internal/db"
	"github.com/kailas-cloud/fusedex/internal/domain"
	"github.com/kailas-cloud/fusedex/internal/domain/chunk"
	"github.com/kailas-cloud/fusedex/internal/domain/search/hit"
)

// Hash field names under each chunk key.
const (
	fieldText   = "__text"
	fieldVector = "__vector"
	fieldMeta   = "__meta"
)

// store is the consumer interface for the vector backend (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo implements the dense index over a db.Store.
type Repo struct {
	store  store
	corpus string
	dim    int
	metric db.DistanceMetric
	algo   db.VectorAlgorithm
}

// New creates a dense repository for one corpus.
func New(s store, corpus string, cfg domain.VectorConfig) *Repo {
	return &Repo{
		store:  s,
		corpus: corpus,
		dim:    cfg.Dimensions,
		metric: metricOf(cfg.DistanceMetric),
		algo:   algoOf(cfg.Algorithm),
	}
}

// Ensure creates the corpus vector index if it does not exist yet.
func (r *Repo) Ensure(ctx context.Context) error {
	name := r.indexName()
	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("index exists %s: %w: %w", r.corpus, domain.ErrBackendUnavailable, err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:   name,
		Prefix: r.keyPrefix(),
		Field:  fieldVector,
		Dim:    r.dim,
		Metric: r.metric,
		Algo:   r.algo,
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w: %w", r.corpus, domain.ErrBackendUnavailable, err)
	}
	return nil
}

// Upsert stores chunks with their embeddings in one backend round-trip.
// Every chunk must already carry an embedding of the configured dimension.
func (r *Repo) Upsert(ctx context.Context, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		vec := c.Embedding()
		if len(vec) != r.dim {
			return fmt.Errorf("chunk %s: %w", c.ID(), domain.NewDimensionMismatch(r.dim, len(vec)))
		}
		meta, err := json.Marshal(c.Metadata())
		if err != nil {
			return fmt.Errorf("marshal metadata %s: %w", c.ID(), err)
		}
		items = append(items, db.HashSetItem{
			Key: r.keyFor(c.ID()),
			Fields: map[string]string{
				fieldText:   c.Text(),
				fieldVector: vectorToBytes(vec),
				fieldMeta:   string(meta),
			},
		})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %s: %w: %w", r.corpus, domain.ErrBackendUnavailable, err)
	}
	return nil
}

// Search returns the topK nearest chunks to the query vector, ranked
// closest-first with 1-based ranks.
func (r *Repo) Search(ctx context.Context, vector []float32, topK int) ([]hit.Ranked, error) {
	if len(vector) != r.dim {
		return nil, domain.NewDimensionMismatch(r.dim, len(vector))
	}
	if topK <= 0 {
		return nil, nil
	}

	q := &db.KNNQuery{
		IndexName:    r.indexName(),
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{fieldText, fieldMeta},
		Metric:       r.metric,
	}
	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w: %w", r.corpus, domain.ErrBackendUnavailable, err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	prefix := r.keyPrefix()
	hits := make([]hit.Ranked, 0, len(sr.Entries))
	for i, entry := range sr.Entries {
		id := strings.TrimPrefix(entry.Key, prefix)
		meta := chunk.NewMetadata()
		if raw := entry.Fields[fieldMeta]; raw != "" {
			// best effort; a chunk with broken metadata still ranks
			_ = json.Unmarshal([]byte(raw), &meta)
		}
		hits = append(hits, hit.NewRanked(id, entry.Score, i+1, entry.Fields[fieldText], meta))
	}
	return hits, nil
}

// Delete removes chunks by ID. Missing IDs are not an error.
func (r *Repo) Delete(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if err := r.store.Del(ctx, r.keyFor(id)); err != nil {
			return fmt.Errorf("del %s: %w: %w", id, domain.ErrBackendUnavailable, err)
		}
	}
	return nil
}

// Count returns the number of chunks in the corpus index.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName(), "*")
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("search count %s: %w: %w", r.corpus, domain.ErrBackendUnavailable, err)
	}
	return n, nil
}

// Drop removes the corpus index and every stored chunk.
func (r *Repo) Drop(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.indexName()); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w: %w", r.corpus, domain.ErrBackendUnavailable, err)
	}

	keys, err := r.store.Scan(ctx, r.keyPrefix()+"*")
	if err != nil {
		return fmt.Errorf("scan %s: %w: %w", r.corpus, domain.ErrBackendUnavailable, err)
	}
	for _, key := range keys {
		if err := r.store.Del(ctx, key); err != nil {
			return fmt.Errorf("del %s: %w: %w", key, domain.ErrBackendUnavailable, err)
		}
	}
	return nil
}

func (r *Repo) keyPrefix() string {
	return fmt.Sprintf("%s%s:", domain.KeyPrefix, r.corpus)
}

func (r *Repo) keyFor(id string) string {
	return r.keyPrefix() + id
}

func (r *Repo) indexName() string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, r.corpus)
}

func metricOf(s string) db.DistanceMetric {
	switch strings.ToLower(s) {
	case "cosine":
		return db.DistanceCosine
	case "l2":
		return db.DistanceL2
	default:
		return db.DistanceIP
	}
}

func algoOf(s string) db.VectorAlgorithm {
	if strings.EqualFold(s, "flat") {
		return db.VectorFlat
	}
	return db.VectorHNSW
}

// vectorToBytes serializes []float32 to the little-endian blob the
// backend indexes.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
