package redis

import (
	"context"
	"strconv"

	"github.com/kailas-cloud/fusedex/internal/db"
)

// vectorAttr is the attribute alias of the vector field in FT.CREATE;
// FT.SEARCH addresses it as @vector and reports __vector_score.
const vectorAttr = "vector"

// CreateIndex creates the corpus FT index from the given definition.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(buildCreateArgs(def)...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// DropIndex removes an FT index by name.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	return nil
}

// IndexExists probes index existence via FT.INFO; "unknown index name" means absent.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return true, nil
}

// buildCreateArgs assembles FT.CREATE arguments for a single-vector-field
// HASH index. Payload fields in the same hash stay unindexed.
func buildCreateArgs(idx *db.IndexDefinition) []string {
	args := []string{idx.Name, "ON", "HASH", "PREFIX", "1", idx.Prefix, "SCHEMA"}
	args = append(args, idx.Field, "AS", vectorAttr)

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(idx.Dim),
		"DISTANCE_METRIC", string(idx.Metric),
	}
	switch idx.Algo {
	case db.VectorHNSW:
		if idx.M > 0 {
			attrs = append(attrs, "M", strconv.Itoa(idx.M))
		}
		if idx.EFConstruct > 0 {
			attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(idx.EFConstruct))
		}
	case db.VectorFlat:
		if idx.BlockSize > 0 {
			attrs = append(attrs, "BLOCK_SIZE", strconv.Itoa(idx.BlockSize))
		}
	}

	args = append(args, "VECTOR", string(idx.Algo), strconv.Itoa(len(attrs)))
	args = append(args, attrs...)
	return args
}
