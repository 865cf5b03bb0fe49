// Package mem implements db.Store fully in process, for embedded
// deployments and tests. KNN search is an exhaustive scan, which is
// fine for corpora up to a few hundred thousand chunks.
package mem

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/kailas-cloud/fusedex/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

type kvEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// Store holds all state behind a single RWMutex.
type Store struct {
	mu      sync.RWMutex
	hashes  map[string]map[string]string
	kv      map[string]kvEntry
	indexes map[string]*db.IndexDefinition
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		hashes:  make(map[string]map[string]string),
		kv:      make(map[string]kvEntry),
		indexes: make(map[string]*db.IndexDefinition),
	}
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady returns immediately; the store is always ready.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// HSet sets hash fields.
func (s *Store) HSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hsetLocked(key, fields)
	return nil
}

// HSetMulti stores multiple hashes.
func (s *Store) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.hsetLocked(item.Key, item.Fields)
	}
	return nil
}

func (s *Store) hsetLocked(key string, fields map[string]string) {
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
}

// HGetAll returns a copy of all fields of a hash. Missing keys yield an
// empty map, matching HGETALL semantics.
func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.hashes[key]
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out, nil
}

// Del deletes a key from both the hash and KV spaces.
func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hashes, key)
	delete(s.kv, key)
	return nil
}

// Exists checks if a key exists in either space.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.hashes[key]; ok {
		return true, nil
	}
	e, ok := s.kv[key]
	if !ok {
		return false, nil
	}
	return !expired(e), nil
}

// Scan returns all keys matching a Redis-style glob pattern.
func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.hashes {
		if globMatch(pattern, k) {
			keys = append(keys, k)
		}
	}
	for k, e := range s.kv {
		if expired(e) {
			continue
		}
		if _, dup := s.hashes[k]; dup {
			continue
		}
		if globMatch(pattern, k) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.kv[key]
	if !ok || expired(e) {
		return nil, db.ErrKeyNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set stores a value at the given key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = kvEntry{value: cloneBytes(value)}
	return nil
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = kvEntry{value: cloneBytes(value), expiresAt: time.Now().Add(ttl)}
	return nil
}

// IncrBy atomically increments a numeric key, treating missing keys as 0.
func (s *Store) IncrBy(_ context.Context, key string, val int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cur int64
	if e, ok := s.kv[key]; ok && !expired(e) {
		n, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return &db.Error{Op: db.OpIncrBy, Err: err}
		}
		cur = n
		cur += val
		s.kv[key] = kvEntry{value: []byte(strconv.FormatInt(cur, 10)), expiresAt: e.expiresAt}
		return nil
	}
	cur = val
	s.kv[key] = kvEntry{value: []byte(strconv.FormatInt(cur, 10))}
	return nil
}

// Expire sets TTL on a key. When nx=true, only keys without an expiry
// are touched (EXPIRE NX semantics).
func (s *Store) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.kv[key]
	if !ok || expired(e) {
		return nil
	}
	if nx && !e.expiresAt.IsZero() {
		return nil
	}
	e.expiresAt = time.Now().Add(ttl)
	s.kv[key] = e
	return nil
}

func expired(e kvEntry) bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// globMatch matches Redis-style patterns supporting '*' and '?'.
func globMatch(pattern, s string) bool {
	p, n := 0, 0
	starP, starN := -1, 0
	for n < len(s) {
		switch {
		case p < len(pattern) && (pattern[p] == '?' || pattern[p] == s[n]):
			p++
			n++
		case p < len(pattern) && pattern[p] == '*':
			starP = p
			starN = n
			p++
		case starP >= 0:
			starN++
			p = starP + 1
			n = starN
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}
