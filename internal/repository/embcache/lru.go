package embcache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kailas-cloud/fusedex/internal/db"
)

// defaultLRUSize bounds the cache when the caller passes no size.
const defaultLRUSize = 10000

// LRU is an in-process cache store for embedded deployments without a
// backend KV space. Capacity-bound; TTLs are ignored since LRU eviction
// already bounds memory.
type LRU struct {
	cache *lru.Cache[string, []byte]
}

// NewLRU creates an in-process cache holding up to size entries.
func NewLRU(size int) *LRU {
	if size <= 0 {
		size = defaultLRUSize
	}
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		// only reachable with a non-positive size
		cache, _ = lru.New[string, []byte](defaultLRUSize)
	}
	return &LRU{cache: cache}
}

// Get returns a cached entry.
func (l *LRU) Get(_ context.Context, key string) ([]byte, error) {
	if data, ok := l.cache.Get(key); ok {
		return data, nil
	}
	return nil, db.ErrKeyNotFound
}

// Set stores an entry, evicting the least recently used one at capacity.
func (l *LRU) Set(_ context.Context, key string, value []byte) error {
	l.cache.Add(key, value)
	return nil
}

// SetWithTTL stores an entry ignoring the TTL.
func (l *LRU) SetWithTTL(ctx context.Context, key string, value []byte, _ time.Duration) error {
	return l.Set(ctx, key, value)
}

// Len returns the number of cached entries.
func (l *LRU) Len() int {
	return l.cache.Len()
}

// Purge empties the cache.
func (l *LRU) Purge() {
	l.cache.Purge()
}
