package chunk

import (
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Pair is a single metadata entry.
type Pair struct {
	Key   string
	Value any
}

// Metadata is an ordered set of chunk annotations with string or numeric
// values. Opaque to ranking; insertion order survives JSON round-trips.
type Metadata struct {
	om *orderedmap.OrderedMap[string, any]
}

// NewMetadata creates an empty metadata set.
func NewMetadata() Metadata {
	return Metadata{om: orderedmap.New[string, any]()}
}

// MetadataFromPairs builds metadata preserving the given order.
// Later duplicates of a key overwrite earlier ones in place.
func MetadataFromPairs(pairs []Pair) Metadata {
	m := NewMetadata()
	for _, p := range pairs {
		m.om.Set(p.Key, normalizeValue(p.Value))
	}
	return m
}

// Set stores a value under key, appending the key if it is new.
func (m Metadata) Set(key string, value any) {
	if m.om == nil {
		return
	}
	m.om.Set(key, normalizeValue(value))
}

// Get returns the value stored under key.
func (m Metadata) Get(key string) (any, bool) {
	if m.om == nil {
		return nil, false
	}
	return m.om.Get(key)
}

// Len returns the number of entries.
func (m Metadata) Len() int {
	if m.om == nil {
		return 0
	}
	return m.om.Len()
}

// Keys returns all keys in insertion order.
func (m Metadata) Keys() []string {
	if m.om == nil {
		return nil
	}
	keys := make([]string, 0, m.om.Len())
	for p := m.om.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// Pairs returns all entries in insertion order.
func (m Metadata) Pairs() []Pair {
	if m.om == nil {
		return nil
	}
	pairs := make([]Pair, 0, m.om.Len())
	for p := m.om.Oldest(); p != nil; p = p.Next() {
		pairs = append(pairs, Pair{Key: p.Key, Value: p.Value})
	}
	return pairs
}

// Clone returns an independent copy.
func (m Metadata) Clone() Metadata {
	if m.om == nil {
		return Metadata{}
	}
	return MetadataFromPairs(m.Pairs())
}

// MarshalJSON encodes entries as a JSON object in insertion order.
func (m Metadata) MarshalJSON() ([]byte, error) {
	if m.om == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m.om)
}

// UnmarshalJSON decodes a JSON object preserving document key order.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	om := orderedmap.New[string, any]()
	if err := json.Unmarshal(data, om); err != nil {
		return fmt.Errorf("unmarshal metadata: %w", err)
	}
	m.om = om
	return nil
}

// normalizeValue collapses numeric input types to float64 so values compare
// and marshal uniformly regardless of how the caller produced them.
func normalizeValue(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return n.String()
		}
		return f
	default:
		return v
	}
}
