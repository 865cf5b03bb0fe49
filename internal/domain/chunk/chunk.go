package chunk

import (
	"fmt"
	"regexp"

	"github.com/kailas-cloud/fusedex/internal/domain"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// MaxTextSize is the maximum chunk text size in bytes.
const MaxTextSize = 163840 // 160KB

// Chunk is the unit of retrievable text (immutable value object).
// The id is the join key wherever chunks are correlated across indices.
type Chunk struct {
	id        string
	text      string
	meta      Metadata
	embedding []float32
}

// New validates and creates a Chunk.
// ID: ^[a-zA-Z0-9_-]+$, 1-256 chars. Text: non-empty, max 160KB.
// Metadata is opaque and passed through unchanged.
func New(id, text string, meta Metadata) (Chunk, error) {
	if id == "" {
		return Chunk{}, fmt.Errorf("%w: chunk ID is required", domain.ErrIndexing)
	}
	if len(id) > 256 {
		return Chunk{}, fmt.Errorf("%w: chunk ID too long (max 256)", domain.ErrIndexing)
	}
	if !idRegex.MatchString(id) {
		return Chunk{}, fmt.Errorf("%w: chunk ID must be alphanumeric with underscores and hyphens", domain.ErrIndexing)
	}
	if text == "" {
		return Chunk{}, fmt.Errorf("%w: text is required", domain.ErrIndexing)
	}
	if len(text) > MaxTextSize {
		return Chunk{}, fmt.Errorf("%w: text too large (max %d bytes)", domain.ErrIndexing, MaxTextSize)
	}

	return Chunk{id: id, text: text, meta: meta}, nil
}

// Reconstruct creates a Chunk without validation (storage hydration).
func Reconstruct(id, text string, meta Metadata, embedding []float32) Chunk {
	return Chunk{id: id, text: text, meta: meta, embedding: embedding}
}

// ID returns the chunk identifier.
func (c *Chunk) ID() string { return c.id }

// Text returns the passage content.
func (c *Chunk) Text() string { return c.text }

// Metadata returns the ordered annotation fields.
func (c *Chunk) Metadata() Metadata { return c.meta }

// Embedding returns the attached embedding vector, nil before vectorization.
func (c *Chunk) Embedding() []float32 { return c.embedding }

// WithEmbedding returns a copy with the given vector attached.
func (c *Chunk) WithEmbedding(v []float32) Chunk {
	return Chunk{id: c.id, text: c.text, meta: c.meta, embedding: v}
}
