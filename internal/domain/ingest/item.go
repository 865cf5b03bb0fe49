package ingest

import "github.com/kailas-cloud/fusedex/internal/domain/chunk"

// Item is one raw chunk submitted for ingestion, before validation.
// Metadata is passed through to the indices unchanged.
type Item struct {
	ID   string
	Text string
	Meta chunk.Metadata
}
