package ingest

// ItemStatus is the processing outcome of a single ingested chunk.
type ItemStatus string

// Chunk item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of ingesting one chunk.
type Result struct {
	id     string
	status ItemStatus
	err    error
}

// NewOK creates a successful item result.
func NewOK(id string) Result { return Result{id: id, status: StatusOK} }

// NewError creates a failed item result.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the chunk identifier.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Report aggregates per-chunk outcomes of one ingestion batch, aligned with
// the input order.
type Report struct {
	results []Result
}

// NewReport creates a report over per-item results.
func NewReport(results []Result) Report { return Report{results: results} }

// Results returns per-item outcomes in input order.
func (r Report) Results() []Result { return r.results }

// Succeeded returns the number of indexed chunks.
func (r Report) Succeeded() int {
	n := 0
	for _, item := range r.results {
		if item.Status() == StatusOK {
			n++
		}
	}
	return n
}

// Failed returns the number of rejected chunks.
func (r Report) Failed() int { return len(r.results) - r.Succeeded() }

// RejectedIDs returns the ids of all rejected chunks, in input order.
func (r Report) RejectedIDs() []string {
	var ids []string
	for _, item := range r.results {
		if item.Status() == StatusError {
			ids = append(ids, item.ID())
		}
	}
	return ids
}
