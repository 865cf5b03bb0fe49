package fusedex

// Mode controls which retrieval branches a query exercises.
type Mode string

// Retrieval mode constants.
const (
	// ModeHybrid fans out to both indices and fuses the ranked lists.
	ModeHybrid Mode = "hybrid"
	// ModeSparse forces the lexical branch only (no embedding call).
	ModeSparse Mode = "sparse"
	// ModeDense forces the vector branch only.
	ModeDense Mode = "dense"
)

// Metric selects the similarity metric of the vector index.
type Metric string

// Similarity metric constants.
const (
	MetricIP     Metric = "ip"
	MetricCosine Metric = "cosine"
	MetricL2     Metric = "l2"
)

// MetaPair is a single metadata entry. Chunk metadata keeps insertion
// order through storage round-trips.
type MetaPair struct {
	Key   string
	Value any
}

// Chunk is one unit of retrievable text submitted for ingestion.
// A missing ID is assigned a UUID by the engine.
type Chunk struct {
	ID   string
	Text string
	Meta []MetaPair
}

// Hit is a single fused retrieval result.
type Hit struct {
	ID    string
	Text  string
	Score float64 // accumulated reciprocal rank fusion score
	Meta  []MetaPair
}

// Outcome identifies which retrieval branches produced the hits.
type Outcome string

// Outcome constants.
const (
	// OutcomeFused means both branches responded and were merged.
	OutcomeFused Outcome = "fused"
	// OutcomeSparseOnly means only the lexical branch contributed.
	OutcomeSparseOnly Outcome = "sparse_only"
	// OutcomeDenseOnly means only the vector branch contributed.
	OutcomeDenseOnly Outcome = "dense_only"
)

// Result is the outcome of one Query call. Degraded is true when a
// hybrid query lost a branch and fell back to single-index ranking.
type Result struct {
	Hits            []Hit
	Outcome         Outcome
	Degraded        bool
	EmbeddingTokens int // tokens the query embedding consumed (0 on cache hit)
}

// QueryOptions configures a single Query call. The zero value uses the
// engine defaults: hybrid mode, the configured topK and RRF constant.
type QueryOptions struct {
	Mode Mode
	TopK int
	RRFK int
}

// IngestResult is the outcome of ingesting one chunk.
type IngestResult struct {
	ID  string
	OK  bool
	Err error
}

// IngestReport aggregates per-chunk outcomes of one Ingest call, aligned
// with the input order.
type IngestReport struct {
	Results         []IngestResult
	Succeeded       int
	Failed          int
	EmbeddingTokens int
}

// Stats is a corpus census across both indices. InSync reports whether
// the indices hold the same number of chunks, the fusion precondition.
type Stats struct {
	SparseChunks int
	SparseTerms  int
	DenseChunks  int
	InSync       bool
}

// BudgetAction defines behavior when the embedding token budget is exceeded.
type BudgetAction string

// Budget action constants.
const (
	// BudgetActionWarn logs a warning but allows the request.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the request with ErrEmbeddingQuotaExceeded.
	BudgetActionReject BudgetAction = "reject"
)
