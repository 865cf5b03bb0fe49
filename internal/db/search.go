package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	ReturnFields []string
	// Metric decides how the driver converts backend distance to a
	// similarity score (cosine clamps to [0,1], IP does not).
	Metric DistanceMetric
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit. Score is a similarity, higher is closer.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
