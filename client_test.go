package fusedex

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

// --- Fakes ---

// axisWords pin test vectors to axes: a text containing the i-th word
// embeds as the i-th unit vector, so inner-product KNN ranks by shared
// marker words and the tests control relatedness through the data.
var axisWords = [...]string{"kernel", "garden", "violin", "nebula"}

const fakeDims = len(axisWords)

func axisVector(text string) []float32 {
	vec := make([]float32, fakeDims)
	lower := strings.ToLower(text)
	for i, w := range axisWords {
		if strings.Contains(lower, w) {
			vec[i] = 1
		}
	}
	return vec
}

// fakeEmbedder implements Embedder only; batch ingestion goes through
// the per-text fallback.
type fakeEmbedder struct {
	mu     sync.Mutex
	embeds int
	err    error
}

const fakeTokensPerText = 5

func (f *fakeEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	f.mu.Lock()
	f.embeds++
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return EmbeddingResult{}, err
	}
	return EmbeddingResult{
		Embedding:    axisVector(text),
		PromptTokens: fakeTokensPerText,
		TotalTokens:  fakeTokensPerText,
	}, nil
}

func (f *fakeEmbedder) embedCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.embeds
}

func (f *fakeEmbedder) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// fakeBatchEmbedder adds a native batch path and a health endpoint.
type fakeBatchEmbedder struct {
	fakeEmbedder
	batches   int
	healthErr error
}

func (f *fakeBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	f.mu.Lock()
	f.batches++
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return BatchEmbeddingResult{}, err
	}
	out := BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, text := range texts {
		out.Embeddings[i] = axisVector(text)
		out.PromptTokens += fakeTokensPerText
		out.TotalTokens += fakeTokensPerText
	}
	return out, nil
}

func (f *fakeBatchEmbedder) batchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batches
}

func (f *fakeBatchEmbedder) HealthCheck(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthErr
}

// --- Helpers ---

func newMemRetriever(t *testing.T, emb Embedder, extra ...Option) *Retriever {
	t.Helper()
	opts := append([]Option{
		WithMemoryBackend(),
		WithDimensions(fakeDims),
	}, extra...)
	if emb != nil {
		opts = append(opts, WithEmbedder(emb))
	}
	rx, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		if err := rx.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return rx
}

func mustIngest(t *testing.T, rx *Retriever, chunks ...Chunk) IngestReport {
	t.Helper()
	report, err := rx.Ingest(context.Background(), chunks)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Failed != 0 {
		t.Fatalf("Ingest failed %d chunks: %+v", report.Failed, report.Results)
	}
	return report
}

func corpusChunks() []Chunk {
	return []Chunk{
		{ID: "c1", Text: "the kernel schedules threads across cores"},
		{ID: "c2", Text: "a garden needs water and patient hands"},
		{ID: "c3", Text: "the violin section carried the slow movement"},
	}
}

func hitIDs(res Result) []string {
	ids := make([]string, len(res.Hits))
	for i, h := range res.Hits {
		ids[i] = h.ID
	}
	return ids
}

// --- Construction ---

func TestNew_RequiresBackend(t *testing.T) {
	_, err := New()
	if err == nil {
		t.Fatal("expected error without a backend option")
	}
	if !strings.Contains(err.Error(), "backend required") {
		t.Errorf("error = %q, want mention of backend required", err)
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "dynamo"}
	if _, err := createStore(cfg); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestNew_MemBackend(t *testing.T) {
	rx := newMemRetriever(t, &fakeEmbedder{})
	if err := rx.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

// --- Ingest + Query round trip ---

func TestRetriever_IngestAndQuery(t *testing.T) {
	emb := &fakeEmbedder{}
	rx := newMemRetriever(t, emb)
	ctx := context.Background()

	report := mustIngest(t, rx, corpusChunks()...)
	if report.Succeeded != 3 {
		t.Fatalf("Succeeded = %d, want 3", report.Succeeded)
	}
	if report.EmbeddingTokens != 3*fakeTokensPerText {
		t.Errorf("EmbeddingTokens = %d, want %d", report.EmbeddingTokens, 3*fakeTokensPerText)
	}

	res, err := rx.Query(ctx, "how does the kernel schedule work", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Outcome != OutcomeFused {
		t.Errorf("Outcome = %q, want %q", res.Outcome, OutcomeFused)
	}
	if res.Degraded {
		t.Error("Degraded = true for a healthy hybrid query")
	}
	if len(res.Hits) == 0 {
		t.Fatal("no hits")
	}
	if res.Hits[0].ID != "c1" {
		t.Errorf("top hit = %q, want c1 (ids %v)", res.Hits[0].ID, hitIDs(res))
	}
	if res.Hits[0].Score <= 0 {
		t.Errorf("top score = %v, want > 0", res.Hits[0].Score)
	}
	if res.EmbeddingTokens != fakeTokensPerText {
		t.Errorf("EmbeddingTokens = %d, want %d", res.EmbeddingTokens, fakeTokensPerText)
	}
}

func TestRetriever_Query_SparseMode_SkipsEmbedding(t *testing.T) {
	emb := &fakeEmbedder{}
	rx := newMemRetriever(t, emb)
	ctx := context.Background()
	mustIngest(t, rx, corpusChunks()...)
	before := emb.embedCalls()

	res, err := rx.Query(ctx, "garden water", &QueryOptions{Mode: ModeSparse})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Outcome != OutcomeSparseOnly {
		t.Errorf("Outcome = %q, want %q", res.Outcome, OutcomeSparseOnly)
	}
	if res.Degraded {
		t.Error("forced sparse mode must not be flagged degraded")
	}
	if got := emb.embedCalls(); got != before {
		t.Errorf("embed calls = %d, want %d (sparse mode must not embed)", got, before)
	}
	if len(res.Hits) == 0 || res.Hits[0].ID != "c2" {
		t.Errorf("hits = %v, want c2 first", hitIDs(res))
	}
}

func TestRetriever_Query_DenseMode(t *testing.T) {
	rx := newMemRetriever(t, &fakeEmbedder{})
	ctx := context.Background()
	mustIngest(t, rx, corpusChunks()...)

	res, err := rx.Query(ctx, "violin", &QueryOptions{Mode: ModeDense})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Outcome != OutcomeDenseOnly {
		t.Errorf("Outcome = %q, want %q", res.Outcome, OutcomeDenseOnly)
	}
	if len(res.Hits) == 0 || res.Hits[0].ID != "c3" {
		t.Errorf("hits = %v, want c3 first", hitIDs(res))
	}
}

func TestRetriever_Query_InvalidRequest(t *testing.T) {
	rx := newMemRetriever(t, &fakeEmbedder{})
	ctx := context.Background()

	cases := []struct {
		name  string
		query string
		opts  *QueryOptions
	}{
		{name: "empty query", query: "", opts: nil},
		{name: "bad mode", query: "x", opts: &QueryOptions{Mode: "fuzzy"}},
		{name: "negative rrf k", query: "x", opts: &QueryOptions{RRFK: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := rx.Query(ctx, tc.query, tc.opts)
			if !errors.Is(err, ErrInvalidQuery) {
				t.Errorf("err = %v, want ErrInvalidQuery", err)
			}
		})
	}
}

func TestRetriever_Ingest_AssignsIDs(t *testing.T) {
	rx := newMemRetriever(t, &fakeEmbedder{})

	report := mustIngest(t, rx, Chunk{Text: "a kernel without a name"})
	if len(report.Results) != 1 {
		t.Fatalf("Results = %d, want 1", len(report.Results))
	}
	id := report.Results[0].ID
	if id == "" {
		t.Fatal("generated id is empty")
	}
	if len(id) != 36 {
		t.Errorf("id = %q, want a UUID", id)
	}

	res, err := rx.Query(context.Background(), "kernel", &QueryOptions{Mode: ModeSparse})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.Hits) != 1 || res.Hits[0].ID != id {
		t.Errorf("hits = %v, want the generated id %q", hitIDs(res), id)
	}
}

func TestRetriever_Ingest_PartialFailure(t *testing.T) {
	rx := newMemRetriever(t, &fakeEmbedder{})

	report, err := rx.Ingest(context.Background(), []Chunk{
		{ID: "ok-1", Text: "the garden in spring"},
		{ID: "bad id!", Text: "rejected for its id"},
		{ID: "ok-2", Text: "a violin in the rain"},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Succeeded != 2 || report.Failed != 1 {
		t.Fatalf("Succeeded/Failed = %d/%d, want 2/1", report.Succeeded, report.Failed)
	}
	bad := report.Results[1]
	if bad.OK {
		t.Error("malformed chunk reported OK")
	}
	if !errors.Is(bad.Err, ErrIndexing) {
		t.Errorf("bad.Err = %v, want ErrIndexing", bad.Err)
	}
}

func TestRetriever_MetadataRoundTrip(t *testing.T) {
	rx := newMemRetriever(t, &fakeEmbedder{})
	ctx := context.Background()

	meta := []MetaPair{
		{Key: "source", Value: "manual.pdf"},
		{Key: "page", Value: 12},
		{Key: "lang", Value: "en"},
	}
	mustIngest(t, rx, Chunk{ID: "m1", Text: "a nebula seen from the garden", Meta: meta})

	res, err := rx.Query(ctx, "nebula", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.Hits) == 0 {
		t.Fatal("no hits")
	}
	got := res.Hits[0].Meta
	if len(got) != len(meta) {
		t.Fatalf("meta pairs = %d, want %d", len(got), len(meta))
	}
	for i := range meta {
		if got[i].Key != meta[i].Key {
			t.Errorf("meta[%d].Key = %q, want %q (order must survive)", i, got[i].Key, meta[i].Key)
		}
	}
	if got[1].Value != float64(12) && got[1].Value != 12 {
		t.Errorf("meta[1].Value = %v (%T), want 12", got[1].Value, got[1].Value)
	}
}

// --- Degradation ---

func TestRetriever_Query_DegradesWhenEmbedderFails(t *testing.T) {
	emb := &fakeEmbedder{}
	rx := newMemRetriever(t, emb)
	ctx := context.Background()
	mustIngest(t, rx, corpusChunks()...)

	emb.setErr(errors.New("provider down"))

	res, err := rx.Query(ctx, "kernel threads", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Outcome != OutcomeSparseOnly {
		t.Errorf("Outcome = %q, want %q", res.Outcome, OutcomeSparseOnly)
	}
	if !res.Degraded {
		t.Error("Degraded = false, want true")
	}
	if len(res.Hits) == 0 || res.Hits[0].ID != "c1" {
		t.Errorf("hits = %v, want c1 first", hitIDs(res))
	}
}

func TestRetriever_Query_DenseMode_FailsWhenEmbedderFails(t *testing.T) {
	emb := &fakeEmbedder{}
	rx := newMemRetriever(t, emb)
	ctx := context.Background()
	mustIngest(t, rx, corpusChunks()...)

	emb.setErr(errors.New("provider down"))

	_, err := rx.Query(ctx, "kernel", &QueryOptions{Mode: ModeDense})
	if !errors.Is(err, ErrRetrievalUnavailable) {
		t.Errorf("err = %v, want ErrRetrievalUnavailable", err)
	}
}

func TestRetriever_NoEmbedder_IngestReportsFailure(t *testing.T) {
	rx := newMemRetriever(t, nil)
	ctx := context.Background()

	report, err := rx.Ingest(ctx, corpusChunks())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Succeeded != 0 || report.Failed != 3 {
		t.Fatalf("Succeeded/Failed = %d/%d, want 0/3 without an embedder", report.Succeeded, report.Failed)
	}
	for _, r := range report.Results {
		if !errors.Is(r.Err, ErrEmbeddingUnavailable) {
			t.Errorf("result %q err = %v, want ErrEmbeddingUnavailable", r.ID, r.Err)
		}
	}
}

// --- Delete / Stats / Drop ---

func TestRetriever_DeleteAndStats(t *testing.T) {
	rx := newMemRetriever(t, &fakeEmbedder{})
	ctx := context.Background()
	mustIngest(t, rx, corpusChunks()...)

	st, err := rx.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.SparseChunks != 3 || st.DenseChunks != 3 || !st.InSync {
		t.Fatalf("Stats = %+v, want 3/3 in sync", st)
	}
	if st.SparseTerms == 0 {
		t.Error("SparseTerms = 0, want > 0")
	}

	removed, err := rx.Delete(ctx, "c2", "no-such-id")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	st, err = rx.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.SparseChunks != 2 || st.DenseChunks != 2 || !st.InSync {
		t.Errorf("Stats after delete = %+v, want 2/2 in sync", st)
	}

	res, err := rx.Query(ctx, "garden water", &QueryOptions{Mode: ModeSparse})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	for _, id := range hitIDs(res) {
		if id == "c2" {
			t.Error("deleted chunk still searchable")
		}
	}
}

func TestRetriever_Drop(t *testing.T) {
	rx := newMemRetriever(t, &fakeEmbedder{})
	ctx := context.Background()
	mustIngest(t, rx, corpusChunks()...)

	if err := rx.Drop(ctx); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	st, err := rx.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.SparseChunks != 0 || st.DenseChunks != 0 {
		t.Errorf("Stats after drop = %+v, want empty", st)
	}

	// The corpus is usable again after a drop.
	mustIngest(t, rx, Chunk{ID: "again", Text: "the garden after the drop"})
	res, err := rx.Query(ctx, "garden", &QueryOptions{Mode: ModeSparse})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.Hits) != 1 || res.Hits[0].ID != "again" {
		t.Errorf("hits = %v, want [again]", hitIDs(res))
	}
}

// --- Embedding pipeline wiring ---

func TestRetriever_BatchEmbedder_UsedForIngest(t *testing.T) {
	emb := &fakeBatchEmbedder{}
	rx := newMemRetriever(t, emb)

	mustIngest(t, rx, corpusChunks()...)
	if got := emb.batchCalls(); got != 1 {
		t.Errorf("batch calls = %d, want 1", got)
	}
	if got := emb.embedCalls(); got != 0 {
		t.Errorf("single embed calls = %d, want 0 when batching is native", got)
	}
}

func TestRetriever_LocalCache_SkipsRepeatEmbedding(t *testing.T) {
	emb := &fakeEmbedder{}
	rx := newMemRetriever(t, emb, WithLocalEmbeddingCache(100))
	ctx := context.Background()
	mustIngest(t, rx, corpusChunks()...)

	first, err := rx.Query(ctx, "kernel threads", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if first.EmbeddingTokens != fakeTokensPerText {
		t.Errorf("first EmbeddingTokens = %d, want %d", first.EmbeddingTokens, fakeTokensPerText)
	}
	calls := emb.embedCalls()

	second, err := rx.Query(ctx, "kernel threads", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if second.EmbeddingTokens != 0 {
		t.Errorf("second EmbeddingTokens = %d, want 0 on cache hit", second.EmbeddingTokens)
	}
	if got := emb.embedCalls(); got != calls {
		t.Errorf("embed calls = %d, want %d (cache must absorb the repeat)", got, calls)
	}
	if second.Outcome != OutcomeFused {
		t.Errorf("Outcome = %q, want %q", second.Outcome, OutcomeFused)
	}
}

func TestRetriever_Budget_RejectDegradesQueries(t *testing.T) {
	emb := &fakeEmbedder{}
	// Three ingested chunks consume exactly the daily limit.
	rx := newMemRetriever(t, emb,
		WithEmbeddingBudget(3*fakeTokensPerText, 0, BudgetActionReject),
	)
	ctx := context.Background()
	mustIngest(t, rx, corpusChunks()...)

	res, err := rx.Query(ctx, "kernel threads", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Outcome != OutcomeSparseOnly || !res.Degraded {
		t.Errorf("Outcome/Degraded = %q/%v, want sparse_only degraded", res.Outcome, res.Degraded)
	}

	report, err := rx.Ingest(ctx, []Chunk{{ID: "c4", Text: "over budget"}})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Failed != 1 {
		t.Fatalf("Failed = %d, want 1", report.Failed)
	}
	if !errors.Is(report.Results[0].Err, ErrEmbeddingQuotaExceeded) {
		t.Errorf("err = %v, want ErrEmbeddingQuotaExceeded", report.Results[0].Err)
	}
}

// --- Health ---

func TestRetriever_Health(t *testing.T) {
	t.Run("embedder with health endpoint", func(t *testing.T) {
		emb := &fakeBatchEmbedder{}
		rx := newMemRetriever(t, emb)

		hs := rx.Health(context.Background())
		if hs.Status != "ok" {
			t.Errorf("Status = %q, want ok", hs.Status)
		}
		if hs.Checks["backend"] != "ok" || hs.Checks["embedding"] != "ok" {
			t.Errorf("Checks = %v, want backend and embedding ok", hs.Checks)
		}
	})

	t.Run("embedding provider down", func(t *testing.T) {
		emb := &fakeBatchEmbedder{healthErr: errors.New("503")}
		rx := newMemRetriever(t, emb)

		hs := rx.Health(context.Background())
		if hs.Status != "degraded" {
			t.Errorf("Status = %q, want degraded", hs.Status)
		}
		if hs.Checks["embedding"] != "error" {
			t.Errorf("Checks = %v, want embedding error", hs.Checks)
		}
	})

	t.Run("embedder without health endpoint", func(t *testing.T) {
		rx := newMemRetriever(t, &fakeEmbedder{})

		hs := rx.Health(context.Background())
		if hs.Status != "ok" {
			t.Errorf("Status = %q, want ok", hs.Status)
		}
		if _, ok := hs.Checks["embedding"]; ok {
			t.Error("embedding check present for an embedder without a health endpoint")
		}
	})
}

// --- Usage ---

func TestRetriever_Usage(t *testing.T) {
	emb := &fakeEmbedder{}
	rx := newMemRetriever(t, emb,
		WithEmbeddingBudget(1000, 0, BudgetActionWarn),
	)
	ctx := context.Background()
	mustIngest(t, rx, corpusChunks()...)

	report := rx.Usage(ctx, PeriodDay)
	if report.Period != PeriodDay {
		t.Errorf("Period = %q, want day", report.Period)
	}
	if report.TokensUsed != 3*fakeTokensPerText {
		t.Errorf("TokensUsed = %d, want %d", report.TokensUsed, 3*fakeTokensPerText)
	}
	if report.Budget.TokensLimit != 1000 {
		t.Errorf("TokensLimit = %d, want 1000", report.Budget.TokensLimit)
	}
	if report.Budget.IsExhausted {
		t.Error("IsExhausted = true under the limit")
	}
	if !report.PeriodEnd.After(report.PeriodStart) {
		t.Errorf("period %v..%v is not a forward range", report.PeriodStart, report.PeriodEnd)
	}
	if report.Corpus == "" {
		t.Error("Corpus is empty")
	}
}

func TestRetriever_Usage_NoBudget(t *testing.T) {
	rx := newMemRetriever(t, &fakeEmbedder{})

	report := rx.Usage(context.Background(), PeriodMonth)
	if report.Budget.TokensLimit != 0 {
		t.Errorf("TokensLimit = %d, want 0 without a budget", report.Budget.TokensLimit)
	}
	if report.Budget.IsExhausted {
		t.Error("IsExhausted = true without a budget")
	}
}
