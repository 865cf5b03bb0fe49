package fusedex

import (
	"github.com/kailas-cloud/fusedex/internal/domain/chunk"
	domingest "github.com/kailas-cloud/fusedex/internal/domain/ingest"
	"github.com/kailas-cloud/fusedex/internal/domain/search/result"
)

// metaFromPairs converts public metadata to the ordered domain form.
func metaFromPairs(pairs []MetaPair) chunk.Metadata {
	if len(pairs) == 0 {
		return chunk.Metadata{}
	}
	ps := make([]chunk.Pair, len(pairs))
	for i, p := range pairs {
		ps[i] = chunk.Pair{Key: p.Key, Value: p.Value}
	}
	return chunk.MetadataFromPairs(ps)
}

// pairsFromMeta converts domain metadata back, preserving insertion order.
func pairsFromMeta(m chunk.Metadata) []MetaPair {
	ps := m.Pairs()
	if len(ps) == 0 {
		return nil
	}
	out := make([]MetaPair, len(ps))
	for i, p := range ps {
		out[i] = MetaPair{Key: p.Key, Value: p.Value}
	}
	return out
}

func toResult(res *result.Result, tokens int) Result {
	hits := make([]Hit, 0, res.Len())
	for _, h := range res.Hits() {
		hits = append(hits, Hit{
			ID:    h.ID(),
			Text:  h.Text(),
			Score: h.RRFScore(),
			Meta:  pairsFromMeta(h.Metadata()),
		})
	}
	return Result{
		Hits:            hits,
		Outcome:         Outcome(res.Outcome()),
		Degraded:        res.Degraded(),
		EmbeddingTokens: tokens,
	}
}

func toIngestReport(rep domingest.Report, tokens int) IngestReport {
	results := rep.Results()
	out := make([]IngestResult, len(results))
	for i, r := range results {
		out[i] = IngestResult{
			ID:  r.ID(),
			OK:  r.Status() == domingest.StatusOK,
			Err: r.Err(),
		}
	}
	return IngestReport{
		Results:         out,
		Succeeded:       rep.Succeeded(),
		Failed:          rep.Failed(),
		EmbeddingTokens: tokens,
	}
}
