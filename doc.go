// Package fusedex is a hybrid retrieval engine: a BM25 sparse index and
// a vector backend queried in parallel, with the ranked lists merged by
// reciprocal rank fusion.
//
// One Retriever owns a corpus. Chunks are indexed in both branches at
// ingestion; queries fan out to both and fuse by chunk id, so a chunk
// strong in either branch surfaces. Losing one branch (embedding
// provider down, backend unreachable) degrades the result instead of
// failing the query; the Result carries the outcome.
//
// # Quick start
//
//	rx, _ := fusedex.New(
//	    fusedex.WithRedis("localhost:6379", ""),
//	    fusedex.WithOpenAIEmbedder(fusedex.OpenAIConfig{APIKey: key}),
//	)
//	defer rx.Close()
//
//	rx.Ingest(ctx, []fusedex.Chunk{
//	    {ID: "doc-1", Text: "RRF merges ranked lists without score calibration."},
//	    {ID: "doc-2", Text: "BM25 weighs term frequency against document length."},
//	})
//	res, _ := rx.Query(ctx, "how does rank fusion work", nil)
//	for _, h := range res.Hits {
//	    fmt.Println(h.ID, h.Score)
//	}
//
// # Embedded deployments
//
// WithMemoryBackend runs the whole engine in-process (tests, CLI tools,
// small corpora); WithEmbedder plugs in any embedding provider:
//
//	rx, _ := fusedex.New(
//	    fusedex.WithMemoryBackend(),
//	    fusedex.WithEmbedder(myEmbedder),
//	)
//
// Deployment-shaped setups load everything from YAML instead:
//
//	rx, err := fusedex.NewFromConfig("fusedex.yaml")
package fusedex
