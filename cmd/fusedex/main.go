// Command fusedex is a thin CLI over the retrieval engine: it loads the
// engine from a YAML config and exposes ingest/query/corpus maintenance
// for scripting and smoke tests. Chunks go in as JSON lines, results
// come out as JSON lines.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/kailas-cloud/fusedex"
	"github.com/kailas-cloud/fusedex/internal/version"
)

const ingestBatchSize = 256

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			usage()
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "fusedex:", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

func usage() {
	fmt.Fprint(os.Stderr, `usage: fusedex [-config file] <command> [arguments]

commands:
	ingest [file]    index chunks from a JSONL file (default stdin);
	                 one {"id","text","meta"} object per line
	query <text>     retrieve chunks (-mode hybrid|sparse|dense, -k N)
	delete <id>...   remove chunks from both indices
	stats            print the corpus census
	health           probe backend and embedding provider (exit 1 if not ok)
	usage            print token consumption (-period day|month|total)
	drop -yes        delete the whole corpus
	version          print build information
`)
}

func run(args []string) error {
	global := flag.NewFlagSet("fusedex", flag.ContinueOnError)
	global.Usage = func() {}
	configPath := global.String("config", "fusedex.yaml", "engine config file")
	if err := global.Parse(args); err != nil {
		return errUsage
	}
	rest := global.Args()
	if len(rest) == 0 {
		return errUsage
	}
	cmd, cmdArgs := rest[0], rest[1:]

	if cmd == "version" {
		fmt.Printf("fusedex %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rx, err := fusedex.NewFromConfig(*configPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rx.Close(); cerr != nil {
			fmt.Fprintln(os.Stderr, "fusedex: close:", cerr)
		}
	}()

	switch cmd {
	case "ingest":
		return runIngest(ctx, rx, cmdArgs)
	case "query":
		return runQuery(ctx, rx, cmdArgs)
	case "delete":
		return runDelete(ctx, rx, cmdArgs)
	case "stats":
		return runStats(ctx, rx)
	case "health":
		return runHealth(ctx, rx)
	case "usage":
		return runUsage(ctx, rx, cmdArgs)
	case "drop":
		return runDrop(ctx, rx, cmdArgs)
	default:
		return errUsage
	}
}

// chunkLine is the JSONL ingestion format. Meta is an ordered map so
// metadata key order survives the trip through the engine.
type chunkLine struct {
	ID   string                              `json:"id"`
	Text string                              `json:"text"`
	Meta *orderedmap.OrderedMap[string, any] `json:"meta"`
}

func (l chunkLine) toChunk() fusedex.Chunk {
	c := fusedex.Chunk{ID: l.ID, Text: l.Text}
	if l.Meta != nil {
		for p := l.Meta.Oldest(); p != nil; p = p.Next() {
			c.Meta = append(c.Meta, fusedex.MetaPair{Key: p.Key, Value: p.Value})
		}
	}
	return c
}

func runIngest(ctx context.Context, rx *fusedex.Retriever, args []string) error {
	in := io.Reader(os.Stdin)
	if len(args) > 1 {
		return errUsage
	}
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	var (
		batch                     []fusedex.Chunk
		line                      int
		succeeded, failed, tokens int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		report, err := rx.Ingest(ctx, batch)
		if err != nil {
			return err
		}
		succeeded += report.Succeeded
		failed += report.Failed
		tokens += report.EmbeddingTokens
		for _, r := range report.Results {
			if !r.OK {
				fmt.Fprintf(os.Stderr, "chunk %q rejected: %v\n", r.ID, r.Err)
			}
		}
		batch = batch[:0]
		return nil
	}

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var cl chunkLine
		if err := json.Unmarshal([]byte(raw), &cl); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		batch = append(batch, cl.toChunk())
		if len(batch) >= ingestBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}

	return printJSON(map[string]any{
		"succeeded":        succeeded,
		"failed":           failed,
		"embedding_tokens": tokens,
	})
}

func runQuery(ctx context.Context, rx *fusedex.Retriever, args []string) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.Usage = func() {}
	modeFlag := fs.String("mode", "", "retrieval mode: hybrid, sparse or dense")
	topK := fs.Int("k", 0, "number of results (0 = engine default)")
	if err := fs.Parse(args); err != nil || fs.NArg() == 0 {
		return errUsage
	}

	res, err := rx.Query(ctx, strings.Join(fs.Args(), " "), &fusedex.QueryOptions{
		Mode: fusedex.Mode(*modeFlag),
		TopK: *topK,
	})
	if err != nil {
		return err
	}

	for _, h := range res.Hits {
		meta := orderedmap.New[string, any]()
		for _, p := range h.Meta {
			meta.Set(p.Key, p.Value)
		}
		if err := printJSON(map[string]any{
			"id":    h.ID,
			"score": h.Score,
			"text":  h.Text,
			"meta":  meta,
		}); err != nil {
			return err
		}
	}
	if res.Degraded {
		fmt.Fprintf(os.Stderr, "warning: degraded result (%s)\n", res.Outcome)
	}
	return nil
}

func runDelete(ctx context.Context, rx *fusedex.Retriever, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	removed, err := rx.Delete(ctx, args...)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"removed": removed})
}

func runStats(ctx context.Context, rx *fusedex.Retriever) error {
	st, err := rx.Stats(ctx)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"sparse_chunks": st.SparseChunks,
		"sparse_terms":  st.SparseTerms,
		"dense_chunks":  st.DenseChunks,
		"in_sync":       st.InSync,
	})
}

func runHealth(ctx context.Context, rx *fusedex.Retriever) error {
	hs := rx.Health(ctx)
	if err := printJSON(map[string]any{
		"status": hs.Status,
		"checks": hs.Checks,
	}); err != nil {
		return err
	}
	if hs.Status != "ok" {
		return fmt.Errorf("status %s", hs.Status)
	}
	return nil
}

func runUsage(ctx context.Context, rx *fusedex.Retriever, args []string) error {
	fs := flag.NewFlagSet("usage", flag.ContinueOnError)
	fs.Usage = func() {}
	period := fs.String("period", "day", "aggregation period: day, month or total")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	report := rx.Usage(ctx, fusedex.UsagePeriod(*period))
	return printJSON(map[string]any{
		"period":       report.Period,
		"period_start": report.PeriodStart,
		"period_end":   report.PeriodEnd,
		"corpus":       report.Corpus,
		"tokens_used":  report.TokensUsed,
		"budget": map[string]any{
			"tokens_limit":     report.Budget.TokensLimit,
			"tokens_remaining": report.Budget.TokensRemaining,
			"is_exhausted":     report.Budget.IsExhausted,
			"resets_at":        report.Budget.ResetsAt,
		},
	})
}

func runDrop(ctx context.Context, rx *fusedex.Retriever, args []string) error {
	fs := flag.NewFlagSet("drop", flag.ContinueOnError)
	fs.Usage = func() {}
	yes := fs.Bool("yes", false, "confirm deleting the whole corpus")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if !*yes {
		return errors.New("drop deletes the whole corpus; re-run with -yes")
	}
	if err := rx.Drop(ctx); err != nil {
		return err
	}
	return printJSON(map[string]any{"dropped": true})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(v)
}
