package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/crawlindex"
	"github.com/poiesic/crawlindex/config"
	"github.com/poiesic/crawlindex/core"
	"github.com/poiesic/crawlindex/ingestion"
	"github.com/poiesic/crawlindex/search"
	"github.com/poiesic/crawlindex/source"
	"github.com/urfave/cli/v2"
)

// previewChars bounds how much of a result's content is printed.
const previewChars = 240

var errQueryRequired = errors.New("a search query is required")

// loadConfig reads the environment and .env file, then applies explicitly set flags.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("store") {
		cfg.Store = strings.ToLower(c.String("store"))
	}
	if c.IsSet("badger-path") {
		cfg.BadgerPath = c.String("badger-path")
	}
	if c.IsSet("database-url") {
		cfg.DatabaseURL = c.String("database-url")
	}
	if c.IsSet("embedding-host") {
		cfg.AI.EmbeddingHost = c.String("embedding-host")
	}
	if c.IsSet("llm-host") {
		cfg.AI.CompletionHost = c.String("llm-host")
	}
	if c.IsSet("embedding-model") {
		cfg.AI.EmbeddingModel = c.String("embedding-model")
	}
	if c.IsSet("model") {
		cfg.AI.CompletionModel = c.String("model")
	}
	if c.IsSet("dimensions") {
		cfg.AI.Dimensions = c.Int("dimensions")
	}
	if c.IsSet("batch-size") {
		cfg.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("concurrency") {
		cfg.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("chunk-size") {
		cfg.ChunkSize = c.Int("chunk-size")
	}
	if c.IsSet("min-code-length") {
		cfg.MinCodeLength = c.Int("min-code-length")
	}
	if c.IsSet("contextual") {
		cfg.UseContextualEmbeddings = c.Bool("contextual")
	}
	if c.IsSet("code-examples") {
		cfg.ExtractCodeExamples = c.Bool("code-examples")
	}
	return cfg, nil
}

func (r *runner) openIndex(c *cli.Context) (*crawlindex.Index, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	opts := append([]crawlindex.IndexOption{crawlindex.WithLogger(slog.Default())}, r.openOptions...)
	ix, err := crawlindex.Open(c.Context, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return ix, nil
}

func (r *runner) newPipeline(c *cli.Context, ix *crawlindex.Index) (*ingestion.Pipeline, error) {
	var progress io.Writer
	if c.Bool("progress") {
		progress = r.errOut
	}
	return ix.NewIngestionPipeline(ingestion.WithProgress(progress))
}

func (r *runner) ingestCommand(c *cli.Context) error {
	rows, err := readInputFile[documentRow](c.String("input"))
	if err != nil {
		return fmt.Errorf("failed to read documents: %w", err)
	}

	ix, err := r.openIndex(c)
	if err != nil {
		return err
	}
	defer ix.Close()

	pipeline, err := r.newPipeline(c, ix)
	if err != nil {
		return err
	}

	report, err := pipeline.IngestDocuments(c.Context, toDocuments(rows))
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Fprintf(r.out, "Documents: %d\n", report.Documents)
	fmt.Fprintf(r.out, "Sources: %d updated, %d failed\n", report.Sources, report.SourceErrors)
	fmt.Fprintf(r.out, "Chunks: %s\n", report.Chunks)
	fmt.Fprintf(r.out, "Code examples: %s\n", report.CodeExamples)
	return nil
}

func (r *runner) ingestChunksCommand(c *cli.Context) error {
	rows, err := readInputFile[chunkRow](c.String("input"))
	if err != nil {
		return fmt.Errorf("failed to read chunks: %w", err)
	}

	var (
		urls      = make([]string, len(rows))
		numbers   = make([]int, len(rows))
		contents  = make([]string, len(rows))
		metadatas = make([]core.Metadata, len(rows))
	)
	for i, row := range rows {
		urls[i], numbers[i], contents[i], metadatas[i] = row.URL, row.ChunkNumber, row.Content, row.Metadata
	}
	chunks, err := ingestion.ChunksFromColumns(urls, numbers, contents, metadatas)
	if err != nil {
		return err
	}

	documents := map[string]string{}
	if path := c.String("documents"); path != "" {
		docs, err := readInputFile[documentRow](path)
		if err != nil {
			return fmt.Errorf("failed to read documents: %w", err)
		}
		for _, doc := range docs {
			documents[doc.URL] = doc.Markdown
		}
	}

	ix, err := r.openIndex(c)
	if err != nil {
		return err
	}
	defer ix.Close()

	pipeline, err := r.newPipeline(c, ix)
	if err != nil {
		return err
	}

	report, err := pipeline.IngestChunks(c.Context, chunks, documents)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	fmt.Fprintf(r.out, "Chunks: %s\n", report)
	return nil
}

func (r *runner) ingestCodeCommand(c *cli.Context) error {
	rows, err := readInputFile[codeExampleRow](c.String("input"))
	if err != nil {
		return fmt.Errorf("failed to read code examples: %w", err)
	}

	var (
		urls      = make([]string, len(rows))
		numbers   = make([]int, len(rows))
		codes     = make([]string, len(rows))
		summaries = make([]string, len(rows))
		metadatas = make([]core.Metadata, len(rows))
	)
	for i, row := range rows {
		urls[i], numbers[i], codes[i], summaries[i], metadatas[i] = row.URL, row.ChunkNumber, row.Code, row.Summary, row.Metadata
	}
	examples, err := ingestion.CodeExamplesFromColumns(urls, numbers, codes, summaries, metadatas)
	if err != nil {
		return err
	}

	ix, err := r.openIndex(c)
	if err != nil {
		return err
	}
	defer ix.Close()

	pipeline, err := r.newPipeline(c, ix)
	if err != nil {
		return err
	}

	report, err := pipeline.IngestCodeExamples(c.Context, examples)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	fmt.Fprintf(r.out, "Code examples: %s\n", report)
	return nil
}

// searchArgs extracts the query, filter and monitor shared by search commands.
func (r *runner) searchArgs(c *cli.Context) (string, core.Metadata, search.SearchMonitor, error) {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return "", nil, nil, errQueryRequired
	}

	var filter core.Metadata
	if raw := c.String("filter"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &filter); err != nil {
			return "", nil, nil, fmt.Errorf("invalid --filter: %w", err)
		}
	}

	var monitor search.SearchMonitor
	if c.Bool("verbose") {
		monitor = &traceMonitor{w: r.errOut}
	}
	return query, filter, monitor, nil
}

func (r *runner) searchCommand(c *cli.Context) error {
	query, filter, monitor, err := r.searchArgs(c)
	if err != nil {
		return err
	}

	ix, err := r.openIndex(c)
	if err != nil {
		return err
	}
	defer ix.Close()

	searcher, err := ix.NewSearcher()
	if err != nil {
		return err
	}

	results := searcher.SearchDocumentsWithMonitor(c.Context, query, c.Int("count"), filter, monitor)
	fmt.Fprintf(r.out, "Found %d hits\n", len(results))
	for i, hit := range results {
		fmt.Fprintf(r.out, "%d: [%0.3f] %s #%d\n", i+1, hit.Similarity, hit.Record.URL, hit.Record.ChunkNumber)
		fmt.Fprintf(r.out, "   %s\n", preview(hit.Record.Content))
	}
	return nil
}

func (r *runner) searchCodeCommand(c *cli.Context) error {
	query, filter, monitor, err := r.searchArgs(c)
	if err != nil {
		return err
	}

	ix, err := r.openIndex(c)
	if err != nil {
		return err
	}
	defer ix.Close()

	searcher, err := ix.NewSearcher()
	if err != nil {
		return err
	}

	results := searcher.SearchCodeExamplesWithMonitor(c.Context, query, c.Int("count"), filter, c.String("source"), monitor)
	fmt.Fprintf(r.out, "Found %d code examples\n", len(results))
	for i, hit := range results {
		fmt.Fprintf(r.out, "%d: [%0.3f] %s #%d\n", i+1, hit.Similarity, hit.Record.URL, hit.Record.ChunkNumber)
		fmt.Fprintf(r.out, "   Summary: %s\n", hit.Record.Summary)
		fmt.Fprintf(r.out, "   %s\n", preview(hit.Record.Content))
	}
	return nil
}

func (r *runner) sourcesCommand(c *cli.Context) error {
	ix, err := r.openIndex(c)
	if err != nil {
		return err
	}
	defer ix.Close()

	sources, err := ix.SourceRepository().ListSources(c.Context)
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}
	for _, src := range sources {
		fmt.Fprintf(r.out, "%s\t%s\t%d words\t%s\n", src.Domain, src.ID, src.TotalWords, src.Summary)
	}
	return nil
}

func (r *runner) summarizeCommand(c *cli.Context) error {
	f, err := openInput(c.String("input"))
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	content, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	ix, err := r.openIndex(c)
	if err != nil {
		return err
	}
	defer ix.Close()

	summarizer, err := source.NewSummarizer(ix.Provider().Completer(), slog.Default())
	if err != nil {
		return err
	}
	domain := c.String("domain")
	summary := summarizer.Summarize(c.Context, domain, string(content))
	fmt.Fprintln(r.out, summary)

	if !c.Bool("save") {
		return nil
	}
	resolver, err := source.NewResolver(ix.SourceRepository(), source.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	src, err := resolver.UpsertSummary(c.Context, domain, summary, len(strings.Fields(string(content))), "")
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Saved source %s (%s)\n", src.Domain, src.ID)
	return nil
}

// preview flattens content onto one line and shortens it for display.
func preview(content string) string {
	flat := strings.Join(strings.Fields(content), " ")
	if core.CharCount(flat) <= previewChars {
		return flat
	}
	return core.Head(flat, previewChars) + "..."
}

// traceMonitor prints each search stage.
type traceMonitor struct {
	w io.Writer
}

var _ search.SearchMonitor = (*traceMonitor)(nil)

func (m *traceMonitor) Start(kind, query string) {
	fmt.Fprintf(m.w, "searching %s for %q\n", kind, query)
}

func (m *traceMonitor) AfterEmbedding(dimensions int) {
	fmt.Fprintf(m.w, "embedded query (%d dimensions)\n", dimensions)
}

func (m *traceMonitor) Failed(stage string, err error) {
	fmt.Fprintf(m.w, "%s failed: %v\n", stage, err)
}

func (m *traceMonitor) Finish(results int, elapsed time.Duration) {
	fmt.Fprintf(m.w, "%d results in %s\n", results, elapsed.Round(time.Millisecond))
}
