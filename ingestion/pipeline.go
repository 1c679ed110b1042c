package ingestion

import (
	"io"
	"log/slog"

	"github.com/poiesic/crawlindex/ai"
	"github.com/poiesic/crawlindex/chunking"
	"github.com/poiesic/crawlindex/codeblock"
	"github.com/poiesic/crawlindex/contextual"
	"github.com/poiesic/crawlindex/embedding"
	"github.com/poiesic/crawlindex/retry"
	"github.com/poiesic/crawlindex/source"
	"github.com/poiesic/crawlindex/storage"
)

// DefaultBatchSize bounds the records sent to the store per insert.
const DefaultBatchSize = 20

// Pipeline orchestrates the ingestion of chunks and code examples.
type Pipeline struct {
	chunkRepository       storage.ChunkRepository
	codeExampleRepository storage.CodeExampleRepository

	resolver         *source.Resolver
	embedder         *embedding.Adapter
	contextualizer   *contextual.Contextualizer
	sourceSummarizer *source.Summarizer
	codeSummarizer   *codeblock.Summarizer
	chunker          *chunking.Chunker

	batchSize      int
	useContextual  bool
	extractCode    bool
	minCodeLength  int
	concurrency    int
	chunkSize      int
	policy         retry.Policy
	progressWriter io.Writer
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithBatchSize sets the number of records processed and inserted together.
// Default is 20.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return ErrInvalidBatchSize
		}
		p.batchSize = size
		return nil
	}
}

// WithContextualEmbeddings enables LLM contextualization of chunks before embedding.
func WithContextualEmbeddings(enabled bool) Option {
	return func(p *Pipeline) error {
		p.useContextual = enabled
		return nil
	}
}

// WithCodeExtraction enables extraction and ingestion of code examples in
// IngestDocuments.
func WithCodeExtraction(enabled bool) Option {
	return func(p *Pipeline) error {
		p.extractCode = enabled
		return nil
	}
}

// WithMinCodeLength sets the shortest code block kept by IngestDocuments.
// Default is codeblock.DefaultMinLength.
func WithMinCodeLength(n int) Option {
	return func(p *Pipeline) error {
		p.minCodeLength = max(n, 0)
		return nil
	}
}

// WithConcurrency sets the worker count of contextualization and code
// summary passes. Default is 10.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) error {
		p.concurrency = max(n, 1)
		return nil
	}
}

// WithChunkSize sets the chunk length used by IngestDocuments.
// Default is chunking.DefaultChunkSize.
func WithChunkSize(size int) Option {
	return func(p *Pipeline) error {
		p.chunkSize = size
		return nil
	}
}

// WithRetryPolicy replaces the retry policy for embedding and insert calls.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(p *Pipeline) error {
		if err := policy.Validate(); err != nil {
			return err
		}
		p.policy = policy
		return nil
	}
}

// WithProgress reports per-call progress to w. A nil writer disables reporting.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progressWriter = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	sourceRepository storage.SourceRepository,
	chunkRepository storage.ChunkRepository,
	codeExampleRepository storage.CodeExampleRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if sourceRepository == nil {
		return nil, ErrSourceRepositoryRequired
	}
	if chunkRepository == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if codeExampleRepository == nil {
		return nil, ErrCodeExampleRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	p := &Pipeline{
		chunkRepository:       chunkRepository,
		codeExampleRepository: codeExampleRepository,
		batchSize:             DefaultBatchSize,
		minCodeLength:         codeblock.DefaultMinLength,
		concurrency:           contextual.DefaultConcurrency,
		chunkSize:             chunking.DefaultChunkSize,
		policy:                retry.DefaultPolicy(),
		logger:                slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	// Create collaborators after options are applied (so they get final config)
	var err error
	if p.resolver, err = source.NewResolver(sourceRepository, source.WithLogger(p.logger)); err != nil {
		return nil, err
	}
	if p.embedder, err = embedding.NewAdapter(provider.Embedder(), provider.Dimensions(),
		embedding.WithLogger(p.logger), embedding.WithRetryPolicy(p.policy)); err != nil {
		return nil, err
	}
	if p.contextualizer, err = contextual.NewContextualizer(provider.Completer(),
		contextual.WithConcurrency(p.concurrency), contextual.WithLogger(p.logger)); err != nil {
		return nil, err
	}
	if p.sourceSummarizer, err = source.NewSummarizer(provider.Completer(), p.logger); err != nil {
		return nil, err
	}
	if p.codeSummarizer, err = codeblock.NewSummarizer(provider.Completer(),
		codeblock.WithConcurrency(p.concurrency), codeblock.WithLogger(p.logger)); err != nil {
		return nil, err
	}
	p.chunker = chunking.NewChunker(p.chunkSize)
	p.logger = p.logger.With("component", "ingestion")

	return p, nil
}

// Resolver returns the Source resolver used by the pipeline.
func (p *Pipeline) Resolver() *source.Resolver {
	return p.resolver
}

// logEmbeddingStats logs the adapter's counters since the pipeline was created.
func (p *Pipeline) logEmbeddingStats() {
	stats := p.embedder.Stats()
	p.logger.Debug("embedding totals", "batchCalls", stats.BatchCalls, "fallbacks", stats.Fallbacks,
		"blank", stats.Blank, "degraded", stats.Degraded)
}

func (p *Pipeline) newProgress(total int) *ProgressTracker {
	if p.progressWriter == nil || total == 0 {
		return nil
	}
	tracker := NewProgressTracker(p.progressWriter, total, p.batchSize)
	tracker.Start()
	return tracker
}

// batches returns the [start, end) bounds of consecutive batches over n items.
func (p *Pipeline) batches(n int) [][2]int {
	var bounds [][2]int
	for start := 0; start < n; start += p.batchSize {
		bounds = append(bounds, [2]int{start, min(start+p.batchSize, n)})
	}
	return bounds
}
