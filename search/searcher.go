package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/crawlindex/ai"
	"github.com/poiesic/crawlindex/core"
	"github.com/poiesic/crawlindex/embedding"
	"github.com/poiesic/crawlindex/retry"
	"github.com/poiesic/crawlindex/storage"
)

// Searcher runs semantic search over chunks and code examples.
type Searcher struct {
	chunkRepository       storage.ChunkRepository
	codeExampleRepository storage.CodeExampleRepository
	embedder              *embedding.Adapter
	policy                retry.Policy
	logger                *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithRetryPolicy replaces the retry policy used to embed queries.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(s *Searcher) error {
		if err := policy.Validate(); err != nil {
			return err
		}
		s.policy = policy
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	chunkRepository storage.ChunkRepository,
	codeExampleRepository storage.CodeExampleRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Searcher, error) {
	if chunkRepository == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if codeExampleRepository == nil {
		return nil, ErrCodeExampleRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		chunkRepository:       chunkRepository,
		codeExampleRepository: codeExampleRepository,
		policy:                retry.DefaultPolicy(),
		logger:                slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	var err error
	s.embedder, err = embedding.NewAdapter(provider.Embedder(), provider.Dimensions(),
		embedding.WithLogger(s.logger), embedding.WithRetryPolicy(s.policy))
	if err != nil {
		return nil, err
	}
	s.logger = s.logger.With("component", "search")

	return s, nil
}

// SearchDocuments returns up to matchCount chunks most similar to query.
// A matchCount of zero or less means DefaultMatchCount. An empty filter
// matches every chunk. Failures yield an empty list.
func (s *Searcher) SearchDocuments(ctx context.Context, query string, matchCount int, filter core.Metadata) []*core.ChunkMatch {
	return s.SearchDocumentsWithMonitor(ctx, query, matchCount, filter, nil)
}

// SearchDocumentsWithMonitor is SearchDocuments reporting each stage to monitor.
func (s *Searcher) SearchDocumentsWithMonitor(ctx context.Context, query string, matchCount int, filter core.Metadata, monitor SearchMonitor) []*core.ChunkMatch {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	start := time.Now()
	monitor.Start(KindDocuments, query)

	results := []*core.ChunkMatch{}
	if vector, ok := s.embedQuery(ctx, query, monitor); ok {
		matches, err := s.chunkRepository.MatchChunks(ctx, vector, normalizeMatchCount(matchCount), filter)
		if err != nil {
			s.logger.Error("error searching documents", "query", query, "err", err)
			monitor.Failed(StageMatch, err)
		} else if matches != nil {
			results = matches
		}
	}

	monitor.Finish(len(results), time.Since(start))
	return results
}

// SearchCodeExamples returns up to matchCount code examples most similar to
// query. sourceID restricts results to one source when non-empty.
// Failures yield an empty list.
func (s *Searcher) SearchCodeExamples(ctx context.Context, query string, matchCount int, filter core.Metadata, sourceID string) []*core.CodeExampleMatch {
	return s.SearchCodeExamplesWithMonitor(ctx, query, matchCount, filter, sourceID, nil)
}

// SearchCodeExamplesWithMonitor is SearchCodeExamples reporting each stage to monitor.
func (s *Searcher) SearchCodeExamplesWithMonitor(ctx context.Context, query string, matchCount int, filter core.Metadata, sourceID string, monitor SearchMonitor) []*core.CodeExampleMatch {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	start := time.Now()
	monitor.Start(KindCodeExamples, query)

	results := []*core.CodeExampleMatch{}
	if vector, ok := s.embedQuery(ctx, CodeQuery(query), monitor); ok {
		matches, err := s.codeExampleRepository.MatchCodeExamples(ctx, vector, normalizeMatchCount(matchCount), filter, sourceID)
		if err != nil {
			s.logger.Error("error searching code examples", "query", query, "source", sourceID, "err", err)
			monitor.Failed(StageMatch, err)
		} else if matches != nil {
			results = matches
		}
	}

	monitor.Finish(len(results), time.Since(start))
	return results
}

// embedQuery embeds text, reporting a zero vector as a failure.
func (s *Searcher) embedQuery(ctx context.Context, text string, monitor SearchMonitor) ([]float32, bool) {
	vector := s.embedder.EmbedSingle(ctx, text)
	if embedding.IsZero(vector) {
		s.logger.Warn("query produced no embedding, returning no results", "query", text)
		monitor.Failed(StageEmbedding, ErrQueryNotEmbedded)
		return nil, false
	}
	monitor.AfterEmbedding(len(vector))
	return vector, true
}
