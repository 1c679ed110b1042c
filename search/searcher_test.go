package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/crawlindex/ai/mock"
	"github.com/poiesic/crawlindex/core"
	"github.com/poiesic/crawlindex/retry"
	"github.com/poiesic/crawlindex/storage"
	"github.com/poiesic/crawlindex/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDims = 8

var fastPolicy = retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}

func newRepositories(t *testing.T) *badger.Repositories {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return repos
}

func newSearcher(t *testing.T, chunks storage.ChunkRepository, codes storage.CodeExampleRepository, provider *mock.MockProvider) *Searcher {
	t.Helper()
	searcher, err := NewSearcher(chunks, codes, provider, WithRetryPolicy(fastPolicy))
	require.NoError(t, err)
	return searcher
}

func addChunk(t *testing.T, repo storage.ChunkRepository, url string, n int, content string, metadata core.Metadata) {
	t.Helper()
	require.NoError(t, repo.AddChunks(context.Background(), &core.ChunkRecord{
		URL:         url,
		ChunkNumber: n,
		Content:     content,
		Metadata:    metadata,
		SourceID:    "src",
		Embedding:   mock.Vector(content, testDims),
	}))
}

// failingChunks fails every similarity query.
type failingChunks struct {
	storage.ChunkRepository
}

func (f *failingChunks) MatchChunks(ctx context.Context, vector []float32, matchCount int, filter core.Metadata) ([]*core.ChunkMatch, error) {
	return nil, errors.New("function match_chunks does not exist")
}

// recordingMonitor captures the hooks a search invokes.
type recordingMonitor struct {
	mu         sync.Mutex
	kind       string
	query      string
	dimensions int
	stages     []string
	results    int
	finished   bool
}

func (m *recordingMonitor) Start(kind, query string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kind, m.query = kind, query
}

func (m *recordingMonitor) AfterEmbedding(dimensions int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dimensions = dimensions
}

func (m *recordingMonitor) Failed(stage string, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = append(m.stages, stage)
}

func (m *recordingMonitor) Finish(results int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results, m.finished = results, true
}

func TestNewSearcher(t *testing.T) {
	repos := newRepositories(t)
	provider := mock.NewMockProvider(testDims)

	t.Run("valid configuration", func(t *testing.T) {
		searcher, err := NewSearcher(repos.Chunks, repos.CodeExamples, provider)
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("with custom logger", func(t *testing.T) {
		searcher, err := NewSearcher(repos.Chunks, repos.CodeExamples, provider, WithLogger(slog.Default()))
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		searcher, err := NewSearcher(repos.Chunks, repos.CodeExamples, provider, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("invalid retry policy", func(t *testing.T) {
		_, err := NewSearcher(repos.Chunks, repos.CodeExamples, provider, WithRetryPolicy(retry.Policy{}))
		assert.ErrorIs(t, err, retry.ErrInvalidMaxAttempts)
	})

	t.Run("nil chunk repository", func(t *testing.T) {
		_, err := NewSearcher(nil, repos.CodeExamples, provider)
		assert.Equal(t, ErrChunkRepositoryRequired, err)
	})

	t.Run("nil code example repository", func(t *testing.T) {
		_, err := NewSearcher(repos.Chunks, nil, provider)
		assert.Equal(t, ErrCodeExampleRepositoryRequired, err)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewSearcher(repos.Chunks, repos.CodeExamples, nil)
		assert.Equal(t, ErrAIProviderRequired, err)
	})
}

func TestSearchDocuments_EmptyStore(t *testing.T) {
	repos := newRepositories(t)
	provider := mock.NewMockProvider(testDims).(*mock.MockProvider)
	searcher := newSearcher(t, repos.Chunks, repos.CodeExamples, provider)

	results := searcher.SearchDocuments(context.Background(), "anything", 5, nil)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearchDocuments_RanksExactMatchFirst(t *testing.T) {
	repos := newRepositories(t)
	provider := mock.NewMockProvider(testDims).(*mock.MockProvider)
	searcher := newSearcher(t, repos.Chunks, repos.CodeExamples, provider)

	addChunk(t, repos.Chunks, "https://a.io/1", 0, "installing the client library", nil)
	addChunk(t, repos.Chunks, "https://a.io/1", 1, "configuring retries", nil)
	addChunk(t, repos.Chunks, "https://a.io/2", 0, "streaming responses", nil)

	results := searcher.SearchDocuments(context.Background(), "  configuring   retries ", 2, nil)
	require.Len(t, results, 2)
	assert.Equal(t, "configuring retries", results[0].Record.Content)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-5)
	assert.Equal(t, []string{"configuring retries"}, provider.GetMockEmbedder().Inputs()[0])
}

func TestSearchDocuments_DefaultMatchCount(t *testing.T) {
	repos := newRepositories(t)
	provider := mock.NewMockProvider(testDims).(*mock.MockProvider)
	searcher := newSearcher(t, repos.Chunks, repos.CodeExamples, provider)

	for i := range 12 {
		addChunk(t, repos.Chunks, "https://many.io/page", i, fmt.Sprintf("chunk number %d", i), nil)
	}

	assert.Len(t, searcher.SearchDocuments(context.Background(), "chunk", 0, nil), DefaultMatchCount)
	assert.Len(t, searcher.SearchDocuments(context.Background(), "chunk", -3, nil), DefaultMatchCount)
	assert.Len(t, searcher.SearchDocuments(context.Background(), "chunk", 3, nil), 3)
}

func TestSearchDocuments_Filter(t *testing.T) {
	repos := newRepositories(t)
	provider := mock.NewMockProvider(testDims).(*mock.MockProvider)
	searcher := newSearcher(t, repos.Chunks, repos.CodeExamples, provider)

	addChunk(t, repos.Chunks, "https://a.io/x", 0, "alpha", core.Metadata{"source": "a.io"})
	addChunk(t, repos.Chunks, "https://b.io/x", 0, "beta", core.Metadata{"source": "b.io"})

	results := searcher.SearchDocuments(context.Background(), "alpha", 10, core.Metadata{"source": "b.io"})
	require.Len(t, results, 1)
	assert.Equal(t, "beta", results[0].Record.Content)

	assert.Len(t, searcher.SearchDocuments(context.Background(), "alpha", 10, core.Metadata{}), 2)
}

func TestSearchDocuments_BackendFailure(t *testing.T) {
	repos := newRepositories(t)
	provider := mock.NewMockProvider(testDims).(*mock.MockProvider)
	searcher := newSearcher(t, &failingChunks{repos.Chunks}, repos.CodeExamples, provider)

	monitor := &recordingMonitor{}
	results := searcher.SearchDocumentsWithMonitor(context.Background(), "query", 5, nil, monitor)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Equal(t, []string{StageMatch}, monitor.stages)
	assert.True(t, monitor.finished)
}

func TestSearchDocuments_EmbeddingFailure(t *testing.T) {
	repos := newRepositories(t)
	provider := mock.NewMockProvider(testDims).(*mock.MockProvider)
	provider.GetMockEmbedder().SetEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("embedding endpoint unavailable")
	})
	provider.GetMockEmbedder().SetEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding endpoint unavailable")
	})
	searcher := newSearcher(t, repos.Chunks, repos.CodeExamples, provider)
	addChunk(t, repos.Chunks, "https://a.io/x", 0, "alpha", nil)

	monitor := &recordingMonitor{}
	results := searcher.SearchDocumentsWithMonitor(context.Background(), "alpha", 5, nil, monitor)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Equal(t, []string{StageEmbedding}, monitor.stages)
}

func TestSearchCodeExamples(t *testing.T) {
	repos := newRepositories(t)
	provider := mock.NewMockProvider(testDims).(*mock.MockProvider)
	searcher := newSearcher(t, repos.Chunks, repos.CodeExamples, provider)
	ctx := context.Background()

	require.NoError(t, repos.CodeExamples.AddCodeExamples(ctx,
		&core.CodeExampleRecord{
			URL: "https://a.io/x", Content: "json.Unmarshal(data, &v)", Summary: "Parses JSON",
			SourceID: "a.io", Embedding: mock.Vector(CodeQuery("parse json"), testDims),
		},
		&core.CodeExampleRecord{
			URL: "https://b.io/x", Content: "http.Get(url)", Summary: "Fetches a URL",
			SourceID: "b.io", Embedding: mock.Vector("unrelated", testDims),
		},
	))

	monitor := &recordingMonitor{}
	results := searcher.SearchCodeExamplesWithMonitor(ctx, "parse json", 5, nil, "", monitor)
	require.Len(t, results, 2)
	assert.Equal(t, "Parses JSON", results[0].Record.Summary)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-5)
	assert.Equal(t, KindCodeExamples, monitor.kind)
	assert.Equal(t, "parse json", monitor.query)
	assert.Equal(t, testDims, monitor.dimensions)
	assert.Equal(t, 2, monitor.results)

	inputs := provider.GetMockEmbedder().Inputs()
	require.NotEmpty(t, inputs)
	assert.Equal(t, []string{"Code example for parse json\n\nSummary: Example code showing parse json"}, inputs[0])

	restricted := searcher.SearchCodeExamples(ctx, "parse json", 5, nil, "b.io")
	require.Len(t, restricted, 1)
	assert.Equal(t, "b.io", restricted[0].Record.SourceID)
}

func TestSearchEmbedsQueryVerbatim(t *testing.T) {
	repos := newRepositories(t)
	provider := mock.NewMockProvider(testDims).(*mock.MockProvider)
	searcher := newSearcher(t, repos.Chunks, repos.CodeExamples, provider)
	ctx := context.Background()

	query := "  how   to\tparse  "
	searcher.SearchDocuments(ctx, query, 5, nil)
	searcher.SearchCodeExamples(ctx, query, 5, nil, "")

	inputs := provider.GetMockEmbedder().Inputs()
	require.Len(t, inputs, 2)
	assert.Equal(t, []string{query}, inputs[0])
	assert.Equal(t, []string{CodeQuery(query)}, inputs[1])
}

func TestCodeQuery(t *testing.T) {
	assert.Equal(t, "Code example for sort a map\n\nSummary: Example code showing sort a map", CodeQuery("sort a map"))
}

func TestNormalizeMatchCount(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-1, DefaultMatchCount},
		{0, DefaultMatchCount},
		{1, 1},
		{25, 25},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeMatchCount(tt.in))
	}
}
