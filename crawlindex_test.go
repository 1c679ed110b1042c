package crawlindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/crawlindex/ai/mock"
	"github.com/poiesic/crawlindex/config"
	"github.com/poiesic/crawlindex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.BadgerPath = filepath.Join(t.TempDir(), "index")
	cfg.AI.Dimensions = 8
	return cfg
}

func TestOpen(t *testing.T) {
	t.Run("badger store", func(t *testing.T) {
		ix, err := Open(context.Background(), testConfig(t), WithProvider(mock.NewMockProvider(8)))
		require.NoError(t, err)
		defer ix.Close()

		assert.NotNil(t, ix.SourceRepository())
		assert.NotNil(t, ix.ChunkRepository())
		assert.NotNil(t, ix.CodeExampleRepository())
	})

	t.Run("default provider", func(t *testing.T) {
		ix, err := Open(context.Background(), testConfig(t), WithLogger(nil))
		require.NoError(t, err)
		assert.NoError(t, ix.Close())
	})

	t.Run("invalid configuration", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Store = "sqlite"
		ix, err := Open(context.Background(), cfg)
		assert.ErrorIs(t, err, config.ErrUnknownStore)
		assert.Nil(t, ix)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// Try to create a database at a file path instead of directory
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		cfg := testConfig(t)
		cfg.BadgerPath = tmpFile
		ix, err := Open(context.Background(), cfg, WithProvider(mock.NewMockProvider(8)))
		assert.Error(t, err)
		assert.Nil(t, ix)
	})
}

func TestIndex_IngestAndSearch(t *testing.T) {
	cfg := testConfig(t)
	cfg.ExtractCodeExamples = true
	cfg.MinCodeLength = 10

	ix, err := Open(context.Background(), cfg, WithProvider(mock.NewMockProvider(8)))
	require.NoError(t, err)
	defer ix.Close()

	pipeline, err := ix.NewIngestionPipeline()
	require.NoError(t, err)

	ctx := context.Background()
	report, err := pipeline.IngestDocuments(ctx, []core.Document{
		{URL: "https://docs.example.com/start", Markdown: "# Start\nRun the installer.\n\n```sh\ncurl -sSL example.com/install | sh\n```"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Chunks.Inserted)
	assert.Equal(t, 1, report.CodeExamples.Inserted)

	searcher, err := ix.NewSearcher()
	require.NoError(t, err)

	docs := searcher.SearchDocuments(ctx, "installer", 5, nil)
	require.Len(t, docs, 1)
	assert.Equal(t, "https://docs.example.com/start", docs[0].Record.URL)

	code := searcher.SearchCodeExamples(ctx, "install script", 5, nil, "docs.example.com")
	require.Len(t, code, 1)
	assert.Contains(t, code[0].Record.Content, "curl")

	sources, err := ix.SourceRepository().ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "docs.example.com", sources[0].Domain)
}
