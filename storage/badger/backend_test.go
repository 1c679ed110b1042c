package badger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/crawlindex/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "db")
	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	defer backend.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenBackend_PathIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := OpenBackend(file, false)
	assert.Error(t, err)
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())

	err = backend.WithTx(func(tx *badger.Txn) error { return nil }, false)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestDeletePrefix(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	err = backend.WithTx(func(tx *badger.Txn) error {
		for _, k := range []string{"a:1", "a:2", "b:1"} {
			if err := tx.Set([]byte(k), []byte("v")); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	require.NoError(t, err)

	deleted, err := backend.DeletePrefix([]byte("a:"))
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	deleted, err = backend.DeletePrefix([]byte("a:"))
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)

	err = backend.WithTx(func(tx *badger.Txn) error {
		exists, err := keyExists(tx, []byte("b:1"))
		require.NoError(t, err)
		assert.True(t, exists, "other prefixes must survive")
		return nil
	}, false)
	require.NoError(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-6)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Equal(t, float32(0), cosineSimilarity([]float32{0, 0}, []float32{1, 0}), "zero vector")
	assert.Equal(t, float32(0), cosineSimilarity([]float32{1}, []float32{1, 0}), "length mismatch")
}

func TestTopMatches(t *testing.T) {
	candidates := []scored[string]{
		{record: "low", similarity: 0.1},
		{record: "high", similarity: 0.9},
		{record: "mid", similarity: 0.5},
	}
	top := topMatches(candidates, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "high", top[0].record)
	assert.Equal(t, "mid", top[1].record)
}

func TestKeys(t *testing.T) {
	a1 := makeChunkKey("https://a.io", 1)
	a2 := makeChunkKey("https://a.io", 2)
	b1 := makeChunkKey("https://b.io", 1)

	assert.True(t, hasPrefixBytes(a1, makeChunkURLPrefix("https://a.io")))
	assert.True(t, hasPrefixBytes(a2, makeChunkURLPrefix("https://a.io")))
	assert.False(t, hasPrefixBytes(b1, makeChunkURLPrefix("https://a.io")))
	assert.Less(t, string(a1), string(a2), "chunk numbers sort numerically")
	assert.NotEqual(t, makeChunkKey("https://a.io", 1), makeCodeExampleKey("https://a.io", 1))
}

func hasPrefixBytes(s, prefix []byte) bool {
	return len(s) >= len(prefix) && string(s[:len(prefix)]) == string(prefix)
}

func TestCommit_Conflict(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	key := []byte("k")
	first := backend.db.NewTransaction(true)
	defer first.Discard()
	second := backend.db.NewTransaction(true)
	defer second.Discard()

	for _, tx := range []*badger.Txn{first, second} {
		exists, err := keyExists(tx, key)
		require.NoError(t, err)
		require.False(t, exists)
		require.NoError(t, tx.Set(key, []byte("v")))
	}

	require.NoError(t, commit(first))
	err = commit(second)
	assert.ErrorIs(t, err, storage.ErrConflict)
	assert.NotErrorIs(t, err, storage.ErrDuplicateKey)
}
