package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/crawlindex/core"
	"github.com/poiesic/crawlindex/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) (*ChunkRepository, error) {
	return &ChunkRepository{
		backend: backend,
	}, nil
}

// Close releases resources. ChunkRepository has no resources to release.
func (r *ChunkRepository) Close() error {
	return nil
}

// DeleteChunksByURLs removes all chunks stored for the given URLs.
func (r *ChunkRepository) DeleteChunksByURLs(ctx context.Context, urls ...string) error {
	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			return err
		}
		deleted, err := r.backend.DeletePrefix(makeChunkURLPrefix(url))
		if err != nil {
			return err
		}
		r.backend.logger.Debug("deleted chunks", "url", url, "count", deleted)
	}
	return nil
}

// AddChunks inserts all records in a single transaction.
func (r *ChunkRepository) AddChunks(ctx context.Context, records ...*core.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, record := range records {
			key := makeChunkKey(record.URL, record.ChunkNumber)
			exists, err := keyExists(tx, key)
			if err != nil {
				return err
			}
			if exists {
				return storage.ErrDuplicateKey
			}

			stored := *record
			if stored.InsertedAt.IsZero() {
				stored.InsertedAt = now
			}
			value, err := storage.MarshalChunkRecord(&stored)
			if err != nil {
				return err
			}
			if err := tx.Set(key, value); err != nil {
				return err
			}
		}
		return commit(tx)
	}, true)
}

// GetChunksByURL returns the chunks of a URL ordered by chunk number.
func (r *ChunkRepository) GetChunksByURL(ctx context.Context, url string) ([]*core.ChunkRecord, error) {
	var results []*core.ChunkRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(tx, makeChunkURLPrefix(url), func(val []byte) error {
			record, err := storage.UnmarshalChunkRecord(val)
			if err != nil {
				return err
			}
			results = append(results, record)
			return nil
		})
	}, false)
	return results, err
}

// MatchChunks ranks every stored chunk against vector.
func (r *ChunkRepository) MatchChunks(ctx context.Context, vector []float32, matchCount int, filter core.Metadata) ([]*core.ChunkMatch, error) {
	if matchCount <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var candidates []scored[*core.ChunkRecord]
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(tx, []byte(chunkRecordPrefix), func(val []byte) error {
			record, err := storage.UnmarshalChunkRecord(val)
			if err != nil {
				return err
			}
			if !matchable(record.Embedding, record.Metadata, filter) {
				return nil
			}
			candidates = append(candidates, scored[*core.ChunkRecord]{
				record:     record,
				similarity: cosineSimilarity(vector, record.Embedding),
			})
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	top := topMatches(candidates, matchCount)
	results := make([]*core.ChunkMatch, len(top))
	for i, c := range top {
		results[i] = &core.ChunkMatch{Record: c.record, Similarity: c.similarity}
	}
	return results, nil
}
