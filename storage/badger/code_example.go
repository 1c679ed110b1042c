package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/crawlindex/core"
	"github.com/poiesic/crawlindex/storage"
)

// CodeExampleRepository implements storage.CodeExampleRepository for BadgerDB.
type CodeExampleRepository struct {
	backend *Backend
}

var _ storage.CodeExampleRepository = (*CodeExampleRepository)(nil)

// NewCodeExampleRepository creates a new CodeExampleRepository.
func NewCodeExampleRepository(backend *Backend) (*CodeExampleRepository, error) {
	return &CodeExampleRepository{
		backend: backend,
	}, nil
}

// Close releases resources. CodeExampleRepository has no resources to release.
func (r *CodeExampleRepository) Close() error {
	return nil
}

// DeleteCodeExamplesByURL removes all code examples stored for url.
func (r *CodeExampleRepository) DeleteCodeExamplesByURL(ctx context.Context, url string) error {
	deleted, err := r.backend.DeletePrefix(makeCodeExampleURLPrefix(url))
	if err != nil {
		return err
	}
	r.backend.logger.Debug("deleted code examples", "url", url, "count", deleted)
	return nil
}

// AddCodeExamples inserts all records in a single transaction.
func (r *CodeExampleRepository) AddCodeExamples(ctx context.Context, records ...*core.CodeExampleRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, record := range records {
			key := makeCodeExampleKey(record.URL, record.ChunkNumber)
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
			value, err := storage.MarshalCodeExampleRecord(&stored)
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

// GetCodeExamplesByURL returns the code examples of a URL ordered by chunk number.
func (r *CodeExampleRepository) GetCodeExamplesByURL(ctx context.Context, url string) ([]*core.CodeExampleRecord, error) {
	var results []*core.CodeExampleRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(tx, makeCodeExampleURLPrefix(url), func(val []byte) error {
			record, err := storage.UnmarshalCodeExampleRecord(val)
			if err != nil {
				return err
			}
			results = append(results, record)
			return nil
		})
	}, false)
	return results, err
}

// MatchCodeExamples ranks stored code examples against vector. An empty
// sourceFilter matches every source.
func (r *CodeExampleRepository) MatchCodeExamples(ctx context.Context, vector []float32, matchCount int, filter core.Metadata, sourceFilter string) ([]*core.CodeExampleMatch, error) {
	if matchCount <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var candidates []scored[*core.CodeExampleRecord]
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(tx, []byte(codeRecordPrefix), func(val []byte) error {
			record, err := storage.UnmarshalCodeExampleRecord(val)
			if err != nil {
				return err
			}
			if sourceFilter != "" && record.SourceID != sourceFilter {
				return nil
			}
			if !matchable(record.Embedding, record.Metadata, filter) {
				return nil
			}
			candidates = append(candidates, scored[*core.CodeExampleRecord]{
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
	results := make([]*core.CodeExampleMatch, len(top))
	for i, c := range top {
		results[i] = &core.CodeExampleMatch{Record: c.record, Similarity: c.similarity}
	}
	return results, nil
}
