package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/poiesic/crawlindex/core"
	"github.com/poiesic/crawlindex/storage"
)

// CodeExampleRepository implements storage.CodeExampleRepository on the code_examples table.
type CodeExampleRepository struct {
	store *Store
}

var _ storage.CodeExampleRepository = (*CodeExampleRepository)(nil)

// Close is a no-op; the Store owns the pool.
func (r *CodeExampleRepository) Close() error {
	return nil
}

// DeleteCodeExamplesByURL deletes with a single equality predicate.
func (r *CodeExampleRepository) DeleteCodeExamplesByURL(ctx context.Context, url string) error {
	_, err := r.store.pool.Exec(ctx, `DELETE FROM code_examples WHERE url = $1`, url)
	return mapError(err)
}

// AddCodeExamples inserts all records in one transaction using a pipelined batch.
func (r *CodeExampleRepository) AddCodeExamples(ctx context.Context, records ...*core.CodeExampleRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, record := range records {
		if err := r.store.checkDimensions(record.Embedding); err != nil {
			return err
		}
		metadata, err := storage.MarshalMetadata(record.Metadata)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO code_examples (url, chunk_number, content, summary, metadata, source_id, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			record.URL, record.ChunkNumber, record.Content, record.Summary, string(metadata),
			record.SourceID, pgvector.NewVector(record.Embedding))
	}

	err := r.store.withTx(ctx, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	return mapError(err)
}

// GetCodeExamplesByURL returns the code examples of a URL ordered by chunk number.
func (r *CodeExampleRepository) GetCodeExamplesByURL(ctx context.Context, url string) ([]*core.CodeExampleRecord, error) {
	rows, err := r.store.pool.Query(ctx, `
		SELECT url, chunk_number, content, summary, metadata, source_id, embedding, created_at
		FROM code_examples WHERE url = $1 ORDER BY chunk_number`, url)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var results []*core.CodeExampleRecord
	for rows.Next() {
		var (
			record   core.CodeExampleRecord
			metadata []byte
			vec      pgvector.Vector
		)
		if err := rows.Scan(&record.URL, &record.ChunkNumber, &record.Content, &record.Summary,
			&metadata, &record.SourceID, &vec, &record.InsertedAt); err != nil {
			return nil, err
		}
		if record.Metadata, err = storage.UnmarshalMetadata(metadata); err != nil {
			return nil, err
		}
		record.Embedding = vec.Slice()
		results = append(results, &record)
	}
	return results, rows.Err()
}

// MatchCodeExamples calls the match_code_examples SQL function. An empty
// sourceFilter is passed as NULL.
func (r *CodeExampleRepository) MatchCodeExamples(ctx context.Context, vector []float32, matchCount int, filter core.Metadata, sourceFilter string) ([]*core.CodeExampleMatch, error) {
	if matchCount <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	if err := r.store.checkDimensions(vector); err != nil {
		return nil, err
	}
	filterJSON, err := storage.MarshalMetadata(filter)
	if err != nil {
		return nil, err
	}
	var source *string
	if sourceFilter != "" {
		source = &sourceFilter
	}

	rows, err := r.store.pool.Query(ctx, `
		SELECT url, chunk_number, content, summary, metadata, source_id, similarity
		FROM match_code_examples($1, $2, $3, $4)`,
		pgvector.NewVector(vector), matchCount, string(filterJSON), source)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var results []*core.CodeExampleMatch
	for rows.Next() {
		var (
			record     core.CodeExampleRecord
			metadata   []byte
			similarity float64
		)
		if err := rows.Scan(&record.URL, &record.ChunkNumber, &record.Content, &record.Summary,
			&metadata, &record.SourceID, &similarity); err != nil {
			return nil, err
		}
		if record.Metadata, err = storage.UnmarshalMetadata(metadata); err != nil {
			return nil, err
		}
		results = append(results, &core.CodeExampleMatch{Record: &record, Similarity: float32(similarity)})
	}
	return results, rows.Err()
}
