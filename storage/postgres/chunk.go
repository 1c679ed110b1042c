package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/poiesic/crawlindex/core"
	"github.com/poiesic/crawlindex/storage"
)

// ChunkRepository implements storage.ChunkRepository on the crawled_pages table.
type ChunkRepository struct {
	store *Store
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// Close is a no-op; the Store owns the pool.
func (r *ChunkRepository) Close() error {
	return nil
}

// DeleteChunksByURLs deletes with a single in-list predicate.
func (r *ChunkRepository) DeleteChunksByURLs(ctx context.Context, urls ...string) error {
	if len(urls) == 0 {
		return nil
	}
	tag, err := r.store.pool.Exec(ctx, `DELETE FROM crawled_pages WHERE url = ANY($1)`, urls)
	if err != nil {
		return mapError(err)
	}
	r.store.logger.Debug("deleted chunks", "urls", len(urls), "rows", tag.RowsAffected())
	return nil
}

// AddChunks inserts all records in one transaction using a pipelined batch.
func (r *ChunkRepository) AddChunks(ctx context.Context, records ...*core.ChunkRecord) error {
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
			INSERT INTO crawled_pages (url, chunk_number, content, metadata, source_id, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			record.URL, record.ChunkNumber, record.Content, string(metadata), record.SourceID,
			pgvector.NewVector(record.Embedding))
	}

	err := r.store.withTx(ctx, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	return mapError(err)
}

// GetChunksByURL returns the chunks of a URL ordered by chunk number.
func (r *ChunkRepository) GetChunksByURL(ctx context.Context, url string) ([]*core.ChunkRecord, error) {
	rows, err := r.store.pool.Query(ctx, `
		SELECT url, chunk_number, content, metadata, source_id::text, embedding, created_at
		FROM crawled_pages WHERE url = $1 ORDER BY chunk_number`, url)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var results []*core.ChunkRecord
	for rows.Next() {
		var (
			record   core.ChunkRecord
			metadata []byte
			vec      pgvector.Vector
		)
		if err := rows.Scan(&record.URL, &record.ChunkNumber, &record.Content, &metadata,
			&record.SourceID, &vec, &record.InsertedAt); err != nil {
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

// MatchChunks calls the match_chunks SQL function.
func (r *ChunkRepository) MatchChunks(ctx context.Context, vector []float32, matchCount int, filter core.Metadata) ([]*core.ChunkMatch, error) {
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

	rows, err := r.store.pool.Query(ctx, `
		SELECT url, chunk_number, content, metadata, source_id::text, similarity
		FROM match_chunks($1, $2, $3)`,
		pgvector.NewVector(vector), matchCount, string(filterJSON))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var results []*core.ChunkMatch
	for rows.Next() {
		var (
			record     core.ChunkRecord
			metadata   []byte
			similarity float64
		)
		if err := rows.Scan(&record.URL, &record.ChunkNumber, &record.Content, &metadata,
			&record.SourceID, &similarity); err != nil {
			return nil, err
		}
		if record.Metadata, err = storage.UnmarshalMetadata(metadata); err != nil {
			return nil, err
		}
		results = append(results, &core.ChunkMatch{Record: &record, Similarity: float32(similarity)})
	}
	return results, rows.Err()
}
