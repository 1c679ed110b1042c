package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/poiesic/crawlindex/core"
	"github.com/poiesic/crawlindex/storage"
)

// SourceRepository implements storage.SourceRepository on the sources table.
type SourceRepository struct {
	store *Store
}

var _ storage.SourceRepository = (*SourceRepository)(nil)

const sourceColumns = `id::text, source, table_name, summary, total_words, created_at, updated_at`

// Close is a no-op; the Store owns the pool.
func (r *SourceRepository) Close() error {
	return nil
}

// FindSourceByDomain selects the source whose domain equals domain.
func (r *SourceRepository) FindSourceByDomain(ctx context.Context, domain string) (*core.Source, error) {
	row := r.store.pool.QueryRow(ctx, `SELECT `+sourceColumns+` FROM sources WHERE source = $1`, domain)
	source, err := scanSource(row)
	if err != nil {
		return nil, mapError(err)
	}
	return source, nil
}

// AddSource inserts a source and returns it with the generated ID.
func (r *SourceRepository) AddSource(ctx context.Context, source *core.Source) (*core.Source, error) {
	if err := core.ValidateSource(source); err != nil {
		return nil, err
	}
	row := r.store.pool.QueryRow(ctx, `
		INSERT INTO sources (source, table_name, summary, total_words)
		VALUES ($1, $2, $3, $4)
		RETURNING `+sourceColumns,
		source.Domain, source.TableName, source.Summary, source.TotalWords)
	added, err := scanSource(row)
	if err != nil {
		return nil, mapError(err)
	}
	return added, nil
}

// UpsertSource inserts or updates the source keyed on its domain.
func (r *SourceRepository) UpsertSource(ctx context.Context, source *core.Source) (*core.Source, error) {
	if err := core.ValidateSource(source); err != nil {
		return nil, err
	}
	row := r.store.pool.QueryRow(ctx, `
		INSERT INTO sources (source, table_name, summary, total_words)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (source) DO UPDATE SET
			table_name = EXCLUDED.table_name,
			summary = EXCLUDED.summary,
			total_words = EXCLUDED.total_words,
			updated_at = now()
		RETURNING `+sourceColumns,
		source.Domain, source.TableName, source.Summary, source.TotalWords)
	upserted, err := scanSource(row)
	if err != nil {
		return nil, mapError(err)
	}
	return upserted, nil
}

// ListSources returns every source ordered by domain.
func (r *SourceRepository) ListSources(ctx context.Context) ([]*core.Source, error) {
	rows, err := r.store.pool.Query(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY source`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var results []*core.Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, source)
	}
	return results, rows.Err()
}

func scanSource(row pgx.Row) (*core.Source, error) {
	var s core.Source
	if err := row.Scan(&s.ID, &s.Domain, &s.TableName, &s.Summary, &s.TotalWords, &s.InsertedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
