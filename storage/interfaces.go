package storage

import (
	"context"

	"github.com/poiesic/crawlindex/core"
)

// Repository provides operations shared by every repository.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close releases resources held by the repository.
	// Repositories sharing a backend do not close the backend itself.
	Close() error
}

// SourceRepository manages Source identity records.
type SourceRepository interface {
	Repository

	// FindSourceByDomain looks up a Source by exact domain match.
	// Returns ErrNotFound if no Source exists for the domain.
	FindSourceByDomain(ctx context.Context, domain string) (*core.Source, error)

	// AddSource inserts a new Source, assigning its ID and timestamps.
	// Returns ErrDuplicateKey if a Source already exists for the domain.
	AddSource(ctx context.Context, source *core.Source) (*core.Source, error)

	// UpsertSource inserts the Source or, when the domain already exists,
	// replaces its table name, summary and word count. The stored ID is kept.
	UpsertSource(ctx context.Context, source *core.Source) (*core.Source, error)

	// ListSources returns all Sources ordered by domain.
	ListSources(ctx context.Context) ([]*core.Source, error)
}

// ChunkRepository manages embedded document chunks.
type ChunkRepository interface {
	Repository

	// DeleteChunksByURLs removes every chunk whose URL is in urls.
	// Deleting a URL with no chunks is not an error.
	DeleteChunksByURLs(ctx context.Context, urls ...string) error

	// AddChunks inserts records atomically: either all are stored or none.
	// Returns ErrDuplicateKey if any (url, chunk_number) pair already exists.
	AddChunks(ctx context.Context, records ...*core.ChunkRecord) error

	// GetChunksByURL returns the chunks stored for a URL ordered by chunk number.
	GetChunksByURL(ctx context.Context, url string) ([]*core.ChunkRecord, error)

	// MatchChunks returns up to matchCount chunks ranked by cosine similarity
	// to vector. A non-empty filter restricts results to chunks whose
	// metadata contains it.
	MatchChunks(ctx context.Context, vector []float32, matchCount int, filter core.Metadata) ([]*core.ChunkMatch, error)
}

// CodeExampleRepository manages embedded code examples.
type CodeExampleRepository interface {
	Repository

	// DeleteCodeExamplesByURL removes every code example stored for url.
	DeleteCodeExamplesByURL(ctx context.Context, url string) error

	// AddCodeExamples inserts records atomically.
	// Returns ErrDuplicateKey if any (url, chunk_number) pair already exists.
	AddCodeExamples(ctx context.Context, records ...*core.CodeExampleRecord) error

	// GetCodeExamplesByURL returns the code examples stored for a URL ordered by chunk number.
	GetCodeExamplesByURL(ctx context.Context, url string) ([]*core.CodeExampleRecord, error)

	// MatchCodeExamples returns up to matchCount code examples ranked by
	// cosine similarity to vector, optionally restricted by a metadata
	// filter and by source domain.
	MatchCodeExamples(ctx context.Context, vector []float32, matchCount int, filter core.Metadata, sourceFilter string) ([]*core.CodeExampleMatch, error)
}
