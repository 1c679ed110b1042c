package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/crawlindex/core"
	"github.com/poiesic/crawlindex/storage"
	"golang.org/x/sync/singleflight"
)

// Resolver resolves domains to Source IDs, creating Sources on demand.
// It is safe for concurrent use.
type Resolver struct {
	repository storage.SourceRepository
	flights    singleflight.Group
	logger     *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewResolver creates a Resolver over repository.
func NewResolver(repository storage.SourceRepository, opts ...Option) (*Resolver, error) {
	if repository == nil {
		return nil, ErrSourceRepositoryRequired
	}
	r := &Resolver{
		repository: repository,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "source-resolver")
	return r, nil
}

// Resolve returns the ID of the Source for domain, creating the Source when
// none exists.
func (r *Resolver) Resolve(ctx context.Context, domain string) (string, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return "", ErrEmptyDomain
	}

	// The flight is shared, so it must not inherit one caller's cancellation.
	flight := r.flights.DoChan(domain, func() (any, error) {
		return r.lookupOrCreate(context.WithoutCancel(ctx), domain)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case result := <-flight:
		if result.Err != nil {
			r.logger.Error("failed to resolve source", "domain", domain, "err", result.Err)
			return "", result.Err
		}
		return result.Val.(string), nil
	}
}

func (r *Resolver) lookupOrCreate(ctx context.Context, domain string) (string, error) {
	existing, err := r.repository.FindSourceByDomain(ctx, domain)
	switch {
	case err == nil:
		return sourceID(existing)
	case !errors.Is(err, storage.ErrNotFound):
		return "", fmt.Errorf("looking up source %q: %w", domain, err)
	}

	created, err := r.repository.AddSource(ctx, core.NewSource(domain))
	if errors.Is(err, storage.ErrDuplicateKey) {
		// another writer created it between our lookup and insert
		r.logger.Debug("source created concurrently, re-reading", "domain", domain)
		winner, readErr := r.repository.FindSourceByDomain(ctx, domain)
		if readErr != nil {
			return "", fmt.Errorf("re-reading source %q: %w", domain, readErr)
		}
		return sourceID(winner)
	}
	if err != nil {
		return "", fmt.Errorf("creating source %q: %w", domain, err)
	}

	r.logger.Info("created source", "domain", domain, "id", created.ID)
	return sourceID(created)
}

func sourceID(src *core.Source) (string, error) {
	if src == nil || src.ID == "" {
		return "", ErrNoSourceID
	}
	return src.ID, nil
}

// UpsertSummary stores summary and wordCount for domain, creating the Source
// if needed. An empty tableName selects core.SummaryTableName(domain).
func (r *Resolver) UpsertSummary(ctx context.Context, domain, summary string, wordCount int, tableName string) (*core.Source, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return nil, ErrEmptyDomain
	}
	if tableName == "" {
		tableName = core.SummaryTableName(domain)
	}

	src, err := r.repository.UpsertSource(ctx, &core.Source{
		Domain:     domain,
		TableName:  tableName,
		Summary:    summary,
		TotalWords: wordCount,
	})
	if err != nil {
		r.logger.Error("failed to upsert source summary", "domain", domain, "err", err)
		return nil, fmt.Errorf("upserting source %q: %w", domain, err)
	}

	r.logger.Debug("upserted source summary", "domain", domain, "words", wordCount)
	return src, nil
}

// NewSession returns an empty per-call cache bound to this Resolver.
func (r *Resolver) NewSession() *Session {
	return &Session{
		resolver: r,
		entries:  make(map[string]entry),
	}
}

type entry struct {
	id  string
	err error
}

// Session caches domain resolutions for one ingestion call. Failures are
// cached too, so a domain that cannot be resolved is attempted once per
// session. A Session is not safe for concurrent use.
type Session struct {
	resolver *Resolver
	entries  map[string]entry
}

// Resolve returns the cached result for domain or resolves it through the Resolver.
func (s *Session) Resolve(ctx context.Context, domain string) (string, error) {
	domain = strings.TrimSpace(domain)
	if e, ok := s.entries[domain]; ok {
		return e.id, e.err
	}
	id, err := s.resolver.Resolve(ctx, domain)
	if ctx.Err() == nil {
		s.entries[domain] = entry{id: id, err: err}
	}
	return id, err
}

// Len returns the number of cached domains.
func (s *Session) Len() int {
	return len(s.entries)
}
