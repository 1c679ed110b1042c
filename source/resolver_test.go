package source

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/poiesic/crawlindex/core"
	"github.com/poiesic/crawlindex/storage"
	"github.com/poiesic/crawlindex/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRepository wraps a SourceRepository, counting calls and allowing
// individual operations to be overridden.
type countingRepository struct {
	storage.SourceRepository

	finds atomic.Int32
	adds  atomic.Int32

	// missFirstFind makes the first lookup report ErrNotFound.
	missFirstFind bool
	findErr       error
	addFunc       func(ctx context.Context, src *core.Source) (*core.Source, error)
}

func (r *countingRepository) FindSourceByDomain(ctx context.Context, domain string) (*core.Source, error) {
	n := r.finds.Add(1)
	if r.findErr != nil {
		return nil, r.findErr
	}
	if r.missFirstFind && n == 1 {
		return nil, storage.ErrNotFound
	}
	return r.SourceRepository.FindSourceByDomain(ctx, domain)
}

func (r *countingRepository) AddSource(ctx context.Context, src *core.Source) (*core.Source, error) {
	r.adds.Add(1)
	if r.addFunc != nil {
		return r.addFunc(ctx, src)
	}
	return r.SourceRepository.AddSource(ctx, src)
}

func newTestRepository(t *testing.T) *countingRepository {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return &countingRepository{SourceRepository: repos.Sources}
}

func newTestResolver(t *testing.T, repo storage.SourceRepository) *Resolver {
	t.Helper()
	r, err := NewResolver(repo)
	require.NoError(t, err)
	return r
}

func TestNewResolver(t *testing.T) {
	_, err := NewResolver(nil)
	assert.ErrorIs(t, err, ErrSourceRepositoryRequired)
}

func TestResolveEmptyDomain(t *testing.T) {
	repo := newTestRepository(t)
	r := newTestResolver(t, repo)

	for _, domain := range []string{"", "   ", "\t\n"} {
		_, err := r.Resolve(context.Background(), domain)
		assert.ErrorIs(t, err, ErrEmptyDomain)
	}
	assert.Zero(t, repo.finds.Load())
	assert.Zero(t, repo.adds.Load())
}

func TestResolveCreatesOnce(t *testing.T) {
	repo := newTestRepository(t)
	r := newTestResolver(t, repo)
	ctx := context.Background()

	id, err := r.Resolve(ctx, "docs.example.com")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	again, err := r.Resolve(ctx, " docs.example.com ")
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, int32(1), repo.adds.Load())

	src, err := repo.FindSourceByDomain(ctx, "docs.example.com")
	require.NoError(t, err)
	assert.Equal(t, "Content from docs.example.com", src.Summary)
	assert.Equal(t, "crawled_pages_docs_example_com", src.TableName)
	assert.Zero(t, src.TotalWords)
}

func TestResolveRecoversFromDuplicateInsert(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	winner, err := repo.SourceRepository.AddSource(ctx, core.NewSource("race.example.com"))
	require.NoError(t, err)

	// first lookup misses, as if the other writer had not committed yet
	repo.missFirstFind = true
	r := newTestResolver(t, repo)

	id, err := r.Resolve(ctx, "race.example.com")
	require.NoError(t, err)
	assert.Equal(t, winner.ID, id)
	assert.Equal(t, int32(1), repo.adds.Load())
	assert.Equal(t, int32(2), repo.finds.Load())
}

func TestResolveFailures(t *testing.T) {
	t.Run("lookup error", func(t *testing.T) {
		repo := newTestRepository(t)
		repo.findErr = errors.New("connection refused")
		r := newTestResolver(t, repo)

		_, err := r.Resolve(context.Background(), "a.io")
		assert.Error(t, err)
		assert.Zero(t, repo.adds.Load())
	})

	t.Run("insert error", func(t *testing.T) {
		repo := newTestRepository(t)
		repo.addFunc = func(ctx context.Context, src *core.Source) (*core.Source, error) {
			return nil, errors.New("disk full")
		}
		r := newTestResolver(t, repo)

		_, err := r.Resolve(context.Background(), "a.io")
		assert.Error(t, err)
	})

	t.Run("insert without id", func(t *testing.T) {
		repo := newTestRepository(t)
		repo.addFunc = func(ctx context.Context, src *core.Source) (*core.Source, error) {
			return &core.Source{Domain: src.Domain}, nil
		}
		r := newTestResolver(t, repo)

		_, err := r.Resolve(context.Background(), "a.io")
		assert.ErrorIs(t, err, ErrNoSourceID)
	})
}

func TestResolveConcurrentSameDomain(t *testing.T) {
	repo := newTestRepository(t)
	r := newTestResolver(t, repo)
	ctx := context.Background()

	const workers = 20
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := r.Resolve(ctx, "busy.example.com")
			assert.NoError(t, err)
			ids[i] = id
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	sources, err := repo.ListSources(ctx)
	require.NoError(t, err)
	assert.Len(t, sources, 1)
}

// gatedRepository blocks lookups until release is closed, honoring ctx.
type gatedRepository struct {
	storage.SourceRepository
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *gatedRepository) FindSourceByDomain(ctx context.Context, domain string) (*core.Source, error) {
	r.once.Do(func() { close(r.entered) })
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.release:
	}
	return r.SourceRepository.FindSourceByDomain(ctx, domain)
}

func TestResolveCancelledCallerDoesNotFailOthers(t *testing.T) {
	repo := &gatedRepository{
		SourceRepository: newTestRepository(t),
		entered:          make(chan struct{}),
		release:          make(chan struct{}),
	}
	r := newTestResolver(t, repo)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Resolve(first, "shared.io")
		firstErr <- err
	}()
	<-repo.entered

	type outcome struct {
		id  string
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		id, err := r.Resolve(context.Background(), "shared.io")
		second <- outcome{id, err}
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(repo.release)
	got := <-second
	require.NoError(t, got.err)
	assert.NotEmpty(t, got.id)

	src, err := repo.FindSourceByDomain(context.Background(), "shared.io")
	require.NoError(t, err)
	assert.Equal(t, src.ID, got.id)
}

func TestSessionCaches(t *testing.T) {
	repo := newTestRepository(t)
	r := newTestResolver(t, repo)
	ctx := context.Background()

	session := r.NewSession()
	first, err := session.Resolve(ctx, "cached.io")
	require.NoError(t, err)
	second, err := session.Resolve(ctx, "cached.io")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), repo.finds.Load())
	assert.Equal(t, int32(1), repo.adds.Load())
	assert.Equal(t, 1, session.Len())

	// a new session starts cold but finds the stored source
	other := r.NewSession()
	third, err := other.Resolve(ctx, "cached.io")
	require.NoError(t, err)
	assert.Equal(t, first, third)
	assert.Equal(t, int32(1), repo.adds.Load())
}

func TestSessionCachesFailures(t *testing.T) {
	repo := newTestRepository(t)
	repo.findErr = errors.New("unavailable")
	r := newTestResolver(t, repo)
	session := r.NewSession()

	_, err := session.Resolve(context.Background(), "down.io")
	assert.Error(t, err)
	_, err = session.Resolve(context.Background(), "down.io")
	assert.Error(t, err)
	assert.Equal(t, int32(1), repo.finds.Load())
}

func TestUpsertSummary(t *testing.T) {
	repo := newTestRepository(t)
	r := newTestResolver(t, repo)
	ctx := context.Background()

	id, err := r.Resolve(ctx, "docs.python.org")
	require.NoError(t, err)

	src, err := r.UpsertSummary(ctx, "docs.python.org", "Python docs.", 1200, "")
	require.NoError(t, err)
	assert.Equal(t, id, src.ID)
	assert.Equal(t, "pages_docs_python_org", src.TableName)
	assert.Equal(t, "Python docs.", src.Summary)
	assert.Equal(t, 1200, src.TotalWords)

	src, err = r.UpsertSummary(ctx, "new.io", "New.", 3, "custom_table")
	require.NoError(t, err)
	assert.NotEmpty(t, src.ID)
	assert.Equal(t, "custom_table", src.TableName)

	_, err = r.UpsertSummary(ctx, " ", "x", 0, "")
	assert.ErrorIs(t, err, ErrEmptyDomain)
}
