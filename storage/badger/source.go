package badger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/poiesic/crawlindex/core"
	"github.com/poiesic/crawlindex/storage"
)

// SourceRepository implements storage.SourceRepository for BadgerDB.
// Sources are stored under their ID with a unique domain index.
type SourceRepository struct {
	backend *Backend
}

var _ storage.SourceRepository = (*SourceRepository)(nil)

// NewSourceRepository creates a new SourceRepository.
func NewSourceRepository(backend *Backend) (*SourceRepository, error) {
	return &SourceRepository{
		backend: backend,
	}, nil
}

// Close releases resources. SourceRepository has no resources to release.
func (r *SourceRepository) Close() error {
	return nil
}

// FindSourceByDomain finds a source by exact domain.
func (r *SourceRepository) FindSourceByDomain(ctx context.Context, domain string) (*core.Source, error) {
	var result *core.Source
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		id, err := readDomainIndex(tx, domain)
		if err != nil {
			return err
		}
		if id == "" {
			return storage.ErrNotFound
		}

		result, err = readSource(tx, makeSourceKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// AddSource inserts a new source with a generated ID.
func (r *SourceRepository) AddSource(ctx context.Context, source *core.Source) (*core.Source, error) {
	if err := core.ValidateSource(source); err != nil {
		return nil, err
	}

	stored := *source
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		domainKey := makeSourceDomainKey(stored.Domain)
		exists, err := keyExists(tx, domainKey)
		if err != nil {
			return err
		}
		if exists {
			return storage.ErrDuplicateKey
		}

		if stored.ID == "" {
			stored.ID = uuid.NewString()
		}
		stored.InsertedAt = time.Now().UTC()
		stored.UpdatedAt = stored.InsertedAt

		if err := writeSource(tx, &stored); err != nil {
			return err
		}
		return commit(tx)
	}, true)
	if errors.Is(err, storage.ErrConflict) {
		// the domain index was checked in this transaction, so the conflicting
		// writer added the same domain
		return nil, fmt.Errorf("%w: %w", storage.ErrDuplicateKey, err)
	}
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// UpsertSource inserts a source or updates the one stored for its domain.
func (r *SourceRepository) UpsertSource(ctx context.Context, source *core.Source) (*core.Source, error) {
	if err := core.ValidateSource(source); err != nil {
		return nil, err
	}

	stored := *source
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		id, err := readDomainIndex(tx, stored.Domain)
		if err != nil {
			return err
		}

		var existing *core.Source
		if id != "" {
			if existing, err = readSource(tx, makeSourceKey(id)); err != nil {
				return err
			}
		}

		if existing != nil {
			stored.ID = existing.ID
			stored.InsertedAt = existing.InsertedAt
		} else {
			if stored.ID == "" {
				stored.ID = uuid.NewString()
			}
			stored.InsertedAt = now
		}
		stored.UpdatedAt = now

		if err := writeSource(tx, &stored); err != nil {
			return err
		}
		return commit(tx)
	}, true)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// ListSources returns every source ordered by domain.
func (r *SourceRepository) ListSources(ctx context.Context) ([]*core.Source, error) {
	var results []*core.Source
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(tx, []byte(sourceRecordPrefix), func(val []byte) error {
			source, err := storage.UnmarshalSource(val)
			if err != nil {
				return err
			}
			results = append(results, source)
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.Source) int {
		return strings.Compare(a.Domain, b.Domain)
	})
	return results, nil
}

// Helper methods

// writeSource stores the primary record and its domain index.
func writeSource(tx *badger.Txn, source *core.Source) error {
	value, err := storage.MarshalSource(source)
	if err != nil {
		return err
	}
	if err := tx.Set(makeSourceKey(source.ID), value); err != nil {
		return err
	}
	return tx.Set(makeSourceDomainKey(source.Domain), []byte(source.ID))
}

// readDomainIndex returns the source ID indexed for domain, or "" if none.
func readDomainIndex(tx *badger.Txn, domain string) (string, error) {
	item, err := tx.Get(makeSourceDomainKey(domain))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

// readSource reads a source from the transaction.
func readSource(tx *badger.Txn, key []byte) (*core.Source, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var source *core.Source
	err = item.Value(func(val []byte) error {
		var err error
		source, err = storage.UnmarshalSource(val)
		return err
	})
	return source, err
}
