// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package postgres implements the storage repositories on PostgreSQL with
// the pgvector extension. Similarity search runs inside the database through
// the match_chunks and match_code_examples SQL functions.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/poiesic/crawlindex/storage"
)

//go:embed schema.sql
var schemaSQL string

const (
	// DefaultDimensions matches text-embedding-3-small.
	DefaultDimensions = 1536

	uniqueViolation      = "23505"
	serializationFailure = "40001"
)

// Store owns the connection pool shared by the PostgreSQL repositories.
type Store struct {
	pool       *pgxpool.Pool
	dimensions int
	logger     *slog.Logger
}

// Option configures a Store.
type Option func(*options) error

type options struct {
	dimensions int
	maxConns   int32
	bootstrap  bool
	logger     *slog.Logger
}

// WithDimensions sets the embedding dimension used by the schema.
func WithDimensions(dimensions int) Option {
	return func(o *options) error {
		if dimensions <= 0 {
			return fmt.Errorf("invalid embedding dimensions %d", dimensions)
		}
		o.dimensions = dimensions
		return nil
	}
}

// WithMaxConns caps the pool size.
func WithMaxConns(n int32) Option {
	return func(o *options) error {
		if n > 0 {
			o.maxConns = n
		}
		return nil
	}
}

// WithoutBootstrap skips schema creation on open.
func WithoutBootstrap() Option {
	return func(o *options) error {
		o.bootstrap = false
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger != nil {
			o.logger = logger
		}
		return nil
	}
}

// Open connects to the database at dsn, creates the schema if needed and
// returns a Store whose connections understand the vector type.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	o := &options{
		dimensions: DefaultDimensions,
		bootstrap:  true,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	logger := o.logger.With("component", "postgres")

	// The vector extension must exist before pool connections can register it.
	if o.bootstrap {
		if err := bootstrap(ctx, dsn, o.dimensions); err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		logger.Debug("schema ready", "dimensions", o.dimensions)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if o.maxConns > 0 {
		cfg.MaxConns = o.maxConns
	}
	cfg.MaxConnIdleTime = 10 * time.Minute
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &Store{
		pool:       pool,
		dimensions: o.dimensions,
		logger:     logger,
	}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Pool exposes the underlying pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Dimensions returns the embedding dimension of the schema.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// SourceRepository returns a storage.SourceRepository backed by this store.
func (s *Store) SourceRepository() storage.SourceRepository {
	return &SourceRepository{store: s}
}

// ChunkRepository returns a storage.ChunkRepository backed by this store.
func (s *Store) ChunkRepository() storage.ChunkRepository {
	return &ChunkRepository{store: s}
}

// CodeExampleRepository returns a storage.CodeExampleRepository backed by this store.
func (s *Store) CodeExampleRepository() storage.CodeExampleRepository {
	return &CodeExampleRepository{store: s}
}

// withTx runs fn inside a transaction, committing when fn returns nil.
func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// checkDimensions rejects vectors the schema cannot hold.
func (s *Store) checkDimensions(vec []float32) error {
	if len(vec) != s.dimensions {
		return fmt.Errorf("%w: got %d, want %d", storage.ErrDimensionMismatch, len(vec), s.dimensions)
	}
	return nil
}

// SchemaSQL renders the bootstrap schema for the given dimension.
func SchemaSQL(dimensions int) string {
	return strings.ReplaceAll(schemaSQL, "{{dimensions}}", strconv.Itoa(dimensions))
}

func bootstrap(ctx context.Context, dsn string, dimensions int) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, SchemaSQL(dimensions)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// mapError translates driver errors into storage sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, pgErr.ConstraintName)
		case serializationFailure:
			return fmt.Errorf("%w: %w", storage.ErrConflict, err)
		}
	}
	return err
}
