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


// Package crawlindex wires a store and an AI provider into ingestion
// pipelines and searchers.
package crawlindex

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/crawlindex/ai"
	"github.com/poiesic/crawlindex/ai/openai"
	"github.com/poiesic/crawlindex/config"
	"github.com/poiesic/crawlindex/ingestion"
	"github.com/poiesic/crawlindex/search"
	"github.com/poiesic/crawlindex/storage"
	"github.com/poiesic/crawlindex/storage/badger"
	"github.com/poiesic/crawlindex/storage/postgres"
)

// Index is an open store together with the AI provider used to fill and query it.
type Index struct {
	config       *config.Config
	sources      storage.SourceRepository
	chunks       storage.ChunkRepository
	codeExamples storage.CodeExampleRepository
	closeStore   func() error
	provider     ai.AIProvider
	logger       *slog.Logger
}

// IndexOption configures an Index.
type IndexOption func(*indexOptions)

type indexOptions struct {
	provider ai.AIProvider
	logger   *slog.Logger
}

// WithProvider uses provider instead of building one from the configuration.
// The Index takes ownership and closes it.
func WithProvider(provider ai.AIProvider) IndexOption {
	return func(o *indexOptions) {
		o.provider = provider
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) IndexOption {
	return func(o *indexOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open validates cfg, opens the configured store and creates the AI provider.
func Open(ctx context.Context, cfg *config.Config, opts ...IndexOption) (*Index, error) {
	options := &indexOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ix := &Index{config: cfg, logger: options.logger}
	switch cfg.Store {
	case config.StorePostgres:
		store, err := postgres.Open(ctx, cfg.DatabaseURL,
			postgres.WithDimensions(cfg.AI.Dimensions), postgres.WithLogger(options.logger))
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		ix.sources = store.SourceRepository()
		ix.chunks = store.ChunkRepository()
		ix.codeExamples = store.CodeExampleRepository()
		ix.closeStore = store.Close
	default:
		repos, err := badger.OpenRepositories(cfg.BadgerPath, false)
		if err != nil {
			return nil, fmt.Errorf("opening badger store: %w", err)
		}
		ix.sources = repos.Sources
		ix.chunks = repos.Chunks
		ix.codeExamples = repos.CodeExamples
		ix.closeStore = repos.Close
	}

	ix.provider = options.provider
	if ix.provider == nil {
		provider, err := openai.NewProvider(cfg.AI)
		if err != nil {
			ix.closeStore()
			return nil, fmt.Errorf("creating AI provider: %w", err)
		}
		ix.provider = provider
	}

	return ix, nil
}

// Close releases the provider and the store.
func (ix *Index) Close() error {
	// Close AI provider first
	if err := ix.provider.Close(); err != nil {
		ix.logger.Error("error closing AI provider", "err", err)
	}
	if err := ix.closeStore(); err != nil {
		ix.logger.Error("error closing store", "store", ix.config.Store, "err", err)
		return err
	}
	return nil
}

func (ix *Index) SourceRepository() storage.SourceRepository {
	return ix.sources
}

func (ix *Index) ChunkRepository() storage.ChunkRepository {
	return ix.chunks
}

func (ix *Index) CodeExampleRepository() storage.CodeExampleRepository {
	return ix.codeExamples
}

// NewIngestionPipeline creates a pipeline configured from the Index's
// configuration. opts are applied after the configured ones.
func (ix *Index) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	configured := []ingestion.Option{
		ingestion.WithBatchSize(ix.config.BatchSize),
		ingestion.WithChunkSize(ix.config.ChunkSize),
		ingestion.WithConcurrency(ix.config.Concurrency),
		ingestion.WithContextualEmbeddings(ix.config.UseContextualEmbeddings),
		ingestion.WithCodeExtraction(ix.config.ExtractCodeExamples),
		ingestion.WithMinCodeLength(ix.config.MinCodeLength),
		ingestion.WithLogger(ix.logger),
	}
	return ingestion.NewPipeline(ix.sources, ix.chunks, ix.codeExamples, ix.provider, append(configured, opts...)...)
}

func (ix *Index) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(ix.chunks, ix.codeExamples, ix.provider,
		append([]search.Option{search.WithLogger(ix.logger)}, opts...)...)
}

// Provider returns the AI provider owned by the Index.
func (ix *Index) Provider() ai.AIProvider {
	return ix.provider
}
