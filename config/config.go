// Package config loads crawlindex settings from the environment and optional
// .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/poiesic/crawlindex/ai"
)

// Store backends.
const (
	StoreBadger   = "badger"
	StorePostgres = "postgres"
)

// Environment variables read by Load.
const (
	EnvAPIKey          = "OPENAI_API_KEY"
	EnvEmbeddingHost   = "EMBEDDING_HOST"
	EnvCompletionHost  = "LLM_HOST"
	EnvEmbeddingModel  = "EMBEDDING_MODEL"
	EnvCompletionModel = "MODEL_CHOICE"
	EnvDimensions      = "EMBEDDING_DIMENSIONS"
	EnvContextual      = "USE_CONTEXTUAL_EMBEDDINGS"
	EnvCodeExamples    = "USE_AGENTIC_RAG"
	EnvConcurrency     = "CONTEXTUAL_CONCURRENCY"
	EnvBatchSize       = "BATCH_SIZE"
	EnvChunkSize       = "CHUNK_SIZE"
	EnvMinCodeLength   = "MIN_CODE_LENGTH"
	EnvStore           = "STORE"
	EnvBadgerPath      = "BADGER_PATH"
	EnvDatabaseURL     = "DATABASE_URL"
)

var (
	// ErrUnknownStore is returned when STORE names an unsupported backend.
	ErrUnknownStore = errors.New("unknown store")

	// ErrDatabaseURLRequired is returned when the postgres store has no DSN.
	ErrDatabaseURLRequired = errors.New("DATABASE_URL is required for the postgres store")

	// ErrBadgerPathRequired is returned when the badger store has no directory.
	ErrBadgerPathRequired = errors.New("BADGER_PATH is required for the badger store")
)

// Config holds every setting of an ingestion or search run.
type Config struct {
	AI *ai.Config

	UseContextualEmbeddings bool
	ExtractCodeExamples     bool
	Concurrency             int
	BatchSize               int
	ChunkSize               int
	MinCodeLength           int

	Store       string
	BadgerPath  string
	DatabaseURL string
}

// Default returns the configuration used when no variable is set.
func Default() *Config {
	return &Config{
		AI:            ai.DefaultConfig(),
		Concurrency:   10,
		BatchSize:     20,
		ChunkSize:     5000,
		MinCodeLength: 1000,
		Store:         StoreBadger,
		BadgerPath:    "./crawlindex_db",
	}
}

// Load reads the given .env files, or .env in the working directory when
// none are given, and overlays the environment on Default. Missing files are
// ignored; variables already set in the environment win over file values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		_ = godotenv.Load()
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", file, err)
		}
	}

	cfg := Default()
	cfg.AI.APIKey = getEnv(EnvAPIKey, cfg.AI.APIKey)
	cfg.AI.EmbeddingHost = getEnv(EnvEmbeddingHost, cfg.AI.EmbeddingHost)
	cfg.AI.CompletionHost = getEnv(EnvCompletionHost, cfg.AI.CompletionHost)
	cfg.AI.EmbeddingModel = getEnv(EnvEmbeddingModel, cfg.AI.EmbeddingModel)
	cfg.AI.CompletionModel = getEnv(EnvCompletionModel, cfg.AI.CompletionModel)
	cfg.Store = strings.ToLower(getEnv(EnvStore, cfg.Store))
	cfg.BadgerPath = getEnv(EnvBadgerPath, cfg.BadgerPath)
	cfg.DatabaseURL = getEnv(EnvDatabaseURL, cfg.DatabaseURL)

	var errs []error
	cfg.AI.Dimensions = getEnvInt(EnvDimensions, cfg.AI.Dimensions, &errs)
	cfg.Concurrency = getEnvInt(EnvConcurrency, cfg.Concurrency, &errs)
	cfg.BatchSize = getEnvInt(EnvBatchSize, cfg.BatchSize, &errs)
	cfg.ChunkSize = getEnvInt(EnvChunkSize, cfg.ChunkSize, &errs)
	cfg.MinCodeLength = getEnvInt(EnvMinCodeLength, cfg.MinCodeLength, &errs)
	cfg.UseContextualEmbeddings = getEnvBool(EnvContextual, cfg.UseContextualEmbeddings, &errs)
	cfg.ExtractCodeExamples = getEnvBool(EnvCodeExamples, cfg.ExtractCodeExamples, &errs)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return cfg, nil
}

// Validate checks the store settings and the AI configuration.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreBadger:
		if c.BadgerPath == "" {
			return ErrBadgerPathRequired
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return ErrDatabaseURLRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStore, c.Store)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	return c.AI.Validate()
}

// getEnv reads an environment variable with a default fallback.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int, errs *[]error) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s=%q is not an integer", key, v))
		return def
	}
	return n
}

func getEnvBool(key string, def bool, errs *[]error) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s=%q is not a boolean", key, v))
		return def
	}
	return b
}
