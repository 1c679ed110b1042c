package ingestion

import "errors"

var (
	// ErrSourceRepositoryRequired is returned when a source repository is not provided.
	ErrSourceRepositoryRequired = errors.New("source repository required")

	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrCodeExampleRepositoryRequired is returned when a code example repository is not provided.
	ErrCodeExampleRepositoryRequired = errors.New("code example repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrMismatchedInput is returned when parallel input columns differ in length.
	ErrMismatchedInput = errors.New("input columns have different lengths")

	// ErrInvalidBatchSize is returned for a non-positive batch size.
	ErrInvalidBatchSize = errors.New("batch size must be positive")
)
