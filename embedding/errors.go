package embedding

import "errors"

var (
	// ErrEmbedderRequired is returned when an Adapter is built without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrInvalidDimensions is returned for a non-positive vector length.
	ErrInvalidDimensions = errors.New("dimensions must be positive")

	// ErrLengthMismatch is returned when a batch response does not carry one
	// vector per input.
	ErrLengthMismatch = errors.New("embedding response length mismatch")

	// ErrDimensionMismatch is returned when a returned vector has the wrong length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
