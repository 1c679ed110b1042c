package retry

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when a policy allows no attempts.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrInvalidBaseDelay is returned when a policy has a negative delay.
	ErrInvalidBaseDelay = errors.New("baseDelay cannot be negative")
)
