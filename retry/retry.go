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


// Package retry implements the bounded retry-then-degrade policy shared by
// embedding generation and bulk store writes.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	// DefaultMaxAttempts is the number of attempts made before degrading.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the wait before the second attempt. It doubles
	// for every attempt after that.
	DefaultBaseDelay = time.Second
)

// Policy describes how an operation is retried.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultPolicy returns a Policy with three attempts and a one second base delay.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
	}
}

// Validate checks the policy can be executed.
func (p Policy) Validate() error {
	if p.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if p.BaseDelay < 0 {
		return ErrInvalidBaseDelay
	}
	return nil
}

// Do runs operation until it succeeds or the policy is exhausted.
func (p Policy) Do(ctx context.Context, operation func(ctx context.Context) error) error {
	return WithBackoff(ctx, func() error { return operation(ctx) }, p.MaxAttempts, p.BaseDelay)
}

// DoOrDegrade runs operation under the policy. When every attempt fails,
// degrade is invoked with the last error and its result is returned with
// degraded set to true. Context cancellation is returned as is and never
// triggers degrade.
func (p Policy) DoOrDegrade(ctx context.Context, operation func(ctx context.Context) error, degrade func(ctx context.Context, cause error) error) (degraded bool, err error) {
	err = p.Do(ctx, operation)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, ErrInvalidMaxAttempts) {
		return false, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	if degrade == nil {
		return true, err
	}
	return true, degrade(ctx, err)
}

// WithBackoff retries an operation with exponential backoff.
// maxAttempts: maximum number of attempts (must be > 0)
// baseDelay: base delay between retries (doubles on each retry)
// Returns the error from the last attempt if all attempts fail.
func WithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		slog.Debug("operation failed", "attempt", attempt, "maxAttempts", maxAttempts, "err", lastErr)

		if attempt == maxAttempts {
			break
		}

		// baseDelay * 2^(attempt-1)
		delay := baseDelay << (attempt - 1)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
