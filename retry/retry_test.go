package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithBackoff_Success(t *testing.T) {
	attempts := 0
	err := WithBackoff(context.Background(), func() error {
		attempts++
		return nil
	}, 3, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestWithBackoff_EventualSuccess(t *testing.T) {
	attempts := 0
	err := WithBackoff(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, 3, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestWithBackoff_AllAttemptsFail(t *testing.T) {
	attempts := 0
	expectedErr := errors.New("persistent error")
	err := WithBackoff(context.Background(), func() error {
		attempts++
		return expectedErr
	}, 3, time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, expectedErr, err)
	assert.Equal(t, 3, attempts)
}

func TestWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := WithBackoff(ctx, func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	}, 10, time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, attempts, 2)
}

func TestWithBackoff_ExponentialBackoff(t *testing.T) {
	attempts := 0
	var delays []time.Duration
	lastTime := time.Now()

	err := WithBackoff(context.Background(), func() error {
		attempts++
		if attempts > 1 {
			delays = append(delays, time.Since(lastTime))
		}
		lastTime = time.Now()
		if attempts < 4 {
			return errors.New("error")
		}
		return nil
	}, 5, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 4, attempts)

	require.Len(t, delays, 3)
	assert.GreaterOrEqual(t, delays[0], 10*time.Millisecond)
	assert.GreaterOrEqual(t, delays[1], 20*time.Millisecond)
	assert.GreaterOrEqual(t, delays[2], 40*time.Millisecond)
}

func TestWithBackoff_InvalidMaxAttempts(t *testing.T) {
	for _, n := range []int{0, -1} {
		attempts := 0
		err := WithBackoff(context.Background(), func() error {
			attempts++
			return nil
		}, n, time.Millisecond)
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
		assert.Equal(t, 0, attempts)
	}
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())
	assert.ErrorIs(t, Policy{MaxAttempts: 0}.Validate(), ErrInvalidMaxAttempts)
	assert.ErrorIs(t, Policy{MaxAttempts: 1, BaseDelay: -time.Second}.Validate(), ErrInvalidBaseDelay)
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, time.Second, p.BaseDelay)
}

func TestDoOrDegrade(t *testing.T) {
	policy := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	t.Run("success does not degrade", func(t *testing.T) {
		degradeCalls := 0
		degraded, err := policy.DoOrDegrade(context.Background(),
			func(ctx context.Context) error { return nil },
			func(ctx context.Context, cause error) error {
				degradeCalls++
				return nil
			})
		require.NoError(t, err)
		assert.False(t, degraded)
		assert.Equal(t, 0, degradeCalls)
	})

	t.Run("exhaustion degrades with last error", func(t *testing.T) {
		attempts := 0
		failure := errors.New("boom")
		var seen error
		degraded, err := policy.DoOrDegrade(context.Background(),
			func(ctx context.Context) error {
				attempts++
				return failure
			},
			func(ctx context.Context, cause error) error {
				seen = cause
				return nil
			})
		require.NoError(t, err)
		assert.True(t, degraded)
		assert.Equal(t, 3, attempts)
		assert.Equal(t, failure, seen)
	})

	t.Run("cancellation skips degrade", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		degradeCalls := 0
		degraded, err := policy.DoOrDegrade(ctx,
			func(ctx context.Context) error { return errors.New("boom") },
			func(ctx context.Context, cause error) error {
				degradeCalls++
				return nil
			})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, degraded)
		assert.Equal(t, 0, degradeCalls)
	})

	t.Run("degrade error is returned", func(t *testing.T) {
		degradeErr := errors.New("fallback failed")
		degraded, err := policy.DoOrDegrade(context.Background(),
			func(ctx context.Context) error { return errors.New("boom") },
			func(ctx context.Context, cause error) error { return degradeErr })
		assert.True(t, degraded)
		assert.Equal(t, degradeErr, err)
	})
}
