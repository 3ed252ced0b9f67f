package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marroweth/vigil/internal/service"
)

func fastRetry(attempts int) service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
	}
}

func TestWithRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return nil
	}, fastRetry(3))

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryEventualSuccess(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, fastRetry(3))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryExhausted(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return errors.New("persistent")
	}, fastRetry(2))

	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, 2, calls)
}

func TestWithRetryNonRetryable(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return &RetryableError{Err: errors.New("fatal"), Retryable: false}
	}, fastRetry(3))

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, func() error {
		return errors.New("transient")
	}, fastRetry(3))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckContext(t *testing.T) {
	assert.NoError(t, CheckContext(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, CheckContext(ctx), context.Canceled)
}
