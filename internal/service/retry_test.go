package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"unitbook/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextDelay(t *testing.T) {
	policy := DefaultRetryPolicy()

	assert.Equal(t, 100*time.Millisecond, policy.NextDelay(1))
	assert.Equal(t, 200*time.Millisecond, policy.NextDelay(2))
	assert.Equal(t, 400*time.Millisecond, policy.NextDelay(3))
	assert.Equal(t, 800*time.Millisecond, policy.NextDelay(4))
	// Clamped at MaxDelay from here on.
	assert.Equal(t, time.Second, policy.NextDelay(5))
	assert.Equal(t, time.Second, policy.NextDelay(10))

	// Degenerate input falls back to sane values.
	assert.Equal(t, 100*time.Millisecond, RetryPolicy{}.NextDelay(0))
}

func TestRunWithRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := runWithRetry(context.Background(), fastRetry(), func() error {
		calls++
		if calls < 2 {
			return database.ErrConcurrentModification
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRunWithRetryDoesNotRetryBusinessErrors(t *testing.T) {
	calls := 0
	err := runWithRetry(context.Background(), fastRetry(), func() error {
		calls++
		return database.ErrAlreadyPaid
	})
	assert.ErrorIs(t, err, database.ErrAlreadyPaid)
	assert.Equal(t, 1, calls)
}

func TestRunWithRetryExhaustion(t *testing.T) {
	policy := fastRetry()
	calls := 0
	err := runWithRetry(context.Background(), policy, func() error {
		calls++
		return database.ErrConcurrentModification
	})
	assert.ErrorIs(t, err, database.ErrBookingConflict)
	assert.Equal(t, policy.MaxRetries, calls)
}

func TestRunWithRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runWithRetry(ctx, DefaultRetryPolicy(), func() error {
		return database.ErrConcurrentModification
	})
	assert.True(t, errors.Is(err, context.Canceled))
}
