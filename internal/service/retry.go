package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"unitbook/internal/database"
	"unitbook/internal/metrics"
)

// RetryPolicy defines exponential backoff parameters.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy — 5 попыток: 100ms, 200ms, 400ms, 800ms, потолок 1s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    5,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2,
	}
}

// NextDelay returns delay for a given attempt (1-based) with clamping.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = 100 * time.Millisecond
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}

	delay := float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1))
	d := time.Duration(delay)
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d <= 0 {
		d = 100 * time.Millisecond
	}
	return d
}

// runWithRetry повторяет op только при транзиентных ошибках хранилища.
// Бизнес-ошибки возвращаются сразу; исчерпание попыток превращается в
// терминальный ErrBookingConflict.
func runWithRetry(ctx context.Context, policy RetryPolicy, op func() error) error {
	maxRetries := policy.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = op()
		if err == nil || !database.IsTransient(err) {
			return err
		}

		metrics.IncConflictRetry()
		if attempt == maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.NextDelay(attempt)):
		}
	}

	return fmt.Errorf("%w: %v", database.ErrBookingConflict, err)
}
