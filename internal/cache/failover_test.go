package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenCache всегда возвращает ошибку; имитирует лежащий Redis.
type brokenCache struct{}

func (brokenCache) Get(ctx context.Context) (int64, bool, error) {
	return 0, false, errors.New("primary down")
}
func (brokenCache) Set(ctx context.Context, count int64) error { return errors.New("primary down") }
func (brokenCache) Invalidate(ctx context.Context) error       { return errors.New("primary down") }

func testLogger() *zerolog.Logger {
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	return &logger
}

func TestFailoverUsesPrimaryWhenHealthy(t *testing.T) {
	primary := NewMemoryAvailabilityCache(time.Hour)
	fallback := NewMemoryAvailabilityCache(time.Hour)
	fo := NewFailoverAvailabilityCache(primary, fallback, testLogger())
	ctx := context.Background()

	require.NoError(t, fo.Set(ctx, 10))

	count, ok, err := primary.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(10), count)

	// Fallback stays untouched while primary works.
	_, ok, err = fallback.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFailoverFallsBackWhenPrimaryDown(t *testing.T) {
	fallback := NewMemoryAvailabilityCache(time.Hour)
	fo := NewFailoverAvailabilityCache(brokenCache{}, fallback, testLogger())
	ctx := context.Background()

	require.NoError(t, fo.Set(ctx, 3))

	count, ok, err := fo.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), count)
}

func TestFailoverDoesNotHammerDownedPrimary(t *testing.T) {
	fallback := NewMemoryAvailabilityCache(time.Hour)
	fo := NewFailoverAvailabilityCache(brokenCache{}, fallback, testLogger())
	ctx := context.Background()

	// First call marks the primary as down.
	_, _, _ = fo.Get(ctx)
	assert.True(t, fo.isDown.Load())

	// Within the cooldown the primary is not retried.
	assert.False(t, fo.shouldRetryPrimary())

	// After the cooldown a single probe is allowed.
	fo.mu.Lock()
	fo.lastCheck = time.Now().Add(-2 * time.Minute)
	fo.mu.Unlock()
	assert.True(t, fo.shouldRetryPrimary())
	assert.False(t, fo.shouldRetryPrimary(), "only one probe per cooldown window")
}

func TestFailoverRecovers(t *testing.T) {
	cache, mr := setupRedisCache(t)
	fallback := NewMemoryAvailabilityCache(time.Hour)
	fo := NewFailoverAvailabilityCache(cache, fallback, testLogger())
	ctx := context.Background()

	addr := mr.Addr()
	mr.Close()

	require.NoError(t, fo.Set(ctx, 9))
	assert.True(t, fo.isDown.Load())

	// Primary comes back on the same address and the cooldown elapses.
	mr2 := miniredis.NewMiniRedis()
	require.NoError(t, mr2.StartAddr(addr))
	defer mr2.Close()

	fo.mu.Lock()
	fo.lastCheck = time.Now().Add(-2 * time.Minute)
	fo.mu.Unlock()

	require.NoError(t, fo.Set(ctx, 11))
	assert.False(t, fo.isDown.Load())

	count, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(11), count)
}

func TestFailoverInvalidateReachesBoth(t *testing.T) {
	primary := NewMemoryAvailabilityCache(time.Hour)
	fallback := NewMemoryAvailabilityCache(time.Hour)
	fo := NewFailoverAvailabilityCache(primary, fallback, testLogger())
	ctx := context.Background()

	require.NoError(t, primary.Set(ctx, 1))
	require.NoError(t, fallback.Set(ctx, 2))

	require.NoError(t, fo.Invalidate(ctx))

	_, ok, _ := primary.Get(ctx)
	assert.False(t, ok)
	_, ok, _ = fallback.Get(ctx)
	assert.False(t, ok)
}
