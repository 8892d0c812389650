package cache

import (
	"context"
	"testing"
	"time"

	"unitbook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisCache(t *testing.T) (*RedisAvailabilityCache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisAvailabilityCache(client, time.Hour), mr
}

func TestRedisAvailabilityCache(t *testing.T) {
	cache, mr := setupRedisCache(t)
	ctx := context.Background()

	// Empty cache is a miss, not an error.
	_, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, 42))

	count, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), count)

	// Value lives under the fixed key with a TTL.
	assert.True(t, mr.Exists(models.AvailableCountCacheKey))
	assert.Greater(t, mr.TTL(models.AvailableCountCacheKey), time.Duration(0))

	require.NoError(t, cache.Invalidate(ctx))
	_, ok, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisAvailabilityCacheTTLExpiry(t *testing.T) {
	cache, mr := setupRedisCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 7))
	mr.FastForward(2 * time.Hour)

	_, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisAvailabilityCacheServerDown(t *testing.T) {
	cache, mr := setupRedisCache(t)
	ctx := context.Background()

	mr.Close()

	_, _, err := cache.Get(ctx)
	assert.Error(t, err)
	assert.Error(t, cache.Set(ctx, 1))
	assert.Error(t, cache.Invalidate(ctx))
}

func TestPing(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	assert.NoError(t, Ping(context.Background(), client))

	mr.Close()
	assert.Error(t, Ping(context.Background(), client))
}
