package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"unitbook/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverAvailabilityCache уводит чтения/записи в память, когда Redis
// недоступен, и периодически пробует вернуться на основной кэш.
type FailoverAvailabilityCache struct {
	primary  domain.AvailabilityCache
	fallback domain.AvailabilityCache
	logger   *zerolog.Logger
	isDown   atomic.Bool

	mu        sync.Mutex
	lastCheck time.Time
	cooldown  time.Duration
}

func NewFailoverAvailabilityCache(primary, fallback domain.AvailabilityCache, logger *zerolog.Logger) *FailoverAvailabilityCache {
	return &FailoverAvailabilityCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		cooldown: time.Minute,
	}
}

func (c *FailoverAvailabilityCache) markDown(err error) {
	c.logger.Error().Err(err).Msg("Primary availability cache failed, falling back to memory")
	c.isDown.Store(true)
	c.mu.Lock()
	c.lastCheck = time.Now()
	c.mu.Unlock()
}

// shouldRetryPrimary: после cooldown разрешаем одну пробную попытку.
func (c *FailoverAvailabilityCache) shouldRetryPrimary() bool {
	if !c.isDown.Load() {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Since(c.lastCheck) > c.cooldown {
		c.lastCheck = time.Now()
		return true
	}
	return false
}

func (c *FailoverAvailabilityCache) Get(ctx context.Context) (int64, bool, error) {
	if c.shouldRetryPrimary() {
		count, ok, err := c.primary.Get(ctx)
		if err == nil {
			c.isDown.Store(false)
			return count, ok, nil
		}
		c.markDown(err)
	}
	return c.fallback.Get(ctx)
}

func (c *FailoverAvailabilityCache) Set(ctx context.Context, count int64) error {
	if c.shouldRetryPrimary() {
		err := c.primary.Set(ctx, count)
		if err == nil {
			c.isDown.Store(false)
			return nil
		}
		c.markDown(err)
	}
	return c.fallback.Set(ctx, count)
}

func (c *FailoverAvailabilityCache) Invalidate(ctx context.Context) error {
	// Инвалидация идет в обе реализации: устаревшее значение в памяти
	// опаснее лишнего промаха.
	var primaryErr error
	if c.shouldRetryPrimary() {
		primaryErr = c.primary.Invalidate(ctx)
		if primaryErr == nil {
			c.isDown.Store(false)
		} else {
			c.markDown(primaryErr)
		}
	}
	return c.fallback.Invalidate(ctx)
}
