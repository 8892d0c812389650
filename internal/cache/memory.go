package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryAvailabilityCache — резервная реализация на случай недоступного Redis.
type MemoryAvailabilityCache struct {
	mu        sync.RWMutex
	count     int64
	set       bool
	expiresAt time.Time
	ttl       time.Duration
}

func NewMemoryAvailabilityCache(ttl time.Duration) *MemoryAvailabilityCache {
	return &MemoryAvailabilityCache{ttl: ttl}
}

func (c *MemoryAvailabilityCache) Get(ctx context.Context) (int64, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.set || time.Now().After(c.expiresAt) {
		return 0, false, nil
	}
	return c.count, true, nil
}

func (c *MemoryAvailabilityCache) Set(ctx context.Context, count int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = count
	c.set = true
	c.expiresAt = time.Now().Add(c.ttl)
	return nil
}

func (c *MemoryAvailabilityCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set = false
	return nil
}
