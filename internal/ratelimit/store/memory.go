// Package store holds an in-process rate limit counter for development and
// tests. Production uses the Redis client.
package store

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count     int64
	expiresAt time.Time
}

type InMemoryCounter struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

func NewInMemoryCounter() *InMemoryCounter {
	return &InMemoryCounter{entries: make(map[string]*entry), now: time.Now}
}

// WithClock overrides the time source.
func (c *InMemoryCounter) WithClock(now func() time.Time) *InMemoryCounter {
	c.now = now
	return c
}

func (c *InMemoryCounter) IncrWithExpiry(_ context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	e, ok := c.entries[key]
	if !ok || !now.Before(e.expiresAt) {
		e = &entry{expiresAt: now.Add(ttl)}
		c.entries[key] = e
	}
	e.count++
	return e.count, e.expiresAt.Sub(now), nil
}
