package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"octopus/internal/lead/attribution"
	"octopus/pkg/platform/sentinel"
)

const cachePrefix = "octopus:attribution:"

// ByteCache is the subset of the Redis client the attribution cache needs.
type ByteCache interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache keeps attribution records in Redis as JSON.
type RedisCache struct {
	client ByteCache
	ttl    time.Duration
}

func NewRedisCache(client ByteCache, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns sentinel.ErrNotFound on a miss.
func (c *RedisCache) Get(ctx context.Context, hash string) (*attribution.Record, error) {
	raw, err := c.client.GetBytes(ctx, cachePrefix+hash)
	if err != nil {
		return nil, err
	}
	var rec attribution.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode attribution %s: %w", hash, err)
	}
	return &rec, nil
}

func (c *RedisCache) Put(ctx context.Context, rec *attribution.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode attribution: %w", err)
	}
	return c.client.SetBytes(ctx, cachePrefix+rec.Hash, raw, c.ttl)
}

// MemoryCache is the in-process attribution cache. Entries expire after ttl.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	rec       attribution.Record
	expiresAt time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, now: time.Now, entries: make(map[string]cacheEntry)}
}

func (c *MemoryCache) Get(_ context.Context, hash string) (*attribution.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[hash]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if c.ttl > 0 && !c.now().Before(entry.expiresAt) {
		delete(c.entries, hash)
		return nil, sentinel.ErrNotFound
	}
	rec := entry.rec
	return &rec, nil
}

func (c *MemoryCache) Put(_ context.Context, rec *attribution.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[rec.Hash] = cacheEntry{rec: *rec, expiresAt: c.now().Add(c.ttl)}
	return nil
}
