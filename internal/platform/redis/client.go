package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"octopus/internal/platform/config"
	"octopus/pkg/platform/sentinel"
)

// Client wraps the go-redis client with the small key-value surface the
// application needs: counters with expiry and TTL-bound blobs.
type Client struct {
	*redis.Client
}

// New creates a new Redis client from the provided configuration.
// Returns nil if the URL is empty (Redis not configured).
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{Client: client}, nil
}

// Wrap adapts an existing go-redis client, used by integration tests.
func Wrap(client *redis.Client) *Client {
	return &Client{Client: client}
}

// IncrWithExpiry atomically increments key and sets its expiry when the key
// is created. It returns the new count and the remaining TTL.
func (c *Client) IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	pipe := c.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, ttl)
	pttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("incr %s: %w", key, errors.Join(sentinel.ErrUnavailable, err))
	}
	remaining := pttl.Val()
	if remaining < 0 {
		remaining = ttl
	}
	return incr.Val(), remaining, nil
}

// GetBytes returns the stored value or sentinel.ErrNotFound.
func (c *Client) GetBytes(ctx context.Context, key string) ([]byte, error) {
	val, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, errors.Join(sentinel.ErrUnavailable, err))
	}
	return val, nil
}

// SetBytes stores value under key for ttl.
func (c *Client) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, errors.Join(sentinel.ErrUnavailable, err))
	}
	return nil
}

// Health checks if the Redis connection is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.Client.Close()
}
