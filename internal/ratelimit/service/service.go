// Package service checks requests against fixed per-minute and per-hour
// windows held in a shared counter store.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"octopus/internal/ratelimit/models"
)

// Counter increments key and, on first use, sets its expiry. It returns the
// new count and the remaining time to live.
type Counter interface {
	IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error)
}

type Service struct {
	counter Counter
	windows []models.Window
	now     func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a limiter with a minute and an hour window. A non-positive
// limit disables that window.
func New(counter Counter, perMinute, perHour int, opts ...Option) (*Service, error) {
	if counter == nil {
		return nil, errors.New("rate limit counter is required")
	}
	s := &Service{counter: counter, now: time.Now}
	if perMinute > 0 {
		s.windows = append(s.windows, models.Window{Name: "minute", Limit: perMinute, Length: time.Minute})
	}
	if perHour > 0 {
		s.windows = append(s.windows, models.Window{Name: "hour", Limit: perHour, Length: time.Hour})
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Check counts one request for client in every window. The result reports
// the first exceeded window, or the window with the least headroom.
func (s *Service) Check(ctx context.Context, client string) (*models.RateLimitResult, error) {
	now := s.now()
	var result *models.RateLimitResult
	for _, w := range s.windows {
		count, ttl, err := s.counter.IncrWithExpiry(ctx, w.Key(client, now), w.Length)
		if err != nil {
			return nil, fmt.Errorf("count %s window: %w", w.Name, err)
		}
		if ttl <= 0 {
			ttl = w.Length
		}
		remaining := w.Limit - int(count)
		current := &models.RateLimitResult{
			Allowed:   remaining >= 0,
			Window:    w.Name,
			Limit:     w.Limit,
			Remaining: max(remaining, 0),
			ResetAt:   now.Add(ttl).Truncate(time.Second),
		}
		if !current.Allowed {
			current.RetryAfter = int(math.Ceil(ttl.Seconds()))
			return current, nil
		}
		if result == nil || current.Remaining < result.Remaining {
			result = current
		}
	}
	if result == nil {
		return &models.RateLimitResult{Allowed: true}, nil
	}
	return result, nil
}
