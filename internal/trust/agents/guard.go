package agents

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"

	"octopus/internal/trust/models"
	"octopus/pkg/platform/circuit"
)

// RetryPolicy controls how retryable agent failures are repeated.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	JitterFraction float64
}

// DefaultRetryPolicy allows two retries after the first attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Multiplier:     2,
		JitterFraction: 0.2,
	}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := float64(p.InitialBackoff)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
	}
	if ceiling := float64(p.MaxBackoff); p.MaxBackoff > 0 && d > ceiling {
		d = ceiling
	}
	if p.JitterFraction > 0 {
		d += d * p.JitterFraction * (rand.Float64()*2 - 1)
	}
	return time.Duration(d)
}

// Guard decorates an agent with an outbound rate limit, retries on
// retryable failures and a circuit breaker.
type Guard struct {
	next    Agent
	limiter *rate.Limiter
	breaker *circuit.Breaker
	retry   RetryPolicy
	logger  *slog.Logger
}

type GuardOption func(*Guard)

// WithRateLimit caps outbound calls at rps with a burst of the same size.
// Zero or negative rps disables limiting.
func WithRateLimit(rps float64) GuardOption {
	return func(g *Guard) {
		if rps <= 0 {
			g.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithRetryPolicy(p RetryPolicy) GuardOption {
	return func(g *Guard) {
		if p.MaxAttempts < 1 {
			p.MaxAttempts = 1
		}
		g.retry = p
	}
}

func WithBreaker(b *circuit.Breaker) GuardOption {
	return func(g *Guard) {
		g.breaker = b
	}
}

func WithGuardLogger(logger *slog.Logger) GuardOption {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGuard wraps next. Without options it retries with DefaultRetryPolicy,
// uses a default breaker and does not rate limit.
func NewGuard(next Agent, opts ...GuardOption) *Guard {
	g := &Guard{
		next:    next,
		breaker: circuit.New(string(next.Kind())),
		retry:   DefaultRetryPolicy(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guard) Kind() models.AgentKind { return g.next.Kind() }

func (g *Guard) Evaluate(ctx context.Context, subject Subject) (*Result, error) {
	kind := g.next.Kind()
	if g.breaker != nil && !g.breaker.Allow() {
		return nil, NewAgentError(kind, CategoryCircuitOpen, "circuit open", nil)
	}

	for attempt := 1; ; attempt++ {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return nil, NewAgentError(kind, CategoryTimeout, "deadline exceeded waiting for rate limiter", err)
				}
				return nil, NewAgentError(kind, CategoryRateLimited, "outbound rate limit", err)
			}
		}

		res, err := g.next.Evaluate(ctx, subject)
		if err == nil {
			if verr := res.Validate(kind); verr != nil {
				err = verr
			} else {
				g.recordSuccess(ctx)
				return res, nil
			}
		}

		ae := Classify(kind, err)
		if !ae.Retryable || attempt >= g.retry.MaxAttempts || ctx.Err() != nil {
			g.recordFailure(ctx, ae)
			return nil, ae
		}

		wait := g.retry.backoff(attempt)
		g.logger.DebugContext(ctx, "retrying agent",
			"agent", kind,
			"attempt", attempt,
			"category", ae.Category,
			"backoff_ms", wait.Milliseconds(),
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			ae = NewAgentError(kind, CategoryTimeout, "deadline exceeded during retry backoff", errors.Join(ctx.Err(), ae))
			g.recordFailure(ctx, ae)
			return nil, ae
		case <-timer.C:
		}
	}
}

func (g *Guard) recordSuccess(ctx context.Context) {
	if g.breaker == nil {
		return
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "agent circuit closed", "agent", g.next.Kind())
	}
}

// recordFailure counts only failures of the dependency itself; bad data and
// missing configuration do not trip the breaker.
func (g *Guard) recordFailure(ctx context.Context, ae *AgentError) {
	if g.breaker == nil {
		return
	}
	switch ae.Category {
	case CategoryBadData, CategoryNotConfigured, CategoryCircuitOpen:
		return
	}
	if _, change := g.breaker.RecordFailure(); change.Opened {
		g.logger.WarnContext(ctx, "agent circuit opened", "agent", g.next.Kind(), "category", ae.Category)
	}
}
