package agents

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"octopus/internal/trust/models"
	"octopus/pkg/platform/circuit"
)

type scriptedAgent struct {
	calls   atomic.Int32
	results []func() (*Result, error)
}

func (a *scriptedAgent) Kind() models.AgentKind { return models.AgentVerification }

func (a *scriptedAgent) Evaluate(context.Context, Subject) (*Result, error) {
	n := int(a.calls.Add(1)) - 1
	if n >= len(a.results) {
		n = len(a.results) - 1
	}
	return a.results[n]()
}

func ok(score int) func() (*Result, error) {
	return func() (*Result, error) {
		return &Result{Kind: models.AgentVerification, Score: score, Factors: map[string]any{}, Confidence: 1}, nil
	}
}

func fail(category Category) func() (*Result, error) {
	return func() (*Result, error) {
		return nil, NewAgentError(models.AgentVerification, category, "scripted", nil)
	}
}

func fastRetry(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, Multiplier: 2}
}

func TestGuard_RetriesRetryableFailures(t *testing.T) {
	agent := &scriptedAgent{results: []func() (*Result, error){
		fail(CategoryProviderOutage),
		fail(CategoryTimeout),
		ok(80),
	}}
	g := NewGuard(agent, WithRetryPolicy(fastRetry(3)))

	res, err := g.Evaluate(context.Background(), Subject{})
	require.NoError(t, err)
	assert.Equal(t, 80, res.Score)
	assert.EqualValues(t, 3, agent.calls.Load())
}

func TestGuard_DoesNotRetryBadData(t *testing.T) {
	agent := &scriptedAgent{results: []func() (*Result, error){fail(CategoryBadData), ok(80)}}
	g := NewGuard(agent, WithRetryPolicy(fastRetry(3)))

	_, err := g.Evaluate(context.Background(), Subject{})
	require.Error(t, err)
	assert.Equal(t, CategoryBadData, CategoryOf(err))
	assert.EqualValues(t, 1, agent.calls.Load())
}

func TestGuard_OutOfRangeScoreIsBadData(t *testing.T) {
	agent := &scriptedAgent{results: []func() (*Result, error){ok(140)}}
	g := NewGuard(agent, WithRetryPolicy(fastRetry(3)))

	_, err := g.Evaluate(context.Background(), Subject{})
	require.Error(t, err)
	assert.Equal(t, CategoryBadData, CategoryOf(err))
	assert.False(t, IsRetryable(err))
	assert.EqualValues(t, 1, agent.calls.Load())
}

func TestGuard_GivesUpAfterMaxAttempts(t *testing.T) {
	agent := &scriptedAgent{results: []func() (*Result, error){fail(CategoryProviderOutage)}}
	g := NewGuard(agent, WithRetryPolicy(fastRetry(2)))

	_, err := g.Evaluate(context.Background(), Subject{})
	require.Error(t, err)
	assert.Equal(t, CategoryProviderOutage, CategoryOf(err))
	assert.EqualValues(t, 2, agent.calls.Load())
}

func TestGuard_BreakerOpensAndShortCircuits(t *testing.T) {
	agent := &scriptedAgent{results: []func() (*Result, error){fail(CategoryProviderOutage)}}
	breaker := circuit.New("verification", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	g := NewGuard(agent, WithRetryPolicy(fastRetry(1)), WithBreaker(breaker))

	for i := 0; i < 2; i++ {
		_, err := g.Evaluate(context.Background(), Subject{})
		require.Error(t, err)
	}
	assert.True(t, breaker.IsOpen())

	_, err := g.Evaluate(context.Background(), Subject{})
	require.Error(t, err)
	assert.Equal(t, CategoryCircuitOpen, CategoryOf(err))
	assert.False(t, IsRetryable(err))
	assert.EqualValues(t, 2, agent.calls.Load(), "open breaker must not call the agent")
}

func TestGuard_BadDataDoesNotTripBreaker(t *testing.T) {
	agent := &scriptedAgent{results: []func() (*Result, error){fail(CategoryBadData)}}
	breaker := circuit.New("verification", circuit.WithFailureThreshold(1))
	g := NewGuard(agent, WithBreaker(breaker))

	_, _ = g.Evaluate(context.Background(), Subject{})
	assert.False(t, breaker.IsOpen())
}

func TestGuard_RateLimiterHonoursDeadline(t *testing.T) {
	agent := &scriptedAgent{results: []func() (*Result, error){ok(50)}}
	g := NewGuard(agent, WithRateLimit(1))

	_, err := g.Evaluate(context.Background(), Subject{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = g.Evaluate(ctx, Subject{})
	require.Error(t, err)
	assert.Contains(t, []Category{CategoryTimeout, CategoryRateLimited}, CategoryOf(err))
	assert.EqualValues(t, 1, agent.calls.Load())
}

func TestGuard_StopsRetryingWhenContextEnds(t *testing.T) {
	agent := &scriptedAgent{results: []func() (*Result, error){fail(CategoryProviderOutage)}}
	g := NewGuard(agent, WithRetryPolicy(RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Hour, Multiplier: 1}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := g.Evaluate(ctx, Subject{})
	require.Error(t, err)
	assert.Equal(t, CategoryTimeout, CategoryOf(err))
	assert.EqualValues(t, 1, agent.calls.Load())
}

func TestRetryPolicy_BackoffIsCapped(t *testing.T) {
	p := RetryPolicy{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond, Multiplier: 2}
	assert.Equal(t, 100*time.Millisecond, p.backoff(1))
	assert.Equal(t, 200*time.Millisecond, p.backoff(2))
	assert.Equal(t, 300*time.Millisecond, p.backoff(3))
	assert.Equal(t, 300*time.Millisecond, p.backoff(10))
}
