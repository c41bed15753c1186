// Package orchestrator runs every verification agent for a provider
// concurrently and folds their results into one immutable TrustScore.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"octopus/internal/trust/agents"
	"octopus/internal/trust/metrics"
	"octopus/internal/trust/models"
	id "octopus/pkg/domain"
	dErrors "octopus/pkg/domain-errors"
	"octopus/pkg/requestcontext"
)

const defaultAgentTimeout = 10 * time.Second

// SubjectLoader loads the provider snapshot agents evaluate. It returns a
// not_found domain error for unknown providers.
type SubjectLoader interface {
	Subject(ctx context.Context, providerID id.ProviderID) (agents.Subject, error)
}

// ScoreAppender persists a finished evaluation.
type ScoreAppender interface {
	Append(ctx context.Context, score *models.TrustScore) error
}

// Outcome is the tagged result of one agent: exactly one of Result and Err
// is set.
type Outcome struct {
	Kind    models.AgentKind
	Result  *agents.Result
	Err     *agents.AgentError
	Latency time.Duration
}

// Orchestrator fans a provider out to its agents.
type Orchestrator struct {
	agents       []agents.Agent
	subjects     SubjectLoader
	scores       ScoreAppender
	thresholds   models.Thresholds
	agentTimeout time.Duration
	metrics      *metrics.Metrics
	logger       *slog.Logger
	tracer       trace.Tracer
}

type Option func(*Orchestrator)

func WithThresholds(t models.Thresholds) Option {
	return func(o *Orchestrator) {
		o.thresholds = t
	}
}

// WithAgentTimeout bounds each agent call independently.
func WithAgentTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.agentTimeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// New builds an orchestrator. Each agent kind may appear at most once.
func New(agentSet []agents.Agent, subjects SubjectLoader, scores ScoreAppender, opts ...Option) (*Orchestrator, error) {
	if len(agentSet) == 0 {
		return nil, errors.New("orchestrator: no agents")
	}
	seen := make(map[models.AgentKind]bool, len(agentSet))
	for _, a := range agentSet {
		kind := a.Kind()
		if !kind.IsValid() {
			return nil, fmt.Errorf("orchestrator: unknown agent kind %q", kind)
		}
		if seen[kind] {
			return nil, fmt.Errorf("orchestrator: duplicate agent kind %q", kind)
		}
		seen[kind] = true
	}

	o := &Orchestrator{
		agents:       agentSet,
		subjects:     subjects,
		scores:       scores,
		thresholds:   models.DefaultThresholds(),
		agentTimeout: defaultAgentTimeout,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:       otel.Tracer("octopus/trust"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Thresholds returns the decision thresholds in use.
func (o *Orchestrator) Thresholds() models.Thresholds {
	return o.thresholds
}

// Run evaluates a provider and appends the resulting TrustScore. It never
// touches provider status. When every agent fails nothing is appended and an
// evaluation_unavailable error is returned.
func (o *Orchestrator) Run(ctx context.Context, providerID id.ProviderID) (*models.TrustScore, error) {
	ctx, span := o.tracer.Start(ctx, "trust.evaluate",
		trace.WithAttributes(attribute.String("provider_id", providerID.String())))
	defer span.End()
	start := time.Now()

	subject, err := o.subjects.Subject(ctx, providerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load subject")
		return nil, err
	}

	outcomes := o.fanOut(ctx, subject)
	score, verdicts, failures := Aggregate(outcomes)
	o.metrics.ObserveEvaluateLatency(time.Since(start))

	if len(verdicts) == 0 {
		o.metrics.IncrementUnavailable()
		o.logger.WarnContext(ctx, "trust evaluation unavailable",
			"provider_id", providerID,
			"failures", len(failures),
		)
		span.SetStatus(codes.Error, "all agents failed")
		return nil, dErrors.New(dErrors.CodeEvaluationUnavailable, "every verification agent failed")
	}

	decision := o.thresholds.Decide(score)
	ts := &models.TrustScore{
		ID:                id.NewTrustScoreID(),
		ProviderID:        providerID,
		Score:             score,
		Decision:          decision,
		NeedsManualReview: decision == models.DecisionManualReview,
		Verdicts:          verdicts,
		Failures:          failures,
		CalculatedAt:      requestcontext.Now(ctx),
	}
	if err := o.scores.Append(ctx, ts); err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record trust score")
	}

	o.metrics.IncrementDecision(string(decision), "evaluation")
	span.SetAttributes(
		attribute.Int("trust.score", score),
		attribute.String("trust.decision", string(decision)),
		attribute.Int("trust.failures", len(failures)),
	)
	o.logger.InfoContext(ctx, "trust evaluated",
		"provider_id", providerID,
		"trust_score_id", ts.ID,
		"score", score,
		"decision", decision,
		"degraded", ts.Degraded(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return ts, nil
}

// fanOut runs every agent concurrently. Agents share no cancellation: a
// failing agent does not stop its siblings. Outcomes keep agent order.
func (o *Orchestrator) fanOut(ctx context.Context, subject agents.Subject) []Outcome {
	outcomes := make([]Outcome, len(o.agents))
	var g errgroup.Group
	for i, a := range o.agents {
		g.Go(func() error {
			outcomes[i] = o.runAgent(ctx, a, subject)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

type reply struct {
	result *agents.Result
	err    error
}

// runAgent calls one agent under its own deadline. An agent that ignores
// cancellation is abandoned at the deadline; its goroutine drains into a
// buffered channel when it eventually returns.
func (o *Orchestrator) runAgent(ctx context.Context, a agents.Agent, subject agents.Subject) Outcome {
	kind := a.Kind()
	ctx, span := o.tracer.Start(ctx, "trust.agent", trace.WithAttributes(attribute.String("agent", string(kind))))
	defer span.End()

	agentCtx, cancel := context.WithTimeout(ctx, o.agentTimeout)
	defer cancel()

	start := time.Now()
	ch := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- reply{err: agents.NewAgentError(kind, agents.CategoryInternal, fmt.Sprintf("agent panicked: %v", r), nil)}
			}
		}()
		res, err := a.Evaluate(agentCtx, subject)
		ch <- reply{result: res, err: err}
	}()

	var r reply
	select {
	case r = <-ch:
	case <-agentCtx.Done():
		select {
		case r = <-ch:
		default:
			r = reply{err: agents.NewAgentError(kind, agents.CategoryTimeout, "agent deadline exceeded", agentCtx.Err())}
		}
	}

	out := Outcome{Kind: kind, Latency: time.Since(start)}
	if r.err == nil {
		r.err = r.result.Validate(kind)
	}
	if r.err != nil {
		out.Err = agents.Classify(kind, r.err)
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, string(out.Err.Category))
		o.metrics.ObserveAgent(string(kind), string(out.Err.Category), out.Latency)
		o.logger.WarnContext(ctx, "verification agent failed",
			"agent", kind,
			"category", out.Err.Category,
			"retryable", out.Err.Retryable,
			"error", out.Err,
			"latency_ms", out.Latency.Milliseconds(),
		)
		return out
	}

	out.Result = r.result
	span.SetAttributes(attribute.Int("agent.score", r.result.Score))
	o.metrics.ObserveAgent(string(kind), "ok", out.Latency)
	return out
}

// Aggregate folds outcomes into the weighted score: sum(weight*score)/100
// with integer weights in hundredths, floored. Failed agents add neither
// numerator nor weight and the remaining weights are not renormalised.
func Aggregate(outcomes []Outcome) (int, []models.AgentVerdict, []models.AgentFailure) {
	numerator := 0
	verdicts := make([]models.AgentVerdict, 0, len(outcomes))
	var failures []models.AgentFailure
	for _, oc := range outcomes {
		if oc.Err != nil || oc.Result == nil {
			f := models.AgentFailure{Agent: oc.Kind, Category: string(agents.CategoryInternal), LatencyMS: oc.Latency.Milliseconds()}
			if oc.Err != nil {
				f.Category = string(oc.Err.Category)
				f.Reason = oc.Err.Error()
				f.Retryable = oc.Err.Retryable
			}
			failures = append(failures, f)
			continue
		}
		w := oc.Kind.Weight()
		numerator += w * oc.Result.Score
		verdicts = append(verdicts, models.AgentVerdict{
			Agent:      oc.Kind,
			Score:      oc.Result.Score,
			Weight:     w,
			Factors:    oc.Result.Factors,
			Confidence: oc.Result.Confidence,
			LatencyMS:  oc.Latency.Milliseconds(),
		})
	}
	return numerator / 100, verdicts, failures
}
