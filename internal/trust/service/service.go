// Package service exposes trust evaluation to the rest of the system: running
// the orchestrator, applying decisions to providers, reviewer overrides and
// reinstatement.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	provider "octopus/internal/provider/models"
	"octopus/internal/trust/metrics"
	"octopus/internal/trust/models"
	id "octopus/pkg/domain"
	dErrors "octopus/pkg/domain-errors"
	"octopus/pkg/platform/events"
	"octopus/pkg/platform/sentinel"
	"octopus/pkg/requestcontext"
)

// Evaluator runs the verification agents and appends the resulting score.
type Evaluator interface {
	Run(ctx context.Context, providerID id.ProviderID) (*models.TrustScore, error)
	Thresholds() models.Thresholds
}

// ScoreStore is the append-only TrustScore history.
type ScoreStore interface {
	Append(ctx context.Context, score *models.TrustScore) error
	Latest(ctx context.Context, providerID id.ProviderID) (*models.TrustScore, error)
	History(ctx context.Context, providerID id.ProviderID, limit int) ([]*models.TrustScore, error)
}

// Providers applies trust outcomes to provider status.
type Providers interface {
	Get(ctx context.Context, providerID id.ProviderID) (*provider.Provider, error)
	ApplyTrustDecision(ctx context.Context, score *models.TrustScore) (*provider.Provider, error)
	ApplyReviewOverride(ctx context.Context, providerID id.ProviderID, approve bool, score int) (*provider.Provider, error)
	Reinstate(ctx context.Context, providerID id.ProviderID) (*provider.Provider, error)
}

// ContributionStore records the community work the contribution agent reads.
type ContributionStore interface {
	Record(ctx context.Context, c *models.Contribution) error
}

// TxRunner scopes a unit of work. Stores pick the transaction up from ctx.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type inline struct{}

func (inline) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type Service struct {
	evaluator     Evaluator
	scores        ScoreStore
	providers     Providers
	contributions ContributionStore
	tx            TxRunner
	publisher     events.Publisher
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTxRunner makes a manual review atomic across the score and provider
// stores.
func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) {
		if tx != nil {
			s.tx = tx
		}
	}
}

func WithContributions(store ContributionStore) Option {
	return func(s *Service) { s.contributions = store }
}

func New(evaluator Evaluator, scores ScoreStore, providers Providers, opts ...Option) (*Service, error) {
	if evaluator == nil {
		return nil, errors.New("evaluator is required")
	}
	if scores == nil {
		return nil, errors.New("score store is required")
	}
	if providers == nil {
		return nil, errors.New("providers are required")
	}
	s := &Service{
		evaluator: evaluator,
		scores:    scores,
		providers: providers,
		tx:        inline{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Evaluate runs every agent for the provider, records the score and applies
// the automated decision to the provider.
func (s *Service) Evaluate(ctx context.Context, providerID id.ProviderID) (*models.TrustScore, error) {
	score, err := s.evaluator.Run(ctx, providerID)
	if err != nil {
		return nil, err
	}

	p, err := s.providers.ApplyTrustDecision(ctx, score)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to apply trust decision",
			"provider_id", providerID,
			"trust_score_id", score.ID,
			"error", err,
		)
		return nil, err
	}

	events.Emit(ctx, s.publisher, s.logger, events.New(ctx, events.TrustEvaluated, providerID.String(), map[string]any{
		"trust_score_id":      score.ID,
		"score":               score.Score,
		"decision":            score.Decision,
		"needs_manual_review": score.NeedsManualReview,
		"failed_agents":       len(score.Failures),
		"provider_status":     p.Status,
	}))
	return score, nil
}

func (s *Service) Latest(ctx context.Context, providerID id.ProviderID) (*models.TrustScore, error) {
	score, err := s.scores.Latest(ctx, providerID)
	if err != nil {
		return nil, translate(err, "failed to load trust score")
	}
	return score, nil
}

// History returns records newest first.
func (s *Service) History(ctx context.Context, providerID id.ProviderID, limit int) ([]*models.TrustScore, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	history, err := s.scores.History(ctx, providerID, limit)
	if err != nil {
		return nil, translate(err, "failed to load trust history")
	}
	return history, nil
}

// ManualReviewRequest is a reviewer's decision on a score in the review band.
type ManualReviewRequest struct {
	ProviderID id.ProviderID
	Approve    bool
	Notes      string
	ReviewerID string
}

// ManualReview resolves a MANUAL_REVIEW score. The latest record must need
// review; the override is appended as a new record superseding it, and the
// provider is forced to VERIFIED or REJECTED.
func (s *Service) ManualReview(ctx context.Context, req ManualReviewRequest) (*models.TrustScore, error) {
	reviewer := strings.TrimSpace(req.ReviewerID)
	if reviewer == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reviewer_id is required")
	}

	var review *models.TrustScore
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		latest, err := s.scores.Latest(ctx, req.ProviderID)
		if err != nil {
			return translate(err, "failed to load trust score")
		}
		if !latest.NeedsManualReview {
			return dErrors.New(dErrors.CodeInvalidTransition, "latest trust score does not need manual review")
		}

		review = supersede(latest, req.Approve, reviewer, strings.TrimSpace(req.Notes), requestcontext.Now(ctx))
		if _, err := s.providers.ApplyReviewOverride(ctx, req.ProviderID, req.Approve, latest.Score); err != nil {
			return err
		}
		if err := s.scores.Append(ctx, review); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record review")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementDecision(string(review.Decision), "manual_review")
	s.logger.InfoContext(ctx, "trust score reviewed",
		"provider_id", req.ProviderID,
		"trust_score_id", review.ID,
		"supersedes", review.Supersedes,
		"decision", review.Decision,
		"reviewer_id", reviewer,
	)
	events.Emit(ctx, s.publisher, s.logger, events.New(ctx, events.TrustReviewed, req.ProviderID.String(), map[string]any{
		"trust_score_id": review.ID,
		"supersedes":     review.Supersedes,
		"decision":       review.Decision,
		"reviewer_id":    reviewer,
	}))
	return review, nil
}

// Reinstate returns a suspended provider to PENDING and re-evaluates it. When
// the evaluation is unavailable the provider stays PENDING.
func (s *Service) Reinstate(ctx context.Context, providerID id.ProviderID) (*models.TrustScore, error) {
	if _, err := s.providers.Reinstate(ctx, providerID); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "provider reinstated, re-evaluating",
		"provider_id", providerID,
		"actor", requestcontext.ActorID(ctx),
	)
	return s.Evaluate(ctx, providerID)
}

// ContributionRequest logs a block of community work for a provider. A zero
// OccurredAt means now.
type ContributionRequest struct {
	ProviderID  id.ProviderID
	Hours       float64
	Verified    bool
	Quality     float64
	Description string
	OccurredAt  time.Time
}

// RecordContribution adds an entry to the ledger the contribution agent
// scores. It does not re-evaluate the provider.
func (s *Service) RecordContribution(ctx context.Context, req ContributionRequest) (*models.Contribution, error) {
	if s.contributions == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "contribution ledger is not configured")
	}
	c, err := models.NewContribution(req.ProviderID, req.Hours, req.Verified, req.Quality, req.Description,
		req.OccurredAt, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if _, err := s.providers.Get(ctx, req.ProviderID); err != nil {
		return nil, err
	}
	if err := s.contributions.Record(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record contribution")
	}

	s.logger.InfoContext(ctx, "contribution recorded",
		"provider_id", req.ProviderID,
		"contribution_id", c.ID,
		"hours", c.Hours,
		"verified", c.Verified,
		"actor", requestcontext.ActorID(ctx),
	)
	events.Emit(ctx, s.publisher, s.logger, events.New(ctx, events.TrustContributed, req.ProviderID.String(), map[string]any{
		"contribution_id": c.ID,
		"hours":           c.Hours,
		"verified":        c.Verified,
		"occurred_at":     c.OccurredAt,
	}))
	return c, nil
}

func supersede(latest *models.TrustScore, approve bool, reviewer, notes string, now time.Time) *models.TrustScore {
	decision := models.DecisionRejected
	if approve {
		decision = models.DecisionVerified
	}
	prev := latest.ID
	return &models.TrustScore{
		ID:                id.NewTrustScoreID(),
		ProviderID:        latest.ProviderID,
		Score:             latest.Score,
		Decision:          decision,
		NeedsManualReview: false,
		Verdicts:          latest.Verdicts,
		Failures:          latest.Failures,
		ReviewerID:        reviewer,
		ReviewNotes:       notes,
		Supersedes:        &prev,
		CalculatedAt:      now,
	}
}

func translate(err error, message string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "no trust score for provider")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, message)
	}
}
