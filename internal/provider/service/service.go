// Package service owns the provider lifecycle: claims, search, suspension and
// the application of trust decisions to provider status.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"octopus/internal/provider/models"
	"octopus/internal/trust/agents"
	trust "octopus/internal/trust/models"
	id "octopus/pkg/domain"
	dErrors "octopus/pkg/domain-errors"
	"octopus/pkg/platform/events"
	"octopus/pkg/platform/sentinel"
	"octopus/pkg/requestcontext"
)

// Store persists providers. Execute serialises read-validate-mutate-write
// per provider.
type Store interface {
	Create(ctx context.Context, p *models.Provider) error
	FindByID(ctx context.Context, providerID id.ProviderID) (*models.Provider, error)
	Search(ctx context.Context, filter models.SearchFilter) (*models.SearchResult, error)
	CountByStatus(ctx context.Context) (map[models.Status]int, error)
	Execute(ctx context.Context, providerID id.ProviderID, validate func(*models.Provider) error, mutate func(*models.Provider)) (*models.Provider, error)
}

// Verifier runs a trust evaluation and applies its decision to the provider.
type Verifier interface {
	Evaluate(ctx context.Context, providerID id.ProviderID) (*trust.TrustScore, error)
}

const defaultVerifyTimeout = 2 * time.Minute

type Service struct {
	store         Store
	publisher     events.Publisher
	logger        *slog.Logger
	verifier      Verifier
	verifyTimeout time.Duration
	jobs          sync.WaitGroup
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

// WithVerifyTimeout bounds the evaluation started after a claim.
func WithVerifyTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.verifyTimeout = d
		}
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:         store,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		verifyTimeout: defaultVerifyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AttachVerifier sets the evaluator started after claims and profile
// changes. The trust service depends on this service, so it is attached
// after both are built.
func (s *Service) AttachVerifier(v Verifier) {
	s.verifier = v
}

// Wait blocks until every evaluation started by this service has finished.
func (s *Service) Wait() {
	s.jobs.Wait()
}

// Claim creates a PENDING provider. The same business name and email can be
// claimed once. With a verifier attached, an evaluation starts in the
// background and the provider is returned while still PENDING.
func (s *Service) Claim(ctx context.Context, req *models.ClaimRequest) (*models.Provider, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := models.NewProvider(id.NewProviderID(), req, requestcontext.Now(ctx))
	if err := s.store.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "business is already claimed with this email")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create provider")
	}

	s.logger.InfoContext(ctx, "provider claimed",
		"provider_id", p.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	events.Emit(ctx, s.publisher, s.logger, events.New(ctx, events.ProviderClaimed, p.ID.String(), map[string]any{
		"business_name": p.BusinessName,
		"services":      p.Services,
	}))
	s.verify(ctx, p.ID, "claim")
	return p, nil
}

func (s *Service) Get(ctx context.Context, providerID id.ProviderID) (*models.Provider, error) {
	p, err := s.store.FindByID(ctx, providerID)
	if err != nil {
		return nil, translate(err, "failed to load provider")
	}
	return p, nil
}

func (s *Service) Search(ctx context.Context, filter models.SearchFilter) (*models.SearchResult, error) {
	filter.Normalize()
	if filter.MinTrustScore < 0 || filter.MinTrustScore > 100 {
		return nil, dErrors.New(dErrors.CodeValidation, "min_trust_score must be between 0 and 100")
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown status %q", filter.Status)
	}
	res, err := s.store.Search(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search providers")
	}
	return res, nil
}

func (s *Service) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count providers")
	}
	return counts, nil
}

// ListPending returns providers awaiting an admission decision.
func (s *Service) ListPending(ctx context.Context, limit, offset int) (*models.SearchResult, error) {
	return s.Search(ctx, models.SearchFilter{Status: models.StatusPending, Limit: limit, Offset: offset})
}

// Update edits profile fields. A change to a field the agents read starts a
// fresh evaluation when a verifier is attached.
func (s *Service) Update(ctx context.Context, providerID id.ProviderID, req *models.UpdateRequest) (*models.Provider, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var reverify bool
	p, err := s.store.Execute(ctx, providerID,
		func(p *models.Provider) error { return p.CanUpdate() },
		func(p *models.Provider) { reverify = p.ApplyUpdate(req, now) },
	)
	if err != nil {
		return nil, translate(err, "failed to update provider")
	}

	s.logger.InfoContext(ctx, "provider updated",
		"provider_id", p.ID,
		"reverify", reverify,
		"actor", requestcontext.ActorID(ctx),
	)
	events.Emit(ctx, s.publisher, s.logger, events.New(ctx, events.ProviderUpdated, p.ID.String(), map[string]any{
		"reverify": reverify,
	}))
	if reverify {
		s.verify(ctx, p.ID, "update")
	}
	return p, nil
}

func (s *Service) Suspend(ctx context.Context, providerID id.ProviderID, reason string) (*models.Provider, error) {
	now := requestcontext.Now(ctx)
	var from models.Status
	p, err := s.store.Execute(ctx, providerID,
		func(p *models.Provider) error {
			from = p.Status
			return p.CanSuspend(reason)
		},
		func(p *models.Provider) { p.ApplySuspension(reason, now) },
	)
	if err != nil {
		return nil, translate(err, "failed to suspend provider")
	}
	s.statusChanged(ctx, p, from, reason)
	return p, nil
}

// Reinstate returns a suspended provider to PENDING. Re-evaluation is the
// caller's job.
func (s *Service) Reinstate(ctx context.Context, providerID id.ProviderID) (*models.Provider, error) {
	now := requestcontext.Now(ctx)
	p, err := s.store.Execute(ctx, providerID,
		func(p *models.Provider) error { return p.CanReinstate() },
		func(p *models.Provider) { p.ApplyReinstatement(now) },
	)
	if err != nil {
		return nil, translate(err, "failed to reinstate provider")
	}
	s.statusChanged(ctx, p, models.StatusSuspended, "")
	return p, nil
}

// ApplyTrustDecision mirrors an automated TrustScore onto the provider.
func (s *Service) ApplyTrustDecision(ctx context.Context, score *trust.TrustScore) (*models.Provider, error) {
	now := requestcontext.Now(ctx)
	var from models.Status
	p, err := s.store.Execute(ctx, score.ProviderID,
		func(p *models.Provider) error {
			from = p.Status
			return nil
		},
		func(p *models.Provider) { p.ApplyTrustDecision(score, now) },
	)
	if err != nil {
		return nil, translate(err, "failed to apply trust decision")
	}
	if p.Status != from {
		s.statusChanged(ctx, p, from, string(score.Decision))
	}
	return p, nil
}

// ApplyReviewOverride forces VERIFIED or REJECTED on a PENDING provider.
func (s *Service) ApplyReviewOverride(ctx context.Context, providerID id.ProviderID, approve bool, score int) (*models.Provider, error) {
	now := requestcontext.Now(ctx)
	p, err := s.store.Execute(ctx, providerID,
		func(p *models.Provider) error { return p.CanApplyReviewOverride() },
		func(p *models.Provider) { p.ApplyReviewOverride(approve, score, now) },
	)
	if err != nil {
		return nil, translate(err, "failed to apply review override")
	}
	s.statusChanged(ctx, p, models.StatusPending, "manual_review")
	return p, nil
}

// Subject loads the snapshot the verification agents evaluate.
func (s *Service) Subject(ctx context.Context, providerID id.ProviderID) (agents.Subject, error) {
	p, err := s.Get(ctx, providerID)
	if err != nil {
		return agents.Subject{}, err
	}
	return agents.Subject{
		ProviderID:   p.ID,
		BusinessName: p.BusinessName,
		Website:      p.Website,
		Email:        p.Email,
		Phone:        p.Phone,
		Services:     p.Services,
		Cities:       p.ServiceAreaCities,
	}, nil
}

// verify evaluates the provider detached from the request. An unavailable
// evaluation leaves the provider PENDING; an operator can retry through the
// trust routes.
func (s *Service) verify(ctx context.Context, providerID id.ProviderID, trigger string) {
	if s.verifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.jobs.Go(func() {
		ctx, cancel := context.WithTimeout(ctx, s.verifyTimeout)
		defer cancel()

		score, err := s.verifier.Evaluate(ctx, providerID)
		switch {
		case dErrors.HasCode(err, dErrors.CodeEvaluationUnavailable):
			s.logger.WarnContext(ctx, "verification unavailable, provider stays pending",
				"provider_id", providerID,
				"trigger", trigger,
			)
		case err != nil:
			s.logger.ErrorContext(ctx, "verification failed",
				"provider_id", providerID,
				"trigger", trigger,
				"error", err,
			)
		default:
			s.logger.InfoContext(ctx, "provider verified",
				"provider_id", providerID,
				"trigger", trigger,
				"score", score.Score,
				"decision", score.Decision,
			)
		}
	})
}

func (s *Service) statusChanged(ctx context.Context, p *models.Provider, from models.Status, reason string) {
	s.logger.InfoContext(ctx, "provider status changed",
		"provider_id", p.ID,
		"from", from,
		"to", p.Status,
		"actor", requestcontext.ActorID(ctx),
	)
	events.Emit(ctx, s.publisher, s.logger, events.New(ctx, events.ProviderStatus, p.ID.String(), map[string]any{
		"from":        from,
		"to":          p.Status,
		"reason":      reason,
		"trust_score": p.TrustScore,
	}))
}

// translate maps store sentinels to domain codes and passes domain errors
// from validate callbacks through unchanged.
func translate(err error, message string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "provider not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "business is already claimed with this email")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, message)
	}
}
