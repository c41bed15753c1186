// Package service runs the lead funnel: capture with signed attribution,
// forward-only status changes and conversion into a booking.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mssola/useragent"

	booking "octopus/internal/booking/models"
	"octopus/internal/lead/attribution"
	"octopus/internal/lead/metrics"
	"octopus/internal/lead/models"
	provider "octopus/internal/provider/models"
	id "octopus/pkg/domain"
	dErrors "octopus/pkg/domain-errors"
	"octopus/pkg/platform/events"
	"octopus/pkg/platform/sentinel"
	"octopus/pkg/requestcontext"
)

const DefaultMinTrustScore = 60

type Store interface {
	Create(ctx context.Context, lead *models.Lead) error
	FindByID(ctx context.Context, leadID id.LeadID) (*models.Lead, error)
	FindByHash(ctx context.Context, hash string) (*models.Lead, error)
	Execute(ctx context.Context, leadID id.LeadID, validate func(*models.Lead) error, mutate func(*models.Lead)) (*models.Lead, error)
}

// Cache holds attribution records by hash. Get returns sentinel.ErrNotFound
// on a miss.
type Cache interface {
	Get(ctx context.Context, hash string) (*attribution.Record, error)
	Put(ctx context.Context, rec *attribution.Record) error
}

type Providers interface {
	Get(ctx context.Context, providerID id.ProviderID) (*provider.Provider, error)
}

// Ledger creates the booking a lead converts into.
type Ledger interface {
	Request(ctx context.Context, d booking.Draft) (*booking.Booking, error)
	ForLead(ctx context.Context, leadID id.LeadID) (*booking.Booking, error)
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type inline struct{}

func (inline) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type Service struct {
	store         Store
	cache         Cache
	codec         *attribution.Codec
	providers     Providers
	ledger        Ledger
	tx            TxRunner
	minTrustScore int
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

func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) {
		if tx != nil {
			s.tx = tx
		}
	}
}

// WithMinTrustScore sets the lowest provider trust score that accepts leads.
func WithMinTrustScore(score int) Option {
	return func(s *Service) {
		if score > 0 && score <= 100 {
			s.minTrustScore = score
		}
	}
}

func New(store Store, codec *attribution.Codec, providers Providers, ledger Ledger, opts ...Option) (*Service, error) {
	switch {
	case store == nil:
		return nil, errors.New("lead store is required")
	case codec == nil:
		return nil, errors.New("attribution codec is required")
	case providers == nil:
		return nil, errors.New("providers are required")
	case ledger == nil:
		return nil, errors.New("booking ledger is required")
	}
	s := &Service{
		store:         store,
		codec:         codec,
		providers:     providers,
		ledger:        ledger,
		tx:            inline{},
		minTrustScore: DefaultMinTrustScore,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Capture records a lead for an admitted provider and issues its signed
// attribution URL. Nothing is written when the provider cannot take leads.
func (s *Service) Capture(ctx context.Context, req *models.CaptureRequest) (*models.Lead, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.providers.Get(ctx, req.ParsedProviderID())
	if err != nil {
		return nil, err
	}
	if !p.CanListLeads(s.minTrustScore) {
		reason := "below_minimum"
		if p.IsSuspended() {
			reason = "suspended"
		}
		s.metrics.IncrementCaptureRejected(reason)
		s.logger.InfoContext(ctx, "lead capture rejected",
			"provider_id", p.ID,
			"trust_score", p.TrustScore,
			"provider_status", p.Status,
			"reason", reason,
		)
		return nil, dErrors.Newf(dErrors.CodeTrustScoreTooLow,
			"provider cannot accept leads (trust score %d, minimum %d)", p.TrustScore, s.minTrustScore)
	}

	now := requestcontext.Now(ctx)
	leadID := id.NewLeadID()
	source := DetectSource(req.AttributionSource, requestcontext.UserAgent(ctx))
	rec := s.codec.NewRecord(p.ID, leadID, source, now)
	signed, err := s.codec.Sign(rec.Hash, p.ID, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign attribution")
	}

	lead := &models.Lead{
		ID:                 leadID,
		ProviderID:         p.ID,
		ListingID:          req.ListingID,
		Customer:           models.Customer{Name: req.CustomerName, Email: req.CustomerEmail, Phone: req.CustomerPhone},
		ServiceRequested:   req.ServiceRequested,
		Message:            req.Message,
		PreferredContact:   req.PreferredContact,
		BudgetRange:        req.BudgetRange,
		Status:             models.StatusCaptured,
		AttributionHash:    rec.Hash,
		AttributionSource:  source,
		SignedURL:          signed.URL,
		SignedURLExpiresAt: signed.ExpiresAt,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.Create(ctx, lead); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "attribution hash already recorded")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create lead")
	}
	s.remember(ctx, rec)

	s.logger.InfoContext(ctx, "lead captured",
		"lead_id", lead.ID,
		"provider_id", lead.ProviderID,
		"source", source,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.metrics.IncrementTransition(string(lead.Status))
	events.Emit(ctx, s.publisher, s.logger, events.New(ctx, events.LeadCaptured, lead.ID.String(), map[string]any{
		"provider_id":      lead.ProviderID,
		"attribution_hash": lead.AttributionHash,
		"source":           source,
		"service":          lead.ServiceRequested,
	}))
	return lead, nil
}

// DetectSource prefers an explicit source, then tags known bots and crawlers
// as agent traffic, then falls back to web.
func DetectSource(explicit, userAgent string) string {
	if explicit != "" {
		return explicit
	}
	if userAgent != "" && useragent.New(userAgent).Bot() {
		return models.SourceAgent
	}
	return models.SourceWeb
}

func (s *Service) Get(ctx context.Context, leadID id.LeadID) (*models.Lead, error) {
	lead, err := s.store.FindByID(ctx, leadID)
	if err != nil {
		return nil, translate(err, "failed to load lead")
	}
	return lead, nil
}

func (s *Service) MarkContacted(ctx context.Context, leadID id.LeadID) (*models.Lead, error) {
	return s.advance(ctx, leadID, models.StatusContacted)
}

func (s *Service) MarkQuoted(ctx context.Context, leadID id.LeadID) (*models.Lead, error) {
	return s.advance(ctx, leadID, models.StatusQuoted)
}

// MarkCompleted is called by the ledger when the lead's booking settles.
func (s *Service) MarkCompleted(ctx context.Context, leadID id.LeadID) error {
	_, err := s.advance(ctx, leadID, models.StatusCompleted)
	return err
}

func (s *Service) advance(ctx context.Context, leadID id.LeadID, next models.Status) (*models.Lead, error) {
	now := requestcontext.Now(ctx)
	var (
		from    models.Status
		changed bool
	)
	lead, err := s.store.Execute(ctx, leadID,
		func(l *models.Lead) error { return l.CanAdvance(next) },
		func(l *models.Lead) {
			from = l.Status
			changed = l.Advance(next, now)
		},
	)
	if err != nil {
		return nil, translate(err, "failed to update lead")
	}
	if changed {
		s.statusChanged(ctx, lead, from, "")
	}
	return lead, nil
}

// MarkLost abandons the lead. A lost lead stays lost.
func (s *Service) MarkLost(ctx context.Context, leadID id.LeadID, reason string) (*models.Lead, error) {
	now := requestcontext.Now(ctx)
	var (
		from    models.Status
		changed bool
	)
	lead, err := s.store.Execute(ctx, leadID,
		func(l *models.Lead) error { return l.CanMarkLost(reason) },
		func(l *models.Lead) {
			from = l.Status
			changed = l.MarkLost(reason, now)
		},
	)
	if err != nil {
		return nil, translate(err, "failed to update lead")
	}
	if changed {
		s.statusChanged(ctx, lead, from, lead.LostReason)
	}
	return lead, nil
}

// ConvertRequest carries the booking details supplied at conversion.
type ConvertRequest struct {
	ServiceDescription string
	ScheduledDate      *time.Time
	Notes              string
	EstimatedValue     *float64
	CommissionRate     *float64
}

// Convert turns a QUOTED lead into a booking and marks it BOOKED. Converting
// an already booked lead returns its existing booking. The booking is created
// while the lead is held, so a concurrent transition either sees BOOKED or
// wins first and no booking is written.
func (s *Service) Convert(ctx context.Context, leadID id.LeadID, req ConvertRequest) (*booking.Booking, error) {
	now := requestcontext.Now(ctx)
	var (
		b       *booking.Booking
		lead    *models.Lead
		changed bool
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		lead, err = s.store.Execute(ctx, leadID,
			func(l *models.Lead) error {
				var err error
				if l.Status == models.StatusBooked {
					b, err = s.ledger.ForLead(ctx, leadID)
					return err
				}
				if err = l.CanAdvance(models.StatusBooked); err != nil {
					return err
				}
				b, err = s.ledger.Request(ctx, draftFor(l, req))
				return err
			},
			func(l *models.Lead) { changed = l.Advance(models.StatusBooked, now) },
		)
		return err
	})
	if err != nil {
		return nil, translate(err, "failed to convert lead")
	}
	if changed {
		s.statusChanged(ctx, lead, models.StatusQuoted, "")
	}
	return b, nil
}

func draftFor(l *models.Lead, req ConvertRequest) booking.Draft {
	description := req.ServiceDescription
	if description == "" {
		description = l.ServiceRequested
	}
	return booking.Draft{
		LeadID:             l.ID,
		ProviderID:         l.ProviderID,
		CustomerName:       l.Customer.Name,
		ServiceDescription: description,
		ScheduledDate:      req.ScheduledDate,
		Notes:              req.Notes,
		EstimatedValue:     req.EstimatedValue,
		CommissionRate:     req.CommissionRate,
	}
}

// VerifyAttribution resolves hash through the cache, then the store, and
// checks both horizons. A supplied token must be a valid signature for hash.
func (s *Service) VerifyAttribution(ctx context.Context, hash, token string) (*attribution.Verification, error) {
	now := requestcontext.Now(ctx)
	if token != "" {
		subject, err := s.codec.ParseToken(token, now)
		if err != nil {
			s.metrics.IncrementVerification(string(dErrors.CodeOf(err)))
			return nil, err
		}
		if subject != hash {
			s.metrics.IncrementVerification(string(dErrors.CodeInvalidSignature))
			return nil, dErrors.New(dErrors.CodeInvalidSignature, "token was not issued for this attribution")
		}
	}

	var rec *attribution.Record
	if attribution.IsHash(hash) {
		var err error
		if rec, err = s.lookup(ctx, hash); err != nil {
			return nil, err
		}
	}

	v := s.codec.Verify(rec, now)
	s.metrics.IncrementVerification(string(v.Status))
	switch v.Status {
	case attribution.StatusUnknown:
		return nil, dErrors.New(dErrors.CodeUnknownAttribution, "no lead matches this attribution")
	case attribution.StatusExpired:
		return nil, dErrors.Newf(dErrors.CodeExpiredAttribution, "attribution expired (%s)", strings.Join(v.Reasons, ", "))
	}
	return &v, nil
}

func (s *Service) lookup(ctx context.Context, hash string) (*attribution.Record, error) {
	if s.cache != nil {
		rec, err := s.cache.Get(ctx, hash)
		switch {
		case err == nil:
			s.metrics.IncrementCache("hit")
			return rec, nil
		case errors.Is(err, sentinel.ErrNotFound):
			s.metrics.IncrementCache("miss")
		default:
			s.metrics.IncrementCache("error")
			s.logger.WarnContext(ctx, "attribution cache read failed", "error", err)
		}
	}

	lead, err := s.store.FindByHash(ctx, hash)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up attribution")
	}
	rec := &attribution.Record{
		Hash:         lead.AttributionHash,
		LeadID:       lead.ID,
		ProviderID:   lead.ProviderID,
		Source:       lead.AttributionSource,
		CapturedAt:   lead.CreatedAt,
		URLExpiresAt: lead.SignedURLExpiresAt,
	}
	s.remember(ctx, rec)
	return rec, nil
}

func (s *Service) remember(ctx context.Context, rec *attribution.Record) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, rec); err != nil {
		s.logger.WarnContext(ctx, "attribution cache write failed", "hash", rec.Hash, "error", err)
	}
}

func (s *Service) statusChanged(ctx context.Context, lead *models.Lead, from models.Status, reason string) {
	s.logger.InfoContext(ctx, "lead status changed",
		"lead_id", lead.ID,
		"from", from,
		"to", lead.Status,
	)
	s.metrics.IncrementTransition(string(lead.Status))
	payload := map[string]any{
		"provider_id": lead.ProviderID,
		"from":        from,
		"to":          lead.Status,
	}
	if reason != "" {
		payload["reason"] = reason
	}
	events.Emit(ctx, s.publisher, s.logger, events.New(ctx, events.LeadStatus, lead.ID.String(), payload))
}

func translate(err error, message string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "lead not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, message)
	}
}
