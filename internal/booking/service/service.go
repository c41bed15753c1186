// Package service is the booking ledger: bookings created from converted
// leads, their confirmation and the one-time commission settlement.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"octopus/internal/booking/metrics"
	"octopus/internal/booking/models"
	id "octopus/pkg/domain"
	dErrors "octopus/pkg/domain-errors"
	"octopus/pkg/platform/events"
	"octopus/pkg/platform/sentinel"
	"octopus/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, b *models.Booking) error
	FindByID(ctx context.Context, bookingID id.BookingID) (*models.Booking, error)
	FindByLead(ctx context.Context, leadID id.LeadID) (*models.Booking, error)
	Execute(ctx context.Context, bookingID id.BookingID, validate func(*models.Booking) error, mutate func(*models.Booking)) (*models.Booking, error)
}

// LeadCompleter closes the originating lead when a booking settles.
type LeadCompleter interface {
	MarkCompleted(ctx context.Context, leadID id.LeadID) error
}

// TxRunner groups the booking write with the lead completion.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type inline struct{}

func (inline) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type Service struct {
	store     Store
	policy    models.CommissionPolicy
	leads     LeadCompleter
	tx        TxRunner
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
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

func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) {
		if tx != nil {
			s.tx = tx
		}
	}
}

func WithCommissionPolicy(p models.CommissionPolicy) Option {
	return func(s *Service) {
		if p.Min > 0 && p.Min <= p.Default && p.Default <= p.Max {
			s.policy = p
		}
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		policy: models.DefaultCommissionPolicy(),
		tx:     inline{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AttachLeads sets the lead completer. The lead funnel depends on the ledger
// for conversion, so it is attached after both are built.
func (s *Service) AttachLeads(leads LeadCompleter) {
	s.leads = leads
}

// Request creates a REQUESTED booking. An out-of-range commission rate falls
// back to the policy default.
func (s *Service) Request(ctx context.Context, d models.Draft) (*models.Booking, error) {
	switch {
	case d.LeadID.IsNil() || d.ProviderID.IsNil():
		return nil, dErrors.New(dErrors.CodeValidation, "lead and provider are required")
	case d.CustomerName == "":
		return nil, dErrors.New(dErrors.CodeValidation, "customer name is required")
	case d.EstimatedValue != nil && *d.EstimatedValue < 0:
		return nil, dErrors.New(dErrors.CodeValidation, "estimated_value must be non-negative")
	}

	rate := s.policy.Rate(d.CommissionRate)
	if d.CommissionRate != nil && rate != *d.CommissionRate {
		s.logger.WarnContext(ctx, "commission rate out of range, using default",
			"requested", *d.CommissionRate,
			"default", rate,
			"lead_id", d.LeadID,
		)
	}

	b := models.NewBooking(id.NewBookingID(), d, rate, requestcontext.Now(ctx))
	if err := s.store.Create(ctx, b); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "lead already has a booking")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create booking")
	}

	s.logger.InfoContext(ctx, "booking requested",
		"booking_id", b.ID,
		"lead_id", b.LeadID,
		"commission_rate", b.CommissionRate,
	)
	s.metrics.IncrementTransition(string(b.Status))
	events.Emit(ctx, s.publisher, s.logger, events.New(ctx, events.BookingRequested, b.ID.String(), map[string]any{
		"lead_id":         b.LeadID,
		"provider_id":     b.ProviderID,
		"commission_rate": b.CommissionRate,
	}))
	return b, nil
}

func (s *Service) Get(ctx context.Context, bookingID id.BookingID) (*models.Booking, error) {
	b, err := s.store.FindByID(ctx, bookingID)
	if err != nil {
		return nil, translate(err, "failed to load booking")
	}
	return b, nil
}

// ForLead returns the booking a lead converted into.
func (s *Service) ForLead(ctx context.Context, leadID id.LeadID) (*models.Booking, error) {
	b, err := s.store.FindByLead(ctx, leadID)
	if err != nil {
		return nil, translate(err, "failed to load booking")
	}
	return b, nil
}

// Confirm records a party's confirmation. Repeats are no-ops.
func (s *Service) Confirm(ctx context.Context, bookingID id.BookingID, party models.Party) (*models.Booking, error) {
	now := requestcontext.Now(ctx)
	changed := false
	b, err := s.store.Execute(ctx, bookingID,
		func(b *models.Booking) error { return b.CanConfirm(party) },
		func(b *models.Booking) { changed = b.Confirm(party, now) },
	)
	if err != nil {
		return nil, translate(err, "failed to confirm booking")
	}
	if changed {
		s.logger.InfoContext(ctx, "booking confirmed",
			"booking_id", b.ID,
			"party", party,
			"both_confirmed", b.BothConfirmed(),
		)
		s.metrics.IncrementTransition(string(b.Status))
		events.Emit(ctx, s.publisher, s.logger, events.New(ctx, events.BookingConfirmed, b.ID.String(), map[string]any{
			"party":          party,
			"both_confirmed": b.BothConfirmed(),
		}))
	}
	return b, nil
}

func (s *Service) Start(ctx context.Context, bookingID id.BookingID) (*models.Booking, error) {
	now := requestcontext.Now(ctx)
	b, err := s.store.Execute(ctx, bookingID,
		func(b *models.Booking) error { return b.CanStart() },
		func(b *models.Booking) { b.Start(now) },
	)
	if err != nil {
		return nil, translate(err, "failed to start booking")
	}
	s.logger.InfoContext(ctx, "booking started", "booking_id", b.ID)
	s.metrics.IncrementTransition(string(b.Status))
	events.Emit(ctx, s.publisher, s.logger, events.New(ctx, events.BookingStarted, b.ID.String(), nil))
	return b, nil
}

// Complete settles the booking at actualValue, computes the commission once
// and closes the originating lead.
func (s *Service) Complete(ctx context.Context, bookingID id.BookingID, actualValue float64) (*models.Booking, error) {
	now := requestcontext.Now(ctx)
	var b *models.Booking
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.store.Execute(ctx, bookingID,
			func(b *models.Booking) error { return b.CanComplete(actualValue) },
			func(b *models.Booking) { b.Complete(actualValue, now) },
		)
		if err != nil {
			return err
		}
		return s.completeLead(ctx, b.LeadID)
	})
	if err != nil {
		return nil, translate(err, "failed to complete booking")
	}
	s.settled(ctx, b)
	return b, nil
}

func (s *Service) Cancel(ctx context.Context, bookingID id.BookingID, reason string) (*models.Booking, error) {
	now := requestcontext.Now(ctx)
	b, err := s.store.Execute(ctx, bookingID,
		func(b *models.Booking) error { return b.CanCancel(reason) },
		func(b *models.Booking) { b.Cancel(reason, now) },
	)
	if err != nil {
		return nil, translate(err, "failed to cancel booking")
	}
	s.logger.InfoContext(ctx, "booking cancelled", "booking_id", b.ID, "reason", b.CancelReason)
	s.metrics.IncrementTransition(string(b.Status))
	events.Emit(ctx, s.publisher, s.logger, events.New(ctx, events.BookingCancelled, b.ID.String(), map[string]any{
		"reason": b.CancelReason,
	}))
	return b, nil
}

// Dispute suspends progression until an administrator resolves it.
func (s *Service) Dispute(ctx context.Context, bookingID id.BookingID, reason string) (*models.Booking, error) {
	now := requestcontext.Now(ctx)
	var from models.Status
	b, err := s.store.Execute(ctx, bookingID,
		func(b *models.Booking) error { return b.CanDispute(reason) },
		func(b *models.Booking) {
			from = b.Status
			b.Dispute(reason, now)
		},
	)
	if err != nil {
		return nil, translate(err, "failed to dispute booking")
	}
	s.logger.InfoContext(ctx, "booking disputed", "booking_id", b.ID, "from", from)
	s.metrics.IncrementTransition(string(b.Status))
	events.Emit(ctx, s.publisher, s.logger, events.New(ctx, events.BookingDisputed, b.ID.String(), map[string]any{
		"from":   from,
		"reason": b.DisputeReason,
	}))
	return b, nil
}

// ResolveDispute applies an administrator's outcome. A completed outcome
// settles commission on the supplied value and closes the lead.
func (s *Service) ResolveDispute(ctx context.Context, bookingID id.BookingID, r models.Resolution) (*models.Booking, error) {
	now := requestcontext.Now(ctx)
	var b *models.Booking
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.store.Execute(ctx, bookingID,
			func(b *models.Booking) error { return b.CanResolve(r) },
			func(b *models.Booking) { b.Resolve(r, now) },
		)
		if err != nil {
			return err
		}
		if r.Outcome == models.OutcomeCompleted {
			return s.completeLead(ctx, b.LeadID)
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "failed to resolve booking")
	}

	s.logger.InfoContext(ctx, "booking dispute resolved",
		"booking_id", b.ID,
		"outcome", b.Resolution,
		"reviewer_id", b.ResolvedBy,
	)
	events.Emit(ctx, s.publisher, s.logger, events.New(ctx, events.BookingResolved, b.ID.String(), map[string]any{
		"outcome":     b.Resolution,
		"reviewer_id": b.ResolvedBy,
		"notes":       b.ResolutionNotes,
	}))
	if b.Status == models.StatusCompleted {
		s.settled(ctx, b)
	} else {
		s.metrics.IncrementTransition(string(b.Status))
	}
	return b, nil
}

func (s *Service) completeLead(ctx context.Context, leadID id.LeadID) error {
	if s.leads == nil {
		return nil
	}
	return s.leads.MarkCompleted(ctx, leadID)
}

func (s *Service) settled(ctx context.Context, b *models.Booking) {
	s.logger.InfoContext(ctx, "booking settled",
		"booking_id", b.ID,
		"lead_id", b.LeadID,
		"actual_value", *b.ActualValue,
		"commission_amount", *b.CommissionAmount,
	)
	s.metrics.IncrementTransition(string(b.Status))
	s.metrics.ObserveCommission(*b.CommissionAmount)
	events.Emit(ctx, s.publisher, s.logger, events.New(ctx, events.BookingSettled, b.ID.String(), map[string]any{
		"lead_id":           b.LeadID,
		"provider_id":       b.ProviderID,
		"actual_value":      *b.ActualValue,
		"commission_rate":   b.CommissionRate,
		"commission_amount": *b.CommissionAmount,
	}))
}

func translate(err error, message string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "booking not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, message)
	}
}
