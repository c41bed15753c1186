// Package service assembles provider statistics and the operator dashboard
// from the lifecycle stores. It only reads.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	booking "octopus/internal/booking/models"
	lead "octopus/internal/lead/models"
	provider "octopus/internal/provider/models"
	"octopus/internal/reporting/models"
	trust "octopus/internal/trust/models"
	id "octopus/pkg/domain"
	dErrors "octopus/pkg/domain-errors"
	"octopus/pkg/requestcontext"
)

const historyLimit = 20

type Providers interface {
	Get(ctx context.Context, providerID id.ProviderID) (*provider.Provider, error)
	CountByStatus(ctx context.Context) (map[provider.Status]int, error)
}

type Leads interface {
	CountByStatus(ctx context.Context, providerID *id.ProviderID) (map[lead.Status]int, error)
}

type Bookings interface {
	CountByStatus(ctx context.Context, providerID *id.ProviderID) (map[booking.Status]int, error)
	Revenue(ctx context.Context, providerID *id.ProviderID, since time.Time) (booking.Revenue, error)
}

type Scores interface {
	History(ctx context.Context, providerID id.ProviderID, limit int) ([]*trust.TrustScore, error)
	PendingReviews(ctx context.Context) (int, error)
}

type Service struct {
	providers Providers
	leads     Leads
	bookings  Bookings
	scores    Scores
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

func New(providers Providers, leads Leads, bookings Bookings, scores Scores, opts ...Option) (*Service, error) {
	if providers == nil || leads == nil || bookings == nil || scores == nil {
		return nil, errors.New("reporting service requires provider, lead, booking and score stores")
	}
	s := &Service{
		providers: providers,
		leads:     leads,
		bookings:  bookings,
		scores:    scores,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ProviderStats loads one provider's lead funnel, bookings, all-time revenue
// and recent score history. The queries run concurrently; the first failure
// cancels the rest.
func (s *Service) ProviderStats(ctx context.Context, providerID id.ProviderID) (*models.ProviderStats, error) {
	p, err := s.providers.Get(ctx, providerID)
	if err != nil {
		return nil, err
	}

	stats := &models.ProviderStats{
		ProviderID:   p.ID,
		Status:       p.Status,
		TrustScore:   p.TrustScore,
		TrustHistory: []models.TrustPoint{},
		GeneratedAt:  requestcontext.Now(ctx),
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		leads, err := s.leads.CountByStatus(gctx, &providerID)
		if err != nil {
			return err
		}
		stats.Leads = leads
		stats.TotalLeads, stats.ConversionRate = models.ConversionRate(leads)
		return nil
	})
	g.Go(func() error {
		bookings, err := s.bookings.CountByStatus(gctx, &providerID)
		stats.Bookings = bookings
		return err
	})
	g.Go(func() error {
		revenue, err := s.bookings.Revenue(gctx, &providerID, time.Time{})
		stats.Revenue = revenue
		return err
	})
	g.Go(func() error {
		history, err := s.scores.History(gctx, providerID, historyLimit)
		if err != nil {
			return err
		}
		for _, score := range history {
			stats.TrustHistory = append(stats.TrustHistory, models.NewTrustPoint(score))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "provider stats failed",
			"provider_id", providerID,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load provider stats")
	}
	return stats, nil
}

// Dashboard counts every lifecycle by status, sums revenue over the calendar
// windows and counts providers awaiting manual review.
func (s *Service) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	now := requestcontext.Now(ctx)
	d := &models.Dashboard{GeneratedAt: now}
	windows := models.Windows(now)
	revenue := make([]booking.Revenue, len(windows))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := s.providers.CountByStatus(gctx)
		d.Providers = counts
		return err
	})
	g.Go(func() error {
		counts, err := s.leads.CountByStatus(gctx, nil)
		d.Leads = counts
		return err
	})
	g.Go(func() error {
		counts, err := s.bookings.CountByStatus(gctx, nil)
		d.Bookings = counts
		return err
	})
	g.Go(func() error {
		n, err := s.scores.PendingReviews(gctx)
		d.PendingReviews = n
		return err
	})
	for i, w := range windows {
		g.Go(func() error {
			r, err := s.bookings.Revenue(gctx, nil, w.Since)
			revenue[i] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "dashboard failed", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load dashboard")
	}
	for i, w := range windows {
		d.Revenue.Set(w.Name, revenue[i])
	}
	return d, nil
}
