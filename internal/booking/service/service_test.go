package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"octopus/internal/booking/metrics"
	"octopus/internal/booking/models"
	"octopus/internal/booking/store"
	id "octopus/pkg/domain"
	dErrors "octopus/pkg/domain-errors"
	"octopus/pkg/platform/events"
	"octopus/pkg/requestcontext"
)

var frozen = time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)

type recordingLeads struct {
	completed []id.LeadID
	err       error
}

func (r *recordingLeads) MarkCompleted(_ context.Context, leadID id.LeadID) error {
	if r.err != nil {
		return r.err
	}
	r.completed = append(r.completed, leadID)
	return nil
}

type BookingServiceSuite struct {
	suite.Suite
	svc     *Service
	events  *events.MemoryPublisher
	leads   *recordingLeads
	metrics *metrics.Metrics
	ctx     context.Context
}

func TestBookingServiceSuite(t *testing.T) {
	suite.Run(t, new(BookingServiceSuite))
}

func (s *BookingServiceSuite) SetupTest() {
	s.events = events.NewMemoryPublisher()
	s.leads = &recordingLeads{}
	s.metrics = metrics.NewWithRegistry(prometheus.NewRegistry())
	s.svc = New(store.NewInMemory(),
		WithPublisher(s.events),
		WithMetrics(s.metrics),
		WithCommissionPolicy(models.CommissionPolicy{Min: 0.03, Max: 0.07, Default: 0.05}),
	)
	s.svc.AttachLeads(s.leads)
	s.ctx = requestcontext.WithTime(context.Background(), frozen)
}

func ptr[T any](v T) *T { return &v }

func (s *BookingServiceSuite) request(rate *float64) *models.Booking {
	b, err := s.svc.Request(s.ctx, models.Draft{
		LeadID:         id.NewLeadID(),
		ProviderID:     id.NewProviderID(),
		CustomerName:   "Riley",
		EstimatedValue: ptr(1000.0),
		CommissionRate: rate,
	})
	s.Require().NoError(err)
	return b
}

func (s *BookingServiceSuite) confirmed() *models.Booking {
	b := s.request(nil)
	_, err := s.svc.Confirm(s.ctx, b.ID, models.PartyProvider)
	s.Require().NoError(err)
	b, err = s.svc.Confirm(s.ctx, b.ID, models.PartyCustomer)
	s.Require().NoError(err)
	return b
}

// ===========================================================================
// Request
// ===========================================================================

func (s *BookingServiceSuite) TestRequest() {
	s.Run("in-range rate is kept", func() {
		b := s.request(ptr(0.04))
		s.Equal(0.04, b.CommissionRate)
		s.Equal(models.StatusRequested, b.Status)
	})

	s.Run("out-of-range rate falls back to default", func() {
		s.Equal(0.05, s.request(ptr(0.12)).CommissionRate)
		s.Equal(0.05, s.request(nil).CommissionRate)
	})

	s.Run("one booking per lead", func() {
		d := models.Draft{LeadID: id.NewLeadID(), ProviderID: id.NewProviderID(), CustomerName: "Riley"}
		_, err := s.svc.Request(s.ctx, d)
		s.Require().NoError(err)
		_, err = s.svc.Request(s.ctx, d)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("validation", func() {
		_, err := s.svc.Request(s.ctx, models.Draft{LeadID: id.NewLeadID(), ProviderID: id.NewProviderID()})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = s.svc.Request(s.ctx, models.Draft{CustomerName: "Riley"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.NotEmpty(s.events.OfType(events.BookingRequested))
}

// ===========================================================================
// Confirm and Start
// ===========================================================================

func (s *BookingServiceSuite) TestConfirm() {
	b := s.request(nil)

	got, err := s.svc.Confirm(s.ctx, b.ID, models.PartyCustomer)
	s.Require().NoError(err)
	s.Equal(models.StatusConfirmed, got.Status)

	_, err = s.svc.Confirm(s.ctx, b.ID, models.PartyCustomer)
	s.Require().NoError(err)
	s.Len(s.events.OfType(events.BookingConfirmed), 1, "repeat confirmation emits nothing")

	_, err = s.svc.Start(s.ctx, b.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition), "start needs both parties")

	_, err = s.svc.Confirm(s.ctx, b.ID, models.PartyProvider)
	s.Require().NoError(err)
	started, err := s.svc.Start(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusInProgress, started.Status)
	s.Len(s.events.OfType(events.BookingStarted), 1)
}

func (s *BookingServiceSuite) TestNotFound() {
	_, err := s.svc.Get(s.ctx, id.NewBookingID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	_, err = s.svc.Confirm(s.ctx, id.NewBookingID(), models.PartyProvider)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	_, err = s.svc.ForLead(s.ctx, id.NewLeadID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// ===========================================================================
// Complete
// ===========================================================================

func (s *BookingServiceSuite) TestComplete() {
	b := s.confirmed()

	got, err := s.svc.Complete(s.ctx, b.ID, 1200)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, got.Status)
	s.Equal(60.0, *got.CommissionAmount)
	s.Equal([]id.LeadID{b.LeadID}, s.leads.completed)

	settled := s.events.OfType(events.BookingSettled)
	s.Require().Len(settled, 1)
	s.JSONEq(`{"lead_id":"`+b.LeadID.String()+`","provider_id":"`+b.ProviderID.String()+
		`","actual_value":1200,"commission_rate":0.05,"commission_amount":60}`, string(settled[0].Payload))
	s.Equal(60.0, testutil.ToFloat64(s.metrics.CommissionTotal))

	s.Run("second completion is rejected", func() {
		_, err := s.svc.Complete(s.ctx, b.ID, 2000)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
		again, _ := s.svc.Get(s.ctx, b.ID)
		s.Equal(60.0, *again.CommissionAmount)
		s.Len(s.leads.completed, 1)
	})
}

func (s *BookingServiceSuite) TestComplete_LeadFailure() {
	b := s.confirmed()
	s.leads.err = errors.New("lead store down")

	_, err := s.svc.Complete(s.ctx, b.ID, 500)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.Empty(s.events.OfType(events.BookingSettled))
}

// ===========================================================================
// Cancel, Dispute, Resolve
// ===========================================================================

func (s *BookingServiceSuite) TestCancel() {
	b := s.request(nil)
	_, err := s.svc.Cancel(s.ctx, b.ID, "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	got, err := s.svc.Cancel(s.ctx, b.ID, "customer moved")
	s.Require().NoError(err)
	s.Equal(models.StatusCancelled, got.Status)
	s.Nil(got.CommissionAmount)
	s.Len(s.events.OfType(events.BookingCancelled), 1)
	s.Empty(s.leads.completed)

	s.Run("fully confirmed bookings cannot be cancelled", func() {
		confirmed := s.confirmed()
		_, err := s.svc.Cancel(s.ctx, confirmed.ID, "changed mind")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

		stored, err := s.svc.Get(s.ctx, confirmed.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusConfirmed, stored.Status)
	})
}

func (s *BookingServiceSuite) TestDisputeAndResolve() {
	s.Run("completed outcome settles and closes the lead", func() {
		b := s.confirmed()
		_, err := s.svc.Dispute(s.ctx, b.ID, "scope disagreement")
		s.Require().NoError(err)

		_, err = s.svc.Complete(s.ctx, b.ID, 100)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition), "dispute suspends progression")

		got, err := s.svc.ResolveDispute(s.ctx, b.ID, models.Resolution{
			Outcome: models.OutcomeCompleted, ReviewerID: "ops-7", Notes: "partial work", ActualValue: ptr(800.0),
		})
		s.Require().NoError(err)
		s.Equal(models.StatusCompleted, got.Status)
		s.Equal(40.0, *got.CommissionAmount)
		s.Contains(s.leads.completed, b.LeadID)
	})

	s.Run("cancelled outcome carries no commission", func() {
		b := s.request(nil)
		_, err := s.svc.Dispute(s.ctx, b.ID, "no show")
		s.Require().NoError(err)

		got, err := s.svc.ResolveDispute(s.ctx, b.ID, models.Resolution{Outcome: models.OutcomeCancelled, ReviewerID: "ops-7"})
		s.Require().NoError(err)
		s.Equal(models.StatusCancelled, got.Status)
		s.Nil(got.CommissionAmount)
		s.NotContains(s.leads.completed, b.LeadID)
	})

	s.Run("reviewer is required", func() {
		b := s.request(nil)
		_, err := s.svc.Dispute(s.ctx, b.ID, "no show")
		s.Require().NoError(err)
		_, err = s.svc.ResolveDispute(s.ctx, b.ID, models.Resolution{Outcome: models.OutcomeCancelled})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Len(s.events.OfType(events.BookingResolved), 2)
}
