package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"octopus/internal/booking/models"
	id "octopus/pkg/domain"
	"octopus/pkg/platform/sentinel"
)

// InMemory is a booking store for development and tests.
type InMemory struct {
	mu       sync.RWMutex
	bookings map[id.BookingID]*models.Booking
	byLead   map[id.LeadID]id.BookingID
}

func NewInMemory() *InMemory {
	return &InMemory{
		bookings: make(map[id.BookingID]*models.Booking),
		byLead:   make(map[id.LeadID]id.BookingID),
	}
}

// Create stores a new booking. A lead converts into at most one booking.
func (s *InMemory) Create(_ context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byLead[b.LeadID]; ok {
		return fmt.Errorf("booking for lead %s: %w", b.LeadID, sentinel.ErrConflict)
	}
	s.bookings[b.ID] = clone(b)
	s.byLead[b.LeadID] = b.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, bookingID id.BookingID) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[bookingID]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", bookingID, sentinel.ErrNotFound)
	}
	return clone(b), nil
}

func (s *InMemory) FindByLead(_ context.Context, leadID id.LeadID) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bookingID, ok := s.byLead[leadID]
	if !ok {
		return nil, fmt.Errorf("booking for lead %s: %w", leadID, sentinel.ErrNotFound)
	}
	return clone(s.bookings[bookingID]), nil
}

// CountByStatus counts bookings per status, for one provider when
// providerID is set.
func (s *InMemory) CountByStatus(_ context.Context, providerID *id.ProviderID) (map[models.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[models.Status]int)
	for _, b := range s.bookings {
		if providerID == nil || b.ProviderID == *providerID {
			counts[b.Status]++
		}
	}
	return counts, nil
}

// Revenue sums bookings settled at or after since. A zero since covers all
// time.
func (s *InMemory) Revenue(_ context.Context, providerID *id.ProviderID, since time.Time) (models.Revenue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var r models.Revenue
	for _, b := range s.bookings {
		if providerID != nil && b.ProviderID != *providerID {
			continue
		}
		if b.CompletedAt == nil || b.CompletedAt.Before(since) {
			continue
		}
		r.Add(b)
	}
	return r, nil
}

func (s *InMemory) Execute(_ context.Context, bookingID id.BookingID, validate func(*models.Booking) error, mutate func(*models.Booking)) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.bookings[bookingID]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", bookingID, sentinel.ErrNotFound)
	}
	working := clone(current)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.bookings[bookingID] = working
	return clone(working), nil
}

func clone(b *models.Booking) *models.Booking {
	out := *b
	out.ScheduledDate = copyPtr(b.ScheduledDate)
	out.EstimatedValue = copyPtr(b.EstimatedValue)
	out.ActualValue = copyPtr(b.ActualValue)
	out.CommissionAmount = copyPtr(b.CommissionAmount)
	out.ProviderConfirmedAt = copyPtr(b.ProviderConfirmedAt)
	out.CustomerConfirmedAt = copyPtr(b.CustomerConfirmedAt)
	out.StartedAt = copyPtr(b.StartedAt)
	out.CompletedAt = copyPtr(b.CompletedAt)
	out.CancelledAt = copyPtr(b.CancelledAt)
	out.DisputedAt = copyPtr(b.DisputedAt)
	out.ResolvedAt = copyPtr(b.ResolvedAt)
	return &out
}

func copyPtr[T float64 | time.Time](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
