// Package models defines the Booking aggregate and its commission rules.
package models

import (
	"math"
	"strings"
	"time"

	id "octopus/pkg/domain"
	dErrors "octopus/pkg/domain-errors"
)

type Status string

const (
	StatusRequested  Status = "REQUESTED"
	StatusConfirmed  Status = "CONFIRMED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusDisputed   Status = "DISPUTED"
)

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) IsValid() bool {
	switch s {
	case StatusRequested, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusDisputed:
		return true
	}
	return false
}

// Party is the side confirming a booking.
type Party string

const (
	PartyProvider Party = "provider"
	PartyCustomer Party = "customer"
)

func (p Party) IsValid() bool {
	return p == PartyProvider || p == PartyCustomer
}

// Outcome closes a dispute.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
)

func (o Outcome) IsValid() bool {
	return o == OutcomeCompleted || o == OutcomeCancelled
}

// Round2 rounds half away from zero to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CommissionPolicy bounds the negotiated commission rate.
type CommissionPolicy struct {
	Min     float64
	Max     float64
	Default float64
}

func DefaultCommissionPolicy() CommissionPolicy {
	return CommissionPolicy{Min: 0.03, Max: 0.07, Default: 0.05}
}

// Rate returns requested when it lies in [Min, Max], else Default.
func (p CommissionPolicy) Rate(requested *float64) float64 {
	if requested == nil || *requested < p.Min || *requested > p.Max {
		return p.Default
	}
	return *requested
}

// Revenue sums settled bookings. Gross is the actual value billed by
// providers; Commission is the platform's share.
type Revenue struct {
	Bookings   int     `json:"bookings"`
	Gross      float64 `json:"gross"`
	Commission float64 `json:"commission"`
}

// Add folds a settled booking into the totals.
func (r *Revenue) Add(b *Booking) {
	if b.Status != StatusCompleted || b.ActualValue == nil || b.CommissionAmount == nil {
		return
	}
	r.Bookings++
	r.Gross = Round2(r.Gross + *b.ActualValue)
	r.Commission = Round2(r.Commission + *b.CommissionAmount)
}

// Draft is what a converted lead hands to the ledger.
type Draft struct {
	LeadID             id.LeadID
	ProviderID         id.ProviderID
	CustomerName       string
	ServiceDescription string
	ScheduledDate      *time.Time
	Notes              string
	EstimatedValue     *float64
	CommissionRate     *float64
}

// Booking is a scheduled engagement created from a converted lead.
//
// Invariants:
//   - CommissionAmount is set exactly once, on completion, as
//     Round2(ActualValue * CommissionRate)
//   - cancelled bookings never carry a commission
//   - COMPLETED and CANCELLED are terminal
type Booking struct {
	ID                  id.BookingID  `json:"id"`
	LeadID              id.LeadID     `json:"lead_id"`
	ProviderID          id.ProviderID `json:"provider_id"`
	CustomerName        string        `json:"customer_name"`
	ServiceDescription  string        `json:"service_description,omitempty"`
	ScheduledDate       *time.Time    `json:"scheduled_date,omitempty"`
	Notes               string        `json:"notes,omitempty"`
	Status              Status        `json:"status"`
	EstimatedValue      *float64      `json:"estimated_value,omitempty"`
	ActualValue         *float64      `json:"actual_value,omitempty"`
	CommissionRate      float64       `json:"commission_rate"`
	CommissionAmount    *float64      `json:"commission_amount,omitempty"`
	ProviderConfirmedAt *time.Time    `json:"provider_confirmed_at,omitempty"`
	CustomerConfirmedAt *time.Time    `json:"customer_confirmed_at,omitempty"`
	StartedAt           *time.Time    `json:"started_at,omitempty"`
	CompletedAt         *time.Time    `json:"completed_at,omitempty"`
	CancelledAt         *time.Time    `json:"cancelled_at,omitempty"`
	CancelReason        string        `json:"cancel_reason,omitempty"`
	DisputedAt          *time.Time    `json:"disputed_at,omitempty"`
	DisputeReason       string        `json:"dispute_reason,omitempty"`
	ResolvedAt          *time.Time    `json:"resolved_at,omitempty"`
	ResolvedBy          string        `json:"resolved_by,omitempty"`
	Resolution          Outcome       `json:"resolution,omitempty"`
	ResolutionNotes     string        `json:"resolution_notes,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

func NewBooking(bookingID id.BookingID, d Draft, rate float64, now time.Time) *Booking {
	return &Booking{
		ID:                 bookingID,
		LeadID:             d.LeadID,
		ProviderID:         d.ProviderID,
		CustomerName:       strings.TrimSpace(d.CustomerName),
		ServiceDescription: strings.TrimSpace(d.ServiceDescription),
		ScheduledDate:      d.ScheduledDate,
		Notes:              strings.TrimSpace(d.Notes),
		Status:             StatusRequested,
		EstimatedValue:     d.EstimatedValue,
		CommissionRate:     rate,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func (b *Booking) BothConfirmed() bool {
	return b.ProviderConfirmedAt != nil && b.CustomerConfirmedAt != nil
}

func (b *Booking) confirmedBy(p Party) bool {
	if p == PartyProvider {
		return b.ProviderConfirmedAt != nil
	}
	return b.CustomerConfirmedAt != nil
}

func invalid(b *Booking, action string) error {
	return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot %s a %s booking", action, b.Status)
}

func (b *Booking) CanConfirm(p Party) error {
	if !p.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "party must be provider or customer")
	}
	if b.Status != StatusRequested && b.Status != StatusConfirmed {
		return invalid(b, "confirm")
	}
	return nil
}

// Confirm stamps the party's confirmation. The first confirmation from either
// side moves REQUESTED to CONFIRMED. It reports false for a repeat.
func (b *Booking) Confirm(p Party, now time.Time) bool {
	if b.confirmedBy(p) {
		return false
	}
	stamp := now
	if p == PartyProvider {
		b.ProviderConfirmedAt = &stamp
	} else {
		b.CustomerConfirmedAt = &stamp
	}
	b.Status = StatusConfirmed
	b.UpdatedAt = now
	return true
}

func (b *Booking) CanStart() error {
	if b.Status != StatusConfirmed {
		return invalid(b, "start")
	}
	if !b.BothConfirmed() {
		return dErrors.New(dErrors.CodeInvalidTransition, "both parties must confirm before work starts")
	}
	return nil
}

func (b *Booking) Start(now time.Time) {
	stamp := now
	b.Status = StatusInProgress
	b.StartedAt = &stamp
	b.UpdatedAt = now
}

func validateValue(actual float64) error {
	if actual < 0 || math.IsNaN(actual) || math.IsInf(actual, 0) {
		return dErrors.New(dErrors.CodeValidation, "actual_value must be a non-negative amount")
	}
	return nil
}

func (b *Booking) CanComplete(actual float64) error {
	if b.Status != StatusConfirmed && b.Status != StatusInProgress {
		return invalid(b, "complete")
	}
	if !b.BothConfirmed() {
		return dErrors.New(dErrors.CodeInvalidTransition, "both parties must confirm before completion")
	}
	return validateValue(actual)
}

// Complete settles the booking and computes the commission.
func (b *Booking) Complete(actual float64, now time.Time) {
	b.settle(actual, now)
}

func (b *Booking) settle(actual float64, now time.Time) {
	value := Round2(actual)
	commission := Round2(value * b.CommissionRate)
	stamp := now
	b.ActualValue = &value
	b.CommissionAmount = &commission
	b.CompletedAt = &stamp
	b.Status = StatusCompleted
	b.UpdatedAt = now
}

// CanCancel admits REQUESTED and partially confirmed bookings. Once both
// parties have confirmed, the booking can only be completed or disputed.
func (b *Booking) CanCancel(reason string) error {
	if b.Status != StatusRequested && b.Status != StatusConfirmed {
		return invalid(b, "cancel")
	}
	if b.Status == StatusConfirmed && b.BothConfirmed() {
		return invalid(b, "cancel")
	}
	if strings.TrimSpace(reason) == "" {
		return dErrors.New(dErrors.CodeValidation, "cancel reason is required")
	}
	return nil
}

func (b *Booking) Cancel(reason string, now time.Time) {
	stamp := now
	b.Status = StatusCancelled
	b.CancelledAt = &stamp
	b.CancelReason = strings.TrimSpace(reason)
	b.UpdatedAt = now
}

func (b *Booking) CanDispute(reason string) error {
	if b.Status.IsTerminal() || b.Status == StatusDisputed {
		return invalid(b, "dispute")
	}
	if strings.TrimSpace(reason) == "" {
		return dErrors.New(dErrors.CodeValidation, "dispute reason is required")
	}
	return nil
}

func (b *Booking) Dispute(reason string, now time.Time) {
	stamp := now
	b.Status = StatusDisputed
	b.DisputedAt = &stamp
	b.DisputeReason = strings.TrimSpace(reason)
	b.UpdatedAt = now
}

// Resolution is an administrative decision on a disputed booking.
type Resolution struct {
	Outcome     Outcome
	ReviewerID  string
	Notes       string
	ActualValue *float64
}

func (b *Booking) CanResolve(r Resolution) error {
	if b.Status != StatusDisputed {
		return invalid(b, "resolve")
	}
	if !r.Outcome.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "outcome must be completed or cancelled")
	}
	if strings.TrimSpace(r.ReviewerID) == "" {
		return dErrors.New(dErrors.CodeValidation, "reviewer is required")
	}
	if r.Outcome == OutcomeCompleted {
		if r.ActualValue == nil {
			return dErrors.New(dErrors.CodeValidation, "actual_value is required to resolve as completed")
		}
		return validateValue(*r.ActualValue)
	}
	return nil
}

// Resolve closes the dispute. A completed outcome settles commission on the
// reviewer-supplied value; a cancelled one carries none.
func (b *Booking) Resolve(r Resolution, now time.Time) {
	stamp := now
	b.ResolvedAt = &stamp
	b.ResolvedBy = strings.TrimSpace(r.ReviewerID)
	b.Resolution = r.Outcome
	b.ResolutionNotes = strings.TrimSpace(r.Notes)
	if r.Outcome == OutcomeCompleted {
		b.settle(*r.ActualValue, now)
		return
	}
	b.Status = StatusCancelled
	b.CancelledAt = &stamp
	b.CancelReason = "dispute resolved as cancelled"
	b.UpdatedAt = now
}
