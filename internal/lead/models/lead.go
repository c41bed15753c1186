// Package models defines the Lead aggregate and its funnel.
package models

import (
	"strings"
	"time"

	id "octopus/pkg/domain"
	dErrors "octopus/pkg/domain-errors"
	"octopus/pkg/email"
)

// Status is a position in the funnel.
type Status string

const (
	StatusCaptured  Status = "CAPTURED"
	StatusContacted Status = "CONTACTED"
	StatusQuoted    Status = "QUOTED"
	StatusBooked    Status = "BOOKED"
	StatusCompleted Status = "COMPLETED"
	StatusLost      Status = "LOST"
)

// forward lists the single legal successor of each funnel step. LOST is
// handled separately.
var forward = map[Status]Status{
	StatusCaptured:  StatusContacted,
	StatusContacted: StatusQuoted,
	StatusQuoted:    StatusBooked,
	StatusBooked:    StatusCompleted,
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusLost
}

// CanBeLost reports whether the lead may still be abandoned.
func (s Status) CanBeLost() bool {
	return s == StatusCaptured || s == StatusContacted || s == StatusQuoted
}

const (
	SourceWeb   = "web"
	SourceAgent = "agent"
)

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Lead is a customer intent directed at a provider.
//
// Invariants:
//   - AttributionHash is set at capture and never changes
//   - Status only moves forward, except the absorbing move to LOST
//   - each funnel timestamp is stamped once
type Lead struct {
	ID                 id.LeadID     `json:"id"`
	ProviderID         id.ProviderID `json:"provider_id"`
	ListingID          string        `json:"listing_id,omitempty"`
	Customer           Customer      `json:"customer"`
	ServiceRequested   string        `json:"service_requested"`
	Message            string        `json:"message,omitempty"`
	PreferredContact   string        `json:"preferred_contact,omitempty"`
	BudgetRange        string        `json:"budget_range,omitempty"`
	Status             Status        `json:"status"`
	AttributionHash    string        `json:"attribution_hash"`
	AttributionSource  string        `json:"attribution_source"`
	SignedURL          string        `json:"signed_url"`
	SignedURLExpiresAt time.Time     `json:"signed_url_expires_at"`
	ContactedAt        *time.Time    `json:"contacted_at,omitempty"`
	QuotedAt           *time.Time    `json:"quoted_at,omitempty"`
	BookedAt           *time.Time    `json:"booked_at,omitempty"`
	CompletedAt        *time.Time    `json:"completed_at,omitempty"`
	LostAt             *time.Time    `json:"lost_at,omitempty"`
	LostReason         string        `json:"lost_reason,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// CanAdvance checks a forward move to next. Re-entering the current status
// is allowed and changes nothing.
func (l *Lead) CanAdvance(next Status) error {
	if l.Status == next {
		return nil
	}
	if forward[l.Status] != next {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "lead cannot move from %s to %s", l.Status, next)
	}
	return nil
}

// Advance moves to next and stamps its timestamp. It reports false when the
// lead was already there. Must only be called after CanAdvance returns nil.
func (l *Lead) Advance(next Status, now time.Time) bool {
	if l.Status == next {
		return false
	}
	l.Status = next
	l.UpdatedAt = now
	stamp := now
	switch next {
	case StatusContacted:
		l.ContactedAt = &stamp
	case StatusQuoted:
		l.QuotedAt = &stamp
	case StatusBooked:
		l.BookedAt = &stamp
	case StatusCompleted:
		l.CompletedAt = &stamp
	}
	return true
}

// CanMarkLost checks the absorbing move to LOST. A lost lead may be marked
// lost again.
func (l *Lead) CanMarkLost(reason string) error {
	if l.Status == StatusLost {
		return nil
	}
	if !l.Status.CanBeLost() {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "lead is %s and can no longer be lost", l.Status)
	}
	if strings.TrimSpace(reason) == "" {
		return dErrors.New(dErrors.CodeValidation, "lost reason is required")
	}
	return nil
}

// MarkLost keeps the first reason and timestamp on re-entry.
func (l *Lead) MarkLost(reason string, now time.Time) bool {
	if l.Status == StatusLost {
		return false
	}
	stamp := now
	l.Status = StatusLost
	l.LostAt = &stamp
	l.LostReason = strings.TrimSpace(reason)
	l.UpdatedAt = now
	return true
}

// CaptureRequest is the input to capture a lead.
type CaptureRequest struct {
	ProviderID        string `json:"provider_id"`
	ListingID         string `json:"listing_id"`
	CustomerName      string `json:"customer_name"`
	CustomerEmail     string `json:"customer_email"`
	CustomerPhone     string `json:"customer_phone"`
	ServiceRequested  string `json:"service_requested"`
	Message           string `json:"message"`
	PreferredContact  string `json:"preferred_contact_method"`
	BudgetRange       string `json:"budget_range"`
	AttributionSource string `json:"attribution_source"`

	parsedProviderID id.ProviderID
}

func (r *CaptureRequest) Normalize() {
	if r == nil {
		return
	}
	r.ProviderID = strings.TrimSpace(r.ProviderID)
	r.ListingID = strings.TrimSpace(r.ListingID)
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.CustomerEmail = email.Normalize(r.CustomerEmail)
	r.CustomerPhone = strings.TrimSpace(r.CustomerPhone)
	r.ServiceRequested = strings.ToLower(strings.TrimSpace(r.ServiceRequested))
	r.Message = strings.TrimSpace(r.Message)
	r.PreferredContact = strings.ToLower(strings.TrimSpace(r.PreferredContact))
	r.BudgetRange = strings.TrimSpace(r.BudgetRange)
	r.AttributionSource = strings.ToLower(strings.TrimSpace(r.AttributionSource))
}

// Validate checks and parses the request. Call Normalize first.
func (r *CaptureRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	pid, err := id.ParseProviderID(r.ProviderID)
	if err != nil {
		return err
	}
	r.parsedProviderID = pid

	switch {
	case r.CustomerName == "":
		return dErrors.New(dErrors.CodeValidation, "customer_name is required")
	case r.CustomerEmail == "" && r.CustomerPhone == "":
		return dErrors.New(dErrors.CodeValidation, "customer_email or customer_phone is required")
	case r.CustomerEmail != "" && !email.IsValid(r.CustomerEmail):
		return dErrors.New(dErrors.CodeValidation, "customer_email is invalid")
	case r.ServiceRequested == "":
		return dErrors.New(dErrors.CodeValidation, "service_requested is required")
	case len(r.Message) > 5000:
		return dErrors.New(dErrors.CodeValidation, "message must be 5000 characters or less")
	case len(r.AttributionSource) > 32:
		return dErrors.New(dErrors.CodeValidation, "attribution_source must be 32 characters or less")
	}
	return nil
}

// ParsedProviderID is set by Validate.
func (r *CaptureRequest) ParsedProviderID() id.ProviderID {
	return r.parsedProviderID
}
