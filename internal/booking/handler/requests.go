package handler

import (
	"strings"

	"octopus/internal/booking/models"
	dErrors "octopus/pkg/domain-errors"
)

type ConfirmRequest struct {
	Party models.Party `json:"party"`
}

func (r *ConfirmRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Party = models.Party(strings.ToLower(strings.TrimSpace(string(r.Party))))
	if !r.Party.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "party must be provider or customer")
	}
	return nil
}

type CompleteRequest struct {
	ActualValue *float64 `json:"actual_value"`
}

func (r *CompleteRequest) Validate() error {
	if r == nil || r.ActualValue == nil {
		return dErrors.New(dErrors.CodeValidation, "actual_value is required")
	}
	return nil
}

// ReasonRequest is the body of cancel and dispute.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

func (r *ReasonRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if len(r.Reason) > 1000 {
		return dErrors.New(dErrors.CodeValidation, "reason must be 1000 characters or less")
	}
	return nil
}

// ResolveRequest is the body of POST /admin/bookings/{id}/resolve. The
// reviewer defaults to the authenticated admin actor.
type ResolveRequest struct {
	Outcome     models.Outcome `json:"outcome"`
	ReviewerID  string         `json:"reviewer_id"`
	Notes       string         `json:"notes"`
	ActualValue *float64       `json:"actual_value"`
}

func (r *ResolveRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Outcome = models.Outcome(strings.ToLower(strings.TrimSpace(string(r.Outcome))))
	r.ReviewerID = strings.TrimSpace(r.ReviewerID)
	r.Notes = strings.TrimSpace(r.Notes)
	if !r.Outcome.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "outcome must be completed or cancelled")
	}
	if len(r.Notes) > 2000 {
		return dErrors.New(dErrors.CodeValidation, "notes must be 2000 characters or less")
	}
	return nil
}
