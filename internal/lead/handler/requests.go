package handler

import (
	"strings"
	"time"

	"octopus/internal/lead/models"
	"octopus/internal/lead/service"
	dErrors "octopus/pkg/domain-errors"
)

// CaptureRequest is the body of POST /leads/capture.
type CaptureRequest struct {
	models.CaptureRequest
}

func (r *CaptureRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Normalize()
	return r.CaptureRequest.Validate()
}

// LostRequest is the body of POST /leads/{id}/lost.
type LostRequest struct {
	Reason string `json:"reason"`
}

func (r *LostRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if len(r.Reason) > 500 {
		return dErrors.New(dErrors.CodeValidation, "reason must be 500 characters or less")
	}
	return nil
}

// ConvertRequest is the body of POST /leads/{id}/convert. Every field is
// optional.
type ConvertRequest struct {
	ServiceDescription string     `json:"service_description"`
	ScheduledDate      *time.Time `json:"scheduled_date"`
	Notes              string     `json:"notes"`
	EstimatedValue     *float64   `json:"estimated_value"`
	CommissionRate     *float64   `json:"commission_rate"`
}

func (r *ConvertRequest) Validate() error {
	if r == nil {
		return nil
	}
	r.ServiceDescription = strings.TrimSpace(r.ServiceDescription)
	r.Notes = strings.TrimSpace(r.Notes)
	if r.EstimatedValue != nil && *r.EstimatedValue < 0 {
		return dErrors.New(dErrors.CodeValidation, "estimated_value must be non-negative")
	}
	if r.CommissionRate != nil && (*r.CommissionRate <= 0 || *r.CommissionRate >= 1) {
		return dErrors.New(dErrors.CodeValidation, "commission_rate must be between 0 and 1")
	}
	return nil
}

func (r *ConvertRequest) toService() service.ConvertRequest {
	return service.ConvertRequest{
		ServiceDescription: r.ServiceDescription,
		ScheduledDate:      r.ScheduledDate,
		Notes:              r.Notes,
		EstimatedValue:     r.EstimatedValue,
		CommissionRate:     r.CommissionRate,
	}
}
