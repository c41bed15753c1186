package handler

import (
	"net/url"
	"strconv"
	"strings"

	"octopus/internal/provider/models"
	dErrors "octopus/pkg/domain-errors"
)

// ClaimRequest is the body of POST /providers/claim.
type ClaimRequest struct {
	models.ClaimRequest
}

// Validate normalises before checking so that padded input is accepted.
func (r *ClaimRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Normalize()
	return r.ClaimRequest.Validate()
}

// UpdateRequest is the body of PATCH /providers/{id}. Absent fields are
// left unchanged.
type UpdateRequest struct {
	models.UpdateRequest
}

func (r *UpdateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Normalize()
	return r.UpdateRequest.Validate()
}

// SuspendRequest is the body of POST /admin/providers/{id}/suspend.
type SuspendRequest struct {
	Reason string `json:"reason"`
}

func (r *SuspendRequest) Validate() error {
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

// parseSearch reads the search filter from query parameters.
func parseSearch(q url.Values) (models.SearchFilter, error) {
	f := models.SearchFilter{
		Query:   q.Get("q"),
		Service: q.Get("service"),
		City:    q.Get("city"),
		Status:  models.Status(strings.ToUpper(q.Get("status"))),
	}
	var err error
	if f.MinTrustScore, err = intParam(q, "min_trust_score"); err != nil {
		return f, err
	}
	if f.Limit, err = intParam(q, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = intParam(q, "offset"); err != nil {
		return f, err
	}
	return f, nil
}

func intParam(q url.Values, name string) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.Newf(dErrors.CodeValidation, "%s must be an integer", name)
	}
	return n, nil
}
