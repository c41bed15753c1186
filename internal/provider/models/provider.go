package models

import (
	"slices"
	"strings"
	"time"

	"octopus/internal/trust/models"
	id "octopus/pkg/domain"
	dErrors "octopus/pkg/domain-errors"
	"octopus/pkg/email"
	pstrings "octopus/pkg/platform/strings"
)

// Status is the admission state of a provider.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusVerified  Status = "VERIFIED"
	StatusRejected  Status = "REJECTED"
	StatusSuspended Status = "SUSPENDED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusRejected, StatusSuspended:
		return true
	}
	return false
}

// Provider is the aggregate root for a listed business.
//
// Invariants:
//   - Status starts PENDING and reaches VERIFIED only from an automated
//     decision of VERIFIED or an attributed reviewer override
//   - SUSPENDED is reachable from every other state and left only by
//     reinstatement, which returns to PENDING
//   - TrustScore mirrors the latest TrustScore record
//   - Providers are never deleted
type Provider struct {
	ID                id.ProviderID `json:"id"`
	BusinessName      string        `json:"business_name"`
	ContactName       string        `json:"contact_name"`
	Email             string        `json:"email"`
	Phone             string        `json:"phone"`
	Website           string        `json:"website,omitempty"`
	Description       string        `json:"description"`
	Services          []string      `json:"services"`
	ServiceAreaCities []string      `json:"service_area_cities"`
	YearsInBusiness   int           `json:"years_in_business,omitempty"`
	Status            Status        `json:"status"`
	TrustScore        int           `json:"trust_score"`
	VerifiedAt        *time.Time    `json:"verified_at,omitempty"`
	SuspendedReason   string        `json:"suspended_reason,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// ClaimRequest is the input to claim a business listing.
type ClaimRequest struct {
	BusinessName      string   `json:"business_name"`
	ContactName       string   `json:"contact_name"`
	Email             string   `json:"email"`
	Phone             string   `json:"phone"`
	Website           string   `json:"website"`
	Description       string   `json:"description"`
	Services          []string `json:"services"`
	ServiceAreaCities []string `json:"service_area_cities"`
	YearsInBusiness   int      `json:"years_in_business"`
}

func (r *ClaimRequest) Normalize() {
	if r == nil {
		return
	}
	r.BusinessName = strings.TrimSpace(r.BusinessName)
	r.ContactName = strings.TrimSpace(r.ContactName)
	r.Email = email.Normalize(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Website = strings.TrimSpace(r.Website)
	r.Description = strings.TrimSpace(r.Description)
	r.Services = pstrings.Lowered(r.Services)
	r.ServiceAreaCities = pstrings.DedupeFold(r.ServiceAreaCities)
}

func (r *ClaimRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	switch {
	case r.BusinessName == "":
		return dErrors.New(dErrors.CodeValidation, "business_name is required")
	case len(r.BusinessName) > 200:
		return dErrors.New(dErrors.CodeValidation, "business_name must be 200 characters or less")
	case r.ContactName == "":
		return dErrors.New(dErrors.CodeValidation, "contact_name is required")
	case !email.IsValid(r.Email):
		return dErrors.New(dErrors.CodeValidation, "email is invalid")
	case r.Phone == "":
		return dErrors.New(dErrors.CodeValidation, "phone is required")
	case len(r.Services) == 0:
		return dErrors.New(dErrors.CodeValidation, "at least one service is required")
	case len(r.ServiceAreaCities) == 0:
		return dErrors.New(dErrors.CodeValidation, "at least one service area city is required")
	case r.YearsInBusiness < 0:
		return dErrors.New(dErrors.CodeValidation, "years_in_business cannot be negative")
	}
	if r.Website != "" && !isHTTPURL(r.Website) {
		return dErrors.New(dErrors.CodeValidation, "website must be an http(s) URL")
	}
	return nil
}

// UpdateRequest changes profile fields. Nil fields are left untouched; a
// non-nil empty list is rejected.
type UpdateRequest struct {
	BusinessName      *string  `json:"business_name"`
	ContactName       *string  `json:"contact_name"`
	Email             *string  `json:"email"`
	Phone             *string  `json:"phone"`
	Website           *string  `json:"website"`
	Description       *string  `json:"description"`
	Services          []string `json:"services"`
	ServiceAreaCities []string `json:"service_area_cities"`
	YearsInBusiness   *int     `json:"years_in_business"`
}

func (r *UpdateRequest) Normalize() {
	if r == nil {
		return
	}
	trim := func(v *string) {
		if v != nil {
			*v = strings.TrimSpace(*v)
		}
	}
	trim(r.BusinessName)
	trim(r.ContactName)
	trim(r.Phone)
	trim(r.Website)
	trim(r.Description)
	if r.Email != nil {
		*r.Email = email.Normalize(*r.Email)
	}
	if r.Services != nil {
		r.Services = pstrings.Lowered(r.Services)
	}
	if r.ServiceAreaCities != nil {
		r.ServiceAreaCities = pstrings.DedupeFold(r.ServiceAreaCities)
	}
}

func (r *UpdateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.BusinessName == nil && r.ContactName == nil && r.Email == nil && r.Phone == nil &&
		r.Website == nil && r.Description == nil && r.Services == nil && r.ServiceAreaCities == nil &&
		r.YearsInBusiness == nil {
		return dErrors.New(dErrors.CodeValidation, "at least one field must be updated")
	}
	switch {
	case r.BusinessName != nil && *r.BusinessName == "":
		return dErrors.New(dErrors.CodeValidation, "business_name cannot be empty")
	case r.BusinessName != nil && len(*r.BusinessName) > 200:
		return dErrors.New(dErrors.CodeValidation, "business_name must be 200 characters or less")
	case r.ContactName != nil && *r.ContactName == "":
		return dErrors.New(dErrors.CodeValidation, "contact_name cannot be empty")
	case r.Email != nil && !email.IsValid(*r.Email):
		return dErrors.New(dErrors.CodeValidation, "email is invalid")
	case r.Phone != nil && *r.Phone == "":
		return dErrors.New(dErrors.CodeValidation, "phone cannot be empty")
	case r.Services != nil && len(r.Services) == 0:
		return dErrors.New(dErrors.CodeValidation, "at least one service is required")
	case r.ServiceAreaCities != nil && len(r.ServiceAreaCities) == 0:
		return dErrors.New(dErrors.CodeValidation, "at least one service area city is required")
	case r.YearsInBusiness != nil && *r.YearsInBusiness < 0:
		return dErrors.New(dErrors.CodeValidation, "years_in_business cannot be negative")
	}
	if r.Website != nil && *r.Website != "" && !isHTTPURL(*r.Website) {
		return dErrors.New(dErrors.CodeValidation, "website must be an http(s) URL")
	}
	return nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// NewProvider builds a PENDING provider from a normalized, validated claim.
func NewProvider(providerID id.ProviderID, req *ClaimRequest, now time.Time) *Provider {
	return &Provider{
		ID:                providerID,
		BusinessName:      req.BusinessName,
		ContactName:       req.ContactName,
		Email:             req.Email,
		Phone:             req.Phone,
		Website:           req.Website,
		Description:       req.Description,
		Services:          req.Services,
		ServiceAreaCities: req.ServiceAreaCities,
		YearsInBusiness:   req.YearsInBusiness,
		Status:            StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func (p *Provider) IsSuspended() bool { return p.Status == StatusSuspended }

// CanListLeads reports whether customers may send leads: not suspended and
// trust score at or above minScore.
func (p *Provider) CanListLeads(minScore int) bool {
	return !p.IsSuspended() && p.TrustScore >= minScore
}

// ApplyTrustDecision mirrors an automated evaluation onto the provider.
// Only PENDING providers change status: VERIFIED and REJECTED are applied,
// MANUAL_REVIEW leaves the provider PENDING. Every state refreshes the score.
func (p *Provider) ApplyTrustDecision(score *models.TrustScore, now time.Time) {
	p.TrustScore = score.Score
	p.UpdatedAt = now
	if p.Status != StatusPending || score.NeedsManualReview {
		return
	}
	switch score.Decision {
	case models.DecisionVerified:
		p.Status = StatusVerified
		p.VerifiedAt = &now
	case models.DecisionRejected:
		p.Status = StatusRejected
	}
}

// CanUpdate checks that the profile may be edited. Suspended providers are
// frozen until reinstated.
func (p *Provider) CanUpdate() error {
	if p.IsSuspended() {
		return dErrors.New(dErrors.CodeInvalidTransition, "suspended providers cannot be updated")
	}
	return nil
}

// ApplyUpdate copies the set fields onto the provider. It reports whether a
// field the verification agents read has changed.
func (p *Provider) ApplyUpdate(req *UpdateRequest, now time.Time) (reverify bool) {
	set := func(dst *string, v *string, checked bool) {
		if v == nil || *dst == *v {
			return
		}
		*dst = *v
		reverify = reverify || checked
	}
	set(&p.BusinessName, req.BusinessName, true)
	set(&p.ContactName, req.ContactName, false)
	set(&p.Email, req.Email, true)
	set(&p.Phone, req.Phone, true)
	set(&p.Website, req.Website, true)
	set(&p.Description, req.Description, false)
	if req.Services != nil && !slices.Equal(p.Services, req.Services) {
		p.Services = slices.Clone(req.Services)
		reverify = true
	}
	if req.ServiceAreaCities != nil && !slices.Equal(p.ServiceAreaCities, req.ServiceAreaCities) {
		p.ServiceAreaCities = slices.Clone(req.ServiceAreaCities)
		reverify = true
	}
	if req.YearsInBusiness != nil {
		p.YearsInBusiness = *req.YearsInBusiness
	}
	p.UpdatedAt = now
	return reverify
}

// CanApplyReviewOverride checks that a reviewer decision may be applied.
func (p *Provider) CanApplyReviewOverride() error {
	if p.Status != StatusPending {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "provider is %s, review requires PENDING", p.Status)
	}
	return nil
}

// ApplyReviewOverride forces the terminal admission status chosen by a reviewer.
// Must only be called after CanApplyReviewOverride returns nil.
func (p *Provider) ApplyReviewOverride(approve bool, score int, now time.Time) {
	p.TrustScore = score
	p.UpdatedAt = now
	if approve {
		p.Status = StatusVerified
		p.VerifiedAt = &now
		return
	}
	p.Status = StatusRejected
}

// CanSuspend checks that the provider is not already suspended and a
// reason is given.
func (p *Provider) CanSuspend(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return dErrors.New(dErrors.CodeValidation, "suspension reason is required")
	}
	if p.IsSuspended() {
		return dErrors.New(dErrors.CodeInvalidTransition, "provider is already suspended")
	}
	return nil
}

func (p *Provider) ApplySuspension(reason string, now time.Time) {
	p.Status = StatusSuspended
	p.SuspendedReason = strings.TrimSpace(reason)
	p.UpdatedAt = now
}

// CanReinstate checks that the provider is suspended.
func (p *Provider) CanReinstate() error {
	if !p.IsSuspended() {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "provider is %s, only SUSPENDED providers can be reinstated", p.Status)
	}
	return nil
}

// ApplyReinstatement returns the provider to PENDING for re-evaluation.
func (p *Provider) ApplyReinstatement(now time.Time) {
	p.Status = StatusPending
	p.SuspendedReason = ""
	p.VerifiedAt = nil
	p.UpdatedAt = now
}

// SearchFilter narrows a provider search.
type SearchFilter struct {
	Query         string
	Service       string
	City          string
	MinTrustScore int
	Status        Status
	Limit         int
	Offset        int
}

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

// Normalize applies paging defaults and bounds.
func (f *SearchFilter) Normalize() {
	f.Query = strings.TrimSpace(f.Query)
	f.Service = strings.ToLower(strings.TrimSpace(f.Service))
	f.City = strings.TrimSpace(f.City)
	if f.Limit <= 0 {
		f.Limit = DefaultSearchLimit
	}
	if f.Limit > MaxSearchLimit {
		f.Limit = MaxSearchLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// Matches is the in-memory form of the search predicate.
func (f SearchFilter) Matches(p *Provider) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if p.TrustScore < f.MinTrustScore {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(p.BusinessName), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	if f.Service != "" && !pstrings.ContainsFold(p.Services, f.Service) {
		return false
	}
	if f.City != "" && !pstrings.ContainsFold(p.ServiceAreaCities, f.City) {
		return false
	}
	return true
}

// SearchResult is one page of providers.
type SearchResult struct {
	Providers []*Provider `json:"providers"`
	Total     int         `json:"total"`
	Limit     int         `json:"limit"`
	Offset    int         `json:"offset"`
}
