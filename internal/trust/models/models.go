// Package models defines the trust evaluation records: per-agent verdicts,
// failure markers and the append-only TrustScore.
package models

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	id "octopus/pkg/domain"
	dErrors "octopus/pkg/domain-errors"
)

// AgentKind names one of the five verification signals. The set is closed.
type AgentKind string

const (
	AgentBusinessCrawl  AgentKind = "business_crawl"
	AgentReviewEntropy  AgentKind = "review_entropy"
	AgentSocialPresence AgentKind = "social_presence"
	AgentVerification   AgentKind = "verification"
	AgentContribution   AgentKind = "contribution"
)

// AllAgentKinds lists every kind in aggregation order.
var AllAgentKinds = []AgentKind{
	AgentBusinessCrawl,
	AgentReviewEntropy,
	AgentSocialPresence,
	AgentVerification,
	AgentContribution,
}

// Weight returns the kind's aggregation weight in hundredths. The weights
// sum to 100 so the weighted sum of 0..100 scores stays within 0..100.
func (k AgentKind) Weight() int {
	switch k {
	case AgentBusinessCrawl:
		return 25
	case AgentReviewEntropy:
		return 30
	case AgentSocialPresence:
		return 20
	case AgentVerification:
		return 15
	case AgentContribution:
		return 10
	default:
		return 0
	}
}

func (k AgentKind) IsValid() bool {
	return k.Weight() > 0
}

func (k AgentKind) String() string { return string(k) }

// Decision is the admission outcome of one evaluation.
type Decision string

const (
	DecisionRejected     Decision = "REJECTED"
	DecisionManualReview Decision = "MANUAL_REVIEW"
	DecisionVerified     Decision = "VERIFIED"
)

// Thresholds split a score into a Decision.
type Thresholds struct {
	// Minimum is the lowest score that avoids rejection (and the lowest
	// listing score for lead capture).
	Minimum int
	// ManualReview is the lowest score verified without a reviewer.
	ManualReview int
}

// DefaultThresholds are 60 and 70.
func DefaultThresholds() Thresholds {
	return Thresholds{Minimum: 60, ManualReview: 70}
}

// Decide maps a score to a decision: below Minimum is rejected, below
// ManualReview needs a reviewer, everything else is verified.
func (t Thresholds) Decide(score int) Decision {
	switch {
	case score < t.Minimum:
		return DecisionRejected
	case score < t.ManualReview:
		return DecisionManualReview
	default:
		return DecisionVerified
	}
}

// AgentVerdict is one successful signal, nested inside a TrustScore.
type AgentVerdict struct {
	Agent      AgentKind      `json:"agent"`
	Score      int            `json:"score"`
	Weight     int            `json:"weight"`
	Factors    map[string]any `json:"factors"`
	Confidence float64        `json:"confidence"`
	LatencyMS  int64          `json:"latency_ms"`
}

// AgentFailure marks a signal that produced no verdict in this run.
type AgentFailure struct {
	Agent     AgentKind `json:"agent"`
	Category  string    `json:"category"`
	Reason    string    `json:"reason"`
	Retryable bool      `json:"retryable"`
	LatencyMS int64     `json:"latency_ms"`
}

// TrustScore is the immutable record of one evaluation or one manual review.
// Records are only ever appended.
type TrustScore struct {
	ID                id.TrustScoreID  `json:"id"`
	ProviderID        id.ProviderID    `json:"provider_id"`
	Score             int              `json:"score"`
	Decision          Decision         `json:"decision"`
	NeedsManualReview bool             `json:"needs_manual_review"`
	Verdicts          []AgentVerdict   `json:"verdicts"`
	Failures          []AgentFailure   `json:"failures,omitempty"`
	ReviewerID        string           `json:"reviewer_id,omitempty"`
	ReviewNotes       string           `json:"review_notes,omitempty"`
	Supersedes        *id.TrustScoreID `json:"supersedes,omitempty"`
	CalculatedAt      time.Time        `json:"calculated_at"`
}

// Degraded reports a partial agent failure: at least one signal is missing.
func (t *TrustScore) Degraded() bool {
	return len(t.Failures) > 0
}

// IsReview reports whether the record is a reviewer override.
func (t *TrustScore) IsReview() bool {
	return t.ReviewerID != ""
}

// Verdict returns the verdict for kind, if that agent succeeded.
func (t *TrustScore) Verdict(kind AgentKind) (AgentVerdict, bool) {
	for _, v := range t.Verdicts {
		if v.Agent == kind {
			return v, true
		}
	}
	return AgentVerdict{}, false
}

// Contribution is one logged block of community work by a provider.
type Contribution struct {
	ID          uuid.UUID     `json:"id"`
	ProviderID  id.ProviderID `json:"provider_id"`
	Hours       float64       `json:"hours"`
	Verified    bool          `json:"verified"`
	Quality     float64       `json:"quality"`
	Description string        `json:"description,omitempty"`
	OccurredAt  time.Time     `json:"occurred_at"`
}

const (
	maxContributionHours       = 24
	maxContributionDescription = 500
)

// NewContribution validates one logged block of work. A zero occurredAt is
// stamped with now; entries may not be dated in the future.
func NewContribution(providerID id.ProviderID, hours float64, verified bool, quality float64, description string, occurredAt, now time.Time) (*Contribution, error) {
	if math.IsNaN(hours) || hours <= 0 || hours > maxContributionHours {
		return nil, dErrors.Newf(dErrors.CodeValidation, "hours must be greater than 0 and at most %d", maxContributionHours)
	}
	if math.IsNaN(quality) || quality < 0 || quality > 1 {
		return nil, dErrors.New(dErrors.CodeValidation, "quality must be between 0 and 1")
	}
	description = strings.TrimSpace(description)
	if len(description) > maxContributionDescription {
		return nil, dErrors.Newf(dErrors.CodeValidation, "description must be %d characters or less", maxContributionDescription)
	}
	if occurredAt.IsZero() {
		occurredAt = now
	}
	if occurredAt.After(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "occurred_at cannot be in the future")
	}
	return &Contribution{
		ID:          uuid.New(),
		ProviderID:  providerID,
		Hours:       hours,
		Verified:    verified,
		Quality:     quality,
		Description: description,
		OccurredAt:  occurredAt.UTC(),
	}, nil
}
