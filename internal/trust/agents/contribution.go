package agents

import (
	"context"
	"math"
	"time"

	"octopus/internal/trust/models"
	"octopus/pkg/requestcontext"
)

const contributionLookback = 365 * 24 * time.Hour

// Contribution scores community contribution hours over the last year.
type Contribution struct {
	ledger   ContributionLedger
	minHours float64
}

// NewContribution builds the agent. minHours is the yearly requirement.
func NewContribution(ledger ContributionLedger, minHours float64) *Contribution {
	if minHours <= 0 {
		minHours = 12
	}
	return &Contribution{ledger: ledger, minHours: minHours}
}

func (a *Contribution) Kind() models.AgentKind { return models.AgentContribution }

func (a *Contribution) Evaluate(ctx context.Context, subject Subject) (*Result, error) {
	if a.ledger == nil {
		return nil, NewAgentError(models.AgentContribution, CategoryNotConfigured, "no contribution ledger", nil)
	}
	now := requestcontext.Now(ctx)
	sum, err := a.ledger.Summary(ctx, subject, now.Add(-contributionLookback))
	if err != nil {
		return nil, Classify(models.AgentContribution, err)
	}
	if sum == nil {
		sum = &ContributionSummary{}
	}
	if sum.Hours < 0 || sum.AverageQuality < 0 || sum.AverageQuality > 1 {
		return nil, NewAgentError(models.AgentContribution, CategoryBadData, "contribution summary out of range", nil)
	}

	recent := !sum.LastAt.IsZero() && now.Sub(sum.LastAt) <= recentActivityWindow
	score := math.Min(1, sum.Hours/a.minHours) * 60
	if recent {
		score += 20
	}
	score += sum.AverageQuality * 20

	return &Result{
		Kind:  models.AgentContribution,
		Score: clamp(score),
		Factors: map[string]any{
			"hours_contributed": round3(sum.Hours),
			"required_hours":    a.minHours,
			"recent_activity":   recent,
			"quality_score":     int(math.Round(sum.AverageQuality * 100)),
			"verified_count":    sum.VerifiedCount,
		},
		Confidence: 1,
	}, nil
}
