package agents

import (
	"context"
	"strings"

	"octopus/internal/trust/models"
	"octopus/pkg/requestcontext"
)

// Verification checks licensing, insurance and background records.
type Verification struct {
	registry RegistryLookup
}

func NewVerification(registry RegistryLookup) *Verification {
	return &Verification{registry: registry}
}

func (a *Verification) Kind() models.AgentKind { return models.AgentVerification }

func (a *Verification) Evaluate(ctx context.Context, subject Subject) (*Result, error) {
	if a.registry == nil {
		return nil, NewAgentError(models.AgentVerification, CategoryNotConfigured, "no registry lookup", nil)
	}
	rec, err := a.registry.Lookup(ctx, subject)
	if err != nil {
		return nil, Classify(models.AgentVerification, err)
	}
	if rec == nil {
		return nil, NewAgentError(models.AgentVerification, CategoryBadData, "empty registry record", nil)
	}

	now := requestcontext.Now(ctx)
	licenseValid := rec.LicenseValid && (rec.LicenseExpiresAt.IsZero() || rec.LicenseExpiresAt.After(now))
	backgroundPassed := strings.EqualFold(rec.BackgroundCheck, "passed")

	score := 0
	if licenseValid {
		score += 50
	}
	if rec.InsuranceCurrent {
		score += 35
	}
	if backgroundPassed {
		score += 15
	}

	return &Result{
		Kind:  models.AgentVerification,
		Score: score,
		Factors: map[string]any{
			"business_license_valid":  licenseValid,
			"insurance_current":       rec.InsuranceCurrent,
			"background_check_passed": backgroundPassed,
		},
		Confidence: 0.9,
	}, nil
}
