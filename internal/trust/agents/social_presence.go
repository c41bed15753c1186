package agents

import (
	"context"
	"strings"
	"time"

	"octopus/internal/trust/models"
	"octopus/pkg/requestcontext"
)

const (
	recentActivityWindow = 90 * 24 * time.Hour
	engagedMentions      = 5
	engagedFollowers     = 100
)

// platformWeights sum to 100.
var platformWeights = map[string]float64{
	"reddit":   30,
	"x":        20,
	"linkedin": 35,
	"github":   15,
}

// SocialPresence scores a provider's footprint on reddit, x, linkedin and github.
type SocialPresence struct {
	searcher SocialSearcher
}

func NewSocialPresence(searcher SocialSearcher) *SocialPresence {
	return &SocialPresence{searcher: searcher}
}

func (a *SocialPresence) Kind() models.AgentKind { return models.AgentSocialPresence }

func (a *SocialPresence) Evaluate(ctx context.Context, subject Subject) (*Result, error) {
	if a.searcher == nil {
		return nil, NewAgentError(models.AgentSocialPresence, CategoryNotConfigured, "no social searcher", nil)
	}
	profiles, err := a.searcher.Presence(ctx, subject)
	if err != nil {
		return nil, Classify(models.AgentSocialPresence, err)
	}

	now := requestcontext.Now(ctx)
	score := 0.0
	found := 0
	factors := map[string]any{}
	for _, p := range profiles {
		platform := normalizePlatform(p.Platform)
		weight, ok := platformWeights[platform]
		if !ok || !p.Found {
			continue
		}
		found++
		score += weight * 0.5
		active := !p.LastActivity.IsZero() && now.Sub(p.LastActivity) <= recentActivityWindow
		if active {
			score += weight * 0.25
		}
		if p.Mentions >= engagedMentions || p.Followers >= engagedFollowers {
			score += weight * 0.25
		}
		factors[platform+"_mentions"] = p.Mentions
		factors[platform+"_active"] = active
	}
	factors["platforms_found"] = found

	return &Result{
		Kind:       models.AgentSocialPresence,
		Score:      clamp(score),
		Factors:    factors,
		Confidence: 0.6,
	}, nil
}

func normalizePlatform(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "twitter" {
		return "x"
	}
	return p
}
