package agents

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"octopus/internal/trust/models"
)

const (
	burstWindow         = 48 * time.Hour
	minReviewsForBursts = 5
	fullConfidenceAt    = 20
	maxClassifiedTexts  = 50
	// 0.5 of the maximum five-bucket entropy already reads as a natural spread.
	naturalEntropyRatio = 0.5
)

// ReviewEntropy scores how organic a provider's reviews look: rating spread,
// timing, agreement across platforms and the share of generated text.
type ReviewEntropy struct {
	source     ReviewSource
	classifier TextClassifier
}

// NewReviewEntropy builds the agent. classifier may be nil, in which case
// the generated-text component is scored neutrally.
func NewReviewEntropy(source ReviewSource, classifier TextClassifier) *ReviewEntropy {
	return &ReviewEntropy{source: source, classifier: classifier}
}

func (a *ReviewEntropy) Kind() models.AgentKind { return models.AgentReviewEntropy }

func (a *ReviewEntropy) Evaluate(ctx context.Context, subject Subject) (*Result, error) {
	if a.source == nil {
		return nil, NewAgentError(models.AgentReviewEntropy, CategoryNotConfigured, "no review source", nil)
	}
	reviews, err := a.source.Reviews(ctx, subject)
	if err != nil {
		return nil, Classify(models.AgentReviewEntropy, err)
	}
	for _, r := range reviews {
		if r.Rating < 1 || r.Rating > 5 {
			return nil, NewAgentError(models.AgentReviewEntropy, CategoryBadData, "rating outside 1..5", nil)
		}
	}
	if len(reviews) == 0 {
		return &Result{
			Kind:       models.AgentReviewEntropy,
			Score:      0,
			Factors:    map[string]any{"review_count": 0},
			Confidence: 0.1,
		}, nil
	}

	entropy := ratingEntropy(reviews)
	burst := burstShare(reviews)
	spread, platforms := platformSpread(reviews)

	distribution := math.Min(1, entropy/naturalEntropyRatio) * 40

	timing := 12.5
	if len(reviews) >= minReviewsForBursts {
		timing = (1 - burst) * 25
	}

	consistency := 10.0
	if platforms > 1 {
		consistency = (1 - math.Min(1, spread/2)) * 20
	}

	authenticity := 7.5
	aiShare := -1.0
	if a.classifier != nil {
		share, err := a.generatedShare(ctx, reviews)
		if err != nil {
			return nil, Classify(models.AgentReviewEntropy, err)
		}
		aiShare = share
		authenticity = (1 - share) * 15
	}

	factors := map[string]any{
		"review_count":              len(reviews),
		"rating_entropy":            round3(entropy),
		"max_burst_share":           round3(burst),
		"platforms":                 platforms,
		"cross_platform_spread":     round3(spread),
		"distribution_natural":      entropy >= naturalEntropyRatio,
		"timing_suspicious":         len(reviews) >= minReviewsForBursts && burst > 0.5,
		"cross_platform_consistent": platforms <= 1 || spread <= 1,
	}
	if aiShare >= 0 {
		factors["ai_generated_percentage"] = int(math.Round(aiShare * 100))
	}

	return &Result{
		Kind:       models.AgentReviewEntropy,
		Score:      clamp(distribution + timing + consistency + authenticity),
		Factors:    factors,
		Confidence: math.Min(1, float64(len(reviews))/fullConfidenceAt),
	}, nil
}

func (a *ReviewEntropy) generatedShare(ctx context.Context, reviews []Review) (float64, error) {
	texts := make([]string, 0, len(reviews))
	for _, r := range reviews {
		if t := strings.TrimSpace(r.Text); t != "" {
			texts = append(texts, t)
		}
		if len(texts) == maxClassifiedTexts {
			break
		}
	}
	if len(texts) == 0 {
		return 0, nil
	}
	flags, err := a.classifier.Generated(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(flags) != len(texts) {
		return 0, NewAgentError(models.AgentReviewEntropy, CategoryBadData, "classifier returned wrong number of labels", nil)
	}
	generated := 0
	for _, f := range flags {
		if f {
			generated++
		}
	}
	return float64(generated) / float64(len(texts)), nil
}

// ratingEntropy is the Shannon entropy of the 1..5 rating histogram,
// normalised to [0,1] by log2(5).
func ratingEntropy(reviews []Review) float64 {
	var buckets [5]int
	for _, r := range reviews {
		buckets[r.Rating-1]++
	}
	n := float64(len(reviews))
	h := 0.0
	for _, c := range buckets {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h / math.Log2(5)
}

// burstShare is the largest fraction of reviews posted within any 48h window.
func burstShare(reviews []Review) float64 {
	times := make([]time.Time, 0, len(reviews))
	for _, r := range reviews {
		if !r.PostedAt.IsZero() {
			times = append(times, r.PostedAt)
		}
	}
	if len(times) == 0 {
		return 0
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	best, lo := 0, 0
	for hi := range times {
		for times[hi].Sub(times[lo]) > burstWindow {
			lo++
		}
		if n := hi - lo + 1; n > best {
			best = n
		}
	}
	return float64(best) / float64(len(times))
}

// platformSpread returns the gap between the highest and lowest per-platform
// mean rating and the number of platforms seen.
func platformSpread(reviews []Review) (float64, int) {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, r := range reviews {
		p := strings.ToLower(strings.TrimSpace(r.Platform))
		sums[p] += float64(r.Rating)
		counts[p]++
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for p, s := range sums {
		mean := s / float64(counts[p])
		lo = math.Min(lo, mean)
		hi = math.Max(hi, mean)
	}
	return hi - lo, len(sums)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
