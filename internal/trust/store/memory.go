package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"octopus/internal/trust/agents"
	"octopus/internal/trust/models"
	id "octopus/pkg/domain"
	"octopus/pkg/platform/sentinel"
)

// InMemory is an append-only TrustScore store for development and tests.
type InMemory struct {
	mu     sync.RWMutex
	scores map[id.ProviderID][]models.TrustScore
}

func NewInMemory() *InMemory {
	return &InMemory{scores: make(map[id.ProviderID][]models.TrustScore)}
}

func (s *InMemory) Append(_ context.Context, score *models.TrustScore) error {
	if score == nil {
		return fmt.Errorf("append trust score: nil record")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[score.ProviderID] = append(s.scores[score.ProviderID], *score)
	return nil
}

func (s *InMemory) Latest(_ context.Context, providerID id.ProviderID) (*models.TrustScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.scores[providerID]
	if len(list) == 0 {
		return nil, fmt.Errorf("latest trust score for %s: %w", providerID, sentinel.ErrNotFound)
	}
	latest := list[len(list)-1]
	return &latest, nil
}

// History returns up to limit records, newest first. limit <= 0 means all.
func (s *InMemory) History(_ context.Context, providerID id.ProviderID, limit int) ([]*models.TrustScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.scores[providerID]
	n := len(list)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*models.TrustScore, 0, n)
	for i := len(list) - 1; i >= 0 && len(out) < n; i-- {
		record := list[i]
		out = append(out, &record)
	}
	return out, nil
}

// PendingReviews counts providers whose latest record still awaits a
// reviewer.
func (s *InMemory) PendingReviews(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, list := range s.scores {
		if len(list) > 0 && list[len(list)-1].NeedsManualReview {
			n++
		}
	}
	return n, nil
}

// InMemoryContributions is the in-memory contribution ledger.
type InMemoryContributions struct {
	mu      sync.RWMutex
	entries map[id.ProviderID][]models.Contribution
}

func NewInMemoryContributions() *InMemoryContributions {
	return &InMemoryContributions{entries: make(map[id.ProviderID][]models.Contribution)}
}

func (s *InMemoryContributions) Record(_ context.Context, c *models.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[c.ProviderID] = append(s.entries[c.ProviderID], *c)
	return nil
}

// Summary aggregates contributions on or after since. Quality is averaged
// over verified entries only.
func (s *InMemoryContributions) Summary(_ context.Context, subject agents.Subject, since time.Time) (*agents.ContributionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := &agents.ContributionSummary{}
	quality := 0.0
	for _, c := range s.entries[subject.ProviderID] {
		if c.OccurredAt.Before(since) {
			continue
		}
		sum.Count++
		sum.Hours += c.Hours
		if c.Verified {
			sum.VerifiedCount++
			quality += c.Quality
		}
		if c.OccurredAt.After(sum.LastAt) {
			sum.LastAt = c.OccurredAt
		}
	}
	if sum.VerifiedCount > 0 {
		sum.AverageQuality = quality / float64(sum.VerifiedCount)
	}
	return sum, nil
}
