package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"octopus/internal/provider/models"
	id "octopus/pkg/domain"
	"octopus/pkg/platform/sentinel"
)

// InMemory is a provider store for development and tests. A single mutex
// serialises Execute calls, which gives per-row compare-and-set semantics.
type InMemory struct {
	mu        sync.RWMutex
	providers map[id.ProviderID]*models.Provider
}

func NewInMemory() *InMemory {
	return &InMemory{providers: make(map[id.ProviderID]*models.Provider)}
}

func claimKey(p *models.Provider) string {
	return strings.ToLower(p.BusinessName) + "\x00" + strings.ToLower(p.Email)
}

// Create stores a new provider. A second claim with the same business name
// and email (case-insensitive) returns ErrConflict.
func (s *InMemory) Create(_ context.Context, p *models.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := claimKey(p)
	for _, existing := range s.providers {
		if claimKey(existing) == key {
			return fmt.Errorf("provider %q: %w", p.BusinessName, sentinel.ErrConflict)
		}
	}
	s.providers[p.ID] = clone(p)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, providerID id.ProviderID) (*models.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("provider %s: %w", providerID, sentinel.ErrNotFound)
	}
	return clone(p), nil
}

// Search orders by trust score (highest first), then by creation time.
func (s *InMemory) Search(_ context.Context, filter models.SearchFilter) (*models.SearchResult, error) {
	s.mu.RLock()
	matches := make([]*models.Provider, 0)
	for _, p := range s.providers {
		if filter.Matches(p) {
			matches = append(matches, clone(p))
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matches, func(a, b *models.Provider) int {
		if a.TrustScore != b.TrustScore {
			return b.TrustScore - a.TrustScore
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	result := &models.SearchResult{Total: len(matches), Limit: filter.Limit, Offset: filter.Offset, Providers: []*models.Provider{}}
	if filter.Offset >= len(matches) {
		return result, nil
	}
	end := len(matches)
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}
	result.Providers = matches[filter.Offset:end]
	return result, nil
}

func (s *InMemory) CountByStatus(_ context.Context) (map[models.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[models.Status]int)
	for _, p := range s.providers {
		counts[p.Status]++
	}
	return counts, nil
}

// Execute loads a provider, runs validate, then mutate, and saves the result
// atomically. A validate error or a rename onto another claim aborts without
// changes.
func (s *InMemory) Execute(_ context.Context, providerID id.ProviderID, validate func(*models.Provider) error, mutate func(*models.Provider)) (*models.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("provider %s: %w", providerID, sentinel.ErrNotFound)
	}
	working := clone(current)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	if key := claimKey(working); key != claimKey(current) {
		for otherID, other := range s.providers {
			if otherID != providerID && claimKey(other) == key {
				return nil, fmt.Errorf("provider %q: %w", working.BusinessName, sentinel.ErrConflict)
			}
		}
	}
	s.providers[providerID] = working
	return clone(working), nil
}

func clone(p *models.Provider) *models.Provider {
	c := *p
	c.Services = slices.Clone(p.Services)
	c.ServiceAreaCities = slices.Clone(p.ServiceAreaCities)
	if p.VerifiedAt != nil {
		v := *p.VerifiedAt
		c.VerifiedAt = &v
	}
	return &c
}
