package store

import (
	"context"
	"fmt"
	"sync"

	"octopus/internal/lead/models"
	id "octopus/pkg/domain"
	"octopus/pkg/platform/sentinel"
)

// InMemory is a lead store for development and tests.
type InMemory struct {
	mu     sync.RWMutex
	leads  map[id.LeadID]*models.Lead
	byHash map[string]id.LeadID
}

func NewInMemory() *InMemory {
	return &InMemory{
		leads:  make(map[id.LeadID]*models.Lead),
		byHash: make(map[string]id.LeadID),
	}
}

// Create stores a new lead. Attribution hashes are unique.
func (s *InMemory) Create(_ context.Context, lead *models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byHash[lead.AttributionHash]; ok {
		return fmt.Errorf("lead attribution %s: %w", lead.AttributionHash, sentinel.ErrConflict)
	}
	s.leads[lead.ID] = clone(lead)
	s.byHash[lead.AttributionHash] = lead.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, leadID id.LeadID) (*models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lead, ok := s.leads[leadID]
	if !ok {
		return nil, fmt.Errorf("lead %s: %w", leadID, sentinel.ErrNotFound)
	}
	return clone(lead), nil
}

func (s *InMemory) FindByHash(_ context.Context, hash string) (*models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	leadID, ok := s.byHash[hash]
	if !ok {
		return nil, fmt.Errorf("lead attribution %s: %w", hash, sentinel.ErrNotFound)
	}
	return clone(s.leads[leadID]), nil
}

// CountByStatus counts leads per status, for one provider when providerID
// is set.
func (s *InMemory) CountByStatus(_ context.Context, providerID *id.ProviderID) (map[models.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[models.Status]int)
	for _, lead := range s.leads {
		if providerID == nil || lead.ProviderID == *providerID {
			counts[lead.Status]++
		}
	}
	return counts, nil
}

// Execute runs validate and mutate on a copy under the write lock and
// stores the result only when validate succeeds.
func (s *InMemory) Execute(_ context.Context, leadID id.LeadID, validate func(*models.Lead) error, mutate func(*models.Lead)) (*models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.leads[leadID]
	if !ok {
		return nil, fmt.Errorf("lead %s: %w", leadID, sentinel.ErrNotFound)
	}
	working := clone(current)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.leads[leadID] = working
	return clone(working), nil
}

func clone(lead *models.Lead) *models.Lead {
	out := *lead
	out.ContactedAt = copyTime(lead.ContactedAt)
	out.QuotedAt = copyTime(lead.QuotedAt)
	out.BookedAt = copyTime(lead.BookedAt)
	out.CompletedAt = copyTime(lead.CompletedAt)
	out.LostAt = copyTime(lead.LostAt)
	return &out
}
