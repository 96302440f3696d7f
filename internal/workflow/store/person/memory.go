// Package person provides stores for the minimal person aggregate the
// workflow needs.
package person

import (
	"context"
	"sync"

	"rollcall/internal/workflow/models"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/sentinel"
)

// InMemory keeps person records in process memory.
type InMemory struct {
	mu     sync.RWMutex
	people map[id.PersonID]models.Person
}

func NewInMemory() *InMemory {
	return &InMemory{people: make(map[id.PersonID]models.Person)}
}

func (s *InMemory) Create(_ context.Context, p *models.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.people[p.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.people[p.ID] = *p
	return nil
}

func (s *InMemory) FindByID(_ context.Context, personID id.PersonID) (*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.people[personID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := p
	return &copied, nil
}

// Execute atomically validates and mutates one person under the store lock.
func (s *InMemory) Execute(_ context.Context, personID id.PersonID, validate func(*models.Person) error, mutate func(*models.Person)) (*models.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.people[personID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&p); err != nil {
		return nil, err
	}
	mutate(&p)
	s.people[personID] = p

	copied := p
	return &copied, nil
}

// ListNeedingSecondaryVerification returns people flagged for the extra
// review pass. Backs the admin escalation queue.
func (s *InMemory) ListNeedingSecondaryVerification(_ context.Context) ([]*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Person
	for _, p := range s.people {
		if p.NeedsSecondaryVerification {
			copied := p
			result = append(result, &copied)
		}
	}
	return result, nil
}
