package memory

import (
	"context"
	"sync"

	"rollcall/internal/audit"
	id "rollcall/pkg/domain"
)

// InMemoryStore keeps the audit trail in process memory, grouped by person.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.PersonID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.PersonID][]audit.Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.PersonID] = append(s.events[event.PersonID], event)
	return nil
}

// ListByPerson returns the trail for one person in append order.
func (s *InMemoryStore) ListByPerson(_ context.Context, personID id.PersonID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[personID]...), nil
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[id.PersonID][]audit.Event)
}
