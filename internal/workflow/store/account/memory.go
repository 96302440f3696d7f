// Package account provides stores for social-media account records.
package account

import (
	"context"
	"sort"
	"strings"
	"sync"

	"rollcall/internal/workflow/models"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/sentinel"
)

// InMemory keeps account records in process memory.
type InMemory struct {
	mu       sync.RWMutex
	accounts map[id.AccountID]models.SocialMediaAccount
}

func NewInMemory() *InMemory {
	return &InMemory{accounts: make(map[id.AccountID]models.SocialMediaAccount)}
}

// Create stores a new account record. A non-blank handle must be unique
// within (person, platform, channel_type); a duplicate (person, platform,
// channel_type) pre-populated slot is also rejected so pre-population stays
// idempotent.
func (s *InMemory) Create(_ context.Context, a *models.SocialMediaAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.PersonID != a.PersonID || existing.Platform != a.Platform || existing.ChannelType != a.ChannelType {
			continue
		}
		if a.Handle != "" && strings.EqualFold(existing.Handle, a.Handle) {
			return sentinel.ErrAlreadyUsed
		}
		if a.PrePopulated && existing.PrePopulated {
			return sentinel.ErrAlreadyUsed
		}
	}

	s.accounts[a.ID] = *a
	return nil
}

func (s *InMemory) FindByID(_ context.Context, accountID id.AccountID) (*models.SocialMediaAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := a
	return &copied, nil
}

// Execute atomically validates and mutates one account under the store lock.
func (s *InMemory) Execute(_ context.Context, accountID id.AccountID, validate func(*models.SocialMediaAccount) error, mutate func(*models.SocialMediaAccount)) (*models.SocialMediaAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&a); err != nil {
		return nil, err
	}
	mutate(&a)
	s.accounts[accountID] = a

	copied := a
	return &copied, nil
}

// ListByPerson returns the person's accounts matching the filter, ordered by
// platform name for stable display.
func (s *InMemory) ListByPerson(_ context.Context, personID id.PersonID, filter models.AccountFilter) ([]*models.SocialMediaAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.SocialMediaAccount
	for _, a := range s.accounts {
		if a.PersonID != personID || !filter.Matches(&a) {
			continue
		}
		copied := a
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Platform == result[j].Platform {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].Platform < result[j].Platform
	})
	return result, nil
}

// ClearSecondaryFlags drops needs_secondary_verification and
// modified_during_validation on every account of the person in one critical
// section, so a reader never observes a half-cleared set.
func (s *InMemory) ClearSecondaryFlags(_ context.Context, personID id.PersonID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for accountID, a := range s.accounts {
		if a.PersonID != personID {
			continue
		}
		a.NeedsSecondaryVerification = false
		a.ModifiedDuringValidation = false
		s.accounts[accountID] = a
	}
	return nil
}
