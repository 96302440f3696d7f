// Package assignment provides stores for assignment records.
//
// Both implementations enforce the (user, person, task_type) uniqueness
// invariant and expose Execute for atomic validate-then-mutate: callers
// re-validate against current state under the store's lock instead of
// trusting a previously read snapshot.
package assignment

import (
	"context"
	"sort"
	"sync"

	"rollcall/internal/workflow/models"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/sentinel"
)

type workKey struct {
	user   id.UserID
	person id.PersonID
	task   models.TaskType
}

// InMemory keeps assignments in process memory. Used by unit tests and the
// no-database development mode.
type InMemory struct {
	mu          sync.RWMutex
	assignments map[id.AssignmentID]models.Assignment
	byKey       map[workKey]id.AssignmentID
}

func NewInMemory() *InMemory {
	return &InMemory{
		assignments: make(map[id.AssignmentID]models.Assignment),
		byKey:       make(map[workKey]id.AssignmentID),
	}
}

// Create stores a new assignment, rejecting duplicates of the
// (user, person, task_type) triple with sentinel.ErrAlreadyUsed.
func (s *InMemory) Create(_ context.Context, a *models.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := workKey{user: a.UserID, person: a.PersonID, task: a.TaskType}
	if _, exists := s.byKey[key]; exists {
		return sentinel.ErrAlreadyUsed
	}

	s.assignments[a.ID] = *a
	s.byKey[key] = a.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, assignmentID id.AssignmentID) (*models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assignments[assignmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := a
	return &copied, nil
}

// Execute atomically validates and mutates one assignment under the store
// lock, returning the updated record.
func (s *InMemory) Execute(_ context.Context, assignmentID id.AssignmentID, validate func(*models.Assignment) error, mutate func(*models.Assignment)) (*models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assignments[assignmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&a); err != nil {
		return nil, err
	}
	mutate(&a)
	s.assignments[assignmentID] = a

	copied := a
	return &copied, nil
}

func (s *InMemory) Delete(_ context.Context, assignmentID id.AssignmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assignments[assignmentID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byKey, workKey{user: a.UserID, person: a.PersonID, task: a.TaskType})
	delete(s.assignments, assignmentID)
	return nil
}

// ActiveForUser returns the user's non-completed assignments for a task type,
// oldest first (FIFO queue order). Passing statuses narrows the result to a
// subset of {pending, in_progress}.
func (s *InMemory) ActiveForUser(_ context.Context, userID id.UserID, taskType models.TaskType, statuses ...models.AssignmentStatus) ([]*models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := map[models.AssignmentStatus]bool{}
	if len(statuses) == 0 {
		wanted[models.AssignmentPending] = true
		wanted[models.AssignmentInProgress] = true
	}
	for _, status := range statuses {
		wanted[status] = true
	}

	var result []*models.Assignment
	for _, a := range s.assignments {
		if a.UserID != userID || a.TaskType != taskType || a.Completed() || !wanted[a.Status] {
			continue
		}
		copied := a
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// CompletedForUser returns completed assignments for review, most recently
// completed first, capped at limit (0 means no cap).
func (s *InMemory) CompletedForUser(_ context.Context, userID id.UserID, taskType models.TaskType, limit int) ([]*models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Assignment
	for _, a := range s.assignments {
		if a.UserID != userID || a.TaskType != taskType || !a.Completed() {
			continue
		}
		copied := a
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		ti, tj := result[i].CompletedAt, result[j].CompletedAt
		if ti == nil || tj == nil {
			return tj == nil
		}
		return ti.After(*tj)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CountByStatus counts the user's assignments of a task type in a status.
func (s *InMemory) CountByStatus(_ context.Context, userID id.UserID, taskType models.TaskType, status models.AssignmentStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, a := range s.assignments {
		if a.UserID == userID && a.TaskType == taskType && a.Status == status {
			count++
		}
	}
	return count, nil
}

// HasActiveForPerson reports whether any user holds a non-completed
// assignment of the given task type for the person. Feeds the reopen policy
// guard.
func (s *InMemory) HasActiveForPerson(_ context.Context, personID id.PersonID, taskType models.TaskType) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.assignments {
		if a.PersonID == personID && a.TaskType == taskType && a.Active() {
			return true, nil
		}
	}
	return false, nil
}
