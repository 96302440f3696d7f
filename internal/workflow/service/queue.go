package service

import (
	"context"

	"rollcall/internal/workflow/models"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
)

// defaultCompletedLimit caps the completed-work review list when the caller
// does not ask for a specific window.
const defaultCompletedLimit = 25

// QueueStats summarizes one researcher's workload for a task type.
type QueueStats struct {
	Pending        int
	InProgress     int
	CompletedTotal int
}

// ActiveQueue returns the researcher's open assignments for a task type in
// FIFO order: oldest assignment first, so work is served in the order it was
// handed out. Passing statuses narrows the result to a subset of
// {pending, in_progress}; none means both.
func (s *Service) ActiveQueue(ctx context.Context, userID id.UserID, taskType models.TaskType, statuses ...models.AssignmentStatus) ([]*models.Assignment, error) {
	if userID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	if !taskType.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid task type", taskType)
	}
	for _, status := range statuses {
		if !status.Active() {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not an open queue status", status)
		}
	}
	assignments, err := s.assignments.ActiveForUser(ctx, userID, taskType, statuses...)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load queue")
	}
	return assignments, nil
}

// NextAssignment returns the head of the researcher's queue, or not_found
// when the queue is empty.
func (s *Service) NextAssignment(ctx context.Context, userID id.UserID, taskType models.TaskType) (*models.Assignment, error) {
	queue, err := s.ActiveQueue(ctx, userID, taskType)
	if err != nil {
		return nil, err
	}
	if len(queue) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "no assignments in queue")
	}
	return queue[0], nil
}

// CompletedQueue returns the researcher's finished assignments, most recently
// completed first. limit <= 0 applies the default window.
func (s *Service) CompletedQueue(ctx context.Context, userID id.UserID, taskType models.TaskType, limit int) ([]*models.Assignment, error) {
	if userID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	if !taskType.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid task type", taskType)
	}
	if limit <= 0 {
		limit = defaultCompletedLimit
	}
	assignments, err := s.assignments.CompletedForUser(ctx, userID, taskType, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load completed assignments")
	}
	return assignments, nil
}

// Stats counts the researcher's assignments per status for a task type.
// CompletedTotal is the all-time count, not a windowed one.
func (s *Service) Stats(ctx context.Context, userID id.UserID, taskType models.TaskType) (QueueStats, error) {
	if userID.IsZero() {
		return QueueStats{}, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	if !taskType.Valid() {
		return QueueStats{}, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid task type", taskType)
	}

	var stats QueueStats
	for _, pair := range []struct {
		status models.AssignmentStatus
		target *int
	}{
		{models.AssignmentPending, &stats.Pending},
		{models.AssignmentInProgress, &stats.InProgress},
		{models.AssignmentCompleted, &stats.CompletedTotal},
	} {
		count, err := s.assignments.CountByStatus(ctx, userID, taskType, pair.status)
		if err != nil {
			return QueueStats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count assignments")
		}
		*pair.target = count
	}
	return stats, nil
}
