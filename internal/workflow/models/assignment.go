package models

import (
	"time"

	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
)

// TaskType distinguishes the two workflow lanes.
type TaskType string

const (
	// TaskDataCollection is the initial discovery pass.
	TaskDataCollection TaskType = "data_collection"

	// TaskDataValidation is the independent re-check of collected data.
	TaskDataValidation TaskType = "data_validation"
)

func (t TaskType) Valid() bool {
	return t == TaskDataCollection || t == TaskDataValidation
}

// AssignmentStatus is the assignment lifecycle state.
//
// Transitions: pending -> in_progress -> completed -> in_progress (reopen).
// There is no cancelled state; removal is a delete, not a transition.
type AssignmentStatus string

const (
	AssignmentPending    AssignmentStatus = "pending"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentCompleted  AssignmentStatus = "completed"
)

func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentPending, AssignmentInProgress, AssignmentCompleted:
		return true
	}
	return false
}

// Active reports whether the assignment still occupies its workflow lane.
func (s AssignmentStatus) Active() bool {
	return s == AssignmentPending || s == AssignmentInProgress
}

// Assignment is one unit of work linking a researcher to a person for a task
// type.
//
// Invariant: at most one assignment per (user, person, task_type) triple,
// enforced by the store's uniqueness constraint.
type Assignment struct {
	ID           id.AssignmentID
	UserID       id.UserID
	AssignedByID id.UserID
	PersonID     id.PersonID
	TaskType     TaskType
	Status       AssignmentStatus
	CompletedAt  *time.Time
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAssignment constructs a pending assignment.
func NewAssignment(assignmentID id.AssignmentID, userID, assignedBy id.UserID, personID id.PersonID, taskType TaskType, now time.Time) (*Assignment, error) {
	if !taskType.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "%s is not a valid task type", taskType)
	}
	return &Assignment{
		ID:           assignmentID,
		UserID:       userID,
		AssignedByID: assignedBy,
		PersonID:     personID,
		TaskType:     taskType,
		Status:       AssignmentPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (a *Assignment) Pending() bool    { return a.Status == AssignmentPending }
func (a *Assignment) InProgress() bool { return a.Status == AssignmentInProgress }
func (a *Assignment) Completed() bool  { return a.Status == AssignmentCompleted }
func (a *Assignment) Active() bool     { return a.Status.Active() }

// CanStart rejects starting a completed assignment. Re-starting one already
// in progress is a harmless no-op, not an error.
func (a *Assignment) CanStart() error {
	if a.Completed() {
		return dErrors.New(dErrors.CodeConflict, "assignment is already completed")
	}
	return nil
}

// ApplyStart moves the assignment into progress. Call CanStart first.
func (a *Assignment) ApplyStart(now time.Time) {
	a.Status = AssignmentInProgress
	a.UpdatedAt = now
}

// CanComplete rejects completing twice. The completion gate (service layer)
// is the real precondition; this only guards the state machine itself.
func (a *Assignment) CanComplete() error {
	if a.Completed() {
		return dErrors.New(dErrors.CodeConflict, "assignment is already completed")
	}
	return nil
}

// ApplyComplete stamps the completion time. Call CanComplete first, after the
// gate has passed.
func (a *Assignment) ApplyComplete(now time.Time) {
	a.Status = AssignmentCompleted
	a.CompletedAt = &now
	a.UpdatedAt = now
}

// CanReopen rejects reopening an assignment that is not completed. The
// cross-assignment policy guard (no active validation on the same person)
// lives in the service, which can see the person's other assignments.
func (a *Assignment) CanReopen() error {
	if !a.Completed() {
		return dErrors.New(dErrors.CodeConflict, "assignment is not completed")
	}
	return nil
}

// ApplyReopen returns a completed assignment to in_progress and clears the
// completion stamp. Call CanReopen first.
func (a *Assignment) ApplyReopen(now time.Time) {
	a.Status = AssignmentInProgress
	a.CompletedAt = nil
	a.UpdatedAt = now
}

// ApplyMarkIncomplete resets the assignment to pending, clearing the
// completion stamp. Admin-only escape hatch.
func (a *Assignment) ApplyMarkIncomplete(now time.Time) {
	a.Status = AssignmentPending
	a.CompletedAt = nil
	a.UpdatedAt = now
}
