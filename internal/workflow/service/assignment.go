package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rollcall/internal/audit"
	"rollcall/internal/workflow/models"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/requestcontext"
)

// CreateAssignment hands a person to a researcher for one task type. For
// data_collection the person's core-platform Campaign records are
// pre-populated in the same transaction, so the researcher always starts from
// the full six-row research surface.
func (s *Service) CreateAssignment(ctx context.Context, userID id.UserID, personID id.PersonID, taskType models.TaskType, notes string) (*models.Assignment, error) {
	if userID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	if personID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "person id is required")
	}

	if _, err := s.people.FindByID(ctx, personID); err != nil {
		return nil, wrapPersonErr(err)
	}

	var assignment *models.Assignment
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := models.NewAssignment(id.NewAssignmentID(), userID, requestcontext.UserID(txCtx), personID, taskType, requestcontext.Now(txCtx))
		if err != nil {
			return dErrors.New(dErrors.CodeInvalidInput, err.Error())
		}
		a.Notes = notes

		if err := s.assignments.Create(txCtx, a); err != nil {
			return wrapAssignmentErr(err)
		}
		if taskType == models.TaskDataCollection {
			if _, err := s.prepopulate(txCtx, personID); err != nil {
				return err
			}
		}
		assignment = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.ActionAssignmentCreated, personID, "assignment", assignment.ID.String(),
		fmt.Sprintf("task_type=%s assignee=%s", taskType, userID))
	if s.metrics != nil {
		s.metrics.IncrementAssignmentsCreated()
	}
	return assignment, nil
}

// BulkAssignResult reports how a bulk request fanned out.
type BulkAssignResult struct {
	Created int
	Skipped int
}

// BulkAssign creates one assignment per person for a single researcher.
// People already assigned to that researcher for the task type are skipped,
// not failed: the caller gets created/skipped counts and the remaining people
// are still assigned.
func (s *Service) BulkAssign(ctx context.Context, userID id.UserID, personIDs []id.PersonID, taskType models.TaskType, notes string) (BulkAssignResult, error) {
	if userID.IsZero() {
		return BulkAssignResult{}, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	if len(personIDs) == 0 {
		return BulkAssignResult{}, dErrors.New(dErrors.CodeValidation, "at least one person is required")
	}
	if !taskType.Valid() {
		return BulkAssignResult{}, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid task type", taskType)
	}

	var result BulkAssignResult
	for _, personID := range personIDs {
		_, err := s.CreateAssignment(ctx, userID, personID, taskType, notes)
		switch {
		case err == nil:
			result.Created++
		case dErrors.HasCode(err, dErrors.CodeConflict):
			result.Skipped++
		default:
			return result, err
		}
	}
	return result, nil
}

// GetAssignment returns one assignment by id.
func (s *Service) GetAssignment(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error) {
	a, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, wrapAssignmentErr(err)
	}
	return a, nil
}

// StartAssignment moves a pending assignment into progress. Starting one
// already in progress is a no-op.
func (s *Service) StartAssignment(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error) {
	now := requestcontext.Now(ctx)
	assignment, err := s.assignments.Execute(ctx, assignmentID,
		func(a *models.Assignment) error { return a.CanStart() },
		func(a *models.Assignment) { a.ApplyStart(now) },
	)
	if err != nil {
		return nil, wrapAssignmentErr(err)
	}

	s.emit(ctx, audit.ActionAssignmentStarted, assignment.PersonID, "assignment", assignment.ID.String(), "")
	return assignment, nil
}

// CompleteAssignment completes an assignment after the completion gate passes.
// The gate is evaluated fresh inside the call against the person's current
// account rows; a blocked verdict surfaces as a gate_blocked error carrying
// the offending count.
//
// Completing a data_validation assignment additionally runs the secondary
// verification trigger: if any of the person's records were modified during
// validation, the person and those records are flagged for re-review.
func (s *Service) CompleteAssignment(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveComplete(start)
		}
	}()

	existing, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, wrapAssignmentErr(err)
	}

	verdict, err := s.EvaluateGate(ctx, existing.PersonID, existing.TaskType)
	if err != nil {
		return nil, err
	}
	if !verdict.Allowed {
		if s.metrics != nil {
			s.metrics.IncrementGateBlocked(string(verdict.Category))
		}
		blocked := verdict.Blocked()
		return nil, dErrors.Wrap(blocked, dErrors.CodeGateBlocked, blocked.Error())
	}

	now := requestcontext.Now(ctx)
	assignment, err := s.assignments.Execute(ctx, assignmentID,
		func(a *models.Assignment) error { return a.CanComplete() },
		func(a *models.Assignment) { a.ApplyComplete(now) },
	)
	if err != nil {
		return nil, wrapAssignmentErr(err)
	}

	s.emit(ctx, audit.ActionAssignmentCompleted, assignment.PersonID, "assignment", assignment.ID.String(),
		fmt.Sprintf("task_type=%s", assignment.TaskType))
	if s.metrics != nil {
		s.metrics.IncrementAssignmentsCompleted(string(assignment.TaskType))
	}

	if assignment.TaskType == models.TaskDataValidation {
		if err := s.triggerSecondaryVerification(ctx, assignment.PersonID); err != nil {
			return nil, err
		}
	}
	return assignment, nil
}

// ReopenAssignment returns a completed assignment to in_progress.
//
// Reopening data_collection is refused while anyone holds an active
// data_validation assignment for the same person: collection edits mid-flight
// would silently invalidate the validator's work.
func (s *Service) ReopenAssignment(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error) {
	existing, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, wrapAssignmentErr(err)
	}

	if existing.TaskType == models.TaskDataCollection {
		active, err := s.assignments.HasActiveForPerson(ctx, existing.PersonID, models.TaskDataValidation)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check validation assignments")
		}
		if active {
			return nil, dErrors.New(dErrors.CodePolicyViolation,
				"cannot reopen data collection while validation is in progress for this person")
		}
	}

	now := requestcontext.Now(ctx)
	assignment, err := s.assignments.Execute(ctx, assignmentID,
		func(a *models.Assignment) error { return a.CanReopen() },
		func(a *models.Assignment) { a.ApplyReopen(now) },
	)
	if err != nil {
		return nil, wrapAssignmentErr(err)
	}

	s.emit(ctx, audit.ActionAssignmentReopened, assignment.PersonID, "assignment", assignment.ID.String(), "")
	return assignment, nil
}

// DeleteAssignment removes an assignment outright. Account records stay: the
// research already done remains attached to the person.
func (s *Service) DeleteAssignment(ctx context.Context, assignmentID id.AssignmentID) error {
	existing, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return wrapAssignmentErr(err)
	}
	if err := s.assignments.Delete(ctx, assignmentID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "assignment not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete assignment")
	}

	s.emit(ctx, audit.ActionAssignmentDeleted, existing.PersonID, "assignment", existing.ID.String(), "")
	return nil
}

// ForceCompleteAssignment completes an assignment without consulting the gate.
// Admin escape hatch for records the gate cannot see (platform outages,
// deliberately abandoned research). The bypass is written to the audit trail.
func (s *Service) ForceCompleteAssignment(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error) {
	now := requestcontext.Now(ctx)
	assignment, err := s.assignments.Execute(ctx, assignmentID,
		func(a *models.Assignment) error { return a.CanComplete() },
		func(a *models.Assignment) { a.ApplyComplete(now) },
	)
	if err != nil {
		return nil, wrapAssignmentErr(err)
	}

	s.emit(ctx, audit.ActionAssignmentForceCompleted, assignment.PersonID, "assignment", assignment.ID.String(),
		"completion gate bypassed")
	if s.metrics != nil {
		s.metrics.IncrementAssignmentsCompleted(string(assignment.TaskType))
	}
	return assignment, nil
}

// MarkAssignmentIncomplete resets an assignment to pending. Unlike reopen it
// lands on pending, not in_progress, and skips the reopen policy guard; it is
// the admin correction for assignments completed by mistake.
func (s *Service) MarkAssignmentIncomplete(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error) {
	now := requestcontext.Now(ctx)
	assignment, err := s.assignments.Execute(ctx, assignmentID,
		func(a *models.Assignment) error {
			if !a.Completed() {
				return dErrors.New(dErrors.CodeConflict, "assignment is not completed")
			}
			return nil
		},
		func(a *models.Assignment) { a.ApplyMarkIncomplete(now) },
	)
	if err != nil {
		return nil, wrapAssignmentErr(err)
	}

	s.emit(ctx, audit.ActionAssignmentMarkIncomplete, assignment.PersonID, "assignment", assignment.ID.String(), "")
	return assignment, nil
}
