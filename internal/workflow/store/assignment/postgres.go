package assignment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"rollcall/internal/workflow/models"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/sentinel"
	txcontext "rollcall/pkg/platform/tx"
)

// Postgres persists assignments. The unique index on
// (user_id, person_id, task_type) is the authoritative enforcement of the
// one-assignment-per-triple invariant; concurrent creates race down to the
// index and the loser gets sentinel.ErrAlreadyUsed.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const assignmentColumns = `id, user_id, assigned_by_id, person_id, task_type, status, completed_at, notes, created_at, updated_at`

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Create(ctx context.Context, a *models.Assignment) error {
	const query = `
		INSERT INTO assignments (` + assignmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(a.ID), uuid.UUID(a.UserID), uuid.UUID(a.AssignedByID), uuid.UUID(a.PersonID),
		string(a.TaskType), string(a.Status), nullTime(a.CompletedAt), a.Notes, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error) {
	const query = `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	row := s.querier(ctx).QueryRowContext(ctx, query, uuid.UUID(assignmentID))
	return scanAssignment(row)
}

// Execute loads the row FOR UPDATE, validates, mutates, and writes back, all
// inside one transaction. When the context already carries a transaction the
// row lock joins it; otherwise Execute opens its own.
func (s *Postgres) Execute(ctx context.Context, assignmentID id.AssignmentID, validate func(*models.Assignment) error, mutate func(*models.Assignment)) (*models.Assignment, error) {
	run := func(ctx context.Context, q dbQuerier) (*models.Assignment, error) {
		const query = `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1 FOR UPDATE`
		a, err := scanAssignment(q.QueryRowContext(ctx, query, uuid.UUID(assignmentID)))
		if err != nil {
			return nil, err
		}
		if err := validate(a); err != nil {
			return nil, err
		}
		mutate(a)

		const update = `
			UPDATE assignments
			SET status = $2, completed_at = $3, notes = $4, updated_at = $5
			WHERE id = $1
		`
		if _, err := q.ExecContext(ctx, update,
			uuid.UUID(a.ID), string(a.Status), nullTime(a.CompletedAt), a.Notes, a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("update assignment: %w", err)
		}
		return a, nil
	}

	if tx, ok := txcontext.From(ctx); ok {
		return run(ctx, tx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	a, err := run(ctx, tx)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

func (s *Postgres) Delete(ctx context.Context, assignmentID id.AssignmentID) error {
	res, err := s.querier(ctx).ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, uuid.UUID(assignmentID))
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ActiveForUser(ctx context.Context, userID id.UserID, taskType models.TaskType, statuses ...models.AssignmentStatus) ([]*models.Assignment, error) {
	wanted := []string{string(models.AssignmentPending), string(models.AssignmentInProgress)}
	if len(statuses) > 0 {
		wanted = wanted[:0]
		for _, status := range statuses {
			wanted = append(wanted, string(status))
		}
	}

	const query = `
		SELECT ` + assignmentColumns + `
		FROM assignments
		WHERE user_id = $1 AND task_type = $2 AND status <> 'completed' AND status = ANY($3)
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.querier(ctx).QueryContext(ctx, query, uuid.UUID(userID), string(taskType), pq.Array(wanted))
	if err != nil {
		return nil, fmt.Errorf("list active assignments: %w", err)
	}
	return scanAssignments(rows)
}

func (s *Postgres) CompletedForUser(ctx context.Context, userID id.UserID, taskType models.TaskType, limit int) ([]*models.Assignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM assignments
		WHERE user_id = $1 AND task_type = $2 AND status = 'completed'
		ORDER BY completed_at DESC
	`
	args := []any{uuid.UUID(userID), string(taskType)}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	rows, err := s.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list completed assignments: %w", err)
	}
	return scanAssignments(rows)
}

func (s *Postgres) CountByStatus(ctx context.Context, userID id.UserID, taskType models.TaskType, status models.AssignmentStatus) (int, error) {
	const query = `
		SELECT COUNT(*) FROM assignments
		WHERE user_id = $1 AND task_type = $2 AND status = $3
	`
	var count int
	err := s.querier(ctx).QueryRowContext(ctx, query, uuid.UUID(userID), string(taskType), string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return count, nil
}

func (s *Postgres) HasActiveForPerson(ctx context.Context, personID id.PersonID, taskType models.TaskType) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM assignments
			WHERE person_id = $1 AND task_type = $2 AND status <> 'completed'
		)
	`
	var exists bool
	err := s.querier(ctx).QueryRowContext(ctx, query, uuid.UUID(personID), string(taskType)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active assignment: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssignmentFrom(scanner rowScanner) (*models.Assignment, error) {
	var (
		a            models.Assignment
		aID          uuid.UUID
		userID       uuid.UUID
		assignedByID uuid.UUID
		personID     uuid.UUID
		taskType     string
		status       string
		completedAt  sql.NullTime
	)
	err := scanner.Scan(&aID, &userID, &assignedByID, &personID, &taskType, &status,
		&completedAt, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.ID = id.AssignmentID(aID)
	a.UserID = id.UserID(userID)
	a.AssignedByID = id.UserID(assignedByID)
	a.PersonID = id.PersonID(personID)
	a.TaskType = models.TaskType(taskType)
	a.Status = models.AssignmentStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		a.CompletedAt = &t
	}
	return &a, nil
}

func scanAssignment(row *sql.Row) (*models.Assignment, error) {
	a, err := scanAssignmentFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan assignment: %w", err)
	}
	return a, nil
}

func scanAssignments(rows *sql.Rows) ([]*models.Assignment, error) {
	defer rows.Close()
	var result []*models.Assignment
	for rows.Next() {
		a, err := scanAssignmentFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
