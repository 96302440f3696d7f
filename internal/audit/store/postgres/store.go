package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"rollcall/internal/audit"
	id "rollcall/pkg/domain"
	txcontext "rollcall/pkg/platform/tx"
)

// Store persists the audit trail in PostgreSQL. Events appended inside a
// service transaction join it via the tx carried in context, so a rolled-back
// transition leaves no trail entry.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	const query = `
		INSERT INTO audit_events
			(occurred_at, action, actor_id, person_id, subject_type, subject_id, detail, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		event.Timestamp,
		string(event.Action),
		uuid.UUID(event.ActorID),
		uuid.UUID(event.PersonID),
		event.SubjectType,
		event.SubjectID,
		event.Detail,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListByPerson returns the trail for one person, oldest first.
func (s *Store) ListByPerson(ctx context.Context, personID id.PersonID) ([]audit.Event, error) {
	const query = `
		SELECT occurred_at, action, actor_id, person_id, subject_type, subject_id, detail, request_id
		FROM audit_events
		WHERE person_id = $1
		ORDER BY occurred_at ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(personID))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			event   audit.Event
			action  string
			actorID uuid.UUID
			pid     uuid.UUID
		)
		if err := rows.Scan(&event.Timestamp, &action, &actorID, &pid,
			&event.SubjectType, &event.SubjectID, &event.Detail, &event.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Action = audit.Action(action)
		event.ActorID = id.UserID(actorID)
		event.PersonID = id.PersonID(pid)
		events = append(events, event)
	}
	return events, rows.Err()
}
