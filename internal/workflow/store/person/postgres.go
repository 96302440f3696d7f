package person

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"rollcall/internal/workflow/models"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/sentinel"
	txcontext "rollcall/pkg/platform/tx"
)

// Postgres persists person records.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const personColumns = `id, first_name, last_name, needs_secondary_verification, created_at, updated_at`

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

func (s *Postgres) Create(ctx context.Context, p *models.Person) error {
	const query = `
		INSERT INTO people (` + personColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(p.ID), p.FirstName, p.LastName, p.NeedsSecondaryVerification, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create person: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, personID id.PersonID) (*models.Person, error) {
	const query = `SELECT ` + personColumns + ` FROM people WHERE id = $1`
	p, err := scanPerson(s.querier(ctx).QueryRowContext(ctx, query, uuid.UUID(personID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find person: %w", err)
	}
	return p, nil
}

// Execute loads the row FOR UPDATE, validates, mutates, and writes back
// inside one transaction (joining any transaction already in the context).
func (s *Postgres) Execute(ctx context.Context, personID id.PersonID, validate func(*models.Person) error, mutate func(*models.Person)) (*models.Person, error) {
	run := func(ctx context.Context, q dbQuerier) (*models.Person, error) {
		const query = `SELECT ` + personColumns + ` FROM people WHERE id = $1 FOR UPDATE`
		p, err := scanPerson(q.QueryRowContext(ctx, query, uuid.UUID(personID)))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("find person: %w", err)
		}
		if err := validate(p); err != nil {
			return nil, err
		}
		mutate(p)

		const update = `
			UPDATE people
			SET first_name = $2, last_name = $3, needs_secondary_verification = $4, updated_at = $5
			WHERE id = $1
		`
		if _, err := q.ExecContext(ctx, update,
			uuid.UUID(p.ID), p.FirstName, p.LastName, p.NeedsSecondaryVerification, p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("update person: %w", err)
		}
		return p, nil
	}

	if tx, ok := txcontext.From(ctx); ok {
		return run(ctx, tx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	p, err := run(ctx, tx)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return p, nil
}

// ListNeedingSecondaryVerification returns people flagged for the extra
// review pass, backing the admin escalation queue.
func (s *Postgres) ListNeedingSecondaryVerification(ctx context.Context) ([]*models.Person, error) {
	const query = `
		SELECT ` + personColumns + `
		FROM people
		WHERE needs_secondary_verification = TRUE
		ORDER BY last_name ASC, first_name ASC
	`
	rows, err := s.querier(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()

	var result []*models.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(scanner rowScanner) (*models.Person, error) {
	var (
		p        models.Person
		personID uuid.UUID
	)
	err := scanner.Scan(&personID, &p.FirstName, &p.LastName,
		&p.NeedsSecondaryVerification, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.ID = id.PersonID(personID)
	return &p, nil
}
