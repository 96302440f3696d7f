// Package postgres provides the database handle, schema bootstrap, and the
// SQL-backed transaction boundary.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	dErrors "rollcall/pkg/domain-errors"
	txcontext "rollcall/pkg/platform/tx"
)

// Open connects and verifies the database is reachable.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the workflow tables and indexes if they do not exist.
// Partial unique indexes carry the invariants the stores rely on: one
// assignment per (user, person, task_type), one pre-populated record per
// (person, platform, channel), handle uniqueness within the same tuple.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS people (
	id UUID PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	needs_secondary_verification BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS assignments (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	assigned_by_id UUID NOT NULL,
	person_id UUID NOT NULL REFERENCES people (id),
	task_type TEXT NOT NULL,
	status TEXT NOT NULL,
	completed_at TIMESTAMPTZ,
	notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT assignments_unique_work UNIQUE (user_id, person_id, task_type)
);

CREATE INDEX IF NOT EXISTS assignments_queue_idx
	ON assignments (user_id, task_type, status, created_at);
CREATE INDEX IF NOT EXISTS assignments_person_idx
	ON assignments (person_id, task_type, status);

CREATE TABLE IF NOT EXISTS social_media_accounts (
	id UUID PRIMARY KEY,
	person_id UUID NOT NULL REFERENCES people (id),
	platform TEXT NOT NULL,
	channel_type TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	handle TEXT NOT NULL DEFAULT '',
	research_status TEXT NOT NULL,
	verified BOOLEAN NOT NULL DEFAULT FALSE,
	researcher_verified BOOLEAN NOT NULL DEFAULT FALSE,
	pre_populated BOOLEAN NOT NULL DEFAULT FALSE,
	account_inactive BOOLEAN NOT NULL DEFAULT FALSE,
	modified_during_validation BOOLEAN NOT NULL DEFAULT FALSE,
	needs_secondary_verification BOOLEAN NOT NULL DEFAULT FALSE,
	entered_by_id UUID,
	entered_at TIMESTAMPTZ,
	verified_by_id UUID,
	verified_at TIMESTAMPTZ,
	research_notes TEXT NOT NULL DEFAULT '',
	verification_notes TEXT NOT NULL DEFAULT '',
	validation_source TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS accounts_prepopulated_slot_idx
	ON social_media_accounts (person_id, platform, channel_type)
	WHERE pre_populated;
CREATE UNIQUE INDEX IF NOT EXISTS accounts_handle_idx
	ON social_media_accounts (person_id, platform, channel_type, lower(handle))
	WHERE handle <> '';
CREATE INDEX IF NOT EXISTS accounts_person_idx
	ON social_media_accounts (person_id, channel_type, platform);

CREATE TABLE IF NOT EXISTS audit_events (
	id BIGSERIAL PRIMARY KEY,
	occurred_at TIMESTAMPTZ NOT NULL,
	action TEXT NOT NULL,
	actor_id UUID NOT NULL,
	person_id UUID NOT NULL,
	subject_type TEXT NOT NULL,
	subject_id TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	request_id TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS audit_events_person_idx
	ON audit_events (person_id, occurred_at);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// defaultTxTimeout bounds a workflow transaction.
const defaultTxTimeout = 5 * time.Second

// StoreTx runs a function inside one database transaction, threading the
// transaction through the context so every store call inside joins it.
type StoreTx struct {
	db      *sql.DB
	timeout time.Duration
}

func NewStoreTx(db *sql.DB) *StoreTx {
	return &StoreTx{db: db}
}

func (t *StoreTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit transaction")
	}
	return nil
}
