package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"rollcall/internal/workflow/models"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/sentinel"
	txcontext "rollcall/pkg/platform/tx"
)

// Postgres persists account records. Handle uniqueness within
// (person, platform, channel_type) and the single pre-populated slot per
// tuple are both enforced by partial unique indexes.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const accountColumns = `id, person_id, platform, channel_type, url, handle,
	research_status, verified, researcher_verified, pre_populated, account_inactive,
	modified_during_validation, needs_secondary_verification,
	entered_by_id, entered_at, verified_by_id, verified_at,
	research_notes, verification_notes, validation_source, created_at, updated_at`

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

func (s *Postgres) Create(ctx context.Context, a *models.SocialMediaAccount) error {
	const query = `
		INSERT INTO social_media_accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(a.ID), uuid.UUID(a.PersonID), string(a.Platform), string(a.ChannelType),
		a.URL, a.Handle,
		string(a.ResearchStatus), a.Verified, a.ResearcherVerified, a.PrePopulated, a.AccountInactive,
		a.ModifiedDuringValidation, a.NeedsSecondaryVerification,
		nullUUID(a.EnteredByID), nullTime(a.EnteredAt), nullUUID(a.VerifiedByID), nullTime(a.VerifiedAt),
		a.ResearchNotes, a.VerificationNotes, a.ValidationSource, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, accountID id.AccountID) (*models.SocialMediaAccount, error) {
	const query = `SELECT ` + accountColumns + ` FROM social_media_accounts WHERE id = $1`
	a, err := scanAccountFrom(s.querier(ctx).QueryRowContext(ctx, query, uuid.UUID(accountID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return a, nil
}

// Execute loads the row FOR UPDATE, validates, mutates, and writes back
// inside one transaction (joining any transaction already in the context).
func (s *Postgres) Execute(ctx context.Context, accountID id.AccountID, validate func(*models.SocialMediaAccount) error, mutate func(*models.SocialMediaAccount)) (*models.SocialMediaAccount, error) {
	run := func(ctx context.Context, q dbQuerier) (*models.SocialMediaAccount, error) {
		const query = `SELECT ` + accountColumns + ` FROM social_media_accounts WHERE id = $1 FOR UPDATE`
		a, err := scanAccountFrom(q.QueryRowContext(ctx, query, uuid.UUID(accountID)))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("find account: %w", err)
		}
		if err := validate(a); err != nil {
			return nil, err
		}
		mutate(a)

		const update = `
			UPDATE social_media_accounts
			SET url = $2, handle = $3, research_status = $4, verified = $5,
				researcher_verified = $6, account_inactive = $7,
				modified_during_validation = $8, needs_secondary_verification = $9,
				entered_by_id = $10, entered_at = $11, verified_by_id = $12, verified_at = $13,
				research_notes = $14, verification_notes = $15, validation_source = $16,
				updated_at = $17
			WHERE id = $1
		`
		if _, err := q.ExecContext(ctx, update,
			uuid.UUID(a.ID), a.URL, a.Handle, string(a.ResearchStatus), a.Verified,
			a.ResearcherVerified, a.AccountInactive,
			a.ModifiedDuringValidation, a.NeedsSecondaryVerification,
			nullUUID(a.EnteredByID), nullTime(a.EnteredAt), nullUUID(a.VerifiedByID), nullTime(a.VerifiedAt),
			a.ResearchNotes, a.VerificationNotes, a.ValidationSource, a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("update account: %w", err)
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

func (s *Postgres) ListByPerson(ctx context.Context, personID id.PersonID, filter models.AccountFilter) ([]*models.SocialMediaAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM social_media_accounts WHERE person_id = $1`
	args := []any{uuid.UUID(personID)}

	if filter.ChannelType != "" {
		args = append(args, string(filter.ChannelType))
		query += fmt.Sprintf(" AND channel_type = $%d", len(args))
	}
	if filter.CoreOnly {
		core := make([]string, 0, 6)
		for _, platform := range models.CorePlatforms() {
			core = append(core, string(platform))
		}
		args = append(args, pq.Array(core))
		query += fmt.Sprintf(" AND platform = ANY($%d)", len(args))
	}
	if filter.ModifiedDuringValidation != nil {
		args = append(args, *filter.ModifiedDuringValidation)
		query += fmt.Sprintf(" AND modified_during_validation = $%d", len(args))
	}
	if filter.NeedsSecondaryVerification != nil {
		args = append(args, *filter.NeedsSecondaryVerification)
		query += fmt.Sprintf(" AND needs_secondary_verification = $%d", len(args))
	}
	query += " ORDER BY platform ASC, id ASC"

	rows, err := s.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var result []*models.SocialMediaAccount
	for rows.Next() {
		a, err := scanAccountFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// ClearSecondaryFlags drops both escalation flags for every account of the
// person in one statement.
func (s *Postgres) ClearSecondaryFlags(ctx context.Context, personID id.PersonID) error {
	const query = `
		UPDATE social_media_accounts
		SET needs_secondary_verification = FALSE, modified_during_validation = FALSE
		WHERE person_id = $1
	`
	if _, err := s.querier(ctx).ExecContext(ctx, query, uuid.UUID(personID)); err != nil {
		return fmt.Errorf("clear secondary flags: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccountFrom(scanner rowScanner) (*models.SocialMediaAccount, error) {
	var (
		a            models.SocialMediaAccount
		accountID    uuid.UUID
		personID     uuid.UUID
		platform     string
		channelType  string
		status       string
		enteredByID  uuid.NullUUID
		enteredAt    sql.NullTime
		verifiedByID uuid.NullUUID
		verifiedAt   sql.NullTime
	)
	err := scanner.Scan(&accountID, &personID, &platform, &channelType, &a.URL, &a.Handle,
		&status, &a.Verified, &a.ResearcherVerified, &a.PrePopulated, &a.AccountInactive,
		&a.ModifiedDuringValidation, &a.NeedsSecondaryVerification,
		&enteredByID, &enteredAt, &verifiedByID, &verifiedAt,
		&a.ResearchNotes, &a.VerificationNotes, &a.ValidationSource, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.ID = id.AccountID(accountID)
	a.PersonID = id.PersonID(personID)
	a.Platform = models.Platform(platform)
	a.ChannelType = models.ChannelType(strings.TrimSpace(channelType))
	a.ResearchStatus = models.ResearchStatus(status)
	if enteredByID.Valid {
		entered := id.UserID(enteredByID.UUID)
		a.EnteredByID = &entered
	}
	if enteredAt.Valid {
		t := enteredAt.Time
		a.EnteredAt = &t
	}
	if verifiedByID.Valid {
		verified := id.UserID(verifiedByID.UUID)
		a.VerifiedByID = &verified
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		a.VerifiedAt = &t
	}
	return &a, nil
}

func nullUUID(userID *id.UserID) uuid.NullUUID {
	if userID == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*userID), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
