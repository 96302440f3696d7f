// Package service orchestrates the research workflow: assignment lifecycle,
// account research transitions, the completion gate, and the secondary
// verification trigger.
package service

import (
	"context"
	"errors"
	"log/slog"

	"rollcall/internal/audit"
	workflowmetrics "rollcall/internal/workflow/metrics"
	"rollcall/internal/workflow/models"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/requestcontext"
)

type AssignmentStore interface {
	Create(ctx context.Context, a *models.Assignment) error
	FindByID(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error)
	Execute(ctx context.Context, assignmentID id.AssignmentID, validate func(*models.Assignment) error, mutate func(*models.Assignment)) (*models.Assignment, error)
	Delete(ctx context.Context, assignmentID id.AssignmentID) error
	ActiveForUser(ctx context.Context, userID id.UserID, taskType models.TaskType, statuses ...models.AssignmentStatus) ([]*models.Assignment, error)
	CompletedForUser(ctx context.Context, userID id.UserID, taskType models.TaskType, limit int) ([]*models.Assignment, error)
	CountByStatus(ctx context.Context, userID id.UserID, taskType models.TaskType, status models.AssignmentStatus) (int, error)
	HasActiveForPerson(ctx context.Context, personID id.PersonID, taskType models.TaskType) (bool, error)
}

type AccountStore interface {
	Create(ctx context.Context, a *models.SocialMediaAccount) error
	FindByID(ctx context.Context, accountID id.AccountID) (*models.SocialMediaAccount, error)
	Execute(ctx context.Context, accountID id.AccountID, validate func(*models.SocialMediaAccount) error, mutate func(*models.SocialMediaAccount)) (*models.SocialMediaAccount, error)
	ListByPerson(ctx context.Context, personID id.PersonID, filter models.AccountFilter) ([]*models.SocialMediaAccount, error)
	ClearSecondaryFlags(ctx context.Context, personID id.PersonID) error
}

type PersonStore interface {
	FindByID(ctx context.Context, personID id.PersonID) (*models.Person, error)
	Execute(ctx context.Context, personID id.PersonID, validate func(*models.Person) error, mutate func(*models.Person)) (*models.Person, error)
	ListNeedingSecondaryVerification(ctx context.Context) ([]*models.Person, error)
}

//go:generate mockgen -destination=mocks/mocks.go -package=mocks rollcall/internal/workflow/service AuditPublisher
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// StoreTx provides a transactional boundary spanning multiple stores.
// The SQL implementation opens a database transaction and threads it through
// the context; the in-memory default just runs the function.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type inMemoryStoreTx struct{}

func newInMemoryStoreTx() StoreTx { return inMemoryStoreTx{} }

func (inMemoryStoreTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "transaction aborted: context cancelled")
	}
	return fn(ctx)
}

// Service orchestrates assignments, account research, and verification.
type Service struct {
	assignments AssignmentStore
	accounts    AccountStore
	people      PersonStore

	logger    *slog.Logger
	publisher AuditPublisher
	metrics   *workflowmetrics.Metrics
	tx        StoreTx
}

type serviceConfig struct {
	logger    *slog.Logger
	publisher AuditPublisher
	metrics   *workflowmetrics.Metrics
	tx        StoreTx
}

type Option func(cfg *serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *serviceConfig) { cfg.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(cfg *serviceConfig) { cfg.publisher = publisher }
}

func WithMetrics(m *workflowmetrics.Metrics) Option {
	return func(cfg *serviceConfig) { cfg.metrics = m }
}

func WithTx(tx StoreTx) Option {
	return func(cfg *serviceConfig) { cfg.tx = tx }
}

// New constructs a Service.
func New(assignments AssignmentStore, accounts AccountStore, people PersonStore, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.tx == nil {
		cfg.tx = newInMemoryStoreTx()
	}
	return &Service{
		assignments: assignments,
		accounts:    accounts,
		people:      people,
		logger:      cfg.logger,
		publisher:   cfg.publisher,
		metrics:     cfg.metrics,
		tx:          cfg.tx,
	}
}

// emit logs and publishes one audit event. Publish failures are logged, not
// propagated: the transition already happened and must not be rolled back by
// a sink outage.
func (s *Service) emit(ctx context.Context, action audit.Action, personID id.PersonID, subjectType, subjectID, detail string) {
	event := audit.Event{
		Timestamp:   requestcontext.Now(ctx),
		Action:      action,
		ActorID:     requestcontext.UserID(ctx),
		PersonID:    personID,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Detail:      detail,
		RequestID:   requestcontext.RequestID(ctx),
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(action),
			"log_type", "audit",
			"person_id", personID.String(),
			"subject_type", subjectType,
			"subject_id", subjectID,
			"detail", detail,
			"request_id", event.RequestID,
		)
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "audit publish failed", "action", string(action), "error", err)
	}
}

// wrapAssignmentErr translates store sentinels into coded domain errors.
func wrapAssignmentErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "assignment not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "assignment already exists for this user, person, and task type")
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "assignment store failure")
	}
}

func wrapAccountErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "account not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "account already exists")
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "account store failure")
	}
}

func wrapPersonErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "person not found")
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "person store failure")
	}
}
