package workflow

import (
	"log/slog"

	"rollcall/internal/workflow/handler"
	"rollcall/internal/workflow/service"
)

// Service exposes assignment, account research, and verification
// orchestration.
type Service = service.Service

// Handler wires HTTP endpoints to the workflow service.
type Handler = handler.Handler

// NewService constructs the workflow service with required dependencies.
func NewService(assignments service.AssignmentStore, accounts service.AccountStore, people service.PersonStore, opts ...service.Option) *Service {
	return service.New(assignments, accounts, people, opts...)
}

// NewHandler constructs an HTTP handler for workflow routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
