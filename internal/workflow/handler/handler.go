// Package handler wires the workflow service to HTTP.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"rollcall/internal/workflow/models"
	"rollcall/internal/workflow/service"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/httputil"
	"rollcall/pkg/requestcontext"
)

// Handler wires workflow endpoints to the workflow service.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

// New constructs a workflow handler.
func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts the researcher-facing endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/assignments", func(r chi.Router) {
		r.Post("/", h.HandleCreateAssignment)
		r.Post("/bulk", h.HandleBulkAssign)
		r.Get("/{assignmentID}", h.HandleGetAssignment)
		r.Post("/{assignmentID}/start", h.HandleStartAssignment)
		r.Post("/{assignmentID}/complete", h.HandleCompleteAssignment)
		r.Post("/{assignmentID}/reopen", h.HandleReopenAssignment)
	})

	r.Route("/queue", func(r chi.Router) {
		r.Get("/", h.HandleActiveQueue)
		r.Get("/next", h.HandleNextAssignment)
		r.Get("/completed", h.HandleCompletedQueue)
		r.Get("/stats", h.HandleStats)
	})

	r.Route("/people/{personID}", func(r chi.Router) {
		r.Get("/accounts", h.HandleListAccounts)
		r.Post("/accounts", h.HandleCreateAccount)
		r.Post("/accounts/prepopulate", h.HandlePrepopulate)
		r.Get("/gate", h.HandleGate)
		r.Get("/flagged-accounts", h.HandleFlaggedAccounts)
	})

	r.Route("/accounts/{accountID}", func(r chi.Router) {
		r.Get("/", h.HandleGetAccount)
		r.Post("/enter", h.HandleMarkEntered)
		r.Post("/not-found", h.HandleMarkNotFound)
		r.Post("/reset", h.HandleResetStatus)
		r.Post("/verify", h.HandleVerify)
		r.Post("/reject", h.HandleReject)
		r.Post("/revise", h.HandleRevise)
		r.Post("/unverify", h.HandleUnverify)
		r.Post("/toggle-researcher-verified", h.HandleToggleResearcherVerified)
		r.Put("/research-notes", h.HandleUpdateResearchNotes)
		r.Put("/inactive", h.HandleSetInactive)
	})
}

// RegisterAdmin mounts the admin escape hatches. Callers put these behind the
// admin-token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Delete("/assignments/{assignmentID}", h.HandleDeleteAssignment)
	r.Post("/assignments/{assignmentID}/force-complete", h.HandleForceComplete)
	r.Post("/assignments/{assignmentID}/mark-incomplete", h.HandleMarkIncomplete)
	r.Post("/people/{personID}/clear-secondary-verification", h.HandleClearSecondaryVerification)
	r.Get("/people/needing-secondary-verification", h.HandleListFlaggedPeople)
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	userID := requestcontext.UserID(r.Context())
	if userID.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}

func assignmentIDFrom(w http.ResponseWriter, r *http.Request) (id.AssignmentID, bool) {
	assignmentID, err := id.ParseAssignmentID(chi.URLParam(r, "assignmentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.AssignmentID{}, false
	}
	return assignmentID, true
}

func accountIDFrom(w http.ResponseWriter, r *http.Request) (id.AccountID, bool) {
	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.AccountID{}, false
	}
	return accountID, true
}

func personIDFrom(w http.ResponseWriter, r *http.Request) (id.PersonID, bool) {
	personID, err := id.ParsePersonID(chi.URLParam(r, "personID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.PersonID{}, false
	}
	return personID, true
}

func taskTypeFrom(w http.ResponseWriter, r *http.Request) (models.TaskType, bool) {
	taskType := models.TaskType(r.URL.Query().Get("task_type"))
	if !taskType.Valid() {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid task type", taskType))
		return "", false
	}
	return taskType, true
}

func (h *Handler) HandleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	if _, ok := h.requireUser(w, r); !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreateAssignmentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	personID, err := id.ParsePersonID(req.PersonID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	assignment, err := h.service.CreateAssignment(ctx, userID, personID, models.TaskType(req.TaskType), req.Notes)
	if err != nil {
		h.logger.ErrorContext(ctx, "create assignment failed",
			"request_id", requestID, "person_id", req.PersonID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromAssignment(assignment))
}

func (h *Handler) HandleBulkAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	if _, ok := h.requireUser(w, r); !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[BulkAssignRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	personIDs := make([]id.PersonID, 0, len(req.PersonIDs))
	for _, raw := range req.PersonIDs {
		personID, err := id.ParsePersonID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		personIDs = append(personIDs, personID)
	}

	result, err := h.service.BulkAssign(ctx, userID, personIDs, models.TaskType(req.TaskType), req.Notes)
	if err != nil {
		h.logger.ErrorContext(ctx, "bulk assign failed",
			"request_id", requestID, "assignee", req.UserID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BulkAssignResponse{Created: result.Created, Skipped: result.Skipped})
}

func (h *Handler) HandleGetAssignment(w http.ResponseWriter, r *http.Request) {
	assignmentID, ok := assignmentIDFrom(w, r)
	if !ok {
		return
	}
	assignment, err := h.service.GetAssignment(r.Context(), assignmentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAssignment(assignment))
}

func (h *Handler) HandleStartAssignment(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	assignmentID, ok := assignmentIDFrom(w, r)
	if !ok {
		return
	}
	assignment, err := h.service.StartAssignment(r.Context(), assignmentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAssignment(assignment))
}

func (h *Handler) HandleCompleteAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	assignmentID, ok := assignmentIDFrom(w, r)
	if !ok {
		return
	}

	assignment, err := h.service.CompleteAssignment(ctx, assignmentID)
	if err != nil {
		var blocked *models.GateBlockedError
		if errors.As(err, &blocked) {
			httputil.WriteJSON(w, http.StatusUnprocessableEntity, GateResponse{
				Category: string(blocked.Category),
				Count:    blocked.Count,
				Message:  blocked.Error(),
			})
			return
		}
		h.logger.ErrorContext(ctx, "complete assignment failed",
			"request_id", requestcontext.RequestID(ctx),
			"assignment_id", assignmentID.String(),
			"error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAssignment(assignment))
}

func (h *Handler) HandleReopenAssignment(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	assignmentID, ok := assignmentIDFrom(w, r)
	if !ok {
		return
	}
	assignment, err := h.service.ReopenAssignment(r.Context(), assignmentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAssignment(assignment))
}

func (h *Handler) HandleDeleteAssignment(w http.ResponseWriter, r *http.Request) {
	assignmentID, ok := assignmentIDFrom(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteAssignment(r.Context(), assignmentID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleForceComplete(w http.ResponseWriter, r *http.Request) {
	assignmentID, ok := assignmentIDFrom(w, r)
	if !ok {
		return
	}
	assignment, err := h.service.ForceCompleteAssignment(r.Context(), assignmentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAssignment(assignment))
}

func (h *Handler) HandleMarkIncomplete(w http.ResponseWriter, r *http.Request) {
	assignmentID, ok := assignmentIDFrom(w, r)
	if !ok {
		return
	}
	assignment, err := h.service.MarkAssignmentIncomplete(r.Context(), assignmentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAssignment(assignment))
}

func (h *Handler) HandleActiveQueue(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	taskType, ok := taskTypeFrom(w, r)
	if !ok {
		return
	}
	var statuses []models.AssignmentStatus
	for _, raw := range r.URL.Query()["status"] {
		statuses = append(statuses, models.AssignmentStatus(raw))
	}
	assignments, err := h.service.ActiveQueue(r.Context(), userID, taskType, statuses...)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAssignments(assignments))
}

func (h *Handler) HandleNextAssignment(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	taskType, ok := taskTypeFrom(w, r)
	if !ok {
		return
	}
	assignment, err := h.service.NextAssignment(r.Context(), userID, taskType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAssignment(assignment))
}

func (h *Handler) HandleCompletedQueue(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	taskType, ok := taskTypeFrom(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}
	assignments, err := h.service.CompletedQueue(r.Context(), userID, taskType, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAssignments(assignments))
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	taskType, ok := taskTypeFrom(w, r)
	if !ok {
		return
	}
	stats, err := h.service.Stats(r.Context(), userID, taskType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromStats(stats))
}

func (h *Handler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	personID, ok := personIDFrom(w, r)
	if !ok {
		return
	}

	filter := models.AccountFilter{}
	query := r.URL.Query()
	if channel := query.Get("channel_type"); channel != "" {
		filter.ChannelType = models.ChannelType(channel)
	}
	if query.Get("core_only") == "true" {
		filter.CoreOnly = true
	}

	accounts, err := h.service.ListAccounts(r.Context(), personID, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccounts(accounts))
}

func (h *Handler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	personID, ok := personIDFrom(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateAccountRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	account, err := h.service.CreateAccount(ctx, personID,
		models.Platform(req.Platform), models.ChannelType(req.ChannelType), req.URL, req.Handle)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromAccount(account))
}

func (h *Handler) HandlePrepopulate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	personID, ok := personIDFrom(w, r)
	if !ok {
		return
	}
	created, err := h.service.PrepopulateAccounts(r.Context(), personID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PrepopulateResponse{Created: created})
}

func (h *Handler) HandleGate(w http.ResponseWriter, r *http.Request) {
	personID, ok := personIDFrom(w, r)
	if !ok {
		return
	}
	taskType, ok := taskTypeFrom(w, r)
	if !ok {
		return
	}
	verdict, err := h.service.EvaluateGate(r.Context(), personID, taskType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVerdict(verdict))
}

func (h *Handler) HandleFlaggedAccounts(w http.ResponseWriter, r *http.Request) {
	personID, ok := personIDFrom(w, r)
	if !ok {
		return
	}
	accounts, err := h.service.ListFlaggedAccounts(r.Context(), personID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccounts(accounts))
}

func (h *Handler) HandleClearSecondaryVerification(w http.ResponseWriter, r *http.Request) {
	personID, ok := personIDFrom(w, r)
	if !ok {
		return
	}
	person, err := h.service.ClearSecondaryVerification(r.Context(), personID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPerson(person))
}

func (h *Handler) HandleListFlaggedPeople(w http.ResponseWriter, r *http.Request) {
	people, err := h.service.ListPeopleNeedingSecondaryVerification(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPeople(people))
}

func (h *Handler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDFrom(w, r)
	if !ok {
		return
	}
	account, err := h.service.GetAccount(r.Context(), accountID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccount(account))
}

func (h *Handler) HandleMarkEntered(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	accountID, ok := accountIDFrom(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[EnterAccountRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	account, err := h.service.MarkEntered(ctx, accountID, req.URL, req.Handle)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccount(account))
}

func (h *Handler) HandleMarkNotFound(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	accountID, ok := accountIDFrom(w, r)
	if !ok {
		return
	}
	account, err := h.service.MarkNotFound(r.Context(), accountID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccount(account))
}

func (h *Handler) HandleResetStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	accountID, ok := accountIDFrom(w, r)
	if !ok {
		return
	}
	account, err := h.service.ResetStatus(r.Context(), accountID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccount(account))
}

func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	accountID, ok := accountIDFrom(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[VerifyAccountRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	account, err := h.service.VerifyAccount(ctx, accountID, req.Notes, req.Source)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccount(account))
}

func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	accountID, ok := accountIDFrom(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RejectAccountRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	account, err := h.service.RejectAccount(ctx, accountID, req.Notes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccount(account))
}

func (h *Handler) HandleRevise(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	accountID, ok := accountIDFrom(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReviseAccountRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	account, err := h.service.ReviseAccount(ctx, accountID, req.URL, req.Handle, req.Notes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccount(account))
}

func (h *Handler) HandleUnverify(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	accountID, ok := accountIDFrom(w, r)
	if !ok {
		return
	}
	account, err := h.service.UnverifyAccount(r.Context(), accountID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccount(account))
}

func (h *Handler) HandleToggleResearcherVerified(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	accountID, ok := accountIDFrom(w, r)
	if !ok {
		return
	}
	account, err := h.service.ToggleResearcherVerified(r.Context(), accountID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccount(account))
}

func (h *Handler) HandleUpdateResearchNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	accountID, ok := accountIDFrom(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[NotesRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	account, err := h.service.UpdateResearchNotes(ctx, accountID, req.Notes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccount(account))
}

func (h *Handler) HandleSetInactive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	accountID, ok := accountIDFrom(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[InactiveRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	account, err := h.service.SetAccountInactive(ctx, accountID, req.Inactive)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccount(account))
}
