package handler

import (
	"time"

	"rollcall/internal/workflow/models"
	"rollcall/internal/workflow/service"
)

// AssignmentResponse is the wire shape of one assignment.
type AssignmentResponse struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	AssignedByID string     `json:"assigned_by_id"`
	PersonID     string     `json:"person_id"`
	TaskType     string     `json:"task_type"`
	Status       string     `json:"status"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func FromAssignment(a *models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:           a.ID.String(),
		UserID:       a.UserID.String(),
		AssignedByID: a.AssignedByID.String(),
		PersonID:     a.PersonID.String(),
		TaskType:     string(a.TaskType),
		Status:       string(a.Status),
		CompletedAt:  a.CompletedAt,
		Notes:        a.Notes,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func FromAssignments(assignments []*models.Assignment) []AssignmentResponse {
	result := make([]AssignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		result = append(result, FromAssignment(a))
	}
	return result
}

// AccountResponse is the wire shape of one account research record.
type AccountResponse struct {
	ID          string `json:"id"`
	PersonID    string `json:"person_id"`
	Platform    string `json:"platform"`
	ChannelType string `json:"channel_type,omitempty"`

	URL    string `json:"url,omitempty"`
	Handle string `json:"handle,omitempty"`

	ResearchStatus     string `json:"research_status"`
	Verified           bool   `json:"verified"`
	ResearcherVerified bool   `json:"researcher_verified"`
	PrePopulated       bool   `json:"pre_populated"`
	AccountInactive    bool   `json:"account_inactive"`

	ModifiedDuringValidation   bool `json:"modified_during_validation"`
	NeedsSecondaryVerification bool `json:"needs_secondary_verification"`

	EnteredByID  *string    `json:"entered_by_id,omitempty"`
	EnteredAt    *time.Time `json:"entered_at,omitempty"`
	VerifiedByID *string    `json:"verified_by_id,omitempty"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty"`

	ResearchNotes     string `json:"research_notes,omitempty"`
	VerificationNotes string `json:"verification_notes,omitempty"`
	ValidationSource  string `json:"validation_source,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func FromAccount(a *models.SocialMediaAccount) AccountResponse {
	resp := AccountResponse{
		ID:                         a.ID.String(),
		PersonID:                   a.PersonID.String(),
		Platform:                   string(a.Platform),
		ChannelType:                string(a.ChannelType),
		URL:                        a.URL,
		Handle:                     a.Handle,
		ResearchStatus:             string(a.ResearchStatus),
		Verified:                   a.Verified,
		ResearcherVerified:         a.ResearcherVerified,
		PrePopulated:               a.PrePopulated,
		AccountInactive:            a.AccountInactive,
		ModifiedDuringValidation:   a.ModifiedDuringValidation,
		NeedsSecondaryVerification: a.NeedsSecondaryVerification,
		EnteredAt:                  a.EnteredAt,
		VerifiedAt:                 a.VerifiedAt,
		ResearchNotes:              a.ResearchNotes,
		VerificationNotes:          a.VerificationNotes,
		ValidationSource:           a.ValidationSource,
		CreatedAt:                  a.CreatedAt,
		UpdatedAt:                  a.UpdatedAt,
	}
	if a.EnteredByID != nil {
		s := a.EnteredByID.String()
		resp.EnteredByID = &s
	}
	if a.VerifiedByID != nil {
		s := a.VerifiedByID.String()
		resp.VerifiedByID = &s
	}
	return resp
}

func FromAccounts(accounts []*models.SocialMediaAccount) []AccountResponse {
	result := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		result = append(result, FromAccount(a))
	}
	return result
}

// GateResponse reports the gate verdict for a person and task type.
type GateResponse struct {
	Allowed  bool   `json:"allowed"`
	Category string `json:"category,omitempty"`
	Count    int    `json:"count,omitempty"`
	Message  string `json:"message,omitempty"`
}

func FromVerdict(v models.GateVerdict) GateResponse {
	resp := GateResponse{Allowed: v.Allowed}
	if !v.Allowed {
		blocked := v.Blocked()
		resp.Category = string(v.Category)
		resp.Count = v.Count
		resp.Message = blocked.Error()
	}
	return resp
}

// BulkAssignResponse reports bulk fan-out counts.
type BulkAssignResponse struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// StatsResponse summarizes a researcher's queue.
type StatsResponse struct {
	Pending        int `json:"pending"`
	InProgress     int `json:"in_progress"`
	CompletedTotal int `json:"completed_total"`
}

func FromStats(s service.QueueStats) StatsResponse {
	return StatsResponse{
		Pending:        s.Pending,
		InProgress:     s.InProgress,
		CompletedTotal: s.CompletedTotal,
	}
}

// PersonResponse is the wire shape of a person in workflow scope.
type PersonResponse struct {
	ID                         string    `json:"id"`
	FirstName                  string    `json:"first_name"`
	LastName                   string    `json:"last_name"`
	NeedsSecondaryVerification bool      `json:"needs_secondary_verification"`
	CreatedAt                  time.Time `json:"created_at"`
	UpdatedAt                  time.Time `json:"updated_at"`
}

func FromPerson(p *models.Person) PersonResponse {
	return PersonResponse{
		ID:                         p.ID.String(),
		FirstName:                  p.FirstName,
		LastName:                   p.LastName,
		NeedsSecondaryVerification: p.NeedsSecondaryVerification,
		CreatedAt:                  p.CreatedAt,
		UpdatedAt:                  p.UpdatedAt,
	}
}

func FromPeople(people []*models.Person) []PersonResponse {
	result := make([]PersonResponse, 0, len(people))
	for _, p := range people {
		result = append(result, FromPerson(p))
	}
	return result
}

// PrepopulateResponse reports how many records pre-population created.
type PrepopulateResponse struct {
	Created int `json:"created"`
}
