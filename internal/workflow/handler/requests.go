package handler

import (
	"errors"
	"strings"
)

// CreateAssignmentRequest is the POST /assignments body.
type CreateAssignmentRequest struct {
	UserID   string `json:"user_id"`
	PersonID string `json:"person_id"`
	TaskType string `json:"task_type"`
	Notes    string `json:"notes"`
}

func (r *CreateAssignmentRequest) Normalize() {
	r.UserID = strings.TrimSpace(r.UserID)
	r.PersonID = strings.TrimSpace(r.PersonID)
	r.TaskType = strings.TrimSpace(r.TaskType)
	r.Notes = strings.TrimSpace(r.Notes)
}

func (r *CreateAssignmentRequest) Validate() error {
	if r.UserID == "" {
		return errors.New("user_id is required")
	}
	if r.PersonID == "" {
		return errors.New("person_id is required")
	}
	if r.TaskType == "" {
		return errors.New("task_type is required")
	}
	return nil
}

// BulkAssignRequest is the POST /assignments/bulk body.
type BulkAssignRequest struct {
	UserID    string   `json:"user_id"`
	PersonIDs []string `json:"person_ids"`
	TaskType  string   `json:"task_type"`
	Notes     string   `json:"notes"`
}

func (r *BulkAssignRequest) Normalize() {
	r.UserID = strings.TrimSpace(r.UserID)
	r.TaskType = strings.TrimSpace(r.TaskType)
	r.Notes = strings.TrimSpace(r.Notes)
	for i, raw := range r.PersonIDs {
		r.PersonIDs[i] = strings.TrimSpace(raw)
	}
}

func (r *BulkAssignRequest) Validate() error {
	if r.UserID == "" {
		return errors.New("user_id is required")
	}
	if len(r.PersonIDs) == 0 {
		return errors.New("person_ids is required")
	}
	if r.TaskType == "" {
		return errors.New("task_type is required")
	}
	return nil
}

// CreateAccountRequest is the POST /people/{personID}/accounts body.
type CreateAccountRequest struct {
	Platform    string `json:"platform"`
	ChannelType string `json:"channel_type"`
	URL         string `json:"url"`
	Handle      string `json:"handle"`
}

func (r *CreateAccountRequest) Normalize() {
	r.Platform = strings.TrimSpace(r.Platform)
	r.ChannelType = strings.TrimSpace(r.ChannelType)
	r.URL = strings.TrimSpace(r.URL)
	r.Handle = strings.TrimSpace(r.Handle)
}

func (r *CreateAccountRequest) Validate() error {
	if r.Platform == "" {
		return errors.New("platform is required")
	}
	return nil
}

// EnterAccountRequest is the POST /accounts/{accountID}/enter body.
type EnterAccountRequest struct {
	URL    string `json:"url"`
	Handle string `json:"handle"`
}

func (r *EnterAccountRequest) Normalize() {
	r.URL = strings.TrimSpace(r.URL)
	r.Handle = strings.TrimSpace(r.Handle)
}

// VerifyAccountRequest is the POST /accounts/{accountID}/verify body.
type VerifyAccountRequest struct {
	Notes  string `json:"notes"`
	Source string `json:"source"`
}

func (r *VerifyAccountRequest) Normalize() {
	r.Notes = strings.TrimSpace(r.Notes)
	r.Source = strings.TrimSpace(r.Source)
}

// RejectAccountRequest is the POST /accounts/{accountID}/reject body.
// Notes are mandatory; the service enforces it so the rule holds for every
// caller, but validating here gives a cleaner 422 before any lookup.
type RejectAccountRequest struct {
	Notes string `json:"notes"`
}

func (r *RejectAccountRequest) Normalize() {
	r.Notes = strings.TrimSpace(r.Notes)
}

// ReviseAccountRequest is the POST /accounts/{accountID}/revise body.
// Blank url/handle keep the existing data.
type ReviseAccountRequest struct {
	URL    string `json:"url"`
	Handle string `json:"handle"`
	Notes  string `json:"notes"`
}

func (r *ReviseAccountRequest) Normalize() {
	r.URL = strings.TrimSpace(r.URL)
	r.Handle = strings.TrimSpace(r.Handle)
	r.Notes = strings.TrimSpace(r.Notes)
}

// NotesRequest carries a bare notes replacement.
type NotesRequest struct {
	Notes string `json:"notes"`
}

// InactiveRequest flags or unflags a dead account.
type InactiveRequest struct {
	Inactive bool `json:"inactive"`
}
