// Package domain provides typed identifiers for workflow entities.
//
// Each entity gets its own UUID-backed type so the compiler rejects
// cross-entity assignment (an AssignmentID can never be passed where a
// PersonID is expected). Parse functions enforce the trust-boundary
// invariant that IDs are valid, non-empty, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "rollcall/pkg/domain-errors"
)

type (
	// UserID identifies a researcher, validator, or admin.
	UserID uuid.UUID

	// PersonID identifies a political figure under research.
	PersonID uuid.UUID

	// AssignmentID identifies one unit of assigned work.
	AssignmentID uuid.UUID

	// AccountID identifies one social-media account record.
	AccountID uuid.UUID
)

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id PersonID) String() string     { return uuid.UUID(id).String() }
func (id AssignmentID) String() string { return uuid.UUID(id).String() }
func (id AccountID) String() string    { return uuid.UUID(id).String() }

func (id UserID) IsZero() bool       { return uuid.UUID(id) == uuid.Nil }
func (id PersonID) IsZero() bool     { return uuid.UUID(id) == uuid.Nil }
func (id AssignmentID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id AccountID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }

// NewUserID generates a random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewPersonID generates a random PersonID.
func NewPersonID() PersonID { return PersonID(uuid.New()) }

// NewAssignmentID generates a random AssignmentID.
func NewAssignmentID() AssignmentID { return AssignmentID(uuid.New()) }

// NewAccountID generates a random AccountID.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id is required", kind)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id is not a valid UUID", kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id cannot be the nil UUID", kind)
	}
	return parsed, nil
}

// ParseUserID parses and validates a user ID string.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user")
	return UserID(parsed), err
}

// ParsePersonID parses and validates a person ID string.
func ParsePersonID(raw string) (PersonID, error) {
	parsed, err := parseUUID(raw, "person")
	return PersonID(parsed), err
}

// ParseAssignmentID parses and validates an assignment ID string.
func ParseAssignmentID(raw string) (AssignmentID, error) {
	parsed, err := parseUUID(raw, "assignment")
	return AssignmentID(parsed), err
}

// ParseAccountID parses and validates an account ID string.
func ParseAccountID(raw string) (AccountID, error) {
	parsed, err := parseUUID(raw, "account")
	return AccountID(parsed), err
}
