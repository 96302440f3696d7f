package models

import (
	"time"

	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
)

// Person is the minimal aggregate the workflow needs: an identity to hang
// assignments and account records on, plus the secondary-verification flag.
// The full political profile (offices, candidacies, parties) lives in the
// catalog, outside this service.
type Person struct {
	ID        id.PersonID
	FirstName string
	LastName  string

	// NeedsSecondaryVerification marks the person for an extra review pass
	// after validated data was changed mid-validation. Set by the secondary
	// verification trigger, cleared only as a whole with the account flags.
	NeedsSecondaryVerification bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPerson constructs a person record.
func NewPerson(personID id.PersonID, firstName, lastName string, now time.Time) (*Person, error) {
	if firstName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "first name is required")
	}
	if lastName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "last name is required")
	}
	return &Person{
		ID:        personID,
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (p *Person) FullName() string {
	return p.FirstName + " " + p.LastName
}
