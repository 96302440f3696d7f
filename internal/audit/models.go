// Package audit captures workflow transitions as an append-only trail.
//
// Every state transition (assignment lifecycle, account research moves,
// secondary-verification escalations) emits one event. The trail is the
// provenance record behind "who entered this, who verified it, and when" —
// reporting reads it, the workflow never does.
package audit

import (
	"time"

	id "rollcall/pkg/domain"
)

// Action names one kind of workflow transition.
type Action string

const (
	ActionAssignmentCreated        Action = "assignment_created"
	ActionAssignmentStarted        Action = "assignment_started"
	ActionAssignmentCompleted      Action = "assignment_completed"
	ActionAssignmentReopened       Action = "assignment_reopened"
	ActionAssignmentDeleted        Action = "assignment_deleted"
	ActionAssignmentForceCompleted Action = "assignment_force_completed"
	ActionAssignmentMarkIncomplete Action = "assignment_marked_incomplete"

	ActionAccountEntered     Action = "account_entered"
	ActionAccountNotFound    Action = "account_not_found"
	ActionAccountReset       Action = "account_reset"
	ActionAccountVerified    Action = "account_verified"
	ActionAccountRejected    Action = "account_rejected"
	ActionAccountRevised     Action = "account_revised"
	ActionAccountUnverified  Action = "account_unverified"
	ActionAccountSelfChecked Action = "account_self_check_toggled"

	ActionSecondaryVerificationFlagged Action = "secondary_verification_flagged"
	ActionSecondaryVerificationCleared Action = "secondary_verification_cleared"
)

// Event is emitted from domain logic to capture one transition. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	Action    Action

	// ActorID is who performed the transition.
	ActorID id.UserID

	// PersonID is the subject person; set on every event so the trail can
	// be read per person.
	PersonID id.PersonID

	// SubjectType/SubjectID locate the mutated record ("assignment",
	// "account", "person").
	SubjectType string
	SubjectID   string

	// Detail carries the human-readable particulars: platform, status
	// reached, blocking counts.
	Detail string

	// RequestID correlates the event with the HTTP request that caused it.
	RequestID string
}
