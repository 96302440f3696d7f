// Package domainerrors provides coded errors for the workflow domain.
//
// Services return these so transport layers can map error conditions to
// HTTP statuses without string matching. Stores return sentinel errors
// (pkg/platform/sentinel) instead; services translate at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for transport mapping and logging.
type Code string

const (
	// CodeInvalidInput marks malformed input rejected at a trust boundary
	// (bad UUID, unknown enum value).
	CodeInvalidInput Code = "invalid_input"

	// CodeValidation marks a well-formed request missing required data
	// (rejection without notes, entry without url or handle).
	CodeValidation Code = "validation_failed"

	// CodeConflict marks a uniqueness or state conflict ("already
	// assigned", "already completed").
	CodeConflict Code = "conflict"

	// CodeNotFound marks a missing entity.
	CodeNotFound Code = "not_found"

	// CodePolicyViolation marks an operation forbidden by a workflow rule
	// (reopening collection while validation is active).
	CodePolicyViolation Code = "policy_violation"

	// CodeGateBlocked marks a completion attempt rejected by the
	// completion gate. The error message carries the blocking count.
	CodeGateBlocked Code = "gate_blocked"

	// CodeInvariantViolation marks a broken domain invariant detected in
	// a model constructor or transition guard.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeUnauthorized marks a request without an authenticated actor.
	CodeUnauthorized Code = "unauthorized"

	// CodeInternal marks unexpected failures. Transport layers must not
	// leak the message to callers.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error. Construct with New or Wrap.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error with a message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message while keeping it unwrappable.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// uncoded errors.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}
