package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	err := New(CodeConflict, "already assigned")
	assert.True(t, HasCode(err, CodeConflict))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(nil, CodeConflict))
	assert.False(t, HasCode(errors.New("plain"), CodeConflict))
}

func TestHasCodeThroughWrapping(t *testing.T) {
	inner := New(CodePolicyViolation, "validation in progress")
	wrapped := fmt.Errorf("reopen assignment: %w", inner)
	assert.True(t, HasCode(wrapped, CodePolicyViolation))
}

func TestWrapKeepsCauseUnwrappable(t *testing.T) {
	cause := errors.New("row not found")
	err := Wrap(cause, CodeNotFound, "person lookup failed")

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, CodeNotFound, CodeOf(err))
	assert.Equal(t, "person lookup failed: row not found", err.Error())
}

func TestCodeOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("unexpected")))
	assert.Equal(t, CodeGateBlocked, CodeOf(New(CodeGateBlocked, "6 accounts still need research")))
}
