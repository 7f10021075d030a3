package application

import (
	"errors"

	"github.com/example/speaker-scheduler/internal/scheduler"
	"github.com/example/speaker-scheduler/internal/validation"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when login data does not match a user.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrUnauthenticated is returned when no valid token accompanies a request.
	ErrUnauthenticated = errors.New("application: unauthenticated")
	// ErrAccountPending is returned when an account still awaits approval.
	ErrAccountPending = errors.New("application: account pending approval")
	// ErrAccountRejected is returned when an administrator rejected the account.
	ErrAccountRejected = errors.New("application: account rejected")
	// ErrSpeakerNotFound is returned when a program or link references a missing speaker.
	ErrSpeakerNotFound = errors.New("application: speaker not found")
	// ErrSpeakerLinked is returned when a speaker already belongs to another user.
	ErrSpeakerLinked = errors.New("application: speaker linked to another user")
	// ErrInvalidDate is returned for malformed or non weekend program dates.
	ErrInvalidDate = errors.New("application: invalid date")
	// ErrMissingRequiredField is matched by validation errors with a missing field.
	ErrMissingRequiredField = errors.New("application: missing required field")
	// ErrSpeakerAlreadyBooked is returned when the speaker has another program on the date.
	ErrSpeakerAlreadyBooked = scheduler.ErrSpeakerAlreadyBooked
	// ErrTalkNumberOutOfRange is returned for talk numbers outside 1..194.
	ErrTalkNumberOutOfRange = scheduler.ErrTalkNumberOutOfRange
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// Is reports ErrMissingRequiredField when any field failed as absent.
func (v *ValidationError) Is(target error) bool {
	if target != ErrMissingRequiredField || v == nil {
		return false
	}
	for _, msg := range v.FieldErrors {
		if msg == validation.MsgRequired {
			return true
		}
	}
	return false
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from a validator result into the receiver.
func (v *ValidationError) merge(fields map[string]string) {
	for field, msg := range fields {
		v.add(field, msg)
	}
}
