package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/example/speaker-scheduler/internal/validation"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"field": "invalid"}}
	if got := withFields.Error(); got != "validation failed" {
		t.Fatalf("expected consistent message for populated error, got %q", got)
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	if base.HasErrors() {
		t.Fatalf("expected HasErrors to report false for empty error")
	}
	base.add("first", "value")
	base.merge(map[string]string{"second": "another"})
	base.merge(nil)

	if len(base.FieldErrors) != 2 || base.FieldErrors["second"] != "another" {
		t.Fatalf("unexpected fields %v", base.FieldErrors)
	}
}

func TestValidationError_MatchesMissingRequiredField(t *testing.T) {
	t.Parallel()

	missing := &ValidationError{FieldErrors: map[string]string{"time": validation.MsgRequired}}
	if !errors.Is(fmt.Errorf("wrapped: %w", missing), ErrMissingRequiredField) {
		t.Fatalf("expected missing field to match ErrMissingRequiredField")
	}

	malformed := &ValidationError{FieldErrors: map[string]string{"time": validation.MsgClock}}
	if errors.Is(malformed, ErrMissingRequiredField) {
		t.Fatalf("malformed field must not match ErrMissingRequiredField")
	}
}
