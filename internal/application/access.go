package application

import (
	"context"
	"errors"
	"strings"

	"github.com/example/speaker-scheduler/internal/persistence"
	"github.com/example/speaker-scheduler/internal/validation"
)

const missingField = validation.MsgRequired

// requireApproved admits active users whose role was granted by an administrator.
func requireApproved(p Principal) error {
	switch {
	case p.UserID == "":
		return ErrUnauthenticated
	case p.Status == StatusRejected:
		return ErrAccountRejected
	case p.Role == RolePending:
		return ErrAccountPending
	case p.Role != RoleUser && p.Role != RoleAdmin:
		return ErrUnauthorized
	}
	return nil
}

func requireAdmin(p Principal) error {
	if err := requireApproved(p); err != nil {
		return err
	}
	if p.Role != RoleAdmin {
		return ErrUnauthorized
	}
	return nil
}

// requireActive admits any non-rejected account, pending ones included.
func requireActive(p Principal) error {
	switch {
	case p.UserID == "":
		return ErrUnauthenticated
	case p.Status == StatusRejected:
		return ErrAccountRejected
	}
	return nil
}

func validateInput(ctx context.Context, input any) *ValidationError {
	vErr := &ValidationError{}
	vErr.merge(validation.Struct(ctx, input))
	return vErr
}

// mapRepoError translates storage sentinels into application errors.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	}
	return err
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
