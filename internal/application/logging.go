package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/speaker-scheduler/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.Resolve(ctx, base)

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrSpeakerAlreadyBooked):
		return "speaker_already_booked"
	case errors.Is(err, ErrInvalidDate):
		return "invalid_date"
	case errors.Is(err, ErrSpeakerNotFound):
		return "speaker_not_found"
	case errors.Is(err, ErrSpeakerLinked):
		return "speaker_linked"
	case errors.Is(err, ErrTalkNumberOutOfRange):
		return "talk_out_of_range"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrAccountPending):
		return "account_pending"
	case errors.Is(err, ErrAccountRejected):
		return "account_rejected"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}

// FailureLevel is Warn for failures with a known kind, which the caller
// caused, and Error for anything unexpected.
func FailureLevel(err error) slog.Level {
	if ErrorKind(err) == "unexpected" {
		return slog.LevelError
	}
	return slog.LevelWarn
}
