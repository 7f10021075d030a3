package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/speaker-scheduler/internal/application"
	"github.com/example/speaker-scheduler/internal/logging"
	"github.com/example/speaker-scheduler/internal/scheduler"
	"github.com/example/speaker-scheduler/internal/validation"
)

var (
	errBadRequestBody      = errors.New("Formato della richiesta non valido.")
	errInvalidResourceID   = errors.New("Identificativo non valido.")
	errMissingSessionToken = errors.New("Specificare il token di autenticazione.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		if status >= http.StatusInternalServerError {
			r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
		}
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	status := statusForError(err)
	resp := errorResponse{
		ErrorCode: application.ErrorKind(err),
		Message:   localizedErrorMessage(err, status),
	}

	var conflict *scheduler.ConflictError
	if errors.As(err, &conflict) {
		resp.Conflict = &conflictDTO{
			SpeakerID: conflict.SpeakerID,
			Date:      conflict.Date.String(),
			ProgramID: conflict.SlotID,
		}
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		resp.Errors = localizeValidationErrors(vErr)
	}

	// Failures are logged by the service or handler that produced them.
	if status == http.StatusInternalServerError {
		resp.ErrorCode = ""
	}
	r.writeJSON(ctx, w, status, resp)
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	return logging.Resolve(ctx, r.logger)
}

// statusForError checks conflicts before validation: a storage duplicate may
// surface as a ConflictError without a slot id.
func statusForError(err error) int {
	switch {
	case errors.Is(err, application.ErrSpeakerAlreadyBooked),
		errors.Is(err, application.ErrAlreadyExists),
		errors.Is(err, application.ErrSpeakerLinked):
		return http.StatusConflict
	case errors.Is(err, application.ErrInvalidDate),
		errors.Is(err, application.ErrTalkNumberOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrUnauthenticated),
		errors.Is(err, application.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, application.ErrUnauthorized),
		errors.Is(err, application.ErrAccountPending),
		errors.Is(err, application.ErrAccountRejected):
		return http.StatusForbidden
	case errors.Is(err, application.ErrSpeakerNotFound),
		errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func localizedErrorMessage(err error, status int) string {
	switch {
	case errors.Is(err, application.ErrSpeakerAlreadyBooked):
		return "L'oratore è già impegnato in questa data."
	case errors.Is(err, application.ErrAlreadyExists):
		return "Esiste già un elemento con questi dati."
	case errors.Is(err, application.ErrSpeakerLinked):
		return "L'oratore è già collegato a un altro utente."
	case errors.Is(err, application.ErrInvalidDate):
		return "Data non valida: indicare un sabato o una domenica nel formato AAAA-MM-GG."
	case errors.Is(err, application.ErrTalkNumberOutOfRange):
		return "Il numero del discorso deve essere compreso tra 1 e 194."
	case errors.Is(err, application.ErrInvalidCredentials):
		return "Email o password non corretti."
	case errors.Is(err, application.ErrUnauthenticated):
		return "Sessione non valida. Effettuare di nuovo l'accesso."
	case errors.Is(err, application.ErrAccountPending):
		return "Il tuo account è in attesa di approvazione."
	case errors.Is(err, application.ErrAccountRejected):
		return "Il tuo account è stato rifiutato."
	case errors.Is(err, application.ErrSpeakerNotFound):
		return "Oratore non trovato."
	}
	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		return "I dati inseriti non sono validi."
	}
	return localizedStatusMessage(status)
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Richiesta non valida."
	case http.StatusUnauthorized:
		return "Autenticazione richiesta."
	case http.StatusForbidden:
		return "Non hai i permessi per eseguire questa operazione."
	case http.StatusNotFound:
		return "La risorsa richiesta non esiste."
	case http.StatusConflict:
		return "La richiesta è in conflitto con lo stato attuale della risorsa."
	default:
		return "Si è verificato un errore interno del server."
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case validation.MsgRequired:
		return "Campo obbligatorio."
	case validation.MsgEmail:
		return "Indirizzo email non valido."
	case validation.MsgTooLong:
		return "Valore troppo lungo."
	case validation.MsgTooShort:
		return "Valore troppo corto."
	case validation.MsgOneOf:
		return "Valore non ammesso."
	case validation.MsgTalkNumber:
		return "Il numero del discorso deve essere compreso tra 1 e 194."
	case validation.MsgClock:
		return "L'orario deve essere nel formato HH:MM."
	case validation.MsgDate:
		return "La data deve essere nel formato AAAA-MM-GG."
	case validation.MsgWeekend:
		return "La data deve essere un sabato o una domenica."
	case "cannot change own role":
		return "Non puoi modificare il tuo ruolo."
	case validation.MsgUnknownCheck:
		return "Valore non valido."
	default:
		return message
	}
}

// decodeBody decodes a JSON request body into dst. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	Conflict  *conflictDTO      `json:"conflict,omitempty"`
}

type conflictDTO struct {
	SpeakerID string `json:"speaker_id"`
	Date      string `json:"date"`
	ProgramID string `json:"program_id,omitempty"`
}
