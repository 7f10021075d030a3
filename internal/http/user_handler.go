package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/speaker-scheduler/internal/application"
)

type userService interface {
	GetProfile(ctx context.Context, principal application.Principal) (application.User, error)
	UpdateProfile(ctx context.Context, params application.UpdateProfileParams) (application.User, error)
	ListUsers(ctx context.Context, principal application.Principal, filter application.UserFilter) ([]application.User, error)
	ListPending(ctx context.Context, principal application.Principal) ([]application.User, error)
	Stats(ctx context.Context, principal application.Principal) (application.UserStats, error)
	ApproveUser(ctx context.Context, principal application.Principal, userID string) (application.User, error)
	RejectUser(ctx context.Context, principal application.Principal, userID, reason string) (application.User, error)
	ChangeRole(ctx context.Context, principal application.Principal, userID string, role application.Role) (application.User, error)
}

// UserHandler serves the caller's profile and the administrator user endpoints.
type UserHandler struct {
	service   userService
	responder responder
	logger    *slog.Logger
}

func NewUserHandler(service userService, logger *slog.Logger) *UserHandler {
	base := defaultLogger(logger)
	return &UserHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "UserHandler", operation, attrs...)
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	user, err := h.service.GetProfile(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "Profile", "principal_id", principal.UserID).Log(r.Context(), application.FailureLevel(err), "profile lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, userResponse{User: toUserDTO(user)})
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "UpdateProfile", "principal_id", principal.UserID)

	input, err := decodeProfile(r)
	if err != nil {
		logger.WarnContext(r.Context(), "failed to decode profile", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), application.UpdateProfileParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "profile updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, userResponse{User: toUserDTO(user)})
}

// decodeProfile reports a speaker link change only when speaker_id is present
// in the body; an explicit null unlinks.
func decodeProfile(r *http.Request) (application.ProfileInput, error) {
	var input application.ProfileInput
	if r.Body == nil {
		return input, nil
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return input, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return input, nil
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return input, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return input, err
	}
	_, input.LinkSpeaker = fields["speaker_id"]
	return input, nil
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()
	filter := application.UserFilter{
		Role:   application.Role(strings.TrimSpace(query.Get("role"))),
		Status: application.Status(strings.TrimSpace(query.Get("status"))),
	}
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)

	users, err := h.service.ListUsers(r.Context(), principal, filter)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(users)).InfoContext(r.Context(), "users listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listUsersResponse{Users: toUserDTOs(users)})
}

func (h *UserHandler) Pending(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	users, err := h.service.ListPending(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "Pending", "principal_id", principal.UserID).Log(r.Context(), application.FailureLevel(err), "pending list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listUsersResponse{Users: toUserDTOs(users)})
}

func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	stats, err := h.service.Stats(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "Stats", "principal_id", principal.UserID).Log(r.Context(), application.FailureLevel(err), "stats failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, statsDTO{
		Total:   stats.Total,
		Pending: stats.Pending,
		Admins:  stats.Admins,
		Users:   stats.Users,
	})
}

func (h *UserHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.adminAction(w, r, "Approve", func(ctx context.Context, principal application.Principal, userID string) (application.User, error) {
		return h.service.ApproveUser(ctx, principal, userID)
	})
}

func (h *UserHandler) Reject(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req rejectRequest
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "Reject", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode rejection", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	h.adminAction(w, r, "Reject", func(ctx context.Context, principal application.Principal, userID string) (application.User, error) {
		return h.service.RejectUser(ctx, principal, userID, req.Reason)
	})
}

func (h *UserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req roleRequest
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "ChangeRole", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode role change", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	h.adminAction(w, r, "ChangeRole", func(ctx context.Context, principal application.Principal, userID string) (application.User, error) {
		return h.service.ChangeRole(ctx, principal, userID, application.Role(strings.TrimSpace(req.Role)))
	})
}

func (h *UserHandler) adminAction(w http.ResponseWriter, r *http.Request, operation string, action func(context.Context, application.Principal, string) (application.User, error)) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(userID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), operation, "principal_id", principal.UserID, "user_id", userID)

	user, err := action(r.Context(), principal, userID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("role", user.Role, "status", user.Status).InfoContext(r.Context(), "admin action applied")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, userResponse{User: toUserDTO(user)})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type roleRequest struct {
	Role string `json:"role"`
}

type userResponse struct {
	User userDTO `json:"user"`
}

type listUsersResponse struct {
	Users []userDTO `json:"users"`
}

type statsDTO struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Admins  int `json:"admins"`
	Users   int `json:"users"`
}

type userDTO struct {
	ID              string      `json:"id"`
	Email           string      `json:"email"`
	GivenName       string      `json:"given_name"`
	FamilyName      string      `json:"family_name"`
	DisplayName     string      `json:"display_name"`
	Phone           *string     `json:"phone,omitempty"`
	Congregation    *string     `json:"congregation,omitempty"`
	Locality        *string     `json:"locality,omitempty"`
	Role            string      `json:"role"`
	Status          string      `json:"status"`
	SpeakerID       *string     `json:"speaker_id"`
	Speaker         *speakerDTO `json:"speaker,omitempty"`
	RequestedAt     string      `json:"requested_at"`
	ApprovedAt      *string     `json:"approved_at,omitempty"`
	RejectedAt      *string     `json:"rejected_at,omitempty"`
	RejectionReason *string     `json:"rejection_reason,omitempty"`
	CreatedAt       string      `json:"created_at"`
	UpdatedAt       string      `json:"updated_at"`
}

func toUserDTO(user application.User) userDTO {
	dto := userDTO{
		ID:              user.ID,
		Email:           user.Email,
		GivenName:       user.GivenName,
		FamilyName:      user.FamilyName,
		DisplayName:     user.DisplayName(),
		Phone:           user.Phone,
		Congregation:    user.Congregation,
		Locality:        user.Locality,
		Role:            string(user.Role),
		Status:          string(user.Status),
		SpeakerID:       user.SpeakerID,
		RequestedAt:     formatTimestamp(user.RequestedAt),
		ApprovedAt:      formatOptionalTimestamp(user.ApprovedAt),
		RejectedAt:      formatOptionalTimestamp(user.RejectedAt),
		RejectionReason: user.RejectionReason,
		CreatedAt:       formatTimestamp(user.CreatedAt),
		UpdatedAt:       formatTimestamp(user.UpdatedAt),
	}
	if user.Speaker != nil {
		speaker := toSpeakerDTO(*user.Speaker, nil)
		dto.Speaker = &speaker
	}
	return dto
}

func toUserDTOs(users []application.User) []userDTO {
	out := make([]userDTO, 0, len(users))
	for _, user := range users {
		out = append(out, toUserDTO(user))
	}
	return out
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatOptionalTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTimestamp(*t)
	return &s
}
