package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/speaker-scheduler/internal/application"
)

type congregationService interface {
	ListCongregations(ctx context.Context, principal application.Principal) ([]application.Congregation, error)
	GetCongregation(ctx context.Context, principal application.Principal, id string) (application.Congregation, error)
	GetCongregationByName(ctx context.Context, principal application.Principal, name string) (application.Congregation, error)
	CreateCongregation(ctx context.Context, params application.CreateCongregationParams) (application.Congregation, error)
	UpdateCongregation(ctx context.Context, params application.UpdateCongregationParams) (application.Congregation, error)
	DeleteCongregation(ctx context.Context, principal application.Principal, id string) error
}

type CongregationHandler struct {
	service   congregationService
	responder responder
	logger    *slog.Logger
}

func NewCongregationHandler(service congregationService, logger *slog.Logger) *CongregationHandler {
	base := defaultLogger(logger)
	return &CongregationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CongregationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CongregationHandler", operation, attrs...)
}

// List returns all congregations, or the single match for ?name=.
func (h *CongregationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)

	if name := strings.TrimSpace(r.URL.Query().Get("name")); name != "" {
		congregation, err := h.service.GetCongregationByName(r.Context(), principal, name)
		if err != nil {
			logger.Log(r.Context(), application.FailureLevel(err), "congregation lookup failed", "name", name, "error", err, "error_kind", application.ErrorKind(err))
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		h.responder.writeJSON(r.Context(), w, http.StatusOK, congregationResponse{Congregation: toCongregationDTO(congregation)})
		return
	}

	congregations, err := h.service.ListCongregations(r.Context(), principal)
	if err != nil {
		logger.Log(r.Context(), application.FailureLevel(err), "congregation list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]congregationDTO, 0, len(congregations))
	for _, c := range congregations {
		out = append(out, toCongregationDTO(c))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listCongregationsResponse{Congregations: out})
}

func (h *CongregationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	congregation, err := h.service.GetCongregation(r.Context(), principal, id)
	if err != nil {
		h.log(r.Context(), "Get", "congregation_id", id).Log(r.Context(), application.FailureLevel(err), "congregation lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, congregationResponse{Congregation: toCongregationDTO(congregation)})
}

func (h *CongregationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	var req application.CongregationInput
	if err := decodeBody(r, &req); err != nil {
		logger.WarnContext(r.Context(), "failed to decode congregation", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	congregation, err := h.service.CreateCongregation(r.Context(), application.CreateCongregationParams{Principal: principal, Input: req})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("congregation_id", congregation.ID).InfoContext(r.Context(), "congregation created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, congregationResponse{Congregation: toCongregationDTO(congregation)})
}

func (h *CongregationHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "congregation_id", id)

	var patch application.CongregationPatch
	if err := decodeBody(r, &patch); err != nil {
		logger.WarnContext(r.Context(), "failed to decode congregation patch", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	congregation, err := h.service.UpdateCongregation(r.Context(), application.UpdateCongregationParams{
		Principal:      principal,
		CongregationID: id,
		Patch:          patch,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "congregation updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, congregationResponse{Congregation: toCongregationDTO(congregation)})
}

func (h *CongregationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "congregation_id", id)
	if err := h.service.DeleteCongregation(r.Context(), principal, id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "congregation deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type congregationResponse struct {
	Congregation congregationDTO `json:"congregation"`
}

type listCongregationsResponse struct {
	Congregations []congregationDTO `json:"congregations"`
}

type congregationDTO struct {
	ID                   string      `json:"id"`
	Name                 string      `json:"name"`
	ResponsibleSpeakerID string      `json:"responsible_speaker_id"`
	Responsible          *speakerDTO `json:"responsible"`
	MeetingSchedule      string      `json:"meeting_schedule"`
	Address              string      `json:"address"`
	CreatedAt            string      `json:"created_at"`
	UpdatedAt            string      `json:"updated_at"`
}

func toCongregationDTO(c application.Congregation) congregationDTO {
	dto := congregationDTO{
		ID:                   c.ID,
		Name:                 c.Name,
		ResponsibleSpeakerID: c.ResponsibleSpeakerID,
		MeetingSchedule:      c.MeetingSchedule,
		Address:              c.Address,
		CreatedAt:            formatTimestamp(c.CreatedAt),
		UpdatedAt:            formatTimestamp(c.UpdatedAt),
	}
	if c.Responsible != nil {
		speaker := toSpeakerDTO(*c.Responsible, nil)
		dto.Responsible = &speaker
	}
	return dto
}
