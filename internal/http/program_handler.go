package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/speaker-scheduler/internal/application"
	"github.com/example/speaker-scheduler/internal/scheduler"
)

type programService interface {
	CreateProgram(ctx context.Context, params application.CreateProgramParams) (application.ProgramResult, error)
	UpdateProgram(ctx context.Context, params application.UpdateProgramParams) (application.ProgramResult, error)
	DeleteProgram(ctx context.Context, principal application.Principal, programID string) error
	GetProgram(ctx context.Context, principal application.Principal, programID string) (application.Program, error)
	ListPrograms(ctx context.Context, principal application.Principal) ([]application.Program, error)
	OccupiedDates(ctx context.Context, principal application.Principal, speakerID string) ([]scheduler.Date, error)
	CheckAvailability(ctx context.Context, params application.AvailabilityParams) (application.Availability, error)
	ExportCalendar(ctx context.Context, principal application.Principal) (string, error)
}

// ProgramHandler serves the caller's weekend programs.
type ProgramHandler struct {
	service   programService
	titles    scheduler.TalkTitles
	responder responder
	logger    *slog.Logger
}

func NewProgramHandler(service programService, titles scheduler.TalkTitles, logger *slog.Logger) *ProgramHandler {
	base := defaultLogger(logger)
	return &ProgramHandler{service: service, titles: titles, responder: newResponder(base), logger: base}
}

func (h *ProgramHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ProgramHandler", operation, attrs...)
}

func (h *ProgramHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	var req application.ProgramInput
	if err := decodeBody(r, &req); err != nil {
		logger.WarnContext(r.Context(), "failed to decode program", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	result, err := h.service.CreateProgram(r.Context(), application.CreateProgramParams{Principal: principal, Input: req})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("program_id", result.Program.ID).InfoContext(r.Context(), "program created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, h.toProgramResponse(result))
}

func (h *ProgramHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	programID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(programID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "program_id", programID)

	var patch application.ProgramPatch
	if err := decodeBody(r, &patch); err != nil {
		logger.WarnContext(r.Context(), "failed to decode program patch", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	result, err := h.service.UpdateProgram(r.Context(), application.UpdateProgramParams{
		Principal: principal,
		ProgramID: programID,
		Patch:     patch,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "program updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.toProgramResponse(result))
}

func (h *ProgramHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	programID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(programID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	program, err := h.service.GetProgram(r.Context(), principal, programID)
	if err != nil {
		h.log(r.Context(), "Get", "program_id", programID).Log(r.Context(), application.FailureLevel(err), "program lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, programResponse{Program: h.toProgramDTO(program)})
}

func (h *ProgramHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	programID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(programID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "program_id", programID)
	if err := h.service.DeleteProgram(r.Context(), principal, programID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "program deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ProgramHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)

	programs, err := h.service.ListPrograms(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]programDTO, 0, len(programs))
	for _, program := range programs {
		out = append(out, h.toProgramDTO(program))
	}
	logger.With("result_count", len(out)).InfoContext(r.Context(), "programs listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listProgramsResponse{Programs: out})
}

// Occupied serves GET /programs/occupied?speaker_id=.
func (h *ProgramHandler) Occupied(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	speakerID := r.URL.Query().Get("speaker_id")

	dates, err := h.service.OccupiedDates(r.Context(), principal, speakerID)
	if err != nil {
		h.log(r.Context(), "Occupied", "speaker_id", speakerID).Log(r.Context(), application.FailureLevel(err), "occupied dates lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, occupiedResponse{
		SpeakerID: strings.TrimSpace(speakerID),
		Dates:     formatDates(dates),
	})
}

// Availability serves GET /programs/availability?speaker_id=&date=&exclude=.
func (h *ProgramHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()
	params := application.AvailabilityParams{
		Principal:        principal,
		SpeakerID:        query.Get("speaker_id"),
		Date:             query.Get("date"),
		ExcludeProgramID: query.Get("exclude"),
	}

	availability, err := h.service.CheckAvailability(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := availabilityResponse{
		SpeakerID: availability.SpeakerID,
		Date:      availability.Date.String(),
		Available: availability.Available,
		Monthly:   toMonthlyDTO(availability.Monthly),
	}
	if availability.Conflict != nil {
		resp.Conflict = &conflictDTO{
			SpeakerID: availability.Conflict.SpeakerID,
			Date:      availability.Conflict.Date.String(),
			ProgramID: availability.Conflict.SlotID,
		}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// Calendar serves GET /programs.ics.
func (h *ProgramHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	body, err := h.service.ExportCalendar(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "Calendar", "principal_id", principal.UserID).Log(r.Context(), application.FailureLevel(err), "calendar export failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="programmi.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		h.log(r.Context(), "Calendar").ErrorContext(r.Context(), "failed to write calendar", "error", err)
	}
}

func (h *ProgramHandler) toProgramResponse(result application.ProgramResult) programResponse {
	return programResponse{
		Program: h.toProgramDTO(result.Program),
		Warnings: &warningsDTO{
			Monthly:             toMonthlyDTO(result.Warnings.Monthly),
			TalkNotInRepertoire: result.Warnings.TalkNotInRepertoire,
		},
	}
}

func (h *ProgramHandler) toProgramDTO(program application.Program) programDTO {
	dto := programDTO{
		ID:        program.ID,
		OwnerID:   program.OwnerID,
		SpeakerID: program.SpeakerID,
		Date:      program.Date.String(),
		Time:      program.Time,
		Talk:      talkDTO{Number: program.Talk},
		Note:      program.Note,
		CreatedAt: formatTimestamp(program.CreatedAt),
		UpdatedAt: formatTimestamp(program.UpdatedAt),
	}
	if h.titles != nil {
		dto.Talk.Title, _ = h.titles.Title(program.Talk)
	}
	if program.Speaker != nil {
		speaker := toSpeakerDTO(*program.Speaker, nil)
		dto.Speaker = &speaker
	}
	return dto
}

func toMonthlyDTO(warning *scheduler.MonthlyWarning) *monthlyDTO {
	if warning == nil {
		return nil
	}
	return &monthlyDTO{
		SpeakerID:  warning.SpeakerID,
		Month:      warning.Month.Time().Format("2006-01"),
		OtherDates: formatDates(warning.OtherDates),
	}
}

type programResponse struct {
	Program  programDTO   `json:"program"`
	Warnings *warningsDTO `json:"warnings,omitempty"`
}

type listProgramsResponse struct {
	Programs []programDTO `json:"programs"`
}

type occupiedResponse struct {
	SpeakerID string   `json:"speaker_id"`
	Dates     []string `json:"dates"`
}

type availabilityResponse struct {
	SpeakerID string       `json:"speaker_id"`
	Date      string       `json:"date"`
	Available bool         `json:"available"`
	Conflict  *conflictDTO `json:"conflict"`
	Monthly   *monthlyDTO  `json:"monthly_warning"`
}

type warningsDTO struct {
	Monthly             *monthlyDTO `json:"monthly"`
	TalkNotInRepertoire bool        `json:"talk_not_in_repertoire"`
}

type monthlyDTO struct {
	SpeakerID  string   `json:"speaker_id"`
	Month      string   `json:"month"`
	OtherDates []string `json:"other_dates"`
}

type programDTO struct {
	ID        string      `json:"id"`
	OwnerID   string      `json:"owner_id"`
	SpeakerID string      `json:"speaker_id"`
	Date      string      `json:"date"`
	Time      string      `json:"time"`
	Talk      talkDTO     `json:"talk"`
	Note      string      `json:"note"`
	Speaker   *speakerDTO `json:"speaker"`
	CreatedAt string      `json:"created_at"`
	UpdatedAt string      `json:"updated_at"`
}
