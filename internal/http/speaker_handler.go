package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/speaker-scheduler/internal/application"
	"github.com/example/speaker-scheduler/internal/scheduler"
)

type speakerService interface {
	CreateSpeaker(ctx context.Context, params application.CreateSpeakerParams) (application.Speaker, error)
	UpdateSpeaker(ctx context.Context, params application.UpdateSpeakerParams) (application.Speaker, error)
	GetSpeaker(ctx context.Context, principal application.Principal, id string) (application.Speaker, error)
	ListSpeakers(ctx context.Context, principal application.Principal, filter application.SpeakerFilter) ([]application.Speaker, error)
	DeleteSpeaker(ctx context.Context, principal application.Principal, id string) error
	Candidates(ctx context.Context, params application.CandidatesParams) (application.CandidateList, error)
}

// SpeakerHandler serves the speaker registry and the candidate picker.
type SpeakerHandler struct {
	service   speakerService
	titles    scheduler.TalkTitles
	responder responder
	logger    *slog.Logger
}

// NewSpeakerHandler builds the handler. titles may be nil, in which case
// talks are rendered without titles.
func NewSpeakerHandler(service speakerService, titles scheduler.TalkTitles, logger *slog.Logger) *SpeakerHandler {
	base := defaultLogger(logger)
	return &SpeakerHandler{service: service, titles: titles, responder: newResponder(base), logger: base}
}

func (h *SpeakerHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SpeakerHandler", operation, attrs...)
}

func (h *SpeakerHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	var req application.SpeakerInput
	if err := decodeBody(r, &req); err != nil {
		logger.WarnContext(r.Context(), "failed to decode speaker", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	speaker, err := h.service.CreateSpeaker(r.Context(), application.CreateSpeakerParams{Principal: principal, Input: req})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("speaker_id", speaker.ID).InfoContext(r.Context(), "speaker created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, speakerResponse{Speaker: toSpeakerDTO(speaker, h.titles)})
}

func (h *SpeakerHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	speakerID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(speakerID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "speaker_id", speakerID)

	var req application.SpeakerInput
	if err := decodeBody(r, &req); err != nil {
		logger.WarnContext(r.Context(), "failed to decode speaker", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	speaker, err := h.service.UpdateSpeaker(r.Context(), application.UpdateSpeakerParams{
		Principal: principal,
		SpeakerID: speakerID,
		Input:     req,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "speaker updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, speakerResponse{Speaker: toSpeakerDTO(speaker, h.titles)})
}

func (h *SpeakerHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	speakerID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(speakerID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	speaker, err := h.service.GetSpeaker(r.Context(), principal, speakerID)
	if err != nil {
		h.log(r.Context(), "Get", "speaker_id", speakerID).Log(r.Context(), application.FailureLevel(err), "speaker lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, speakerResponse{Speaker: toSpeakerDTO(speaker, h.titles)})
}

func (h *SpeakerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	speakerID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(speakerID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "speaker_id", speakerID)
	if err := h.service.DeleteSpeaker(r.Context(), principal, speakerID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "speaker deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *SpeakerHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()
	filter := application.SpeakerFilter{
		GivenName:    query.Get("given_name"),
		FamilyName:   query.Get("family_name"),
		Congregation: query.Get("congregation"),
		Locality:     query.Get("locality"),
		Talk:         query.Get("talk"),
	}
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)

	speakers, err := h.service.ListSpeakers(r.Context(), principal, filter)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]speakerDTO, 0, len(speakers))
	for _, speaker := range speakers {
		out = append(out, toSpeakerDTO(speaker, h.titles))
	}
	logger.With("result_count", len(out)).InfoContext(r.Context(), "speakers listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSpeakersResponse{Speakers: out})
}

// Candidates serves GET /speakers/candidates?date=&q=&from=&exclude=.
func (h *SpeakerHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()
	params := application.CandidatesParams{
		Principal:        principal,
		Date:             query.Get("date"),
		Query:            query.Get("q"),
		ExcludeProgramID: query.Get("exclude"),
	}
	if query.Has("from") {
		from := query.Get("from")
		params.From = &from
	}
	list, err := h.service.Candidates(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := candidatesResponse{
		Available:   h.toCandidateDTOs(list.Available),
		Unavailable: h.toCandidateDTOs(list.Unavailable),
	}
	if list.Date != nil {
		date := list.Date.String()
		resp.Date = &date
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *SpeakerHandler) toCandidateDTOs(candidates []application.Candidate) []candidateDTO {
	out := make([]candidateDTO, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, candidateDTO{
			Speaker:       toSpeakerDTO(c.Speaker, h.titles),
			DistanceKm:    c.DistanceKm,
			Distance:      c.Distance,
			OccupiedDates: formatDates(c.OccupiedDates),
		})
	}
	return out
}

type speakerResponse struct {
	Speaker speakerDTO `json:"speaker"`
}

type listSpeakersResponse struct {
	Speakers []speakerDTO `json:"speakers"`
}

type candidatesResponse struct {
	Date        *string        `json:"date"`
	Available   []candidateDTO `json:"available"`
	Unavailable []candidateDTO `json:"unavailable"`
}

type candidateDTO struct {
	Speaker       speakerDTO `json:"speaker"`
	DistanceKm    *int       `json:"distance_km"`
	Distance      string     `json:"distance"`
	OccupiedDates []string   `json:"occupied_dates"`
}

type talkDTO struct {
	Number int    `json:"number"`
	Title  string `json:"title,omitempty"`
}

type speakerDTO struct {
	ID           string    `json:"id"`
	GivenName    string    `json:"given_name"`
	FamilyName   string    `json:"family_name"`
	FullName     string    `json:"full_name"`
	Email        *string   `json:"email,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	Congregation string    `json:"congregation"`
	Locality     *string   `json:"locality,omitempty"`
	Talks        []talkDTO `json:"talks"`
	CreatedBy    string    `json:"created_by,omitempty"`
	UpdatedBy    string    `json:"updated_by,omitempty"`
	CreatedAt    string    `json:"created_at,omitempty"`
	UpdatedAt    string    `json:"updated_at,omitempty"`
}

func toSpeakerDTO(speaker application.Speaker, titles scheduler.TalkTitles) speakerDTO {
	talks := make([]talkDTO, 0, len(speaker.Talks))
	for _, number := range speaker.Talks {
		talk := talkDTO{Number: number}
		if titles != nil {
			talk.Title, _ = titles.Title(number)
		}
		talks = append(talks, talk)
	}
	return speakerDTO{
		ID:           speaker.ID,
		GivenName:    speaker.GivenName,
		FamilyName:   speaker.FamilyName,
		FullName:     speaker.FullName(),
		Email:        speaker.Email,
		Phone:        speaker.Phone,
		Congregation: speaker.Congregation,
		Locality:     speaker.Locality,
		Talks:        talks,
		CreatedBy:    speaker.CreatedByName,
		UpdatedBy:    speaker.UpdatedByName,
		CreatedAt:    formatTimestamp(speaker.CreatedAt),
		UpdatedAt:    formatTimestamp(speaker.UpdatedAt),
	}
}

func formatDates(dates []scheduler.Date) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.String())
	}
	return out
}
