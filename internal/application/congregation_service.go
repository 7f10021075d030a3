package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// CongregationRepository captures the persistence operations needed by the congregation service.
type CongregationRepository interface {
	CreateCongregation(ctx context.Context, congregation Congregation) (Congregation, error)
	UpdateCongregation(ctx context.Context, congregation Congregation) (Congregation, error)
	GetCongregation(ctx context.Context, id string) (Congregation, error)
	GetCongregationByName(ctx context.Context, name string) (Congregation, error)
	ListCongregations(ctx context.Context) ([]Congregation, error)
	DeleteCongregation(ctx context.Context, id string) error
}

// CongregationService manages congregations. Administrators control names and
// responsible speakers; the user linked to the responsible speaker may edit
// the meeting schedule and address.
type CongregationService struct {
	congregations CongregationRepository
	speakers      SpeakerLookup
	idGenerator   func() string
	now           func() time.Time
	logger        *slog.Logger
}

// NewCongregationService constructs a congregation service with the provided dependencies.
func NewCongregationService(congregations CongregationRepository, speakers SpeakerLookup, idGenerator func() string, now func() time.Time) *CongregationService {
	return NewCongregationServiceWithLogger(congregations, speakers, idGenerator, now, nil)
}

// NewCongregationServiceWithLogger constructs a congregation service with a specified logger.
func NewCongregationServiceWithLogger(congregations CongregationRepository, speakers SpeakerLookup, idGenerator func() string, now func() time.Time, logger *slog.Logger) *CongregationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CongregationService{
		congregations: congregations,
		speakers:      speakers,
		idGenerator:   idGenerator,
		now:           now,
		logger:        defaultLogger(logger),
	}
}

func (s *CongregationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CongregationService", operation, attrs...)
}

// ListCongregations returns all congregations by name with their responsible speaker.
func (s *CongregationService) ListCongregations(ctx context.Context, principal Principal) ([]Congregation, error) {
	if s == nil {
		return nil, fmt.Errorf("CongregationService is nil")
	}
	if err := requireApproved(principal); err != nil {
		return nil, err
	}
	if s.congregations == nil {
		return []Congregation{}, nil
	}

	raw, err := s.congregations.ListCongregations(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}

	speakers := map[string]Speaker{}
	if s.speakers != nil && len(raw) > 0 {
		all, err := s.speakers.ListSpeakers(ctx, SpeakerFilter{})
		if err != nil {
			return nil, mapRepoError(err)
		}
		for _, sp := range all {
			speakers[sp.ID] = sp
		}
	}

	out := make([]Congregation, len(raw))
	for i, c := range raw {
		c.Responsible = nil
		if sp, ok := speakers[c.ResponsibleSpeakerID]; ok {
			sp := sp
			c.Responsible = &sp
		}
		out[i] = c
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// GetCongregation returns one congregation by ID.
func (s *CongregationService) GetCongregation(ctx context.Context, principal Principal, id string) (Congregation, error) {
	if s == nil {
		return Congregation{}, fmt.Errorf("CongregationService is nil")
	}
	if err := requireApproved(principal); err != nil {
		return Congregation{}, err
	}
	if s.congregations == nil {
		return Congregation{}, ErrNotFound
	}
	congregation, err := s.congregations.GetCongregation(ctx, id)
	if err != nil {
		return Congregation{}, mapRepoError(err)
	}
	return s.withResponsible(ctx, congregation)
}

// GetCongregationByName matches the full name case-insensitively.
func (s *CongregationService) GetCongregationByName(ctx context.Context, principal Principal, name string) (Congregation, error) {
	if s == nil {
		return Congregation{}, fmt.Errorf("CongregationService is nil")
	}
	if err := requireApproved(principal); err != nil {
		return Congregation{}, err
	}
	if s.congregations == nil {
		return Congregation{}, ErrNotFound
	}
	congregation, err := s.congregations.GetCongregationByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return Congregation{}, mapRepoError(err)
	}
	return s.withResponsible(ctx, congregation)
}

// CreateCongregation registers a congregation. Administrators only.
func (s *CongregationService) CreateCongregation(ctx context.Context, params CreateCongregationParams) (congregation Congregation, err error) {
	if s == nil {
		err = fmt.Errorf("CongregationService is nil")
		return
	}
	if s.congregations == nil {
		err = fmt.Errorf("congregation repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateCongregation", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.Log(ctx, FailureLevel(err), "failed to create congregation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("congregation_id", congregation.ID).InfoContext(ctx, "congregation created")
	}()

	if err = requireAdmin(params.Principal); err != nil {
		return
	}

	input := CongregationInput{
		Name:                 strings.TrimSpace(params.Input.Name),
		ResponsibleSpeakerID: strings.TrimSpace(params.Input.ResponsibleSpeakerID),
		MeetingSchedule:      strings.TrimSpace(params.Input.MeetingSchedule),
		Address:              strings.TrimSpace(params.Input.Address),
	}
	if vErr := validateInput(ctx, input); vErr.HasErrors() {
		err = vErr
		return
	}

	if err = s.ensureNameFree(ctx, input.Name, ""); err != nil {
		return
	}
	var responsible *Speaker
	responsible, err = s.responsibleSpeaker(ctx, input.ResponsibleSpeakerID)
	if err != nil {
		return
	}

	now := s.now()
	congregation = Congregation{
		ID:                   s.idGenerator(),
		Name:                 input.Name,
		ResponsibleSpeakerID: input.ResponsibleSpeakerID,
		MeetingSchedule:      input.MeetingSchedule,
		Address:              input.Address,
		CreatedBy:            params.Principal.UserID,
		UpdatedBy:            params.Principal.UserID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	congregation, err = s.congregations.CreateCongregation(ctx, congregation)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	congregation.Responsible = responsible
	return
}

// UpdateCongregation applies a partial update. Name and responsible changes
// are reserved to administrators; the responsible speaker's user may only
// edit the schedule and address.
func (s *CongregationService) UpdateCongregation(ctx context.Context, params UpdateCongregationParams) (congregation Congregation, err error) {
	if s == nil {
		err = fmt.Errorf("CongregationService is nil")
		return
	}
	if s.congregations == nil {
		err = fmt.Errorf("congregation repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateCongregation",
		"principal_id", params.Principal.UserID,
		"congregation_id", params.CongregationID,
	)
	defer func() {
		if err != nil {
			logger.Log(ctx, FailureLevel(err), "failed to update congregation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "congregation updated")
	}()

	if err = requireApproved(params.Principal); err != nil {
		return
	}

	congregation, err = s.congregations.GetCongregation(ctx, params.CongregationID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	isAdmin := params.Principal.IsAdmin()
	isResponsible := params.Principal.SpeakerID != nil && *params.Principal.SpeakerID == congregation.ResponsibleSpeakerID
	if !isAdmin && !isResponsible {
		err = ErrUnauthorized
		return
	}

	patch := params.Patch
	if vErr := validateInput(ctx, patch); vErr.HasErrors() {
		err = vErr
		return
	}

	if isAdmin {
		if name := normalizeOptionalString(patch.Name); name != nil {
			if err = s.ensureNameFree(ctx, *name, congregation.ID); err != nil {
				return
			}
			congregation.Name = *name
		}
		if id := normalizeOptionalString(patch.ResponsibleSpeakerID); id != nil {
			if _, err = s.responsibleSpeaker(ctx, *id); err != nil {
				return
			}
			congregation.ResponsibleSpeakerID = *id
		}
	} else if id := normalizeOptionalString(patch.ResponsibleSpeakerID); id != nil && *id != congregation.ResponsibleSpeakerID {
		err = ErrUnauthorized
		return
	}

	if patch.MeetingSchedule != nil {
		congregation.MeetingSchedule = strings.TrimSpace(*patch.MeetingSchedule)
	}
	if patch.Address != nil {
		congregation.Address = strings.TrimSpace(*patch.Address)
	}
	congregation.UpdatedBy = params.Principal.UserID
	congregation.UpdatedAt = s.now()

	congregation, err = s.congregations.UpdateCongregation(ctx, congregation)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	congregation, err = s.withResponsible(ctx, congregation)
	return
}

// DeleteCongregation removes a congregation. Administrators only.
func (s *CongregationService) DeleteCongregation(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil {
		return fmt.Errorf("CongregationService is nil")
	}
	if s.congregations == nil {
		return fmt.Errorf("congregation repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteCongregation", "principal_id", principal.UserID, "congregation_id", id)
	defer func() {
		if err != nil {
			logger.Log(ctx, FailureLevel(err), "failed to delete congregation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "congregation deleted")
	}()

	if err = requireAdmin(principal); err != nil {
		return
	}
	if err = s.congregations.DeleteCongregation(ctx, id); err != nil {
		err = mapRepoError(err)
	}
	return
}

func (s *CongregationService) ensureNameFree(ctx context.Context, name, selfID string) error {
	existing, err := s.congregations.GetCongregationByName(ctx, name)
	switch {
	case err == nil:
		if existing.ID != selfID {
			return ErrAlreadyExists
		}
		return nil
	case errors.Is(mapRepoError(err), ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *CongregationService) responsibleSpeaker(ctx context.Context, id string) (*Speaker, error) {
	if s.speakers == nil {
		return nil, nil
	}
	speaker, err := s.speakers.GetSpeaker(ctx, id)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			return nil, ErrSpeakerNotFound
		}
		return nil, err
	}
	return &speaker, nil
}

func (s *CongregationService) withResponsible(ctx context.Context, congregation Congregation) (Congregation, error) {
	congregation.Responsible = nil
	if s.speakers == nil || congregation.ResponsibleSpeakerID == "" {
		return congregation, nil
	}
	speaker, err := s.speakers.GetSpeaker(ctx, congregation.ResponsibleSpeakerID)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			return congregation, nil
		}
		return Congregation{}, err
	}
	congregation.Responsible = &speaker
	return congregation, nil
}
