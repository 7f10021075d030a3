package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/speaker-scheduler/internal/geocoding"
	"github.com/example/speaker-scheduler/internal/scheduler"
)

// SpeakerRepository captures the persistence operations needed by the speaker service.
type SpeakerRepository interface {
	CreateSpeaker(ctx context.Context, speaker Speaker) (Speaker, error)
	UpdateSpeaker(ctx context.Context, speaker Speaker) (Speaker, error)
	GetSpeaker(ctx context.Context, id string) (Speaker, error)
	ListSpeakers(ctx context.Context, filter SpeakerFilter) ([]Speaker, error)
	DeleteSpeaker(ctx context.Context, id string) error
}

// ProgramSnapshot reads programs across every owner.
type ProgramSnapshot interface {
	ListPrograms(ctx context.Context, filter ProgramFilter) ([]Program, error)
}

// UserDirectory resolves users by ID.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (User, error)
}

// DistanceCalculator returns road-agnostic distances in km from one locality
// to many. Entries it cannot resolve are nil.
type DistanceCalculator interface {
	Distances(ctx context.Context, from string, targets map[string]string) map[string]*int
}

// SpeakerService orchestrates validation, authorization, and persistence for speakers.
type SpeakerService struct {
	speakers    SpeakerRepository
	programs    ProgramSnapshot
	users       UserDirectory
	distances   DistanceCalculator
	titles      scheduler.TalkTitles
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewSpeakerService constructs a speaker service with the provided dependencies.
func NewSpeakerService(speakers SpeakerRepository, programs ProgramSnapshot, users UserDirectory, distances DistanceCalculator, titles scheduler.TalkTitles, idGenerator func() string, now func() time.Time) *SpeakerService {
	return NewSpeakerServiceWithLogger(speakers, programs, users, distances, titles, idGenerator, now, nil)
}

// NewSpeakerServiceWithLogger constructs a speaker service with a specified logger.
func NewSpeakerServiceWithLogger(speakers SpeakerRepository, programs ProgramSnapshot, users UserDirectory, distances DistanceCalculator, titles scheduler.TalkTitles, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SpeakerService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SpeakerService{
		speakers:    speakers,
		programs:    programs,
		users:       users,
		distances:   distances,
		titles:      titles,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *SpeakerService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SpeakerService", operation, attrs...)
}

// CreateSpeaker validates input and persists a new speaker.
func (s *SpeakerService) CreateSpeaker(ctx context.Context, params CreateSpeakerParams) (speaker Speaker, err error) {
	if s == nil {
		err = fmt.Errorf("SpeakerService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateSpeaker", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.Log(ctx, FailureLevel(err), "failed to create speaker", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("speaker_id", speaker.ID).InfoContext(ctx, "speaker created")
	}()

	if err = requireApproved(params.Principal); err != nil {
		return
	}

	input := normalizeSpeakerInput(params.Input)
	if vErr := validateInput(ctx, input); vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	speaker = Speaker{
		ID:            s.idGenerator(),
		CreatedBy:     params.Principal.UserID,
		CreatedByName: params.Principal.DisplayName,
		CreatedAt:     now,
	}
	applySpeakerInput(&speaker, input, params.Principal, now)

	if s.speakers == nil {
		return
	}

	var persisted Speaker
	persisted, err = s.speakers.CreateSpeaker(ctx, speaker)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	speaker = persisted
	return
}

// UpdateSpeaker replaces the editable fields of an existing speaker.
func (s *SpeakerService) UpdateSpeaker(ctx context.Context, params UpdateSpeakerParams) (speaker Speaker, err error) {
	if s == nil {
		err = fmt.Errorf("SpeakerService is nil")
		return
	}
	if s.speakers == nil {
		err = fmt.Errorf("speaker repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateSpeaker",
		"principal_id", params.Principal.UserID,
		"speaker_id", params.SpeakerID,
	)
	defer func() {
		if err != nil {
			logger.Log(ctx, FailureLevel(err), "failed to update speaker", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "speaker updated")
	}()

	if err = requireApproved(params.Principal); err != nil {
		return
	}

	var existing Speaker
	existing, err = s.speakers.GetSpeaker(ctx, params.SpeakerID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	input := normalizeSpeakerInput(params.Input)
	if vErr := validateInput(ctx, input); vErr.HasErrors() {
		err = vErr
		return
	}

	speaker = existing
	applySpeakerInput(&speaker, input, params.Principal, s.now())

	speaker, err = s.speakers.UpdateSpeaker(ctx, speaker)
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

// GetSpeaker returns a single speaker.
func (s *SpeakerService) GetSpeaker(ctx context.Context, principal Principal, id string) (Speaker, error) {
	if s == nil {
		return Speaker{}, fmt.Errorf("SpeakerService is nil")
	}
	if err := requireApproved(principal); err != nil {
		return Speaker{}, err
	}
	if s.speakers == nil {
		return Speaker{}, ErrNotFound
	}
	speaker, err := s.speakers.GetSpeaker(ctx, id)
	if err != nil {
		return Speaker{}, mapRepoError(err)
	}
	return speaker, nil
}

// ListSpeakers returns speakers matching filter ordered by family then given name.
func (s *SpeakerService) ListSpeakers(ctx context.Context, principal Principal, filter SpeakerFilter) (speakers []Speaker, err error) {
	if s == nil {
		err = fmt.Errorf("SpeakerService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ListSpeakers", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.Log(ctx, FailureLevel(err), "failed to list speakers", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(speakers)).DebugContext(ctx, "speakers listed")
	}()

	if err = requireApproved(principal); err != nil {
		return
	}

	speakers, err = s.loadSpeakers(ctx, filter)
	if err != nil {
		return
	}

	if talk := strings.TrimSpace(filter.Talk); talk != "" {
		speakers = s.filterByTalk(speakers, talk)
	}
	return
}

// DeleteSpeaker removes a speaker. Programs keep their dangling reference.
func (s *SpeakerService) DeleteSpeaker(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil {
		return fmt.Errorf("SpeakerService is nil")
	}
	if s.speakers == nil {
		return fmt.Errorf("speaker repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteSpeaker", "principal_id", principal.UserID, "speaker_id", id)
	defer func() {
		if err != nil {
			logger.Log(ctx, FailureLevel(err), "failed to delete speaker", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "speaker deleted")
	}()

	if err = requireApproved(principal); err != nil {
		return
	}
	if err = s.speakers.DeleteSpeaker(ctx, id); err != nil {
		err = mapRepoError(err)
	}
	return
}

// Candidates ranks speakers for a program date: text filter, availability
// partition and distance from the requested or profile locality.
func (s *SpeakerService) Candidates(ctx context.Context, params CandidatesParams) (result CandidateList, err error) {
	if s == nil {
		err = fmt.Errorf("SpeakerService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Candidates",
		"principal_id", params.Principal.UserID,
		"date", params.Date,
	)
	defer func() {
		if err != nil {
			logger.Log(ctx, FailureLevel(err), "failed to rank candidates", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"available", len(result.Available),
			"unavailable", len(result.Unavailable),
		).DebugContext(ctx, "candidates ranked")
	}()

	if err = requireApproved(params.Principal); err != nil {
		return
	}

	query := scheduler.CandidateQuery{
		Text:          params.Query,
		ExcludeSlotID: strings.TrimSpace(params.ExcludeProgramID),
	}
	if raw := strings.TrimSpace(params.Date); raw != "" {
		var date scheduler.Date
		date, err = parseProgramDate(raw)
		if err != nil {
			return
		}
		query.Date = &date
		result.Date = &date
	}

	var speakers []Speaker
	speakers, err = s.loadSpeakers(ctx, SpeakerFilter{})
	if err != nil {
		return
	}

	var slots []scheduler.Slot
	if s.programs != nil {
		var programs []Program
		programs, err = s.programs.ListPrograms(ctx, ProgramFilter{})
		if err != nil {
			err = mapRepoError(err)
			return
		}
		slots = programSlots(programs)
	}

	from := s.originLocality(ctx, params)
	if s.distances != nil && from != "" {
		targets := make(map[string]string, len(speakers))
		for _, sp := range speakers {
			if loc := derefString(sp.Locality); strings.TrimSpace(loc) != "" {
				targets[sp.ID] = loc
			}
		}
		query.Distances = s.distances.Distances(ctx, from, targets)
	}

	core := make([]scheduler.Speaker, len(speakers))
	byID := make(map[string]Speaker, len(speakers))
	for i, sp := range speakers {
		core[i] = sp.core()
		byID[sp.ID] = sp
	}

	ranked := scheduler.RankCandidates(core, slots, query)
	result.Available = toCandidates(ranked.Available, byID)
	result.Unavailable = toCandidates(ranked.Unavailable, byID)
	return
}

func (s *SpeakerService) originLocality(ctx context.Context, params CandidatesParams) string {
	if from := normalizeOptionalString(params.From); from != nil {
		return *from
	}
	if s.users == nil {
		return ""
	}
	user, err := s.users.GetUser(ctx, params.Principal.UserID)
	if err != nil {
		s.loggerWith(ctx, "Candidates").WarnContext(ctx, "profile locality unavailable", "error", err)
		return ""
	}
	return strings.TrimSpace(derefString(user.Locality))
}

func (s *SpeakerService) loadSpeakers(ctx context.Context, filter SpeakerFilter) ([]Speaker, error) {
	if s.speakers == nil {
		return []Speaker{}, nil
	}
	raw, err := s.speakers.ListSpeakers(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err)
	}
	speakers := make([]Speaker, len(raw))
	copy(speakers, raw)
	sortSpeakers(speakers)
	return speakers, nil
}

func (s *SpeakerService) filterByTalk(speakers []Speaker, query string) []Speaker {
	core := make([]scheduler.Speaker, len(speakers))
	for i, sp := range speakers {
		core[i] = sp.core()
	}
	kept := make(map[string]struct{})
	for _, sp := range scheduler.FilterByTalk(core, query, s.titles) {
		kept[sp.ID] = struct{}{}
	}
	out := make([]Speaker, 0, len(kept))
	for _, sp := range speakers {
		if _, ok := kept[sp.ID]; ok {
			out = append(out, sp)
		}
	}
	return out
}

func toCandidates(ranked []scheduler.Candidate, byID map[string]Speaker) []Candidate {
	out := make([]Candidate, 0, len(ranked))
	for _, c := range ranked {
		out = append(out, Candidate{
			Speaker:       byID[c.Speaker.ID],
			DistanceKm:    c.DistanceKm,
			Distance:      geocoding.FormatDistance(c.DistanceKm),
			OccupiedDates: c.OccupiedDates,
		})
	}
	return out
}

func normalizeSpeakerInput(input SpeakerInput) SpeakerInput {
	return SpeakerInput{
		GivenName:    strings.TrimSpace(input.GivenName),
		FamilyName:   strings.TrimSpace(input.FamilyName),
		Email:        normalizeOptionalString(input.Email),
		Phone:        normalizeOptionalString(input.Phone),
		Congregation: strings.TrimSpace(input.Congregation),
		Locality:     normalizeOptionalString(input.Locality),
		Talks:        input.Talks,
	}
}

func applySpeakerInput(speaker *Speaker, input SpeakerInput, principal Principal, now time.Time) {
	speaker.GivenName = input.GivenName
	speaker.FamilyName = input.FamilyName
	speaker.Email = input.Email
	speaker.Phone = input.Phone
	speaker.Congregation = input.Congregation
	speaker.Locality = input.Locality
	speaker.Talks = scheduler.Repertoire(input.Talks).Normalize()
	speaker.UpdatedBy = principal.UserID
	speaker.UpdatedByName = principal.DisplayName
	speaker.UpdatedAt = now
}

func sortSpeakers(speakers []Speaker) {
	sort.SliceStable(speakers, func(i, j int) bool {
		fi, fj := strings.ToLower(speakers[i].FamilyName), strings.ToLower(speakers[j].FamilyName)
		if fi != fj {
			return fi < fj
		}
		gi, gj := strings.ToLower(speakers[i].GivenName), strings.ToLower(speakers[j].GivenName)
		if gi != gj {
			return gi < gj
		}
		return speakers[i].ID < speakers[j].ID
	})
}

func programSlots(programs []Program) []scheduler.Slot {
	slots := make([]scheduler.Slot, len(programs))
	for i, p := range programs {
		slots[i] = p.slot()
	}
	return slots
}

// parseProgramDate accepts YYYY-MM-DD weekend dates.
func parseProgramDate(raw string) (scheduler.Date, error) {
	date, err := scheduler.ParseDate(raw)
	if err != nil {
		return scheduler.Date{}, fmt.Errorf("%w: %w", ErrInvalidDate, err)
	}
	if err := scheduler.ValidateWeekendDate(date); err != nil {
		return scheduler.Date{}, fmt.Errorf("%w: %w", ErrInvalidDate, err)
	}
	return date, nil
}
