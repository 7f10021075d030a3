package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/speaker-scheduler/internal/calendar"
	"github.com/example/speaker-scheduler/internal/persistence"
	"github.com/example/speaker-scheduler/internal/scheduler"
)

// ProgramRepository captures the persistence operations needed by the program service.
type ProgramRepository interface {
	CreateProgram(ctx context.Context, program Program) (Program, error)
	UpdateProgram(ctx context.Context, program Program) (Program, error)
	GetProgram(ctx context.Context, id string) (Program, error)
	ListPrograms(ctx context.Context, filter ProgramFilter) ([]Program, error)
	DeleteProgram(ctx context.Context, id string) error
}

// SpeakerLookup reads speakers referenced by programs.
type SpeakerLookup interface {
	GetSpeaker(ctx context.Context, id string) (Speaker, error)
	ListSpeakers(ctx context.Context, filter SpeakerFilter) ([]Speaker, error)
}

// ProgramService schedules speakers on weekend dates. Every write re-reads the
// speaker's programs across all owners before saving, and the store's unique
// (speaker, date) index rejects whatever slips through concurrently.
type ProgramService struct {
	programs    ProgramRepository
	speakers    SpeakerLookup
	titles      scheduler.TalkTitles
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewProgramService constructs a program service with the provided dependencies.
func NewProgramService(programs ProgramRepository, speakers SpeakerLookup, titles scheduler.TalkTitles, idGenerator func() string, now func() time.Time) *ProgramService {
	return NewProgramServiceWithLogger(programs, speakers, titles, idGenerator, now, nil)
}

// NewProgramServiceWithLogger constructs a program service with a specified logger.
func NewProgramServiceWithLogger(programs ProgramRepository, speakers SpeakerLookup, titles scheduler.TalkTitles, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ProgramService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ProgramService{
		programs:    programs,
		speakers:    speakers,
		titles:      titles,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *ProgramService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ProgramService", operation, attrs...)
}

// CreateProgram books a speaker on a weekend date for the caller.
func (s *ProgramService) CreateProgram(ctx context.Context, params CreateProgramParams) (result ProgramResult, err error) {
	if s == nil {
		err = fmt.Errorf("ProgramService is nil")
		return
	}
	if s.programs == nil || s.speakers == nil {
		err = fmt.Errorf("program service not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateProgram",
		"principal_id", params.Principal.UserID,
		"speaker_id", params.Input.SpeakerID,
		"date", params.Input.Date,
	)
	defer func() {
		if err != nil {
			logger.Log(ctx, FailureLevel(err), "failed to create program", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"program_id", result.Program.ID,
			"monthly_warning", result.Warnings.Monthly != nil,
		).InfoContext(ctx, "program created")
	}()

	if err = requireApproved(params.Principal); err != nil {
		return
	}

	input := ProgramInput{
		Date:      strings.TrimSpace(params.Input.Date),
		Time:      strings.TrimSpace(params.Input.Time),
		SpeakerID: strings.TrimSpace(params.Input.SpeakerID),
		Talk:      params.Input.Talk,
		Note:      strings.TrimSpace(params.Input.Note),
	}
	if vErr := validateInput(ctx, input); vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	program := Program{
		ID:        s.idGenerator(),
		OwnerID:   params.Principal.UserID,
		SpeakerID: input.SpeakerID,
		Time:      input.Time,
		Talk:      input.Talk,
		Note:      input.Note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	program.Date, err = parseProgramDate(input.Date)
	if err != nil {
		return
	}

	var speaker Speaker
	var snapshot []scheduler.Slot
	speaker, snapshot, err = s.prepareSave(ctx, program)
	if err != nil {
		return
	}

	var persisted Program
	persisted, err = s.programs.CreateProgram(ctx, program)
	if err != nil {
		err = mapProgramRepoError(err, program)
		return
	}
	persisted.Speaker = &speaker

	result = ProgramResult{Program: persisted, Warnings: s.warnings(program, speaker, snapshot)}
	return
}

// UpdateProgram applies a partial update to one of the caller's programs.
// Omitted fields keep their stored value.
func (s *ProgramService) UpdateProgram(ctx context.Context, params UpdateProgramParams) (result ProgramResult, err error) {
	if s == nil {
		err = fmt.Errorf("ProgramService is nil")
		return
	}
	if s.programs == nil || s.speakers == nil {
		err = fmt.Errorf("program service not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateProgram",
		"principal_id", params.Principal.UserID,
		"program_id", params.ProgramID,
	)
	defer func() {
		if err != nil {
			logger.Log(ctx, FailureLevel(err), "failed to update program", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("monthly_warning", result.Warnings.Monthly != nil).InfoContext(ctx, "program updated")
	}()

	if err = requireApproved(params.Principal); err != nil {
		return
	}

	var program Program
	program, err = s.ownedProgram(ctx, params.Principal, params.ProgramID)
	if err != nil {
		return
	}

	patch := params.Patch
	if vErr := validateInput(ctx, patch); vErr.HasErrors() {
		err = vErr
		return
	}

	if patch.Date != nil && strings.TrimSpace(*patch.Date) != "" {
		program.Date, err = parseProgramDate(*patch.Date)
		if err != nil {
			return
		}
	}
	if patch.Time != nil && strings.TrimSpace(*patch.Time) != "" {
		program.Time = strings.TrimSpace(*patch.Time)
	}
	if patch.SpeakerID != nil && strings.TrimSpace(*patch.SpeakerID) != "" {
		program.SpeakerID = strings.TrimSpace(*patch.SpeakerID)
	}
	if patch.Talk != nil {
		program.Talk = *patch.Talk
	}
	if patch.Note != nil {
		program.Note = strings.TrimSpace(*patch.Note)
	}
	program.Speaker = nil
	program.UpdatedAt = s.now()

	var speaker Speaker
	var snapshot []scheduler.Slot
	speaker, snapshot, err = s.prepareSave(ctx, program)
	if err != nil {
		return
	}

	var persisted Program
	persisted, err = s.programs.UpdateProgram(ctx, program)
	if err != nil {
		err = mapProgramRepoError(err, program)
		return
	}
	persisted.Speaker = &speaker

	result = ProgramResult{Program: persisted, Warnings: s.warnings(program, speaker, snapshot)}
	return
}

// prepareSave runs the authoritative checks shared by create and update and
// returns the speaker with a fresh snapshot of their programs.
func (s *ProgramService) prepareSave(ctx context.Context, program Program) (Speaker, []scheduler.Slot, error) {
	if err := scheduler.ValidateWeekendDate(program.Date); err != nil {
		return Speaker{}, nil, fmt.Errorf("%w: %w", ErrInvalidDate, err)
	}
	if !scheduler.ValidTalkNumber(program.Talk) {
		return Speaker{}, nil, fmt.Errorf("%w: %d", ErrTalkNumberOutOfRange, program.Talk)
	}

	speaker, err := s.speakers.GetSpeaker(ctx, program.SpeakerID)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			return Speaker{}, nil, ErrSpeakerNotFound
		}
		return Speaker{}, nil, err
	}

	programs, err := s.programs.ListPrograms(ctx, ProgramFilter{SpeakerID: program.SpeakerID})
	if err != nil {
		return Speaker{}, nil, mapRepoError(err)
	}
	snapshot := programSlots(programs)

	if err := scheduler.CheckConflict(program.SpeakerID, program.Date, snapshot, program.ID); err != nil {
		return Speaker{}, nil, err
	}
	return speaker, snapshot, nil
}

func (s *ProgramService) warnings(program Program, speaker Speaker, snapshot []scheduler.Slot) ProgramWarnings {
	return ProgramWarnings{
		Monthly:             scheduler.CheckMonthlyFrequency(program.SpeakerID, program.Date, snapshot, program.ID),
		TalkNotInRepertoire: !speaker.Talks.Contains(program.Talk),
	}
}

// DeleteProgram removes one of the caller's programs.
func (s *ProgramService) DeleteProgram(ctx context.Context, principal Principal, programID string) (err error) {
	if s == nil {
		return fmt.Errorf("ProgramService is nil")
	}
	if s.programs == nil {
		return fmt.Errorf("program repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteProgram", "principal_id", principal.UserID, "program_id", programID)
	defer func() {
		if err != nil {
			logger.Log(ctx, FailureLevel(err), "failed to delete program", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "program deleted")
	}()

	if err = requireApproved(principal); err != nil {
		return
	}
	if _, err = s.ownedProgram(ctx, principal, programID); err != nil {
		return
	}
	if err = s.programs.DeleteProgram(ctx, programID); err != nil {
		err = mapRepoError(err)
	}
	return
}

// GetProgram returns one of the caller's programs with its speaker.
func (s *ProgramService) GetProgram(ctx context.Context, principal Principal, programID string) (Program, error) {
	if s == nil {
		return Program{}, fmt.Errorf("ProgramService is nil")
	}
	if s.programs == nil {
		return Program{}, ErrNotFound
	}
	if err := requireApproved(principal); err != nil {
		return Program{}, err
	}
	program, err := s.ownedProgram(ctx, principal, programID)
	if err != nil {
		return Program{}, err
	}
	if s.speakers != nil {
		if speaker, err := s.speakers.GetSpeaker(ctx, program.SpeakerID); err == nil {
			program.Speaker = &speaker
		} else if !errors.Is(mapRepoError(err), ErrNotFound) {
			return Program{}, err
		}
	}
	return program, nil
}

// ListPrograms returns the caller's programs ordered by date and time, each
// with its speaker embedded when the speaker still exists.
func (s *ProgramService) ListPrograms(ctx context.Context, principal Principal) (programs []Program, err error) {
	if s == nil {
		err = fmt.Errorf("ProgramService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ListPrograms", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.Log(ctx, FailureLevel(err), "failed to list programs", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(programs)).DebugContext(ctx, "programs listed")
	}()

	if err = requireApproved(principal); err != nil {
		return
	}
	if s.programs == nil {
		programs = []Program{}
		return
	}

	var raw []Program
	raw, err = s.programs.ListPrograms(ctx, ProgramFilter{OwnerID: principal.UserID})
	if err != nil {
		err = mapRepoError(err)
		return
	}

	speakers := map[string]Speaker{}
	if s.speakers != nil && len(raw) > 0 {
		var all []Speaker
		all, err = s.speakers.ListSpeakers(ctx, SpeakerFilter{})
		if err != nil {
			err = mapRepoError(err)
			return
		}
		for _, sp := range all {
			speakers[sp.ID] = sp
		}
	}

	programs = make([]Program, len(raw))
	for i, p := range raw {
		if sp, ok := speakers[p.SpeakerID]; ok {
			sp := sp
			p.Speaker = &sp
		} else {
			p.Speaker = nil
		}
		programs[i] = p
	}
	sortPrograms(programs)
	return
}

// OccupiedDates lists the dates a speaker is booked on by any owner.
func (s *ProgramService) OccupiedDates(ctx context.Context, principal Principal, speakerID string) ([]scheduler.Date, error) {
	if s == nil {
		return nil, fmt.Errorf("ProgramService is nil")
	}
	if err := requireApproved(principal); err != nil {
		return nil, err
	}
	speakerID = strings.TrimSpace(speakerID)
	if speakerID == "" {
		vErr := &ValidationError{}
		vErr.add("speaker_id", missingField)
		return nil, vErr
	}
	if s.programs == nil {
		return []scheduler.Date{}, nil
	}
	programs, err := s.programs.ListPrograms(ctx, ProgramFilter{SpeakerID: speakerID})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return scheduler.OccupiedDates(speakerID, programSlots(programs)), nil
}

// CheckAvailability is the form-level pre-check. It reports conflicts and the
// monthly warning without writing anything.
func (s *ProgramService) CheckAvailability(ctx context.Context, params AvailabilityParams) (availability Availability, err error) {
	if s == nil {
		err = fmt.Errorf("ProgramService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CheckAvailability",
		"principal_id", params.Principal.UserID,
		"speaker_id", params.SpeakerID,
		"date", params.Date,
	)
	defer func() {
		if err != nil {
			logger.Log(ctx, FailureLevel(err), "availability check failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("available", availability.Available).DebugContext(ctx, "availability checked")
	}()

	if err = requireApproved(params.Principal); err != nil {
		return
	}

	speakerID := strings.TrimSpace(params.SpeakerID)
	vErr := &ValidationError{}
	if speakerID == "" {
		vErr.add("speaker_id", missingField)
	}
	if strings.TrimSpace(params.Date) == "" {
		vErr.add("date", missingField)
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var date scheduler.Date
	date, err = parseProgramDate(params.Date)
	if err != nil {
		return
	}

	if s.speakers != nil {
		if _, err = s.speakers.GetSpeaker(ctx, speakerID); err != nil {
			if errors.Is(mapRepoError(err), ErrNotFound) {
				err = ErrSpeakerNotFound
			}
			return
		}
	}

	var slots []scheduler.Slot
	if s.programs != nil {
		var programs []Program
		programs, err = s.programs.ListPrograms(ctx, ProgramFilter{SpeakerID: speakerID})
		if err != nil {
			err = mapRepoError(err)
			return
		}
		slots = programSlots(programs)
	}

	exclude := strings.TrimSpace(params.ExcludeProgramID)
	availability = Availability{
		SpeakerID: speakerID,
		Date:      date,
		Available: true,
		Monthly:   scheduler.CheckMonthlyFrequency(speakerID, date, slots, exclude),
	}
	var conflict *scheduler.ConflictError
	if errors.As(scheduler.CheckConflict(speakerID, date, slots, exclude), &conflict) {
		availability.Available = false
		availability.Conflict = conflict
	}
	return
}

// ExportCalendar renders the caller's programs as an iCalendar document.
func (s *ProgramService) ExportCalendar(ctx context.Context, principal Principal) (string, error) {
	programs, err := s.ListPrograms(ctx, principal)
	if err != nil {
		return "", err
	}

	entries := make([]calendar.Entry, 0, len(programs))
	for _, p := range programs {
		entry := calendar.Entry{
			ProgramID: p.ID,
			Date:      p.Date,
			Time:      p.Time,
			Talk:      p.Talk,
			Note:      p.Note,
		}
		if p.Speaker != nil {
			entry.SpeakerName = p.Speaker.FullName()
		}
		if s.titles != nil {
			entry.TalkTitle, _ = s.titles.Title(p.Talk)
		}
		entries = append(entries, entry)
	}
	return calendar.Export("Programmi", entries, s.now()), nil
}

func (s *ProgramService) ownedProgram(ctx context.Context, principal Principal, programID string) (Program, error) {
	program, err := s.programs.GetProgram(ctx, strings.TrimSpace(programID))
	if err != nil {
		return Program{}, mapRepoError(err)
	}
	// Programs of other owners are invisible for writes.
	if program.OwnerID != principal.UserID {
		return Program{}, ErrNotFound
	}
	return program, nil
}

func mapProgramRepoError(err error, program Program) error {
	if errors.Is(err, persistence.ErrDuplicate) {
		return &scheduler.ConflictError{SpeakerID: program.SpeakerID, Date: program.Date}
	}
	// Only the talk CHECK is caller-facing; other constraint failures are
	// wiring faults such as a missing id.
	if errors.Is(err, persistence.ErrConstraintViolation) && !scheduler.ValidTalkNumber(program.Talk) {
		return fmt.Errorf("%w: %v", ErrTalkNumberOutOfRange, err)
	}
	return mapRepoError(err)
}

func sortPrograms(programs []Program) {
	sort.SliceStable(programs, func(i, j int) bool {
		if c := programs[i].Date.Compare(programs[j].Date); c != 0 {
			return c < 0
		}
		if programs[i].Time != programs[j].Time {
			return programs[i].Time < programs[j].Time
		}
		return programs[i].ID < programs[j].ID
	})
}
