package main

import (
	"context"
	"fmt"
	"time"

	"github.com/example/speaker-scheduler/internal/application"
	"github.com/example/speaker-scheduler/internal/persistence"
	"github.com/example/speaker-scheduler/internal/scheduler"
)

type speakerRepositoryAdapter struct {
	repo persistence.SpeakerRepository
}

func newSpeakerRepositoryAdapter(repo persistence.SpeakerRepository) *speakerRepositoryAdapter {
	return &speakerRepositoryAdapter{repo: repo}
}

func (a *speakerRepositoryAdapter) CreateSpeaker(ctx context.Context, speaker application.Speaker) (application.Speaker, error) {
	if err := a.repo.CreateSpeaker(ctx, toPersistenceSpeaker(speaker)); err != nil {
		return application.Speaker{}, err
	}
	return a.GetSpeaker(ctx, speaker.ID)
}

func (a *speakerRepositoryAdapter) UpdateSpeaker(ctx context.Context, speaker application.Speaker) (application.Speaker, error) {
	if err := a.repo.UpdateSpeaker(ctx, toPersistenceSpeaker(speaker)); err != nil {
		return application.Speaker{}, err
	}
	return a.GetSpeaker(ctx, speaker.ID)
}

func (a *speakerRepositoryAdapter) GetSpeaker(ctx context.Context, id string) (application.Speaker, error) {
	stored, err := a.repo.GetSpeaker(ctx, id)
	if err != nil {
		return application.Speaker{}, err
	}
	return toApplicationSpeaker(stored), nil
}

// ListSpeakers pushes the text filters down to storage. The talk filter needs
// the title catalog and is applied by the service.
func (a *speakerRepositoryAdapter) ListSpeakers(ctx context.Context, filter application.SpeakerFilter) ([]application.Speaker, error) {
	models, err := a.repo.ListSpeakers(ctx, persistence.SpeakerFilter{
		GivenName:    filter.GivenName,
		FamilyName:   filter.FamilyName,
		Congregation: filter.Congregation,
		Locality:     filter.Locality,
	})
	if err != nil {
		return nil, err
	}
	speakers := make([]application.Speaker, 0, len(models))
	for _, model := range models {
		speakers = append(speakers, toApplicationSpeaker(model))
	}
	return speakers, nil
}

func (a *speakerRepositoryAdapter) DeleteSpeaker(ctx context.Context, id string) error {
	return a.repo.DeleteSpeaker(ctx, id)
}

type programRepositoryAdapter struct {
	repo persistence.ProgramRepository
}

func newProgramRepositoryAdapter(repo persistence.ProgramRepository) *programRepositoryAdapter {
	return &programRepositoryAdapter{repo: repo}
}

func (a *programRepositoryAdapter) CreateProgram(ctx context.Context, program application.Program) (application.Program, error) {
	if err := a.repo.CreateProgram(ctx, toPersistenceProgram(program)); err != nil {
		return application.Program{}, err
	}
	return a.GetProgram(ctx, program.ID)
}

func (a *programRepositoryAdapter) UpdateProgram(ctx context.Context, program application.Program) (application.Program, error) {
	if err := a.repo.UpdateProgram(ctx, toPersistenceProgram(program)); err != nil {
		return application.Program{}, err
	}
	return a.GetProgram(ctx, program.ID)
}

func (a *programRepositoryAdapter) GetProgram(ctx context.Context, id string) (application.Program, error) {
	stored, err := a.repo.GetProgram(ctx, id)
	if err != nil {
		return application.Program{}, err
	}
	return toApplicationProgram(stored)
}

func (a *programRepositoryAdapter) ListPrograms(ctx context.Context, filter application.ProgramFilter) ([]application.Program, error) {
	models, err := a.repo.ListPrograms(ctx, persistence.ProgramFilter{
		OwnerID:   filter.OwnerID,
		SpeakerID: filter.SpeakerID,
		Date:      filter.Date,
	})
	if err != nil {
		return nil, err
	}
	programs := make([]application.Program, 0, len(models))
	for _, model := range models {
		program, err := toApplicationProgram(model)
		if err != nil {
			return nil, err
		}
		programs = append(programs, program)
	}
	return programs, nil
}

func (a *programRepositoryAdapter) DeleteProgram(ctx context.Context, id string) error {
	return a.repo.DeleteProgram(ctx, id)
}

type congregationRepositoryAdapter struct {
	repo persistence.CongregationRepository
}

func newCongregationRepositoryAdapter(repo persistence.CongregationRepository) *congregationRepositoryAdapter {
	return &congregationRepositoryAdapter{repo: repo}
}

func (a *congregationRepositoryAdapter) CreateCongregation(ctx context.Context, congregation application.Congregation) (application.Congregation, error) {
	if err := a.repo.CreateCongregation(ctx, toPersistenceCongregation(congregation)); err != nil {
		return application.Congregation{}, err
	}
	return a.GetCongregation(ctx, congregation.ID)
}

func (a *congregationRepositoryAdapter) UpdateCongregation(ctx context.Context, congregation application.Congregation) (application.Congregation, error) {
	if err := a.repo.UpdateCongregation(ctx, toPersistenceCongregation(congregation)); err != nil {
		return application.Congregation{}, err
	}
	return a.GetCongregation(ctx, congregation.ID)
}

func (a *congregationRepositoryAdapter) GetCongregation(ctx context.Context, id string) (application.Congregation, error) {
	stored, err := a.repo.GetCongregation(ctx, id)
	if err != nil {
		return application.Congregation{}, err
	}
	return toApplicationCongregation(stored), nil
}

func (a *congregationRepositoryAdapter) GetCongregationByName(ctx context.Context, name string) (application.Congregation, error) {
	stored, err := a.repo.GetCongregationByName(ctx, name)
	if err != nil {
		return application.Congregation{}, err
	}
	return toApplicationCongregation(stored), nil
}

func (a *congregationRepositoryAdapter) ListCongregations(ctx context.Context) ([]application.Congregation, error) {
	models, err := a.repo.ListCongregations(ctx)
	if err != nil {
		return nil, err
	}
	congregations := make([]application.Congregation, 0, len(models))
	for _, model := range models {
		congregations = append(congregations, toApplicationCongregation(model))
	}
	return congregations, nil
}

func (a *congregationRepositoryAdapter) DeleteCongregation(ctx context.Context, id string) error {
	return a.repo.DeleteCongregation(ctx, id)
}

// userRepositoryAdapter also serves as the auth service credential store.
type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, credentials application.UserCredentials) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(credentials.User, credentials.PasswordHash)); err != nil {
		return application.User{}, err
	}
	return a.GetUser(ctx, credentials.User.ID)
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUserBySpeaker(ctx context.Context, speakerID string) (application.User, error) {
	stored, err := a.repo.GetUserBySpeaker(ctx, speakerID)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

// UpdateUser keeps the stored password hash; the application never changes it.
func (a *userRepositoryAdapter) UpdateUser(ctx context.Context, user application.User) (application.User, error) {
	current, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, err
	}
	if err := a.repo.UpdateUser(ctx, toPersistenceUser(user, current.PasswordHash)); err != nil {
		return application.User{}, err
	}
	return a.GetUser(ctx, user.ID)
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context, filter application.UserFilter) ([]application.User, error) {
	models, err := a.repo.ListUsers(ctx, persistence.UserFilter{
		Role:   string(filter.Role),
		Status: string(filter.Status),
	})
	if err != nil {
		return nil, err
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

func (a *userRepositoryAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{
		User:         toApplicationUser(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

func toApplicationSpeaker(model persistence.Speaker) application.Speaker {
	return application.Speaker{
		ID:            model.ID,
		GivenName:     model.GivenName,
		FamilyName:    model.FamilyName,
		Email:         cloneString(model.Email),
		Phone:         cloneString(model.Phone),
		Congregation:  model.Congregation,
		Locality:      cloneString(model.Locality),
		Talks:         append(scheduler.Repertoire{}, model.Talks...),
		CreatedBy:     model.CreatedBy,
		CreatedByName: model.CreatedByName,
		UpdatedBy:     model.UpdatedBy,
		UpdatedByName: model.UpdatedByName,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

func toPersistenceSpeaker(speaker application.Speaker) persistence.Speaker {
	return persistence.Speaker{
		ID:            speaker.ID,
		GivenName:     speaker.GivenName,
		FamilyName:    speaker.FamilyName,
		Email:         cloneString(speaker.Email),
		Phone:         cloneString(speaker.Phone),
		Congregation:  speaker.Congregation,
		Locality:      cloneString(speaker.Locality),
		Talks:         append([]int(nil), speaker.Talks...),
		CreatedBy:     speaker.CreatedBy,
		CreatedByName: speaker.CreatedByName,
		UpdatedBy:     speaker.UpdatedBy,
		UpdatedByName: speaker.UpdatedByName,
		CreatedAt:     speaker.CreatedAt,
		UpdatedAt:     speaker.UpdatedAt,
	}
}

func toApplicationProgram(model persistence.Program) (application.Program, error) {
	date, err := scheduler.ParseDate(model.Date)
	if err != nil {
		return application.Program{}, fmt.Errorf("program %s: stored date: %w", model.ID, err)
	}
	return application.Program{
		ID:        model.ID,
		OwnerID:   model.OwnerID,
		SpeakerID: model.SpeakerID,
		Date:      date,
		Time:      model.Time,
		Talk:      model.Talk,
		Note:      model.Note,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}, nil
}

func toPersistenceProgram(program application.Program) persistence.Program {
	return persistence.Program{
		ID:        program.ID,
		OwnerID:   program.OwnerID,
		SpeakerID: program.SpeakerID,
		Date:      program.Date.String(),
		Time:      program.Time,
		Talk:      program.Talk,
		Note:      program.Note,
		CreatedAt: program.CreatedAt,
		UpdatedAt: program.UpdatedAt,
	}
}

func toApplicationCongregation(model persistence.Congregation) application.Congregation {
	return application.Congregation{
		ID:                   model.ID,
		Name:                 model.Name,
		ResponsibleSpeakerID: model.ResponsibleSpeakerID,
		MeetingSchedule:      model.MeetingSchedule,
		Address:              model.Address,
		CreatedBy:            model.CreatedBy,
		UpdatedBy:            model.UpdatedBy,
		CreatedAt:            model.CreatedAt,
		UpdatedAt:            model.UpdatedAt,
	}
}

func toPersistenceCongregation(congregation application.Congregation) persistence.Congregation {
	return persistence.Congregation{
		ID:                   congregation.ID,
		Name:                 congregation.Name,
		ResponsibleSpeakerID: congregation.ResponsibleSpeakerID,
		MeetingSchedule:      congregation.MeetingSchedule,
		Address:              congregation.Address,
		CreatedBy:            congregation.CreatedBy,
		UpdatedBy:            congregation.UpdatedBy,
		CreatedAt:            congregation.CreatedAt,
		UpdatedAt:            congregation.UpdatedAt,
	}
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:              model.ID,
		Email:           model.Email,
		GivenName:       model.GivenName,
		FamilyName:      model.FamilyName,
		Phone:           cloneString(model.Phone),
		Congregation:    cloneString(model.Congregation),
		Locality:        cloneString(model.Locality),
		Role:            application.Role(model.Role),
		Status:          application.Status(model.Status),
		SpeakerID:       cloneString(model.SpeakerID),
		RequestedAt:     model.RequestedAt,
		ApprovedAt:      cloneTime(model.ApprovedAt),
		ApprovedBy:      cloneString(model.ApprovedBy),
		RejectedAt:      cloneTime(model.RejectedAt),
		RejectedBy:      cloneString(model.RejectedBy),
		RejectionReason: cloneString(model.RejectionReason),
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:              user.ID,
		Email:           user.Email,
		PasswordHash:    passwordHash,
		GivenName:       user.GivenName,
		FamilyName:      user.FamilyName,
		Phone:           cloneString(user.Phone),
		Congregation:    cloneString(user.Congregation),
		Locality:        cloneString(user.Locality),
		Role:            string(user.Role),
		Status:          string(user.Status),
		SpeakerID:       cloneString(user.SpeakerID),
		RequestedAt:     user.RequestedAt,
		ApprovedAt:      cloneTime(user.ApprovedAt),
		ApprovedBy:      cloneString(user.ApprovedBy),
		RejectedAt:      cloneTime(user.RejectedAt),
		RejectedBy:      cloneString(user.RejectedBy),
		RejectionReason: cloneString(user.RejectionReason),
		CreatedAt:       user.CreatedAt,
		UpdatedAt:       user.UpdatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
