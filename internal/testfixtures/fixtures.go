package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/speaker-scheduler/internal/application"
	"github.com/example/speaker-scheduler/internal/persistence"
	"github.com/example/speaker-scheduler/internal/scheduler"
)

var (
	speakerCounter      uint64
	programCounter      uint64
	congregationCounter uint64
	userCounter         uint64
)

// referenceTime falls on a Saturday so that derived program dates are weekends.
var referenceTime = time.Date(2025, time.January, 4, 9, 30, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// Saturday returns the Saturday weeks after the reference date.
func Saturday(weeks int) scheduler.Date {
	return scheduler.DateOf(referenceTime.AddDate(0, 0, 7*weeks))
}

// --------------------------- Speaker fixtures ----------------------------

// SpeakerFixture is a deterministic speaker record.
type SpeakerFixture struct {
	ID           string
	GivenName    string
	FamilyName   string
	Email        *string
	Congregation string
	Locality     *string
	Talks        []int
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SpeakerOption configures the generated speaker fixture.
type SpeakerOption func(*SpeakerFixture)

// NewSpeakerFixture returns a deterministic speaker fixture with optional overrides.
func NewSpeakerFixture(opts ...SpeakerOption) SpeakerFixture {
	idx := atomic.AddUint64(&speakerCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := SpeakerFixture{
		ID:           fmt.Sprintf("speaker-%03d", idx),
		GivenName:    fmt.Sprintf("Nome%03d", idx),
		FamilyName:   fmt.Sprintf("Cognome%03d", idx),
		Congregation: "Roma Centro",
		Talks:        []int{int(1 + idx%scheduler.MaxTalkNumber)},
		CreatedBy:    "system",
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSpeakerID overrides the generated speaker ID.
func WithSpeakerID(id string) SpeakerOption {
	return func(f *SpeakerFixture) { f.ID = id }
}

// WithSpeakerName overrides given and family name.
func WithSpeakerName(given, family string) SpeakerOption {
	return func(f *SpeakerFixture) {
		f.GivenName = given
		f.FamilyName = family
	}
}

// WithSpeakerCongregation overrides the congregation label.
func WithSpeakerCongregation(congregation string) SpeakerOption {
	return func(f *SpeakerFixture) { f.Congregation = congregation }
}

// WithSpeakerLocality sets the locality used for distances.
func WithSpeakerLocality(locality string) SpeakerOption {
	return func(f *SpeakerFixture) {
		value := locality
		f.Locality = &value
	}
}

// WithSpeakerEmail sets the contact email.
func WithSpeakerEmail(email string) SpeakerOption {
	return func(f *SpeakerFixture) {
		value := email
		f.Email = &value
	}
}

// WithSpeakerTalks replaces the repertoire.
func WithSpeakerTalks(talks ...int) SpeakerOption {
	return func(f *SpeakerFixture) { f.Talks = append([]int(nil), talks...) }
}

// Application returns the fixture as an application.Speaker value.
func (f SpeakerFixture) Application() application.Speaker {
	return application.Speaker{
		ID:           f.ID,
		GivenName:    f.GivenName,
		FamilyName:   f.FamilyName,
		Email:        copyStringPtr(f.Email),
		Congregation: f.Congregation,
		Locality:     copyStringPtr(f.Locality),
		Talks:        scheduler.Repertoire(f.Talks).Normalize(),
		CreatedBy:    f.CreatedBy,
		UpdatedBy:    f.CreatedBy,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Speaker value.
func (f SpeakerFixture) Persistence() persistence.Speaker {
	return persistence.Speaker{
		ID:           f.ID,
		GivenName:    f.GivenName,
		FamilyName:   f.FamilyName,
		Email:        copyStringPtr(f.Email),
		Congregation: f.Congregation,
		Locality:     copyStringPtr(f.Locality),
		Talks:        append([]int(nil), f.Talks...),
		CreatedBy:    f.CreatedBy,
		UpdatedBy:    f.CreatedBy,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// Input returns the fixture as an application.SpeakerInput.
func (f SpeakerFixture) Input() application.SpeakerInput {
	return application.SpeakerInput{
		GivenName:    f.GivenName,
		FamilyName:   f.FamilyName,
		Email:        copyStringPtr(f.Email),
		Congregation: f.Congregation,
		Locality:     copyStringPtr(f.Locality),
		Talks:        append([]int(nil), f.Talks...),
	}
}

// --------------------------- Program fixtures ----------------------------

// ProgramFixture is a deterministic program record.
type ProgramFixture struct {
	ID        string
	OwnerID   string
	SpeakerID string
	Date      scheduler.Date
	Time      string
	Talk      int
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProgramOption configures the generated program fixture.
type ProgramOption func(*ProgramFixture)

// NewProgramFixture returns a program on a distinct Saturday per call.
func NewProgramFixture(opts ...ProgramOption) ProgramFixture {
	idx := atomic.AddUint64(&programCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := ProgramFixture{
		ID:        fmt.Sprintf("program-%03d", idx),
		OwnerID:   "user-001",
		SpeakerID: "speaker-001",
		Date:      Saturday(int(idx)),
		Time:      "10:00",
		Talk:      int(1 + idx%scheduler.MaxTalkNumber),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithProgramID overrides the generated program ID.
func WithProgramID(id string) ProgramOption {
	return func(f *ProgramFixture) { f.ID = id }
}

// WithProgramOwner sets the owning user.
func WithProgramOwner(ownerID string) ProgramOption {
	return func(f *ProgramFixture) { f.OwnerID = ownerID }
}

// WithProgramSpeaker sets the assigned speaker.
func WithProgramSpeaker(speakerID string) ProgramOption {
	return func(f *ProgramFixture) { f.SpeakerID = speakerID }
}

// WithProgramDate sets the program date.
func WithProgramDate(date scheduler.Date) ProgramOption {
	return func(f *ProgramFixture) { f.Date = date }
}

// WithProgramTime sets the start time.
func WithProgramTime(clock string) ProgramOption {
	return func(f *ProgramFixture) { f.Time = clock }
}

// WithProgramTalk sets the talk number.
func WithProgramTalk(talk int) ProgramOption {
	return func(f *ProgramFixture) { f.Talk = talk }
}

// Application returns the fixture as an application.Program value.
func (f ProgramFixture) Application() application.Program {
	return application.Program{
		ID:        f.ID,
		OwnerID:   f.OwnerID,
		SpeakerID: f.SpeakerID,
		Date:      f.Date,
		Time:      f.Time,
		Talk:      f.Talk,
		Note:      f.Note,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Program value.
func (f ProgramFixture) Persistence() persistence.Program {
	return persistence.Program{
		ID:        f.ID,
		OwnerID:   f.OwnerID,
		SpeakerID: f.SpeakerID,
		Date:      f.Date.String(),
		Time:      f.Time,
		Talk:      f.Talk,
		Note:      f.Note,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Input returns the fixture as an application.ProgramInput.
func (f ProgramFixture) Input() application.ProgramInput {
	return application.ProgramInput{
		Date:      f.Date.String(),
		Time:      f.Time,
		SpeakerID: f.SpeakerID,
		Talk:      f.Talk,
		Note:      f.Note,
	}
}

// ------------------------- Congregation fixtures -------------------------

// CongregationFixture is a deterministic congregation record.
type CongregationFixture struct {
	ID                   string
	Name                 string
	ResponsibleSpeakerID string
	MeetingSchedule      string
	Address              string
	CreatedBy            string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CongregationOption configures the generated congregation fixture.
type CongregationOption func(*CongregationFixture)

// NewCongregationFixture returns a deterministic congregation fixture.
func NewCongregationFixture(opts ...CongregationOption) CongregationFixture {
	idx := atomic.AddUint64(&congregationCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := CongregationFixture{
		ID:                   fmt.Sprintf("congregation-%03d", idx),
		Name:                 fmt.Sprintf("Congregazione %03d", idx),
		ResponsibleSpeakerID: "speaker-001",
		MeetingSchedule:      "Domenica 10:00",
		CreatedBy:            "system",
		CreatedAt:            created,
		UpdatedAt:            created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithCongregationID overrides the generated congregation ID.
func WithCongregationID(id string) CongregationOption {
	return func(f *CongregationFixture) { f.ID = id }
}

// WithCongregationName overrides the generated name.
func WithCongregationName(name string) CongregationOption {
	return func(f *CongregationFixture) { f.Name = name }
}

// WithCongregationResponsible sets the responsible speaker.
func WithCongregationResponsible(speakerID string) CongregationOption {
	return func(f *CongregationFixture) { f.ResponsibleSpeakerID = speakerID }
}

// Application returns the fixture as an application.Congregation value.
func (f CongregationFixture) Application() application.Congregation {
	return application.Congregation{
		ID:                   f.ID,
		Name:                 f.Name,
		ResponsibleSpeakerID: f.ResponsibleSpeakerID,
		MeetingSchedule:      f.MeetingSchedule,
		Address:              f.Address,
		CreatedBy:            f.CreatedBy,
		UpdatedBy:            f.CreatedBy,
		CreatedAt:            f.CreatedAt,
		UpdatedAt:            f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Congregation value.
func (f CongregationFixture) Persistence() persistence.Congregation {
	return persistence.Congregation{
		ID:                   f.ID,
		Name:                 f.Name,
		ResponsibleSpeakerID: f.ResponsibleSpeakerID,
		MeetingSchedule:      f.MeetingSchedule,
		Address:              f.Address,
		CreatedBy:            f.CreatedBy,
		UpdatedBy:            f.CreatedBy,
		CreatedAt:            f.CreatedAt,
		UpdatedAt:            f.UpdatedAt,
	}
}

// ----------------------------- User fixtures -----------------------------

// UserFixture is a deterministic account record.
type UserFixture struct {
	ID           string
	Email        string
	GivenName    string
	FamilyName   string
	PasswordHash string
	Locality     *string
	Role         application.Role
	Status       application.Status
	SpeakerID    *string
	RequestedAt  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns an approved user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		GivenName:    "Utente",
		FamilyName:   fmt.Sprintf("%03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		Role:         application.RoleUser,
		Status:       application.StatusActive,
		RequestedAt:  created,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) { f.ID = id }
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) { f.Email = email }
}

// WithUserPasswordHash overrides the generated password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) { f.PasswordHash = hash }
}

// WithUserRole sets the account role.
func WithUserRole(role application.Role) UserOption {
	return func(f *UserFixture) { f.Role = role }
}

// WithUserRejected marks the account as rejected.
func WithUserRejected() UserOption {
	return func(f *UserFixture) { f.Status = application.StatusRejected }
}

// WithUserSpeaker links the account to a speaker.
func WithUserSpeaker(speakerID string) UserOption {
	return func(f *UserFixture) {
		value := speakerID
		f.SpeakerID = &value
	}
}

// WithUserLocality sets the profile locality.
func WithUserLocality(locality string) UserOption {
	return func(f *UserFixture) {
		value := locality
		f.Locality = &value
	}
}

// WithUserRequestedAt sets the registration timestamp.
func WithUserRequestedAt(t time.Time) UserOption {
	return func(f *UserFixture) { f.RequestedAt = t }
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:          f.ID,
		Email:       f.Email,
		GivenName:   f.GivenName,
		FamilyName:  f.FamilyName,
		Locality:    copyStringPtr(f.Locality),
		Role:        f.Role,
		Status:      f.Status,
		SpeakerID:   copyStringPtr(f.SpeakerID),
		RequestedAt: f.RequestedAt,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Credentials returns the fixture as application.UserCredentials.
func (f UserFixture) Credentials() application.UserCredentials {
	return application.UserCredentials{User: f.Application(), PasswordHash: f.PasswordHash}
}

// Principal returns an application.Principal derived from the fixture.
func (f UserFixture) Principal() application.Principal {
	return f.Application().Principal()
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		PasswordHash: f.PasswordHash,
		GivenName:    f.GivenName,
		FamilyName:   f.FamilyName,
		Locality:     copyStringPtr(f.Locality),
		Role:         string(f.Role),
		Status:       string(f.Status),
		SpeakerID:    copyStringPtr(f.SpeakerID),
		RequestedAt:  f.RequestedAt,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

func copyStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
