package application

import (
	"strings"
	"time"

	"github.com/example/speaker-scheduler/internal/scheduler"
)

// Role is the authorization level of a user account.
type Role string

const (
	RolePending Role = "pending"
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePending, RoleUser, RoleAdmin:
		return true
	}
	return false
}

// Status tracks whether an account was rejected by an administrator.
type Status string

const (
	StatusActive   Status = "active"
	StatusRejected Status = "rejected"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID      string
	Role        Role
	Status      Status
	SpeakerID   *string
	DisplayName string
}

// IsAdmin reports whether the principal is an active administrator.
func (p Principal) IsAdmin() bool {
	return p.Status != StatusRejected && p.Role == RoleAdmin
}

// Speaker is a congregation speaker exposed by the application services.
type Speaker struct {
	ID            string
	GivenName     string
	FamilyName    string
	Email         *string
	Phone         *string
	Congregation  string
	Locality      *string
	Talks         scheduler.Repertoire
	CreatedBy     string
	CreatedByName string
	UpdatedBy     string
	UpdatedByName string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FullName returns "given family".
func (s Speaker) FullName() string {
	return strings.TrimSpace(s.GivenName + " " + s.FamilyName)
}

func (s Speaker) core() scheduler.Speaker {
	return scheduler.Speaker{
		ID:           s.ID,
		GivenName:    s.GivenName,
		FamilyName:   s.FamilyName,
		Congregation: s.Congregation,
		Locality:     s.Locality,
		Talks:        s.Talks,
	}
}

// SpeakerInput captures caller provided speaker fields.
type SpeakerInput struct {
	GivenName    string  `json:"given_name" validate:"required,max=100"`
	FamilyName   string  `json:"family_name" validate:"required,max=100"`
	Email        *string `json:"email" validate:"omitempty,email,max=254"`
	Phone        *string `json:"phone" validate:"omitempty,max=50"`
	Congregation string  `json:"congregation" validate:"max=200"`
	Locality     *string `json:"locality" validate:"omitempty,max=200"`
	Talks        []int   `json:"talks" validate:"omitempty,dive,talknumber"`
}

// SpeakerFilter narrows speaker listings. Text fields match case-insensitive
// substrings; Talk is a talk number or a fragment of a talk title.
type SpeakerFilter struct {
	GivenName    string
	FamilyName   string
	Congregation string
	Locality     string
	Talk         string
}

// CreateSpeakerParams wraps the data required to create a speaker.
type CreateSpeakerParams struct {
	Principal Principal
	Input     SpeakerInput
}

// UpdateSpeakerParams wraps the data required to update a speaker.
type UpdateSpeakerParams struct {
	Principal Principal
	SpeakerID string
	Input     SpeakerInput
}

// CandidatesParams describes a candidate search for a program form.
type CandidatesParams struct {
	Principal        Principal
	Date             string
	Query            string
	From             *string
	ExcludeProgramID string
}

// Candidate is a speaker annotated for assignment on a date.
type Candidate struct {
	Speaker       Speaker
	DistanceKm    *int
	Distance      string
	OccupiedDates []scheduler.Date
}

// CandidateList partitions candidates by availability, preserving order.
type CandidateList struct {
	Date        *scheduler.Date
	Available   []Candidate
	Unavailable []Candidate
}

// Program assigns a speaker to a weekend date.
type Program struct {
	ID        string
	OwnerID   string
	SpeakerID string
	Date      scheduler.Date
	Time      string
	Talk      int
	Note      string
	// Speaker is nil when the referenced speaker no longer exists.
	Speaker   *Speaker
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Program) slot() scheduler.Slot {
	return scheduler.Slot{
		ID:        p.ID,
		OwnerID:   p.OwnerID,
		SpeakerID: p.SpeakerID,
		Date:      p.Date,
		Time:      p.Time,
		Talk:      p.Talk,
		Note:      p.Note,
	}
}

// ProgramInput captures caller provided program fields.
type ProgramInput struct {
	Date      string `json:"date" validate:"required"`
	Time      string `json:"time" validate:"required,clock"`
	SpeakerID string `json:"speaker_id" validate:"required"`
	Talk      int    `json:"talk" validate:"required"`
	Note      string `json:"note" validate:"max=1000"`
}

// ProgramPatch carries a partial program update; nil fields keep their value.
type ProgramPatch struct {
	Date      *string `json:"date"`
	Time      *string `json:"time" validate:"omitempty,clock"`
	SpeakerID *string `json:"speaker_id"`
	Talk      *int    `json:"talk"`
	Note      *string `json:"note" validate:"omitempty,max=1000"`
}

// ProgramFilter narrows program listings.
type ProgramFilter struct {
	OwnerID   string
	SpeakerID string
	Date      string
}

// CreateProgramParams wraps the data required to create a program.
type CreateProgramParams struct {
	Principal Principal
	Input     ProgramInput
}

// UpdateProgramParams wraps the data required to update a program.
type UpdateProgramParams struct {
	Principal Principal
	ProgramID string
	Patch     ProgramPatch
}

// ProgramWarnings are advisory findings returned with a saved program.
type ProgramWarnings struct {
	Monthly             *scheduler.MonthlyWarning
	TalkNotInRepertoire bool
}

// ProgramResult is a saved program and its advisory warnings.
type ProgramResult struct {
	Program  Program
	Warnings ProgramWarnings
}

// AvailabilityParams describes a pre-save availability check.
type AvailabilityParams struct {
	Principal        Principal
	SpeakerID        string
	Date             string
	ExcludeProgramID string
}

// Availability reports whether a speaker may be assigned on a date.
type Availability struct {
	SpeakerID string
	Date      scheduler.Date
	Available bool
	Conflict  *scheduler.ConflictError
	Monthly   *scheduler.MonthlyWarning
}

// Congregation is a local congregation with its responsible speaker.
type Congregation struct {
	ID                   string
	Name                 string
	ResponsibleSpeakerID string
	MeetingSchedule      string
	Address              string
	Responsible          *Speaker
	CreatedBy            string
	UpdatedBy            string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CongregationInput captures the fields of a new congregation.
type CongregationInput struct {
	Name                 string `json:"name" validate:"required,max=200"`
	ResponsibleSpeakerID string `json:"responsible_speaker_id" validate:"required"`
	MeetingSchedule      string `json:"meeting_schedule" validate:"max=2000"`
	Address              string `json:"address" validate:"max=500"`
}

// CongregationPatch carries a partial congregation update.
type CongregationPatch struct {
	Name                 *string `json:"name" validate:"omitempty,max=200"`
	ResponsibleSpeakerID *string `json:"responsible_speaker_id"`
	MeetingSchedule      *string `json:"meeting_schedule" validate:"omitempty,max=2000"`
	Address              *string `json:"address" validate:"omitempty,max=500"`
}

// CreateCongregationParams wraps the data required to create a congregation.
type CreateCongregationParams struct {
	Principal Principal
	Input     CongregationInput
}

// UpdateCongregationParams wraps the data required to update a congregation.
type UpdateCongregationParams struct {
	Principal      Principal
	CongregationID string
	Patch          CongregationPatch
}

// User represents an account exposed by the application services.
type User struct {
	ID              string
	Email           string
	GivenName       string
	FamilyName      string
	Phone           *string
	Congregation    *string
	Locality        *string
	Role            Role
	Status          Status
	SpeakerID       *string
	Speaker         *Speaker
	RequestedAt     time.Time
	ApprovedAt      *time.Time
	ApprovedBy      *string
	RejectedAt      *time.Time
	RejectedBy      *string
	RejectionReason *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DisplayName falls back to the email when no name is set.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.GivenName + " " + u.FamilyName); name != "" {
		return name
	}
	return u.Email
}

// Principal derives the authorization view of the user.
func (u User) Principal() Principal {
	return Principal{
		UserID:      u.ID,
		Role:        u.Role,
		Status:      u.Status,
		SpeakerID:   u.SpeakerID,
		DisplayName: u.DisplayName(),
	}
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// UserFilter narrows admin user listings.
type UserFilter struct {
	Role   Role
	Status Status
}

// RegisterInput captures self-registration data.
type RegisterInput struct {
	Email      string `json:"email" validate:"required,email,max=254"`
	Password   string `json:"password" validate:"required,min=8,max=128"`
	GivenName  string `json:"given_name" validate:"max=100"`
	FamilyName string `json:"family_name" validate:"max=100"`
}

// ProfileInput updates the caller's own profile. When LinkSpeaker is set,
// SpeakerID links the profile to a speaker, or unlinks it when nil.
type ProfileInput struct {
	GivenName    string  `json:"given_name" validate:"max=100"`
	FamilyName   string  `json:"family_name" validate:"max=100"`
	Phone        *string `json:"phone" validate:"omitempty,max=50"`
	Congregation *string `json:"congregation" validate:"omitempty,max=200"`
	Locality     *string `json:"locality" validate:"omitempty,max=200"`
	LinkSpeaker  bool    `json:"-"`
	SpeakerID    *string `json:"speaker_id"`
}

// UpdateProfileParams wraps a profile update for the caller.
type UpdateProfileParams struct {
	Principal Principal
	Input     ProfileInput
}

// UserStats summarizes accounts for the admin dashboard.
type UserStats struct {
	Total   int
	Pending int
	Admins  int
	Users   int
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User      User
	Token     string
	ExpiresAt time.Time
}
