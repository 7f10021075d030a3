package persistence

import "context"

// SpeakerFilter narrows speaker queries. Each non-empty field is matched as a
// case-insensitive substring; all set fields must match.
type SpeakerFilter struct {
	GivenName    string
	FamilyName   string
	Congregation string
	Locality     string
}

// SpeakerRepository exposes CRUD operations for speakers and their talks.
type SpeakerRepository interface {
	CreateSpeaker(ctx context.Context, speaker Speaker) error
	UpdateSpeaker(ctx context.Context, speaker Speaker) error
	GetSpeaker(ctx context.Context, id string) (Speaker, error)
	ListSpeakers(ctx context.Context, filter SpeakerFilter) ([]Speaker, error)
	DeleteSpeaker(ctx context.Context, id string) error
}

// ProgramFilter narrows program queries. Empty fields do not filter.
type ProgramFilter struct {
	OwnerID   string
	SpeakerID string
	Date      string
}

// ProgramRepository stores program slots. Implementations must reject a
// second program for the same speaker and date with ErrDuplicate.
type ProgramRepository interface {
	CreateProgram(ctx context.Context, program Program) error
	UpdateProgram(ctx context.Context, program Program) error
	GetProgram(ctx context.Context, id string) (Program, error)
	ListPrograms(ctx context.Context, filter ProgramFilter) ([]Program, error)
	DeleteProgram(ctx context.Context, id string) error
}

// CongregationRepository exposes CRUD operations for congregations.
type CongregationRepository interface {
	CreateCongregation(ctx context.Context, congregation Congregation) error
	UpdateCongregation(ctx context.Context, congregation Congregation) error
	GetCongregation(ctx context.Context, id string) (Congregation, error)
	GetCongregationByName(ctx context.Context, name string) (Congregation, error)
	ListCongregations(ctx context.Context) ([]Congregation, error)
	DeleteCongregation(ctx context.Context, id string) error
}

// UserFilter narrows user listings. Empty fields do not filter.
type UserFilter struct {
	Role   string
	Status string
}

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserBySpeaker(ctx context.Context, speakerID string) (User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}
