package persistence

import "time"

// Speaker is a congregation speaker with the talks they can give.
type Speaker struct {
	ID            string
	GivenName     string
	FamilyName    string
	Email         *string
	Phone         *string
	Congregation  string
	Locality      *string
	Talks         []int
	CreatedBy     string
	CreatedByName string
	UpdatedBy     string
	UpdatedByName string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Program assigns a speaker to a weekend date. Date is stored as YYYY-MM-DD
// and Time as HH:MM.
type Program struct {
	ID        string
	OwnerID   string
	SpeakerID string
	Date      string
	Time      string
	Talk      int
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Congregation is a local congregation with its responsible speaker.
type Congregation struct {
	ID                   string
	Name                 string
	ResponsibleSpeakerID string
	MeetingSchedule      string
	Address              string
	CreatedBy            string
	UpdatedBy            string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// User is an account that can log in and manage programs.
type User struct {
	ID              string
	Email           string
	PasswordHash    string
	GivenName       string
	FamilyName      string
	Phone           *string
	Congregation    *string
	Locality        *string
	Role            string
	Status          string
	SpeakerID       *string
	RequestedAt     time.Time
	ApprovedAt      *time.Time
	ApprovedBy      *string
	RejectedAt      *time.Time
	RejectedBy      *string
	RejectionReason *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
