package scheduler

// Speaker is the subset of a speaker record the scheduling rules operate on.
type Speaker struct {
	ID           string
	GivenName    string
	FamilyName   string
	Congregation string
	Locality     *string
	Talks        Repertoire
}

// Slot is a single program assignment of a speaker to a weekend date.
type Slot struct {
	ID        string
	OwnerID   string
	SpeakerID string
	Date      Date
	Time      string
	Talk      int
	Note      string
}
