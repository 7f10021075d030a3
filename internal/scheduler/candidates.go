package scheduler

import (
	"strconv"
	"strings"
)

// TalkTitles resolves a talk number to its title.
type TalkTitles interface {
	Title(number int) (string, bool)
}

// CandidateQuery parameterises RankCandidates.
type CandidateQuery struct {
	// Date is the prospective program date. Nil treats every speaker as available.
	Date *Date
	// Text is matched case-insensitively against family name, given name,
	// congregation and locality.
	Text string
	// ExcludeSlotID is the slot being edited, ignored when checking availability.
	ExcludeSlotID string
	// Distances holds km from the reference locality keyed by speaker id.
	// A missing or nil entry means the distance is unknown.
	Distances map[string]*int
}

// Candidate is a speaker annotated for selection.
type Candidate struct {
	Speaker       Speaker
	DistanceKm    *int
	OccupiedDates []Date
}

// Candidates partitions the filtered speakers by availability on the query date.
type Candidates struct {
	Available   []Candidate
	Unavailable []Candidate
}

// RankCandidates filters speakers by the query text and splits them into
// available and unavailable groups, keeping the input order within each group.
// Distances are display annotations and do not affect membership or order.
// The slot being edited is left out of OccupiedDates as well.
func RankCandidates(speakers []Speaker, slots []Slot, query CandidateQuery) Candidates {
	index := OccupiedIndex(withoutSlot(slots, query.ExcludeSlotID))
	needle := strings.ToLower(strings.TrimSpace(query.Text))

	result := Candidates{
		Available:   make([]Candidate, 0, len(speakers)),
		Unavailable: make([]Candidate, 0),
	}
	for _, speaker := range speakers {
		if needle != "" && !strings.Contains(searchText(speaker), needle) {
			continue
		}

		candidate := Candidate{
			Speaker:       speaker,
			OccupiedDates: index[speaker.ID],
		}
		if query.Distances != nil {
			candidate.DistanceKm = query.Distances[speaker.ID]
		}

		if query.Date == nil || IsAvailable(speaker.ID, *query.Date, slots, query.ExcludeSlotID) {
			result.Available = append(result.Available, candidate)
			continue
		}
		result.Unavailable = append(result.Unavailable, candidate)
	}
	return result
}

func withoutSlot(slots []Slot, slotID string) []Slot {
	if slotID == "" {
		return slots
	}
	out := make([]Slot, 0, len(slots))
	for _, slot := range slots {
		if slot.ID != slotID {
			out = append(out, slot)
		}
	}
	return out
}

// FilterByTalk keeps the speakers whose repertoire includes a talk matching
// query. A numeric query matches that talk number; any other text matches
// talks whose title contains it, case-insensitively. An empty query keeps all.
func FilterByTalk(speakers []Speaker, query string, titles TalkTitles) []Speaker {
	query = strings.TrimSpace(query)
	if query == "" {
		out := make([]Speaker, len(speakers))
		copy(out, speakers)
		return out
	}

	wanted := matchingTalks(query, titles)
	out := make([]Speaker, 0)
	if len(wanted) == 0 {
		return out
	}
	for _, speaker := range speakers {
		for _, talk := range speaker.Talks {
			if _, ok := wanted[talk]; ok {
				out = append(out, speaker)
				break
			}
		}
	}
	return out
}

func matchingTalks(query string, titles TalkTitles) map[int]struct{} {
	wanted := make(map[int]struct{})
	if n, err := strconv.Atoi(query); err == nil {
		if ValidTalkNumber(n) {
			wanted[n] = struct{}{}
		}
		return wanted
	}
	if titles == nil {
		return wanted
	}
	needle := strings.ToLower(query)
	for n := MinTalkNumber; n <= MaxTalkNumber; n++ {
		title, ok := titles.Title(n)
		if ok && strings.Contains(strings.ToLower(title), needle) {
			wanted[n] = struct{}{}
		}
	}
	return wanted
}

func searchText(s Speaker) string {
	parts := []string{s.FamilyName, s.GivenName, s.Congregation}
	if s.Locality != nil {
		parts = append(parts, *s.Locality)
	}
	return strings.ToLower(strings.Join(parts, " "))
}
