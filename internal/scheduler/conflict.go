package scheduler

import (
	"errors"
	"fmt"
	"sort"
)

// ErrSpeakerAlreadyBooked is returned when a speaker already holds a slot on the date.
var ErrSpeakerAlreadyBooked = errors.New("scheduler: speaker already booked on date")

// ConflictError names the slot that blocks a booking.
type ConflictError struct {
	SpeakerID string
	Date      Date
	SlotID    string
	OwnerID   string
}

func (e *ConflictError) Error() string {
	if e.SlotID == "" {
		return fmt.Sprintf("speaker %s already booked on %s", e.SpeakerID, e.Date)
	}
	return fmt.Sprintf("speaker %s already booked on %s by slot %s", e.SpeakerID, e.Date, e.SlotID)
}

// Unwrap lets errors.Is match ErrSpeakerAlreadyBooked.
func (e *ConflictError) Unwrap() error {
	return ErrSpeakerAlreadyBooked
}

// MonthlyWarning lists the other dates a speaker already holds in the same
// calendar month as a prospective booking. It is advisory.
type MonthlyWarning struct {
	SpeakerID  string
	Month      Date
	OtherDates []Date
}

// OccupiedDates returns every date on which speakerID holds a slot, across all
// owners, ascending and without duplicates. The input is not modified.
func OccupiedDates(speakerID string, slots []Slot) []Date {
	seen := make(map[Date]struct{})
	dates := make([]Date, 0)
	for _, slot := range slots {
		if slot.SpeakerID != speakerID {
			continue
		}
		if _, ok := seen[slot.Date]; ok {
			continue
		}
		seen[slot.Date] = struct{}{}
		dates = append(dates, slot.Date)
	}
	sortDates(dates)
	return dates
}

// OccupiedIndex maps every speaker id present in slots to its occupied dates.
func OccupiedIndex(slots []Slot) map[string][]Date {
	grouped := make(map[string]map[Date]struct{})
	for _, slot := range slots {
		if slot.SpeakerID == "" {
			continue
		}
		dates, ok := grouped[slot.SpeakerID]
		if !ok {
			dates = make(map[Date]struct{})
			grouped[slot.SpeakerID] = dates
		}
		dates[slot.Date] = struct{}{}
	}

	index := make(map[string][]Date, len(grouped))
	for speakerID, set := range grouped {
		dates := make([]Date, 0, len(set))
		for d := range set {
			dates = append(dates, d)
		}
		sortDates(dates)
		index[speakerID] = dates
	}
	return index
}

// IsAvailable reports whether no slot other than excludeSlotID books speakerID on date.
func IsAvailable(speakerID string, date Date, slots []Slot, excludeSlotID string) bool {
	return findConflict(speakerID, date, slots, excludeSlotID) == nil
}

// CheckConflict returns a *ConflictError when speakerID is already booked on date.
func CheckConflict(speakerID string, date Date, slots []Slot, excludeSlotID string) error {
	if slot := findConflict(speakerID, date, slots, excludeSlotID); slot != nil {
		return &ConflictError{
			SpeakerID: speakerID,
			Date:      date,
			SlotID:    slot.ID,
			OwnerID:   slot.OwnerID,
		}
	}
	return nil
}

// CheckMonthlyFrequency returns the speaker's other bookings in the same month
// as date, or nil when there are none. A booking on date itself is a conflict
// and is not reported here.
func CheckMonthlyFrequency(speakerID string, date Date, slots []Slot, excludeSlotID string) *MonthlyWarning {
	seen := make(map[Date]struct{})
	others := make([]Date, 0)
	for _, slot := range slots {
		if slot.SpeakerID != speakerID {
			continue
		}
		if excludeSlotID != "" && slot.ID == excludeSlotID {
			continue
		}
		if slot.Date == date || !slot.Date.SameMonth(date) {
			continue
		}
		if _, ok := seen[slot.Date]; ok {
			continue
		}
		seen[slot.Date] = struct{}{}
		others = append(others, slot.Date)
	}
	if len(others) == 0 {
		return nil
	}
	sortDates(others)
	return &MonthlyWarning{
		SpeakerID:  speakerID,
		Month:      Date{Year: date.Year, Month: date.Month, Day: 1},
		OtherDates: others,
	}
}

func findConflict(speakerID string, date Date, slots []Slot, excludeSlotID string) *Slot {
	for i := range slots {
		slot := &slots[i]
		if excludeSlotID != "" && slot.ID == excludeSlotID {
			continue
		}
		if slot.SpeakerID == speakerID && slot.Date == date {
			return slot
		}
	}
	return nil
}

func sortDates(dates []Date) {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
}
