// Package calendar renders program slots as an iCalendar feed.
package calendar

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/example/speaker-scheduler/internal/scheduler"
)

const productID = "-//speaker-scheduler//programmi//IT"

// Entry is one program slot prepared for export.
type Entry struct {
	ProgramID   string
	Date        scheduler.Date
	Time        string
	SpeakerName string
	Talk        int
	TalkTitle   string
	Note        string
	Location    string
}

// Export renders entries as all-day events; the time of day goes into the
// summary so that no zone conversion is involved.
func Export(name string, entries []Entry, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, e := range entries {
		event := cal.AddEvent(e.ProgramID + "@speaker-scheduler")
		event.SetDtStampTime(stamp.UTC())
		event.SetAllDayStartAt(e.Date.Time())
		event.SetAllDayEndAt(e.Date.Time().AddDate(0, 0, 1))
		event.SetSummary(summary(e))
		if desc := description(e); desc != "" {
			event.SetDescription(desc)
		}
		if e.Location != "" {
			event.SetLocation(e.Location)
		}
	}

	return cal.Serialize()
}

func summary(e Entry) string {
	parts := make([]string, 0, 3)
	if e.Time != "" {
		parts = append(parts, e.Time)
	}
	if e.SpeakerName != "" {
		parts = append(parts, e.SpeakerName)
	} else {
		parts = append(parts, "Oratore non disponibile")
	}
	if e.Talk > 0 {
		parts = append(parts, fmt.Sprintf("n. %d", e.Talk))
	}
	return strings.Join(parts, " - ")
}

func description(e Entry) string {
	lines := make([]string, 0, 2)
	if e.TalkTitle != "" {
		lines = append(lines, fmt.Sprintf("Discorso %d: %s", e.Talk, e.TalkTitle))
	}
	if note := strings.TrimSpace(e.Note); note != "" {
		lines = append(lines, note)
	}
	return strings.Join(lines, "\n")
}
