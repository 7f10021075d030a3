package calendar

import (
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/speaker-scheduler/internal/scheduler"
)

func TestExport(t *testing.T) {
	stamp := time.Date(2024, 5, 20, 8, 0, 0, 0, time.UTC)
	out := Export("Programmi", []Entry{
		{
			ProgramID:   "p1",
			Date:        scheduler.MustParseDate("2024-06-15"),
			Time:        "10:00",
			SpeakerName: "Mario Rossi",
			Talk:        42,
			TalkTitle:   "Il Regno di Dio",
			Note:        "Portare il microfono",
			Location:    "Sala Nord",
		},
		{
			ProgramID: "p2",
			Date:      scheduler.MustParseDate("2024-06-16"),
			Time:      "17:30",
			Talk:      7,
		},
	}, stamp)

	require.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))

	cal, err := ics.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "p1@speaker-scheduler", first.Id())
	assert.Equal(t, "10:00 - Mario Rossi - n. 42", first.GetProperty(ics.ComponentPropertySummary).Value)
	assert.Equal(t, "Sala Nord", first.GetProperty(ics.ComponentPropertyLocation).Value)

	dtStart := first.GetProperty(ics.ComponentPropertyDtStart)
	require.NotNil(t, dtStart)
	assert.Equal(t, "20240615", dtStart.Value)
	assert.Equal(t, "20240616", first.GetProperty(ics.ComponentPropertyDtEnd).Value)

	second := events[1]
	assert.Equal(t, "17:30 - Oratore non disponibile - n. 7", second.GetProperty(ics.ComponentPropertySummary).Value)
	assert.Nil(t, second.GetProperty(ics.ComponentPropertyDescription))
}

func TestExport_Empty(t *testing.T) {
	out := Export("", nil, time.Now())
	cal, err := ics.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	assert.Empty(t, cal.Events())
}
