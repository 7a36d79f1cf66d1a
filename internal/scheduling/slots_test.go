package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestSlotsForDate_OfficeWeekday(t *testing.T) {
	// 2025-02-17 is a Monday.
	slots := SlotsForDate(OfficeHours(), date(2025, time.February, 17), 30*time.Minute)

	// 09:00 through 17:30 at 30-minute steps.
	require.Len(t, slots, 18)
	assert.Equal(t, 9, slots[0].Hour())
	assert.Equal(t, 0, slots[0].Minute())
	last := slots[len(slots)-1]
	assert.Equal(t, 17, last.Hour())
	assert.Equal(t, 30, last.Minute())
}

func TestSlotsForDate_ClosedDay(t *testing.T) {
	// 2025-02-15 is a Saturday: closed for office hours, open extended.
	saturday := date(2025, time.February, 15)

	assert.Empty(t, SlotsForDate(OfficeHours(), saturday, 30*time.Minute))

	slots := SlotsForDate(ExtendedHours(), saturday, 30*time.Minute)
	require.NotEmpty(t, slots)
	assert.Equal(t, 10, slots[0].Hour())
	last := slots[len(slots)-1]
	assert.Equal(t, 21, last.Hour())
	assert.Equal(t, 30, last.Minute())
}

func TestSlotsForDate_DurationMustFitWindow(t *testing.T) {
	monday := date(2025, time.February, 17)

	halfHour := SlotsForDate(OfficeHours(), monday, 30*time.Minute)
	fullHour := SlotsForDate(OfficeHours(), monday, time.Hour)

	// An hour-long visit cannot start at 17:30.
	require.Len(t, fullHour, len(halfHour)-1)
	assert.Equal(t, 17, fullHour[len(fullHour)-1].Hour())
	assert.Equal(t, 0, fullHour[len(fullHour)-1].Minute())
}

func TestSlotsForDate_InvalidDuration(t *testing.T) {
	assert.Nil(t, SlotsForDate(OfficeHours(), date(2025, time.February, 17), 0))
	assert.Nil(t, SlotsForDate(OfficeHours(), date(2025, time.February, 17), -time.Hour))
}

func TestSlotsForDate_MultipleWindowsSorted(t *testing.T) {
	p := Policy{
		Name:     "split",
		Weekdays: []time.Weekday{time.Monday},
		Windows: []Window{
			{Open: 14 * time.Hour, Close: 17 * time.Hour},
			{Open: 9 * time.Hour, Close: 12 * time.Hour},
		},
	}

	slots := SlotsForDate(p, date(2025, time.February, 17), 30*time.Minute)
	require.NotEmpty(t, slots)
	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i].After(slots[i-1]), "slots must be chronological")
	}
	assert.Equal(t, 9, slots[0].Hour())

	// Nothing lands in the midday gap.
	for _, s := range slots {
		assert.False(t, s.Hour() >= 12 && s.Hour() < 14, "slot %v falls in the gap", s)
	}
}

func TestSlotsForRange_SkipsClosedDays(t *testing.T) {
	// Friday 2025-02-14 through the weekend.
	slots := SlotsForRange(OfficeHours(), date(2025, time.February, 14), 4, 30*time.Minute)

	days := map[int]bool{}
	for _, s := range slots {
		days[s.Day()] = true
	}
	assert.True(t, days[14], "friday open")
	assert.False(t, days[15], "saturday closed")
	assert.False(t, days[16], "sunday closed")
	assert.True(t, days[17], "monday open")
}
