package scheduler

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-03-04 is a Monday.
var monday = NewDate(2024, time.March, 4)

func tod(t *testing.T, s string) TimeOfDay {
	t.Helper()
	v, err := ParseTimeOfDay(s)
	require.NoError(t, err)
	return v
}

func at(d Date, hour, minute int) time.Time {
	return NewTimeOfDay(hour, minute, 0).On(d, time.UTC)
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected TimeOfDay
		wantErr  bool
	}{
		{"09:00", NewTimeOfDay(9, 0, 0), false},
		{"23:59:30", NewTimeOfDay(23, 59, 30), false},
		{"24:00", EndOfDay, false},
		{"25:00", 0, true},
		{"nine", 0, true},
	}
	for _, tt := range tests {
		v, err := ParseTimeOfDay(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, v, tt.input)
	}

	assert.Equal(t, "09:05", NewTimeOfDay(9, 5, 0).String())
	assert.Equal(t, "09:05:07", NewTimeOfDay(9, 5, 7).String())
	assert.Equal(t, "24:00", EndOfDay.String())
}

func TestDateHelpers(t *testing.T) {
	t.Parallel()

	d, err := ParseDate("2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, monday, d)
	assert.Equal(t, time.Monday, d.Weekday())
	assert.Equal(t, NewDate(2024, time.March, 1), d.AddDays(-3))
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.AddDays(1).After(d))
	assert.Equal(t, "2024-03-04", d.String())

	_, err = ParseDate("04/03/2024")
	assert.Error(t, err)

	var decoded Date
	require.NoError(t, decoded.UnmarshalText([]byte("2024-02-29")))
	assert.Equal(t, NewDate(2024, time.February, 29), decoded)
}

func TestNewEventValidation(t *testing.T) {
	t.Parallel()

	_, err := NewEvent(1, 1, &monday, tod(t, "10:00"), tod(t, "09:00"))
	var rangeErr InvalidRangeError
	require.ErrorAs(t, err, &rangeErr)

	_, err = NewEvent(1, 1, &monday, tod(t, "10:00"), tod(t, "10:00"))
	require.ErrorAs(t, err, &rangeErr)

	var occErr InvalidOccurrenceError
	_, err = NewEvent(1, 1, nil, tod(t, "09:00"), tod(t, "10:00"))
	require.ErrorAs(t, err, &occErr)

	_, err = NewEvent(1, 1, &monday, tod(t, "09:00"), tod(t, "10:00"), time.Monday)
	require.ErrorAs(t, err, &occErr)

	e, err := NewEvent(1, 1, nil, tod(t, "22:00"), EndOfDay, time.Friday, time.Monday, time.Friday)
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday, time.Friday}, e.Repeat)
	assert.True(t, e.Recurring())
}

func TestEventIsActiveAt(t *testing.T) {
	t.Parallel()

	oneShot, err := NewEvent(1, 1, &monday, tod(t, "09:00"), tod(t, "10:00"))
	require.NoError(t, err)

	assert.False(t, oneShot.IsActiveAt(at(monday, 8, 59)))
	assert.True(t, oneShot.IsActiveAt(at(monday, 9, 0)))
	assert.True(t, oneShot.IsActiveAt(at(monday, 9, 59)))
	assert.False(t, oneShot.IsActiveAt(at(monday, 10, 0)))
	assert.False(t, oneShot.IsActiveAt(at(monday.AddDays(7), 9, 30)))

	weekly, err := NewEvent(2, 1, nil, tod(t, "20:00"), EndOfDay, time.Tuesday, time.Thursday)
	require.NoError(t, err)

	tuesday := monday.AddDays(1)
	assert.False(t, weekly.OccursOn(monday))
	assert.True(t, weekly.OccursOn(tuesday))
	assert.True(t, weekly.IsActiveAt(at(tuesday, 23, 59)))
	assert.True(t, weekly.IsActiveAt(at(tuesday.AddDays(14), 20, 0)))
	assert.False(t, weekly.IsActiveAt(at(tuesday.AddDays(1), 21, 0)))
}

func TestEventOverlaps(t *testing.T) {
	t.Parallel()

	tuesday := monday.AddDays(1)
	mk := func(date *Date, start, end string, repeat ...time.Weekday) Event {
		e, err := NewEvent(0, 1, date, tod(t, start), tod(t, end), repeat...)
		require.NoError(t, err)
		return e
	}

	tests := []struct {
		name     string
		a, b     Event
		expected bool
	}{
		{"same date overlapping", mk(&monday, "09:00", "10:00"), mk(&monday, "09:30", "11:00"), true},
		{"same date adjacent", mk(&monday, "09:00", "10:00"), mk(&monday, "10:00", "11:00"), false},
		{"different dates", mk(&monday, "09:00", "10:00"), mk(&tuesday, "09:00", "10:00"), false},
		{"date on recurring weekday", mk(&monday, "09:00", "10:00"), mk(nil, "09:30", "09:45", time.Monday), true},
		{"date off recurring weekday", mk(&tuesday, "09:00", "10:00"), mk(nil, "09:30", "09:45", time.Monday), false},
		{"recurring sharing a weekday", mk(nil, "09:00", "10:00", time.Monday, time.Wednesday), mk(nil, "08:00", "09:01", time.Wednesday), true},
		{"recurring disjoint weekdays", mk(nil, "09:00", "10:00", time.Monday), mk(nil, "09:00", "10:00", time.Tuesday), false},
		{"containing window", mk(&monday, "08:00", "12:00"), mk(&monday, "09:00", "09:15"), true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.a.Overlaps(tt.b), tt.name)
		assert.Equal(t, tt.expected, tt.b.Overlaps(tt.a), tt.name+" (reversed)")
	}
}

func TestEventOccurrences(t *testing.T) {
	t.Parallel()

	weekly, err := NewEvent(1, 1, nil, tod(t, "09:00"), tod(t, "10:00"), time.Monday, time.Wednesday)
	require.NoError(t, err)

	// Monday 4th to Monday 11th inclusive: 4th, 6th, 11th.
	got := weekly.Occurrences(monday, monday.AddDays(7))
	assert.Equal(t, []Date{monday, monday.AddDays(2), monday.AddDays(7)}, got)
	assert.Empty(t, weekly.Occurrences(monday.AddDays(7), monday))
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO,WE", weekly.RRule())

	oneShot, err := NewEvent(2, 1, &monday, tod(t, "09:00"), tod(t, "10:00"))
	require.NoError(t, err)
	assert.Equal(t, []Date{monday}, oneShot.Occurrences(monday.AddDays(-1), monday))
	assert.Empty(t, oneShot.Occurrences(monday.AddDays(1), monday.AddDays(3)))
	assert.Equal(t, "", oneShot.RRule())
}

func TestTimeOfDayOnFollowsTheWallClock(t *testing.T) {
	t.Parallel()

	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	// clocks go forward at 01:00 on 2024-03-31
	changeover := NewDate(2024, time.March, 31)
	nine := NewTimeOfDay(9, 0, 0).On(changeover, london)
	assert.Equal(t, 9, nine.Hour())
	assert.Equal(t, 31, nine.Day())
	assert.True(t, nine.Equal(time.Date(2024, time.March, 31, 8, 0, 0, 0, time.UTC)))

	midnight := EndOfDay.On(changeover, london)
	assert.True(t, midnight.Equal(time.Date(2024, time.April, 1, 0, 0, 0, 0, london)))

	// clocks go back at 02:00 on 2024-10-27
	fallback := NewTimeOfDay(18, 30, 0).On(NewDate(2024, time.October, 27), london)
	assert.Equal(t, 18, fallback.Hour())
	assert.Equal(t, 30, fallback.Minute())
}
