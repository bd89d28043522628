package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEvent(t *testing.T, id, cueID int64, date *Date, start, end string, repeat ...time.Weekday) Event {
	t.Helper()
	e, err := NewEvent(id, cueID, date, tod(t, start), tod(t, end), repeat...)
	require.NoError(t, err)
	return e
}

func TestScheduleAddAndQuery(t *testing.T) {
	t.Parallel()

	s := NewSchedule()
	require.NoError(t, s.AddEvent(mustEvent(t, 2, 1, &monday, "12:00", "13:00")))
	require.NoError(t, s.AddEvent(mustEvent(t, 1, 2, &monday, "09:00", "10:00")))
	require.NoError(t, s.AddEvent(mustEvent(t, 3, 1, nil, "18:00", "19:00", time.Monday, time.Friday)))
	require.Equal(t, 3, s.Len())

	// events come back in start order
	today := s.GetEvents(monday)
	require.Len(t, today, 3)
	assert.Equal(t, int64(1), today[0].ID)
	assert.Equal(t, int64(2), today[1].ID)
	assert.Equal(t, int64(3), today[2].ID)

	e, found := s.GetEvent(at(monday, 12, 30))
	require.True(t, found)
	assert.Equal(t, int64(2), e.ID)

	_, found = s.GetEvent(at(monday, 11, 0))
	assert.False(t, found)

	byCue := s.GetEventsByCue(1)
	require.Len(t, byCue, 2)

	friday := monday.AddDays(4)
	e, found = s.GetEvent(at(friday, 18, 15))
	require.True(t, found)
	assert.Equal(t, int64(3), e.ID)
}

func TestScheduleRejectsConflicts(t *testing.T) {
	t.Parallel()

	s := NewSchedule()
	require.NoError(t, s.AddEvent(mustEvent(t, 1, 1, &monday, "09:00", "10:00")))

	err := s.AddEvent(mustEvent(t, 2, 1, nil, "09:59", "10:30", time.Monday))
	var conflict ScheduleConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(2), conflict.EventID)
	assert.Equal(t, int64(1), conflict.ConflictingID)

	var dup DuplicateEventError
	require.ErrorAs(t, s.AddEvent(mustEvent(t, 1, 1, &monday, "11:00", "12:00")), &dup)

	// adjacent windows are fine
	require.NoError(t, s.AddEvent(mustEvent(t, 3, 1, &monday, "10:00", "10:30")))
	assert.Equal(t, 2, s.Len())
}

func TestScheduleRemoveEvent(t *testing.T) {
	t.Parallel()

	s := NewSchedule()
	require.NoError(t, s.AddEvent(mustEvent(t, 1, 1, &monday, "09:00", "10:00")))

	require.True(t, s.RemoveEvent(1))
	require.False(t, s.RemoveEvent(1))
	_, found := s.GetEventByID(1)
	require.False(t, found)
	require.Equal(t, 0, s.Len())
}

func TestScheduleEventsBetween(t *testing.T) {
	t.Parallel()

	s := NewSchedule()
	require.NoError(t, s.AddEvent(mustEvent(t, 1, 1, nil, "09:00", "10:00", time.Monday, time.Tuesday)))
	require.NoError(t, s.AddEvent(mustEvent(t, 2, 1, &monday, "12:00", "13:00")))

	days := s.GetEventsBetween(monday, monday.AddDays(13))
	require.Len(t, days, 4)
	require.Len(t, days[monday], 2)
	assert.Equal(t, int64(1), days[monday][0].ID)
	assert.Equal(t, int64(2), days[monday][1].ID)
	require.Len(t, days[monday.AddDays(8)], 1)

	total := 0
	for _, events := range days {
		total += len(events)
	}
	assert.Equal(t, 5, total)
}

func TestScheduleReturnsCopies(t *testing.T) {
	t.Parallel()

	s := NewSchedule()
	require.NoError(t, s.AddEvent(mustEvent(t, 1, 1, nil, "09:00", "10:00", time.Monday)))

	e, found := s.GetEventByID(1)
	require.True(t, found)
	e.Repeat[0] = time.Sunday

	again, _ := s.GetEventByID(1)
	assert.Equal(t, []time.Weekday{time.Monday}, again.Repeat)
}

func TestScheduleRejectsInvalidEvents(t *testing.T) {
	t.Parallel()

	s := NewSchedule()

	var rangeErr InvalidRangeError
	backwards := Event{ID: 1, CueID: 1, Date: &monday, Start: NewTimeOfDay(10, 0, 0), End: NewTimeOfDay(9, 0, 0)}
	require.ErrorAs(t, s.AddEvent(backwards), &rangeErr)

	var occErr InvalidOccurrenceError
	nowhen := Event{ID: 2, CueID: 1, Start: NewTimeOfDay(9, 0, 0), End: NewTimeOfDay(10, 0, 0)}
	require.ErrorAs(t, s.AddEvent(nowhen), &occErr)

	assert.Equal(t, 0, s.Len())
}
