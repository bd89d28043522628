package scheduler

import "fmt"

// DuplicateCueError is returned when a cue is added with an ID that is already in use.
type DuplicateCueError struct {
	CueID int64
}

func (err DuplicateCueError) Error() string {
	return fmt.Sprintf("cue %d already exists", err.CueID)
}

// CueInUseError is returned when removing a cue that events still reference.
type CueInUseError struct {
	CueID  int64
	Events int
}

func (err CueInUseError) Error() string {
	return fmt.Sprintf("cue %d is used by %d events", err.CueID, err.Events)
}

// CueNotFoundError is returned when an operation names a cue the scheduler does not know.
type CueNotFoundError struct {
	CueID int64
}

func (err CueNotFoundError) Error() string {
	return fmt.Sprintf("cue %d not found", err.CueID)
}

// PriorityOutOfBoundsError is returned for priorities outside [MinPriority, MaxPriority].
type PriorityOutOfBoundsError struct {
	Priority int
}

func (err PriorityOutOfBoundsError) Error() string {
	return fmt.Sprintf("priority %d must be between %d (lowest) and %d (highest)", err.Priority, MinPriority, MaxPriority)
}

// ScheduleConflictError is returned when an event overlaps another event of the same
// priority on a day they both occur.
type ScheduleConflictError struct {
	EventID       int64
	ConflictingID int64
}

func (err ScheduleConflictError) Error() string {
	return fmt.Sprintf("event %d conflicts with event %d", err.EventID, err.ConflictingID)
}

// InvalidRangeError is returned when an event does not start before it ends within a day.
type InvalidRangeError struct {
	Start TimeOfDay
	End   TimeOfDay
}

func (err InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid time range %s-%s: start must be before end within one day", err.Start, err.End)
}

// InvalidOccurrenceError is returned when an event has both or neither of a date and a
// weekly recurrence.
type InvalidOccurrenceError struct {
	EventID int64
}

func (err InvalidOccurrenceError) Error() string {
	return fmt.Sprintf("event %d must have either a date or a weekly recurrence", err.EventID)
}

// DuplicateEventError is returned when an event ID is already scheduled.
type DuplicateEventError struct {
	EventID int64
}

func (err DuplicateEventError) Error() string {
	return fmt.Sprintf("event %d already exists", err.EventID)
}

// EventNotFoundError is returned when no priority tier holds the requested event.
type EventNotFoundError struct {
	EventID int64
}

func (err EventNotFoundError) Error() string {
	return fmt.Sprintf("event %d not found", err.EventID)
}
