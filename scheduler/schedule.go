package scheduler

import (
	"sort"
	"time"
)

// Schedule holds the events of a single priority tier, ordered by start time and then
// by ID. No two events in a schedule overlap, so at most one is active at any instant.
type Schedule struct {
	events []Event
}

func NewSchedule() *Schedule {
	return &Schedule{
		events: make([]Event, 0),
	}
}

// AddEvent inserts the event unless it is invalid, its ID is taken or it overlaps an
// existing event.
func (s *Schedule) AddEvent(e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if _, found := s.GetEventByID(e.ID); found {
		return DuplicateEventError{EventID: e.ID}
	}
	if err := s.checkConflict(e, e.ID); err != nil {
		return err
	}
	s.insert(e)
	return nil
}

// checkConflict returns a ScheduleConflictError for the first event, other than the one
// with ignoreID, that overlaps e.
func (s *Schedule) checkConflict(e Event, ignoreID int64) error {
	for _, existing := range s.events {
		if existing.ID == ignoreID {
			continue
		}
		if existing.Overlaps(e) {
			return ScheduleConflictError{EventID: e.ID, ConflictingID: existing.ID}
		}
	}
	return nil
}

func (s *Schedule) insert(e Event) {
	e = e.clone()
	i := sort.Search(len(s.events), func(i int) bool {
		other := s.events[i]
		if other.Start != e.Start {
			return other.Start > e.Start
		}
		return other.ID > e.ID
	})
	s.events = append(s.events, Event{})
	copy(s.events[i+1:], s.events[i:])
	s.events[i] = e
}

// RemoveEvent removes the event with the given ID and reports whether it was present.
func (s *Schedule) RemoveEvent(id int64) bool {
	for i, e := range s.events {
		if e.ID == id {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Schedule) GetEventByID(id int64) (Event, bool) {
	for _, e := range s.events {
		if e.ID == id {
			return e.clone(), true
		}
	}
	return Event{}, false
}

// GetEvent returns the event active at t.
func (s *Schedule) GetEvent(t time.Time) (Event, bool) {
	for _, e := range s.events {
		if e.IsActiveAt(t) {
			return e.clone(), true
		}
	}
	return Event{}, false
}

// GetEvents returns the events occurring on d in start order.
func (s *Schedule) GetEvents(d Date) []Event {
	out := make([]Event, 0)
	for _, e := range s.events {
		if e.OccursOn(d) {
			out = append(out, e.clone())
		}
	}
	return out
}

// GetEventsBetween expands the schedule over the inclusive range [from, to]. Days
// without events are left out of the result.
func (s *Schedule) GetEventsBetween(from, to Date) map[Date][]Event {
	out := make(map[Date][]Event)
	for _, e := range s.events {
		for _, d := range e.Occurrences(from, to) {
			out[d] = append(out[d], e.clone())
		}
	}
	return out
}

func (s *Schedule) GetEventsByCue(cueID int64) []Event {
	out := make([]Event, 0)
	for _, e := range s.events {
		if e.CueID == cueID {
			out = append(out, e.clone())
		}
	}
	return out
}

// GetAllEvents returns a copy of every event in the schedule.
func (s *Schedule) GetAllEvents() []Event {
	out := make([]Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.clone())
	}
	return out
}

// Len returns the number of events in the schedule
func (s *Schedule) Len() int {
	return len(s.events)
}
