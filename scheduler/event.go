package scheduler

import (
	"strings"
	"time"

	"github.com/teambition/rrule-go"
	"golang.org/x/exp/slices"
)

// Event binds a cue to a window of time on a single date or on a set of weekdays.
type Event struct {
	ID    int64 `yaml:"id" json:"id"`
	CueID int64 `yaml:"cue_id" json:"cue_id"`

	// Date is set for one-shot events and nil for recurring ones.
	Date *Date `yaml:"date,omitempty" json:"date,omitempty"`

	Start TimeOfDay `yaml:"start" json:"start"`
	End   TimeOfDay `yaml:"end" json:"end"`

	// Repeat holds the weekdays a recurring event occurs on, sorted.
	Repeat []time.Weekday `yaml:"repeat,omitempty" json:"repeat,omitempty"`
}

// NewEvent builds and validates an event. A nil date with a non-empty repeat set
// creates a recurring event; a date with no repeat days creates a one-shot event.
func NewEvent(id, cueID int64, date *Date, start, end TimeOfDay, repeat ...time.Weekday) (Event, error) {
	e := Event{
		ID:     id,
		CueID:  cueID,
		Start:  start,
		End:    end,
		Repeat: normalizeWeekdays(repeat),
	}
	if date != nil {
		d := *date
		e.Date = &d
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}

// Validate checks the time range and that exactly one of date or recurrence is set.
func (e Event) Validate() error {
	if !e.Start.Valid() || e.End <= 0 || e.End > EndOfDay || e.Start >= e.End {
		return InvalidRangeError{Start: e.Start, End: e.End}
	}
	if (e.Date == nil) == (len(e.Repeat) == 0) {
		return InvalidOccurrenceError{EventID: e.ID}
	}
	for _, wd := range e.Repeat {
		if wd < time.Sunday || wd > time.Saturday {
			return InvalidOccurrenceError{EventID: e.ID}
		}
	}
	return nil
}

// Recurring reports whether the event repeats weekly.
func (e Event) Recurring() bool {
	return e.Date == nil && len(e.Repeat) > 0
}

// OccursOn reports whether the event applies to the given day.
func (e Event) OccursOn(d Date) bool {
	if e.Date != nil && *e.Date == d {
		return true
	}
	return slices.Contains(e.Repeat, d.Weekday())
}

// IsActiveAt reports whether t falls inside the event window, using t's own wall clock.
func (e Event) IsActiveAt(t time.Time) bool {
	if !e.OccursOn(DateOf(t)) {
		return false
	}
	tod := TimeOfDayOf(t)
	return e.Start <= tod && tod < e.End
}

// Overlaps reports whether the two events are active at the same time on some day.
func (e Event) Overlaps(other Event) bool {
	if !(e.Start < other.End && other.Start < e.End) {
		return false
	}
	return e.sharesDay(other)
}

func (e Event) sharesDay(other Event) bool {
	switch {
	case e.Date != nil && other.Date != nil:
		return *e.Date == *other.Date
	case e.Date != nil:
		return other.OccursOn(*e.Date)
	case other.Date != nil:
		return e.OccursOn(*other.Date)
	}
	for _, wd := range e.Repeat {
		if slices.Contains(other.Repeat, wd) {
			return true
		}
	}
	return false
}

// Occurrences lists the days in [from, to] on which the event occurs.
func (e Event) Occurrences(from, to Date) []Date {
	if to.Before(from) {
		return nil
	}
	if e.Date != nil {
		if e.Date.Before(from) || e.Date.After(to) {
			return nil
		}
		return []Date{*e.Date}
	}
	if len(e.Repeat) == 0 {
		return nil
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: rruleWeekdays(e.Repeat),
		Dtstart:   from.In(time.UTC),
		Until:     to.In(time.UTC),
	})
	if err != nil {
		return nil
	}

	out := make([]Date, 0)
	for _, t := range r.All() {
		out = append(out, DateOf(t))
	}
	return out
}

// RRule renders the weekly recurrence as an iCalendar RRULE value, or "" for a
// one-shot event.
func (e Event) RRule() string {
	if len(e.Repeat) == 0 {
		return ""
	}
	days := make([]string, 0, len(e.Repeat))
	for _, wd := range e.Repeat {
		days = append(days, rruleWeekdayCodes[wd])
	}
	return "FREQ=WEEKLY;BYDAY=" + strings.Join(days, ",")
}

// clone returns a copy that shares no memory with e.
func (e Event) clone() Event {
	out := e
	if e.Date != nil {
		d := *e.Date
		out.Date = &d
	}
	out.Repeat = slices.Clone(e.Repeat)
	return out
}

var rruleWeekdayCodes = map[time.Weekday]string{
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
	time.Sunday:    "SU",
}

func rruleWeekdays(days []time.Weekday) []rrule.Weekday {
	out := make([]rrule.Weekday, 0, len(days))
	for _, wd := range days {
		switch wd {
		case time.Monday:
			out = append(out, rrule.MO)
		case time.Tuesday:
			out = append(out, rrule.TU)
		case time.Wednesday:
			out = append(out, rrule.WE)
		case time.Thursday:
			out = append(out, rrule.TH)
		case time.Friday:
			out = append(out, rrule.FR)
		case time.Saturday:
			out = append(out, rrule.SA)
		case time.Sunday:
			out = append(out, rrule.SU)
		}
	}
	return out
}

func normalizeWeekdays(days []time.Weekday) []time.Weekday {
	if len(days) == 0 {
		return nil
	}
	out := slices.Clone(days)
	slices.Sort(out)
	return slices.Compact(out)
}
