// Package calendar renders schedules as iCalendar feeds so they can be reviewed in any
// calendar client.
package calendar

import (
	"fmt"
	"io"
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/robmorgan/halo-scheduler/cuelist"
	"github.com/robmorgan/halo-scheduler/scheduler"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	ProductID = "-//halo-scheduler//cue schedule//EN"

	// PriorityProperty carries the scheduler tier of each event. The standard PRIORITY
	// property runs the other way (1 is highest) so it is not reused.
	PriorityProperty = ical.ComponentProperty("X-HALO-PRIORITY")
	CueProperty      = ical.ComponentProperty("X-HALO-CUE")
)

// Export writes one VEVENT per scheduled event. Recurring events start on their first
// occurrence on or after now and carry a weekly RRULE. Times are rendered in now's location.
func Export(w io.Writer, cues []cuelist.Cue, schedules map[int][]scheduler.Event, now time.Time) error {
	loc := now.Location()
	today := scheduler.DateOf(now)
	names := cuelist.NewCueList(cues...)

	cal := ical.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ical.MethodPublish)

	priorities := maps.Keys(schedules)
	slices.Sort(priorities)
	for i := len(priorities) - 1; i >= 0; i-- {
		priority := priorities[i]
		for _, e := range schedules[priority] {
			date, ok := firstDate(e, today)
			if !ok {
				continue
			}

			ve := cal.AddEvent(fmt.Sprintf("event-%d@halo-scheduler", e.ID))
			ve.SetDtStampTime(now)
			ve.SetStartAt(e.Start.On(date, loc))
			ve.SetEndAt(e.End.On(date, loc))
			if c, found := names.Get(e.CueID); found {
				ve.SetSummary(c.Name)
				ve.SetProperty(CueProperty, c.String())
			} else {
				ve.SetSummary(fmt.Sprintf("cue %d", e.CueID))
			}
			ve.SetProperty(PriorityProperty, strconv.Itoa(priority))
			if rule := e.RRule(); rule != "" {
				ve.AddRrule(rule)
			}
		}
	}

	return cal.SerializeTo(w)
}

// firstDate is the date the exported VEVENT is anchored on.
func firstDate(e scheduler.Event, from scheduler.Date) (scheduler.Date, bool) {
	if e.Date != nil {
		return *e.Date, true
	}
	dates := e.Occurrences(from, from.AddDays(6))
	if len(dates) == 0 {
		return scheduler.Date{}, false
	}
	return dates[0], true
}
