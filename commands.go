package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/robmorgan/halo-scheduler/calendar"
	"github.com/robmorgan/halo-scheduler/cuelist"
	"github.com/robmorgan/halo-scheduler/scheduler"
	"github.com/urfave/cli"
)

var cueCommand = cli.Command{
	Name:  "cue",
	Usage: "manage cues",
	Subcommands: []cli.Command{
		{
			Name:   "list",
			Usage:  "list cues",
			Action: listCues,
		},
		{
			Name:  "add",
			Usage: "add a cue",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "name", Usage: "label of the cue"},
				cli.IntFlag{Name: "number", Usage: "cue number known to the device, defaults to the ID"},
				cli.StringFlag{Name: "color", Usage: "hex colour, e.g. #ff8800"},
			},
			Action: addCue,
		},
		{
			Name:      "remove",
			Usage:     "remove a cue that no event uses",
			ArgsUsage: "ID",
			Action:    removeCue,
		},
	},
}

var eventCommand = cli.Command{
	Name:  "event",
	Usage: "manage scheduled events",
	Subcommands: []cli.Command{
		{
			Name:   "list",
			Usage:  "list events by priority, highest first",
			Action: listEvents,
		},
		{
			Name:  "add",
			Usage: "schedule a cue",
			Flags: []cli.Flag{
				cli.Int64Flag{Name: "cue", Usage: "ID of the cue to play"},
				cli.IntFlag{Name: "priority, p", Value: scheduler.DefaultPriority, Usage: "tier from 1 (lowest) to 10"},
				cli.StringFlag{Name: "date", Usage: "day of a one-off event, YYYY-MM-DD"},
				cli.StringFlag{Name: "repeat", Usage: "weekdays of a recurring event, e.g. mon,wed,fri"},
				cli.StringFlag{Name: "start", Usage: "start time, HH:MM"},
				cli.StringFlag{Name: "end", Usage: "end time, HH:MM (24:00 for midnight)"},
			},
			Action: addEvent,
		},
		{
			Name:      "remove",
			Usage:     "remove an event",
			ArgsUsage: "ID",
			Action:    removeEvent,
		},
		{
			Name:      "switch",
			Usage:     "move an event to another priority",
			ArgsUsage: "ID PRIORITY",
			Action:    switchPriority,
		},
	},
}

func withScheduler(c *cli.Context, fn func(s *scheduler.Scheduler) error) error {
	env, err := setup(c)
	if err != nil {
		return err
	}
	defer env.close()

	s, err := env.offlineScheduler()
	if err != nil {
		return err
	}
	return fn(s)
}

func listCues(c *cli.Context) error {
	return withScheduler(c, func(s *scheduler.Scheduler) error {
		for _, cue := range s.GetCues() {
			fmt.Fprintf(c.App.Writer, "%d\t%s\t%s\n", cue.ID, cue.String(), cue.Color)
		}
		return nil
	})
}

func addCue(c *cli.Context) error {
	cue := cuelist.Cue{
		Name:  c.String("name"),
		Color: c.String("color"),
	}
	if c.IsSet("number") {
		cue.Number = cuelist.IntPtr(c.Int("number"))
	}

	return withScheduler(c, func(s *scheduler.Scheduler) error {
		id, err := s.AddCue(cue)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "added cue %d\n", id)
		return nil
	})
}

func removeCue(c *cli.Context) error {
	id, err := parseID(c.Args().First())
	if err != nil {
		return err
	}
	return withScheduler(c, func(s *scheduler.Scheduler) error {
		return s.RemoveCue(id)
	})
}

func listEvents(c *cli.Context) error {
	return withScheduler(c, func(s *scheduler.Scheduler) error {
		current, playing := s.GetCurrentEvent()
		schedules := s.GetSchedules()
		for priority := scheduler.MaxPriority; priority >= scheduler.MinPriority; priority-- {
			for _, e := range schedules[priority] {
				marker := " "
				if playing && current.ID == e.ID {
					marker = "*"
				}
				fmt.Fprintf(c.App.Writer, "%s %d\tp%d\tcue %d\t%s\n", marker, e.ID, priority, e.CueID, describeEvent(e))
			}
		}
		return nil
	})
}

func addEvent(c *cli.Context) error {
	start, err := scheduler.ParseTimeOfDay(c.String("start"))
	if err != nil {
		return err
	}
	end, err := scheduler.ParseTimeOfDay(c.String("end"))
	if err != nil {
		return err
	}
	repeat, err := parseWeekdayNames(c.String("repeat"))
	if err != nil {
		return err
	}
	var date *scheduler.Date
	if v := c.String("date"); v != "" {
		d, err := scheduler.ParseDate(v)
		if err != nil {
			return err
		}
		date = &d
	}

	e := scheduler.Event{
		CueID:  c.Int64("cue"),
		Date:   date,
		Start:  start,
		End:    end,
		Repeat: repeat,
	}
	return withScheduler(c, func(s *scheduler.Scheduler) error {
		added, err := s.AddPriorityEvent(c.Int("priority"), e)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "added event %d\n", added.ID)
		return nil
	})
}

func removeEvent(c *cli.Context) error {
	id, err := parseID(c.Args().First())
	if err != nil {
		return err
	}
	return withScheduler(c, func(s *scheduler.Scheduler) error {
		if !s.RemoveEvent(id) {
			return scheduler.EventNotFoundError{EventID: id}
		}
		return nil
	})
}

func switchPriority(c *cli.Context) error {
	id, err := parseID(c.Args().Get(0))
	if err != nil {
		return err
	}
	priority, err := strconv.Atoi(c.Args().Get(1))
	if err != nil {
		return fmt.Errorf("invalid priority %q", c.Args().Get(1))
	}
	return withScheduler(c, func(s *scheduler.Scheduler) error {
		_, err := s.SwitchPriority(id, priority)
		return err
	})
}

func exportCalendar(w io.Writer, s *scheduler.Scheduler) error {
	return calendar.Export(w, s.GetCues(), s.GetSchedules(), s.Now())
}

func describeEvent(e scheduler.Event) string {
	var when string
	if e.Date != nil {
		when = e.Date.String()
	} else {
		days := make([]string, 0, len(e.Repeat))
		for _, wd := range e.Repeat {
			days = append(days, strings.ToLower(wd.String()[:3]))
		}
		when = "every " + strings.Join(days, ",")
	}
	return fmt.Sprintf("%s %s-%s", when, e.Start, e.End)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// parseWeekdayNames accepts a comma separated list of three letter day names, or full
// names, in any case.
func parseWeekdayNames(s string) ([]time.Weekday, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var days []time.Weekday
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if len(name) < 3 {
			return nil, fmt.Errorf("unknown weekday %q", part)
		}
		wd, found := weekdayNames[name[:3]]
		if !found || (len(name) > 3 && name != strings.ToLower(wd.String())) {
			return nil, fmt.Errorf("unknown weekday %q", part)
		}
		days = append(days, wd)
	}
	return days, nil
}
