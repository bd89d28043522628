package device

import (
	"github.com/hashicorp/go-multierror"
	"github.com/robmorgan/halo-scheduler/cuelist"
)

// MixedCueID is reported by a Multi driver whose members disagree on the playing cue. It
// never matches a stored cue, so the scheduler re-sends its command to every member.
const MixedCueID int64 = -1

type multiDriver struct {
	drivers []Driver
}

// Multi fans every command out to all drivers. Errors are collected rather than
// short-circuiting so one unreachable device does not silence the others.
func Multi(drivers ...Driver) Driver {
	if len(drivers) == 1 {
		return drivers[0]
	}
	return &multiDriver{drivers: drivers}
}

func (m *multiDriver) each(fn func(Driver) error) error {
	var result *multierror.Error
	for _, d := range m.drivers {
		if err := fn(d); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (m *multiDriver) Startup() error {
	return m.each(Driver.Startup)
}

func (m *multiDriver) Shutdown() error {
	return m.each(Driver.Shutdown)
}

func (m *multiDriver) StartCue(c cuelist.Cue) error {
	return m.each(func(d Driver) error { return d.StartCue(c) })
}

func (m *multiDriver) StopAll() error {
	return m.each(Driver.StopAll)
}

func (m *multiDriver) GetCurrentCue() (cuelist.Cue, bool) {
	if len(m.drivers) == 0 {
		return cuelist.Cue{}, false
	}

	first, playing := m.drivers[0].GetCurrentCue()
	for _, d := range m.drivers[1:] {
		c, ok := d.GetCurrentCue()
		if ok != playing || (ok && c.ID != first.ID) {
			return cuelist.Cue{ID: MixedCueID, Name: "mixed"}, true
		}
	}
	return first, playing
}
