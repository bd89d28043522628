package device

import (
	"sync"

	"github.com/robmorgan/halo-scheduler/cuelist"
	"github.com/robmorgan/halo-scheduler/logger"
	"github.com/sirupsen/logrus"
)

// Nop remembers the playing cue and logs commands. It is used when no device is configured.
type Nop struct {
	logger *logrus.Entry

	lock    sync.Mutex
	current *cuelist.Cue
}

func NewNop() *Nop {
	return &Nop{logger: logger.GetProjectLogger().WithField("device", "nop")}
}

func (n *Nop) Startup() error  { return nil }
func (n *Nop) Shutdown() error { return n.StopAll() }

func (n *Nop) StartCue(c cuelist.Cue) error {
	n.lock.Lock()
	defer n.lock.Unlock()

	n.logger.WithField("cue", c.String()).Debug("Starting cue")
	n.current = &c
	return nil
}

func (n *Nop) StopAll() error {
	n.lock.Lock()
	defer n.lock.Unlock()

	if n.current != nil {
		n.logger.WithField("cue", n.current.String()).Debug("Stopping cue")
	}
	n.current = nil
	return nil
}

func (n *Nop) GetCurrentCue() (cuelist.Cue, bool) {
	n.lock.Lock()
	defer n.lock.Unlock()

	if n.current == nil {
		return cuelist.Cue{}, false
	}
	return *n.current, true
}
