package device

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hypebeast/go-osc/osc"
	"github.com/robmorgan/halo-scheduler/cuelist"
	"github.com/robmorgan/halo-scheduler/logger"
	"github.com/sirupsen/logrus"
)

// OSCSender delivers packets to a media server. *osc.Client satisfies it.
type OSCSender interface {
	Send(packet osc.Packet) error
}

// OSCConfig holds the address templates used to start and stop playlists. A "%d" verb is
// replaced by the cue number.
type OSCConfig struct {
	StartAddress string
	StopAddress  string
}

// DefaultOSCConfig matches the playlist addresses of common show controllers.
func DefaultOSCConfig() OSCConfig {
	return OSCConfig{
		StartAddress: "/splay/playlist/play/%d",
		StopAddress:  "/splay/playlist/stop/%d",
	}
}

// OSCDriver triggers cues by sending OSC messages.
type OSCDriver struct {
	sender OSCSender
	cfg    OSCConfig
	logger *logrus.Entry

	lock    sync.Mutex
	current *cuelist.Cue
}

func NewOSCDriver(sender OSCSender, cfg OSCConfig) *OSCDriver {
	return &OSCDriver{
		sender: sender,
		cfg:    cfg,
		logger: logger.GetProjectLogger().WithField("device", "osc"),
	}
}

// DialOSC returns a driver sending UDP packets to host:port.
func DialOSC(host string, port int, cfg OSCConfig) *OSCDriver {
	return NewOSCDriver(osc.NewClient(host, port), cfg)
}

func (d *OSCDriver) Startup() error {
	return nil
}

func (d *OSCDriver) Shutdown() error {
	return d.StopAll()
}

// StartCue stops the playing cue, if any, then starts c.
func (d *OSCDriver) StartCue(c cuelist.Cue) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	if err := d.stopLocked(); err != nil {
		return err
	}
	address := formatAddress(d.cfg.StartAddress, c)
	d.logger.WithField("cue", c.String()).Debugf("Calling address: %s", address)
	if err := d.sender.Send(osc.NewMessage(address)); err != nil {
		return fmt.Errorf("sending %s: %w", address, err)
	}
	d.current = &c
	return nil
}

func (d *OSCDriver) StopAll() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.stopLocked()
}

func (d *OSCDriver) stopLocked() error {
	if d.current == nil {
		return nil
	}
	address := formatAddress(d.cfg.StopAddress, *d.current)
	if err := d.sender.Send(osc.NewMessage(address)); err != nil {
		return fmt.Errorf("sending %s: %w", address, err)
	}
	d.current = nil
	return nil
}

func (d *OSCDriver) GetCurrentCue() (cuelist.Cue, bool) {
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.current == nil {
		return cuelist.Cue{}, false
	}
	return *d.current, true
}

func formatAddress(template string, c cuelist.Cue) string {
	if !strings.Contains(template, "%d") {
		return template
	}
	return fmt.Sprintf(template, c.CueNumber())
}
