package device

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nickysemenza/gola"
	"github.com/robmorgan/halo-scheduler/cuelist"
	"github.com/robmorgan/halo-scheduler/effect"
	"github.com/robmorgan/halo-scheduler/logger"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"
)

// UniverseSize is the number of channels in a DMX512 universe.
const UniverseSize = 512

// OLAClient is the interface for communicating with OLA
type OLAClient interface {
	SendDmx(universe int, values []byte) (status bool, err error)
	Close()
}

// OLAConfig describes where a media server listens for cue selection on a DMX universe.
// Channel numbers are 1-based; zero disables the optional channels.
type OLAConfig struct {
	Universe int

	// CueChannel receives the cue number (1-255) of the playing cue, 0 when stopped.
	CueChannel int

	// IntensityChannel is faded up on start and down on stop.
	IntensityChannel int

	// Red, Green and Blue receive the cue colour, typically patched to a status lamp.
	RedChannel   int
	GreenChannel int
	BlueChannel  int

	Fade effect.Fade
}

func (c OLAConfig) validate() error {
	if c.CueChannel < 1 || c.CueChannel > UniverseSize {
		return fmt.Errorf("dmx cue channel (%d) not in range", c.CueChannel)
	}
	for _, ch := range []int{c.IntensityChannel, c.RedChannel, c.GreenChannel, c.BlueChannel} {
		if ch < 0 || ch > UniverseSize {
			return fmt.Errorf("dmx channel (%d) not in range", ch)
		}
	}
	return nil
}

// OLADriver selects cues on a DMX-controlled media server through the Open Lighting
// Architecture daemon.
type OLADriver struct {
	client OLAClient
	cfg    OLAConfig
	clock  clock.Clock
	logger *logrus.Entry

	lock    sync.Mutex
	frame   []byte
	current *cuelist.Cue
}

// NewOLADriver wraps an OLA client. The clock paces fade frames.
func NewOLADriver(client OLAClient, cfg OLAConfig, clk clock.Clock) (*OLADriver, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &OLADriver{
		client: client,
		cfg:    cfg,
		clock:  clk,
		logger: logger.GetProjectLogger().WithFields(logrus.Fields{"device": "ola", "universe": cfg.Universe}),
		frame:  make([]byte, UniverseSize),
	}, nil
}

// DialOLA connects to olad's RPC port, e.g. "localhost:9010".
func DialOLA(address string, cfg OLAConfig, clk clock.Clock) (*OLADriver, error) {
	client, err := gola.New(address)
	if err != nil {
		return nil, fmt.Errorf("could not connect to OLA at %s: %w", address, err)
	}
	d, err := NewOLADriver(client, cfg, clk)
	if err != nil {
		client.Close()
		return nil, err
	}
	return d, nil
}

// Startup blacks out the configured channels.
func (d *OLADriver) Startup() error {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.logger.Info("Connected to OLA")
	d.clearChannels()
	return d.send()
}

// Shutdown stops playback and closes the client.
func (d *OLADriver) Shutdown() error {
	err := d.StopAll()
	d.client.Close()
	return err
}

func (d *OLADriver) StartCue(c cuelist.Cue) error {
	number := c.CueNumber()
	if number < 1 || number > 255 {
		return fmt.Errorf("cue %s: number %d cannot be sent over dmx", c, number)
	}

	d.lock.Lock()
	defer d.lock.Unlock()

	// cues without a colour black out the status channels
	r, g, b, _ := c.RGB()
	d.set(d.cfg.CueChannel, byte(number))
	d.set(d.cfg.RedChannel, r)
	d.set(d.cfg.GreenChannel, g)
	d.set(d.cfg.BlueChannel, b)

	if err := d.fadeIntensity(255); err != nil {
		return err
	}
	d.current = &c
	d.logger.WithField("cue", c.String()).Debug("Cue selected")
	return nil
}

func (d *OLADriver) StopAll() error {
	d.lock.Lock()
	defer d.lock.Unlock()

	if err := d.fadeIntensity(0); err != nil {
		return err
	}
	d.clearChannels()
	if err := d.send(); err != nil {
		return err
	}
	d.current = nil
	return nil
}

func (d *OLADriver) GetCurrentCue() (cuelist.Cue, bool) {
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.current == nil {
		return cuelist.Cue{}, false
	}
	return *d.current, true
}

// fadeIntensity steps the intensity channel to target, sending a frame per step. Without
// an intensity channel the current frame is sent once.
func (d *OLADriver) fadeIntensity(target byte) error {
	if d.cfg.IntensityChannel == 0 {
		return d.send()
	}

	from := d.frame[d.cfg.IntensityChannel-1]
	values := d.cfg.Fade.Values(from, target)
	interval := d.cfg.Fade.Interval()
	for i, v := range values {
		d.set(d.cfg.IntensityChannel, v)
		if err := d.send(); err != nil {
			return err
		}
		if i < len(values)-1 {
			d.clock.Sleep(interval)
		}
	}
	return nil
}

func (d *OLADriver) set(channel int, value byte) {
	if channel < 1 || channel > UniverseSize {
		return
	}
	d.frame[channel-1] = value
}

func (d *OLADriver) clearChannels() {
	for _, ch := range []int{d.cfg.CueChannel, d.cfg.IntensityChannel, d.cfg.RedChannel, d.cfg.GreenChannel, d.cfg.BlueChannel} {
		d.set(ch, 0)
	}
}

func (d *OLADriver) send() error {
	values := make([]byte, len(d.frame))
	copy(values, d.frame)

	status, err := d.client.SendDmx(d.cfg.Universe, values)
	if err != nil {
		return fmt.Errorf("sending dmx to universe %d: %w", d.cfg.Universe, err)
	}
	if !status {
		return errors.New("olad rejected the dmx frame")
	}
	return nil
}

// FrameLevels is the cue selection read back from a DMX frame.
type FrameLevels struct {
	CueNumber int
	Intensity byte
	Red       byte
	Green     byte
	Blue      byte
}

// DecodeFrame reads the configured channels out of a captured universe. Channels beyond
// the end of the frame read as zero.
func (c OLAConfig) DecodeFrame(frame []byte) FrameLevels {
	get := func(channel int) byte {
		if channel < 1 || channel > len(frame) {
			return 0
		}
		return frame[channel-1]
	}
	return FrameLevels{
		CueNumber: int(get(c.CueChannel)),
		Intensity: get(c.IntensityChannel),
		Red:       get(c.RedChannel),
		Green:     get(c.GreenChannel),
		Blue:      get(c.BlueChannel),
	}
}
