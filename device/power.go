package device

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/hypebeast/go-osc/osc"
	"github.com/robmorgan/halo-scheduler/logger"
	"github.com/sirupsen/logrus"
)

// Power switches display hardware, such as a projector, on and off.
type Power interface {
	SwitchOn(on bool) error
}

// OSCPower switches power by sending a fixed OSC address for each state. An empty address
// leaves that transition alone.
type OSCPower struct {
	sender     OSCSender
	onAddress  string
	offAddress string
	logger     *logrus.Entry
}

func NewOSCPower(sender OSCSender, onAddress, offAddress string) *OSCPower {
	return &OSCPower{
		sender:     sender,
		onAddress:  onAddress,
		offAddress: offAddress,
		logger:     logger.GetProjectLogger().WithField("device", "power"),
	}
}

// DialOSCPower returns a power switch sending UDP packets to host:port.
func DialOSCPower(host string, port int, onAddress, offAddress string) *OSCPower {
	return NewOSCPower(osc.NewClient(host, port), onAddress, offAddress)
}

func (p *OSCPower) SwitchOn(on bool) error {
	address := p.offAddress
	if on {
		address = p.onAddress
	}
	if address == "" {
		return nil
	}

	p.logger.WithField("on", on).Debugf("Calling address: %s", address)
	if err := p.sender.Send(osc.NewMessage(address)); err != nil {
		return fmt.Errorf("sending %s: %w", address, err)
	}
	return nil
}

// PoweredDriver switches power on once the wrapped driver has started and off once it
// has shut down. Cue commands pass straight through.
type PoweredDriver struct {
	Driver
	power Power
}

func WithPower(d Driver, p Power) *PoweredDriver {
	return &PoweredDriver{Driver: d, power: p}
}

func (d *PoweredDriver) Startup() error {
	var result *multierror.Error
	if err := d.Driver.Startup(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := d.power.SwitchOn(true); err != nil {
		result = multierror.Append(result, fmt.Errorf("switching power on: %w", err))
	}
	return result.ErrorOrNil()
}

func (d *PoweredDriver) Shutdown() error {
	var result *multierror.Error
	if err := d.Driver.Shutdown(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := d.power.SwitchOn(false); err != nil {
		result = multierror.Append(result, fmt.Errorf("switching power off: %w", err))
	}
	return result.ErrorOrNil()
}
