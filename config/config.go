package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	// embedded zone database for hosts without one
	_ "time/tzdata"

	"github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/halo-scheduler/device"
	"github.com/robmorgan/halo-scheduler/effect"
	"github.com/robmorgan/halo-scheduler/scheduler"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"

	DeviceNone = "none"
	DeviceOLA  = "ola"
	DeviceOSC  = "osc"
	DeviceBoth = "both"
)

// Config represents options that configure the global behavior of the program
type Config struct {
	// Timezone is the IANA zone events are scheduled in, or "Local".
	Timezone string `yaml:"timezone"`

	// TickInterval is how often the active event is re-evaluated.
	TickInterval time.Duration `yaml:"tick_interval"`

	LogLevel string `yaml:"log_level"`

	Store  StoreConfig  `yaml:"store"`
	Device DeviceConfig `yaml:"device"`
}

// StoreConfig selects where cues and schedules are persisted. Path is a directory for
// the file store and a database file for sqlite.
type StoreConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

type DeviceConfig struct {
	// Type is one of none, ola, osc or both.
	Type string    `yaml:"type"`
	OLA  OLAConfig `yaml:"ola"`
	OSC  OSCConfig `yaml:"osc"`

	// Power optionally switches a projector on at startup and off at shutdown.
	Power PowerConfig `yaml:"power"`
}

type OLAConfig struct {
	// Address of olad's RPC port
	Address string `yaml:"address"`

	Universe         int `yaml:"universe"`
	CueChannel       int `yaml:"cue_channel"`
	IntensityChannel int `yaml:"intensity_channel,omitempty"`
	RedChannel       int `yaml:"red_channel,omitempty"`
	GreenChannel     int `yaml:"green_channel,omitempty"`
	BlueChannel      int `yaml:"blue_channel,omitempty"`

	FadeCurve    string        `yaml:"fade_curve"`
	FadeDuration time.Duration `yaml:"fade_duration"`
	FadeSteps    int           `yaml:"fade_steps"`
}

type OSCConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	StartAddress string `yaml:"start_address"`
	StopAddress  string `yaml:"stop_address"`
}

// PowerConfig addresses a projector through OSC. Host and port default to the OSC device.
type PowerConfig struct {
	Host       string `yaml:"host,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	OnAddress  string `yaml:"on_address,omitempty"`
	OffAddress string `yaml:"off_address,omitempty"`
}

// Enabled reports whether any power address is configured.
func (p PowerConfig) Enabled() bool {
	return p.OnAddress != "" || p.OffAddress != ""
}

// PowerTarget returns where power messages are sent, falling back to the OSC device.
func (d DeviceConfig) PowerTarget() (host string, port int) {
	host, port = d.Power.Host, d.Power.Port
	if host == "" {
		host = d.OSC.Host
	}
	if port == 0 {
		port = d.OSC.Port
	}
	return host, port
}

// DefaultConfig returns a configuration with reasonable defaults for real usage
func DefaultConfig() *Config {
	osc := device.DefaultOSCConfig()
	return &Config{
		Timezone:     "Local",
		TickInterval: scheduler.DefaultTickInterval,
		LogLevel:     logrus.InfoLevel.String(),
		Store: StoreConfig{
			Type: StoreFile,
			Path: "data",
		},
		Device: DeviceConfig{
			Type: DeviceNone,
			OLA: OLAConfig{
				Address:      "localhost:9010",
				Universe:     1,
				CueChannel:   1,
				FadeCurve:    "linear",
				FadeDuration: 0,
				FadeSteps:    25,
			},
			OSC: OSCConfig{
				Host:         "127.0.0.1",
				Port:         8000,
				StartAddress: osc.StartAddress,
				StopAddress:  osc.StopAddress,
			},
		},
	}
}

// Normalize fills in missing values with defaults so partially written files still work.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.TickInterval <= 0 {
		c.TickInterval = def.TickInterval
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Store.Type == "" {
		c.Store.Type = def.Store.Type
	}
	if c.Store.Path == "" {
		c.Store.Path = def.Store.Path
	}
	if c.Device.Type == "" {
		c.Device.Type = def.Device.Type
	}

	ola := &c.Device.OLA
	if ola.Address == "" {
		ola.Address = def.Device.OLA.Address
	}
	if ola.CueChannel == 0 {
		ola.CueChannel = def.Device.OLA.CueChannel
	}
	if ola.FadeCurve == "" {
		ola.FadeCurve = def.Device.OLA.FadeCurve
	}
	if ola.FadeSteps <= 0 {
		ola.FadeSteps = def.Device.OLA.FadeSteps
	}

	osc := &c.Device.OSC
	if osc.Host == "" {
		osc.Host = def.Device.OSC.Host
	}
	if osc.Port == 0 {
		osc.Port = def.Device.OSC.Port
	}
	if osc.StartAddress == "" {
		osc.StartAddress = def.Device.OSC.StartAddress
	}
	if osc.StopAddress == "" {
		osc.StopAddress = def.Device.OSC.StopAddress
	}
}

// Validate reports values that Normalize cannot repair.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Store.Type {
	case StoreFile, StoreSQLite:
	default:
		return fmt.Errorf("unknown store type %q", c.Store.Type)
	}
	switch c.Device.Type {
	case DeviceNone, DeviceOSC:
	case DeviceOLA, DeviceBoth:
		if _, err := c.Device.OLA.DriverConfig(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown device type %q", c.Device.Type)
	}
	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// DriverConfig converts the file settings into the OLA driver's configuration.
func (o OLAConfig) DriverConfig() (device.OLAConfig, error) {
	fade, err := effect.NewFade(o.FadeCurve, o.FadeDuration, o.FadeSteps)
	if err != nil {
		return device.OLAConfig{}, err
	}
	return device.OLAConfig{
		Universe:         o.Universe,
		CueChannel:       o.CueChannel,
		IntensityChannel: o.IntensityChannel,
		RedChannel:       o.RedChannel,
		GreenChannel:     o.GreenChannel,
		BlueChannel:      o.BlueChannel,
		Fade:             fade,
	}, nil
}

func (o OSCConfig) DriverConfig() device.OSCConfig {
	return device.OSCConfig{
		StartAddress: o.StartAddress,
		StopAddress:  o.StopAddress,
	}
}

// Load reads the YAML config at path. On first run the defaults are written to path
// and returned.
func Load(fs afero.Fs, path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	data, err := afero.ReadFile(fs, path)
	if os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := Save(fs, path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, errors.WithStackTrace(err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WithStackTrace(fmt.Errorf("parsing %s: %w", path, err))
	}
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg atomically with 0600 permissions, creating the parent directory.
func Save(fs afero.Fs, path string, cfg *Config) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o700); err != nil {
		return errors.WithStackTrace(err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithStackTrace(err)
	}

	tmp, err := afero.TempFile(fs, dir, ".halo-config-*.tmp")
	if err != nil {
		return errors.WithStackTrace(err)
	}
	tmpName := tmp.Name()
	defer fs.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.WithStackTrace(err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WithStackTrace(err)
	}
	if err := fs.Chmod(tmpName, 0o600); err != nil {
		return errors.WithStackTrace(err)
	}
	return errors.WithStackTrace(fs.Rename(tmpName, path))
}
