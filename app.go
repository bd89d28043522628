package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nickysemenza/gola"
	"github.com/robmorgan/halo-scheduler/config"
	"github.com/robmorgan/halo-scheduler/device"
	"github.com/robmorgan/halo-scheduler/logger"
	"github.com/robmorgan/halo-scheduler/scheduler"
	"github.com/robmorgan/halo-scheduler/store"
	"github.com/spf13/afero"
	"github.com/urfave/cli"
	"k8s.io/utils/clock"
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "halo-scheduler"
	app.Usage = "Plays cues on a show controller following a prioritised schedule."
	app.UsageText = "halo-scheduler [--config FILE] <command> [arguments...]"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Value: "halo.yaml",
			Usage: "path of the YAML config, created with defaults when missing",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "overrides the configured log level",
		},
	}
	app.Action = run
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "run the scheduler until interrupted",
			Action: run,
		},
		{
			Name:  "export",
			Usage: "write the schedule as an iCalendar feed",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "output, o", Value: "-", Usage: "file to write, - for stdout"},
			},
			Action: export,
		},
		{
			Name:   "dmx-dump",
			Usage:  "print the cue channels of the configured OLA universe",
			Action: dmxDump,
		},
		cueCommand,
		eventCommand,
	}
	return app
}

// environment is the configuration and persistence shared by every command.
type environment struct {
	cfg       *config.Config
	cues      scheduler.CueStore
	schedules scheduler.ScheduleStore
	close     func() error
}

func setup(c *cli.Context) (*environment, error) {
	path := c.GlobalString("config")
	cfg, err := config.Load(afero.NewOsFs(), path)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if override := c.GlobalString("log-level"); override != "" {
		level = override
	}
	if err := logger.SetLevel(level); err != nil {
		return nil, err
	}

	// relative store paths live next to the config file
	storePath := cfg.Store.Path
	if !filepath.IsAbs(storePath) {
		storePath = filepath.Join(filepath.Dir(path), storePath)
	}

	env := &environment{cfg: cfg}
	switch cfg.Store.Type {
	case config.StoreSQLite:
		db, err := store.OpenSQLite(storePath)
		if err != nil {
			return nil, err
		}
		env.cues, env.schedules, env.close = db, db, db.Close
	default:
		files := store.NewFileStore(afero.NewOsFs(), storePath)
		env.cues, env.schedules, env.close = files, files, func() error { return nil }
	}
	return env, nil
}

func (e *environment) newScheduler(clk clock.WithTicker, driver device.Driver) (*scheduler.Scheduler, error) {
	loc, err := e.cfg.Location()
	if err != nil {
		return nil, err
	}
	return scheduler.New(clk, driver, e.cues,
		scheduler.WithScheduleStore(e.schedules),
		scheduler.WithLocation(loc),
		scheduler.WithTickInterval(e.cfg.TickInterval),
	), nil
}

// offlineScheduler loads persisted state without touching any device, for commands that
// edit or inspect the schedule.
func (e *environment) offlineScheduler() (*scheduler.Scheduler, error) {
	s, err := e.newScheduler(clock.RealClock{}, device.NewNop())
	if err != nil {
		return nil, err
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

func buildDriver(cfg config.DeviceConfig, clk clock.Clock) (device.Driver, error) {
	var drivers []device.Driver

	if cfg.Type == config.DeviceOLA || cfg.Type == config.DeviceBoth {
		olaConfig, err := cfg.OLA.DriverConfig()
		if err != nil {
			return nil, err
		}
		ola, err := device.DialOLA(cfg.OLA.Address, olaConfig, clk)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, ola)
	}
	if cfg.Type == config.DeviceOSC || cfg.Type == config.DeviceBoth {
		drivers = append(drivers, device.DialOSC(cfg.OSC.Host, cfg.OSC.Port, cfg.OSC.DriverConfig()))
	}

	var driver device.Driver = device.NewNop()
	if len(drivers) > 0 {
		driver = device.Multi(drivers...)
	}
	if cfg.Power.Enabled() {
		host, port := cfg.PowerTarget()
		driver = device.WithPower(driver, device.DialOSCPower(host, port, cfg.Power.OnAddress, cfg.Power.OffAddress))
	}
	return driver, nil
}

func run(c *cli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}
	defer env.close()

	log := logger.GetProjectLogger()

	clk := clock.RealClock{}
	driver, err := buildDriver(env.cfg.Device, clk)
	if err != nil {
		return err
	}
	s, err := env.newScheduler(clk, driver)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithField("device", env.cfg.Device.Type).Info("Starting scheduler...")
	if err := s.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("Shutting down halo-scheduler")
	return s.Shutdown()
}

func export(c *cli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}
	defer env.close()

	s, err := env.offlineScheduler()
	if err != nil {
		return err
	}

	out := c.App.Writer
	if name := c.String("output"); name != "-" {
		f, err := os.Create(name)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	if err := exportCalendar(out, s); err != nil {
		return fmt.Errorf("exporting calendar: %w", err)
	}
	return nil
}

// dmxDump reads back what olad is currently outputting on the cue universe.
func dmxDump(c *cli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}
	defer env.close()

	olaConfig, err := env.cfg.Device.OLA.DriverConfig()
	if err != nil {
		return err
	}

	client, err := gola.New(env.cfg.Device.OLA.Address)
	if err != nil {
		return fmt.Errorf("could not connect to OLA: %w", err)
	}
	defer client.Close()

	x, err := client.GetDmx(olaConfig.Universe)
	if err != nil {
		return fmt.Errorf("GetDmx: %d: %w", olaConfig.Universe, err)
	}

	levels := olaConfig.DecodeFrame(x.Data)
	fmt.Fprintf(c.App.Writer, "universe %d: cue %d intensity %d rgb %d,%d,%d\n",
		olaConfig.Universe, levels.CueNumber, levels.Intensity, levels.Red, levels.Green, levels.Blue)
	return nil
}
