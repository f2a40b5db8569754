package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aliher1911/resinctl/actuator"
	"github.com/aliher1911/resinctl/config"
	"github.com/aliher1911/resinctl/controller"
	i2cdev "github.com/aliher1911/resinctl/i2c"
	"github.com/aliher1911/resinctl/platform"
	"github.com/aliher1911/resinctl/sensor"
	"github.com/aliher1911/resinctl/settings"
	"github.com/aliher1911/resinctl/tilt"
	"github.com/aliher1911/resinctl/ui"

	logger "github.com/d2r2/go-logger"
	"github.com/stianeikeland/go-rpio/v4"
)

var lg = logger.NewPackageLogger("cli", logger.InfoLevel)

// Packages with loggers affected by global log level.
var logPackages = []string{"cli", "controller", "platform", "tilt", "settings", "ui", "input", "i2cdev", "i2c"}

func parseLevel(s string) (logger.LogLevel, error) {
	switch strings.ToLower(s) {
	case "debug":
		return logger.DebugLevel, nil
	case "info", "":
		return logger.InfoLevel, nil
	case "notify":
		return logger.NotifyLevel, nil
	case "warn", "warning":
		return logger.WarnLevel, nil
	case "error":
		return logger.ErrorLevel, nil
	}
	return logger.InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// SetupLogging applies configured levels to package loggers.
func SetupLogging(c config.Log) error {
	lvl, err := parseLevel(c.Level)
	if err != nil {
		return err
	}
	for _, p := range logPackages {
		if err := logger.ChangePackageLogLevel(p, lvl); err != nil {
			lg.Debugf("no logger for %s: %s", p, err)
		}
	}
	for p, l := range c.Packages {
		pl, err := parseLevel(l)
		if err != nil {
			return fmt.Errorf("log level for %s: %w", p, err)
		}
		if err := logger.ChangePackageLogLevel(p, pl); err != nil {
			return fmt.Errorf("log level for %s: %w", p, err)
		}
	}
	return nil
}

// Machine is an assembled printer. Timers must be running for axes to move.
type Machine struct {
	Platform   *platform.Platform
	Tilt       *tilt.Tilt
	Controller *controller.Controller
	Display    *ui.LoggerDisplay

	timers  []*actuator.StepTimer
	closers []func()

	// Set in simulation only.
	simTop, simBottom *simSwitch
}

// Run starts step timers. It returns when all timers exit.
func (m *Machine) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, t := range m.timers {
		wg.Add(1)
		go func(t *actuator.StepTimer) {
			defer wg.Done()
			t.Run(ctx)
		}(t)
	}
	if m.simBottom != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			simEndstops(ctx, m.Platform, m.simTop, m.simBottom)
		}()
	}
	wg.Wait()
}

// Close disables drivers and releases hardware in reverse order.
func (m *Machine) Close() {
	m.Controller.DisableSteppers()
	for i := len(m.closers) - 1; i >= 0; i-- {
		m.closers[i]()
	}
}

func (m *Machine) onClose(fn func()) {
	m.closers = append(m.closers, fn)
}

type pins struct {
	step, dir, enable actuator.Output
}

func gpioOut(n int) rpio.Pin {
	p := rpio.Pin(n)
	p.Output()
	p.Low()
	return p
}

func openStore(cfg config.Settings, bus *i2cdev.Bus) (settings.Store, error) {
	switch cfg.Backend {
	case "eeprom":
		if bus == nil {
			return nil, fmt.Errorf("eeprom settings need i2c bus")
		}
		return settings.NewEEPROM(bus, uint16(cfg.EEPROM.Addr), nil), nil
	case "file":
		return settings.OpenFile(cfg.Path)
	case "memory":
		return settings.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown settings backend %q", cfg.Backend)
}

// assemble builds axes and controller on provided lines.
func assemble(cfg config.Machine, pp, tp pins, top, bottom sensor.LimitSwitch, store settings.Store) *Machine {
	m := &Machine{Display: ui.NewLoggerDisplay()}

	pt := actuator.NewStepTimer(pp.step, cfg.Platform.Clock)
	tt := actuator.NewStepTimer(tp.step, cfg.Tilt.Clock)
	m.timers = []*actuator.StepTimer{pt, tt}

	m.Platform = platform.New(
		actuator.NewDriver(pp.dir, pp.enable, pt, cfg.Platform.Driver()),
		top, bottom, m.Display, cfg.PlatformConfig())
	m.Tilt = tilt.New(actuator.NewDriver(tp.dir, tp.enable, tt, cfg.Tilt.Driver()))
	m.Controller = controller.New(m.Platform, m.Tilt, store, m.Display, cfg.Controller())
	return m
}

// Open assembles machine on GPIO. Caller must Close machine.
func Open(cfg config.Machine) (*Machine, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open GPIO: %w", err)
	}
	closeGPIO := func() {
		if err := rpio.Close(); err != nil {
			lg.Errorf("failed to close GPIO: %s", err)
		}
	}

	top, err := sensor.NewPinLimitSwitch(cfg.Platform.Top)
	if err != nil {
		closeGPIO()
		return nil, err
	}
	bottom, err := sensor.NewPinLimitSwitch(cfg.Platform.Bottom)
	if err != nil {
		closeGPIO()
		return nil, err
	}

	var bus *i2cdev.Bus
	if cfg.Settings.Backend == "eeprom" {
		bus = i2cdev.NewBus(cfg.Settings.EEPROM.Bus)
	}
	store, err := openStore(cfg.Settings, bus)
	if err != nil {
		closeGPIO()
		return nil, err
	}

	lg.Infof("platform driver at step=%d dir=%d enable=%d", cfg.Platform.Step, cfg.Platform.Dir, cfg.Platform.Enable)
	lg.Infof("tilt driver at step=%d dir=%d enable=%d", cfg.Tilt.Step, cfg.Tilt.Dir, cfg.Tilt.Enable)
	m := assemble(cfg,
		pins{step: gpioOut(cfg.Platform.Step), dir: gpioOut(cfg.Platform.Dir), enable: gpioOut(cfg.Platform.Enable)},
		pins{step: gpioOut(cfg.Tilt.Step), dir: gpioOut(cfg.Tilt.Dir), enable: gpioOut(cfg.Tilt.Enable)},
		top, bottom, store)
	m.onClose(closeGPIO)
	if bus != nil {
		m.onClose(bus.Close)
	}
	return m, nil
}

// OpenSim assembles machine on simulated lines. Limit switches follow
// platform position.
func OpenSim(cfg config.Machine) (*Machine, error) {
	sc := cfg.Settings
	if sc.Backend == "eeprom" {
		sc.Backend = "memory"
	}
	store, err := openStore(sc, nil)
	if err != nil {
		return nil, err
	}
	sim := func() pins {
		return pins{
			step:   actuator.NewSimPin(rpio.Low),
			dir:    actuator.NewSimPin(rpio.Low),
			enable: actuator.NewSimPin(rpio.Low),
		}
	}
	top := newSimSwitch(cfg.Platform.Top.ActiveHigh)
	bottom := newSimSwitch(cfg.Platform.Bottom.ActiveHigh)
	m := assemble(cfg, sim(), sim(), top.LimitSwitch(), bottom.LimitSwitch(), store)
	m.simTop, m.simBottom = top, bottom
	lg.Info("running with simulated hardware")
	return m, nil
}
