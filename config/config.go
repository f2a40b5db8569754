// Package config describes machine wiring and tuning. Defaults match the
// printer board, a TOML file overrides any subset of them.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/aliher1911/resinctl/actuator"
	"github.com/aliher1911/resinctl/controller"
	i2cdev "github.com/aliher1911/resinctl/i2c"
	"github.com/aliher1911/resinctl/input"
	"github.com/aliher1911/resinctl/platform"
	"github.com/aliher1911/resinctl/sensor"

	"github.com/BurntSushi/toml"
	"github.com/stianeikeland/go-rpio/v4"
)

type Log struct {
	Level string `toml:"level"`

	// Per package level overrides.
	Packages map[string]string `toml:"packages"`
}

// Axis is the wiring of one STEP/DIR/EN driver.
type Axis struct {
	Step            int           `toml:"step"`
	Dir             int           `toml:"dir"`
	Enable          int           `toml:"enable"`
	EnableActiveLow bool          `toml:"enable_active_low"`
	ForwardHigh     bool          `toml:"forward_high"`
	Settle          time.Duration `toml:"settle"`

	// Step timer counting frequency.
	Clock uint32 `toml:"clock_hz"`
}

// Driver converts wiring into driver settings.
func (a Axis) Driver() actuator.DriverConfig {
	lvl := rpio.Low
	if a.ForwardHigh {
		lvl = rpio.High
	}
	return actuator.DriverConfig{
		Settle:          a.Settle,
		ForwardLevel:    lvl,
		EnableActiveLow: a.EnableActiveLow,
	}
}

type Platform struct {
	Axis
	Top          sensor.LimitConf `toml:"top"`
	Bottom       sensor.LimitConf `toml:"bottom"`
	MaxPosition  uint16           `toml:"max_position"`
	StepsPerUnit uint8            `toml:"steps_per_unit"`
}

type Settings struct {
	// Backend is one of "eeprom", "file" or "memory".
	Backend string      `toml:"backend"`
	EEPROM  i2cdev.Conf `toml:"eeprom"`
	Path    string      `toml:"path"`
}

type Panel struct {
	Enabled bool       `toml:"enabled"`
	Rotary  input.Conf `toml:"rotary"`

	// Interrupt line of the rotary, negative if not connected.
	IntPin int `toml:"int_pin"`
}

type Limits struct {
	TiltAngle     controller.Limits `toml:"tilt_angle"`
	TiltSpeed     controller.Limits `toml:"tilt_speed"`
	PlatformSpeed controller.Limits `toml:"platform_speed"`
	Layer         controller.Limits `toml:"layer"`
	BaseLayer     controller.Limits `toml:"base_layer"`
}

type Machine struct {
	Log          Log           `toml:"log"`
	PollInterval time.Duration `toml:"poll_interval"`
	Platform     Platform      `toml:"platform"`
	Tilt         Axis          `toml:"tilt"`
	Settings     Settings      `toml:"settings"`
	Panel        Panel         `toml:"panel"`
	Limits       Limits        `toml:"limits"`
}

func Default() Machine {
	cc := controller.Defaults()
	pc := platform.Defaults()
	return Machine{
		Log: Log{
			Level:    "info",
			Packages: map[string]string{"i2c": "info"},
		},
		PollInterval: cc.PollInterval,
		Platform: Platform{
			Axis: Axis{
				Step:   17,
				Dir:    27,
				Enable: 22,
				Settle: 50 * time.Millisecond,
				Clock:  16_000_000,
			},
			Top:          sensor.LimitConf{Pin: 5, ActiveHigh: true, Pull: "down"},
			Bottom:       sensor.LimitConf{Pin: 6, ActiveHigh: true, Pull: "down"},
			MaxPosition:  pc.MaxPosition,
			StepsPerUnit: pc.StepsPerUnit,
		},
		Tilt: Axis{
			Step:   23,
			Dir:    24,
			Enable: 25,
			Clock:  15_625,
		},
		Settings: Settings{
			Backend: "eeprom",
			EEPROM:  i2cdev.Conf{Bus: 1, Addr: 0x50},
			Path:    "/var/lib/resinctl/settings.toml",
		},
		Panel: Panel{
			Enabled: true,
			Rotary:  input.Default(1),
			IntPin:  4,
		},
		Limits: Limits{
			TiltAngle:     cc.TiltAngle,
			TiltSpeed:     cc.TiltSpeed,
			PlatformSpeed: cc.PlatformSpeed,
			Layer:         cc.Layer,
			BaseLayer:     cc.BaseLayer,
		},
	}
}

// Load overlays file on top of defaults. Empty path gives defaults.
func Load(path string) (Machine, error) {
	m := Default()
	if path == "" {
		return m, nil
	}
	md, err := toml.DecodeFile(path, &m)
	if err != nil {
		return Machine{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Machine{}, fmt.Errorf("unknown config keys in %s: %v", path, undecoded)
	}
	return m, m.Validate()
}

// Controller returns control loop settings.
func (m Machine) Controller() controller.Config {
	return controller.Config{
		PollInterval:  m.PollInterval,
		TiltAngle:     m.Limits.TiltAngle,
		TiltSpeed:     m.Limits.TiltSpeed,
		PlatformSpeed: m.Limits.PlatformSpeed,
		Layer:         m.Limits.Layer,
		BaseLayer:     m.Limits.BaseLayer,
	}
}

// PlatformConfig returns build platform travel settings.
func (m Machine) PlatformConfig() platform.Config {
	return platform.Config{
		MaxPosition:  m.Platform.MaxPosition,
		StepsPerUnit: m.Platform.StepsPerUnit,
	}
}

// maxPin is the highest BCM GPIO number of the header.
const maxPin = 27

func checkPin(name string, pin int) error {
	if pin < 0 || pin > maxPin {
		return fmt.Errorf("%s: pin %d out of range 0..%d", name, pin, maxPin)
	}
	return nil
}

func checkLimits(name string, l controller.Limits) error {
	if l.Min > l.Max {
		return fmt.Errorf("%s: min %d above max %d", name, l.Min, l.Max)
	}
	if l.Default < l.Min || l.Default > l.Max {
		return fmt.Errorf("%s: default %d outside %d..%d", name, l.Default, l.Min, l.Max)
	}
	return nil
}

// Validate reports all problems found in configuration.
func (m Machine) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	for _, p := range []struct {
		name string
		pin  int
	}{
		{"platform.step", m.Platform.Step},
		{"platform.dir", m.Platform.Dir},
		{"platform.enable", m.Platform.Enable},
		{"platform.top", m.Platform.Top.Pin},
		{"platform.bottom", m.Platform.Bottom.Pin},
		{"tilt.step", m.Tilt.Step},
		{"tilt.dir", m.Tilt.Dir},
		{"tilt.enable", m.Tilt.Enable},
	} {
		add(checkPin(p.name, p.pin))
	}
	if m.Panel.Enabled && m.Panel.IntPin >= 0 {
		add(checkPin("panel.int_pin", m.Panel.IntPin))
	}
	if m.PollInterval <= 0 {
		add(errors.New("poll_interval must be positive"))
	}
	if m.Platform.Clock == 0 {
		add(errors.New("platform.clock_hz must be positive"))
	}
	if m.Tilt.Clock == 0 {
		add(errors.New("tilt.clock_hz must be positive"))
	}
	if m.Platform.StepsPerUnit == 0 {
		add(errors.New("platform.steps_per_unit must be positive"))
	}
	switch m.Settings.Backend {
	case "eeprom", "memory":
	case "file":
		if m.Settings.Path == "" {
			add(errors.New("settings.path required for file backend"))
		}
	default:
		add(fmt.Errorf("settings.backend: unknown backend %q", m.Settings.Backend))
	}
	add(checkLimits("limits.tilt_angle", m.Limits.TiltAngle))
	add(checkLimits("limits.tilt_speed", m.Limits.TiltSpeed))
	add(checkLimits("limits.platform_speed", m.Limits.PlatformSpeed))
	add(checkLimits("limits.layer", m.Limits.Layer))
	add(checkLimits("limits.base_layer", m.Limits.BaseLayer))
	return errors.Join(errs...)
}
