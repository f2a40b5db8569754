package actuator

import (
	"time"

	"github.com/stianeikeland/go-rpio/v4"
)

// Output is a digital output line. rpio.Pin satisfies it. Read returns the
// currently latched output level.
type Output interface {
	High()
	Low()
	Read() rpio.State
}

// Input is a digital input line.
type Input interface {
	Read() rpio.State
}

type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Forward {
		return "forward"
	}
	return "backward"
}

type DriverConfig struct {
	// Delay between asserting driver enable and starting step clock.
	Settle time.Duration
	// Level of direction pin for forward direction.
	ForwardLevel rpio.State
	// Driver is enabled by pulling enable line low.
	EnableActiveLow bool
}

// Driver is a STEP/DIR/EN stepper driver. Step pulses come from Timer, so
// the driver is running exactly when timer clock is on.
type Driver struct {
	cfg    DriverConfig
	dir    Output
	enable Output
	timer  Timer

	// Replaced in tests.
	sleep func(time.Duration)
}

func NewDriver(dir, enable Output, timer Timer, cfg DriverConfig) *Driver {
	d := &Driver{
		cfg:    cfg,
		dir:    dir,
		enable: enable,
		timer:  timer,
		sleep:  time.Sleep,
	}
	d.setEnable(false)
	return d
}

func (d *Driver) setEnable(on bool) {
	if on != d.cfg.EnableActiveLow {
		d.enable.High()
	} else {
		d.enable.Low()
	}
}

// Enable powers driver and starts step clock. Blocks for settle delay and
// must never be called from the timer handler.
func (d *Driver) Enable() {
	d.setEnable(true)
	if d.cfg.Settle > 0 {
		d.sleep(d.cfg.Settle)
	}
	d.timer.Start()
}

func (d *Driver) Disable() {
	d.setEnable(false)
	d.timer.Stop()
}

func (d *Driver) Enabled() bool {
	high := d.enable.Read() == rpio.High
	return high != d.cfg.EnableActiveLow
}

func (d *Driver) SetDirection(dir Direction) {
	level := d.cfg.ForwardLevel
	if dir == Backward {
		level ^= 1
	}
	if level == rpio.High {
		d.dir.High()
	} else {
		d.dir.Low()
	}
}

// Direction is read back from the pin rather than tracked.
func (d *Driver) Direction() Direction {
	if d.dir.Read() == d.cfg.ForwardLevel {
		return Forward
	}
	return Backward
}

func (d *Driver) IsRunning() bool {
	return d.timer.Running()
}

func (d *Driver) Timer() Timer {
	return d.timer
}
