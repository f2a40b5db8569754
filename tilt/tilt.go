// Package tilt drives the resin vat tilt axis. A tilt is a forward sweep
// of a fixed number of steps followed by a backward leg that runs until
// the axis is disabled externally.
package tilt

import (
	"sync"

	"github.com/aliher1911/resinctl/actuator"
	"github.com/aliher1911/resinctl/axis"
	"github.com/aliher1911/resinctl/ramp"

	logger "github.com/d2r2/go-logger"
)

var lg = logger.NewPackageLogger("tilt", logger.InfoLevel)

// StepsPerDegree converts angle setting into step count.
const StepsPerDegree = 89

type Tilt struct {
	*actuator.Driver

	mu         sync.Mutex
	counter    uint16
	angleSteps uint16
	state      axis.State
}

var _ axis.Axis = (*Tilt)(nil)

func New(d *actuator.Driver) *Tilt {
	t := &Tilt{Driver: d}
	d.Timer().SetHandler(t.Control)
	return t
}

// Tilt starts a sweep of angle units at speed. Speed must be validated by
// caller, period is not clamped.
func (t *Tilt) Tilt(angle, speed uint8) {
	period := ramp.TiltPeriod(speed)
	t.mu.Lock()
	t.Timer().SetCompare(uint16(period))
	steps := uint16(angle) * StepsPerDegree
	t.angleSteps = steps
	t.counter = 0
	t.state = axis.SweepForward
	t.SetDirection(actuator.Forward)
	t.mu.Unlock()
	lg.Debugf("tilt angle=%d (%d steps), speed=%d, period=%d", angle, steps, speed, period)
	t.Enable()
}

// Control is the step timer handler. Steps are only counted on forward
// leg, direction flips exactly once.
func (t *Tilt) Control() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Direction() != actuator.Forward {
		return
	}
	t.counter++
	if t.counter == t.angleSteps {
		t.SetDirection(actuator.Backward)
		t.state = axis.SweepBackward
		lg.Debugf("tilt reached %d steps, returning", t.counter)
	}
}

// Compare does nothing, tilt is started explicitly with Tilt.
func (t *Tilt) Compare(uint8) {}

func (t *Tilt) Disable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Driver.Disable()
	t.state = axis.Idle
}

func (t *Tilt) State() axis.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

type Status struct {
	State      axis.State
	Direction  actuator.Direction
	Running    bool
	Counter    uint16
	AngleSteps uint16
	Period     uint16
}

func (t *Tilt) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{
		State:      t.state,
		Direction:  t.Direction(),
		Running:    t.IsRunning(),
		Counter:    t.counter,
		AngleSteps: t.angleSteps,
		Period:     t.Timer().Compare(),
	}
}
