// Package platform drives the build platform Z axis.
//
// Position is kept in 0.01 mm units, every unit is StepsPerUnit step
// pulses. Moves start from the control loop (Compare) and are tracked pulse
// by pulse from the step timer (Control). Both paths share state under a
// single mutex.
package platform

import (
	"sync"

	"github.com/aliher1911/resinctl/actuator"
	"github.com/aliher1911/resinctl/axis"
	"github.com/aliher1911/resinctl/ramp"
	"github.com/aliher1911/resinctl/sensor"
	"github.com/aliher1911/resinctl/ui"

	logger "github.com/d2r2/go-logger"
)

var lg = logger.NewPackageLogger("platform", logger.InfoLevel)

type Config struct {
	MaxPosition  uint16
	StepsPerUnit uint8
}

func Defaults() Config {
	return Config{
		MaxPosition:  40000,
		StepsPerUnit: 20,
	}
}

type Platform struct {
	*actuator.Driver
	cfg     Config
	top     sensor.LimitSwitch
	bottom  sensor.LimitSwitch
	display ui.Display

	mu       sync.Mutex
	position uint16
	target   uint16
	count    uint8
	homing   bool
	stop     bool
	starting bool
	state    axis.State
	ramp     ramp.Ramp
}

var _ axis.Axis = (*Platform)(nil)

func New(d *actuator.Driver, top, bottom sensor.LimitSwitch, display ui.Display, cfg Config) *Platform {
	if display == nil {
		display = ui.NopDisplay{}
	}
	p := &Platform{
		Driver:  d,
		cfg:     cfg,
		top:     top,
		bottom:  bottom,
		display: display,
		ramp:    ramp.New(),
	}
	d.Timer().SetCompare(p.ramp.Compare())
	d.Timer().SetHandler(p.Control)
	display.SetValue(ui.SlotPlatformPosition, p.position)
	return p
}

// busy must be called with lock held.
func (p *Platform) busy() bool {
	return p.starting || p.IsRunning()
}

// Compare is the control loop entry point. It starts a move if position
// differs from target or homing was requested.
func (p *Platform) Compare(speed uint8) {
	p.mu.Lock()
	if !p.busy() {
		// Always start slow, cruise period is taken at move start only.
		p.ramp.Reset(speed)
		p.Timer().SetCompare(p.ramp.Compare())
	}
	act := decidePoll(pollInput{
		position: p.position,
		target:   p.target,
		homing:   p.homing,
		running:  p.busy(),
		top:      p.top.Asserted(),
		bottom:   p.bottom.Asserted(),
	})
	start := false
	switch act {
	case pollStartUp:
		p.state = axis.SeekingUp
		p.SetDirection(Up)
		start = true
	case pollStartDown:
		p.state = axis.SeekingDown
		p.SetDirection(Down)
		start = true
	case pollStartHoming:
		p.state = axis.Homing
		p.SetDirection(Down)
		start = true
	case pollSnapZero:
		p.position = 0
		p.homing = false
		p.state = axis.Idle
		p.display.SetValue(ui.SlotPlatformPosition, p.position)
		lg.Info("bottom switch already closed, position set to zero")
	case pollHomed:
		p.Driver.Disable()
		p.position = 0
		p.target = 0
		p.count = 0
		p.homing = false
		p.stop = false
		p.state = axis.Idle
		p.display.SetValue(ui.SlotPlatformTarget, p.target)
		p.display.SetValue(ui.SlotPlatformPosition, p.position)
		lg.Info("homing finished")
	}
	if start {
		p.starting = true
		lg.Debugf("starting %s: pos=%d, target=%d, cruise=%d", p.state, p.position, p.target, p.ramp.Target())
	}
	p.mu.Unlock()

	if start {
		// Settle delay must run without holding the lock.
		p.Enable()
		p.mu.Lock()
		p.starting = false
		p.mu.Unlock()
	}
}

// Control is the step timer handler, called once per step pulse.
func (p *Platform) Control() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, changed := p.ramp.Tick(); changed {
		p.Timer().SetCompare(c)
	}

	next, act := advance(tickState{
		position: p.position,
		target:   p.target,
		count:    p.count,
		dir:      p.Direction(),
		homing:   p.homing,
		stop:     p.stop,
	}, p.cfg.StepsPerUnit)
	p.position, p.target, p.count, p.stop = next.position, next.target, next.count, next.stop

	switch act {
	case tickArrived:
		p.Driver.Disable()
		p.state = axis.Idle
		p.display.SetValue(ui.SlotPlatformPosition, p.position)
		lg.Debugf("reached target %d", p.position)
	case tickReverse:
		p.SetDirection(next.dir)
		if next.dir == Up {
			p.state = axis.SeekingUp
		} else {
			p.state = axis.SeekingDown
		}
		lg.Debugf("passed target %d at %d, reversing %s", p.target, p.position, next.dir)
	case tickStopped:
		p.Driver.Disable()
		p.state = axis.Idle
		p.display.SetValue(ui.SlotPlatformTarget, p.target)
		p.display.SetValue(ui.SlotPlatformPosition, p.position)
		lg.Debugf("stopped at %d", p.position)
	}
}

// Disable stops the driver immediately without touching target.
func (p *Platform) Disable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Driver.Disable()
	p.state = axis.Idle
}

// requestStop must be called with lock held.
func (p *Platform) requestStop() {
	p.homing = false
	if p.busy() {
		p.stop = true
		return
	}
	// Nothing is stepping so there is no tick to consume the flag.
	p.stop = false
	p.target = p.position
	p.state = axis.Idle
	p.display.SetValue(ui.SlotPlatformTarget, p.target)
}

// Home toggles homing. When idle it starts homing sweep towards bottom
// switch, otherwise stops current motion in place. Returns true if bottom
// switch was open, so motion is expected to follow.
func (p *Platform) Home() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.homing && !p.busy() {
		p.homing = true
		p.target = 0
		p.display.SetValue(ui.SlotPlatformTarget, p.target)
		lg.Info("homing requested")
	} else {
		lg.Info("homing cancelled")
		p.requestStop()
	}
	return !p.bottom.Asserted()
}

// Top toggles move to the top of travel. Running axis is stopped instead.
func (p *Platform) Top() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.busy() {
		p.target = p.cfg.MaxPosition
		p.display.SetValue(ui.SlotPlatformTarget, p.target)
		return
	}
	p.requestStop()
}

// Stop requests immediate stop, target snaps to current position.
func (p *Platform) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requestStop()
}

// SetTarget moves target by signed delta. Underflow clamps to zero,
// overflow to max position.
func (p *Platform) SetTarget(delta int16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if delta < 0 {
		if d := uint16(-int32(delta)); d >= p.target {
			p.target = 0
		} else {
			p.target -= d
		}
	} else {
		p.target = axis.AddClamp(p.target, uint16(delta), p.cfg.MaxPosition)
	}
	p.display.SetValue(ui.SlotPlatformTarget, p.target)
}

// Raise moves target up by n units.
func (p *Platform) Raise(n uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.target = axis.AddClamp(p.target, n, p.cfg.MaxPosition)
	p.display.SetValue(ui.SlotPlatformTarget, p.target)
}

// Lower moves target down by n units.
func (p *Platform) Lower(n uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.target = axis.SubClamp(p.target, n)
	p.display.SetValue(ui.SlotPlatformTarget, p.target)
}

// SetAbsoluteTarget sets target clamped to travel range.
func (p *Platform) SetAbsoluteTarget(t uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.target = axis.Clamp(t, 0, p.cfg.MaxPosition)
	p.display.SetValue(ui.SlotPlatformTarget, p.target)
}

// MaxPosition is the top of travel.
func (p *Platform) MaxPosition() uint16 {
	return p.cfg.MaxPosition
}

func (p *Platform) Position() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *Platform) Target() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target
}

func (p *Platform) Homing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.homing
}

func (p *Platform) State() axis.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// AtTarget is true when axis is idle at its target.
func (p *Platform) AtTarget() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.busy() && !p.homing && p.position == p.target
}

type Status struct {
	Position  uint16
	Target    uint16
	State     axis.State
	Direction actuator.Direction
	Running   bool
	Homing    bool
	Period    uint16
	Top       bool
	Bottom    bool
}

func (p *Platform) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		Position:  p.position,
		Target:    p.target,
		State:     p.state,
		Direction: p.Direction(),
		Running:   p.IsRunning(),
		Homing:    p.homing,
		Period:    p.ramp.Compare(),
		Top:       p.top.Asserted(),
		Bottom:    p.bottom.Asserted(),
	}
}
