package platform

import (
	"testing"

	"github.com/aliher1911/resinctl/actuator"
	"github.com/aliher1911/resinctl/axis"
	"github.com/aliher1911/resinctl/ramp"
	"github.com/aliher1911/resinctl/sensor"
	"github.com/aliher1911/resinctl/ui"

	"github.com/stianeikeland/go-rpio/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rig struct {
	p       *Platform
	timer   *actuator.ManualTimer
	dir     *actuator.SimPin
	enable  *actuator.SimPin
	top     *actuator.SimPin
	bottom  *actuator.SimPin
	display *ui.LoggerDisplay
}

func newRig() *rig {
	r := &rig{
		timer:   actuator.NewManualTimer(),
		dir:     actuator.NewSimPin(rpio.Low),
		enable:  actuator.NewSimPin(rpio.Low),
		top:     actuator.NewSimPin(rpio.Low),
		bottom:  actuator.NewSimPin(rpio.Low),
		display: ui.NewLoggerDisplay(),
	}
	d := actuator.NewDriver(r.dir, r.enable, r.timer, actuator.DriverConfig{ForwardLevel: rpio.Low})
	r.p = New(d,
		sensor.NewLimitSwitch(r.top, true),
		sensor.NewLimitSwitch(r.bottom, true),
		r.display, Defaults())
	return r
}

// runUntilIdle fires timer until axis stops and returns number of pulses.
func (r *rig) runUntilIdle(t *testing.T, limit int) int {
	t.Helper()
	n := 0
	for r.timer.Fire() {
		n++
		require.Less(t, n, limit, "axis did not stop")
	}
	return n
}

// moveTo drives platform to absolute position.
func (r *rig) moveTo(t *testing.T, pos uint16) {
	t.Helper()
	r.p.SetAbsoluteTarget(pos)
	r.p.Compare(1)
	r.runUntilIdle(t, 1_000_000)
	require.Equal(t, pos, r.p.Position())
}

func TestMoveUpReachesTarget(t *testing.T) {
	r := newRig()
	r.p.SetTarget(10)
	r.p.Compare(1)

	require.True(t, r.p.IsRunning())
	assert.Equal(t, axis.SeekingUp, r.p.State())
	assert.Equal(t, Up, r.p.Direction())
	assert.True(t, r.p.Enabled())

	assert.Equal(t, 200, r.runUntilIdle(t, 1000))
	assert.Equal(t, uint16(10), r.p.Position())
	assert.False(t, r.p.IsRunning())
	assert.False(t, r.p.Enabled())
	assert.Equal(t, axis.Idle, r.p.State())
	assert.True(t, r.p.AtTarget())
	v, ok := r.display.Value(ui.SlotPlatformPosition)
	require.True(t, ok)
	assert.Equal(t, uint16(10), v)
}

func TestMoveDownReachesTarget(t *testing.T) {
	r := newRig()
	r.moveTo(t, 50)
	r.p.SetTarget(-20)
	r.p.Compare(2)
	assert.Equal(t, axis.SeekingDown, r.p.State())
	assert.Equal(t, Down, r.p.Direction())
	assert.Equal(t, 400, r.runUntilIdle(t, 1000))
	assert.Equal(t, uint16(30), r.p.Position())
}

func TestEventuallyReachesAnyTarget(t *testing.T) {
	r := newRig()
	for _, target := range []uint16{0, 1, 37, 400, 399, 12, 40000, 0} {
		r.p.SetAbsoluteTarget(target)
		for i := 0; i < 3; i++ {
			r.p.Compare(4)
			r.runUntilIdle(t, 1_000_000)
		}
		require.Equal(t, target, r.p.Position())
		require.Equal(t, target, r.p.Target())
		require.False(t, r.p.IsRunning())
		require.False(t, r.p.Enabled())
	}
}

func TestLimitSwitchPreventsStart(t *testing.T) {
	r := newRig()
	r.top.High()
	r.p.SetTarget(10)
	r.p.Compare(1)
	assert.False(t, r.p.IsRunning())
	assert.Equal(t, axis.Idle, r.p.State())
	r.top.Low()

	r.moveTo(t, 10)
	r.bottom.High()
	r.p.SetTarget(-5)
	r.p.Compare(1)
	assert.False(t, r.p.IsRunning())
	assert.Equal(t, uint16(10), r.p.Position())
}

func TestRampDuringMove(t *testing.T) {
	r := newRig()
	r.p.SetTarget(100)
	r.p.Compare(4)
	require.Equal(t, uint16(ramp.StartCompare), r.timer.Compare())

	r.timer.FireN(10)
	assert.Equal(t, uint16(ramp.StartCompare-10*ramp.Step), r.timer.Compare())

	r.runUntilIdle(t, 10000)
	hist := r.timer.History()
	// History starts with values programmed by New and Compare.
	prev := uint16(ramp.StartCompare)
	for _, c := range hist {
		require.LessOrEqual(t, c, prev)
		require.GreaterOrEqual(t, c, uint16(ramp.MinCompare))
		prev = c
	}
	assert.Equal(t, uint16(ramp.MinCompare), r.timer.Compare())
}

func TestSpeedChangeMidMoveIgnored(t *testing.T) {
	r := newRig()
	r.p.SetTarget(10)
	r.p.Compare(1)
	r.timer.FireN(5)
	r.p.Compare(4)
	r.timer.FireN(5)
	assert.Equal(t, uint16(ramp.StartCompare), r.timer.Compare())
	assert.Equal(t, ramp.PlatformTarget(1), r.p.Status().Period)
}

func TestOvershootReverses(t *testing.T) {
	r := newRig()
	r.p.SetTarget(10)
	r.p.Compare(1)
	r.timer.FireN(100)
	require.Equal(t, uint16(5), r.p.Position())

	r.p.SetAbsoluteTarget(3)
	r.timer.FireN(20)
	assert.Equal(t, uint16(6), r.p.Position())
	assert.Equal(t, Down, r.p.Direction())
	assert.Equal(t, axis.SeekingDown, r.p.State())
	assert.True(t, r.p.IsRunning())

	assert.Equal(t, 60, r.runUntilIdle(t, 1000))
	assert.Equal(t, uint16(3), r.p.Position())
}

func TestHomingWithSwitchClosed(t *testing.T) {
	r := newRig()
	r.bottom.High()
	assert.False(t, r.p.Home())
	r.p.Compare(1)

	assert.Equal(t, uint16(0), r.p.Position())
	assert.False(t, r.p.Homing())
	assert.False(t, r.p.IsRunning())
	assert.Equal(t, 0, r.timer.Pulses())
	assert.Equal(t, 0, r.enable.Rises())
}

func TestHomingRunsUntilSwitch(t *testing.T) {
	r := newRig()
	r.moveTo(t, 5)

	assert.True(t, r.p.Home())
	assert.Equal(t, uint16(0), r.p.Target())
	r.p.Compare(1)
	require.True(t, r.p.IsRunning())
	assert.Equal(t, axis.Homing, r.p.State())
	assert.Equal(t, Down, r.p.Direction())

	// Homing does not stop on position match.
	r.timer.FireN(100)
	assert.Equal(t, uint16(0), r.p.Position())
	r.timer.FireN(500)
	assert.True(t, r.p.IsRunning())
	assert.Equal(t, uint16(0), r.p.Position())

	// Control loop notices bottom switch.
	r.bottom.High()
	r.p.Compare(1)
	assert.False(t, r.p.IsRunning())
	assert.False(t, r.p.Homing())
	assert.Equal(t, axis.Idle, r.p.State())
	assert.Equal(t, uint16(0), r.p.Position())
	assert.Equal(t, uint16(0), r.p.Target())
}

func TestHomingTwiceStops(t *testing.T) {
	r := newRig()
	r.moveTo(t, 50)

	r.p.Home()
	r.p.Compare(1)
	r.timer.FireN(40)
	require.Equal(t, uint16(48), r.p.Position())

	r.p.Home()
	assert.False(t, r.p.Homing())
	assert.True(t, r.p.IsRunning())

	require.True(t, r.timer.Fire())
	assert.False(t, r.p.IsRunning())
	assert.False(t, r.p.Enabled())
	assert.Equal(t, uint16(48), r.p.Target())
	assert.Equal(t, axis.Idle, r.p.State())
	v, ok := r.display.Value(ui.SlotPlatformTarget)
	require.True(t, ok)
	assert.Equal(t, uint16(48), v)
	v, ok = r.display.Value(ui.SlotPlatformPosition)
	require.True(t, ok)
	assert.Equal(t, uint16(48), v)

	// Nothing restarts afterwards.
	r.p.Compare(1)
	assert.False(t, r.p.IsRunning())
}

func TestHomingCancelledBeforeStart(t *testing.T) {
	r := newRig()
	r.moveTo(t, 20)
	r.p.Home()
	r.p.Home()
	assert.False(t, r.p.Homing())
	assert.Equal(t, uint16(20), r.p.Target())
	r.p.Compare(1)
	assert.False(t, r.p.IsRunning())
}

func TestTopToggle(t *testing.T) {
	r := newRig()
	r.p.Top()
	assert.Equal(t, uint16(40000), r.p.Target())
	r.p.Compare(4)
	r.timer.FireN(60)
	r.p.Top()
	r.timer.Fire()
	assert.False(t, r.p.IsRunning())
	assert.Equal(t, uint16(3), r.p.Position())
	assert.Equal(t, uint16(3), r.p.Target())
}

func TestSetTargetClamps(t *testing.T) {
	r := newRig()
	r.p.SetTarget(30000)
	r.p.SetTarget(30000)
	assert.Equal(t, uint16(40000), r.p.Target())

	r.p.SetTarget(-32768)
	assert.Equal(t, uint16(7232), r.p.Target())
	r.p.SetTarget(-10000)
	assert.Equal(t, uint16(0), r.p.Target())

	// Large negative deltas must not wrap above travel range.
	for _, tc := range []struct {
		from  uint16
		delta int16
	}{
		{20000, -30000},
		{100, -5636},
		{100, -100},
		{40000, -32767},
	} {
		r.p.SetAbsoluteTarget(tc.from)
		r.p.SetTarget(tc.delta)
		want := uint16(0)
		if int32(tc.from)+int32(tc.delta) > 0 {
			want = uint16(int32(tc.from) + int32(tc.delta))
		}
		assert.Equal(t, want, r.p.Target(), "%d%+d", tc.from, tc.delta)
		assert.LessOrEqual(t, r.p.Target(), r.p.MaxPosition())
	}
	r.p.SetAbsoluteTarget(100)
	r.p.SetTarget(-99)
	assert.Equal(t, uint16(1), r.p.Target())

	r.p.SetAbsoluteTarget(50000)
	assert.Equal(t, uint16(40000), r.p.Target())

	r.p.Lower(40000)
	assert.Equal(t, uint16(0), r.p.Target())
	r.p.Raise(36)
	r.p.Lower(10)
	assert.Equal(t, uint16(26), r.p.Target())
}

func TestStopWhileIdleSnapsTarget(t *testing.T) {
	r := newRig()
	r.p.SetTarget(100)
	r.p.Stop()
	assert.Equal(t, uint16(0), r.p.Target())
	r.p.Compare(1)
	assert.False(t, r.p.IsRunning())
}

func TestDecidePoll(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   pollInput
		want pollAction
	}{
		{"idle at target", pollInput{position: 5, target: 5}, pollNone},
		{"up", pollInput{position: 5, target: 6}, pollStartUp},
		{"up blocked", pollInput{position: 5, target: 6, top: true}, pollNone},
		{"down", pollInput{position: 5, target: 4}, pollStartDown},
		{"down blocked", pollInput{position: 5, target: 4, bottom: true}, pollNone},
		{"homing", pollInput{position: 5, homing: true}, pollStartHoming},
		{"homing on switch", pollInput{position: 5, homing: true, bottom: true}, pollSnapZero},
		{"running", pollInput{position: 5, target: 9, running: true}, pollNone},
		{"homed", pollInput{homing: true, running: true, bottom: true}, pollHomed},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, decidePoll(tc.in))
		})
	}
}

func TestAdvance(t *testing.T) {
	s := tickState{position: 1, target: 3, dir: Up}
	var act tickAction
	for i := 0; i < 19; i++ {
		s, act = advance(s, 20)
		require.Equal(t, tickContinue, act)
	}
	s, act = advance(s, 20)
	assert.Equal(t, tickContinue, act)
	assert.Equal(t, uint16(2), s.position)
	assert.Equal(t, uint8(0), s.count)

	s.count = 19
	s, act = advance(s, 20)
	assert.Equal(t, tickArrived, act)
	assert.Equal(t, uint16(3), s.position)

	s = tickState{position: 0, target: 0, dir: Down, homing: true, count: 19}
	s, act = advance(s, 20)
	assert.Equal(t, tickContinue, act)
	assert.Equal(t, uint16(0), s.position)

	s = tickState{position: 7, target: 2, dir: Up, stop: true}
	s, act = advance(s, 20)
	assert.Equal(t, tickStopped, act)
	assert.Equal(t, uint16(7), s.target)
	assert.False(t, s.stop)
}
