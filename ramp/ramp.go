// Package ramp converts speed settings into step timer periods.
//
// Formulas are bit exact with the controller board firmware, including
// 16 bit intermediate arithmetic and truncating division.
package ramp

const (
	// StartCompare is the period every platform move starts with.
	StartCompare = 8065
	// MinCompare is the shortest platform period.
	MinCompare = 1000
	// Step is the period decrement per step pulse.
	Step = 20
)

// PlatformTarget returns cruise period for platform speed setting.
func PlatformTarget(speed uint8) uint16 {
	v := int16(speed) * -2621
	v += 10686
	if v < MinCompare {
		return MinCompare
	}
	return uint16(v)
}

// TiltPeriod returns tilt period for speed setting. Result is not clamped,
// speed must be validated by caller.
func TiltPeriod(speed uint8) int16 {
	v := int16(speed) * -158
	v += 1738
	v /= 10
	return v
}

// Ramp is linear acceleration from StartCompare to target period. It is not
// safe for concurrent use.
type Ramp struct {
	compare uint16
	target  uint16
	floor   uint16
	step    uint16
}

func New() Ramp {
	return Ramp{
		compare: StartCompare,
		target:  StartCompare,
		floor:   MinCompare,
		step:    Step,
	}
}

// Reset restarts ramp for a new move at given speed.
func (r *Ramp) Reset(speed uint8) {
	r.target = PlatformTarget(speed)
	r.compare = StartCompare
}

// Tick advances ramp by one step pulse. Returns current period and true if
// it changed.
func (r *Ramp) Tick() (uint16, bool) {
	if r.compare <= r.target {
		return r.compare, false
	}
	// Last decrement may pass target by less than a step, but never floor.
	next := r.compare - r.step
	if r.compare < r.step || next < r.floor {
		next = r.floor
	}
	if next == r.compare {
		return r.compare, false
	}
	r.compare = next
	return r.compare, true
}

func (r *Ramp) Compare() uint16 {
	return r.compare
}

func (r *Ramp) Target() uint16 {
	return r.target
}
