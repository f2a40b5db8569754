// Package axis holds the contract shared by motor axis controllers and
// small helpers for bounded unsigned position arithmetic.
package axis

import (
	"github.com/aliher1911/resinctl/actuator"

	"golang.org/x/exp/constraints"
)

// Axis is a single stepper driven degree of freedom.
//
// Compare is called periodically from the control loop and decides whether
// a move has to start. Control is called once per step pulse from the step
// timer. Enable blocks for the driver settle delay and must not be called
// from Control.
type Axis interface {
	Enable()
	Disable()
	SetDirection(d actuator.Direction)
	IsRunning() bool
	Compare(speed uint8)
	Control()
	State() State
}

// State is an explicit motion state of an axis.
type State int

const (
	Idle State = iota
	SeekingUp
	SeekingDown
	Homing
	SweepForward
	SweepBackward
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case SeekingUp:
		return "seeking-up"
	case SeekingDown:
		return "seeking-down"
	case Homing:
		return "homing"
	case SweepForward:
		return "sweep-forward"
	case SweepBackward:
		return "sweep-backward"
	default:
		return "unknown"
	}
}

// Moving is true for every state except Idle.
func (s State) Moving() bool {
	return s != Idle
}

// Adjust is a single step user adjustment.
type Adjust int

const (
	Increase Adjust = iota + 1
	Decrease
)

// WrapMark is the high-water mark above which a 16 bit difference is
// considered to have wrapped below zero.
const WrapMark = 60000

// Clamp limits val to [min, max].
func Clamp[T constraints.Integer](val, min, max T) T {
	switch {
	case val < min:
		return min
	case val > max:
		return max
	}
	return val
}

// AddClamp adds delta to val, saturating at max.
func AddClamp(val, delta, max uint16) uint16 {
	if uint32(val)+uint32(delta) > uint32(max) {
		return max
	}
	return val + delta
}

// SubClamp subtracts delta from val and returns 0 if result wrapped below
// zero or cancelled out exactly.
func SubClamp(val, delta uint16) uint16 {
	r := val - delta
	if r == 0 || r > WrapMark {
		return 0
	}
	return r
}

// Step applies a single Increase/Decrease to val within [min, max].
func Step[T constraints.Integer](val T, a Adjust, min, max T) T {
	switch a {
	case Increase:
		if val >= max {
			return max
		}
		val++
	case Decrease:
		if val <= min {
			return min
		}
		val--
	}
	return Clamp(val, min, max)
}
