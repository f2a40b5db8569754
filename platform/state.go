package platform

import "github.com/aliher1911/resinctl/actuator"

const (
	Up   = actuator.Forward
	Down = actuator.Backward
)

// pollInput is what the control loop sees when deciding whether to start.
type pollInput struct {
	position uint16
	target   uint16
	homing   bool
	// Timer clock is on or a start is in progress.
	running bool
	top     bool
	bottom  bool
}

type pollAction int

const (
	pollNone pollAction = iota
	pollStartUp
	pollStartDown
	pollStartHoming
	// Homing requested while already sitting on bottom switch.
	pollSnapZero
	// Homing sweep reached bottom switch.
	pollHomed
)

func decidePoll(in pollInput) pollAction {
	if in.running {
		if in.homing && in.bottom {
			return pollHomed
		}
		return pollNone
	}
	if in.homing {
		if in.bottom {
			return pollSnapZero
		}
		return pollStartHoming
	}
	switch {
	case in.position < in.target:
		if !in.top {
			return pollStartUp
		}
	case in.position > in.target:
		if !in.bottom {
			return pollStartDown
		}
	}
	return pollNone
}

// tickState is the part of platform state advanced by a step pulse.
type tickState struct {
	position uint16
	target   uint16
	count    uint8
	dir      actuator.Direction
	homing   bool
	stop     bool
}

type tickAction int

const (
	tickContinue tickAction = iota
	tickArrived
	tickReverse
	tickStopped
)

// advance accounts for a single step pulse.
func advance(s tickState, stepsPerUnit uint8) (tickState, tickAction) {
	act := tickContinue
	s.count++
	if s.count >= stepsPerUnit {
		s.count = 0
		if s.dir == Up {
			s.position++
		} else if s.position > 0 {
			s.position--
		}
		// Homing ignores target, only bottom switch ends it.
		if !s.homing {
			switch {
			case s.position == s.target:
				act = tickArrived
			case s.dir == Up && s.position > s.target:
				s.dir = Down
				act = tickReverse
			case s.dir == Down && s.position < s.target:
				s.dir = Up
				act = tickReverse
			}
		}
	}
	if s.stop {
		s.stop = false
		s.target = s.position
		act = tickStopped
	}
	return s, act
}
