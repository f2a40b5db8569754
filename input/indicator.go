package input

import "github.com/aliher1911/resinctl/axis"

func stateColor(s axis.State) Color {
	switch s {
	case axis.SeekingUp, axis.SweepForward:
		return Yellow
	case axis.SeekingDown, axis.Homing, axis.SweepBackward:
		return Green
	}
	return Off
}

// StateColor is the status color for axis states. When both axes move, tilt
// is mixed into platform color at half brightness.
func StateColor(platform, tilt axis.State) Color {
	p, t := stateColor(platform), stateColor(tilt)
	if p == Off {
		return t
	}
	return p.Add(t.Scale(0.5))
}

// Indicator forwards status color to LED loop when it changes.
type Indicator struct {
	ledC chan<- *LedOp
	last Color
	set  bool
}

func NewIndicator(ledC chan<- *LedOp) *Indicator {
	return &Indicator{ledC: ledC}
}

// Show is not safe for concurrent use.
func (i *Indicator) Show(platform, tilt axis.State) {
	c := StateColor(platform, tilt)
	if i.set && c == i.last {
		return
	}
	select {
	case i.ledC <- Steady(c):
		i.last, i.set = c, true
	default:
		// Retried on next call.
	}
}
