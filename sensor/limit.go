package sensor

import (
	"fmt"

	"github.com/aliher1911/resinctl/actuator"

	"github.com/stianeikeland/go-rpio/v4"
)

// LimitSwitch is an end of travel switch. Polarity differs between switches
// and must match wiring exactly, otherwise homing never terminates.
type LimitSwitch struct {
	pin        actuator.Input
	activeHigh bool
}

type LimitConf struct {
	Pin        int  `toml:"pin"`
	ActiveHigh bool `toml:"active_high"`

	// Pull is one of "up", "down" or "off".
	Pull string `toml:"pull"`
}

func NewLimitSwitch(pin actuator.Input, activeHigh bool) LimitSwitch {
	return LimitSwitch{
		pin:        pin,
		activeHigh: activeHigh,
	}
}

// NewPinLimitSwitch configures GPIO input for the switch.
func NewPinLimitSwitch(c LimitConf) (LimitSwitch, error) {
	pin := rpio.Pin(c.Pin)
	pin.Mode(rpio.Input)
	switch c.Pull {
	case "up":
		pin.Pull(rpio.PullUp)
	case "down":
		pin.Pull(rpio.PullDown)
	case "", "off":
		pin.Pull(rpio.PullOff)
	default:
		return LimitSwitch{}, fmt.Errorf("limit switch on pin %d: unknown pull mode %q", c.Pin, c.Pull)
	}
	return NewLimitSwitch(pin, c.ActiveHigh), nil
}

// Asserted returns true if the axis reached this end of travel.
func (l LimitSwitch) Asserted() bool {
	if l.pin == nil {
		return false
	}
	return (l.pin.Read() == rpio.High) == l.activeHigh
}
