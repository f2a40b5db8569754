package cli

import (
	"context"
	"time"

	"github.com/aliher1911/resinctl/actuator"
	"github.com/aliher1911/resinctl/platform"
	"github.com/aliher1911/resinctl/sensor"

	"github.com/stianeikeland/go-rpio/v4"
)

// simSwitch is a limit switch line driven by simulation.
type simSwitch struct {
	pin        *actuator.SimPin
	activeHigh bool
}

func newSimSwitch(activeHigh bool) *simSwitch {
	s := &simSwitch{pin: actuator.NewSimPin(rpio.Low), activeHigh: activeHigh}
	s.Set(false)
	return s
}

func (s *simSwitch) Set(asserted bool) {
	s.pin.Set(asserted == s.activeHigh)
}

func (s *simSwitch) LimitSwitch() sensor.LimitSwitch {
	return sensor.NewLimitSwitch(s.pin, s.activeHigh)
}

// simEndstops closes switches when platform reaches ends of travel.
func simEndstops(ctx context.Context, p *platform.Platform, top, bottom *simSwitch) {
	t := time.NewTicker(time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st := p.Status()
			bottom.Set(st.Position == 0 && st.Direction == platform.Down)
			top.Set(st.Position >= p.MaxPosition())
		}
	}
}
