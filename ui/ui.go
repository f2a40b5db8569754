package ui

import (
	"context"
	"time"

	"github.com/aliher1911/resinctl/input"
)

// State is a snapshot of what the panel edits.
type State struct {
	// Platform target position.
	Target uint16
	// Position units per encoder click.
	Jog uint16
	// Upper bound of target.
	Max uint16
}

// Update is a document edited by the panel.
type Update interface {
	SetTarget(target uint16)
	ToggleHome()
	GetState() State
}

// Knob is a rotary encoder with a push button.
type Knob interface {
	Delta() (int, error)
	Button() (pressed bool, flagged bool, err error)
}

// Panel performs user interaction.
type Panel struct {
	// Panel interrupt
	intC <-chan time.Time
	knob Knob
	ledC chan<- *input.LedOp

	// Document
	doc Update

	debounceT time.Duration
	applyT    time.Duration
}

func NewPanel(knob Knob, intC <-chan time.Time, led chan<- *input.LedOp, doc Update) *Panel {
	return &Panel{
		intC:      intC,
		knob:      knob,
		ledC:      led,
		doc:       doc,
		debounceT: 100 * time.Millisecond,
		applyT:    3 * time.Second,
	}
}

type state int

const (
	// waiting for user input
	idle state = iota
	// after receiving interrupt, wait for a while to mask spurious changes
	debounce
	// wait for more input before applying state to underlying document
	edit
)

func (s state) String() string {
	switch s {
	case idle:
		return "idle"
	case debounce:
		return "debounce"
	default:
		return "edit"
	}
}

// Run is the panel state machine loop.
func (u *Panel) Run(ctx context.Context) error {
	s := idle
	btn := false
	var base, orig State
	t := time.NewTimer(never)
	resetT := func(d time.Duration) {
		if !t.Stop() {
			select {
			case <-t.C:
			default:
			}
		}
		t.Reset(d)
	}

	for {
		lg.Debugf("panel state is %s", s)
		switch s {
		case idle:
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-u.intC:
				s = debounce
				resetT(u.debounceT)
				base = u.doc.GetState()
				orig = base
				lg.Debugf("starting edit with base target %d", base.Target)
			}
		case debounce:
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
				s = edit
				if b, _, err := u.knob.Button(); err == nil {
					if b != btn && b {
						lg.Info("button pressed, toggling homing")
						u.doc.ToggleHome()
						// Homing resets target, drop pending edit.
						base = u.doc.GetState()
						orig = base
					}
					btn = b
				} else {
					lg.Errorf("failed to read button state: %s", err)
				}
				if d, err := u.knob.Delta(); err == nil && d != 0 {
					base.Target = jog(base, d)
					u.led(input.NewLedOp(editColor(orig.Target, base.Target), u.applyT))
				} else if err != nil {
					lg.Errorf("failed to read encoder delta: %s", err)
				}
				resetT(u.applyT)
			case <-u.intC:
				lg.Debug("ignoring interrupts while debouncing")
			}
		case edit:
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-u.intC:
				s = debounce
				resetT(u.debounceT)
			case <-t.C:
				s = idle
				if base.Target != orig.Target {
					u.doc.SetTarget(base.Target)
					lg.Infof("finished edit with new target %d", base.Target)
				}
			}
		}
	}
}

func (u *Panel) led(op *input.LedOp) {
	select {
	case u.ledC <- op:
	default:
	}
}

const never = time.Duration(1<<63 - 1)

// jog moves target by clicks within [0, Max].
func jog(s State, clicks int) uint16 {
	v := int64(s.Target) + int64(clicks)*int64(s.Jog)
	switch {
	case v < 0:
		return 0
	case v > int64(s.Max):
		return s.Max
	}
	return uint16(v)
}

func editColor(from, to uint16) input.Color {
	switch {
	case to > from:
		return input.Yellow.Scale(0.5)
	case to < from:
		return input.Green.Scale(0.5)
	}
	return input.Off
}
