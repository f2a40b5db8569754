package input

import (
	"context"
	"time"
)

// Pixel is a single color indicator.
type Pixel interface {
	LED(c Color) error
}

// LedOp is a sequence of colors each shown for a duration.
type LedOp struct {
	c Color
	t time.Duration
	n *LedOp
}

func NewLedOp(c Color, t time.Duration, next ...*LedOp) *LedOp {
	root := &LedOp{
		c: c,
		t: t,
	}
	last := root
	for _, n := range next {
		last.n = n
		last = n
		for nn := n.n; nn != nil; nn = nn.n {
			last = nn
		}
	}
	return root
}

const never = time.Duration(1<<63 - 1)

// Steady keeps color until replaced.
func Steady(c Color) *LedOp {
	return NewLedOp(c, never)
}

type LED struct {
	p    Pixel
	outC chan *LedOp
}

func NewLED(p Pixel) (*LED, chan *LedOp) {
	c := make(chan *LedOp, 10)
	return &LED{
		p:    p,
		outC: c,
	}, c
}

// Run is a LED work loop and should be started in a separate
// goroutine.
func (l *LED) Run(ctx context.Context) error {
	t := time.NewTimer(never)
	next := Steady(Off)
	for {
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case next = <-l.outC:
			if !t.Stop() {
				select {
				case <-t.C:
				default:
				}
			}
		case <-t.C:
		}
		if err := l.p.LED(next.c); err != nil {
			lg.Warningf("failed to set led color: %s", err)
		}
		t.Reset(next.t)
		if next.n != nil {
			next = next.n
		} else {
			// Turn off at the end of sequence.
			next = Steady(Off)
		}
	}
}
