package i2cdev

import (
	"context"
	"time"

	logger "github.com/d2r2/go-logger"
	"github.com/stianeikeland/go-rpio/v4"
)

var lg = logger.NewPackageLogger("i2cdev", logger.InfoLevel)

// EdgeSource reports latched edge events.
type EdgeSource interface {
	EdgeDetected() bool
}

// IntPin is an open drain active low interrupt line of a peripheral.
type IntPin struct {
	set bool
	pin rpio.Pin
}

// NewIntPin configures pin as pulled up input with edge detection. Negative
// pin number gives a disconnected pin that never fires.
func NewIntPin(pinNum int, edge rpio.Edge) IntPin {
	if pinNum < 0 {
		return IntPin{}
	}
	pin := rpio.Pin(pinNum)
	pin.Mode(rpio.Input)
	pin.Pull(rpio.PullUp)
	pin.Detect(edge)
	return IntPin{
		set: true,
		pin: pin,
	}
}

func (p IntPin) EdgeDetected() bool {
	return p.set && p.pin.EdgeDetected()
}

// Watch polls edge source and sends a notification for every detected edge.
// Notifications are dropped while previous one is pending.
func Watch(ctx context.Context, src EdgeSource, interval time.Duration, c chan<- time.Time) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if !src.EdgeDetected() {
				continue
			}
			select {
			case c <- now:
			default:
				lg.Debug("interrupt already pending")
			}
		}
	}
}
