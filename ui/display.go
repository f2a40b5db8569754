package ui

import (
	"sync"

	logger "github.com/d2r2/go-logger"
)

// Slot identifies a value shown by the menu.
type Slot uint8

const (
	SlotTiltAngle        Slot = 13
	SlotTiltSpeed        Slot = 14
	SlotPlatformSpeed    Slot = 17
	SlotLayer            Slot = 18
	SlotBaseLayer        Slot = 19
	SlotPlatformTarget   Slot = 20
	SlotPlatformPosition Slot = 21
)

func (s Slot) String() string {
	switch s {
	case SlotTiltAngle:
		return "tilt-angle"
	case SlotTiltSpeed:
		return "tilt-speed"
	case SlotPlatformSpeed:
		return "platform-speed"
	case SlotLayer:
		return "layer"
	case SlotBaseLayer:
		return "base-layer"
	case SlotPlatformTarget:
		return "platform-target"
	case SlotPlatformPosition:
		return "platform-position"
	default:
		return "slot"
	}
}

// Display receives values whenever they change. Implementations must not
// block, values may be pushed from step timer handler.
type Display interface {
	SetValue(slot Slot, value uint16)
}

type NopDisplay struct{}

func (NopDisplay) SetValue(Slot, uint16) {}

var lg = logger.NewPackageLogger("ui", logger.InfoLevel)

// LoggerDisplay keeps last values and logs updates.
type LoggerDisplay struct {
	mu     sync.Mutex
	values map[Slot]uint16
}

func NewLoggerDisplay() *LoggerDisplay {
	return &LoggerDisplay{values: make(map[Slot]uint16)}
}

func (d *LoggerDisplay) SetValue(slot Slot, value uint16) {
	d.mu.Lock()
	d.values[slot] = value
	d.mu.Unlock()
	lg.Debugf("display %s(%d) = %d", slot, uint8(slot), value)
}

// Value returns last value pushed to slot.
func (d *LoggerDisplay) Value(slot Slot) (uint16, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.values[slot]
	return v, ok
}
