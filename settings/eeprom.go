package settings

import (
	"fmt"
	"sync"
	"time"

	"tinygo.org/x/drivers"
)

// Erased is the content of a cell that was never written.
const Erased = 0xff

// DefaultLayout places every key in its own cell at the start of memory.
func DefaultLayout() map[Key]uint16 {
	l := make(map[Key]uint16, len(Keys))
	for i, k := range Keys {
		l[k] = uint16(i)
	}
	return l
}

// EEPROM is a Store on a 24Cxx serial EEPROM with 16 bit cell addresses.
// Cells are only written when value changes.
type EEPROM struct {
	bus    drivers.I2C
	addr   uint16
	layout map[Key]uint16

	mu     sync.Mutex
	writes int
	// Internal write cycle time of the chip.
	cycle time.Duration
	sleep func(time.Duration)
}

func NewEEPROM(bus drivers.I2C, addr uint16, layout map[Key]uint16) *EEPROM {
	if layout == nil {
		layout = DefaultLayout()
	}
	return &EEPROM{
		bus:    bus,
		addr:   addr,
		layout: layout,
		cycle:  5 * time.Millisecond,
		sleep:  time.Sleep,
	}
}

func (e *EEPROM) cell(key Key) (uint16, error) {
	c, ok := e.layout[key]
	if !ok {
		return 0, fmt.Errorf("no eeprom cell for %q", key)
	}
	return c, nil
}

func (e *EEPROM) read(cell uint16) (uint8, error) {
	buf := []byte{0}
	if err := e.bus.Tx(e.addr, []byte{byte(cell >> 8), byte(cell)}, buf); err != nil {
		return 0, fmt.Errorf("read eeprom cell %d: %w", cell, err)
	}
	return buf[0], nil
}

func (e *EEPROM) Load(key Key) (uint8, error) {
	c, err := e.cell(key)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	v, err := e.read(c)
	if err != nil {
		return 0, err
	}
	if v == Erased {
		return 0, ErrNotFound
	}
	return v, nil
}

func (e *EEPROM) Save(key Key, v uint8) error {
	c, err := e.cell(key)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	old, err := e.read(c)
	if err != nil {
		return err
	}
	if old == v {
		return nil
	}
	if err := e.bus.Tx(e.addr, []byte{byte(c >> 8), byte(c), v}, nil); err != nil {
		return fmt.Errorf("write eeprom cell %d: %w", c, err)
	}
	e.writes++
	lg.Infof("saved %s=%d", key, v)
	e.sleep(e.cycle)
	return nil
}

// Writes returns number of cell writes issued.
func (e *EEPROM) Writes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writes
}
