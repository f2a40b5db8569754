package i2cdev

import (
	"fmt"
	"sync"

	i2c "github.com/aliher1911/go-i2c"
	"tinygo.org/x/drivers"
)

// Bus exposes a Linux I2C bus as drivers.I2C. Device handles are opened
// lazily, one per slave address.
type Bus struct {
	bus int

	mu      sync.Mutex
	devices map[uint16]*i2c.I2C
}

var _ drivers.I2C = (*Bus)(nil)

func NewBus(bus int) *Bus {
	return &Bus{
		bus:     bus,
		devices: make(map[uint16]*i2c.I2C),
	}
}

// device must be called with lock held.
func (b *Bus) device(addr uint16) (*i2c.I2C, error) {
	if d, ok := b.devices[addr]; ok {
		return d, nil
	}
	d, err := i2c.NewI2C(uint8(addr), b.bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c-%d device 0x%02x: %w", b.bus, addr, err)
	}
	b.devices[addr] = d
	return d, nil
}

// Tx writes w then reads into r. Either could be empty.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.device(addr)
	if err != nil {
		return err
	}
	if len(w) > 0 {
		c, err := d.WriteBytes(w)
		if err != nil {
			return err
		}
		if exp := len(w); exp != c {
			return fmt.Errorf("expected to write %d bytes, wrote %d", exp, c)
		}
	}
	if len(r) > 0 {
		c, err := d.ReadBytes(r)
		if err != nil {
			return err
		}
		if exp := len(r); exp != c {
			return fmt.Errorf("expected to read %d bytes, read %d", exp, c)
		}
	}
	return nil
}

func (b *Bus) ReadRegister(addr uint8, r uint8, buf []byte) error {
	return b.Tx(uint16(addr), []byte{r}, buf)
}

func (b *Bus) WriteRegister(addr uint8, r uint8, buf []byte) error {
	w := make([]byte, 1, 1+len(buf))
	w[0] = r
	return b.Tx(uint16(addr), append(w, buf...), nil)
}

// Close releases all device handles.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for a, d := range b.devices {
		d.Close()
		delete(b.devices, a)
	}
}
