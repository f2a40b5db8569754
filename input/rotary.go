// Package input talks to the front panel: an I2C seesaw rotary encoder with
// a push button and a single NeoPixel.
package input

import (
	"encoding/binary"
	"fmt"
	"time"

	i2cdev "github.com/aliher1911/resinctl/i2c"

	logger "github.com/d2r2/go-logger"
	"tinygo.org/x/drivers"
)

var lg = logger.NewPackageLogger("input", logger.InfoLevel)

type Rotary struct {
	bus   drivers.I2C
	addr  uint16
	c     Conf
	sleep func(time.Duration)
}

// Color is a NeoPixel value in GRB order.
type Color uint32

// Adjust brightness. Hue could drift after multiple operations.
func (c Color) Scale(coef float32) Color {
	scale := func(val Color) Color {
		r := Color(float32(val&0xff) * coef)
		if r > 255 {
			r = 255
		}
		return r
	}
	return scale(c>>16)<<16 | scale(c>>8)<<8 | scale(c)
}

// Add mixes colors saturating every channel.
func (c Color) Add(o Color) Color {
	add := func(shift uint) Color {
		v := (c>>shift)&0xff + (o>>shift)&0xff
		if v > 255 {
			v = 255
		}
		return v << shift
	}
	return add(16) | add(8) | add(0)
}

const (
	Off    Color = 0
	Green  Color = 0xff0000
	Red    Color = 0x00ff00
	Blue   Color = 0x0000ff
	Yellow Color = 0xffff00
	White  Color = 0xffffff
)

const (
	GPIO_BASE = 0x01

	GPIO_DIRSET_BULK = 0x02
	GPIO_DIRCLR_BULK = 0x03
	GPIO_BULK        = 0x04
	GPIO_BULK_SET    = 0x05
	GPIO_BULK_CLR    = 0x06
	GPIO_BULK_TOGGLE = 0x07
	GPIO_INTENSET    = 0x08
	GPIO_INTENCLR    = 0x09
	// Read to reset the all gpio int flags.
	GPIO_INTFLAG   = 0x0A
	GPIO_PULLENSET = 0x0B
	GPIO_PULLENCLR = 0x0C

	ENCODER_BASE = 0x11

	ENCODER_STATUS   = 0x00
	ENCODER_INTENSET = 0x10
	ENCODER_INTENCLR = 0x20
	// Read any to reset rotary int flag.
	ENCODER_POSITION = 0x30
	ENCODER_DELTA    = 0x40

	NEOPIXEL_BASE = 0x0E

	NEOPIXEL_PIN        = 0x01
	NEOPIXEL_BUF_LENGTH = 0x03
	NEOPIXEL_BUF        = 0x04
	NEOPIXEL_SHOW       = 0x05
)

const delay = 8 * time.Millisecond
const neopixelPin = 6
const buttonPin = 24
const defaultAddr = 0x36

type Conf struct {
	i2cdev.Conf
	NeopixelPin int `toml:"neopixel_pin"`
	ButtonPin   int `toml:"button_pin"`
}

func Default(bus int) Conf {
	return Conf{
		Conf: i2cdev.Conf{
			Addr: defaultAddr,
			Bus:  bus,
		},
		NeopixelPin: neopixelPin,
		ButtonPin:   buttonPin,
	}
}

func NewRotary(bus drivers.I2C, c Conf) (*Rotary, error) {
	c.Default(defaultAddr)
	s := &Rotary{
		bus:   bus,
		addr:  uint16(c.Addr),
		c:     c,
		sleep: time.Sleep,
	}

	// Setup rotary interrupt
	if err := s.write(ENCODER_BASE, ENCODER_INTENSET, []byte{0x01}); err != nil {
		return nil, fmt.Errorf("enable encoder interrupt: %w", err)
	}

	// Setup button pin to INPUT_PULLUP
	cmd := s.buttonMask()
	for _, reg := range []byte{GPIO_DIRCLR_BULK, GPIO_PULLENSET, GPIO_BULK_SET, GPIO_INTENSET} {
		if err := s.write(GPIO_BASE, reg, cmd); err != nil {
			return nil, fmt.Errorf("setup button pin %d: %w", c.ButtonPin, err)
		}
	}

	lg.Debugf("setting neopixel pin to %d", c.NeopixelPin)
	if err := s.write(NEOPIXEL_BASE, NEOPIXEL_PIN, []byte{byte(c.NeopixelPin)}); err != nil {
		return nil, fmt.Errorf("setup neopixel: %w", err)
	}
	// buf length is 3 = 1 LED with 3 bpp, encoded as short big endian
	if err := s.write(NEOPIXEL_BASE, NEOPIXEL_BUF_LENGTH, []byte{0, 3}); err != nil {
		return nil, fmt.Errorf("setup neopixel: %w", err)
	}

	return s, nil
}

func (r *Rotary) buttonMask() []byte {
	cmd := make([]byte, 4)
	binary.BigEndian.PutUint32(cmd, uint32(1)<<uint32(r.c.ButtonPin))
	return cmd
}

// Delta returns number of clicks since last call, clockwise is positive.
func (r *Rotary) Delta() (int, error) {
	buf := make([]byte, 4)
	if err := r.read(ENCODER_BASE, ENCODER_DELTA, buf); err != nil {
		return 0, err
	}
	return int(int32(binary.BigEndian.Uint32(buf))), nil
}

// Button returns current pressed state and whether button interrupt flag
// was set.
func (r *Rotary) Button() (bool, bool, error) {
	flags := make([]byte, 4)
	if err := r.read(GPIO_BASE, GPIO_INTFLAG, flags); err != nil {
		return false, false, err
	}
	buf := make([]byte, 4)
	if err := r.read(GPIO_BASE, GPIO_BULK, buf); err != nil {
		return false, false, err
	}
	mask := uint32(1) << r.c.ButtonPin
	return (binary.BigEndian.Uint32(buf) & mask) == 0, (binary.BigEndian.Uint32(flags) & mask) != 0, nil
}

func (r *Rotary) LED(c Color) error {
	buf := []byte{0, 0, byte((c >> 16) & 0xff), byte((c >> 8) & 0xff), byte(c & 0xff)}
	if err := r.write(NEOPIXEL_BASE, NEOPIXEL_BUF, buf); err != nil {
		return err
	}
	return r.write(NEOPIXEL_BASE, NEOPIXEL_SHOW, nil)
}

func (r *Rotary) Close() {
	if err := r.LED(Off); err != nil {
		lg.Warningf("failed to turn off led: %s", err)
	}
	r.write(ENCODER_BASE, ENCODER_INTENCLR, []byte{0x01})
	r.write(GPIO_BASE, GPIO_INTENCLR, r.buttonMask())
}

func (r *Rotary) write(base, reg byte, extra []byte) error {
	b := make([]byte, 2, 2+len(extra))
	b[0], b[1] = base, reg
	b = append(b, extra...)
	return r.bus.Tx(r.addr, b, nil)
}

// read selects register then reads it back after conversion delay.
func (r *Rotary) read(base, reg byte, buf []byte) error {
	if err := r.write(base, reg, nil); err != nil {
		return err
	}
	r.sleep(delay)
	return r.bus.Tx(r.addr, nil, buf)
}
