// Package i2cdev connects I2C peripherals of the printer board.
package i2cdev

// Conf locates a device on a bus.
type Conf struct {
	Bus  int   `toml:"bus"`
	Addr uint8 `toml:"addr"`
}

// Default fills in device address if none was configured.
func (c *Conf) Default(a uint8) {
	if c.Addr == 0 {
		c.Addr = a
	}
}
