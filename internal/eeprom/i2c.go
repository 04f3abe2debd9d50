package eeprom

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// DefaultAddress is the 24LC256 address with A0-A2 tied low.
const DefaultAddress = 0x50

// writeCycle is the worst-case internal write time after a page write.
const writeCycle = 5 * time.Millisecond

// I2C is a 24LC256 on an I2C bus. Addresses are two bytes, high first.
type I2C struct {
	dev *i2c.Dev
}

// NewI2C returns a store for the device at addr on bus.
func NewI2C(bus i2c.Bus, addr uint16) *I2C {
	return &I2C{dev: &i2c.Dev{Bus: bus, Addr: addr}}
}

// Read performs a random read of length bytes at offset.
func (e *I2C) Read(offset, length int) ([]byte, error) {
	if err := checkRange(offset, length); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	if err := e.dev.Tx(address(offset), buf); err != nil {
		return nil, fmt.Errorf("eeprom read %d@%#04x: %w", length, offset, err)
	}
	return buf, nil
}

// Write performs page writes and waits out each write cycle.
func (e *I2C) Write(offset int, data []byte) error {
	if err := checkRange(offset, len(data)); err != nil {
		return err
	}
	return pages(offset, data, func(off int, chunk []byte) error {
		w := append(address(off), chunk...)
		if err := e.dev.Tx(w, nil); err != nil {
			return fmt.Errorf("eeprom write %d@%#04x: %w", len(chunk), off, err)
		}
		time.Sleep(writeCycle)
		return nil
	})
}

func (e *I2C) String() string {
	return fmt.Sprintf("24LC256@%#02x", e.dev.Addr)
}

func address(offset int) []byte {
	return []byte{byte(offset >> 8), byte(offset)}
}
