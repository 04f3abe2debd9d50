// Package eeprom provides credential store backends: a 24LC256 serial
// EEPROM on I2C, a file-backed image, an in-memory fake for tests, and a
// no-op store for running without persistence.
package eeprom

import (
	"errors"
	"fmt"
)

// Size is the capacity of a 24LC256 in bytes.
const Size = 32 * 1024

// PageSize is the write page of a 24LC256. A single write must not cross a
// page boundary.
const PageSize = 64

// Erased is the value of a byte that has never been written.
const Erased = 0xFF

// ErrOutOfRange is returned for accesses outside the device.
var ErrOutOfRange = errors.New("eeprom: access out of range")

func checkRange(offset, length int) error {
	if offset < 0 || length < 0 || offset+length > Size {
		return fmt.Errorf("%w: offset %d length %d", ErrOutOfRange, offset, length)
	}
	return nil
}

// pages splits a write into chunks that each stay within one page.
func pages(offset int, data []byte, fn func(offset int, chunk []byte) error) error {
	for len(data) > 0 {
		n := PageSize - offset%PageSize
		if n > len(data) {
			n = len(data)
		}
		if err := fn(offset, data[:n]); err != nil {
			return err
		}
		offset += n
		data = data[n:]
	}
	return nil
}

// Nop discards writes and reads back erased memory. The controller then
// always boots into first-run setup.
type Nop struct{}

// Read returns erased bytes.
func (Nop) Read(offset, length int) ([]byte, error) {
	if err := checkRange(offset, length); err != nil {
		return nil, err
	}
	return erased(length), nil
}

// Write discards data.
func (Nop) Write(offset int, data []byte) error {
	return checkRange(offset, len(data))
}

func erased(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = Erased
	}
	return b
}
