// Package lcd drives the character display: an HD44780 behind a PCF8574
// I2C backpack, plus an in-memory grid for tests and headless runs.
package lcd

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// DefaultAddress is the usual PCF8574 backpack address.
const DefaultAddress = 0x27

// Backpack pin mapping.
const (
	bitRS        = 1 << 0
	bitEnable    = 1 << 2
	bitBacklight = 1 << 3
)

// HD44780 commands.
const (
	cmdClear      = 0x01
	cmdEntryMode  = 0x06 // increment, no shift
	cmdDisplayOn  = 0x0C // display on, cursor off
	cmdFunction4  = 0x28 // 4-bit, 2 line, 5x8
	cmdSetDDRAM   = 0x80
	clearDuration = 2 * time.Millisecond
)

// rowOffsets are the DDRAM addresses of each row on a 20x4 panel.
var rowOffsets = [4]byte{0x00, 0x40, 0x14, 0x54}

// HD44780 is a 20x4 character LCD.
type HD44780 struct {
	dev     *i2c.Dev
	lastErr error
}

// NewHD44780 initializes the display in 4-bit mode.
func NewHD44780(bus i2c.Bus, addr uint16) (*HD44780, error) {
	d := &HD44780{dev: &i2c.Dev{Bus: bus, Addr: addr}}

	// Reset into 4-bit mode by the datasheet's three-step sequence.
	time.Sleep(50 * time.Millisecond)
	for _, n := range []byte{0x03, 0x03, 0x03, 0x02} {
		if err := d.nibble(n<<4, 0); err != nil {
			return nil, fmt.Errorf("init lcd: %w", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	for _, c := range []byte{cmdFunction4, cmdDisplayOn, cmdClear, cmdEntryMode} {
		if err := d.send(c, 0); err != nil {
			return nil, fmt.Errorf("init lcd: %w", err)
		}
	}
	time.Sleep(clearDuration)
	return d, nil
}

// Clear blanks the display and homes the cursor.
func (d *HD44780) Clear() {
	d.check(d.send(cmdClear, 0))
	time.Sleep(clearDuration)
}

// SetCursor moves to row, col (both from 0).
func (d *HD44780) SetCursor(row, col int) {
	if row < 0 || row >= len(rowOffsets) {
		row = 0
	}
	d.check(d.send(cmdSetDDRAM|(rowOffsets[row]+byte(col)), 0))
}

// Write prints text at the cursor.
func (d *HD44780) Write(text string) {
	for i := 0; i < len(text); i++ {
		if err := d.send(text[i], bitRS); err != nil {
			d.check(err)
			return
		}
	}
	d.check(nil)
}

// check logs a bus error once until the bus recovers.
func (d *HD44780) check(err error) {
	if err != nil && d.lastErr == nil {
		log.Printf("lcd: %v", err)
	}
	if err == nil && d.lastErr != nil {
		log.Printf("lcd: bus recovered")
	}
	d.lastErr = err
}

func (d *HD44780) send(b, mode byte) error {
	if err := d.nibble(b&0xF0, mode); err != nil {
		return err
	}
	return d.nibble(b<<4, mode)
}

// nibble clocks the high four bits of b into the controller.
func (d *HD44780) nibble(b, mode byte) error {
	v := b | mode | bitBacklight
	return d.dev.Tx([]byte{v | bitEnable, v}, nil)
}
