// Package rfid reads proximity card UIDs from an MFRC522 on SPI.
package rfid

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/mfrc522"
)

// DefaultTimeout bounds how long a poll waits for a card to answer.
const DefaultTimeout = 10 * time.Millisecond

// MFRC522 adapts the periph driver to the controller's card reader.
// A successful CardPresent caches the UID for the following ReadUID.
type MFRC522 struct {
	dev     *mfrc522.Dev
	timeout time.Duration
	uid     []byte
}

// NewMFRC522 opens the reader on port with its reset and IRQ pins.
func NewMFRC522(port spi.Port, reset gpio.PinOut, irq gpio.PinIn, timeout time.Duration) (*MFRC522, error) {
	dev, err := mfrc522.NewSPI(port, reset, irq)
	if err != nil {
		return nil, fmt.Errorf("open mfrc522: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &MFRC522{dev: dev, timeout: timeout}, nil
}

// CardPresent polls for a card in the field.
func (r *MFRC522) CardPresent() bool {
	uid, err := r.dev.ReadUID(r.timeout)
	if err != nil || len(uid) == 0 {
		// A timeout is the normal no-card outcome.
		r.uid = nil
		return false
	}
	r.uid = uid
	return true
}

// ReadUID returns the UID found by the last CardPresent.
func (r *MFRC522) ReadUID() ([]byte, bool) {
	uid := r.uid
	r.uid = nil
	return uid, uid != nil
}

// Halt puts the card to sleep so it is not read again while it stays in
// the field.
func (r *MFRC522) Halt() {
	if err := r.dev.Halt(); err != nil {
		log.Printf("rfid: halt: %v", err)
	}
}

// Close shuts the reader down.
func (r *MFRC522) Close() error {
	return r.dev.Halt()
}
