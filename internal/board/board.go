// Package board opens the Raspberry Pi buses the peripheral drivers sit on.
package board

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Board holds the opened buses. SPI is nil when no card reader is used.
type Board struct {
	I2C i2c.BusCloser
	SPI spi.PortCloser
}

// Open initializes the host drivers and opens the named I2C bus and, with
// withSPI, the SPI port. Empty names pick the first bus or port.
func Open(i2cBus, spiPort string, withSPI bool) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}

	b := &Board{}
	bus, err := i2creg.Open(i2cBus)
	if err != nil {
		return nil, fmt.Errorf("open i2c %q: %w", i2cBus, err)
	}
	b.I2C = bus

	if withSPI {
		port, err := spireg.Open(spiPort)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("open spi %q: %w", spiPort, err)
		}
		b.SPI = port
	}
	return b, nil
}

// Pin looks up a GPIO pin by its periph name, e.g. "GPIO25".
func Pin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("unknown pin %q", name)
	}
	return p, nil
}

// Close releases the buses.
func (b *Board) Close() error {
	var errs []error
	if b.SPI != nil {
		if err := b.SPI.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.I2C != nil {
		if err := b.I2C.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
