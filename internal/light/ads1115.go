// Package light reads an analog light sensor through an ADS1115 converter
// and reports it on the controller's 12-bit raw scale, higher being darker.
package light

import (
	"fmt"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
)

// MaxLevel is the top of the raw light scale.
const MaxLevel = 4095

// DefaultAddress is the ADS1115 address with ADDR tied to ground.
const DefaultAddress = 0x48

// sampleRate is the converter data rate. Samples are taken seconds apart so
// the slowest low-noise rate is plenty.
const sampleRate = 128 * physic.Hertz

var channels = [...]ads1x15.Channel{
	ads1x15.Channel0,
	ads1x15.Channel1,
	ads1x15.Channel2,
	ads1x15.Channel3,
}

// Options selects the converter input and how its voltage maps onto the
// light scale.
type Options struct {
	Address   uint16
	Channel   int                      // single-ended input 0..3
	FullScale physic.ElectricPotential // voltage read at MaxLevel
	Invert    bool                     // voltage rises with brightness
}

type sampler interface {
	Read() (analog.Sample, error)
	Halt() error
}

// ADC is a light sensor on one ADS1115 input.
type ADC struct {
	pin       sampler
	fullScale physic.ElectricPotential
	invert    bool
}

// NewADS1115 opens the converter on bus and configures o.Channel for
// single-ended reads up to o.FullScale.
func NewADS1115(bus i2c.Bus, o Options) (*ADC, error) {
	if o.Channel < 0 || o.Channel >= len(channels) {
		return nil, fmt.Errorf("adc channel %d out of range", o.Channel)
	}
	if o.FullScale <= 0 {
		return nil, fmt.Errorf("adc full scale %s must be positive", o.FullScale)
	}
	if o.Address == 0 {
		o.Address = DefaultAddress
	}
	dev, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: o.Address})
	if err != nil {
		return nil, fmt.Errorf("open ads1115 at %#x: %w", o.Address, err)
	}
	pin, err := dev.PinForChannel(channels[o.Channel], o.FullScale, sampleRate, ads1x15.BestQuality)
	if err != nil {
		return nil, fmt.Errorf("configure ads1115 channel %d: %w", o.Channel, err)
	}
	return newADC(pin, o), nil
}

func newADC(pin sampler, o Options) *ADC {
	return &ADC{pin: pin, fullScale: o.FullScale, invert: o.Invert}
}

// Level reads the input and scales it to 0..MaxLevel.
func (a *ADC) Level() (int, error) {
	s, err := a.pin.Read()
	if err != nil {
		return 0, fmt.Errorf("read adc: %w", err)
	}
	return Scale(s.V, a.fullScale, a.invert), nil
}

// Close stops the converter.
func (a *ADC) Close() error {
	return a.pin.Halt()
}

// Scale maps v in 0..full onto 0..MaxLevel, clamping out-of-range
// readings. With invert the scale runs the other way.
func Scale(v, full physic.ElectricPotential, invert bool) int {
	if full <= 0 {
		return 0
	}
	if v < 0 {
		v = 0
	}
	if v > full {
		v = full
	}
	level := int(int64(v) * MaxLevel / int64(full))
	if invert {
		level = MaxLevel - level
	}
	return level
}
