package rtc

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// DS3231Address is the fixed bus address of the DS3231.
const DS3231Address = 0x68

// Timekeeping registers, seconds first.
const (
	regSeconds = 0x00
	numRegs    = 7
)

// DS3231 is a DS3231 real-time clock in 24-hour mode.
type DS3231 struct {
	dev *i2c.Dev
}

// NewDS3231 returns a clock on bus.
func NewDS3231(bus i2c.Bus) *DS3231 {
	return &DS3231{dev: &i2c.Dev{Bus: bus, Addr: DS3231Address}}
}

// Now reads all timekeeping registers in one transaction.
func (d *DS3231) Now() (time.Time, error) {
	var r [numRegs]byte
	if err := d.dev.Tx([]byte{regSeconds}, r[:]); err != nil {
		return time.Time{}, fmt.Errorf("read ds3231: %w", err)
	}
	return decode(r), nil
}

// SetTime writes t to the timekeeping registers.
func (d *DS3231) SetTime(t time.Time) error {
	r := encode(t)
	if err := d.dev.Tx(append([]byte{regSeconds}, r[:]...), nil); err != nil {
		return fmt.Errorf("write ds3231: %w", err)
	}
	return nil
}

// ReadDate implements the controller clock. Bus errors are logged and read
// as the zero date.
func (d *DS3231) ReadDate() (day, month, year, weekday int) {
	t, err := d.Now()
	if err != nil {
		log.Printf("rtc: %v", err)
		return 0, 0, 0, 0
	}
	return dateOf(t)
}

// ReadTime implements the controller clock.
func (d *DS3231) ReadTime() (hour, min, sec int) {
	t, err := d.Now()
	if err != nil {
		log.Printf("rtc: %v", err)
		return 0, 0, 0
	}
	return t.Clock()
}

func decode(r [numRegs]byte) time.Time {
	sec := BCDToBin(r[0] & 0x7F)
	min := BCDToBin(r[1] & 0x7F)
	hour := BCDToBin(r[2] & 0x3F)
	day := BCDToBin(r[4] & 0x3F)
	month := BCDToBin(r[5] & 0x1F)
	year := 2000 + BCDToBin(r[6])
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, time.Local)
}

func encode(t time.Time) [numRegs]byte {
	return [numRegs]byte{
		BinToBCD(t.Second()),
		BinToBCD(t.Minute()),
		BinToBCD(t.Hour()),
		BinToBCD(int(t.Weekday()) + 1),
		BinToBCD(t.Day()),
		BinToBCD(int(t.Month())),
		BinToBCD(t.Year() % 100),
	}
}
