// Package rtc provides the real-time clock used to timestamp access-log
// records: a DS3231 over I2C, or the host clock.
package rtc

import "time"

// BCDToBin decodes a packed BCD byte.
func BCDToBin(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}

// BinToBCD encodes 0..99 as packed BCD.
func BinToBCD(n int) byte {
	return byte(n/10)<<4 | byte(n%10)
}

// System reads the host clock.
type System struct{}

// ReadDate returns the current date with a two-digit year.
func (System) ReadDate() (day, month, year, weekday int) {
	return dateOf(time.Now())
}

// ReadTime returns the current time of day.
func (System) ReadTime() (hour, min, sec int) {
	return time.Now().Clock()
}

// Fixed always reports the same instant.
type Fixed time.Time

// ReadDate returns the fixed date.
func (f Fixed) ReadDate() (day, month, year, weekday int) {
	return dateOf(time.Time(f))
}

// ReadTime returns the fixed time of day.
func (f Fixed) ReadTime() (hour, min, sec int) {
	return time.Time(f).Clock()
}

// dateOf uses DS3231 weekday numbering, 1 = Sunday.
func dateOf(t time.Time) (day, month, year, weekday int) {
	return t.Day(), int(t.Month()), t.Year() % 100, int(t.Weekday()) + 1
}
