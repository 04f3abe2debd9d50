package logic

import "time"

// Display is a character display. Calls are fire-and-forget.
type Display interface {
	Clear()
	SetCursor(row, col int)
	Write(text string)
}

// Keypad returns the most recent key press, if any. It must not block.
type Keypad interface {
	Poll() (rune, bool)
}

// CardReader is a proximity card reader. The session must be halted after
// every read attempt, accepted or not.
type CardReader interface {
	CardPresent() bool
	ReadUID() ([]byte, bool)
	Halt()
}

// Clock is a real-time clock. Year is two digits (20YY).
type Clock interface {
	ReadDate() (day, month, year, weekday int)
	ReadTime() (hour, min, sec int)
}

// Store is the non-volatile credential store. Both calls complete within
// the calling cycle.
type Store interface {
	Read(offset, length int) ([]byte, error)
	Write(offset int, data []byte) error
}

// Actuators drives the indicator, alert and lock outputs.
type Actuators interface {
	Set(out Output, cmd Command)
}

// LightSensor returns the current raw light reading. Higher is darker.
type LightSensor interface {
	Level() (int, error)
}

// EventSource is the external event queue.
type EventSource interface {
	HasEvent() bool
	TakeEvent() Event
}

// Peripherals bundles the collaborators owned by a Controller.
// Cards, Light and Events may be nil when the hardware is absent.
type Peripherals struct {
	Display   Display
	Keypad    Keypad
	Cards     CardReader
	Clock     Clock
	Store     Store
	Actuators Actuators
	Light     LightSensor
	Events    EventSource
}

// clockTime assembles a time.Time from the clock registers.
func clockTime(c Clock) time.Time {
	if c == nil {
		return time.Time{}
	}
	day, month, year, _ := c.ReadDate()
	hour, min, sec := c.ReadTime()
	return time.Date(2000+year, time.Month(month), day, hour, min, sec, 0, time.Local)
}
