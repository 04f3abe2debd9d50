// Package gpio provides the door controller's GPIO hardware: indicator,
// buzzer and lock outputs, the inside door button, the 4x4 keypad matrix and
// a digital light sensor.
// The real implementation uses Linux GPIO character device.
// The fake implementations allow testing without hardware.
package gpio

import "github.com/sweeney/door-controller/internal/logic"

// Matrix reports the key currently held on the keypad.
type Matrix interface {
	// Scan returns the held key, or false when no key is down.
	Scan() (rune, bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Pins is the BCM pin assignment.
type Pins struct {
	Armed      int   `yaml:"armed"`
	Disarmed   int   `yaml:"disarmed"`
	LowLight   int   `yaml:"low_light"`
	Buzzer     int   `yaml:"buzzer"`
	DoorLock   int   `yaml:"door_lock"`
	DoorButton int   `yaml:"door_button"`
	Light      int   `yaml:"light"`
	Rows       []int `yaml:"rows"`
	Cols       []int `yaml:"cols"`
}

// DefaultPins keeps the I2C and SPI0 pins free.
func DefaultPins() Pins {
	return Pins{
		Armed:      5,
		Disarmed:   6,
		LowLight:   13,
		Buzzer:     19,
		DoorLock:   26,
		DoorButton: 21,
		Light:      20,
		Rows:       []int{12, 16, 4, 17},
		Cols:       []int{27, 22, 23, 24},
	}
}

// outputPin maps each actuator output to its pin.
func (p Pins) outputPin(out logic.Output) int {
	switch out {
	case logic.OutputArmed:
		return p.Armed
	case logic.OutputDisarmed:
		return p.Disarmed
	case logic.OutputLowLight:
		return p.LowLight
	case logic.OutputBuzzer:
		return p.Buzzer
	case logic.OutputDoorLock:
		return p.DoorLock
	}
	return -1
}

// Layout is the key legend of a 4x4 membrane keypad, row by row.
var Layout = [4][4]rune{
	{'1', '2', '3', 'A'},
	{'4', '5', '6', 'B'},
	{'7', '8', '9', 'C'},
	{'*', '0', '#', 'D'},
}

// Raw light levels reported for a digital light module. Higher is darker.
const (
	LevelBright = 0
	LevelDark   = 4095
)

// DigitalLevel maps a comparator output (1 = dark) onto the raw scale.
func DigitalLevel(v int) int {
	if v != 0 {
		return LevelDark
	}
	return LevelBright
}
