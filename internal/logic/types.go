// Package logic contains the access controller: the state machine, the
// authentication engine, the light monitor and the persistence sequencer.
// This package has NO hardware dependencies. Every peripheral is reached
// through the interfaces in peripherals.go and time only advances when the
// caller runs a cycle.
package logic

import "time"

// State is a controller state.
type State string

const (
	StateInit               State = "INIT"
	StateSetPassword        State = "SET_PASSWORD"
	StateAwaitingCredential State = "AWAITING_CREDENTIAL"
	StateDisarmed           State = "DISARMED"
	StateOptionsAuth        State = "OPTIONS_AUTH"
	StateOptionsMenu        State = "OPTIONS_MENU"
	StateDoorOpen           State = "DOOR_OPEN"
	StateLockout            State = "LOCKOUT"
)

// EventType identifies an external event drained from the event queue.
type EventType string

const (
	// EventDoorButton is the inside push button. It opens the door from
	// idle states and closes it again while open.
	EventDoorButton EventType = "DOOR_BUTTON"
	// EventDoorClosed is a door contact or remote close command.
	EventDoorClosed EventType = "DOOR_CLOSED"
)

// Event is a discrete external event.
type Event struct {
	Type   EventType
	Source string // e.g. "gpio", "mqtt"
}

// Keypad keys with a fixed meaning. Digits are '0'..'9'.
const (
	KeyClear     = 'A'
	KeyLightMode = 'B'
	KeyOptions   = 'C'
	KeyConfirm   = 'D'
	KeyReset     = '*'
)

func isDigit(k rune) bool { return k >= '0' && k <= '9' }

// Output identifies an actuator.
type Output string

const (
	OutputArmed    Output = "armed"
	OutputDisarmed Output = "disarmed"
	OutputLowLight Output = "low_light"
	OutputBuzzer   Output = "buzzer"
	OutputDoorLock Output = "door_lock"
)

// Outputs lists every actuator output in a stable order.
var Outputs = []Output{OutputArmed, OutputDisarmed, OutputLowLight, OutputBuzzer, OutputDoorLock}

// Command is an actuator command.
type Command string

const (
	CommandOn        Command = "ON"
	CommandOff       Command = "OFF"
	CommandBlink     Command = "BLINK"
	CommandFastBlink Command = "FAST_BLINK"
)

// ActivityType classifies something the controller did that the outside
// world may want to know about.
type ActivityType string

const (
	ActivityDoorOpened  ActivityType = "DOOR_OPENED"
	ActivityDoorClosed  ActivityType = "DOOR_CLOSED"
	ActivityDenied      ActivityType = "ACCESS_DENIED"
	ActivityAlert       ActivityType = "ALERT"
	ActivityArmed       ActivityType = "ARMED"
	ActivityDisarmed    ActivityType = "DISARMED"
	ActivityPasswordSet ActivityType = "PASSWORD_SET"
	ActivityReset       ActivityType = "RESET"
	ActivitySettings    ActivityType = "SETTINGS_CHANGED"
)

// Method is how a door opening or denial was triggered.
type Method string

const (
	MethodPassword Method = "password"
	MethodCard     Method = "card"
	MethodButton   Method = "button"
	MethodFree     Method = "free" // any digit while disarmed
)

// Activity is returned from Controller.Step for publishing and journaling.
type Activity struct {
	Timestamp time.Time
	Type      ActivityType
	State     State
	Method    Method
	UID       string // hex, card activities only
	Attempts  int
	Armed     bool
}

// ActivityCounts tracks how often each kind of activity occurred since startup.
type ActivityCounts struct {
	Opened int
	Denied int
	Alerts int
}

// Add counts a single activity.
func (c *ActivityCounts) Add(a Activity) {
	switch a.Type {
	case ActivityDoorOpened:
		c.Opened++
	case ActivityDenied:
		c.Denied++
	case ActivityAlert:
		c.Alerts++
	}
}

// Snapshot is a read-only view of the controller for status consumers.
type Snapshot struct {
	State            State
	SystemEnabled    bool
	Armed            bool
	LightMode        bool
	LightSensitivity int
	LowLight         bool
	LightLevel       int
	WrongAttempts    int
	AlertLatched     bool
	LogEntries       int
	PendingWrite     WriteKind
	Initialized      bool
}
