package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sweeney/door-controller/internal/logic"
)

// Remote command actions.
const (
	ActionButton = "button" // as if the inside door button was pressed
	ActionClosed = "closed" // the door was closed
	ActionKeys   = "keys"   // type keys on the keypad
	ActionCard   = "card"   // present a card to the remote reader
)

// Command is a remote command received on TopicCommand.
//
//	{"action": "keys", "keys": "13579D"}
//	{"action": "card", "uid": "DEADBEEF"}
type Command struct {
	Action string `json:"action"`
	Keys   string `json:"keys,omitempty"`
	UID    string `json:"uid,omitempty"`
}

// ParseCommand decodes and validates a command payload.
func ParseCommand(payload []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(payload, &c); err != nil {
		return c, fmt.Errorf("decode command: %w", err)
	}
	c.Action = strings.ToLower(strings.TrimSpace(c.Action))
	switch c.Action {
	case ActionButton, ActionClosed:
	case ActionKeys:
		if c.Keys == "" {
			return c, errors.New("keys command without keys")
		}
		for _, r := range c.Keys {
			if !validKey(r) {
				return c, fmt.Errorf("invalid key %q", r)
			}
		}
	case ActionCard:
		if _, err := logic.ParseUID(c.UID); err != nil {
			return c, err
		}
	default:
		return c, fmt.Errorf("unknown action %q", c.Action)
	}
	return c, nil
}

// Event returns the queue event for button and closed commands.
func (c Command) Event() (logic.Event, bool) {
	switch c.Action {
	case ActionButton:
		return logic.Event{Type: logic.EventDoorButton, Source: "mqtt"}, true
	case ActionClosed:
		return logic.Event{Type: logic.EventDoorClosed, Source: "mqtt"}, true
	}
	return logic.Event{}, false
}

// OpensDoor reports whether c stands in for an input that can open the
// door. Only "closed" cannot.
func (c Command) OpensDoor() bool {
	switch c.Action {
	case ActionButton, ActionKeys, ActionCard:
		return true
	}
	return false
}

func validKey(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r >= 'A' && r <= 'D':
		return true
	case r == '*' || r == '#':
		return true
	}
	return false
}

// ErrNoReading is returned by LightSensor before a reading arrives or once
// the last reading is too old.
var ErrNoReading = errors.New("no recent light reading")

// LightSensor holds the latest light level published on TopicLight.
type LightSensor struct {
	mu     sync.Mutex
	level  int
	at     time.Time
	maxAge time.Duration
	now    func() time.Time
}

// NewLightSensor returns a sensor whose readings expire after maxAge.
// A zero maxAge never expires.
func NewLightSensor(maxAge time.Duration) *LightSensor {
	return &LightSensor{maxAge: maxAge, now: time.Now}
}

// Update parses a reading. Payloads are a bare integer or {"level": n}.
func (s *LightSensor) Update(payload []byte) error {
	text := strings.TrimSpace(string(payload))
	level, err := strconv.Atoi(text)
	if err != nil {
		var v struct {
			Level *int `json:"level"`
		}
		if jerr := json.Unmarshal(payload, &v); jerr != nil || v.Level == nil {
			return fmt.Errorf("parse light reading %q", text)
		}
		level = *v.Level
	}
	s.mu.Lock()
	s.level = level
	s.at = s.now()
	s.mu.Unlock()
	return nil
}

// Level returns the latest reading.
func (s *LightSensor) Level() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.at.IsZero() {
		return 0, ErrNoReading
	}
	if s.maxAge > 0 && s.now().Sub(s.at) > s.maxAge {
		return 0, ErrNoReading
	}
	return s.level, nil
}
