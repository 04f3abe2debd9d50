// Package mqtt publishes controller activity to MQTT and receives remote
// commands and light readings, with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/sweeney/door-controller/internal/logic"
)

// Topics.
const (
	// Topic carries one message per controller activity.
	Topic = "access/door/controller/events"
	// TopicSystem carries lifecycle events (startup, heartbeat, shutdown, LWT).
	TopicSystem = "access/door/controller/system"
	// TopicCommand receives remote commands.
	TopicCommand = "access/door/controller/command"
	// TopicLight receives light readings from a remote sensor.
	TopicLight = "access/door/controller/light"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a controller activity to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(a logic.Activity) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Encoding selects the activity payload format.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingCBOR Encoding = "cbor"
)

// ParseEncoding validates a --payload flag value. Empty selects JSON.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case "":
		return EncodingJSON, nil
	case EncodingJSON, EncodingCBOR:
		return Encoding(s), nil
	}
	return "", fmt.Errorf("unknown payload encoding %q (want json or cbor)", s)
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Door DoorPayload `json:"door"`
}

// DoorPayload contains the activity details.
type DoorPayload struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	State     string `json:"state"`
	Method    string `json:"method,omitempty"`
	UID       string `json:"uid,omitempty"`
	Attempts  int    `json:"attempts,omitempty"`
	Armed     bool   `json:"armed"`
}

// NewPayload builds the payload for a with a fresh message ID.
func NewPayload(a logic.Activity) Payload {
	return Payload{
		Door: DoorPayload{
			ID:        uuid.NewString(),
			Timestamp: a.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(a.Type),
			State:     string(a.State),
			Method:    string(a.Method),
			UID:       a.UID,
			Attempts:  a.Attempts,
			Armed:     a.Armed,
		},
	}
}

// FormatPayload encodes the payload for a.
func FormatPayload(a logic.Activity, enc Encoding) ([]byte, error) {
	return EncodePayload(NewPayload(a), enc)
}

// EncodePayload encodes p. CBOR uses the same field names as JSON.
func EncodePayload(p Payload, enc Encoding) ([]byte, error) {
	switch enc {
	case EncodingCBOR:
		return cbor.Marshal(p)
	case EncodingJSON, "":
		return json.Marshal(p)
	}
	return nil, fmt.Errorf("unknown payload encoding %q", enc)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// WillPayload is registered with the broker as the last will. It has no
// timestamp because it is published by the broker long after it is built.
func WillPayload() []byte {
	b, _ := json.Marshal(SystemPayload{
		System: SystemPayloadInner{Event: "SHUTDOWN", Reason: "LWT"},
	})
	return b
}
