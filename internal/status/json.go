package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Door          DoorJSON       `json:"door"`
	Display       []string       `json:"display,omitempty"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Counts        CountsJSON     `json:"activity_counts"`
	Recent        []ActivityJSON `json:"recent,omitempty"`
	Dropped       DroppedJSON    `json:"dropped"`
	Network       *NetworkJSON   `json:"network,omitempty"`
	Config        ConfigJSON     `json:"config"`
}

// DoorJSON is the controller state.
type DoorJSON struct {
	State            string `json:"state"`
	Initialized      bool   `json:"initialized"`
	SystemEnabled    bool   `json:"system_enabled"`
	Armed            bool   `json:"armed"`
	LightMode        bool   `json:"light_mode"`
	LightSensitivity int    `json:"light_sensitivity"`
	LowLight         bool   `json:"low_light"`
	LightLevel       int    `json:"light_level"`
	WrongAttempts    int    `json:"wrong_attempts"`
	Alert            bool   `json:"alert"`
	LogEntries       int    `json:"log_entries"`
	PendingWrite     string `json:"pending_write,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of activity counts.
type CountsJSON struct {
	Opened int `json:"opened"`
	Denied int `json:"denied"`
	Alerts int `json:"alerts"`
}

// ActivityJSON is one recent activity.
type ActivityJSON struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Method    string `json:"method,omitempty"`
	UID       string `json:"uid,omitempty"`
}

// DroppedJSON reports lost ticks, events and journal writes.
type DroppedJSON struct {
	Ticks   uint64 `json:"ticks"`
	Events  uint64 `json:"events"`
	Journal uint64 `json:"journal"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs      int64  `json:"tick_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPPort    string `json:"http_port"`
	Memory      string `json:"memory"`
	Payload     string `json:"payload"`
	Journal     string `json:"journal,omitempty"`
	Cards       int    `json:"allowed_cards"`
}

func buildInner(snap Snapshot) StatusInner {
	c := snap.Controller
	state := string(c.State)
	if state == "" {
		state = "UNKNOWN"
	}

	inner := StatusInner{
		Door: DoorJSON{
			State:            state,
			Initialized:      c.Initialized,
			SystemEnabled:    c.SystemEnabled,
			Armed:            c.Armed,
			LightMode:        c.LightMode,
			LightSensitivity: c.LightSensitivity,
			LowLight:         c.LowLight,
			LightLevel:       c.LightLevel,
			WrongAttempts:    c.WrongAttempts,
			Alert:            c.AlertLatched,
			LogEntries:       c.LogEntries,
			PendingWrite:     string(c.PendingWrite),
		},
		Display:       snap.Display,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Opened: snap.Counts.Opened,
			Denied: snap.Counts.Denied,
			Alerts: snap.Counts.Alerts,
		},
		Dropped: DroppedJSON{Ticks: snap.DroppedTicks, Events: snap.DroppedEvents, Journal: snap.DroppedWrites},
		Config: ConfigJSON{
			TickMs:      snap.Config.TickMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
			Memory:      snap.Config.Memory,
			Payload:     snap.Config.Payload,
			Journal:     snap.Config.Journal,
			Cards:       snap.Config.Cards,
		},
	}
	for _, a := range snap.Recent {
		inner.Recent = append(inner.Recent, ActivityJSON{
			Timestamp: a.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(a.Type),
			Method:    string(a.Method),
			UID:       a.UID,
		})
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
// The recent activity list is left out; each activity has already been
// published on its own.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	inner.Recent = nil
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
