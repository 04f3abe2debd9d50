// Package status provides a thread-safe status tracker for the door-controller daemon.
// It is written by the control loop and read by HTTP handlers and MQTT heartbeats.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/door-controller/internal/logic"
)

// RecentSize is how many activities the tracker remembers.
const RecentSize = 10

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	TickMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPPort    string
	Memory      string // credential store backend: none, file or eeprom
	Payload     string // MQTT activity encoding
	Journal     string // journal path, empty when in memory
	Cards       int    // allow-list size
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Controller    logic.Snapshot
	Counts        logic.ActivityCounts
	Display       []string
	Recent        []logic.Activity // newest first
	DroppedTicks  uint64
	DroppedEvents uint64
	DroppedWrites uint64 // journal writes lost to a full queue
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the controller view and the display contents.
// Called from runLoop after every batch of cycles.
func (t *Tracker) Update(ctrl logic.Snapshot, display []string) {
	t.mu.Lock()
	t.snap.Controller = ctrl
	t.snap.Display = display
	t.mu.Unlock()
}

// Record counts an activity and remembers it as the most recent.
func (t *Tracker) Record(a logic.Activity) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Counts.Add(a)
	recent := make([]logic.Activity, 0, RecentSize)
	recent = append(recent, a)
	for _, r := range t.snap.Recent {
		if len(recent) == RecentSize {
			break
		}
		recent = append(recent, r)
	}
	t.snap.Recent = recent
}

// SetDropped records how many ticks, queued events and journal writes were
// lost.
func (t *Tracker) SetDropped(ticks, events, writes uint64) {
	t.mu.Lock()
	t.snap.DroppedTicks = ticks
	t.snap.DroppedEvents = events
	t.snap.DroppedWrites = writes
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
