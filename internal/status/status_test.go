package status

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/door-controller/internal/logic"
)

func armedSnapshot() logic.Snapshot {
	return logic.Snapshot{
		State:            logic.StateAwaitingCredential,
		SystemEnabled:    true,
		Armed:            true,
		LightSensitivity: 5,
		LightLevel:       1200,
		WrongAttempts:    1,
		LogEntries:       4,
		Initialized:      true,
	}
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{TickMs: 1, Broker: "tcp://localhost:1883", HTTPPort: ":80", Memory: "eeprom"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.TickMs != 1 {
		t.Errorf("Config.TickMs: got %d, want 1", snap.Config.TickMs)
	}
	if snap.Config.HTTPPort != ":80" {
		t.Errorf("Config.HTTPPort: got %q, want %q", snap.Config.HTTPPort, ":80")
	}
	if snap.Controller.State != "" {
		t.Errorf("expected no controller state initially, got %q", snap.Controller.State)
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.Update(armedSnapshot(), []string{"Enter password:", "***"})

	snap := tr.Snapshot()
	if snap.Controller.State != logic.StateAwaitingCredential {
		t.Errorf("State: got %q", snap.Controller.State)
	}
	if !snap.Controller.Armed {
		t.Error("expected Armed=true")
	}
	if len(snap.Display) != 2 || snap.Display[1] != "***" {
		t.Errorf("Display: got %q", snap.Display)
	}
}

func TestRecordCountsAndRecent(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < RecentSize+3; i++ {
		typ := logic.ActivityDoorOpened
		if i%2 == 1 {
			typ = logic.ActivityDenied
		}
		tr.Record(logic.Activity{Timestamp: base.Add(time.Duration(i) * time.Second), Type: typ})
	}
	tr.Record(logic.Activity{Type: logic.ActivityAlert, Timestamp: base.Add(time.Hour)})

	snap := tr.Snapshot()
	if snap.Counts.Opened != 7 || snap.Counts.Denied != 6 || snap.Counts.Alerts != 1 {
		t.Errorf("Counts: got %+v", snap.Counts)
	}
	if len(snap.Recent) != RecentSize {
		t.Fatalf("Recent: got %d, want %d", len(snap.Recent), RecentSize)
	}
	if snap.Recent[0].Type != logic.ActivityAlert {
		t.Errorf("newest first: got %s", snap.Recent[0].Type)
	}
	if !snap.Recent[1].Timestamp.Equal(base.Add(12 * time.Second)) {
		t.Errorf("Recent[1]: got %v", snap.Recent[1].Timestamp)
	}
}

func TestSetDropped(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.SetDropped(12, 3, 1)
	snap := tr.Snapshot()
	if snap.DroppedTicks != 12 || snap.DroppedEvents != 3 || snap.DroppedWrites != 1 {
		t.Errorf("dropped: got %d/%d/%d", snap.DroppedTicks, snap.DroppedEvents, snap.DroppedWrites)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	if tr.Snapshot().Network != nil {
		t.Error("expected nil Network initially")
	}

	net := &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"}
	tr.SetNetwork(net)

	snap := tr.Snapshot()
	if snap.Network == nil {
		t.Fatal("expected non-nil Network")
	}
	if snap.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want %q", snap.Network.IP, "192.168.1.42")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Update(armedSnapshot(), nil)
	tr.Record(logic.Activity{Type: logic.ActivityDoorOpened})

	snap1 := tr.Snapshot()

	open := armedSnapshot()
	open.State = logic.StateDoorOpen
	tr.Update(open, nil)
	tr.Record(logic.Activity{Type: logic.ActivityDoorClosed})

	// snap1 should still reflect old state
	if snap1.Controller.State != logic.StateAwaitingCredential {
		t.Error("snapshot should be a copy; state was modified")
	}
	if len(snap1.Recent) != 1 || snap1.Recent[0].Type != logic.ActivityDoorOpened {
		t.Errorf("snapshot should be a copy; recent was modified: %v", snap1.Recent)
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Controller:    armedSnapshot(),
		Counts:        logic.ActivityCounts{Opened: 5, Denied: 2},
		Display:       []string{"Enter password:"},
		Recent:        []logic.Activity{{Timestamp: start, Type: logic.ActivityDoorOpened, Method: logic.MethodCard, UID: "DEADBEEF"}},
		DroppedTicks:  4,
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{TickMs: 1, HeartbeatMs: 900000, Broker: "tcp://localhost:1883", HTTPPort: ":80", Memory: "file", Payload: "json", Cards: 2},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.Door.State != "AWAITING_CREDENTIAL" {
		t.Errorf("Door.State: got %q", s.Door.State)
	}
	if !s.Door.Armed || !s.Door.Initialized || s.Door.WrongAttempts != 1 || s.Door.LogEntries != 4 {
		t.Errorf("Door: got %+v", s.Door)
	}
	if s.Door.PendingWrite != "" {
		t.Errorf("PendingWrite should be omitted when idle, got %q", s.Door.PendingWrite)
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if !s.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if s.Counts.Opened != 5 || s.Counts.Denied != 2 {
		t.Errorf("Counts: got %+v", s.Counts)
	}
	if len(s.Recent) != 1 || s.Recent[0].UID != "DEADBEEF" || s.Recent[0].Timestamp != "2026-01-01T00:00:00Z" {
		t.Errorf("Recent: got %+v", s.Recent)
	}
	if s.Dropped.Ticks != 4 {
		t.Errorf("Dropped.Ticks: got %d", s.Dropped.Ticks)
	}
	if s.Config.Memory != "file" || s.Config.Cards != 2 {
		t.Errorf("Config: got %+v", s.Config)
	}
	// Event and Reason should be omitted
	if s.Event != "" {
		t.Errorf("expected empty Event for web format, got %q", s.Event)
	}
	if s.Reason != "" {
		t.Errorf("expected empty Reason for web format, got %q", s.Reason)
	}
}

func TestFormatJSONUnknownState(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	json.Unmarshal(data, &parsed)

	if parsed.Status.Door.State != "UNKNOWN" {
		t.Errorf("State: got %q, want UNKNOWN", parsed.Status.Door.State)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ctrl := armedSnapshot()
	ctrl.PendingWrite = logic.WriteLogEntry
	snap := Snapshot{
		Controller:    ctrl,
		Counts:        logic.ActivityCounts{Opened: 3},
		Recent:        []logic.Activity{{Type: logic.ActivityDoorOpened}},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("Reason: got %q, want empty", parsed.Status.Reason)
	}
	if parsed.Status.Door.PendingWrite != "LOG_ENTRY" {
		t.Errorf("PendingWrite: got %q", parsed.Status.Door.PendingWrite)
	}
	if parsed.Status.Recent != nil {
		t.Error("recent activities should not be repeated in system events")
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Controller: armedSnapshot(),
		StartTime:  start,
		Now:        start.Add(30 * time.Minute),
		Config:     Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatStatusEvent(snap, "STARTUP", "")

	// Verify "reason" is not in the raw JSON output
	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := Snapshot{
		Controller: armedSnapshot(),
		StartTime:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:        time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		Network:    &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"},
		Config:     Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	json.Unmarshal(data, &parsed)

	if parsed.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if parsed.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", parsed.Status.Network.IP)
	}
	if parsed.Status.Network.SSID != "MyNet" {
		t.Errorf("Network.SSID: got %q, want MyNet", parsed.Status.Network.SSID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(armedSnapshot(), []string{fmt.Sprint(i)})
			tr.Record(logic.Activity{Type: logic.ActivityDenied})
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
