package logic

import (
	"bytes"
	"errors"
	"testing"
)

// runSequence services the sequencer until it goes idle and returns the
// number of cycles consumed.
func runSequence(t *testing.T, q *Sequencer, cfg *SystemConfig) int {
	t.Helper()
	n := 0
	for q.Pending() != WriteNone {
		q.Service(cfg)
		n++
		if n > 2*SequenceLength {
			t.Fatal("sequencer never finished")
		}
	}
	return n
}

func TestSequencerPassword(t *testing.T) {
	s := newMemStore()
	q := NewSequencer(s)
	cfg := initializedConfig("24680")
	cfg.LogEntryCount = 7

	q.StartPassword()
	if q.Count() != SequenceLength {
		t.Errorf("expected count %d, got %d", SequenceLength, q.Count())
	}
	if n := runSequence(t, q, &cfg); n != SequenceLength {
		t.Errorf("expected %d cycles, got %d", SequenceLength, n)
	}

	want := []write{
		{OffsetMarker, []byte("written\x00")},
		{OffsetPassword, []byte("24680\x00")},
		{OffsetCount, []byte{7}},
	}
	assertWrites(t, s.writes, want)

	loaded, err := LoadConfig(s)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !loaded.Initialized || loaded.Password != "24680" || loaded.LogEntryCount != 7 {
		t.Errorf("reloaded %+v", loaded)
	}
}

func TestSequencerLandingCycles(t *testing.T) {
	s := newMemStore()
	q := NewSequencer(s)
	cfg := initializedConfig("24680")

	q.StartPassword()
	var landed []int
	for i := 0; q.Pending() != WriteNone; i++ {
		before := len(s.writes)
		q.Service(&cfg)
		if len(s.writes) != before {
			landed = append(landed, i)
		}
	}
	// Cycle 0 sees count 300, cycle 100 sees 200, cycle 200 sees 100.
	want := []int{0, 100, 200}
	if len(landed) != len(want) {
		t.Fatalf("landed on %v, want %v", landed, want)
	}
	for i := range want {
		if landed[i] != want[i] {
			t.Errorf("landing %d on cycle %d, want %d", i, landed[i], want[i])
		}
	}
}

func TestSequencerLogEntry(t *testing.T) {
	s := newMemStore()
	q := NewSequencer(s)
	cfg := initializedConfig("24680")
	rec := bytes.Repeat([]byte{'r'}, RecordSize)

	cfg.LogEntryCount = 4
	q.StartLogEntry(3, rec)
	runSequence(t, q, &cfg)

	assertWrites(t, s.writes, []write{
		{RecordOffset(3), rec},
		{OffsetCount, []byte{4}},
	})
}

func TestSequencerClearAll(t *testing.T) {
	s := newMemStore()
	q := NewSequencer(s)
	cfg := initializedConfig("24680")
	cfg.LogEntryCount = 9

	q.StartClearAll()
	runSequence(t, q, &cfg)

	assertWrites(t, s.writes, []write{
		{OffsetMarker, []byte("notinit\x00")},
		{OffsetPassword, []byte("xxxxx\x00")},
		{OffsetCount, []byte{0}},
	})
	loaded, _ := LoadConfig(s)
	if loaded.Initialized {
		t.Error("store should read as uninitialized after clear-all")
	}
}

func TestSequencerReplacesPending(t *testing.T) {
	s := newMemStore()
	q := NewSequencer(s)
	cfg := initializedConfig("24680")

	q.StartPassword()
	for i := 0; i < 50; i++ {
		q.Service(&cfg)
	}
	q.StartClearAll()
	if q.Pending() != WriteClearAll || q.Count() != SequenceLength {
		t.Fatalf("expected fresh clear-all, got %s at %d", q.Pending(), q.Count())
	}
	runSequence(t, q, &cfg)

	// marker from the password run, then the full clear-all.
	if len(s.writes) != 4 {
		t.Fatalf("expected 4 writes, got %d", len(s.writes))
	}
	if string(s.writes[1].data) != "notinit\x00" {
		t.Errorf("second write %q", s.writes[1].data)
	}
}

func TestSequencerContinuesAfterWriteError(t *testing.T) {
	s := newMemStore()
	s.failErr = errors.New("nack")
	q := NewSequencer(s)
	cfg := initializedConfig("24680")

	q.StartPassword()
	if n := runSequence(t, q, &cfg); n != SequenceLength {
		t.Errorf("expected %d cycles, got %d", SequenceLength, n)
	}
	if len(s.writes) != 3 {
		t.Errorf("expected 3 attempted writes without retries, got %d", len(s.writes))
	}
}

func TestSequencerIdleServiceIsNoop(t *testing.T) {
	s := newMemStore()
	q := NewSequencer(s)
	cfg := DefaultConfig()
	for i := 0; i < 10; i++ {
		q.Service(&cfg)
	}
	if len(s.writes) != 0 {
		t.Errorf("idle sequencer wrote %d times", len(s.writes))
	}
}

func assertWrites(t *testing.T, got, want []write) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d writes, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i].offset != want[i].offset {
			t.Errorf("write %d offset %#x, want %#x", i, got[i].offset, want[i].offset)
		}
		if !bytes.Equal(got[i].data, want[i].data) {
			t.Errorf("write %d data %q, want %q", i, got[i].data, want[i].data)
		}
	}
}
