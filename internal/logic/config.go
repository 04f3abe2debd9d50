package logic

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Credential store layout.
const (
	OffsetMarker   = 0x00
	OffsetPassword = 0x08
	OffsetCount    = 0x0E
	OffsetRecords  = 0x0F

	MarkerSize   = 8
	PasswordSize = PasswordLength + 1 // NUL terminated
	RecordStride = 64
	RecordSize   = 33 // "DD/MM/20YY | HH:MM:SS | XXXXXXXX" + NUL

	// MaxLogEntries is the largest log-entry count. The count is a single
	// byte and the ring holds MaxLogEntries+1 records.
	MaxLogEntries = 250
)

var (
	markerInitialized   = [MarkerSize]byte{'w', 'r', 'i', 't', 't', 'e', 'n', 0}
	markerUninitialized = [MarkerSize]byte{'n', 'o', 't', 'i', 'n', 'i', 't', 0}
	passwordSentinel    = [PasswordSize]byte{'x', 'x', 'x', 'x', 'x', 0}
)

// Sensitivity bounds.
const (
	MinSensitivity     = 1
	MaxSensitivity     = 9
	DefaultSensitivity = 5
)

// SystemConfig is the persisted configuration. Only the marker, password
// and log-entry count live in the credential store; the remaining fields
// start from their defaults at every boot.
type SystemConfig struct {
	Initialized      bool
	Password         string
	SystemEnabled    bool
	AlarmArmed       bool
	LightMode        bool
	LightSensitivity int
	LogEntryCount    int
}

// DefaultConfig is the factory configuration.
func DefaultConfig() SystemConfig {
	return SystemConfig{
		SystemEnabled:    true,
		AlarmArmed:       true,
		LightSensitivity: DefaultSensitivity,
	}
}

// LoadConfig reads the configuration from the store. A missing marker is
// a first run, not an error; only store failures are returned.
func LoadConfig(s Store) (SystemConfig, error) {
	cfg := DefaultConfig()

	marker, err := s.Read(OffsetMarker, MarkerSize)
	if err != nil {
		return cfg, fmt.Errorf("read marker: %w", err)
	}
	if !bytes.Equal(marker, markerInitialized[:]) {
		return cfg, nil
	}

	pw, err := s.Read(OffsetPassword, PasswordSize)
	if err != nil {
		return cfg, fmt.Errorf("read password: %w", err)
	}
	password := string(bytes.TrimRight(pw, "\x00"))
	if !validPassword(password) {
		// Marker written but the password never landed.
		return cfg, nil
	}

	count, err := s.Read(OffsetCount, 1)
	if err != nil {
		return cfg, fmt.Errorf("read log count: %w", err)
	}

	cfg.Initialized = true
	cfg.Password = password
	if n := int(count[0]); n <= MaxLogEntries {
		cfg.LogEntryCount = n
	}
	return cfg, nil
}

func validPassword(p string) bool {
	if len(p) != PasswordLength {
		return false
	}
	for _, r := range p {
		if !isDigit(r) {
			return false
		}
	}
	return true
}

// CycleSensitivity returns the next sensitivity in 1..9, wrapping 9 to 1.
func CycleSensitivity(s int) int {
	if s < MinSensitivity || s > MaxSensitivity {
		return DefaultSensitivity
	}
	return s%MaxSensitivity + 1
}

// NextLogIndex returns the count after one more entry, wrapping to 0 once
// it would exceed MaxLogEntries.
func NextLogIndex(n int) int {
	n++
	if n > MaxLogEntries {
		return 0
	}
	return n
}

// RecordOffset is the store offset of log record i.
func RecordOffset(i int) int {
	return OffsetRecords + RecordStride*i
}

func passwordBytes(p string) []byte {
	b := make([]byte, PasswordSize)
	copy(b, p)
	return b
}

func countByte(n int) []byte {
	return []byte{byte(n)}
}

// FormatRecord renders a log record, NUL terminated, RecordSize bytes.
func FormatRecord(t time.Time, uid []byte) []byte {
	s := fmt.Sprintf("%02d/%02d/20%02d | %02d:%02d:%02d | %s",
		t.Day(), int(t.Month()), t.Year()%100,
		t.Hour(), t.Minute(), t.Second(), FormatUID(uid))
	b := make([]byte, RecordSize)
	copy(b, s)
	return b
}

// FormatUID renders a UID as uppercase hex.
func FormatUID(uid []byte) string {
	return strings.ToUpper(fmt.Sprintf("%x", uid))
}

// LogRecord is a parsed access-log entry.
type LogRecord struct {
	Index int
	Time  time.Time
	UID   string
}

// ParseRecord parses a raw record read from the store.
func ParseRecord(raw []byte) (LogRecord, error) {
	s := string(bytes.TrimRight(raw, "\x00"))
	parts := strings.Split(s, " | ")
	if len(parts) != 3 {
		return LogRecord{}, fmt.Errorf("malformed record %q", s)
	}
	t, err := time.ParseInLocation("02/01/2006 15:04:05", parts[0]+" "+parts[1], time.Local)
	if err != nil {
		return LogRecord{}, fmt.Errorf("parse record time: %w", err)
	}
	if len(parts[2]) != 2*UIDSize {
		return LogRecord{}, fmt.Errorf("malformed uid %q", parts[2])
	}
	if _, err := strconv.ParseUint(parts[2], 16, 32); err != nil {
		return LogRecord{}, fmt.Errorf("parse uid: %w", err)
	}
	return LogRecord{Time: t, UID: parts[2]}, nil
}

// ReadAccessLog reads the persisted log-entry count and then the ring.
func ReadAccessLog(s Store) ([]LogRecord, error) {
	count, err := s.Read(OffsetCount, 1)
	if err != nil {
		return nil, fmt.Errorf("read log count: %w", err)
	}
	return ReadLog(s, int(count[0]))
}

// ReadLog reads the access-log ring, oldest record first. next is the
// persisted log-entry count, the slot the next record will land in. Every
// slot is scanned: after the ring wraps the count restarts at 0 while the
// older records remain, and a record whose write was replaced before it
// landed leaves a blank slot behind. Blank or malformed slots are skipped;
// only store failures are returned.
func ReadLog(s Store, next int) ([]LogRecord, error) {
	const slots = MaxLogEntries + 1
	if next < 0 || next >= slots {
		next = 0
	}
	var out []LogRecord
	for k := 0; k < slots; k++ {
		i := (next + k) % slots
		raw, err := s.Read(RecordOffset(i), RecordSize)
		if err != nil {
			return out, fmt.Errorf("read record %d: %w", i, err)
		}
		rec, err := ParseRecord(raw)
		if err != nil {
			continue
		}
		rec.Index = i
		out = append(out, rec)
	}
	return out, nil
}
