package web

import (
	"time"

	"github.com/sweeney/door-controller/internal/journal"
	"github.com/sweeney/door-controller/internal/logic"
)

// JournalJSON is the /journal.json document.
type JournalJSON struct {
	Entries []EntryJSON `json:"entries"`
}

// EntryJSON is one journal entry. Cards appear only as their keyed hash.
type EntryJSON struct {
	ID       int64  `json:"id"`
	Time     string `json:"time"`
	Event    string `json:"event"`
	State    string `json:"state,omitempty"`
	Method   string `json:"method,omitempty"`
	UIDHash  string `json:"uid_hash,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
	Armed    bool   `json:"armed"`
}

// AccessLogJSON is the /log.json document.
type AccessLogJSON struct {
	Records []RecordJSON `json:"records"`
}

// RecordJSON is one access-log record. Times are the clock's local wall
// time, as stored.
type RecordJSON struct {
	Slot int    `json:"slot"`
	Time string `json:"time"`
	UID  string `json:"uid"`
}

// FormatJournal converts journal entries for /journal.json.
func FormatJournal(entries []journal.Entry) JournalJSON {
	out := JournalJSON{Entries: make([]EntryJSON, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, EntryJSON{
			ID:       e.ID,
			Time:     e.Time.UTC().Format(time.RFC3339),
			Event:    string(e.Type),
			State:    string(e.State),
			Method:   string(e.Method),
			UIDHash:  e.HashHex(),
			Attempts: e.Attempts,
			Armed:    e.Armed,
		})
	}
	return out
}

// FormatAccessLog converts access-log records for /log.json.
func FormatAccessLog(records []logic.LogRecord) AccessLogJSON {
	out := AccessLogJSON{Records: make([]RecordJSON, 0, len(records))}
	for _, r := range records {
		out.Records = append(out.Records, RecordJSON{
			Slot: r.Index,
			Time: r.Time.Format("2006-01-02T15:04:05"),
			UID:  r.UID,
		})
	}
	return out
}
