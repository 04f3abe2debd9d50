// Package journal keeps a durable record of controller activities beside the
// credential store's own access log. The credential store only holds the
// last few hundred card openings; the journal keeps every activity.
//
// Card UIDs are never written in the clear. They are reduced to a keyed
// BLAKE3 hash so the journal can answer "which openings were this card"
// without being a list of valid credentials.
package journal

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/zeebo/blake3"

	"github.com/sweeney/door-controller/internal/logic"
)

// HashSize is the length of a UID hash in bytes.
const HashSize = 32

// keyContext separates UID hashes from any other use of the secret.
const keyContext = "door-controller 2026-01 card uid hash"

// ErrClosed is returned by Record after Close.
var ErrClosed = errors.New("journal closed")

// Entry is one recorded activity.
type Entry struct {
	ID       int64
	Time     time.Time
	Type     logic.ActivityType
	State    logic.State
	Method   logic.Method
	UIDHash  []byte // nil unless the activity carried a card UID
	Attempts int
	Armed    bool
}

// HashHex returns the UID hash as lowercase hex, or "".
func (e Entry) HashHex() string {
	if e.UIDHash == nil {
		return ""
	}
	return hex.EncodeToString(e.UIDHash)
}

// Journal records activities.
type Journal interface {
	Record(ctx context.Context, a logic.Activity) error
	// Recent returns up to n entries, newest first.
	Recent(ctx context.Context, n int) ([]Entry, error)
	// Dropped returns how many activities were lost to a full queue.
	Dropped() uint64
	Close() error
}

// Hasher turns card UIDs into keyed hashes.
type Hasher struct {
	key [HashSize]byte
}

// NewHasher derives the hashing key from secret.
func NewHasher(secret []byte) *Hasher {
	h := &Hasher{}
	blake3.DeriveKey(keyContext, secret, h.key[:])
	return h
}

// Hash returns the keyed hash of the hex UID, or nil if uid is empty.
func (h *Hasher) Hash(uid string) []byte {
	if uid == "" {
		return nil
	}
	hasher, err := blake3.NewKeyed(h.key[:])
	if err != nil {
		panic("journal: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write([]byte(uid))
	return hasher.Sum(nil)
}

// entryFor converts an activity to an entry.
func (h *Hasher) entryFor(a logic.Activity) Entry {
	return Entry{
		Time:     a.Timestamp,
		Type:     a.Type,
		State:    a.State,
		Method:   a.Method,
		UIDHash:  h.Hash(a.UID),
		Attempts: a.Attempts,
		Armed:    a.Armed,
	}
}
