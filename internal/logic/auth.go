package logic

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// UIDSize is the card UID length in bytes.
const UIDSize = 4

// AlertThreshold is the number of consecutive failures that latches the alert.
const AlertThreshold = 3

// UID is a card identifier.
type UID [UIDSize]byte

// ParseUID parses 8 hex digits.
func ParseUID(s string) (UID, error) {
	var u UID
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return u, fmt.Errorf("parse uid %q: %w", s, err)
	}
	if len(b) != UIDSize {
		return u, fmt.Errorf("parse uid %q: want %d bytes, got %d", s, UIDSize, len(b))
	}
	copy(u[:], b)
	return u, nil
}

func (u UID) String() string { return FormatUID(u[:]) }

// CardResult is the outcome of a card poll.
type CardResult int

const (
	CardNone CardResult = iota
	CardAccepted
	CardRejected
)

// Authenticator checks passwords and card UIDs and tracks consecutive
// failures.
type Authenticator struct {
	allowed  map[UID]struct{}
	attempts int
	alert    bool
}

// NewAuthenticator returns an Authenticator accepting the given cards.
func NewAuthenticator(allowed []UID) *Authenticator {
	m := make(map[UID]struct{}, len(allowed))
	for _, u := range allowed {
		m[u] = struct{}{}
	}
	return &Authenticator{allowed: m}
}

// CheckPassword compares the entry with the stored password. An empty
// entry never matches.
func (a *Authenticator) CheckPassword(stored string, entry *Buffer) bool {
	if entry.Len() == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(entry.String())) == 1
}

// CheckUID reports whether uid is on the allow-list.
func (a *Authenticator) CheckUID(uid []byte) bool {
	if len(uid) != UIDSize {
		return false
	}
	var u UID
	copy(u[:], uid)
	_, ok := a.allowed[u]
	return ok
}

// ReadCard reads a card if one is present and checks it. The session is
// halted after every read attempt.
func (a *Authenticator) ReadCard(r CardReader) ([]byte, CardResult) {
	if r == nil || !r.CardPresent() {
		return nil, CardNone
	}
	uid, ok := r.ReadUID()
	r.Halt()
	if !ok {
		return nil, CardNone
	}
	if a.CheckUID(uid) {
		return uid, CardAccepted
	}
	return uid, CardRejected
}

// Fail records a failed attempt. It reports true only on the failure that
// reaches the threshold.
func (a *Authenticator) Fail() bool {
	if a.attempts >= AlertThreshold {
		return false
	}
	a.attempts++
	if a.attempts == AlertThreshold {
		a.alert = true
		return true
	}
	return false
}

// Succeed clears the failure count. It reports whether an alert was latched.
func (a *Authenticator) Succeed() bool {
	latched := a.alert
	a.attempts = 0
	a.alert = false
	return latched
}

// Attempts returns the consecutive failure count.
func (a *Authenticator) Attempts() int { return a.attempts }

// AlertLatched reports whether the alert is active.
func (a *Authenticator) AlertLatched() bool { return a.alert }
