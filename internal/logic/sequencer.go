package logic

import "log"

// WriteKind is the pending persistence transaction.
type WriteKind string

const (
	WriteNone     WriteKind = ""
	WritePassword WriteKind = "PASSWORD"
	WriteLogEntry WriteKind = "LOG_ENTRY"
	WriteClearAll WriteKind = "CLEAR_ALL"
)

// Landing counts. A transaction issues one write at each of these counts
// and nothing at any other count.
const (
	landMarker  = 300
	landPayload = 200
	landCount   = 100

	// SequenceLength is the number of cycles a transaction occupies.
	SequenceLength = landMarker
)

// Sequencer spreads a multi-part write to the credential store over many
// cycles so no single cycle holds the bus for long. Starting a new
// transaction replaces the pending one.
type Sequencer struct {
	store Store
	kind  WriteKind
	count int

	// log-entry payload, captured when the transaction starts
	index  int
	record []byte
}

// NewSequencer returns an idle sequencer writing to s.
func NewSequencer(s Store) *Sequencer {
	return &Sequencer{store: s}
}

// StartPassword queues marker, password and count writes.
func (q *Sequencer) StartPassword() {
	q.start(WritePassword)
}

// StartClearAll queues the factory-reset writes.
func (q *Sequencer) StartClearAll() {
	q.start(WriteClearAll)
}

// StartLogEntry queues a record write at slot index followed by the count.
func (q *Sequencer) StartLogEntry(index int, record []byte) {
	q.start(WriteLogEntry)
	q.index = index
	q.record = record
}

func (q *Sequencer) start(kind WriteKind) {
	if q.kind != WriteNone {
		log.Printf("sequencer: %s replaces pending %s at count %d", kind, q.kind, q.count)
	}
	q.kind = kind
	q.count = SequenceLength
	q.index = 0
	q.record = nil
}

// Pending returns the active transaction kind.
func (q *Sequencer) Pending() WriteKind { return q.kind }

// Count returns the current countdown value.
func (q *Sequencer) Count() int { return q.count }

// Service runs one cycle of the active transaction. Password and count
// payloads are taken from cfg at the moment they land.
func (q *Sequencer) Service(cfg *SystemConfig) {
	if q.count <= 0 {
		q.kind = WriteNone
		return
	}

	if offset, data, ok := q.landing(cfg); ok {
		if err := q.store.Write(offset, data); err != nil {
			log.Printf("sequencer: %s write at count %d offset %d: %v", q.kind, q.count, offset, err)
		}
	}

	q.count--
	if q.count == 0 {
		q.kind = WriteNone
		q.record = nil
	}
}

// landing returns the write due at the current count, if any.
func (q *Sequencer) landing(cfg *SystemConfig) (int, []byte, bool) {
	switch q.kind {
	case WritePassword:
		switch q.count {
		case landMarker:
			return OffsetMarker, markerInitialized[:], true
		case landPayload:
			return OffsetPassword, passwordBytes(cfg.Password), true
		case landCount:
			return OffsetCount, countByte(cfg.LogEntryCount), true
		}
	case WriteLogEntry:
		switch q.count {
		case landPayload:
			return RecordOffset(q.index), q.record, true
		case landCount:
			return OffsetCount, countByte(cfg.LogEntryCount), true
		}
	case WriteClearAll:
		switch q.count {
		case landMarker:
			return OffsetMarker, markerUninitialized[:], true
		case landPayload:
			return OffsetPassword, passwordSentinel[:], true
		case landCount:
			return OffsetCount, countByte(0), true
		}
	}
	return 0, nil, false
}
