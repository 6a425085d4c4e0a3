package domain

import "time"

// ─── Collaborator Interfaces ────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; the ledger and quest tracker depend on them.

// KeyValueStore is the host-owned persistent store.
// Load reports ok=false when the key has never been saved.
type KeyValueStore interface {
	Load(key string) (value []byte, ok bool, err error)
	Save(key string, value []byte) error
}

// Clock abstracts the current instant so period logic is testable.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock is the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// EventSink receives change notifications. Publish must not block.
type EventSink interface {
	Publish(Event)
}
