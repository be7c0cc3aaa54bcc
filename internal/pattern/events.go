package pattern

import "time"

// EventKind enumerates the pattern-store lifecycle events named in spec §9
// ("explicit event enum per component").
type EventKind string

const (
	EventCreated     EventKind = "created"
	EventModified    EventKind = "modified"
	EventMerged      EventKind = "merged"
	EventDeleted     EventKind = "deleted"
	EventActivated   EventKind = "activated"
	EventDeactivated EventKind = "deactivated"
)

// Event is a single store lifecycle notification, delivered synchronously
// to the registered callback outside the store's lock.
type Event struct {
	Kind      EventKind
	PatternID string
	Timestamp time.Time
	Detail    string
}
