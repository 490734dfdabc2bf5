package presence

// EventType represents a presence event type.
type EventType int

const (
	EventIdentityChanged EventType = iota // A tag different from the tracked one was read
	EventTagConfirmed                     // The tracked tag was read again
	EventTagRemoved                       // The tracked tag was not seen for the grace window
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventIdentityChanged:
		return "identity_changed"
	case EventTagConfirmed:
		return "tag_confirmed"
	case EventTagRemoved:
		return "tag_removed"
	default:
		return "unknown"
	}
}

// Event represents a presence event.
type Event struct {
	Type  EventType
	TagID string // New tag for IdentityChanged, tracked tag otherwise
}
