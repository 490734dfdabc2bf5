package player

import "github.com/osa030/slidebox/internal/domain/track"

// EventType represents a player event type.
type EventType int

const (
	EventSessionStarted EventType = iota // A tag's playlist started playing
	EventSessionEnded                    // The active session was cleared
	EventStateChanged                    // Paused or resumed
	EventTrackChanged                    // Now-playing metadata refreshed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventSessionStarted:
		return "session_started"
	case EventSessionEnded:
		return "session_ended"
	case EventStateChanged:
		return "state_changed"
	case EventTrackChanged:
		return "track_changed"
	default:
		return "unknown"
	}
}

// Event represents a player event.
type Event struct {
	Type  EventType
	TagID string       // Tag of the session concerned
	URI   string       // Playlist URI (SessionStarted only)
	Track *track.Track // Now playing (nil when unknown)
	State State        // Player state after the event
}
