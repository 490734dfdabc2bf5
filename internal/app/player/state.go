// Package player reconciles tag presence with the remote playback service.
package player

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// State represents the player state.
type State int

const (
	StateIdle     State = iota // No session
	StateStarting              // Session chain in flight
	StatePlaying               // Session active and playing
	StatePaused                // Session active and paused
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	for _, v := range []State{StateIdle, StateStarting, StatePlaying, StatePaused} {
		if v.String() == string(text) {
			*s = v
			return nil
		}
	}
	return errors.Newf("unknown state: %q", string(text))
}

// Status is the locally mirrored view of the remote session.
type Status struct {
	CurrentTagID string `json:"current_tag_id"`
	TrackName    string `json:"track_name"`
	Album        string `json:"album"` // Holds the artist name shown under the title
	IsPlaying    bool   `json:"is_playing"`
	TagPresent   bool   `json:"tag_present"`
}

// Snapshot is a consistent copy of the player's state.
type Snapshot struct {
	State      State  `json:"state"`
	Status     Status `json:"status"`
	PresentTag string `json:"present_tag"`
	PendingTag string `json:"pending_tag,omitempty"`
}

// Button is a front-panel button edge.
type Button int

const (
	ButtonTogglePlay Button = iota
	ButtonPrevious
	ButtonNext
)

// String returns the string representation of the button.
func (b Button) String() string {
	switch b {
	case ButtonTogglePlay:
		return "toggle"
	case ButtonPrevious:
		return "previous"
	case ButtonNext:
		return "next"
	default:
		return "unknown"
	}
}

// ParseButton parses a button name.
func ParseButton(name string) (Button, error) {
	switch strings.ToLower(name) {
	case "toggle", "play", "pause", "toggle_play":
		return ButtonTogglePlay, nil
	case "previous", "prev":
		return ButtonPrevious, nil
	case "next":
		return ButtonNext, nil
	default:
		return 0, errors.Newf("unknown button: %q", name)
	}
}
