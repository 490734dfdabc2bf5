package notification

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Kind identifies what a screen shows.
type Kind int

const (
	KindIdle    Kind = iota // Idle banner with the player name
	KindTrack               // Now playing: track name and artist
	KindMessage             // Progress or status text
	KindError               // Transient error text
	KindRawTag              // Unknown tag id, shown as feedback
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindTrack:
		return "track"
	case KindMessage:
		return "message"
	case KindError:
		return "error"
	case KindRawTag:
		return "raw_tag"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name in JSON payloads.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	for _, v := range []Kind{KindIdle, KindTrack, KindMessage, KindError, KindRawTag} {
		if v.String() == string(text) {
			*k = v
			return nil
		}
	}
	return errors.Newf("unknown screen kind: %q", string(text))
}

// Screen is one display update.
type Screen struct {
	SequenceNo uint64    `json:"sequence_no"`
	Kind       Kind      `json:"kind"`
	Lines      []string  `json:"lines"`
	At         time.Time `json:"at"`
}

// Notifier receives display updates from the player core.
type Notifier interface {
	ShowIdle(name string)
	ShowTrack(name, artist string)
	ShowMessage(text string)
	ShowError(text string)
	ShowRawTag(id string)
}
