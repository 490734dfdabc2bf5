package mopidy

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/osa030/slidebox/internal/domain/track"
)

// Playback states reported by core.playback.get_state.
const (
	StatePlaying = "playing"
	StatePaused  = "paused"
	StateStopped = "stopped"
)

var validate = validator.New()

// request is the JSON-RPC envelope. The id is fixed; every call is a
// separate HTTP exchange so responses never need matching.
type request struct {
	Method  string  `json:"method"`
	ID      int     `json:"id"`
	JSONRPC string  `json:"jsonrpc"`
	Params  *Params `json:"params,omitempty"`
}

// Params carries the single uri argument used by this command set.
type Params struct {
	URI string `json:"uri"`
}

// response is the JSON-RPC reply envelope.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// trackSchema is the subset of a Mopidy Track model the player displays.
type trackSchema struct {
	Model   string         `json:"__model__" validate:"omitempty,eq=Track"`
	URI     string         `json:"uri" validate:"required"`
	Name    string         `json:"name"`
	Artists []artistSchema `json:"artists" validate:"dive"`
	Album   *albumSchema   `json:"album"`
	Length  *int64         `json:"length" validate:"omitempty,gte=0"`
}

type artistSchema struct {
	Name string `json:"name" validate:"required"`
}

type albumSchema struct {
	Name string `json:"name"`
}

func (s *trackSchema) toTrack() *track.Track {
	t := &track.Track{
		URI:  s.URI,
		Name: s.Name,
	}
	for _, a := range s.Artists {
		t.Artists = append(t.Artists, a.Name)
	}
	if s.Album != nil {
		t.Album = s.Album.Name
	}
	if s.Length != nil {
		t.Duration = time.Duration(*s.Length) * time.Millisecond
	}
	return t
}
