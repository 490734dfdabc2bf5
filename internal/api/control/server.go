// Package control exposes the player over HTTP: button edges, virtual tag
// placement, a status snapshot and a stream of display updates.
package control

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/osa030/slidebox/internal/app/notification"
	"github.com/osa030/slidebox/internal/app/player"
)

// Player is the part of the player the API drives.
type Player interface {
	Snapshot() player.Snapshot
	HandleButton(b player.Button) error
}

// TagPlacer places and removes a tag on a software reader.
type TagPlacer interface {
	Place(id string)
	Remove()
}

// Screens is the display fan-out.
type Screens interface {
	Subscribe(stream notification.Stream) string
	Unsubscribe(subscriptionID string)
	Last() (notification.Screen, bool)
}

// Library reports the playlist index state.
type Library interface {
	Loaded() bool
	Len() int
}

// Service implements the control API handlers.
type Service struct {
	player  Player
	library Library
	placer  TagPlacer // nil when the physical reader is in use
	screens Screens
	done    <-chan struct{}
}

// NewService creates a new control service. done is closed on shutdown and
// ends open screen streams.
func NewService(p Player, lib Library, placer TagPlacer, screens Screens, done <-chan struct{}) *Service {
	return &Service{
		player:  p,
		library: lib,
		placer:  placer,
		screens: screens,
		done:    done,
	}
}

// LibraryStatus describes the playlist index.
type LibraryStatus struct {
	Loaded  bool `json:"loaded"`
	Records int  `json:"records"`
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Player  player.Snapshot      `json:"player"`
	Library LibraryStatus        `json:"library"`
	Screen  *notification.Screen `json:"screen,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewHandler builds the routed, authenticated, h2c-capable handler.
func NewHandler(s *Service, token string) http.Handler {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.Use(NewAuthMiddleware(token))

	api.HandleFunc("/status", s.GetStatus).Methods(http.MethodGet)
	api.HandleFunc("/buttons/{button}", s.PressButton).Methods(http.MethodPost)
	api.HandleFunc("/tag/{id}", s.PlaceTag).Methods(http.MethodPut)
	api.HandleFunc("/tag", s.RemoveTag).Methods(http.MethodDelete)
	api.HandleFunc("/screens", s.StreamScreens).Methods(http.MethodGet)

	return h2c.NewHandler(router, &http2.Server{})
}

// GetStatus returns the player snapshot and the last screen.
func (s *Service) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Player: s.player.Snapshot(),
		Library: LibraryStatus{
			Loaded:  s.library.Loaded(),
			Records: s.library.Len(),
		},
	}
	if screen, ok := s.screens.Last(); ok {
		resp.Screen = &screen
	}
	writeJSON(w, http.StatusOK, resp)
}

// PressButton delivers one button edge.
func (s *Service) PressButton(w http.ResponseWriter, r *http.Request) {
	b, err := player.ParseButton(mux.Vars(r)["button"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	zlog.Info().Msgf("control: button pressed: button=%s", b)
	if err := s.player.HandleButton(b); err != nil {
		switch {
		case errors.Is(err, player.ErrNoSession):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, player.ErrClosed):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusAccepted, s.player.Snapshot())
}

// PlaceTag puts a tag on the virtual reader.
func (s *Service) PlaceTag(w http.ResponseWriter, r *http.Request) {
	if s.placer == nil {
		writeError(w, http.StatusConflict, "reader is not virtual")
		return
	}
	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" {
		writeError(w, http.StatusBadRequest, "tag id is required")
		return
	}

	zlog.Info().Msgf("control: tag placed: tag=%s", id)
	s.placer.Place(id)
	w.WriteHeader(http.StatusNoContent)
}

// RemoveTag clears the virtual reader.
func (s *Service) RemoveTag(w http.ResponseWriter, r *http.Request) {
	if s.placer == nil {
		writeError(w, http.StatusConflict, "reader is not virtual")
		return
	}

	zlog.Info().Msg("control: tag removed")
	s.placer.Remove()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Warn().Err(err).Msg("control: failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
