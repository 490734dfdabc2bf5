package control

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/slidebox/internal/app/notification"
)

var errStreamClosed = errors.New("screen stream closed")

// StreamScreens streams display updates as server-sent events, starting with
// the current screen.
func (s *Service) StreamScreens(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	adapter := &sseStream{w: w, flusher: flusher}
	if screen, ok := s.screens.Last(); ok {
		if err := adapter.Send(screen); err != nil {
			return
		}
	}

	subscriptionID := s.screens.Subscribe(adapter)
	zlog.Debug().Msgf("control: screen stream opened: subscription=%s", subscriptionID)

	select {
	case <-r.Context().Done():
	case <-s.done:
	}

	s.screens.Unsubscribe(subscriptionID)
	adapter.close()
	zlog.Debug().Msgf("control: screen stream closed: subscription=%s", subscriptionID)
}

// sseStream adapts an http.ResponseWriter to notification.Stream.
type sseStream struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
}

func (a *sseStream) Send(screen notification.Screen) error {
	data, err := json.Marshal(screen)
	if err != nil {
		return errors.Wrap(err, "failed to encode screen")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errStreamClosed
	}
	if _, err := fmt.Fprintf(a.w, "id: %d\nevent: screen\ndata: %s\n\n", screen.SequenceNo, data); err != nil {
		return errors.Wrap(err, "failed to write screen")
	}
	a.flusher.Flush()
	return nil
}

func (a *sseStream) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
}
