// Package presence turns a polled tag reader into edge-triggered presence events.
package presence

import (
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/slidebox/internal/app/timer"
)

// DefaultGrace is how long a tag may go unseen before it counts as removed.
// The reader misses a motionless tag every few polls, so this must exceed
// the poll interval.
const DefaultGrace = 1100 * time.Millisecond

// Handler receives presence events. It runs with the tracker locked and must
// not call back into the Tracker.
type Handler func(Event)

// Config holds tracker configuration.
type Config struct {
	Grace     time.Duration   // Absence debounce window
	Scheduler timer.Scheduler // Timer source (nil for wall clock)
}

// Tracker debounces tag removal while reporting identity changes immediately.
type Tracker struct {
	mu      sync.Mutex
	tracked string
	grace   time.Duration
	absence *timer.Slot
	handler Handler
}

// NewTracker creates a tracker that reports to handler.
func NewTracker(cfg Config, handler Handler) *Tracker {
	grace := cfg.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Tracker{
		grace:   grace,
		absence: timer.NewSlot(cfg.Scheduler),
		handler: handler,
	}
}

// Observe feeds one poll result. An empty reading means no tag was seen this
// cycle; it never produces an event by itself.
func (t *Tracker) Observe(reading string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if reading == "" {
		return
	}

	if reading == t.tracked {
		t.armLocked(reading)
		t.emitLocked(Event{Type: EventTagConfirmed, TagID: reading})
		return
	}

	// Identity changes are not debounced: a misread simply fails the lookup.
	zlog.Debug().Msgf("presence: identity changed: previous=%q new=%q", t.tracked, reading)
	t.tracked = reading
	t.armLocked(reading)
	t.emitLocked(Event{Type: EventIdentityChanged, TagID: reading})
}

// Current returns the tracked tag id, or an empty string when absent.
func (t *Tracker) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracked
}

// Stop cancels the absence timer without emitting anything.
func (t *Tracker) Stop() {
	t.absence.Cancel()
}

// armLocked restarts the absence timer for id.
func (t *Tracker) armLocked(id string) {
	t.absence.Arm(t.grace, func() {
		t.onAbsent(id)
	})
}

func (t *Tracker) onAbsent(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tracked != id {
		return
	}
	zlog.Debug().Msgf("presence: tag removed: tag=%q grace=%v", id, t.grace)
	t.tracked = ""
	t.emitLocked(Event{Type: EventTagRemoved, TagID: id})
}

// emitLocked must be called with t.mu held.
func (t *Tracker) emitLocked(e Event) {
	if t.handler != nil {
		t.handler(e)
	}
}
