package player

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/slidebox/internal/app/notification"
	"github.com/osa030/slidebox/internal/app/presence"
	"github.com/osa030/slidebox/internal/domain/playlist"
	"github.com/osa030/slidebox/internal/domain/track"
)

// Errors
var (
	ErrNoSession = errors.New("no active session")
	ErrClosed    = errors.New("player closed")
)

// DefaultName is shown on the idle banner when no name is configured.
const DefaultName = "Slide Player"

// Remote is the remote playback service.
type Remote interface {
	Stop(ctx context.Context) error
	GetState(ctx context.Context) (string, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Previous(ctx context.Context) error
	Next(ctx context.Context) error
	Play(ctx context.Context) error
	GetCurrentTrack(ctx context.Context) (*track.Track, error)
	ClearTracklist(ctx context.Context) error
	AddToTracklist(ctx context.Context, uri string) error
}

// Library resolves tag ids to playlist records.
type Library interface {
	Lookup(tagID string) (playlist.Record, error)
}

// Config holds controller configuration.
type Config struct {
	Name string // Player name for the idle banner
}

// Controller is the player state machine. Presence events and buttons are
// applied under one lock; remote command chains run on their own goroutines,
// one at a time, and drop their results once a newer chain supersedes them.
type Controller struct {
	mu sync.Mutex

	state      State
	status     Status
	presentTag string // Tag currently reported present by the tracker
	pendingTag string // Tag whose session chain is in flight
	stopping   bool   // Stop after removal has not completed yet

	// Resume in flight; a toggle while it is set pauses
	resumeSeq   uint64
	resumeToken uint64

	// Chain supersession
	gen         uint64
	chainCtx    context.Context
	chainCancel context.CancelFunc

	// FIFO of chains drained by chainLoop
	queueMu  sync.Mutex
	queue    []func()
	wake     chan struct{}
	loopDone chan struct{}

	remote   Remote
	library  Library
	notifier notification.Notifier
	config   Config

	eventCh   chan Event
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewController creates a new player controller.
func NewController(remote Remote, library Library, notifier notification.Notifier, config Config) *Controller {
	if config.Name == "" {
		config.Name = DefaultName
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		state:    StateIdle,
		remote:   remote,
		library:  library,
		notifier: notifier,
		config:   config,
		chainCtx: ctx,
		wake:     make(chan struct{}, 1),
		loopDone: make(chan struct{}),
		eventCh:  make(chan Event, 16),
		ctx:      ctx,
		cancel:   cancel,
	}
	go c.chainLoop()
	return c
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// HandlePresence applies a presence event. It matches presence.Handler.
func (c *Controller) HandlePresence(e presence.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx.Err() != nil {
		return
	}

	switch e.Type {
	case presence.EventIdentityChanged:
		c.presentTag = e.TagID
		c.status.TagPresent = true
		c.evaluateLocked(e.TagID)
	case presence.EventTagConfirmed:
		c.status.TagPresent = true
	case presence.EventTagRemoved:
		c.presentTag = ""
		c.status.TagPresent = false
		c.stopSessionLocked(e.TagID)
	}
}

// HandleButton applies a button edge. Buttons only act on an active session.
func (c *Controller) HandleButton(b Button) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx.Err() != nil {
		return ErrClosed
	}
	if c.stopping || (c.state != StatePlaying && c.state != StatePaused) {
		zlog.Debug().Msgf("player: button ignored: button=%s state=%s", b, c.state)
		return ErrNoSession
	}

	gen, ctx := c.gen, c.chainCtx

	switch b {
	case ButtonTogglePlay:
		if c.state == StatePlaying || c.resumeToken != 0 {
			wasPlaying := c.state == StatePlaying
			c.resumeToken = 0
			c.status.IsPlaying = false
			c.setStateLocked(StatePaused)
			c.notifier.ShowMessage("Paused")
			if wasPlaying {
				c.sendEventLocked(Event{Type: EventStateChanged, TagID: c.status.CurrentTagID, State: c.state})
			}
			c.spawn(func() { c.runPause(ctx, gen) })
		} else {
			c.resumeSeq++
			token := c.resumeSeq
			c.resumeToken = token
			c.spawn(func() { c.runResume(ctx, gen, token) })
		}
	case ButtonPrevious:
		c.spawn(func() { c.runSkip(ctx, gen, "previous", c.remote.Previous) })
	case ButtonNext:
		c.spawn(func() { c.runSkip(ctx, gen, "next", c.remote.Next) })
	default:
		return errors.Newf("unknown button: %d", int(b))
	}
	return nil
}

// Init resets the player and brings the remote service to a known state:
// a remote that is already playing is stopped. A tag that was placed before
// Init ran is then evaluated.
func (c *Controller) Init() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx.Err() != nil {
		return
	}

	gen, ctx := c.supersedeLocked()
	c.resetLocked()
	c.setStateLocked(StateIdle)
	c.spawn(func() { c.runInit(ctx, gen) })
}

// OnLibraryLoaded runs Init once the playlist index is available.
func (c *Controller) OnLibraryLoaded(count int) {
	zlog.Info().Msgf("player: library ready: records=%d", count)
	c.Init()
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns a copy of the player status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Snapshot returns the player state, status and presence together.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:      c.state,
		Status:     c.status,
		PresentTag: c.presentTag,
		PendingTag: c.pendingTag,
	}
}

// Wait blocks until every spawned chain has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels in-flight chains, waits for them and closes the event channel.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.cancel()
		if c.chainCancel != nil {
			c.chainCancel()
		}
		c.mu.Unlock()

		c.wg.Wait()
		<-c.loopDone

		c.mu.Lock()
		close(c.eventCh)
		c.mu.Unlock()
	})
}

// evaluateLocked resolves id and acts on the result.
// Must be called with lock held.
func (c *Controller) evaluateLocked(id string) {
	if id == "" {
		return
	}
	if id == c.status.CurrentTagID || id == c.pendingTag {
		zlog.Debug().Msgf("player: tag already active: tag=%s", id)
		return
	}

	rec, err := c.library.Lookup(id)
	switch {
	case errors.Is(err, playlist.ErrNotLoaded):
		zlog.Info().Msgf("player: library not loaded, deferring tag: tag=%s", id)
		return
	case errors.Is(err, playlist.ErrNotFound):
		zlog.Info().Msgf("player: unknown tag: tag=%s", id)
		c.abandonLocked()
		c.notifier.ShowRawTag(id)
		return
	case err != nil:
		zlog.Warn().Err(err).Msgf("player: lookup failed: tag=%s", id)
		c.abandonLocked()
		c.notifier.ShowError("database error: " + err.Error())
		return
	}

	if rec.Inert() {
		zlog.Info().Msgf("player: tag has no playlist: tag=%s note=%q", id, rec.Note)
		c.abandonLocked()
		if rec.Note != "" {
			c.notifier.ShowMessage(rec.Note)
		} else {
			c.notifier.ShowRawTag(id)
		}
		return
	}

	c.startSessionLocked(rec)
}

// startSessionLocked supersedes whatever runs and starts a session chain for rec.
// Must be called with lock held.
func (c *Controller) startSessionLocked(rec playlist.Record) {
	gen, ctx := c.supersedeLocked()
	c.resetLocked()
	c.pendingTag = rec.TagID
	c.setStateLocked(StateStarting)

	label := rec.Note
	if label == "" {
		label = rec.URI
	}
	c.notifier.ShowMessage("Changing to " + label)

	chainID := uuid.NewString()
	zlog.Info().Msgf("player: starting session: tag=%s uri=%s chain=%s", rec.TagID, rec.URI, chainID)
	c.spawn(func() { c.runSession(ctx, gen, rec, chainID) })
}

// stopSessionLocked supersedes whatever runs and stops the remote.
// Must be called with lock held.
func (c *Controller) stopSessionLocked(tagID string) {
	gen, ctx := c.supersedeLocked()
	c.resetLocked()
	c.stopping = true

	zlog.Info().Msgf("player: tag removed, stopping: tag=%s", tagID)
	c.spawn(func() { c.runStop(ctx, gen) })
}

// abandonLocked drops the session locally without touching the remote.
// Must be called with lock held.
func (c *Controller) abandonLocked() {
	c.supersedeLocked()
	c.resetLocked()
	c.setStateLocked(StateIdle)
}

// supersedeLocked invalidates every running chain and returns the generation
// and context for the next one.
// Must be called with lock held.
func (c *Controller) supersedeLocked() (uint64, context.Context) {
	if c.chainCancel != nil {
		c.chainCancel()
	}
	c.gen++
	c.pendingTag = ""
	c.stopping = false
	c.resumeToken = 0
	c.chainCtx, c.chainCancel = context.WithCancel(c.ctx)
	return c.gen, c.chainCtx
}

// resetLocked zeroes the session status, keeping tag presence.
// Must be called with lock held.
func (c *Controller) resetLocked() {
	if c.status.CurrentTagID != "" {
		c.sendEventLocked(Event{Type: EventSessionEnded, TagID: c.status.CurrentTagID, State: c.state})
	}
	c.status = Status{TagPresent: c.status.TagPresent}
}

// setStateLocked must be called with lock held.
func (c *Controller) setStateLocked(s State) {
	if c.state != s {
		zlog.Debug().Msgf("player: state %s -> %s", c.state, s)
	}
	c.state = s
}

// applyTrackLocked records now-playing metadata and shows it.
// Must be called with lock held.
func (c *Controller) applyTrackLocked(trk *track.Track) {
	if trk == nil {
		c.status.TrackName = ""
		c.status.Album = ""
		c.notifier.ShowIdle(c.config.Name)
		return
	}
	c.status.TrackName = trk.Name
	c.status.Album = trk.Artist()
	c.notifier.ShowTrack(c.status.TrackName, c.status.Album)
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(e Event) {
	if c.ctx.Err() != nil {
		return
	}
	select {
	case c.eventCh <- e:
	default:
		zlog.Warn().Msgf("player: event dropped: type=%s", e.Type)
	}
}
