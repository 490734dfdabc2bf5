package player

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/slidebox/internal/domain/playlist"
	"github.com/osa030/slidebox/internal/infra/mopidy"
)

// step is one remote command of a chain.
type step struct {
	name string
	call func(ctx context.Context) error
}

// spawn queues fn behind every chain queued before it.
func (c *Controller) spawn(fn func()) {
	c.wg.Add(1)
	c.queueMu.Lock()
	c.queue = append(c.queue, fn)
	c.queueMu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// chainLoop runs queued chains one at a time, in the order they were queued.
func (c *Controller) chainLoop() {
	defer close(c.loopDone)

	for {
		if fn, ok := c.dequeue(); ok {
			fn()
			c.wg.Done()
			continue
		}

		select {
		case <-c.ctx.Done():
			for {
				if _, ok := c.dequeue(); !ok {
					return
				}
				c.wg.Done()
			}
		case <-c.wake:
		}
	}
}

func (c *Controller) dequeue() (func(), bool) {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	if len(c.queue) == 0 {
		return nil, false
	}
	fn := c.queue[0]
	c.queue[0] = nil
	c.queue = c.queue[1:]
	return fn, true
}

// current reports whether gen is still the newest chain generation.
func (c *Controller) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}

// runSteps issues steps in order, each after the previous one completed.
// It stops at the first failure or once the chain is superseded.
func (c *Controller) runSteps(ctx context.Context, gen uint64, steps []step) (string, error) {
	for _, s := range steps {
		if !c.current(gen) {
			return s.name, errSuperseded
		}
		if err := s.call(ctx); err != nil {
			return s.name, err
		}
	}
	return "", nil
}

var errSuperseded = errors.New("chain superseded")

func (c *Controller) runSession(ctx context.Context, gen uint64, rec playlist.Record, chainID string) {
	failed, err := c.runSteps(ctx, gen, []step{
		{name: mopidy.MethodTracklistClear, call: c.remote.ClearTracklist},
		{name: mopidy.MethodTracklistAdd, call: func(ctx context.Context) error {
			return c.remote.AddToTracklist(ctx, rec.URI)
		}},
		{name: mopidy.MethodPlay, call: c.remote.Play},
	})
	if errors.Is(err, errSuperseded) {
		zlog.Debug().Msgf("player: session chain superseded: chain=%s step=%s", chainID, failed)
		return
	}
	if err != nil {
		c.failSession(gen, chainID, failed, err)
		return
	}

	if !c.current(gen) {
		return
	}
	trk, err := c.remote.GetCurrentTrack(ctx)
	if err != nil {
		c.failSession(gen, chainID, mopidy.MethodGetCurrentTrack, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		return
	}
	c.pendingTag = ""
	c.status.CurrentTagID = rec.TagID
	c.status.IsPlaying = true
	c.setStateLocked(StatePlaying)
	c.applyTrackLocked(trk)

	zlog.Info().Msgf("player: session started: tag=%s track=%q chain=%s", rec.TagID, c.status.TrackName, chainID)
	c.sendEventLocked(Event{
		Type:  EventSessionStarted,
		TagID: rec.TagID,
		URI:   rec.URI,
		Track: trk,
		State: c.state,
	})
}

// failSession abandons the session after a chain step failed.
func (c *Controller) failSession(gen uint64, chainID, stepName string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		zlog.Debug().Err(err).Msgf("player: late failure of superseded chain: step=%s", stepName)
		return
	}

	zlog.Error().Err(err).Msgf("player: session chain failed: chain=%s step=%s", chainID, stepName)
	c.pendingTag = ""
	c.resetLocked()
	c.setStateLocked(StateIdle)
	c.notifier.ShowError("Mopidy error: " + reason(err))
}

func (c *Controller) runStop(ctx context.Context, gen uint64) {
	if !c.current(gen) {
		return
	}
	err := c.remote.Stop(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		zlog.Debug().Msg("player: stop superseded by a newer session")
		return
	}
	if err != nil {
		zlog.Warn().Err(err).Msg("player: stop failed")
	}
	c.stopping = false
	c.resetLocked()
	c.setStateLocked(StateIdle)
	c.notifier.ShowIdle(c.config.Name)
}

func (c *Controller) runInit(ctx context.Context, gen uint64) {
	if !c.current(gen) {
		return
	}

	var initErr error
	state, err := c.remote.GetState(ctx)
	switch {
	case err != nil:
		zlog.Warn().Err(err).Msg("player: failed to query remote state")
		initErr = err
	case state == mopidy.StatePlaying:
		if !c.current(gen) {
			return
		}
		zlog.Info().Msg("player: remote already playing, stopping")
		if err := c.remote.Stop(ctx); err != nil {
			zlog.Warn().Err(err).Msg("player: initial stop failed")
			initErr = err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen || c.ctx.Err() != nil {
		return
	}
	if initErr != nil {
		c.notifier.ShowError("Mopidy error: " + reason(initErr))
	} else {
		c.notifier.ShowIdle(c.config.Name)
	}
	c.evaluateLocked(c.presentTag)
}

func (c *Controller) runPause(ctx context.Context, gen uint64) {
	if !c.current(gen) {
		return
	}
	err := c.remote.Pause(ctx)
	if err == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		return
	}
	zlog.Warn().Err(err).Msg("player: pause failed")
	if c.state == StatePaused {
		c.status.IsPlaying = true
		c.setStateLocked(StatePlaying)
	}
	c.notifier.ShowError("Mopidy error: " + reason(err))
}

func (c *Controller) runResume(ctx context.Context, gen, token uint64) {
	if !c.current(gen) {
		return
	}
	if err := c.remote.Resume(ctx); err != nil {
		zlog.Warn().Err(err).Msg("player: resume failed")
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen != gen {
			return
		}
		if c.resumeToken == token {
			c.resumeToken = 0
		}
		c.notifier.ShowError("Mopidy error: " + reason(err))
		return
	}

	if !c.current(gen) {
		return
	}
	trk, err := c.remote.GetCurrentTrack(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		return
	}
	if c.resumeToken != token {
		zlog.Debug().Msg("player: resume overtaken by a pause")
		return
	}
	c.resumeToken = 0
	c.status.IsPlaying = true
	c.setStateLocked(StatePlaying)
	if err != nil {
		zlog.Warn().Err(err).Msg("player: failed to fetch current track")
		c.notifier.ShowError("Mopidy error: " + reason(err))
	} else {
		c.applyTrackLocked(trk)
	}
	c.sendEventLocked(Event{Type: EventStateChanged, TagID: c.status.CurrentTagID, Track: trk, State: c.state})
}

func (c *Controller) runSkip(ctx context.Context, gen uint64, name string, call func(context.Context) error) {
	if !c.current(gen) {
		return
	}
	if err := call(ctx); err != nil {
		zlog.Warn().Err(err).Msgf("player: %s failed", name)
		c.reportError(gen, err)
		return
	}

	if !c.current(gen) {
		return
	}
	trk, err := c.remote.GetCurrentTrack(ctx)
	if err != nil {
		zlog.Warn().Err(err).Msg("player: failed to fetch current track")
		c.reportError(gen, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		return
	}
	c.applyTrackLocked(trk)
	c.sendEventLocked(Event{Type: EventTrackChanged, TagID: c.status.CurrentTagID, Track: trk, State: c.state})
}

// reportError shows err unless the chain was superseded.
func (c *Controller) reportError(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.notifier.ShowError("Mopidy error: " + reason(err))
	}
}

// reason gives a short human-readable cause for the display.
func reason(err error) string {
	switch {
	case errors.Is(err, mopidy.ErrTimeout):
		return "timeout"
	case errors.Is(err, mopidy.ErrNetwork):
		return "unreachable"
	case errors.Is(err, mopidy.ErrParse):
		return "bad response"
	case errors.Is(err, mopidy.ErrProtocol):
		var rpcErr *mopidy.RPCError
		if errors.As(err, &rpcErr) {
			return rpcErr.Message
		}
		return "unexpected response"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return err.Error()
	}
}
