// Package library holds the tag-to-playlist lookup table.
package library

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/slidebox/internal/app/notification"
	"github.com/osa030/slidebox/internal/app/timer"
	"github.com/osa030/slidebox/internal/domain/playlist"
)

// DefaultRetryDelay is the pause between failed load attempts.
const DefaultRetryDelay = 2 * time.Second

// Source supplies playlist records.
type Source interface {
	FetchRecords(ctx context.Context) (playlist.Set, error)
}

// Config holds index configuration.
type Config struct {
	RetryDelay time.Duration   // Fixed delay between load attempts
	Scheduler  timer.Scheduler // Timer source for the retry timer (nil for wall clock)
}

// Index is loaded once and immutable afterwards. Loading starts on demand and
// is retried on a fixed delay until it succeeds.
type Index struct {
	mu       sync.RWMutex
	records  playlist.Set
	loaded   bool
	loading  bool
	onLoaded []func(count int)

	source   Source
	notifier notification.Notifier
	retry    *timer.Slot
	backoff  backoff.BackOff

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewIndex creates an empty index backed by source.
func NewIndex(source Source, notifier notification.Notifier, cfg Config) *Index {
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Index{
		source:   source,
		notifier: notifier,
		retry:    timer.NewSlot(cfg.Scheduler),
		backoff:  backoff.NewConstantBackOff(delay),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// OnLoaded registers fn to run after the index loads. Callbacks run in
// registration order on the loading goroutine.
func (x *Index) OnLoaded(fn func(count int)) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.onLoaded = append(x.onLoaded, fn)
}

// Lookup returns the first record for tagID. Against an index that has not
// loaded yet it starts a load and returns playlist.ErrNotLoaded.
func (x *Index) Lookup(tagID string) (playlist.Record, error) {
	x.mu.RLock()
	loaded := x.loaded
	rec, found := x.records.Find(tagID)
	x.mu.RUnlock()

	if !loaded {
		x.EnsureLoaded()
		return playlist.Record{}, playlist.ErrNotLoaded
	}
	if !found {
		return playlist.Record{}, playlist.ErrNotFound
	}
	return rec, nil
}

// Loaded reports whether the index has loaded.
func (x *Index) Loaded() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.loaded
}

// Len returns the number of records.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.records)
}

// EnsureLoaded starts a load attempt unless the index is loaded or an
// attempt is already running. Any pending retry is cancelled first.
func (x *Index) EnsureLoaded() {
	x.mu.Lock()
	if x.loaded || x.loading || x.ctx.Err() != nil {
		x.mu.Unlock()
		return
	}
	x.loading = true
	x.retry.Cancel()
	x.wg.Add(1)
	x.mu.Unlock()

	go func() {
		defer x.wg.Done()
		x.attempt()
	}()
}

// attempt performs one fetch and either installs the records or arms the retry.
func (x *Index) attempt() {
	x.notifier.ShowMessage("Loading albums database")

	records, err := x.source.FetchRecords(x.ctx)

	x.mu.Lock()
	x.loading = false
	if err != nil {
		closed := x.ctx.Err() != nil
		delay := x.backoff.NextBackOff()
		x.mu.Unlock()

		if closed {
			return
		}
		zlog.Warn().Err(err).Msgf("library: load failed, retrying in %v", delay)
		x.notifier.ShowError("database error: " + describe(err))
		x.retry.Arm(delay, x.EnsureLoaded)
		return
	}

	x.records = records
	x.loaded = true
	x.backoff.Reset()
	callbacks := make([]func(int), len(x.onLoaded))
	copy(callbacks, x.onLoaded)
	x.mu.Unlock()

	zlog.Info().Msgf("library: loaded %d records", len(records))
	if dups := records.Duplicates(); len(dups) > 0 {
		zlog.Warn().Msgf("library: duplicate tag ids, first entry wins: %v", dups)
	}
	x.notifier.ShowMessage(fmt.Sprintf("%d albums read", len(records)))

	for _, fn := range callbacks {
		fn(len(records))
	}
}

// Wait blocks until no load attempt is running.
func (x *Index) Wait() {
	x.wg.Wait()
}

// Close cancels any pending retry and in-flight fetch.
func (x *Index) Close() {
	x.cancel()
	x.retry.Cancel()
	x.wg.Wait()
}

// describe gives a short human-readable reason for the display.
func describe(err error) string {
	switch {
	case errors.Is(err, playlist.ErrParse):
		return "bad document"
	case errors.Is(err, playlist.ErrSourceUnavailable):
		return "source unavailable"
	default:
		return err.Error()
	}
}
