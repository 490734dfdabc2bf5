package reader

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// DefaultInterval is the poll period.
const DefaultInterval = time.Second

// Observer consumes one reading per poll.
type Observer interface {
	Observe(reading string)
}

// Poller reads a Reader on a fixed interval and hands each reading on.
type Poller struct {
	reader   Reader
	observer Observer
	interval time.Duration
}

// NewPoller creates a poller.
func NewPoller(r Reader, o Observer, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{reader: r, observer: o, interval: interval}
}

// Run polls until ctx is cancelled. A failed read counts as an empty one.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	failing := false
	for {
		p.pollOnce(ctx, &failing)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context, failing *bool) {
	pollCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	reading, err := p.reader.Poll(pollCtx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if !*failing {
			zlog.Warn().Err(err).Msg("reader: poll failed")
		}
		*failing = true
		reading = ""
	} else if *failing {
		zlog.Info().Msg("reader: poll recovered")
		*failing = false
	}

	p.observer.Observe(reading)
}
