package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/slidebox/internal/app/timer"
)

const pollInterval = time.Second

// recorder collects events, ignoring confirmations unless asked.
type recorder struct {
	events []Event
}

func (r *recorder) handle(e Event) {
	r.events = append(r.events, e)
}

func (r *recorder) edges() []Event {
	var out []Event
	for _, e := range r.events {
		if e.Type != EventTagConfirmed {
			out = append(out, e)
		}
	}
	return out
}

// poll feeds readings one poll interval apart.
func poll(clock *timer.Manual, tr *Tracker, readings ...string) {
	for i, r := range readings {
		if i > 0 {
			clock.Advance(pollInterval)
		}
		tr.Observe(r)
	}
}

func newTracker() (*timer.Manual, *Tracker, *recorder) {
	clock := timer.NewManual()
	rec := &recorder{}
	tr := NewTracker(Config{Grace: DefaultGrace, Scheduler: clock.Schedule}, rec.handle)
	return clock, tr, rec
}

func TestTracker_ConstantReading(t *testing.T) {
	clock, tr, rec := newTracker()

	poll(clock, tr, "A1", "A1", "A1", "A1", "A1")
	clock.Advance(pollInterval)
	tr.Observe("A1")

	assert.Equal(t, []Event{{Type: EventIdentityChanged, TagID: "A1"}}, rec.edges())
	assert.Equal(t, "A1", tr.Current())
}

func TestTracker_IdentityChangeIsImmediate(t *testing.T) {
	tests := []struct {
		name     string
		readings []string
		want     []Event
	}{
		{
			name:     "none to some",
			readings: []string{"", "A1"},
			want:     []Event{{Type: EventIdentityChanged, TagID: "A1"}},
		},
		{
			name:     "one tag to another",
			readings: []string{"A1", "B2"},
			want: []Event{
				{Type: EventIdentityChanged, TagID: "A1"},
				{Type: EventIdentityChanged, TagID: "B2"},
			},
		},
		{
			name:     "swap back and forth",
			readings: []string{"A1", "B2", "A1"},
			want: []Event{
				{Type: EventIdentityChanged, TagID: "A1"},
				{Type: EventIdentityChanged, TagID: "B2"},
				{Type: EventIdentityChanged, TagID: "A1"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock, tr, rec := newTracker()
			poll(clock, tr, tt.readings...)
			assert.Equal(t, tt.want, rec.edges())
		})
	}
}

func TestTracker_RemovalAfterGrace(t *testing.T) {
	clock, tr, rec := newTracker()

	// A1, (none), (none) spanning more than the grace window.
	poll(clock, tr, "A1", "", "")

	assert.Equal(t, []Event{
		{Type: EventIdentityChanged, TagID: "A1"},
		{Type: EventTagRemoved, TagID: "A1"},
	}, rec.edges())
	assert.Equal(t, "", tr.Current())

	clock.Advance(10 * time.Second)
	assert.Len(t, rec.edges(), 2, "removal must fire exactly once")
}

func TestTracker_PollJitterDoesNotRemove(t *testing.T) {
	clock, tr, rec := newTracker()

	// Reads arrive a little late each cycle but always inside the grace window.
	tr.Observe("A1")
	for i := 0; i < 5; i++ {
		clock.Advance(1050 * time.Millisecond)
		tr.Observe("A1")
	}

	assert.Equal(t, []Event{{Type: EventIdentityChanged, TagID: "A1"}}, rec.edges())
}

func TestTracker_GraceBoundary(t *testing.T) {
	clock, tr, rec := newTracker()

	tr.Observe("A1")
	clock.Advance(DefaultGrace - time.Millisecond)
	assert.Len(t, rec.edges(), 1)

	clock.Advance(time.Millisecond)
	assert.Len(t, rec.edges(), 2)
	assert.Equal(t, EventTagRemoved, rec.edges()[1].Type)
}

func TestTracker_SwitchCancelsStaleRemoval(t *testing.T) {
	clock, tr, rec := newTracker()

	tr.Observe("A1")
	clock.Advance(time.Second)
	tr.Observe("B2")
	clock.Advance(time.Second)
	tr.Observe("B2")
	clock.Advance(time.Second)

	assert.Equal(t, []Event{
		{Type: EventIdentityChanged, TagID: "A1"},
		{Type: EventIdentityChanged, TagID: "B2"},
	}, rec.edges())
	assert.Equal(t, 1, clock.Pending())
}

func TestTracker_ReappearAfterRemoval(t *testing.T) {
	clock, tr, rec := newTracker()

	poll(clock, tr, "A1", "", "", "A1")

	assert.Equal(t, []Event{
		{Type: EventIdentityChanged, TagID: "A1"},
		{Type: EventTagRemoved, TagID: "A1"},
		{Type: EventIdentityChanged, TagID: "A1"},
	}, rec.edges())
}

func TestTracker_ConfirmationsReported(t *testing.T) {
	clock, tr, rec := newTracker()

	poll(clock, tr, "A1", "A1", "A1")

	var confirmed int
	for _, e := range rec.events {
		if e.Type == EventTagConfirmed {
			confirmed++
		}
	}
	assert.Equal(t, 2, confirmed)
}

func TestTracker_Stop(t *testing.T) {
	clock, tr, rec := newTracker()

	tr.Observe("A1")
	tr.Stop()
	clock.Advance(5 * time.Second)

	assert.Len(t, rec.edges(), 1)
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "identity_changed", EventIdentityChanged.String())
	assert.Equal(t, "tag_confirmed", EventTagConfirmed.String())
	assert.Equal(t, "tag_removed", EventTagRemoved.String())
	assert.Equal(t, "unknown", EventType(99).String())
}
