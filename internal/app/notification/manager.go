// Package notification fans display updates out to subscribed screens.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// Stream represents a display that receives screens.
type Stream interface {
	Send(Screen) error
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id     string
	stream Stream
}

// Manager manages display subscriptions and broadcasting.
// It implements Notifier.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sendTimeout   time.Duration

	lastMu     sync.RWMutex
	sequenceNo uint64
	last       *Screen
}

var _ Notifier = (*Manager)(nil)

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
		sendTimeout:   500 * time.Millisecond,
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:     id,
		stream: stream,
	}
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// ShowIdle shows the idle banner.
func (m *Manager) ShowIdle(name string) {
	m.Broadcast(KindIdle, name)
}

// ShowTrack shows the current track.
func (m *Manager) ShowTrack(name, artist string) {
	m.Broadcast(KindTrack, name, artist)
}

// ShowMessage shows a status message.
func (m *Manager) ShowMessage(text string) {
	m.Broadcast(KindMessage, text)
}

// ShowError shows an error message.
func (m *Manager) ShowError(text string) {
	m.Broadcast(KindError, text)
}

// ShowRawTag shows an unrecognised tag id.
func (m *Manager) ShowRawTag(id string) {
	m.Broadcast(KindRawTag, id)
}

// Last returns the most recent screen.
func (m *Manager) Last() (Screen, bool) {
	m.lastMu.RLock()
	defer m.lastMu.RUnlock()
	if m.last == nil {
		return Screen{}, false
	}
	return *m.last, true
}

// Broadcast sends a screen to all subscribers.
// Each stream send is done in a goroutine with a timeout so a stuck display
// cannot hold up the caller for long.
func (m *Manager) Broadcast(kind Kind, lines ...string) Screen {
	m.lastMu.Lock()
	m.sequenceNo++
	screen := Screen{
		SequenceNo: m.sequenceNo,
		Kind:       kind,
		Lines:      lines,
		At:         time.Now(),
	}
	m.last = &screen
	m.lastMu.Unlock()

	m.mu.RLock()
	// Copy subscriptions to avoid holding lock during sends
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), m.sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(screen)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Warn().Err(err).Msgf("notification: display send failed, dropping: subscription=%s", s.id)
					m.Unsubscribe(s.id)
				}
			case <-ctx.Done():
				zlog.Warn().Msgf("notification: display send timed out: subscription=%s", s.id)
			}
		}(sub)
	}

	wg.Wait()
	return screen
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
