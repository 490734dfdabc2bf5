// Package timer provides single-purpose timer slots.
package timer

import (
	"sync"
	"time"
)

// Scheduler runs fn once after d and returns a function that cancels it.
type Scheduler func(d time.Duration, fn func()) (cancel func())

// AfterFunc is the default Scheduler.
func AfterFunc(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// Slot holds at most one pending timer.
// Arming a slot cancels whatever was pending, and a callback belonging to a
// cancelled or replaced timer never runs, even if it already fired.
type Slot struct {
	mu       sync.Mutex
	schedule Scheduler
	cancel   func()
	gen      uint64
}

// NewSlot creates an empty slot. A nil scheduler means AfterFunc.
func NewSlot(schedule Scheduler) *Slot {
	if schedule == nil {
		schedule = AfterFunc
	}
	return &Slot{schedule: schedule}
}

// Arm replaces any pending timer with one that calls fn after d.
func (s *Slot) Arm(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	gen := s.gen
	s.cancel = s.schedule(d, func() {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.cancel = nil
		s.gen++
		s.mu.Unlock()

		fn()
	})
}

// Cancel drops the pending timer, if any.
func (s *Slot) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Pending reports whether a timer is armed and has not fired yet.
func (s *Slot) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// stopLocked must be called with s.mu held.
func (s *Slot) stopLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}
