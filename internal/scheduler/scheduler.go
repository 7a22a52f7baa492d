// Package scheduler runs the delayed callbacks of a room: the turn deadline,
// bot thinking pauses and the reveal pause between rounds.
//
// Callbacks run on the clock's goroutine. They must take the room lock
// themselves and check that the game has not moved on since they were
// scheduled; Timers only guarantees that a cancelled or stopped callback is
// never invoked.
package scheduler

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

type entry struct {
	timer *quartz.Timer
}

// Timers holds the pending callbacks of one room
type Timers struct {
	clock quartz.Clock

	mu      sync.Mutex
	pending map[uint64]*entry
	nextID  uint64
	turnID  uint64
	stopped bool
}

// New creates an empty set of timers on clock
func New(clock quartz.Clock) *Timers {
	return &Timers{
		clock:   clock,
		pending: make(map[uint64]*entry),
	}
}

// Turn arms the turn deadline, replacing any pending one. A zero duration
// only cancels the previous deadline. It reports whether fn was scheduled.
func (t *Timers) Turn(d time.Duration, fn func()) bool {
	if d <= 0 {
		t.CancelTurn()
		return false
	}
	return t.schedule(d, fn, true)
}

// After schedules fn once after d
func (t *Timers) After(d time.Duration, fn func()) bool {
	return t.schedule(d, fn, false)
}

// CancelTurn cancels the pending turn deadline, if any
func (t *Timers) CancelTurn() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.turnID != 0 {
		t.cancelLocked(t.turnID)
		t.turnID = 0
	}
}

// CancelAll cancels every pending callback. Unlike Stop, new ones may still
// be scheduled afterwards.
func (t *Timers) CancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelAllLocked()
}

// Stop cancels every pending callback and refuses new ones
func (t *Timers) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.cancelAllLocked()
}

// Stopped reports whether Stop was called
func (t *Timers) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Pending returns the number of callbacks waiting to fire
func (t *Timers) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

func (t *Timers) schedule(d time.Duration, fn func(), turn bool) bool {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return false
	}
	t.nextID++
	id := t.nextID
	e := &entry{}
	t.pending[id] = e
	tag := "after"
	if turn {
		tag = "turn"
		if t.turnID != 0 {
			t.cancelLocked(t.turnID)
		}
		t.turnID = id
	}
	t.mu.Unlock()

	// The clock may run the callback on another goroutine at any point after
	// this call, so the lock is not held across it.
	timer := t.clock.AfterFunc(d, func() {
		if t.take(id) {
			fn()
		}
	}, "Timers", tag)

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.pending[id]; ok {
		e.timer = timer
	} else {
		timer.Stop()
	}
	return true
}

// take removes id and reports whether it was still pending
func (t *Timers) take(id uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	if _, ok := t.pending[id]; !ok {
		return false
	}
	delete(t.pending, id)
	if t.turnID == id {
		t.turnID = 0
	}
	return true
}

func (t *Timers) cancelLocked(id uint64) {
	e, ok := t.pending[id]
	if !ok {
		return
	}
	delete(t.pending, id)
	if e.timer != nil {
		e.timer.Stop()
	}
}

func (t *Timers) cancelAllLocked() {
	for id := range t.pending {
		t.cancelLocked(id)
	}
	t.turnID = 0
}
