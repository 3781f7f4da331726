// Package scheduler runs one-shot delayed callbacks behind a small interface
// so callers can swap wall-clock timers for a manually advanced clock.
package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Cancel stops a scheduled callback. Calling it after the callback ran, or
// more than once, is a no-op.
type Cancel func()

// Scheduler runs fn once after d.
type Scheduler interface {
	ScheduleOnce(d time.Duration, fn func()) Cancel
}

// Real schedules on wall-clock timers.
type Real struct{}

// ScheduleOnce implements Scheduler with time.AfterFunc.
func (Real) ScheduleOnce(d time.Duration, fn func()) Cancel {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

type task struct {
	due time.Time
	seq uint64
	fn  func()
}

// Manual is a fake clock. Callbacks only run inside Advance, on the caller's
// goroutine, in due order (ties in scheduling order).
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	pending map[uint64]*task
}

// NewManual returns a Manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start, pending: make(map[uint64]*task)}
}

// Now returns the current fake time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// ScheduleOnce implements Scheduler.
func (m *Manual) ScheduleOnce(d time.Duration, fn func()) Cancel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	id := m.seq
	m.pending[id] = &task{due: m.now.Add(d), seq: id, fn: fn}
	return func() {
		m.mu.Lock()
		delete(m.pending, id)
		m.mu.Unlock()
	}
}

// Advance moves the clock forward by d and runs every callback that comes
// due, including ones scheduled by callbacks during the advance. It returns
// the number of callbacks run.
func (m *Manual) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	fired := 0
	for {
		m.mu.Lock()
		next := m.nextDueLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return fired
		}
		delete(m.pending, next.seq)
		m.now = next.due
		m.mu.Unlock()

		next.fn()
		fired++
	}
}

// Pending returns the number of callbacks waiting to run.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Deadlines lists the pending due times in order.
func (m *Manual) Deadlines() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]time.Time, 0, len(m.pending))
	for _, t := range m.pending {
		out = append(out, t.due)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func (m *Manual) nextDueLocked(target time.Time) *task {
	var next *task
	for _, t := range m.pending {
		if t.due.After(target) {
			continue
		}
		if next == nil || t.due.Before(next.due) || (t.due.Equal(next.due) && t.seq < next.seq) {
			next = t
		}
	}
	return next
}
