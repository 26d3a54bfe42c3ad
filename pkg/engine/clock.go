package engine

import (
	"sort"
	"sync"
	"time"
)

// TickHandle is a cancelable scheduled callback. Stop reports whether
// the callback was prevented from running.
type TickHandle interface {
	Stop() bool
}

// Clock abstracts wall-clock reads and callback scheduling so tick
// delivery is deterministic under test. Production uses RealClock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) TickHandle
}

// RealClock delegates to the time package.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

func (RealClock) AfterFunc(d time.Duration, fn func()) TickHandle {
	return time.AfterFunc(d, fn)
}

// FakeClock is a manually advanced clock. Advance moves time forward
// and fires due callbacks in deadline order on the calling goroutine,
// including callbacks scheduled by earlier callbacks within the same
// advance window.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *FakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

// NewFakeClock creates a fake clock starting at the given instant.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) AfterFunc(d time.Duration, fn func()) TickHandle {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward by d, firing every due callback in
// deadline order.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)

	for {
		next := c.nextDueLocked(target)
		if next == nil {
			break
		}
		if next.at.After(c.now) {
			c.now = next.at
		}
		next.fired = true
		fn := next.fn

		// Callbacks schedule follow-up timers and take their own
		// locks; run them without holding ours.
		c.mu.Unlock()
		fn()
		c.mu.Lock()
	}

	c.now = target
	c.mu.Unlock()
}

func (c *FakeClock) nextDueLocked(target time.Time) *fakeTimer {
	pending := c.timers[:0]
	var due []*fakeTimer
	for _, t := range c.timers {
		switch {
		case t.stopped || t.fired:
			// drop
		case !t.at.After(target):
			due = append(due, t)
			pending = append(pending, t)
		default:
			pending = append(pending, t)
		}
	}
	c.timers = pending

	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	return due[0]
}
