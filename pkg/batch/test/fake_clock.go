package test

import (
	"sync"
	"time"

	clock "github.com/tigerroll/swell/pkg/batch/core/clock"
)

// FakeClock is a manually advanced implementation of the clock.Clock
// interface. Time only moves when the test calls Advance or SetNow, which
// makes timer-driven behavior deterministic.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

// NewFakeClock creates a FakeClock frozen at the given time.
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

// Now returns the clock's current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After returns a channel that receives the clock's time once Advance moves
// it past the given duration. A non-positive duration fires immediately.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.waiters = append(c.waiters, &fakeWaiter{deadline: c.now.Add(d), ch: ch})
	return ch
}

// Advance moves the clock forward and fires every timer whose deadline has
// been reached.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(c.now.Add(d))
}

// SetNow moves the clock to an absolute time. Moving backwards does not
// un-fire timers.
func (c *FakeClock) SetNow(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(now)
}

// WaiterCount returns the number of pending timers. Tests use it to wait for
// a goroutine to park on After before advancing.
func (c *FakeClock) WaiterCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// BlockUntilWaiters polls until at least n timers are pending or the timeout
// elapses, and reports whether the waiters arrived.
func (c *FakeClock) BlockUntilWaiters(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.WaiterCount() >= n {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return c.WaiterCount() >= n
}

func (c *FakeClock) setLocked(now time.Time) {
	c.now = now
	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.deadline.After(c.now) {
			w.ch <- c.now
		} else {
			remaining = append(remaining, w)
		}
	}
	c.waiters = remaining
}

var _ clock.Clock = (*FakeClock)(nil)
