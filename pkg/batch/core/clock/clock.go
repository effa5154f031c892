// Package clock abstracts time acquisition so that scheduling decisions,
// timeout detection, and status timestamps are testable without real waiting.
// Every engine component that compares or records times takes a Clock; only
// application wiring touches the system clock.
package clock

import "time"

// Clock is the time source injected into the scheduler, coordinator, and
// executor.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// After waits for the duration to elapse and then sends the current time
	// on the returned channel.
	After(d time.Duration) <-chan time.Time
}

// SystemClock is the production Clock backed by the time package.
type SystemClock struct{}

// NewSystemClock creates a Clock that reads real time.
func NewSystemClock() Clock {
	return &SystemClock{}
}

// Now returns time.Now().
func (c *SystemClock) Now() time.Time {
	return time.Now()
}

// After delegates to time.After.
func (c *SystemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

var _ Clock = (*SystemClock)(nil)
