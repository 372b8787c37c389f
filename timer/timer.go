// Package timer measures elapsed time against timeouts.
//
// All polling loops in this module take their notion of "now" from a Clock so
// that timeout accounting can be exercised with a Fake clock in tests.
package timer

import (
	"sync"
	"time"
)

// Clock is a source of time.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// System is the wall clock.
var System Clock = systemClock{}

// Timer is a stopwatch started at a fixed instant.
type Timer struct {
	clock Clock
	start time.Time
}

// Start returns a Timer running from now. A nil clock means System.
func Start(clock Clock) Timer {
	if clock == nil {
		clock = System
	}
	return Timer{clock: clock, start: clock.Now()}
}

// Elapsed returns the time since the timer was started.
func (t Timer) Elapsed() time.Duration {
	return t.clock.Now().Sub(t.start)
}

// Expired reports whether timeout has been reached.
func (t Timer) Expired(timeout time.Duration) bool {
	return t.Elapsed() >= timeout
}

// Remaining returns what is left of timeout, never negative.
func (t Timer) Remaining(timeout time.Duration) time.Duration {
	left := timeout - t.Elapsed()
	if left < 0 {
		return 0
	}
	return left
}

// Fake is a manually driven Clock. Sleep advances it instantly.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake returns a Fake clock set to an arbitrary fixed instant.
func NewFake() *Fake {
	return &Fake{now: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Sleep(d time.Duration) {
	f.Advance(d)
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
