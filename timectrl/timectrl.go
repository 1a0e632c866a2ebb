package timectrl

import (
	"sort"
	"sync"
	"time"
)

// Clock is the time source used by the tracker. Production code uses the
// system clock; tests drive a TimeController by hand so that worker cycles
// happen exactly when the test advances time.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// After returns a channel that receives the current time once d has
	// elapsed on this clock.
	After(d time.Duration) <-chan time.Time
}

// System returns a Clock backed by the time package.
func System() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now().UTC() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// OrSystem returns c, or the system clock when c is nil.
func OrSystem(c Clock) Clock {
	if c == nil {
		return System()
	}
	return c
}

// TimeController is a manually stepped Clock. Time only moves when Advance
// or SetTime is called; pending After channels whose deadline has been
// reached fire at that point, in deadline order.
type TimeController struct {
	mu sync.Mutex

	currentTime time.Time
	timers      []*timer
}

type timer struct {
	deadline time.Time
	ch       chan time.Time
}

// NewTimeController constructs a controller starting at start.
func NewTimeController(start time.Time) *TimeController {
	return &TimeController{currentTime: start}
}

// Now returns the controller's current time. Implements Clock.
func (tc *TimeController) Now() time.Time {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.currentTime
}

// After registers a timer that fires once the controller reaches
// Now()+d. A non-positive d fires immediately. Implements Clock.
func (tc *TimeController) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)

	tc.mu.Lock()
	defer tc.mu.Unlock()

	if d <= 0 {
		ch <- tc.currentTime
		return ch
	}
	tc.timers = append(tc.timers, &timer{deadline: tc.currentTime.Add(d), ch: ch})
	return ch
}

// Waiters reports how many After channels are still pending. Tests use it
// to wait until a goroutine is parked on the clock before advancing.
func (tc *TimeController) Waiters() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return len(tc.timers)
}

// Advance moves time forward by d and fires due timers.
func (tc *TimeController) Advance(d time.Duration) {
	tc.mu.Lock()
	next := tc.currentTime.Add(d)
	tc.mu.Unlock()
	tc.SetTime(next)
}

// SetTime jumps to t and fires every timer whose deadline is not after t.
// Moving backwards is allowed and fires nothing.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	tc.currentTime = t

	var due []*timer
	pending := tc.timers[:0]
	for _, tm := range tc.timers {
		if !tm.deadline.After(t) {
			due = append(due, tm)
			continue
		}
		pending = append(pending, tm)
	}
	tc.timers = pending
	tc.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
	for _, tm := range due {
		// buffered with capacity one and written exactly once
		tm.ch <- t
	}
}
