package testutil

import "sync"

// DefaultEpoch is the first timestamp a DeterministicClock returns
// (2024-01-01T00:00:00Z in Unix milliseconds).
const DefaultEpoch int64 = 1_704_067_200_000

// DeterministicClock is a thread-safe fake wall clock for tests.
//
// Every call to Now advances the clock by a fixed step, so each operation
// of a scenario gets a distinct, reproducible timestamp and golden traces
// stay byte-identical across runs.
type DeterministicClock struct {
	mu    sync.Mutex
	next  int64
	start int64
	step  int64
}

// NewDeterministicClock creates a clock that starts at DefaultEpoch and
// advances one second per reading.
func NewDeterministicClock() *DeterministicClock {
	return NewDeterministicClockAt(DefaultEpoch, 1000)
}

// NewDeterministicClockAt creates a clock starting at start that advances
// step milliseconds per reading.
func NewDeterministicClockAt(start, step int64) *DeterministicClock {
	return &DeterministicClock{next: start, start: start, step: step}
}

// Now returns the current fake time and advances the clock.
// Implements engine.Clock.
func (c *DeterministicClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next += c.step
	return now
}

// Peek returns the time the next Now call will return.
func (c *DeterministicClock) Peek() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

// Advance moves the clock forward by d milliseconds without a reading.
func (c *DeterministicClock) Advance(d int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next += d
}

// Reset returns the clock to its start time.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = c.start
}
