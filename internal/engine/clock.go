package engine

import "time"

// Clock supplies operation timestamps in Unix milliseconds.
//
// The engine reads the clock exactly once per operation, so every record
// and event written by one call carries the same timestamp. Ordering never
// depends on the clock: the event log's seq is the only order.
type Clock interface {
	Now() int64
}

// SystemClock reads wall-clock time.
type SystemClock struct{}

// Now returns the current time in Unix milliseconds.
func (SystemClock) Now() int64 {
	return time.Now().UnixMilli()
}
