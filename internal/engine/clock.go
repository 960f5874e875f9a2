package engine

import "sync/atomic"

// Clock is the monotonic logical clock that sequences report entries.
//
// The walker appends entries in the order work completes, so a dependency
// synchronised on demand always receives a lower seq than its dependent.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}
