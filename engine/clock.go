package engine

import (
	"sync/atomic"
	"time"
)

// Clock supplies the timestamps that drive per-group reclassification throttling
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock, monotonic reading included
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock only moves when stepped, so throttle intervals elapse deterministically
// Thread-Safety: all methods are safe for concurrent use
type ManualClock struct {
	base   time.Time
	offset atomic.Int64 // nanoseconds past base
}

// NewManualClock creates a clock reading start
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{base: start}
}

func (c *ManualClock) Now() time.Time {
	return c.base.Add(time.Duration(c.offset.Load()))
}

// Set jumps to t, which may be earlier than the current reading
func (c *ManualClock) Set(t time.Time) {
	c.offset.Store(int64(t.Sub(c.base)))
}

// Advance steps the clock forward by d
func (c *ManualClock) Advance(d time.Duration) {
	c.offset.Add(int64(d))
}
