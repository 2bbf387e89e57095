package engine

import "sync/atomic"

// Clock numbers ticks. The first call to Next returns 1.
//
// Clock is safe for concurrent use, but only the tick goroutine advances it.
type Clock struct {
	tick atomic.Uint64
}

// NewClock creates a clock at tick 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next tick is start+1.
// Used to resume a recorded run.
func NewClockAt(start uint64) *Clock {
	c := &Clock{}
	c.tick.Store(start)
	return c
}

// Next advances the clock and returns the new tick.
func (c *Clock) Next() uint64 {
	return c.tick.Add(1)
}

// Current returns the last tick handed out.
func (c *Clock) Current() uint64 {
	return c.tick.Load()
}

// Set moves the clock so the next tick is tick+1.
func (c *Clock) Set(tick uint64) {
	c.tick.Store(tick)
}
