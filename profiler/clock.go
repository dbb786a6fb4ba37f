package profiler

import "time"

// Clock is the elapsed-time source used for attribution. Now returns seconds
// and must never go backwards, block, or allocate.
type Clock interface {
	Now() float64
}

// MonotonicClock reads Go's monotonic clock relative to its creation.
type MonotonicClock struct {
	start time.Time
}

// NewMonotonicClock returns a clock whose zero is the moment of the call.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

// Now returns seconds elapsed since the clock was created.
func (c *MonotonicClock) Now() float64 {
	return time.Since(c.start).Seconds()
}

// WallClock reads the wall clock with microsecond resolution. Readings are
// clamped so that a wall-clock step backwards never produces a negative
// interval.
type WallClock struct {
	last float64
}

// Now returns the Unix time in seconds.
func (c *WallClock) Now() float64 {
	now := float64(time.Now().UnixMicro()) * 1e-6
	if now < c.last {
		return c.last
	}
	c.last = now
	return now
}

// ManualClock only moves when Advance is called. Useful for deterministic
// tests and replaying recorded event streams.
type ManualClock struct {
	now float64
}

// Now returns the current manual time.
func (c *ManualClock) Now() float64 {
	return c.now
}

// Advance moves the clock forward by d seconds. Negative values are ignored.
func (c *ManualClock) Advance(d float64) {
	if d > 0 {
		c.now += d
	}
}

// ClockByName returns the clock for a configuration name: "monotonic" (the
// default, also used for "") or "wall".
func ClockByName(name string) (Clock, bool) {
	switch name {
	case "", "monotonic":
		return NewMonotonicClock(), true
	case "wall":
		return &WallClock{}, true
	default:
		return nil, false
	}
}
