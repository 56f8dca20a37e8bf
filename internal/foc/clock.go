package foc

import "time"

// Clock is a monotonic microsecond time source. Values must not decrease
// except on wraparound, which the self-timed paths absorb through the
// clock-glitch guard.
type Clock interface {
	Micros() uint64
}

// Timing guards shared by the self-timed paths, in seconds.
const (
	// MaxPlausibleStep is the largest believable interval between two calls.
	MaxPlausibleStep = 0.5
	// DefaultStep replaces implausible intervals.
	DefaultStep = 1e-3
	// FilterStaleAfter is the gap after which the filter restarts from its input.
	FilterStaleAfter = 0.3
	// VelocityTimeout is the time without a count change after which velocity is zero.
	VelocityTimeout = 0.1
)

var epoch = time.Now()

func sinceEpochMicros() uint64 {
	return uint64(time.Since(epoch) / time.Microsecond)
}

// MonotonicClock returns the process monotonic clock.
func MonotonicClock() Clock {
	return monotonicClock{}
}

// ManualClock is a clock that only moves when told to. The rig and the
// tests use it to make every run reproducible.
type ManualClock struct {
	us uint64
}

func NewManualClock(startMicros uint64) *ManualClock {
	return &ManualClock{us: startMicros}
}

func (c *ManualClock) Micros() uint64 { return c.us }

// Advance moves the clock forward by d, truncated to whole microseconds.
func (c *ManualClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.us += uint64(d / time.Microsecond)
}

// Set jumps the clock to an absolute value, backwards included.
func (c *ManualClock) Set(us uint64) { c.us = us }

// elapsedSeconds is signed so that a backwards jump or a wrap shows up as a
// negative interval instead of a huge positive one.
func elapsedSeconds(now, prev uint64) float64 {
	return float64(int64(now-prev)) * 1e-6
}

// sanitizeStep is the SimpleFOC "quick fix for strange cases": overflow,
// first call, or a stalled caller.
func sanitizeStep(dt float64) float64 {
	if dt <= 0 || dt > MaxPlausibleStep {
		return DefaultStep
	}
	return dt
}
