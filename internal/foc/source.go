package foc

import "sync/atomic"

// PositionSource exposes a raw incremental count, such as a quadrature
// decoder register.
type PositionSource interface {
	Position() int32
}

// PositionWriter is a PositionSource whose count can be overwritten.
// Encoder.SetAngle requires it.
type PositionWriter interface {
	PositionSource
	SetPosition(count int32)
}

// Counter is an in-memory PositionWriter. It may be advanced from a
// different goroutine than the one reading it.
type Counter struct {
	v atomic.Int32
}

func NewCounter(start int32) *Counter {
	c := &Counter{}
	c.v.Store(start)
	return c
}

func (c *Counter) Position() int32 { return c.v.Load() }

func (c *Counter) SetPosition(count int32) { c.v.Store(count) }

// Add moves the count by delta and returns the new count.
func (c *Counter) Add(delta int32) int32 { return c.v.Add(delta) }
