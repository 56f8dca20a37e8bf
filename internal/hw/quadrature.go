// Package hw provides hardware position sources for the foc encoder.
package hw

import (
	"sync/atomic"
	"time"
)

// transitions maps prev<<2|cur of the 2-bit A/B state to a count delta.
// Forward rotation walks 00 -> 01 -> 11 -> 10. Double steps cannot be
// decoded and map to 0.
var transitions = [16]int8{
	0, +1, -1, 0,
	-1, 0, 0, +1,
	+1, 0, 0, -1,
	0, -1, +1, 0,
}

// Decoder is a x4 quadrature decoder. Edge must be called from a single
// goroutine; Position and SetPosition may be called from any.
type Decoder struct {
	count  atomic.Int32
	errors atomic.Uint64
	state  atomic.Uint32
	seeded atomic.Bool
}

// NewDecoder returns a decoder seeded with both lines low.
func NewDecoder() *Decoder {
	d := &Decoder{}
	d.seeded.Store(true)
	return d
}

// newUnseededDecoder drops edges until Seed, for sources whose events start
// before the initial levels can be read.
func newUnseededDecoder() *Decoder {
	return &Decoder{}
}

// Seed sets the current A and B levels without counting.
func (d *Decoder) Seed(a, b int) {
	d.state.Store(levels(a, b))
	d.seeded.Store(true)
}

// Edge records a new level on line 0 (A) or 1 (B). Edges before Seed are
// dropped; the seeded levels already include them.
func (d *Decoder) Edge(line, level int) {
	if !d.seeded.Load() {
		return
	}
	prev := d.state.Load()
	bit := uint32(2)
	if line == 1 {
		bit = 1
	}
	cur := prev &^ bit
	if level != 0 {
		cur |= bit
	}
	if cur == prev {
		// Two edges of the same polarity: the opposite one was missed.
		d.errors.Add(1)
		return
	}
	d.state.Store(cur)
	d.count.Add(int32(transitions[prev<<2|cur]))
}

func (d *Decoder) Position() int32 { return d.count.Load() }

func (d *Decoder) SetPosition(count int32) { d.count.Store(count) }

// Errors is the number of edges that repeated the current level, each a
// sign of a missed edge in between.
func (d *Decoder) Errors() uint64 { return d.errors.Load() }

func levels(a, b int) uint32 {
	var s uint32
	if a != 0 {
		s |= 2
	}
	if b != 0 {
		s |= 1
	}
	return s
}

// Config selects the two GPIO lines of a quadrature encoder.
type Config struct {
	Chip     string
	LineA    int
	LineB    int
	PullUp   bool
	Debounce time.Duration
}
