package commander

import (
	"io"
	"strconv"
)

// Loop is a running control loop the commander can steer.
type Loop interface {
	Target() float64
	SetTarget(v float64)
	SetLoad(torque float64)
	Load() float64
	Reset()
}

// ForLoop returns a commander whose target is loop's target. It also
// registers M (load torque, N·m) and Z (reset the loop and hold 0).
func ForLoop(w io.Writer, loop Loop, opts ...Option) *Commander {
	opts = append(opts, OnTarget(loop.SetTarget), WithTargetSource(loop.Target))
	c := New(w, opts...)

	_ = c.Add("M", func(value string) error {
		if value == "" {
			c.printf("Load: %s N*m\n", c.num(loop.Load()))
			return nil
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		loop.SetLoad(v)
		if c.verbose {
			c.printf("Load: %s N*m\n", c.num(v))
		}
		return nil
	}, "Load torque")

	_ = c.Add("Z", func(string) error {
		loop.Reset()
		loop.SetTarget(0)
		c.target = 0
		if c.verbose {
			c.printf("Loop reset\n")
		}
		return nil
	}, "Reset loop")

	return c
}
