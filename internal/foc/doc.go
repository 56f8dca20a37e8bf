// Package foc provides the SimpleFOC real-time control primitives.
//
// Three independent components are meant to be driven from a periodic
// motor control loop:
//
//   - [PID]: discrete PID with integral clamping and output slew limiting
//   - [LowPass]: first-order exponential smoothing
//   - [Encoder]: count to angle conversion and mixed time/frequency velocity
//   - [SpeedCalculator]: plain finite-difference velocity
//
// Every component offers an explicit-dt entry point and, where it applies,
// a self-timed one that reads a [Clock]. The clock is injected with
// [WithClock]; by default the process monotonic clock is used.
//
// # Usage
//
//	enc, _ := foc.NewEncoder(counter, 2048)
//	lpf := foc.NewLowPass(0.01)
//	pid := foc.NewPID(2.0, 0.5, 0.0, 100.0, 12.0)
//
//	for range ticker.C {
//		enc.Update()
//		v := lpf.Step(enc.Velocity())
//		u := pid.Step(target - v)
//		// apply u
//	}
//
// # Thread Safety
//
// Components are NOT safe for concurrent use. The loop that owns an
// instance must serialize access to it. [Counter] is the exception: it is
// updated from interrupt-like contexts and uses atomics.
package foc
