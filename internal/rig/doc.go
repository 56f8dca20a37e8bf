// Package rig closes a velocity loop around the foc primitives.
//
// A Rig owns a simulated brushed DC motor, an in-memory encoder counter and a
// manual clock. Every cycle it advances the clock, integrates the motor with
// RK4, quantizes the shaft angle into counts, and then runs the primitives the
// way a motor control loop on real hardware would:
//
//	enc.Update()
//	v := lpf.Filter(enc.Velocity(), dt)
//	u := pid.Calculate(target, v, dt)
//
// The PID output is the motor terminal voltage for the next cycle.
package rig
