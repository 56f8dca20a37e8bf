package rig

import "math"

// State is the motor state vector: shaft angle, shaft velocity, winding current.
type State []float64

const (
	IdxAngle = iota
	IdxVelocity
	IdxCurrent
	StateDim
)

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// System is a continuous-time plant driven by a scalar input. DeriveInto
// writes dx/dt at x into dst, which has the length of x.
type System interface {
	DeriveInto(dst, x State, u float64, t float64)
}

// Sample is one control cycle as seen by the loop. Angle and Velocity are
// the true motor values; Estimated, Filtered and Finite are what the
// primitives reported.
type Sample struct {
	Time      float64 `json:"time"`
	Setpoint  float64 `json:"setpoint"`
	Angle     float64 `json:"angle"`
	Velocity  float64 `json:"velocity"`
	Estimated float64 `json:"estimated"`
	Filtered  float64 `json:"filtered"`
	Finite    float64 `json:"finite"`
	Output    float64 `json:"output"`
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Result struct {
	Samples    []Sample
	Metrics    map[string]float64
	StepsTaken int
}
