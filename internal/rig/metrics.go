package rig

import "math"

// TrackingError is the RMS error between target and true shaft velocity.
type TrackingError struct {
	sum     float64
	samples int
}

func NewTrackingError() *TrackingError { return &TrackingError{} }

func (m *TrackingError) Name() string { return "tracking_rmse" }

func (m *TrackingError) Observe(s Sample) {
	e := s.Setpoint - s.Velocity
	m.sum += e * e
	m.samples++
}

func (m *TrackingError) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return math.Sqrt(m.sum / float64(m.samples))
}

func (m *TrackingError) Reset() {
	m.sum = 0
	m.samples = 0
}

// EstimatorError is the RMS error of the encoder velocity estimate.
type EstimatorError struct {
	sum     float64
	samples int
}

func NewEstimatorError() *EstimatorError { return &EstimatorError{} }

func (m *EstimatorError) Name() string { return "estimator_rmse" }

func (m *EstimatorError) Observe(s Sample) {
	e := s.Estimated - s.Velocity
	m.sum += e * e
	m.samples++
}

func (m *EstimatorError) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return math.Sqrt(m.sum / float64(m.samples))
}

func (m *EstimatorError) Reset() {
	m.sum = 0
	m.samples = 0
}

// ControlEffort is the mean absolute controller output.
type ControlEffort struct {
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort { return &ControlEffort{} }

func (c *ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(s Sample) {
	c.sum += math.Abs(s.Output)
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// Overshoot is the largest excursion past a nonzero target, as a fraction
// of that target.
type Overshoot struct {
	peak float64
}

func NewOvershoot() *Overshoot { return &Overshoot{} }

func (o *Overshoot) Name() string { return "overshoot" }

func (o *Overshoot) Observe(s Sample) {
	if s.Setpoint == 0 {
		return
	}
	excess := (s.Velocity - s.Setpoint) / s.Setpoint
	if excess > o.peak {
		o.peak = excess
	}
}

func (o *Overshoot) Value() float64 { return o.peak }

func (o *Overshoot) Reset() { o.peak = 0 }

// DefaultMetrics is the metric set every run records.
func DefaultMetrics() []Metric {
	return []Metric{
		NewTrackingError(),
		NewEstimatorError(),
		NewControlEffort(),
		NewOvershoot(),
	}
}
