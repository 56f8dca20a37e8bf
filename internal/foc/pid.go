package foc

// PID is the SimpleFOC discrete PID controller:
//
//	u(s) = (P + I/s + D*s) e(s)
//
// The integral term uses the Tustin (trapezoidal) rule
//
//	u_i(k) = u_i(k-1) + I*dt/2*(e(k) + e(k-1))
//
// and is clamped to [-limit, limit] as anti-windup. The summed output is
// clamped to the same band and, when a ramp is set, slewed by at most
// ramp*dt per call. A limit or ramp of 0 disables that stage.
//
// Not safe for concurrent use.
type PID struct {
	p, i, d    float64
	outputRamp float64
	limit      float64

	integralPrev float64
	errorPrev    float64
	outputPrev   float64

	clock         Clock
	timestampPrev uint64
}

func NewPID(p, i, d, ramp, limit float64, opts ...Option) *PID {
	o := applyOptions(opts)
	return &PID{
		p:             p,
		i:             i,
		d:             d,
		outputRamp:    ramp,
		limit:         limit,
		clock:         o.clock,
		timestampPrev: o.clock.Micros(),
	}
}

// Calculate runs one step with a caller-supplied dt in seconds. A dt <= 0
// returns the previous output and leaves the state untouched.
func (c *PID) Calculate(setpoint, measured, dt float64) float64 {
	if dt <= 0 {
		return c.outputPrev
	}
	return c.update(setpoint-measured, dt)
}

// Step runs one step on an error value, timing itself from the clock.
func (c *PID) Step(err float64) float64 {
	now := c.clock.Micros()
	dt := sanitizeStep(elapsedSeconds(now, c.timestampPrev))
	c.timestampPrev = now
	return c.update(err, dt)
}

func (c *PID) update(err, dt float64) float64 {
	proportional := c.p * err

	integral := c.integralPrev + c.i*dt*0.5*(err+c.errorPrev)
	integral = constrain(integral, c.limit)

	derivative := c.d * (err - c.errorPrev) / dt

	output := constrain(proportional+integral+derivative, c.limit)

	if c.outputRamp > 0 {
		rate := (output - c.outputPrev) / dt
		if rate > c.outputRamp {
			output = c.outputPrev + c.outputRamp*dt
		} else if rate < -c.outputRamp {
			output = c.outputPrev - c.outputRamp*dt
		}
	}

	c.integralPrev = integral
	c.outputPrev = output
	c.errorPrev = err
	return output
}

// Reset clears the integral, derivative and output history.
func (c *PID) Reset() {
	c.integralPrev = 0
	c.errorPrev = 0
	c.outputPrev = 0
	c.timestampPrev = c.clock.Micros()
}

func (c *PID) P() float64          { return c.p }
func (c *PID) I() float64          { return c.i }
func (c *PID) D() float64          { return c.d }
func (c *PID) OutputRamp() float64 { return c.outputRamp }
func (c *PID) Limit() float64      { return c.limit }

func (c *PID) SetP(v float64)          { c.p = v }
func (c *PID) SetI(v float64)          { c.i = v }
func (c *PID) SetD(v float64)          { c.d = v }
func (c *PID) SetOutputRamp(v float64) { c.outputRamp = v }

// SetLimit changes the output band and pulls the stored integral into it.
func (c *PID) SetLimit(v float64) {
	c.limit = v
	c.integralPrev = constrain(c.integralPrev, v)
}

// Integral returns the accumulated integral term.
func (c *PID) Integral() float64 { return c.integralPrev }

// Output returns the last computed output.
func (c *PID) Output() float64 { return c.outputPrev }

// GetParams returns tunable parameters for live adjustment.
func (c *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"P":     c.p,
		"I":     c.i,
		"D":     c.d,
		"ramp":  c.outputRamp,
		"limit": c.limit,
	}
}

// SetParam adjusts a PID parameter by name.
func (c *PID) SetParam(name string, value float64) error {
	switch name {
	case "P":
		c.SetP(value)
	case "I":
		c.SetI(value)
	case "D":
		c.SetD(value)
	case "ramp":
		c.SetOutputRamp(value)
	case "limit":
		c.SetLimit(value)
	default:
		return ErrUnknownParam
	}
	return nil
}

func constrain(v, limit float64) float64 {
	if limit <= 0 {
		return v
	}
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
