package foc

import "math"

const twoPi = 2 * math.Pi

// Encoder turns a raw incremental count into shaft angle and velocity.
//
// Velocity uses SimpleFOC's mixed time/frequency estimate. Between two
// velocity queries the estimator divides the count change by the time
// between the pulse events that bound it, not by the polling interval:
//
//	dt = Ts + Th(k-1) - Th(k)
//
// where Ts is the polling interval and Th the time since the last count
// change. At low speed this is a period measurement, at high speed it
// degrades gracefully into a plain difference quotient.
//
// Update must be called often, ideally every loop iteration, so that pulse
// timestamps are accurate.
type Encoder struct {
	src   PositionSource
	clock Clock

	cpr           int32
	cprRecip      float64
	anglePerCount float64

	pulseCounter     int32
	prevPulseCounter int32
	pulseTimestamp   uint64
	prevTimestamp    uint64

	pulsesPerSecond float64
	prevTh          float64
}

// NewEncoder wraps src, which counts cpr counts per revolution.
func NewEncoder(src PositionSource, cpr int32, opts ...Option) (*Encoder, error) {
	if cpr <= 0 {
		return nil, ErrInvalidResolution
	}
	o := applyOptions(opts)
	e := &Encoder{
		src:           src,
		clock:         o.clock,
		cpr:           cpr,
		cprRecip:      1 / float64(cpr),
		anglePerCount: twoPi / float64(cpr),
	}
	e.resync(src.Position())
	return e, nil
}

// Update samples the source and timestamps a count change.
func (e *Encoder) Update() {
	pos := e.src.Position()
	if pos != e.pulseCounter {
		e.pulseTimestamp = e.clock.Micros()
		e.pulseCounter = pos
	}
}

// Angle returns the shaft angle in radians at the last Update.
func (e *Encoder) Angle() float64 {
	return float64(e.pulseCounter) * e.anglePerCount
}

// Position returns the count seen at the last Update.
func (e *Encoder) Position() int32 { return e.pulseCounter }

func (e *Encoder) CountsPerRevolution() int32 { return e.cpr }

// Velocity returns the shaft velocity in rad/s. It returns 0 once no count
// change has been seen for VelocityTimeout.
func (e *Encoder) Velocity() float64 {
	now := e.clock.Micros()

	ts := sanitizeStep(elapsedSeconds(now, e.prevTimestamp))
	th := elapsedSeconds(now, e.pulseTimestamp)
	dN := e.pulseCounter - e.prevPulseCounter

	dt := ts + e.prevTh - th
	if dN != 0 && dt > ts*0.5 {
		e.pulsesPerSecond = float64(dN) / dt
	}
	if th > VelocityTimeout {
		e.pulsesPerSecond = 0
	}

	e.prevTimestamp = now
	e.prevTh = th
	e.prevPulseCounter = e.pulseCounter

	return e.pulsesPerSecond * e.cprRecip * twoPi
}

// Reset drops the velocity history. The physical count is not touched.
func (e *Encoder) Reset() {
	e.resync(e.src.Position())
}

// SetAngle rewrites the source so that the shaft reads angle radians. All
// bookkeeping is resynced so the jump does not register as motion.
func (e *Encoder) SetAngle(angle float64) error {
	w, ok := e.src.(PositionWriter)
	if !ok {
		return ErrReadOnlySource
	}
	count := int32(angle / e.anglePerCount)
	w.SetPosition(count)
	e.resync(count)
	return nil
}

func (e *Encoder) resync(count int32) {
	now := e.clock.Micros()
	e.pulseCounter = count
	e.prevPulseCounter = count
	e.pulseTimestamp = now
	e.prevTimestamp = now
	e.pulsesPerSecond = 0
	e.prevTh = 0
}
