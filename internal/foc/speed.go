package foc

// DefaultMinDt is the default SpeedCalculator sampling floor in seconds.
const DefaultMinDt = 0.001

// SpeedCalculator is a finite-difference velocity estimator in rev/s.
// Samples closer together than minDt are ignored, since differencing over
// a tiny interval mostly amplifies quantization noise.
type SpeedCalculator struct {
	ppr   int32
	minDt float64

	positionPrev int32
	velocityPrev float64
	initialized  bool
}

// NewSpeedCalculator creates a calculator for ppr pulses per revolution. A
// negative minDt selects DefaultMinDt.
func NewSpeedCalculator(ppr int32, minDt float64) (*SpeedCalculator, error) {
	if ppr <= 0 {
		return nil, ErrInvalidResolution
	}
	if minDt < 0 {
		minDt = DefaultMinDt
	}
	return &SpeedCalculator{ppr: ppr, minDt: minDt}, nil
}

// Calculate returns the velocity in rev/s given the current position and
// the seconds elapsed since the previous accepted call.
func (s *SpeedCalculator) Calculate(position int32, dt float64) float64 {
	if !s.initialized {
		s.positionPrev = position
		s.initialized = true
		return 0
	}
	if dt < s.minDt || dt <= 0 {
		return s.velocityPrev
	}

	revolutions := float64(position-s.positionPrev) / float64(s.ppr)
	velocity := revolutions / dt

	s.positionPrev = position
	s.velocityPrev = velocity
	return velocity
}

// Velocity returns the last computed velocity in rev/s.
func (s *SpeedCalculator) Velocity() float64 { return s.velocityPrev }

func (s *SpeedCalculator) PulsesPerRevolution() int32 { return s.ppr }

func (s *SpeedCalculator) MinDt() float64 { return s.minDt }

// Reset forgets the previous sample; the next call only records position.
func (s *SpeedCalculator) Reset() {
	s.positionPrev = 0
	s.velocityPrev = 0
	s.initialized = false
}
