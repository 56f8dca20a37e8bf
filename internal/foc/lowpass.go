package foc

// LowPass is a first-order low-pass filter:
//
//	y(k) = y(k-1) + dt/(Tf+dt) * (x(k) - y(k-1))
//
// A time constant <= 0 turns the filter into a pass-through.
type LowPass struct {
	tf    float64
	yPrev float64

	clock         Clock
	timestampPrev uint64
}

func NewLowPass(tf float64, opts ...Option) *LowPass {
	o := applyOptions(opts)
	return &LowPass{
		tf:            tf,
		clock:         o.clock,
		timestampPrev: o.clock.Micros(),
	}
}

// Filter smooths x over a caller-supplied dt in seconds. A dt <= 0 returns
// the previous output unchanged.
func (f *LowPass) Filter(x, dt float64) float64 {
	if f.tf <= 0 {
		return x
	}
	if dt <= 0 {
		return f.yPrev
	}
	return f.apply(x, dt)
}

// Step smooths x, timing itself from the clock. After a gap longer than
// FilterStaleAfter the filter restarts from x.
func (f *LowPass) Step(x float64) float64 {
	now := f.clock.Micros()
	dt := elapsedSeconds(now, f.timestampPrev)
	f.timestampPrev = now

	if f.tf <= 0 {
		return x
	}
	if dt < 0 {
		dt = DefaultStep
	} else if dt > FilterStaleAfter {
		f.yPrev = x
		return x
	}
	return f.apply(x, dt)
}

func (f *LowPass) apply(x, dt float64) float64 {
	alpha := dt / (f.tf + dt)
	y := f.yPrev + alpha*(x-f.yPrev)
	f.yPrev = y
	return y
}

// Reset zeroes the output history and resyncs the clock.
func (f *LowPass) Reset() {
	f.yPrev = 0
	f.timestampPrev = f.clock.Micros()
}

// Output returns the last filtered value.
func (f *LowPass) Output() float64 { return f.yPrev }

func (f *LowPass) TimeConstant() float64 { return f.tf }

func (f *LowPass) SetTimeConstant(tf float64) { f.tf = tf }

func (f *LowPass) GetParams() map[string]float64 {
	return map[string]float64{"Tf": f.tf}
}

func (f *LowPass) SetParam(name string, value float64) error {
	if name != "Tf" {
		return ErrUnknownParam
	}
	f.tf = value
	return nil
}
