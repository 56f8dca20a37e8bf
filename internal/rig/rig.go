package rig

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/focsim/internal/config"
	"github.com/san-kum/focsim/internal/foc"
)

type Rig struct {
	cfg   *config.Config
	motor *Motor
	integ *RK4

	clock   *foc.ManualClock
	tick    time.Duration
	counter *foc.Counter

	pid   *foc.PID
	lpf   *foc.LowPass
	enc   *foc.Encoder
	speed *foc.SpeedCalculator

	metrics []Metric

	x             State
	u             float64
	last          Sample
	step          int
	target        float64
	targetSet     bool
	speedStamp    uint64
	anglePerCount float64
}

// New builds a rig from cfg. The config is copied; later changes to cfg do
// not reach the rig.
func New(cfg *config.Config) (*Rig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()

	tick := time.Duration(math.Round(cfg.Dt*1e6)) * time.Microsecond
	if tick <= 0 {
		return nil, fmt.Errorf("dt %g is below the 1us clock resolution", cfg.Dt)
	}

	clock := foc.NewManualClock(0)
	counter := foc.NewCounter(0)

	enc, err := foc.NewEncoder(counter, cfg.CPR, foc.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("encoder: %w", err)
	}
	speed, err := foc.NewSpeedCalculator(cfg.CPR, cfg.Speed.MinDt)
	if err != nil {
		return nil, fmt.Errorf("speed calculator: %w", err)
	}

	motor := NewMotor(cfg.Motor)
	r := &Rig{
		cfg:           cfg,
		motor:         motor,
		integ:         NewRK4(),
		clock:         clock,
		tick:          tick,
		counter:       counter,
		pid:           foc.NewPID(cfg.PID.P, cfg.PID.I, cfg.PID.D, cfg.PID.Ramp, cfg.PID.Limit, foc.WithClock(clock)),
		lpf:           foc.NewLowPass(cfg.Filter.Tf, foc.WithClock(clock)),
		enc:           enc,
		speed:         speed,
		metrics:       DefaultMetrics(),
		x:             make(State, StateDim),
		anglePerCount: 2 * math.Pi / float64(cfg.CPR),
	}
	r.speed.Calculate(counter.Position(), 0)
	return r, nil
}

func (r *Rig) AddMetric(m Metric) { r.metrics = append(r.metrics, m) }

// Step runs one control cycle: the motor is integrated over dt under the
// previous output, then the primitives see the new count.
func (r *Rig) Step() (Sample, error) {
	dt := r.cfg.Dt
	t0 := float64(r.step) * dt

	substeps := r.cfg.Motor.Substeps
	h := dt / float64(substeps)
	for i := 0; i < substeps; i++ {
		r.integ.Step(r.motor, r.x, r.u, t0+float64(i)*h, h)
	}

	r.step++
	now := float64(r.step) * dt
	r.clock.Advance(r.tick)

	if !r.x.IsValid() {
		return Sample{}, &StepError{Step: r.step, Time: now, Wrapped: ErrInvalidState}
	}
	// The bound follows live limit and load changes.
	if math.Abs(r.x[IdxVelocity]) > r.motor.MaxVelocity(r.pid.Limit()) {
		return Sample{}, &StepError{Step: r.step, Time: now, Wrapped: ErrUnstable}
	}

	r.counter.SetPosition(r.countsFor(r.x[IdxAngle]))
	r.enc.Update()
	estimated := r.enc.Velocity()

	target := r.Target()
	var filtered, out float64
	if r.cfg.Timing == config.TimingInternal {
		filtered = r.lpf.Step(estimated)
		out = r.pid.Step(target - filtered)
	} else {
		filtered = r.lpf.Filter(estimated, dt)
		out = r.pid.Calculate(target, filtered, dt)
	}
	r.u = out

	finite := r.finiteVelocity()

	s := Sample{
		Time:      now,
		Setpoint:  target,
		Angle:     r.x[IdxAngle],
		Velocity:  r.x[IdxVelocity],
		Estimated: estimated,
		Filtered:  filtered,
		Finite:    finite,
		Output:    out,
	}
	for _, m := range r.metrics {
		m.Observe(s)
	}
	r.last = s
	return s, nil
}

// Run resets the metrics and steps through the configured duration. On
// failure the partial result is returned with the error.
func (r *Rig) Run(ctx context.Context) (*Result, error) {
	steps := r.cfg.Steps()
	result := &Result{
		Samples: make([]Sample, 0, steps),
		Metrics: make(map[string]float64),
	}

	for _, m := range r.metrics {
		m.Reset()
	}

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			r.collect(result)
			return result, ctx.Err()
		default:
		}

		s, err := r.Step()
		if err != nil {
			r.collect(result)
			return result, err
		}
		result.Samples = append(result.Samples, s)
		result.StepsTaken++
	}

	r.collect(result)
	return result, nil
}

func (r *Rig) collect(result *Result) {
	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

// Metrics returns the current value of every metric.
func (r *Rig) Metrics() map[string]float64 {
	out := make(map[string]float64, len(r.metrics))
	for _, m := range r.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// Reset puts the motor at rest at angle 0 and clears every primitive.
func (r *Rig) Reset() {
	for i := range r.x {
		r.x[i] = 0
	}
	r.u = 0
	r.last = Sample{}
	r.step = 0
	r.targetSet = false
	r.clock.Set(0)
	r.counter.SetPosition(0)
	r.pid.Reset()
	r.lpf.Reset()
	r.enc.Reset()
	r.speed.Reset()
	r.speed.Calculate(0, 0)
	r.speedStamp = 0
	for _, m := range r.metrics {
		m.Reset()
	}
}

// finiteVelocity feeds the SpeedCalculator the time since its last accepted
// sample and converts rev/s to rad/s.
func (r *Rig) finiteVelocity() float64 {
	now := r.clock.Micros()
	elapsed := float64(now-r.speedStamp) * 1e-6
	rps := r.speed.Calculate(r.counter.Position(), elapsed)
	if elapsed >= r.speed.MinDt() {
		r.speedStamp = now
	}
	return rps * 2 * math.Pi
}

// countsFor quantizes a shaft angle like a quadrature counter register,
// wrapping on int32 overflow.
func (r *Rig) countsFor(angle float64) int32 {
	return int32(int64(math.Floor(angle / r.anglePerCount)))
}

// Target is the manual target if one was set, else the scheduled one.
func (r *Rig) Target() float64 {
	if r.targetSet {
		return r.target
	}
	return r.cfg.Target(r.Time())
}

// SetTarget overrides the setpoint schedule until Reset.
func (r *Rig) SetTarget(v float64) {
	r.target = v
	r.targetSet = true
}

func (r *Rig) SetLoad(torque float64) { r.motor.Load = torque }

func (r *Rig) Load() float64 { return r.motor.Load }

// Time is the simulated time in seconds.
func (r *Rig) Time() float64 { return float64(r.step) * r.cfg.Dt }

func (r *Rig) State() State { return r.x.Clone() }

// Last is the most recent sample, zero before the first Step.
func (r *Rig) Last() Sample { return r.last }

// EncoderView reads the encoder without querying its velocity estimator,
// so inspecting it does not shift the loop's sampling instants.
func (r *Rig) EncoderView() EncoderView { return EncoderView{r: r} }

type EncoderView struct{ r *Rig }

func (v EncoderView) Angle() float64    { return v.r.enc.Angle() }
func (v EncoderView) Position() int32   { return v.r.enc.Position() }
func (v EncoderView) Velocity() float64 { return v.r.last.Estimated }

func (r *Rig) Config() *config.Config { return r.cfg }

func (r *Rig) Clock() foc.Clock { return r.clock }

func (r *Rig) PID() *foc.PID { return r.pid }

func (r *Rig) Filter() *foc.LowPass { return r.lpf }

func (r *Rig) Encoder() *foc.Encoder { return r.enc }

func (r *Rig) Speed() *foc.SpeedCalculator { return r.speed }
