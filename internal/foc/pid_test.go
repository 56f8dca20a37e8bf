package foc_test

import (
	"math"
	"math/rand"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/focsim/internal/foc"
)

var _ = Describe("PID", func() {
	var clock *foc.ManualClock

	BeforeEach(func() {
		clock = foc.NewManualClock(1_000_000)
	})

	It("is purely proportional with I and D at zero", func() {
		pid := foc.NewPID(1, 0, 0, 0, 0, foc.WithClock(clock))
		for _, m := range []float64{-4, 12, 0.5, 99} {
			pid.Calculate(20, m, 0.01)
		}
		Expect(pid.Calculate(10, 3, 0.01)).To(Equal(7.0))
		Expect(pid.Calculate(10, 3, 0.37)).To(Equal(7.0))
	})

	It("integrates with the trapezoidal rule", func() {
		pid := foc.NewPID(0, 2, 0, 0, 0, foc.WithClock(clock))
		Expect(pid.Calculate(1, 0, 0.1)).To(BeNumerically("~", 0.1, 1e-12))
		Expect(pid.Calculate(3, 0, 0.1)).To(BeNumerically("~", 0.1+0.4, 1e-12))
	})

	It("differentiates the error", func() {
		pid := foc.NewPID(0, 0, 0.5, 0, 0, foc.WithClock(clock))
		pid.Calculate(1, 0, 0.01)
		Expect(pid.Calculate(2, 0, 0.01)).To(BeNumerically("~", 0.5*(2-1)/0.01, 1e-9))
	})

	It("never lets the integral or output leave the limit band", func() {
		pid := foc.NewPID(1, 100, 0, 0, 5, foc.WithClock(clock))
		for i := 0; i < 10000; i++ {
			out := pid.Calculate(100, 0, 0.01)
			Expect(pid.Integral()).To(BeNumerically("<=", 5))
			Expect(out).To(BeNumerically("<=", 5))
		}
		for i := 0; i < 10000; i++ {
			out := pid.Calculate(-100, 0, 0.01)
			Expect(pid.Integral()).To(BeNumerically(">=", -5))
			Expect(out).To(BeNumerically(">=", -5))
		}
	})

	It("treats a zero limit as unlimited", func() {
		pid := foc.NewPID(1, 0, 0, 0, 0, foc.WithClock(clock))
		Expect(pid.Calculate(1000, 0, 0.01)).To(Equal(1000.0))
	})

	It("bounds the output slew rate by the ramp", func() {
		const ramp = 50.0
		pid := foc.NewPID(3, 1, 0.01, ramp, 0, foc.WithClock(clock))
		rng := rand.New(rand.NewSource(7))
		prev := pid.Output()
		for i := 0; i < 5000; i++ {
			dt := 0.001 + rng.Float64()*0.009
			out := pid.Calculate(rng.Float64()*200-100, rng.Float64()*20-10, dt)
			Expect(math.Abs(out - prev)).To(BeNumerically("<=", ramp*dt+1e-9))
			prev = out
		}
	})

	It("ignores non-positive dt without touching state", func() {
		pid := foc.NewPID(1, 1, 1, 0, 0, foc.WithClock(clock))
		out := pid.Calculate(4, 1, 0.01)
		integral := pid.Integral()

		Expect(pid.Calculate(50, 0, 0)).To(Equal(out))
		Expect(pid.Calculate(50, 0, -1)).To(Equal(out))
		Expect(pid.Integral()).To(Equal(integral))
		Expect(pid.Calculate(4, 1, 0.01)).To(BeNumerically("~", 3+integral+3*0.01, 1e-9))
	})

	Context("self-timed", func() {
		It("derives dt from the clock", func() {
			pid := foc.NewPID(0, 1, 0, 0, 0, foc.WithClock(clock))
			clock.Advance(10 * time.Millisecond)
			Expect(pid.Step(1)).To(BeNumerically("~", 0.005, 1e-12))
		})

		It("substitutes 1ms for implausible intervals", func() {
			pid := foc.NewPID(0, 1, 0, 0, 0, foc.WithClock(clock))
			clock.Advance(10 * time.Millisecond)
			pid.Step(1)

			clock.Advance(2 * time.Second)
			Expect(pid.Step(1)).To(BeNumerically("~", 0.006, 1e-12))

			Expect(pid.Step(1)).To(BeNumerically("~", 0.007, 1e-12))

			clock.Set(0)
			Expect(pid.Step(1)).To(BeNumerically("~", 0.008, 1e-12))
		})

		It("falls back to the default step on the first call after a gap", func() {
			pid := foc.NewPID(0, 0, 1, 0, 0, foc.WithClock(clock))
			clock.Advance(time.Hour)
			Expect(pid.Step(0.001)).To(BeNumerically("~", 1, 1e-9))
		})
	})

	It("resets the control state", func() {
		pid := foc.NewPID(1, 1, 1, 0, 0, foc.WithClock(clock))
		pid.Calculate(10, 0, 0.1)
		pid.Reset()
		Expect(pid.Integral()).To(BeZero())
		Expect(pid.Output()).To(BeZero())
		Expect(pid.Calculate(0, 0, 0.1)).To(BeZero())
	})

	It("exposes tunable parameters", func() {
		pid := foc.NewPID(1, 2, 3, 4, 5, foc.WithClock(clock))
		Expect(pid.GetParams()).To(Equal(map[string]float64{
			"P": 1, "I": 2, "D": 3, "ramp": 4, "limit": 5,
		}))
		Expect(pid.SetParam("D", 0.25)).To(Succeed())
		Expect(pid.D()).To(Equal(0.25))
		Expect(pid.SetParam("Kx", 1)).To(MatchError(foc.ErrUnknownParam))
	})

	It("pulls the integral into a tightened limit", func() {
		pid := foc.NewPID(0, 10, 0, 0, 100, foc.WithClock(clock))
		for i := 0; i < 100; i++ {
			pid.Calculate(10, 0, 0.1)
		}
		Expect(pid.Integral()).To(Equal(100.0))
		pid.SetLimit(2)
		Expect(pid.Integral()).To(Equal(2.0))
	})
})
