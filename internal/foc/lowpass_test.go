package foc_test

import (
	"math"
	"math/rand"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/focsim/internal/foc"
)

var _ = Describe("LowPass", func() {
	var clock *foc.ManualClock

	BeforeEach(func() {
		clock = foc.NewManualClock(0)
	})

	It("applies dt/(Tf+dt) smoothing", func() {
		lpf := foc.NewLowPass(0.1, foc.WithClock(clock))
		Expect(lpf.Filter(1, 0.1)).To(BeNumerically("~", 0.5, 1e-12))
		Expect(lpf.Filter(1, 0.1)).To(BeNumerically("~", 0.75, 1e-12))
	})

	DescribeTable("passes the input through when Tf <= 0",
		func(tf float64) {
			lpf := foc.NewLowPass(tf, foc.WithClock(clock))
			for _, x := range []float64{0, 1, -3.5, 1e9, math.SmallestNonzeroFloat64} {
				Expect(lpf.Filter(x, 0.01)).To(Equal(x))
				Expect(lpf.Filter(x, 0)).To(Equal(x))
				clock.Advance(time.Millisecond)
				Expect(lpf.Step(x)).To(Equal(x))
			}
			Expect(lpf.Output()).To(BeZero())
		},
		Entry("zero", 0.0),
		Entry("negative", -0.2),
	)

	It("returns the previous output for non-positive dt", func() {
		lpf := foc.NewLowPass(0.05, foc.WithClock(clock))
		y := lpf.Filter(5, 0.01)
		Expect(lpf.Filter(100, 0)).To(Equal(y))
		Expect(lpf.Filter(-100, -0.5)).To(Equal(y))
	})

	It("keeps every output between the input and the previous output", func() {
		lpf := foc.NewLowPass(0.02, foc.WithClock(clock))
		rng := rand.New(rand.NewSource(11))
		prev := lpf.Output()
		for i := 0; i < 5000; i++ {
			x := rng.Float64()*2000 - 1000
			y := lpf.Filter(x, 1e-4+rng.Float64()*0.05)
			lo, hi := math.Min(x, prev), math.Max(x, prev)
			Expect(y).To(BeNumerically(">=", lo-1e-9))
			Expect(y).To(BeNumerically("<=", hi+1e-9))
			prev = y
		}
	})

	Context("self-timed", func() {
		It("times itself from the clock", func() {
			lpf := foc.NewLowPass(0.01, foc.WithClock(clock))
			clock.Advance(10 * time.Millisecond)
			Expect(lpf.Step(2)).To(BeNumerically("~", 1, 1e-12))
		})

		It("restarts from the input after a stale gap", func() {
			lpf := foc.NewLowPass(1, foc.WithClock(clock))
			clock.Advance(10 * time.Millisecond)
			lpf.Step(1)
			clock.Advance(301 * time.Millisecond)
			Expect(lpf.Step(7.25)).To(Equal(7.25))
			Expect(lpf.Output()).To(Equal(7.25))
		})

		It("restarts on the first call after a long idle construction", func() {
			lpf := foc.NewLowPass(1, foc.WithClock(clock))
			clock.Advance(time.Second)
			Expect(lpf.Step(-3)).To(Equal(-3.0))
		})

		It("uses the default step when the clock goes backwards", func() {
			lpf := foc.NewLowPass(0.001, foc.WithClock(clock))
			clock.Set(5000)
			lpf.Step(0)
			clock.Set(1000)
			Expect(lpf.Step(1)).To(BeNumerically("~", 0.5, 1e-12))
		})
	})

	It("resets to zero", func() {
		lpf := foc.NewLowPass(0.1, foc.WithClock(clock))
		lpf.Filter(10, 0.1)
		lpf.Reset()
		Expect(lpf.Output()).To(BeZero())
		Expect(lpf.Filter(2, 0.1)).To(BeNumerically("~", 1, 1e-12))
	})

	It("exposes the time constant as a parameter", func() {
		lpf := foc.NewLowPass(0.1, foc.WithClock(clock))
		Expect(lpf.SetParam("Tf", 0.3)).To(Succeed())
		Expect(lpf.TimeConstant()).To(Equal(0.3))
		Expect(lpf.GetParams()).To(HaveKeyWithValue("Tf", 0.3))
		Expect(lpf.SetParam("P", 1)).To(MatchError(foc.ErrUnknownParam))
	})
})
