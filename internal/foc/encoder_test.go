package foc_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/focsim/internal/foc"
)

type fixedSource int32

func (s fixedSource) Position() int32 { return int32(s) }

var _ = Describe("Encoder", func() {
	const cpr = 2048

	var (
		clock   *foc.ManualClock
		counter *foc.Counter
		enc     *foc.Encoder
	)

	BeforeEach(func() {
		clock = foc.NewManualClock(0)
		counter = foc.NewCounter(0)
		var err error
		enc, err = foc.NewEncoder(counter, cpr, foc.WithClock(clock))
		Expect(err).NotTo(HaveOccurred())
	})

	// drive advances time in 100us ticks, moving the counter by step every
	// countEvery ticks and querying velocity every queryEvery ticks.
	drive := func(ticks, countEvery, queryEvery int, step int32) float64 {
		var v float64
		for i := 0; i < ticks; i++ {
			clock.Advance(100 * time.Microsecond)
			if countEvery > 0 && i%countEvery == 0 {
				counter.Add(step)
			}
			enc.Update()
			if i%queryEvery == queryEvery-1 {
				v = enc.Velocity()
			}
		}
		return v
	}

	It("rejects a non-positive resolution", func() {
		_, err := foc.NewEncoder(counter, 0)
		Expect(err).To(MatchError(foc.ErrInvalidResolution))
		_, err = foc.NewEncoder(counter, -4)
		Expect(err).To(MatchError(foc.ErrInvalidResolution))
	})

	It("converts counts to radians", func() {
		counter.SetPosition(cpr / 4)
		enc.Update()
		Expect(enc.Angle()).To(BeNumerically("~", math.Pi/2, 1e-12))
		Expect(enc.Position()).To(Equal(int32(cpr / 4)))
		Expect(enc.CountsPerRevolution()).To(Equal(int32(cpr)))
	})

	It("only sees count changes through Update", func() {
		counter.SetPosition(100)
		Expect(enc.Position()).To(BeZero())
		enc.Update()
		Expect(enc.Position()).To(Equal(int32(100)))
	})

	DescribeTable("converges to the pulse rate",
		func(countEvery, queryEvery int, step int32) {
			v := drive(2000, countEvery, queryEvery, step)
			pulsesPerSecond := float64(step) / (float64(countEvery) * 100e-6)
			want := pulsesPerSecond * 2 * math.Pi / cpr
			Expect(v).To(BeNumerically("~", want, math.Abs(want)*1e-6))
		},
		Entry("sparse pulses, fast polling", 10, 5, int32(1)),
		Entry("reverse direction", 10, 5, int32(-1)),
		Entry("dense pulses, slow polling", 1, 10, int32(3)),
		Entry("polling at the pulse rate", 20, 20, int32(1)),
	)

	It("reports zero once the count stalls for more than 100ms", func() {
		Expect(drive(500, 10, 5, 1)).NotTo(BeZero())

		v := drive(900, 0, 10, 0)
		Expect(v).NotTo(BeZero())

		v = drive(200, 0, 10, 0)
		Expect(v).To(BeZero())
	})

	It("keeps the previous estimate when the mixed interval is too short", func() {
		clock.Advance(950 * time.Microsecond)
		counter.Add(1)
		enc.Update()
		clock.Advance(50 * time.Microsecond)
		v := enc.Velocity()
		Expect(v).To(BeNumerically("~", 1/0.00095*2*math.Pi/cpr, 1e-6))

		// Two pulses 100us apart inside a 1ms poll: dt = 0.1ms < Ts/2.
		clock.Advance(50 * time.Microsecond)
		counter.Add(1)
		enc.Update()
		clock.Advance(950 * time.Microsecond)
		Expect(enc.Velocity()).To(Equal(v))
	})

	Context("SetAngle", func() {
		It("writes the count back and resyncs without a velocity spike", func() {
			drive(500, 10, 5, 1)

			Expect(enc.SetAngle(1.0)).To(Succeed())
			anglePerCount := 2 * math.Pi / cpr
			Expect(counter.Position()).To(Equal(int32(1.0 / anglePerCount)))
			Expect(enc.Angle()).To(BeNumerically("~", 1.0, anglePerCount))

			clock.Advance(time.Millisecond)
			enc.Update()
			Expect(enc.Velocity()).To(BeZero())
		})

		It("handles negative angles", func() {
			Expect(enc.SetAngle(-math.Pi)).To(Succeed())
			Expect(enc.Angle()).To(BeNumerically("~", -math.Pi, 1.01*2*math.Pi/cpr))
		})

		It("refuses a read-only source", func() {
			ro, err := foc.NewEncoder(fixedSource(42), cpr, foc.WithClock(clock))
			Expect(err).NotTo(HaveOccurred())
			Expect(ro.SetAngle(1)).To(MatchError(foc.ErrReadOnlySource))
			Expect(ro.Position()).To(Equal(int32(42)))
		})
	})

	It("resets velocity history without moving the shaft", func() {
		drive(500, 10, 5, 1)
		pos := counter.Position()

		enc.Reset()
		Expect(counter.Position()).To(Equal(pos))
		Expect(enc.Position()).To(Equal(pos))

		clock.Advance(time.Millisecond)
		enc.Update()
		Expect(enc.Velocity()).To(BeZero())
	})
})
