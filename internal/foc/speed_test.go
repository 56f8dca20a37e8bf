package foc_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/focsim/internal/foc"
)

var _ = Describe("SpeedCalculator", func() {
	It("rejects a non-positive resolution", func() {
		_, err := foc.NewSpeedCalculator(0, foc.DefaultMinDt)
		Expect(err).To(MatchError(foc.ErrInvalidResolution))
	})

	It("defaults a negative min dt", func() {
		sc, err := foc.NewSpeedCalculator(600, -1)
		Expect(err).NotTo(HaveOccurred())
		Expect(sc.MinDt()).To(Equal(foc.DefaultMinDt))
	})

	It("returns zero on the first call and only records position", func() {
		sc, _ := foc.NewSpeedCalculator(100, foc.DefaultMinDt)
		Expect(sc.Calculate(5000, 0.01)).To(BeZero())
		Expect(sc.Calculate(5100, 0.01)).To(BeNumerically("~", 100, 1e-9))
	})

	It("differences position over dt in rev/s", func() {
		sc, _ := foc.NewSpeedCalculator(600, foc.DefaultMinDt)
		sc.Calculate(0, 0)
		Expect(sc.Calculate(300, 0.25)).To(BeNumerically("~", 2, 1e-12))
		Expect(sc.Calculate(0, 0.5)).To(BeNumerically("~", -1, 1e-12))
	})

	It("returns the exact previous velocity below min dt", func() {
		sc, _ := foc.NewSpeedCalculator(600, 0.005)
		sc.Calculate(0, 0)
		v := sc.Calculate(37, 0.01)

		Expect(sc.Calculate(9999, 0.001)).To(Equal(v))
		Expect(sc.Calculate(-50, 0.0049)).To(Equal(v))
		Expect(sc.Velocity()).To(Equal(v))

		Expect(sc.Calculate(37+60, 0.01)).To(BeNumerically("~", 10, 1e-9))
	})

	It("starts over after Reset", func() {
		sc, _ := foc.NewSpeedCalculator(600, foc.DefaultMinDt)
		sc.Calculate(0, 0)
		sc.Calculate(600, 0.1)
		sc.Reset()
		Expect(sc.Velocity()).To(BeZero())
		Expect(sc.Calculate(1200, 0.1)).To(BeZero())
		Expect(sc.Calculate(1260, 0.1)).To(BeNumerically("~", 1, 1e-12))
	})
})
