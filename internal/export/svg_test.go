package export

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/focsim/internal/rig"
)

func ramp(n int) []rig.Sample {
	samples := make([]rig.Sample, n)
	for i := range samples {
		t := float64(i) * 0.001
		samples[i] = rig.Sample{Time: t, Setpoint: 10, Velocity: 10 * t, Estimated: 10*t - 0.1}
	}
	return samples
}

func TestSamplesToSVG(t *testing.T) {
	var sb strings.Builder
	if err := SamplesToSVG(&sb, ramp(50), VelocitySeries, 400, 200); err != nil {
		t.Fatal(err)
	}
	svg := sb.String()

	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>\n") {
		t.Errorf("not a complete svg document")
	}
	if got := strings.Count(svg, "<path"); got != len(VelocitySeries) {
		t.Errorf("expected %d paths, got %d", len(VelocitySeries), got)
	}
	for _, sr := range VelocitySeries {
		if !strings.Contains(svg, "<title>"+sr.Name+"</title>") {
			t.Errorf("missing series %s", sr.Name)
		}
	}
}

func TestSamplesToSVGBreaksOnNaN(t *testing.T) {
	samples := ramp(10)
	samples[5].Velocity = math.NaN()

	var sb strings.Builder
	series := []Series{VelocitySeries[1]}
	if err := SamplesToSVG(&sb, samples, series, 100, 100); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(sb.String(), "NaN") {
		t.Errorf("NaN leaked into the path")
	}
	if got := strings.Count(sb.String(), "M"); got < 2 {
		t.Errorf("expected the path to restart after the gap, got %d moves", got)
	}
}

func TestSamplesToSVGTooFew(t *testing.T) {
	var sb strings.Builder
	err := SamplesToSVG(&sb, ramp(1), VelocitySeries, 100, 100)
	if !errors.Is(err, ErrTooFewSamples) {
		t.Fatalf("expected ErrTooFewSamples, got %v", err)
	}
}
