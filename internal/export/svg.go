// Package export renders stored runs for use outside the terminal.
package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/san-kum/focsim/internal/rig"
)

var ErrTooFewSamples = errors.New("export: need at least two samples")

// Series picks one value out of a sample.
type Series struct {
	Name   string
	Stroke string
	Value  func(rig.Sample) float64
}

// VelocitySeries are the traces drawn by default: target, true velocity
// and the mixed estimate.
var VelocitySeries = []Series{
	{"target", "#8a8a8a", func(s rig.Sample) float64 { return s.Setpoint }},
	{"velocity", "#00d75f", func(s rig.Sample) float64 { return s.Velocity }},
	{"estimated", "#ff87ff", func(s rig.Sample) float64 { return s.Estimated }},
}

// SamplesToSVG draws series against sample time on a shared y axis.
func SamplesToSVG(w io.Writer, samples []rig.Sample, series []Series, width, height int) error {
	if len(samples) < 2 {
		return ErrTooFewSamples
	}

	minT, maxT := samples[0].Time, samples[len(samples)-1].Time
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		for _, sr := range series {
			v := sr.Value(s)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			minY = math.Min(minY, v)
			maxY = math.Max(maxY, v)
		}
	}
	if math.IsInf(minY, 1) {
		minY, maxY = 0, 1
	}

	rangeT := maxT - minT
	if rangeT == 0 {
		rangeT = 1
	}
	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	if minY < 0 && maxY > 0 {
		y := float64(height) - (0-minY)/rangeY*float64(height)
		sb.WriteString(fmt.Sprintf(`<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="#303030" stroke-width="1"/>
`, y, width, y))
	}

	for _, sr := range series {
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="`, sr.Stroke))
		pen := "M"
		for _, s := range samples {
			v := sr.Value(s)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				pen = "M"
				continue
			}
			x := (s.Time - minT) / rangeT * float64(width)
			y := float64(height) - (v-minY)/rangeY*float64(height)
			sb.WriteString(fmt.Sprintf("%s%.1f,%.1f ", pen, x, y))
			pen = "L"
		}
		sb.WriteString(fmt.Sprintf(`"><title>%s</title></path>
`, sr.Name))
	}

	for i, sr := range series {
		sb.WriteString(fmt.Sprintf(`<text x="8" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>
`, 16+14*i, sr.Stroke, sr.Name))
	}

	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
