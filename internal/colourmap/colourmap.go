// Package colourmap maps distances onto the red (near) to blue (far) hue ramp
// shared by every view.
package colourmap

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	// FarHue is the hue used at (or beyond) the far end of the range.
	FarHue = 240.0
	// Saturation and Value of every colour produced by this package.
	Saturation = 0.95
	Value      = 1.0
)

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// Hue returns the hue in degrees for a distance over [0, maxRangeMM].
// 0 mm maps to red (0°) and maxRangeMM to blue (240°).
func Hue(distMM, maxRangeMM float64) float64 {
	return SpanHue(distMM, 0, maxRangeMM)
}

// SpanHue is Hue normalised over an arbitrary [lo, hi] interval.
func SpanHue(v, lo, hi float64) float64 {
	if hi <= lo || math.IsNaN(v) {
		return 0
	}
	return (clamp(v, lo, hi) - lo) / (hi - lo) * FarHue
}

// Proximity returns the display colour for a distance in millimetres.
func Proximity(distMM, maxRangeMM float64) color.RGBA {
	return fromHue(Hue(distMM, maxRangeMM))
}

// Span returns the display colour for v normalised over [lo, hi].
func Span(v, lo, hi float64) color.RGBA {
	return fromHue(SpanHue(v, lo, hi))
}

func fromHue(h float64) color.RGBA {
	r, g, b := colorful.Hsv(h, Saturation, Value).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// Ramp is an n-step near-to-far palette. It satisfies gonum's
// palette.Palette so heatmaps can share the same colours.
type Ramp struct {
	colors []color.Color
}

// NewRamp builds a ramp with n evenly spaced steps (n >= 2).
func NewRamp(n int) *Ramp {
	if n < 2 {
		n = 2
	}
	cs := make([]color.Color, n)
	for i := range cs {
		cs[i] = fromHue(float64(i) / float64(n-1) * FarHue)
	}
	return &Ramp{colors: cs}
}

// Colors returns the palette entries from near (red) to far (blue).
func (r *Ramp) Colors() []color.Color { return r.colors }

// LabelColour picks a readable text colour for a cell value: white on the
// far (dark blue) side, black otherwise.
func LabelColour(distMM float64) color.Color {
	if distMM > 600 {
		return color.White
	}
	return color.Black
}
