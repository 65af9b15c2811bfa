package scan

import "math"

// SafetyZone is an axis-aligned rectangle in sensor-frame millimetres. The
// defaults match the RECT_* constants of the scanner firmware.
type SafetyZone struct {
	XMin float64 `json:"x_min"`
	XMax float64 `json:"x_max"`
	YMin float64 `json:"y_min"`
	YMax float64 `json:"y_max"`
}

// DefaultSafetyZone returns the firmware's rectangle.
func DefaultSafetyZone() SafetyZone {
	return SafetyZone{XMin: -200, XMax: 800, YMin: -100, YMax: 600}
}

// Contains reports whether (x, y) lies inside the zone, edges included.
func (z SafetyZone) Contains(x, y float64) bool {
	return x >= z.XMin && x <= z.XMax && y >= z.YMin && y <= z.YMax
}

// PolarToXY converts a radius in pixels and an angle in degrees to screen
// coordinates around (cx, cy). Screen y grows downwards, so 90° points up.
func PolarToXY(rPx, thetaDeg, cx, cy float64) (x, y float64) {
	rad := thetaDeg * math.Pi / 180
	return cx + rPx*math.Cos(rad), cy - rPx*math.Sin(rad)
}

// Viewport maps millimetres onto a square canvas centred on the sensor.
type Viewport struct {
	Width, Height int
	Margin        int
	MaxRangeMM    float64
}

// Centre returns the canvas centre in pixels.
func (v Viewport) Centre() (float64, float64) {
	return float64(v.Width / 2), float64(v.Height / 2)
}

// MaxRadius is the pixel radius of the outermost range ring.
func (v Viewport) MaxRadius() float64 {
	return float64(min(v.Width, v.Height)/2 - v.Margin)
}

// Scale returns pixels per millimetre.
func (v Viewport) Scale() float64 {
	if v.MaxRangeMM <= 0 {
		return 0
	}
	return v.MaxRadius() / v.MaxRangeMM
}

// Point returns the screen position of an entry.
func (v Viewport) Point(e Entry) (float64, float64) {
	cx, cy := v.Centre()
	return PolarToXY(e.DistanceMM*v.Scale(), float64(e.Degree), cx, cy)
}

// MMToPx converts sensor-frame millimetres to screen pixels.
func (v Viewport) MMToPx(xMM, yMM float64) (float64, float64) {
	cx, cy := v.Centre()
	s := v.Scale()
	return cx + xMM*s, cy - yMM*s
}

// ZoneRect returns the zone as a screen rectangle (x, y, w, h) with y at the
// top edge.
func (v Viewport) ZoneRect(z SafetyZone) (x, y, w, h float64) {
	x1, y1 := v.MMToPx(z.XMin, z.YMin)
	x2, y2 := v.MMToPx(z.XMax, z.YMax)
	return x1, y2, x2 - x1, y1 - y2
}

// RingFractions are the range rings drawn by every polar view.
var RingFractions = []float64{0.25, 0.5, 0.75, 1.0}

// SpokeAngles are the angle guide lines drawn by every polar view.
var SpokeAngles = []float64{0, 45, 90, 135, 180, 225, 270}
