package grid

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// FieldOfViewDeg is the sensor's square field of view.
	FieldOfViewDeg = 45.0

	DefaultElevationDeg = 20.0
	DefaultAzimuthDeg   = 45.0
)

// Point is one valid cell in sensor space (millimetres, z along the
// boresight) with the distance it came from.
type Point struct {
	Row, Col   int
	DistanceMM float64
	Pos        r3.Vec
}

// PointCloud converts the valid cells of s into 3D points. Each cell is
// placed at the centre of its slice of the field of view.
func (s Snapshot) PointCloud() []Point {
	step := FieldOfViewDeg / float64(s.Size)
	start := -FieldOfViewDeg / 2
	var pts []Point
	for row := 0; row < s.Size; row++ {
		for col := 0; col < s.Size; col++ {
			d, ok := s.At(row, col)
			if !ok {
				continue
			}
			dist := float64(d)
			h := (start + (float64(col)+0.5)*step) * math.Pi / 180
			v := (start + (float64(row)+0.5)*step) * math.Pi / 180
			pts = append(pts, Point{
				Row:        row,
				Col:        col,
				DistanceMM: dist,
				Pos: r3.Vec{
					X: dist * math.Sin(h),
					Y: dist * math.Sin(v),
					Z: dist * math.Cos(h) * math.Cos(v),
				},
			})
		}
	}
	return pts
}

// Project returns the orthographic screen coordinates of p viewed from the
// given elevation and azimuth (degrees), with z as the vertical axis. The
// returned y grows upwards and depth grows towards the viewer.
func Project(p r3.Vec, elevDeg, azimDeg float64) (x, y, depth float64) {
	az := azimDeg * math.Pi / 180
	el := elevDeg * math.Pi / 180

	right := r3.Vec{X: -math.Sin(az), Y: math.Cos(az)}
	up := r3.Vec{X: -math.Sin(el) * math.Cos(az), Y: -math.Sin(el) * math.Sin(az), Z: math.Cos(el)}
	toward := r3.Vec{X: math.Cos(el) * math.Cos(az), Y: math.Cos(el) * math.Sin(az), Z: math.Sin(el)}
	return r3.Dot(p, right), r3.Dot(p, up), r3.Dot(p, toward)
}

// ViewBox is the fixed 3D extent of the point cloud views in millimetres.
var ViewBox = r3.Box{
	Min: r3.Vec{X: -600, Y: -600, Z: MinValidMM},
	Max: r3.Vec{X: 600, Y: 600, Z: MaxValidMM},
}

// BoxEdges returns the 12 edges of ViewBox as point pairs.
func BoxEdges() [][2]r3.Vec {
	lo, hi := ViewBox.Min, ViewBox.Max
	corner := func(i int) r3.Vec {
		v := lo
		if i&1 != 0 {
			v.X = hi.X
		}
		if i&2 != 0 {
			v.Y = hi.Y
		}
		if i&4 != 0 {
			v.Z = hi.Z
		}
		return v
	}
	var edges [][2]r3.Vec
	for i := 0; i < 8; i++ {
		for _, bit := range []int{1, 2, 4} {
			if i&bit == 0 {
				edges = append(edges, [2]r3.Vec{corner(i), corner(i | bit)})
			}
		}
	}
	return edges
}

// ViewExtent is the largest absolute projected coordinate of ViewBox, so a
// view scaled by it keeps the whole box on screen for any frame.
func ViewExtent(elevDeg, azimDeg float64) float64 {
	lim := 0.0
	for _, e := range BoxEdges() {
		for _, p := range e {
			x, y, _ := Project(p, elevDeg, azimDeg)
			lim = math.Max(lim, math.Max(math.Abs(x), math.Abs(y)))
		}
	}
	return lim
}
