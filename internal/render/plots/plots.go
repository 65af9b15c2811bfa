// Package plots renders scanner and grid state as gonum/plot figures, used
// for PNG snapshots from the command line and the web view.
package plots

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/rangeview/internal/colourmap"
	"github.com/banshee-data/rangeview/internal/grid"
	"github.com/banshee-data/rangeview/internal/scan"
)

// DefaultSize is the edge length of saved snapshots.
const DefaultSize = 6 * vg.Inch

var (
	guideColour = color.RGBA{R: 60, G: 60, B: 60, A: 255}
	zoneColour  = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	invalidGrey = color.RGBA{R: 200, G: 200, B: 200, A: 255}
)

// ScanPlot draws the occupied bins in sensor-frame millimetres with the
// range rings, angle spokes and, when zone is non-nil, the safety zone.
func ScanPlot(entries []scan.Entry, maxRangeMM float64, zone *scan.SafetyZone) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("ToF scan (%d bins)", len(entries))
	p.X.Label.Text = "x (mm)"
	p.Y.Label.Text = "y (mm)"
	p.X.Min, p.X.Max = -maxRangeMM, maxRangeMM
	p.Y.Min, p.Y.Max = -maxRangeMM, maxRangeMM

	for _, f := range scan.RingFractions {
		ring, err := plotter.NewLine(circle(f*maxRangeMM, 90))
		if err != nil {
			return nil, err
		}
		ring.LineStyle.Color = guideColour
		ring.LineStyle.Width = vg.Points(0.5)
		p.Add(ring)
	}
	ringLabels, err := plotter.NewLabels(ringLabelSet(maxRangeMM))
	if err != nil {
		return nil, err
	}
	p.Add(ringLabels)

	for _, a := range scan.SpokeAngles {
		rad := a * math.Pi / 180
		spoke, err := plotter.NewLine(plotter.XYs{
			{X: 0, Y: 0},
			{X: maxRangeMM * math.Cos(rad), Y: maxRangeMM * math.Sin(rad)},
		})
		if err != nil {
			return nil, err
		}
		spoke.LineStyle.Color = guideColour
		spoke.LineStyle.Width = vg.Points(0.5)
		spoke.LineStyle.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
		p.Add(spoke)
	}

	if zone != nil {
		rect, err := plotter.NewPolygon(plotter.XYs{
			{X: zone.XMin, Y: zone.YMin},
			{X: zone.XMax, Y: zone.YMin},
			{X: zone.XMax, Y: zone.YMax},
			{X: zone.XMin, Y: zone.YMax},
		})
		if err != nil {
			return nil, err
		}
		rect.Color = nil
		rect.LineStyle.Color = zoneColour
		rect.LineStyle.Width = vg.Points(1)
		p.Add(rect)
	}

	if len(entries) > 0 {
		pts := make(plotter.XYs, len(entries))
		for i, e := range entries {
			pts[i].X, pts[i].Y = e.Cartesian()
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			return draw.GlyphStyle{
				Color:  entries[i].Colour,
				Radius: vg.Points(3),
				Shape:  draw.CircleGlyph{},
			}
		}
		p.Add(sc)
	}
	return p, nil
}

func circle(r float64, n int) plotter.XYs {
	pts := make(plotter.XYs, n+1)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i].X, pts[i].Y = r*math.Cos(a), r*math.Sin(a)
	}
	return pts
}

func ringLabelSet(maxRangeMM float64) plotter.XYLabels {
	var l plotter.XYLabels
	for _, f := range scan.RingFractions {
		r := f * maxRangeMM
		l.XYs = append(l.XYs, plotter.XY{X: r, Y: 0})
		l.Labels = append(l.Labels, fmt.Sprintf("%.0f mm", r))
	}
	return l
}

// cells adapts a grid snapshot to plotter.GridXYZ. Row 0 is drawn at the
// top, as the sensor reports it; invalid cells are NaN.
type cells struct {
	snap grid.Snapshot
}

func (c cells) Dims() (int, int)  { return c.snap.Size, c.snap.Size }
func (c cells) X(col int) float64 { return float64(col) }
func (c cells) Y(r int) float64   { return float64(r) }

func (c cells) Z(col, r int) float64 {
	d, ok := c.snap.At(c.snap.Size-1-r, col)
	if !ok {
		return math.NaN()
	}
	return float64(d)
}

// GridHeatmap draws the grid as coloured cells with the distance written in
// each; invalid cells are grey and marked x.
func GridHeatmap(snap grid.Snapshot) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%dx%d grid, frame %d (%d/%d valid)",
		snap.Size, snap.Size, snap.Stats.FrameNumber, snap.Stats.Valid, snap.Stats.Total)
	p.X.Label.Text = "column"
	p.Y.Label.Text = "row"

	hm := plotter.NewHeatMap(cells{snap: snap}, colourmap.NewRamp(64))
	hm.Min, hm.Max = grid.MinValidMM, grid.MaxValidMM
	hm.NaN = invalidGrey
	p.Add(hm)

	var l plotter.XYLabels
	var colours []color.Color
	for row := 0; row < snap.Size; row++ {
		for col := 0; col < snap.Size; col++ {
			d, ok := snap.At(row, col)
			l.XYs = append(l.XYs, plotter.XY{X: float64(col), Y: float64(snap.Size - 1 - row)})
			if !ok {
				l.Labels = append(l.Labels, "x")
				colours = append(colours, color.Black)
				continue
			}
			l.Labels = append(l.Labels, strconv.Itoa(int(d)))
			colours = append(colours, colourmap.LabelColour(float64(d)))
		}
	}
	labels, err := plotter.NewLabels(l)
	if err != nil {
		return nil, err
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].Color = colours[i]
		labels.TextStyle[i].XAlign = text.XCenter
		labels.TextStyle[i].YAlign = text.YCenter
	}
	p.Add(labels)

	ticks := make([]plot.Tick, snap.Size)
	for i := range ticks {
		ticks[i] = plot.Tick{Value: float64(i), Label: strconv.Itoa(i)}
	}
	p.X.Tick.Marker = plot.ConstantTicks(ticks)
	rowTicks := make([]plot.Tick, snap.Size)
	for i := range rowTicks {
		rowTicks[i] = plot.Tick{Value: float64(snap.Size - 1 - i), Label: strconv.Itoa(i)}
	}
	p.Y.Tick.Marker = plot.ConstantTicks(rowTicks)
	return p, nil
}

// GridCloud draws the valid cells as a point cloud projected from the given
// elevation and azimuth.
func GridCloud(snap grid.Snapshot, elevDeg, azimDeg float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("point cloud, frame %d (elev %.0f°, azim %.0f°)",
		snap.Stats.FrameNumber, elevDeg, azimDeg)
	p.HideAxes()

	// fixed extents so the view does not jump between frames
	lim := grid.ViewExtent(elevDeg, azimDeg)
	p.X.Min, p.X.Max = -lim, lim
	p.Y.Min, p.Y.Max = -lim, lim

	cloud := snap.PointCloud()
	if len(cloud) == 0 {
		return p, nil
	}
	pts := make(plotter.XYs, len(cloud))
	for i, c := range cloud {
		pts[i].X, pts[i].Y, _ = grid.Project(c.Pos, elevDeg, azimDeg)
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		return draw.GlyphStyle{
			Color:  colourmap.Span(cloud[i].DistanceMM, grid.MinValidMM, grid.MaxValidMM),
			Radius: vg.Points(4),
			Shape:  draw.CircleGlyph{},
		}
	}
	p.Add(sc)
	return p, nil
}

// SavePNG writes p to path as a square PNG of the given edge length.
func SavePNG(p *plot.Plot, size vg.Length, path string) error {
	if size <= 0 {
		size = DefaultSize
	}
	if err := p.Save(size, size, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// WritePNG streams p as a square PNG.
func WritePNG(w io.Writer, p *plot.Plot, size vg.Length) error {
	if size <= 0 {
		size = DefaultSize
	}
	wt, err := p.WriterTo(size, size, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
