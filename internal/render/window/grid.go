package window

import (
	"image/color"
	"sort"
	"strconv"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/banshee-data/rangeview/internal/colourmap"
	"github.com/banshee-data/rangeview/internal/grid"
	"github.com/banshee-data/rangeview/internal/render/loop"
)

// Grid window geometry: one square panel per view.
const (
	PanelSize   = 600
	panelMargin = 50
	cloudRadius = 5
)

var invalidCell = color.RGBA{R: 40, G: 40, B: 40, A: 255}

// GridGame shows the grid as a heatmap, a point cloud or both side by side.
type GridGame struct {
	Pump *loop.Pump
	Map  *grid.Map
	Mode grid.Mode
	// Done closes the window when closed, e.g. on SIGINT.
	Done <-chan struct{}

	snap   grid.Snapshot
	title  string
	labels labeler
}

// Size returns the window size for the mode.
func (g *GridGame) Size() (int, int) {
	if g.Mode == grid.ModeBoth {
		return 2 * PanelSize, PanelSize
	}
	return PanelSize, PanelSize
}

func (g *GridGame) refresh() {
	g.snap = g.Map.Snapshot()
	g.title = g.snap.Stats.Title(g.Mode)
	ebiten.SetWindowTitle(g.title)
}

func (g *GridGame) Update() error {
	select {
	case <-g.Done:
		return ebiten.Termination
	default:
	}
	// same quit and reconnect keys as the scan window; R has nothing to reset
	switch pollKeys() {
	case actionQuit:
		return ebiten.Termination
	case actionReconnect:
		g.Pump.Reconnect()
	}
	// the view only changes when a frame brought valid zones
	if _, changed := g.Pump.Step(); changed || g.snap.Size == 0 {
		g.refresh()
	}
	return nil
}

func (g *GridGame) Draw(screen *ebiten.Image) {
	screen.Fill(background)
	if g.snap.Size == 0 {
		return
	}
	switch g.Mode {
	case grid.ModeHeatmap:
		g.drawHeatmap(screen, 0)
	case grid.Mode3D:
		g.drawCloud(screen, 0)
	default:
		g.drawCloud(screen, 0)
		g.drawHeatmap(screen, PanelSize)
	}
	g.labels.draw(screen, g.title, 10, 10, textColour)
}

func (g *GridGame) drawHeatmap(screen *ebiten.Image, x0 float64) {
	n := g.snap.Size
	cell := float64(PanelSize-2*panelMargin) / float64(n)
	top := float64(panelMargin)
	left := x0 + panelMargin

	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			x := left + float64(col)*cell
			y := top + float64(row)*cell
			cx, cy := x+cell/2, y+cell/2
			d, ok := g.snap.At(row, col)
			if !ok {
				vector.DrawFilledRect(screen, float32(x), float32(y), float32(cell), float32(cell), invalidCell, false)
				g.labels.centred(screen, "x", cx, cy, grey)
				continue
			}
			clr := colourmap.Span(float64(d), grid.MinValidMM, grid.MaxValidMM)
			vector.DrawFilledRect(screen, float32(x), float32(y), float32(cell), float32(cell), clr, false)
			g.labels.centred(screen, strconv.Itoa(int(d)), cx, cy, colourmap.LabelColour(float64(d)))
		}
	}
	for i := 0; i < n; i++ {
		s := strconv.Itoa(i)
		g.labels.centred(screen, s, left+(float64(i)+0.5)*cell, top+float64(n)*cell+12, grey)
		g.labels.centred(screen, s, left-12, top+(float64(i)+0.5)*cell, grey)
	}
	g.labels.centred(screen, "Column", left+float64(n)*cell/2, top+float64(n)*cell+30, grey)
	g.labels.draw(screen, "Row", x0+4, top-20, grey)
}

func (g *GridGame) drawCloud(screen *ebiten.Image, x0 float64) {
	elev, azim := grid.DefaultElevationDeg, grid.DefaultAzimuthDeg
	scale := float64(PanelSize/2-panelMargin) / grid.ViewExtent(elev, azim)
	cx, cy := x0+PanelSize/2, float64(PanelSize/2)
	toScreen := func(px, py float64) (float32, float32) {
		return float32(cx + px*scale), float32(cy - py*scale)
	}

	for _, e := range grid.BoxEdges() {
		ax, ay, _ := grid.Project(e[0], elev, azim)
		bx, by, _ := grid.Project(e[1], elev, azim)
		x1, y1 := toScreen(ax, ay)
		x2, y2 := toScreen(bx, by)
		vector.StrokeLine(screen, x1, y1, x2, y2, 1, guide, true)
	}

	type dot struct {
		x, y, depth float64
		clr         color.Color
	}
	cloud := g.snap.PointCloud()
	dots := make([]dot, 0, len(cloud))
	for _, p := range cloud {
		x, y, depth := grid.Project(p.Pos, elev, azim)
		dots = append(dots, dot{x, y, depth, colourmap.Span(p.DistanceMM, grid.MinValidMM, grid.MaxValidMM)})
	}
	// far first so nearer points overdraw
	sort.Slice(dots, func(i, j int) bool { return dots[i].depth < dots[j].depth })
	for _, d := range dots {
		x, y := toScreen(d.x, d.y)
		vector.DrawFilledCircle(screen, x, y, cloudRadius, d.clr, true)
	}
}

func (g *GridGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.Size()
}

// Run opens the grid window and blocks until it closes.
func (g *GridGame) Run() error {
	w, h := g.Size()
	return run(g, "VL53L7CX", w, h)
}
