package window

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/banshee-data/rangeview/internal/render/loop"
	"github.com/banshee-data/rangeview/internal/scan"
	"github.com/banshee-data/rangeview/internal/serialmux"
)

// Scanner window geometry.
const (
	ScanWidth  = 900
	ScanHeight = 900
	ScanMargin = 60
	dotRadius  = 6
)

// ScanGame is the polar scanner view.
type ScanGame struct {
	Pump  *loop.Pump
	Bins  *scan.Bins
	Link  *serialmux.Link
	Zone  *scan.SafetyZone // nil hides the overlay
	Title string
	// Done closes the window when closed, e.g. on SIGINT.
	Done <-chan struct{}

	view   scan.Viewport
	labels labeler
}

func (g *ScanGame) viewport() scan.Viewport {
	if g.view.Width == 0 {
		g.view = scan.Viewport{
			Width:      ScanWidth,
			Height:     ScanHeight,
			Margin:     ScanMargin,
			MaxRangeMM: g.Bins.MaxRange(),
		}
	}
	return g.view
}

func (g *ScanGame) Update() error {
	select {
	case <-g.Done:
		return ebiten.Termination
	default:
	}
	switch pollKeys() {
	case actionQuit:
		return ebiten.Termination
	case actionReset:
		g.Bins.Reset()
	case actionReconnect:
		g.Pump.Reconnect()
	}
	g.Pump.Step()
	return nil
}

func (g *ScanGame) Draw(screen *ebiten.Image) {
	v := g.viewport()
	screen.Fill(background)
	cx, cy := v.Centre()
	maxR := v.MaxRadius()

	for _, f := range scan.RingFractions {
		r := f * maxR
		vector.StrokeCircle(screen, float32(cx), float32(cy), float32(r), 1, guide, true)
		g.labels.draw(screen, fmt.Sprintf("%.0f mm", f*v.MaxRangeMM), cx+r+4, cy+4, grey)
	}
	for _, a := range scan.SpokeAngles {
		x, y := scan.PolarToXY(maxR, a, cx, cy)
		vector.StrokeLine(screen, float32(cx), float32(cy), float32(x), float32(y), 1, guide, true)
	}
	if g.Zone != nil {
		x, y, w, h := v.ZoneRect(*g.Zone)
		vector.StrokeRect(screen, float32(x), float32(y), float32(w), float32(h), 2, grey, false)
	}

	for _, e := range g.Bins.Snapshot() {
		x, y := v.Point(e)
		vector.DrawFilledCircle(screen, float32(x), float32(y), dotRadius, e.Colour, true)
	}

	state := "NOT CONNECTED"
	port := ""
	if g.Link != nil {
		port = g.Link.Port()
		if g.Link.Connected() {
			state = "CONNECTED"
		}
	}
	g.labels.draw(screen, fmt.Sprintf("Port: %s | %s | Keys: [R]=reset bins [C]=reconnect", port, state), 10, 10, textColour)

	legend := "Blue = far, Red = near"
	if g.Zone != nil {
		legend += " | Gray box = safety zone"
		g.labels.draw(screen, fmt.Sprintf("Points in zone: %d", g.Bins.Intrusions(*g.Zone)), 10, 30, textColour)
	}
	g.labels.draw(screen, legend, 10, float64(v.Height-glyphH-10), grey)
}

func (g *ScanGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	v := g.viewport()
	return v.Width, v.Height
}

// Run opens the scanner window and blocks until it closes.
func (g *ScanGame) Run() error {
	return run(g, g.Title, ScanWidth, ScanHeight)
}
