// Package window draws the visualisers in desktop windows with ebiten.
package window

import (
	"errors"
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// TPS is the update rate of every window.
const TPS = 60

// debug font cell
const (
	glyphW = 6
	glyphH = 16
)

var (
	background = color.RGBA{R: 10, G: 10, B: 10, A: 255}
	guide      = color.RGBA{R: 60, G: 60, B: 60, A: 255}
	grey       = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	textColour = color.RGBA{R: 220, G: 220, B: 220, A: 255}
)

type action int

const (
	actionNone action = iota
	actionReset
	actionReconnect
	actionQuit
)

func pollKeys() action {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape), inpututil.IsKeyJustPressed(ebiten.KeyQ):
		return actionQuit
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		return actionReset
	case inpututil.IsKeyJustPressed(ebiten.KeyC):
		return actionReconnect
	}
	return actionNone
}

// labeler prints tinted debug-font text through a reused scratch image.
type labeler struct {
	scratch *ebiten.Image
}

func (l *labeler) draw(dst *ebiten.Image, s string, x, y float64, clr color.Color) {
	if s == "" {
		return
	}
	if l.scratch == nil {
		l.scratch = ebiten.NewImage(1024, glyphH)
	}
	w := min(len(s)*glyphW, 1024)
	l.scratch.Clear()
	ebitenutil.DebugPrint(l.scratch, s)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(clr)
	dst.DrawImage(l.scratch.SubImage(image.Rect(0, 0, w, glyphH)).(*ebiten.Image), op)
}

// centred draws s centred on (cx, cy).
func (l *labeler) centred(dst *ebiten.Image, s string, cx, cy float64, clr color.Color) {
	l.draw(dst, s, cx-float64(len(s)*glyphW)/2, cy-glyphH/2, clr)
}

// run opens the window and blocks until it is closed or the game quits.
func run(g ebiten.Game, title string, w, h int) error {
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(w, h)
	ebiten.SetTPS(TPS)
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}
