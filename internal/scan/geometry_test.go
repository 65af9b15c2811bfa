package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolarToXY(t *testing.T) {
	x, y := PolarToXY(100, 0, 450, 450)
	assert.InDelta(t, 550, x, 1e-9)
	assert.InDelta(t, 450, y, 1e-9)

	x, y = PolarToXY(100, 90, 450, 450)
	assert.InDelta(t, 450, x, 1e-9)
	assert.InDelta(t, 350, y, 1e-9, "90° points up the screen")

	x, y = PolarToXY(100, 270, 450, 450)
	assert.InDelta(t, 450, x, 1e-9)
	assert.InDelta(t, 550, y, 1e-9)
}

func TestViewport(t *testing.T) {
	v := Viewport{Width: 900, Height: 900, Margin: 60, MaxRangeMM: 1200}
	cx, cy := v.Centre()
	assert.Equal(t, 450.0, cx)
	assert.Equal(t, 450.0, cy)
	assert.Equal(t, 390.0, v.MaxRadius())
	assert.InDelta(t, 0.325, v.Scale(), 1e-9)

	x, y := v.Point(Entry{Degree: 90, Bin: Bin{DistanceMM: 1200}})
	assert.InDelta(t, 450, x, 1e-9)
	assert.InDelta(t, 60, y, 1e-9)

	assert.Zero(t, Viewport{Width: 10, Height: 10}.Scale())
}

func TestZoneRect(t *testing.T) {
	v := Viewport{Width: 900, Height: 900, Margin: 60, MaxRangeMM: 1200}
	x, y, w, h := v.ZoneRect(DefaultSafetyZone())
	assert.InDelta(t, 450-200*0.325, x, 1e-9)
	assert.InDelta(t, 450-600*0.325, y, 1e-9)
	assert.InDelta(t, 1000*0.325, w, 1e-9)
	assert.InDelta(t, 700*0.325, h, 1e-9)
}

func TestSafetyZoneContains(t *testing.T) {
	z := DefaultSafetyZone()
	assert.True(t, z.Contains(0, 0))
	assert.True(t, z.Contains(-200, 600), "edges are inside")
	assert.False(t, z.Contains(-201, 0))
	assert.False(t, z.Contains(0, 601))
}

func TestSyntheticSweepParses(t *testing.T) {
	lines := SyntheticSweep(10)
	assert.NotEmpty(t, lines)
	for _, l := range lines {
		_, err := ParseLine(l)
		assert.NoError(t, err, l)
	}
}
