package scan

import (
	"fmt"
	"math"
)

// SyntheticSweep returns one back-and-forth sweep of scanner lines for dev
// mode: a wall at ~900 mm with a near object around 100-130°.
func SyntheticSweep(step int) []string {
	if step <= 0 {
		step = 1
	}
	var lines []string
	emit := func(deg int) {
		d := 900 + 60*math.Sin(float64(deg)*math.Pi/45)
		if deg >= 100 && deg <= 130 {
			d = 350
		}
		lines = append(lines, fmt.Sprintf("%d,%.0f", deg, d))
	}
	for deg := AngleMin; deg <= AngleMax; deg += step {
		emit(deg)
	}
	for deg := AngleMax; deg >= AngleMin; deg -= step {
		emit(deg)
	}
	return lines
}
