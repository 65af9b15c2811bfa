package grid

import (
	"fmt"
	"math"
	"strings"
)

// SyntheticFrame builds a frame line for dev mode: a tilted plane with a
// bump that drifts across the grid as n increases.
func SyntheticFrame(n int64, size int, deviceMillis int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "F:%d:%d", n, deviceMillis)
	bumpCol := float64(n%int64(size*4)) / 4
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			d := 400 + 60*float64(row) + 20*float64(col)
			d -= 250 * math.Exp(-math.Pow(float64(col)-bumpCol, 2))
			fmt.Fprintf(&b, ":Z:%d:%d:%d", row, col, int(d))
		}
	}
	b.WriteString(":E")
	return b.String()
}
