// Package scan holds the rotating ToF scanner model: the angle,distance line
// parser and the one-reading-per-degree bins the polar views draw from.
package scan

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrTooFewFields     = errors.New("scan: fewer than 2 fields")
	ErrNonNumeric       = errors.New("scan: non-numeric field")
	ErrNegativeDistance = errors.New("scan: negative distance")
)

// Reading is one parsed scanner line. X and Y are the optional device-side
// cartesian coordinates sent by the 4-column firmware.
type Reading struct {
	Angle      float64
	DistanceMM float64
	X, Y       float64
	HasXY      bool
}

// ParseLine parses "angle,distance[,x,y]". Fields beyond the fourth are
// ignored, as are non-numeric x/y columns.
func ParseLine(line string) (Reading, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) < 2 {
		return Reading{}, ErrTooFewFields
	}

	angle, err := parseField(parts[0])
	if err != nil {
		return Reading{}, fmt.Errorf("angle %q: %w", parts[0], err)
	}
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return Reading{}, fmt.Errorf("angle %q: %w", parts[0], ErrNonNumeric)
	}

	dist, err := parseField(parts[1])
	if err != nil {
		return Reading{}, fmt.Errorf("distance %q: %w", parts[1], err)
	}
	// NaN fails the >= 0 test as well.
	if !(dist >= 0) {
		return Reading{}, ErrNegativeDistance
	}

	r := Reading{Angle: angle, DistanceMM: dist}
	if len(parts) >= 4 {
		x, errX := parseField(parts[2])
		y, errY := parseField(parts[3])
		if errX == nil && errY == nil {
			r.X, r.Y, r.HasXY = x, y, true
		}
	}
	return r, nil
}

func parseField(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		var numErr *strconv.NumError
		// Out-of-range values parse to ±Inf; keep them and let the caller clamp.
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return v, nil
		}
		return 0, ErrNonNumeric
	}
	return v, nil
}

// Degree rounds an angle to its bin index: nearest integer with ties to even,
// clamped to [AngleMin, AngleMax].
func Degree(angle float64) int {
	deg := math.RoundToEven(angle)
	if deg < AngleMin {
		return AngleMin
	}
	if deg > AngleMax {
		return AngleMax
	}
	return int(deg)
}
