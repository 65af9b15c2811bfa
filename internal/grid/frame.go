// Package grid models the VL53L7CX multi-zone sensor: the compact F:...:E
// frame format, the per-frame distance map with its validity mask, and the
// point cloud derived from it.
package grid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MinValidMM and MaxValidMM bound an accepted zone distance.
	MinValidMM = 10
	MaxValidMM = 1180

	DefaultSize = 4
)

var (
	ErrNotFrame    = errors.New("grid: line is not a frame")
	ErrBadHeader   = errors.New("grid: malformed frame header")
	ErrNoNewData   = errors.New("grid: frame carried no valid zones")
	ErrBadSize     = errors.New("grid: size must be 4 or 8")
	ErrUnknownMode = errors.New("grid: unknown render mode")
)

// ValidSize reports whether n is a supported grid edge length.
func ValidSize(n int) bool { return n == 4 || n == 8 }

// Zone is one accepted cell reading.
type Zone struct {
	Row        int
	Col        int
	DistanceMM int16
}

// Frame is one parsed F: line.
type Frame struct {
	Number       int64
	DeviceMillis int64
	Zones        []Zone
	// Rejected counts well-formed quads that failed bounds checks.
	Rejected int
}

// ParseFrame parses "F:frame:timestamp:Z:row:col:dist:...:E" for a
// size x size grid. Quads outside the grid or the valid distance window are
// skipped without aborting the frame.
func ParseFrame(line string, size int) (Frame, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "F:") {
		return Frame{}, ErrNotFrame
	}

	parts := strings.Split(line, ":")
	if len(parts) < 4 {
		return Frame{}, ErrBadHeader
	}
	num, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: frame number %q", ErrBadHeader, parts[1])
	}
	ts, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: timestamp %q", ErrBadHeader, parts[2])
	}

	f := Frame{Number: num, DeviceMillis: ts}
	// The last token can only ever be a terminator, never the start of a quad.
	for i := 3; i < len(parts)-1; {
		switch parts[i] {
		case "E":
			return f, nil
		case "Z":
			if i+3 >= len(parts) {
				return f, nil
			}
			row, errR := strconv.Atoi(parts[i+1])
			col, errC := strconv.Atoi(parts[i+2])
			dist, errD := strconv.Atoi(parts[i+3])
			if errR != nil || errC != nil || errD != nil {
				// resync on the next token
				i++
				continue
			}
			if row >= 0 && row < size && col >= 0 && col < size &&
				dist >= MinValidMM && dist <= MaxValidMM {
				f.Zones = append(f.Zones, Zone{Row: row, Col: col, DistanceMM: int16(dist)})
			} else {
				f.Rejected++
			}
			i += 4
		default:
			i++
		}
	}
	return f, nil
}

// Mode selects which views the grid mapper draws.
type Mode string

const (
	ModeHeatmap Mode = "heatmap"
	Mode3D      Mode = "3d"
	ModeBoth    Mode = "both"
)

// ParseMode validates a --mode value.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeHeatmap, Mode3D, ModeBoth:
		return m, nil
	}
	return "", fmt.Errorf("%w %q: expected heatmap, 3d or both", ErrUnknownMode, s)
}

// ShowsHeatmap reports whether the mode includes the heatmap view.
func (m Mode) ShowsHeatmap() bool { return m == ModeHeatmap || m == ModeBoth }

// Shows3D reports whether the mode includes the point cloud view.
func (m Mode) Shows3D() bool { return m == Mode3D || m == ModeBoth }
