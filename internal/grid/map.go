package grid

import (
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/rangeview/internal/timeutil"
)

// Stats is the frame accounting shown in the window titles.
type Stats struct {
	FrameCount  int64   `json:"frame_count"`
	FrameNumber int64   `json:"frame_number"`
	FPS         float64 `json:"fps"`
	LatencyMS   float64 `json:"latency_ms"`
	Valid       int     `json:"valid"`
	Total       int     `json:"total"`
}

// Snapshot is a copy of the map state safe to hand to a renderer.
type Snapshot struct {
	Size     int
	Distance []int16 // row-major, Size*Size
	Valid    []bool
	Stats    Stats
}

// At returns the distance and validity of a cell.
func (s Snapshot) At(row, col int) (int16, bool) {
	i := row*s.Size + col
	return s.Distance[i], s.Valid[i]
}

// Map is the latest frame: a size x size distance grid plus a validity mask.
// Every parsed frame fully replaces the previous one.
type Map struct {
	mu    sync.RWMutex
	size  int
	dist  []int16
	valid []bool
	clock timeutil.Clock

	frameCount int64
	frameNum   int64
	fps        float64
	latencyMS  float64
	lastFrame  time.Time
}

// NewMap returns an empty map. A nil clock uses the wall clock.
func NewMap(size int, clock timeutil.Clock) (*Map, error) {
	if !ValidSize(size) {
		return nil, ErrBadSize
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Map{
		size:  size,
		dist:  make([]int16, size*size),
		valid: make([]bool, size*size),
		clock: clock,
	}, nil
}

// Size returns the grid edge length.
func (m *Map) Size() int { return m.size }

// Ingest parses line and, if it is a frame, replaces the map contents and
// updates the frame statistics. It returns ErrNotFrame or ErrBadHeader for
// lines that are dropped, and ErrNoNewData when the frame was parsed but no
// zone passed validation.
func (m *Map) Ingest(line string) error {
	f, err := ParseFrame(line, m.size)
	if err != nil {
		return err
	}
	return m.Apply(f)
}

// Apply replaces the map contents with f.
func (m *Map) Apply(f Frame) error {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.dist)
	clear(m.valid)
	for _, z := range f.Zones {
		if z.Row < 0 || z.Row >= m.size || z.Col < 0 || z.Col >= m.size {
			continue
		}
		i := z.Row*m.size + z.Col
		m.dist[i] = z.DistanceMM
		m.valid[i] = true
	}

	m.frameCount++
	m.frameNum = f.Number
	// Device and host clocks are not synchronised; this is only indicative.
	m.latencyMS = float64(now.UnixNano())/1e6 - float64(f.DeviceMillis)
	if m.frameCount > 1 {
		if dt := now.Sub(m.lastFrame).Seconds(); dt > 0 {
			m.fps = 1 / dt
		}
	}
	m.lastFrame = now

	if len(f.Zones) == 0 {
		return ErrNoNewData
	}
	return nil
}

// Snapshot copies the current state.
func (m *Map) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Snapshot{
		Size:     m.size,
		Distance: append([]int16(nil), m.dist...),
		Valid:    append([]bool(nil), m.valid...),
	}
	s.Stats = m.statsLocked()
	return s
}

// Stats returns the current frame statistics.
func (m *Map) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statsLocked()
}

func (m *Map) statsLocked() Stats {
	valid := 0
	for _, v := range m.valid {
		if v {
			valid++
		}
	}
	return Stats{
		FrameCount:  m.frameCount,
		FrameNumber: m.frameNum,
		FPS:         m.fps,
		LatencyMS:   m.latencyMS,
		Valid:       valid,
		Total:       m.size * m.size,
	}
}

// Title formats the stats line shown above the view for mode m.
func (s Stats) Title(m Mode) string {
	switch m {
	case ModeHeatmap:
		return fmt.Sprintf("VL53L7CX Low Latency | Frame: %d | FPS: %.1f | Valid: %d/%d | Latency: %.0fms",
			s.FrameCount, s.FPS, s.Valid, s.Total, s.LatencyMS)
	case Mode3D:
		return fmt.Sprintf("VL53L7CX 3D | FPS: %.1f | Valid: %d/%d | Latency: %.0fms",
			s.FPS, s.Valid, s.Total, s.LatencyMS)
	}
	return fmt.Sprintf("VL53L7CX | FPS: %.1f | Valid: %d/%d | Latency: %.0fms",
		s.FPS, s.Valid, s.Total, s.LatencyMS)
}
