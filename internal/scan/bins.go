package scan

import (
	"image/color"
	"math"
	"sync"

	"github.com/banshee-data/rangeview/internal/colourmap"
)

const (
	AngleMin = 0
	AngleMax = 270

	DefaultMaxRangeMM = 1200.0
)

// Bin is the most recent reading stored for one degree.
type Bin struct {
	DistanceMM float64
	Colour     color.RGBA
}

// Entry is an occupied bin together with its degree.
type Entry struct {
	Degree int
	Bin
}

// Bins keeps one slot per integer degree. Each reading overwrites its slot;
// nothing is averaged. A single writer (the render loop) and any number of
// readers (web view, snapshots) may use it concurrently.
type Bins struct {
	mu       sync.RWMutex
	maxRange float64
	slots    [AngleMax - AngleMin + 1]Bin
	occupied [AngleMax - AngleMin + 1]bool
	updates  uint64
}

// NewBins returns empty bins that clamp distances to maxRangeMM.
func NewBins(maxRangeMM float64) *Bins {
	if maxRangeMM <= 0 {
		maxRangeMM = DefaultMaxRangeMM
	}
	return &Bins{maxRange: maxRangeMM}
}

// MaxRange returns the configured maximum range in millimetres.
func (b *Bins) MaxRange() float64 { return b.maxRange }

// Apply stores r in its degree bin and returns that degree.
func (b *Bins) Apply(r Reading) int {
	deg := Degree(r.Angle)
	dist := math.Max(0, math.Min(b.maxRange, r.DistanceMM))

	b.mu.Lock()
	b.slots[deg-AngleMin] = Bin{
		DistanceMM: dist,
		Colour:     colourmap.Proximity(dist, b.maxRange),
	}
	b.occupied[deg-AngleMin] = true
	b.updates++
	b.mu.Unlock()
	return deg
}

// Ingest parses a raw serial line and applies it. Malformed lines are
// reported through err and leave the bins untouched.
func (b *Bins) Ingest(line string) (int, error) {
	r, err := ParseLine(line)
	if err != nil {
		return 0, err
	}
	return b.Apply(r), nil
}

// Reset clears every bin.
func (b *Bins) Reset() {
	b.mu.Lock()
	b.slots = [AngleMax - AngleMin + 1]Bin{}
	b.occupied = [AngleMax - AngleMin + 1]bool{}
	b.mu.Unlock()
}

// Get returns the bin for deg, if one has been recorded.
func (b *Bins) Get(deg int) (Bin, bool) {
	if deg < AngleMin || deg > AngleMax {
		return Bin{}, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.slots[deg-AngleMin], b.occupied[deg-AngleMin]
}

// Snapshot returns the occupied bins in degree order.
func (b *Bins) Snapshot() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Entry, 0, len(b.slots))
	for i, ok := range b.occupied {
		if ok {
			out = append(out, Entry{Degree: i + AngleMin, Bin: b.slots[i]})
		}
	}
	return out
}

// Count returns how many bins are occupied.
func (b *Bins) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, ok := range b.occupied {
		if ok {
			n++
		}
	}
	return n
}

// Updates returns the total number of readings applied since creation.
func (b *Bins) Updates() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.updates
}

// Intrusions counts occupied bins whose point lies inside zone.
func (b *Bins) Intrusions(zone SafetyZone) int {
	n := 0
	for _, e := range b.Snapshot() {
		x, y := e.Cartesian()
		if zone.Contains(x, y) {
			n++
		}
	}
	return n
}

// Cartesian converts the entry to sensor-frame millimetres (x along 0°,
// y along 90°).
func (e Entry) Cartesian() (x, y float64) {
	rad := float64(e.Degree) * math.Pi / 180
	return e.DistanceMM * math.Cos(rad), e.DistanceMM * math.Sin(rad)
}
