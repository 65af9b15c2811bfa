// Package loop moves serial lines into the view state once per frame. It is
// shared by the desktop windows and the headless runner.
package loop

import (
	"context"
	"time"

	"github.com/banshee-data/rangeview/internal/monitoring"
	"github.com/banshee-data/rangeview/internal/serialmux"
	"github.com/banshee-data/rangeview/internal/timeutil"
)

// Source is the line feed a Pump drains. *serialmux.Link satisfies it.
type Source interface {
	Poll(max int) []string
	Reconnect() error
	Status() serialmux.LinkStatus
}

// Pump drains a Source without blocking and hands each line to Ingest.
type Pump struct {
	Source Source
	// Ingest applies one line and reports whether the view changed.
	Ingest func(line string) bool
	// Tap sees every line before Ingest, e.g. a recorder.
	Tap func(line string)
	// OnReconnect runs after every manual reconnect attempt.
	OnReconnect func()
	// MaxPerStep bounds the lines taken per step; 0 drains everything.
	MaxPerStep int
}

// Step drains what is buffered. It returns how many lines were read and
// whether any changed the view.
func (p *Pump) Step() (int, bool) {
	if p.Source == nil {
		return 0, false
	}
	lines := p.Source.Poll(p.MaxPerStep)
	changed := false
	for _, line := range lines {
		if p.Tap != nil {
			p.Tap(line)
		}
		if p.Ingest != nil && p.Ingest(line) {
			changed = true
		}
	}
	return len(lines), changed
}

// Reconnect closes and reopens the source. Failures are logged; the view
// keeps running disconnected.
func (p *Pump) Reconnect() error {
	if p.Source == nil {
		return serialmux.ErrNoPort
	}
	err := p.Source.Reconnect()
	if err != nil {
		monitoring.Logf("reconnect failed: %v", err)
	}
	if p.OnReconnect != nil {
		p.OnReconnect()
	}
	return err
}

// Headless steps a Pump on a ticker instead of a display refresh, logging
// a status line every Report interval.
type Headless struct {
	Pump   *Pump
	Clock  timeutil.Clock
	Tick   time.Duration
	Report time.Duration
	// Status formats the periodic log line.
	Status func() string
	// OnChange runs after a step that changed the view.
	OnChange func()
}

// DefaultTick matches the 60 Hz window refresh.
const DefaultTick = time.Second / 60

// Run loops until ctx is done.
func (h *Headless) Run(ctx context.Context) error {
	clock := h.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	tick := h.Tick
	if tick <= 0 {
		tick = DefaultTick
	}
	ticker := clock.NewTicker(tick)
	defer ticker.Stop()

	lastReport := clock.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
		}
		if _, changed := h.Pump.Step(); changed && h.OnChange != nil {
			h.OnChange()
		}
		if h.Report > 0 && h.Status != nil && clock.Since(lastReport) >= h.Report {
			lastReport = clock.Now()
			monitoring.Logf("%s", h.Status())
		}
	}
}
