package recording

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/banshee-data/rangeview/internal/serialmux"
	"github.com/banshee-data/rangeview/internal/timeutil"
)

// maxReplayGap caps the pause between two replayed lines so a session that
// sat idle does not stall the viewer.
const maxReplayGap = 2 * time.Second

// Replayer plays a recorded session back as a serial port: Read yields the
// stored lines with their recorded spacing divided by speed, then EOF.
// Writes are accepted and discarded.
type Replayer struct {
	r *io.PipeReader
	w *io.PipeWriter

	once sync.Once
}

var _ serialmux.SerialPorter = (*Replayer)(nil)

// NewReplayer starts playback of lines. speed <= 0 means real time.
func NewReplayer(lines []Line, clock timeutil.Clock, speed float64) *Replayer {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if speed <= 0 {
		speed = 1
	}
	r, w := io.Pipe()
	rp := &Replayer{r: r, w: w}

	go func() {
		var prev time.Time
		for i, l := range lines {
			if i > 0 {
				gap := l.ReceivedAt.Sub(prev)
				if gap > maxReplayGap {
					gap = maxReplayGap
				}
				if gap > 0 {
					clock.Sleep(time.Duration(float64(gap) / speed))
				}
			}
			prev = l.ReceivedAt
			if _, err := io.WriteString(w, l.Text+"\n"); err != nil {
				return
			}
		}
		w.Close()
	}()
	return rp
}

func (p *Replayer) Read(b []byte) (int, error) { return p.r.Read(b) }

func (p *Replayer) Write(b []byte) (int, error) { return len(b), nil }

// Close stops playback.
func (p *Replayer) Close() error {
	p.once.Do(func() {
		p.r.Close()
		p.w.Close()
	})
	return nil
}

// Opener returns a serialmux.Opener that replays session id on every open,
// so reconnecting restarts the playback. The port path is ignored.
func (db *DB) Opener(id string, clock timeutil.Clock, speed float64) serialmux.Opener {
	return func(string, serialmux.PortOptions) (serialmux.SerialMuxInterface, error) {
		lines, err := db.Lines(id)
		if err != nil {
			return nil, fmt.Errorf("load session %s: %w", id, err)
		}
		return serialmux.NewSerialMux(NewReplayer(lines, clock, speed)), nil
	}
}
