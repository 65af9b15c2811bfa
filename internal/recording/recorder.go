package recording

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/banshee-data/rangeview/internal/monitoring"
	"github.com/banshee-data/rangeview/internal/timeutil"
)

const (
	// DefaultFlushInterval is how often buffered lines are committed.
	DefaultFlushInterval = 250 * time.Millisecond
	// maxBatch forces a commit before the ticker when a burst arrives.
	maxBatch = 512
)

// Recorder appends lines to a session from a background goroutine. Record
// never blocks the caller; when the queue is full the line is counted as
// dropped.
type Recorder struct {
	db       *DB
	session  Session
	clock    timeutil.Clock
	interval time.Duration

	queue   chan Line
	done    chan struct{}
	seq     int64
	written atomic.Uint64
	dropped atomic.Uint64
}

// NewRecorder prepares a recorder for an already started session.
func NewRecorder(db *DB, session Session, clock timeutil.Clock, interval time.Duration) *Recorder {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &Recorder{
		db:       db,
		session:  session,
		clock:    clock,
		interval: interval,
		queue:    make(chan Line, 4*maxBatch),
		done:     make(chan struct{}),
	}
}

// Session returns the session being recorded.
func (r *Recorder) Session() Session { return r.session }

// Record stamps a line with the current time and queues it.
func (r *Recorder) Record(text string) {
	select {
	case r.queue <- Line{ReceivedAt: r.clock.Now(), Text: text}:
	default:
		r.dropped.Add(1)
	}
}

// Written is the number of committed lines.
func (r *Recorder) Written() uint64 { return r.written.Load() }

// Dropped is the number of lines lost to a full queue.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Done is closed once Run has flushed and closed the session.
func (r *Recorder) Done() <-chan struct{} { return r.done }

// Run commits batches until ctx is done, then flushes what is left and
// stamps the session end.
func (r *Recorder) Run(ctx context.Context) error {
	defer close(r.done)
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	batch := make([]Line, 0, maxBatch)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := r.db.AppendLines(r.session.ID, batch); err != nil {
			monitoring.Logf("recording: dropping %d lines: %v", len(batch), err)
			r.dropped.Add(uint64(len(batch)))
		} else {
			r.written.Add(uint64(len(batch)))
		}
		batch = batch[:0]
	}
	add := func(l Line) {
		r.seq++
		l.Seq = r.seq
		batch = append(batch, l)
		if len(batch) >= maxBatch {
			flush()
		}
	}

	for {
		select {
		case l := <-r.queue:
			add(l)
		case <-ticker.C():
			flush()
		case <-ctx.Done():
		drain:
			for {
				select {
				case l := <-r.queue:
					add(l)
				default:
					break drain
				}
			}
			flush()
			if err := r.db.EndSession(r.session.ID, r.clock.Now()); err != nil {
				return err
			}
			monitoring.Logf("recording: session %s closed with %d lines", r.session.ID, r.written.Load())
			return nil
		}
	}
}
