// Package app wires the pieces both visualisers share: the serial link in
// its real, dev or replay flavour, the optional recorder and the flag and
// settings-file merge.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/rangeview/internal/monitoring"
	"github.com/banshee-data/rangeview/internal/recording"
	"github.com/banshee-data/rangeview/internal/serialmux"
	"github.com/banshee-data/rangeview/internal/timeutil"
)

// AutoPort asks for the first port that looks like a board.
const AutoPort = "AUTO"

var ErrRecordAndReplay = errors.New("cannot record and replay at the same time")

// Options are the link settings after flags and the settings file are
// merged.
type Options struct {
	Tool   string
	Port   string // AutoPort autodetects; "" leaves the link disconnected
	Serial serialmux.PortOptions

	// Dev replaces the device with DevLines cycling every DevInterval.
	Dev         bool
	DevLines    []string
	DevInterval time.Duration

	Record        string // database to record into
	FlushInterval time.Duration
	Replay        string // database to play back from
	Session       string // session id or recording.LatestSession
	ReplaySpeed   float64

	Clock  timeutil.Clock
	Lister serialmux.PortLister
	// Opener overrides how real ports are opened.
	Opener serialmux.Opener
}

// Runtime owns what Start opened.
type Runtime struct {
	Link     *serialmux.Link
	DB       *recording.DB
	Recorder *recording.Recorder

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// Start builds and starts the link. A missing or failing device is not an
// error: the link stays disconnected and can be retried. Errors are
// returned only for unusable options or databases.
func Start(ctx context.Context, o Options) (*Runtime, error) {
	if o.Record != "" && o.Replay != "" {
		return nil, ErrRecordAndReplay
	}
	if o.Clock == nil {
		o.Clock = timeutil.RealClock{}
	}
	ctx, cancel := context.WithCancel(ctx)
	rt := &Runtime{cancel: cancel}

	path, open, err := rt.source(o)
	if err != nil {
		cancel()
		rt.closeDB()
		return nil, err
	}
	rt.Link = serialmux.NewLink(path, o.Serial, open)
	if err := rt.Link.Start(ctx); err != nil {
		monitoring.Logf("starting without a device: %v", err)
	}

	if o.Record != "" {
		if err := rt.startRecorder(ctx, o); err != nil {
			rt.Close()
			return nil, err
		}
	}
	return rt, nil
}

func (rt *Runtime) source(o Options) (string, serialmux.Opener, error) {
	switch {
	case o.Dev:
		interval := o.DevInterval
		if interval <= 0 {
			interval = 10 * time.Millisecond
		}
		lines := o.DevLines
		return "dev", func(string, serialmux.PortOptions) (serialmux.SerialMuxInterface, error) {
			return serialmux.NewMockSerialMux(lines, interval), nil
		}, nil

	case o.Replay != "":
		db, err := recording.Open(o.Replay)
		if err != nil {
			return "", nil, fmt.Errorf("open replay database: %w", err)
		}
		rt.DB = db
		id := o.Session
		if id == "" {
			id = recording.LatestSession
		}
		s, err := db.Resolve(id)
		if err != nil {
			return "", nil, err
		}
		monitoring.Logf("replaying session %s (%s on %s, %d lines)", s.ID, s.Tool, s.Port, s.LineCount)
		return "replay:" + s.ID, db.Opener(s.ID, o.Clock, o.ReplaySpeed), nil
	}

	path, err := ResolvePort(o.Port, o.Lister)
	if err != nil {
		monitoring.Logf("could not list serial ports: %v", err)
	}
	return path, o.Opener, nil
}

// ResolvePort expands AutoPort. An empty result means nothing was found.
func ResolvePort(port string, lister serialmux.PortLister) (string, error) {
	if port != AutoPort {
		return port, nil
	}
	path, err := serialmux.AutodetectPort(lister)
	if err != nil {
		return "", err
	}
	if path == "" {
		monitoring.Logf("Auto-detect failed. Pass --port with your device, e.g. COM5 or /dev/tty.usbmodemXXXX")
		return "", nil
	}
	monitoring.Logf("Auto-detected serial port: %s", path)
	return path, nil
}

func (rt *Runtime) startRecorder(ctx context.Context, o Options) error {
	db, err := recording.Open(o.Record)
	if err != nil {
		return fmt.Errorf("open recording database: %w", err)
	}
	rt.DB = db
	s, err := db.StartSession(o.Tool, rt.Link.Port(), o.Serial.BaudRate, o.Clock.Now())
	if err != nil {
		return err
	}
	rt.Recorder = recording.NewRecorder(db, s, o.Clock, o.FlushInterval)
	monitoring.Logf("recording session %s to %s", s.ID, o.Record)

	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		if err := rt.Recorder.Run(ctx); err != nil {
			monitoring.Logf("recorder stopped: %v", err)
		}
	}()
	return nil
}

// Tap records a received line when recording is on.
func (rt *Runtime) Tap(line string) {
	if rt.Recorder != nil {
		rt.Recorder.Record(line)
	}
}

// Close stops the recorder (flushing it), the link and the database.
func (rt *Runtime) Close() {
	rt.once.Do(func() {
		rt.cancel()
		rt.wg.Wait()
		if rt.Link != nil {
			rt.Link.Close()
		}
		rt.closeDB()
	})
}

func (rt *Runtime) closeDB() {
	if rt.DB != nil {
		if err := rt.DB.Close(); err != nil {
			monitoring.Logf("closing database: %v", err)
		}
	}
}
