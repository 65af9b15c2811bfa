package serialmux

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/rangeview/internal/monitoring"
)

var (
	ErrNoPort       = errors.New("no serial port configured")
	ErrNotConnected = errors.New("serial port not connected")
	ErrLinkClosed   = errors.New("link closed")
)

// Opener opens a line multiplexer for a port path. NewRealSerialMux wrapped
// by RealOpener is the production implementation.
type Opener func(path string, opts PortOptions) (SerialMuxInterface, error)

// RealOpener opens real serial ports via go.bug.st/serial.
func RealOpener(path string, opts PortOptions) (SerialMuxInterface, error) {
	return NewRealSerialMux(path, opts)
}

// LinkStatus is a point-in-time view of a Link for status displays.
type LinkStatus struct {
	Port      string `json:"port"`
	Connected bool   `json:"connected"`
	LastError string `json:"last_error,omitempty"`
	Received  uint64 `json:"received"`
	Dropped   uint64 `json:"dropped"`
}

// Link owns the serial connection of a visualiser. It survives missing or
// failing devices: errors only flip Connected to false, and Reconnect
// closes and reopens the port on demand. Received lines are buffered for a
// render loop to Poll without ever blocking it.
type Link struct {
	path string
	opts PortOptions
	open Opener

	mu     sync.Mutex
	ctx    context.Context
	mux    SerialMuxInterface
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool

	errMu   sync.Mutex
	lastErr error

	connected atomic.Bool
	received  atomic.Uint64
	dropped   atomic.Uint64

	lines chan string

	tapMu sync.Mutex
	taps  map[string]chan string
}

// NewLink prepares a link; nothing is opened until Start.
func NewLink(path string, opts PortOptions, open Opener) *Link {
	if open == nil {
		open = RealOpener
	}
	return &Link{
		path:  path,
		opts:  opts,
		open:  open,
		lines: make(chan string, 4096),
		taps:  make(map[string]chan string),
	}
}

// Port returns the configured device path.
func (l *Link) Port() string { return l.path }

// Start opens the port once. A failure is logged and recorded but not
// fatal; the link simply stays disconnected.
func (l *Link) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLinkClosed
	}
	l.ctx = ctx
	return l.connectLocked()
}

// Reconnect closes the current port (if any) and opens it again. It is
// synchronous and bounded by the OS open call.
func (l *Link) Reconnect() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLinkClosed
	}
	l.disconnectLocked()
	return l.connectLocked()
}

// Close disconnects and releases the link.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.disconnectLocked()

	l.tapMu.Lock()
	for _, ch := range l.taps {
		close(ch)
	}
	l.taps = nil
	l.tapMu.Unlock()
	return nil
}

// AttachAdminRoutes mounts the serial tail and command routes for this link.
func (l *Link) AttachAdminRoutes(mux *http.ServeMux) {
	attachAdminRoutes(mux, l)
}

func (l *Link) setLastError(err error) {
	l.errMu.Lock()
	l.lastErr = err
	l.errMu.Unlock()
}

func (l *Link) lastError() error {
	l.errMu.Lock()
	defer l.errMu.Unlock()
	return l.lastErr
}

// Connected reports whether the port is open and healthy.
func (l *Link) Connected() bool { return l.connected.Load() }

// Status returns counters and the last error for display.
func (l *Link) Status() LinkStatus {
	lastErr := l.lastError()
	st := LinkStatus{
		Port:      l.path,
		Connected: l.Connected(),
		Received:  l.received.Load(),
		Dropped:   l.dropped.Load(),
	}
	if lastErr != nil {
		st.LastError = lastErr.Error()
	}
	return st
}

// Poll returns up to max buffered lines without blocking. max <= 0 drains
// everything currently buffered.
func (l *Link) Poll(max int) []string {
	var out []string
	for max <= 0 || len(out) < max {
		select {
		case line := <-l.lines:
			out = append(out, line)
		default:
			return out
		}
	}
	return out
}

// Wait blocks until a line arrives, ctx is done or timeout elapses. Headless
// loops use it instead of a display clock.
func (l *Link) Wait(ctx context.Context, timeout time.Duration) (string, bool) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case line := <-l.lines:
		return line, true
	case <-ctx.Done():
	case <-t.C:
	}
	return "", false
}

// SendCommand writes to the connected port.
func (l *Link) SendCommand(cmd string) error {
	l.mu.Lock()
	mux := l.mux
	l.mu.Unlock()
	if mux == nil || !l.Connected() {
		return ErrNotConnected
	}
	return mux.SendCommand(cmd)
}

// Subscribe taps the line stream for debug consumers. Taps never steal lines
// from Poll and survive reconnects.
func (l *Link) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string, 64)
	l.tapMu.Lock()
	defer l.tapMu.Unlock()
	if l.taps == nil {
		close(ch)
		return id, ch
	}
	l.taps[id] = ch
	return id, ch
}

// Unsubscribe removes a tap.
func (l *Link) Unsubscribe(id string) {
	l.tapMu.Lock()
	defer l.tapMu.Unlock()
	if ch, ok := l.taps[id]; ok {
		close(ch)
		delete(l.taps, id)
	}
}

func (l *Link) connectLocked() error {
	if l.path == "" {
		l.setLastError(ErrNoPort)
		l.connected.Store(false)
		return ErrNoPort
	}
	ctx := l.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	mux, err := l.open(l.path, l.opts)
	if err != nil {
		l.setLastError(err)
		l.connected.Store(false)
		monitoring.Logf("could not open serial port %s: %v", l.path, err)
		return err
	}

	mctx, cancel := context.WithCancel(ctx)
	id, sub := mux.Subscribe()
	l.mux = mux
	l.cancel = cancel
	l.setLastError(nil)
	l.connected.Store(true)
	monitoring.Logf("connected to %s @ %d baud", l.path, l.opts.BaudRate)

	l.wg.Add(2)
	go func() {
		defer l.wg.Done()
		err := mux.Monitor(mctx)
		if mctx.Err() != nil {
			// we asked for this
			return
		}
		l.connected.Store(false)
		if err == nil {
			err = fmt.Errorf("%s: end of stream", l.path)
		}
		l.setLastError(err)
		monitoring.Logf("serial link %s lost: %v", l.path, err)
		mux.Unsubscribe(id)
	}()
	go func() {
		defer l.wg.Done()
		for line := range sub {
			l.deliver(line)
		}
	}()
	return nil
}

func (l *Link) disconnectLocked() {
	if l.mux == nil {
		return
	}
	l.cancel()
	if err := l.mux.Close(); err != nil {
		monitoring.Logf("closing %s: %v", l.path, err)
	}
	l.wg.Wait()
	l.mux = nil
	l.cancel = nil
	l.connected.Store(false)
}

func (l *Link) deliver(line string) {
	l.received.Add(1)
	select {
	case l.lines <- line:
	default:
		l.dropped.Add(1)
	}

	l.tapMu.Lock()
	for _, ch := range l.taps {
		select {
		case ch <- line:
		default:
		}
	}
	l.tapMu.Unlock()
}
