package loop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rangeview/internal/monitoring"
	"github.com/banshee-data/rangeview/internal/serialmux"
	"github.com/banshee-data/rangeview/internal/timeutil"
)

type fakeSource struct {
	mu         sync.Mutex
	pending    []string
	reconnects int
	err        error
}

func (f *fakeSource) push(lines ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, lines...)
}

func (f *fakeSource) Poll(max int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.pending)
	if max > 0 && max < n {
		n = max
	}
	out := f.pending[:n:n]
	f.pending = f.pending[n:]
	return out
}

func (f *fakeSource) Reconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconnects++
	return f.err
}

func (f *fakeSource) Status() serialmux.LinkStatus { return serialmux.LinkStatus{Port: "fake"} }

func TestPumpStep(t *testing.T) {
	src := &fakeSource{}
	var tapped, applied []string
	p := &Pump{
		Source: src,
		Tap:    func(l string) { tapped = append(tapped, l) },
		Ingest: func(l string) bool {
			applied = append(applied, l)
			return !strings.HasPrefix(l, "#")
		},
	}

	n, changed := p.Step()
	assert.Zero(t, n)
	assert.False(t, changed)

	src.push("# hello", "10,200")
	n, changed = p.Step()
	assert.Equal(t, 2, n)
	assert.True(t, changed)
	assert.Equal(t, []string{"# hello", "10,200"}, tapped)
	assert.Equal(t, tapped, applied)

	src.push("# only noise")
	_, changed = p.Step()
	assert.False(t, changed)
}

func TestPumpMaxPerStep(t *testing.T) {
	src := &fakeSource{}
	src.push("a", "b", "c")
	p := &Pump{Source: src, MaxPerStep: 2}

	n, _ := p.Step()
	assert.Equal(t, 2, n)
	n, _ = p.Step()
	assert.Equal(t, 1, n)
}

func TestPumpReconnect(t *testing.T) {
	src := &fakeSource{err: errors.New("busy")}
	hooked := 0
	p := &Pump{Source: src, OnReconnect: func() { hooked++ }}

	assert.EqualError(t, p.Reconnect(), "busy")
	assert.Equal(t, 1, src.reconnects)
	assert.Equal(t, 1, hooked, "hook runs even when reopening fails")

	assert.ErrorIs(t, (&Pump{}).Reconnect(), serialmux.ErrNoPort)
}

func TestHeadlessRun(t *testing.T) {
	var mu sync.Mutex
	var logs []string
	old := monitoring.Logf
	monitoring.SetLogger(func(format string, v ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		logs = append(logs, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() { monitoring.SetLogger(old) })

	clock := timeutil.NewMockClock(time.Unix(100, 0))
	src := &fakeSource{}
	var changes sync.WaitGroup
	changes.Add(1)
	var once sync.Once

	h := &Headless{
		Pump:     &Pump{Source: src, Ingest: func(string) bool { return true }},
		Clock:    clock,
		Tick:     10 * time.Millisecond,
		Report:   time.Second,
		Status:   func() string { return "status ok" },
		OnChange: func() { once.Do(changes.Done) },
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	src.push("1,100")
	require.Eventually(t, func() bool {
		clock.Advance(10 * time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		return len(src.pending) == 0 && len(logs) > 0
	}, 2*time.Second, time.Millisecond)
	changes.Wait()

	cancel()
	require.NoError(t, <-done)
	mu.Lock()
	assert.Equal(t, "status ok", logs[0])
	mu.Unlock()
}
