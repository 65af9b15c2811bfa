package grid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rangeview/internal/timeutil"
)

func newTestMap(t *testing.T, size int) (*Map, *timeutil.MockClock) {
	t.Helper()
	clock := timeutil.NewMockClock(time.UnixMilli(10_000))
	m, err := NewMap(size, clock)
	require.NoError(t, err)
	return m, clock
}

func TestNewMapRejectsBadSize(t *testing.T) {
	_, err := NewMap(5, nil)
	assert.ErrorIs(t, err, ErrBadSize)

	m, err := NewMap(8, nil)
	require.NoError(t, err)
	assert.Equal(t, 8, m.Size())
}

func TestIngestPopulatesMap(t *testing.T) {
	m, _ := newTestMap(t, 4)
	require.NoError(t, m.Ingest("F:1:1000:Z:0:0:500:Z:5:0:300:E"))

	s := m.Snapshot()
	d, ok := s.At(0, 0)
	assert.True(t, ok)
	assert.Equal(t, int16(500), d)
	assert.Equal(t, 1, s.Stats.Valid)
	assert.Equal(t, 16, s.Stats.Total)
	assert.Equal(t, int64(1), s.Stats.FrameNumber)
}

func TestIngestClearsPreviousFrame(t *testing.T) {
	m, _ := newTestMap(t, 4)
	require.NoError(t, m.Ingest("F:1:0:Z:0:0:500:Z:1:1:600:E"))
	require.NoError(t, m.Ingest("F:2:0:Z:2:2:700:E"))

	s := m.Snapshot()
	_, ok := s.At(0, 0)
	assert.False(t, ok, "cells from the previous frame must not persist")
	d, _ := s.At(0, 0)
	assert.Zero(t, d)
	d, ok = s.At(2, 2)
	assert.True(t, ok)
	assert.Equal(t, int16(700), d)
	assert.Equal(t, 1, s.Stats.Valid)
}

func TestIngestNoNewData(t *testing.T) {
	m, _ := newTestMap(t, 4)
	require.NoError(t, m.Ingest("F:1:0:Z:0:0:500:E"))

	err := m.Ingest("F:2:0:Z:9:9:500:E")
	assert.ErrorIs(t, err, ErrNoNewData)

	st := m.Stats()
	assert.Equal(t, int64(2), st.FrameCount, "empty frames still count")
	assert.Zero(t, st.Valid, "map is cleared even when nothing was accepted")
}

func TestIngestDropsNonFrames(t *testing.T) {
	m, _ := newTestMap(t, 4)
	assert.ErrorIs(t, m.Ingest("VL53L7CX ready"), ErrNotFrame)
	assert.ErrorIs(t, m.Ingest("F:1"), ErrBadHeader)
	assert.Zero(t, m.Stats().FrameCount)
}

func TestLatencyAndFPS(t *testing.T) {
	m, clock := newTestMap(t, 4)

	// host clock is at 10_000 ms; device says 9_960 ms
	require.NoError(t, m.Ingest("F:1:9960:Z:0:0:500:E"))
	st := m.Stats()
	assert.InDelta(t, 40, st.LatencyMS, 1e-6)
	assert.Zero(t, st.FPS, "FPS needs two frames")

	clock.Advance(50 * time.Millisecond)
	require.NoError(t, m.Ingest("F:2:10000:Z:0:0:500:E"))
	st = m.Stats()
	assert.InDelta(t, 20, st.FPS, 1e-6)
	assert.InDelta(t, 50, st.LatencyMS, 1e-6)
	assert.Equal(t, int64(2), st.FrameCount)
}

func TestNegativeLatencyIsReportedAsIs(t *testing.T) {
	m, _ := newTestMap(t, 4)
	require.NoError(t, m.Ingest("F:1:20000:Z:0:0:500:E"))
	assert.InDelta(t, -10_000, m.Stats().LatencyMS, 1e-6)
}

func TestSnapshotIsACopy(t *testing.T) {
	m, _ := newTestMap(t, 4)
	require.NoError(t, m.Ingest("F:1:0:Z:0:0:500:E"))
	s := m.Snapshot()
	s.Distance[0] = 1
	s.Valid[1] = true

	again := m.Snapshot()
	d, _ := again.At(0, 0)
	assert.Equal(t, int16(500), d)
	_, ok := again.At(0, 1)
	assert.False(t, ok)
}

func TestSyntheticFrameFullyValid(t *testing.T) {
	for _, size := range []int{4, 8} {
		m, _ := newTestMap(t, size)
		for n := int64(0); n < 40; n++ {
			require.NoError(t, m.Ingest(SyntheticFrame(n, size, 0)))
			assert.Equal(t, size*size, m.Stats().Valid)
		}
	}
}

func TestStatsTitle(t *testing.T) {
	s := Stats{FrameCount: 12, FrameNumber: 99, FPS: 24.96, LatencyMS: 31.4, Valid: 15, Total: 16}

	assert.Equal(t, "VL53L7CX Low Latency | Frame: 12 | FPS: 25.0 | Valid: 15/16 | Latency: 31ms", s.Title(ModeHeatmap))
	assert.Equal(t, "VL53L7CX 3D | FPS: 25.0 | Valid: 15/16 | Latency: 31ms", s.Title(Mode3D))
	assert.Equal(t, "VL53L7CX | FPS: 25.0 | Valid: 15/16 | Latency: 31ms", s.Title(ModeBoth))
}
