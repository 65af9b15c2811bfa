package main

import (
	"bytes"
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rangeview/internal/config"
	"github.com/banshee-data/rangeview/internal/grid"
	"github.com/banshee-data/rangeview/internal/monitoring"
	"github.com/banshee-data/rangeview/internal/timeutil"
)

func TestApplySettings(t *testing.T) {
	oldPort, oldBaud, oldMode, oldGrid := *portFlag, *baudRate, *modeFlag, *gridSize
	t.Cleanup(func() { *portFlag, *baudRate, *modeFlag, *gridSize = oldPort, oldBaud, oldMode, oldGrid })

	port, b, mode, size := "/dev/ttyACM0", 460800, "heatmap", 8
	s := &config.Settings{Port: &port, BaudRate: &b, Mode: &mode, GridSize: &size}

	*modeFlag = "3d"
	applySettings(s, map[string]bool{"mode": true})

	assert.Equal(t, "/dev/ttyACM0", *portFlag)
	assert.Equal(t, 460800, *baudRate)
	assert.Equal(t, "3d", *modeFlag, "command line wins")
	assert.Equal(t, 8, *gridSize)
}

func TestFlagDefaults(t *testing.T) {
	assert.Equal(t, "heatmap", flag.Lookup("mode").DefValue)
	assert.Equal(t, "4", flag.Lookup("grid").DefValue)
	assert.Equal(t, "921600", flag.Lookup("baudrate").DefValue)
	assert.Equal(t, "", flag.Lookup("port").DefValue)
}

func TestApplyEmptySettingsKeepsBaud(t *testing.T) {
	oldBaud := *baudRate
	t.Cleanup(func() { *baudRate = oldBaud })

	applySettings(&config.Settings{}, map[string]bool{})
	assert.Equal(t, oldBaud, *baudRate)
}

func captureLogs(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	old := monitoring.Logf
	monitoring.Logf = func(format string, args ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}
	t.Cleanup(func() { monitoring.Logf = old })
	return &lines
}

func TestDeviceLogWindow(t *testing.T) {
	logs := captureLogs(t)
	clock := timeutil.NewMockClock(time.Unix(100, 0))
	d := newDeviceLog(clock)

	assert.True(t, d.observe("VL53L7CX ready"))
	assert.False(t, d.observe("F:1:100:Z:0:0:500:E"), "frames are not device messages")
	assert.False(t, d.observe("   "))

	clock.Advance(2500 * time.Millisecond)
	assert.False(t, d.observe("late chatter"))

	d.reset()
	assert.True(t, d.observe("rebooted"))

	assert.Equal(t, []string{"  Device: VL53L7CX ready", "  Device: rebooted"}, *logs)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	printBanner(&buf, "COM3", 921600, grid.ModeBoth, 4)
	out := buf.String()
	assert.Contains(t, out, "VL53L7CX LOW LATENCY MAPPER")
	assert.Contains(t, out, "Port:      COM3")
	assert.Contains(t, out, "Grid:      4x4")
	assert.Contains(t, out, "Target:    <50ms latency, >20 FPS")
}

func TestDevFramesParse(t *testing.T) {
	frames := devFrames(8)
	require.Len(t, frames, devFrameCount)
	for _, line := range frames[:5] {
		f, err := grid.ParseFrame(line, 8)
		require.NoError(t, err)
		assert.NotEmpty(t, f.Zones)
	}
}

func decodePNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = png.Decode(f)
	require.NoError(t, err)
}

func TestSaveSnapshots(t *testing.T) {
	m, err := grid.NewMap(4, timeutil.NewMockClock(time.UnixMilli(1000)))
	require.NoError(t, err)
	require.NoError(t, m.Ingest(grid.SyntheticFrame(3, 4, 950)))

	dir := t.TempDir()
	cases := []struct {
		mode grid.Mode
		want []string
	}{
		{grid.ModeHeatmap, []string{"heat.png"}},
		{grid.Mode3D, []string{"cloud.png"}},
		{grid.ModeBoth, []string{"both.png", "both-3d.png"}},
	}
	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			path := filepath.Join(dir, tc.want[0])
			written, err := saveSnapshots(path, m.Snapshot(), tc.mode)
			require.NoError(t, err)

			var want []string
			for _, name := range tc.want {
				want = append(want, filepath.Join(dir, name))
			}
			assert.Equal(t, want, written)
			for _, p := range written {
				decodePNG(t, p)
			}
		})
	}
}
