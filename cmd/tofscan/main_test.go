package main

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rangeview/internal/config"
	"github.com/banshee-data/rangeview/internal/recording"
	"github.com/banshee-data/rangeview/internal/scan"
)

func TestApplySettings(t *testing.T) {
	oldPort, oldBaud, oldRange, oldZone, oldListen := *portFlag, *baud, *maxRange, *safetyZone, *listen
	t.Cleanup(func() {
		*portFlag, *baud, *maxRange, *safetyZone, *listen = oldPort, oldBaud, oldRange, oldZone, oldListen
	})

	port, b, r, zone, addr := "/dev/ttyACM1", 57600, 2400.0, true, ":9000"
	s := &config.Settings{Port: &port, BaudRate: &b, MaxRangeMM: &r, ShowSafetyZone: &zone, Listen: &addr}

	*portFlag = "COM7"
	applySettings(s, map[string]bool{"port": true})

	assert.Equal(t, "COM7", *portFlag, "command line wins")
	assert.Equal(t, 57600, *baud)
	assert.Equal(t, 2400.0, *maxRange)
	assert.True(t, *safetyZone)
	assert.Equal(t, ":9000", *listen)
}

func TestApplyEmptySettingsKeepsFlags(t *testing.T) {
	oldPort, oldBaud := *portFlag, *baud
	t.Cleanup(func() { *portFlag, *baud = oldPort, oldBaud })

	*baud = 230400
	applySettings(&config.Settings{}, map[string]bool{})
	assert.Equal(t, 230400, *baud)
	assert.Equal(t, oldPort, *portFlag)
	assert.Equal(t, scan.DefaultMaxRangeMM, *maxRange)
}

func TestSaveSnapshot(t *testing.T) {
	bins := scan.NewBins(scan.DefaultMaxRangeMM)
	for _, line := range scan.SyntheticSweep(10) {
		_, _ = bins.Ingest(line)
	}
	zone := scan.DefaultSafetyZone()
	path := filepath.Join(t.TempDir(), "scan.png")

	require.NoError(t, saveSnapshot(path, bins, &zone))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = png.Decode(f)
	assert.NoError(t, err)
}

func TestPrintSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.db")
	db, err := recording.Open(path)
	require.NoError(t, err)
	_, err = db.StartSession("tofscan", "/dev/ttyACM0", 115200, time.Now())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	assert.NoError(t, printSessions(path))
}
