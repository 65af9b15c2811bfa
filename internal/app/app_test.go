package app

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rangeview/internal/recording"
	"github.com/banshee-data/rangeview/internal/serialmux"
)

func lister(ports ...serialmux.PortInfo) serialmux.PortLister {
	return func() ([]serialmux.PortInfo, error) { return ports, nil }
}

func pollN(t *testing.T, l *serialmux.Link, n int) []string {
	t.Helper()
	var got []string
	require.Eventually(t, func() bool {
		got = append(got, l.Poll(0)...)
		return len(got) >= n
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestSelectPort(t *testing.T) {
	ports := lister(
		serialmux.PortInfo{Path: "/dev/ttyS0", Description: "builtin"},
		serialmux.PortInfo{Path: "/dev/ttyACM0", Description: "Arduino Uno"},
	)

	var out bytes.Buffer
	path, err := SelectPort(strings.NewReader("1\n"), &out, ports)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", path)
	assert.Contains(t, out.String(), "  [0] /dev/ttyS0 - builtin")
	assert.Contains(t, out.String(), "  [1] /dev/ttyACM0 - Arduino Uno")
	assert.Contains(t, out.String(), "Select port number: ")

	// no trailing newline is fine
	path, err = SelectPort(strings.NewReader("0"), &out, ports)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyS0", path)

	for _, in := range []string{"2\n", "-1\n", "abc\n", ""} {
		_, err := SelectPort(strings.NewReader(in), &out, ports)
		assert.ErrorIs(t, err, ErrInvalidSelection, "input %q", in)
	}
}

func TestSelectPortNoPorts(t *testing.T) {
	var out bytes.Buffer
	_, err := SelectPort(strings.NewReader("0\n"), &out, lister())
	assert.ErrorIs(t, err, ErrNoPorts)
	assert.Equal(t, "No serial ports found!\n", out.String())
}

func TestResolvePort(t *testing.T) {
	got, err := ResolvePort("/dev/ttyUSB3", nil)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB3", got)

	got, err = ResolvePort(AutoPort, lister(
		serialmux.PortInfo{Path: "/dev/ttyS0"},
		serialmux.PortInfo{Path: "/dev/cu.usbmodem1101"},
	))
	require.NoError(t, err)
	assert.Equal(t, "/dev/cu.usbmodem1101", got)

	got, err = ResolvePort(AutoPort, lister(serialmux.PortInfo{Path: "/dev/ttyS0"}))
	require.NoError(t, err)
	assert.Empty(t, got)

	boom := errors.New("no permission")
	_, err = ResolvePort(AutoPort, func() ([]serialmux.PortInfo, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestStartWithoutDevice(t *testing.T) {
	rt, err := Start(context.Background(), Options{Tool: "tofscan", Port: AutoPort, Lister: lister()})
	require.NoError(t, err)
	defer rt.Close()

	assert.False(t, rt.Link.Connected())
	assert.Equal(t, serialmux.ErrNoPort.Error(), rt.Link.Status().LastError)
}

func TestStartDev(t *testing.T) {
	rt, err := Start(context.Background(), Options{
		Tool:        "tofscan",
		Dev:         true,
		DevLines:    []string{"0,100", "1,200"},
		DevInterval: time.Millisecond,
	})
	require.NoError(t, err)
	defer rt.Close()

	assert.Equal(t, "dev", rt.Link.Port())
	got := pollN(t, rt.Link, 3)
	assert.Equal(t, []string{"0,100", "1,200", "0,100"}, got[:3])
}

func TestRecordThenReplay(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "rec.db")

	rt, err := Start(context.Background(), Options{
		Tool:          "gridmap",
		Dev:           true,
		DevLines:      []string{"F:1:10:Z:0:0:500:E", "F:2:20:Z:0:0:510:E"},
		DevInterval:   time.Millisecond,
		Record:        dbPath,
		Serial:        serialmux.PortOptions{BaudRate: serialmux.GridBaudRate},
		FlushInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NotNil(t, rt.Recorder)
	for _, line := range pollN(t, rt.Link, 4) {
		rt.Tap(line)
	}
	rt.Close()
	rt.Close()

	db, err := recording.Open(dbPath)
	require.NoError(t, err)
	sessions, err := db.Sessions()
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.Len(t, sessions, 1)
	assert.Equal(t, "gridmap", sessions[0].Tool)
	assert.Equal(t, "dev", sessions[0].Port)
	assert.Equal(t, serialmux.GridBaudRate, sessions[0].BaudRate)
	assert.GreaterOrEqual(t, sessions[0].LineCount, 4)

	var table bytes.Buffer
	require.NoError(t, PrintSessions(&table, sessions))
	assert.Contains(t, table.String(), sessions[0].ID)

	replay, err := Start(context.Background(), Options{Tool: "gridmap", Replay: dbPath, ReplaySpeed: 100})
	require.NoError(t, err)
	defer replay.Close()
	assert.Equal(t, "replay:"+sessions[0].ID, replay.Link.Port())
	got := pollN(t, replay.Link, 2)
	assert.Equal(t, "F:1:10:Z:0:0:500:E", got[0])
}

func TestStartRejects(t *testing.T) {
	_, err := Start(context.Background(), Options{Record: "a.db", Replay: "b.db"})
	assert.ErrorIs(t, err, ErrRecordAndReplay)

	empty := filepath.Join(t.TempDir(), "empty.db")
	_, err = Start(context.Background(), Options{Replay: empty})
	assert.ErrorIs(t, err, recording.ErrNoSessions)

	_, err = Start(context.Background(), Options{Replay: empty, Session: "missing"})
	assert.ErrorIs(t, err, recording.ErrNoSession)
}

func TestPrintSessionsEmpty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, PrintSessions(&out, nil))
	assert.Equal(t, "No recorded sessions.\n", out.String())
}

func TestSetFlags(t *testing.T) {
	fs := flag.NewFlagSet("t", flag.ContinueOnError)
	fs.String("port", "", "")
	fs.Int("baud", 115200, "")
	require.NoError(t, fs.Parse([]string{"--port", "COM5"}))

	assert.Equal(t, map[string]bool{"port": true}, SetFlags(fs))
}
