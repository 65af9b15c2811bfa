// Command gridmap shows a VL53L7CX multi-zone sensor as a heatmap, a 3D
// point cloud or both.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/rangeview/internal/app"
	"github.com/banshee-data/rangeview/internal/config"
	"github.com/banshee-data/rangeview/internal/grid"
	"github.com/banshee-data/rangeview/internal/monitoring"
	"github.com/banshee-data/rangeview/internal/recording"
	"github.com/banshee-data/rangeview/internal/render/loop"
	"github.com/banshee-data/rangeview/internal/render/plots"
	"github.com/banshee-data/rangeview/internal/render/web"
	"github.com/banshee-data/rangeview/internal/render/window"
	"github.com/banshee-data/rangeview/internal/serialmux"
	"github.com/banshee-data/rangeview/internal/timeutil"
	"github.com/banshee-data/rangeview/internal/version"
)

var (
	portFlag     = flag.String("port", "", "Serial port; AUTO detects a board, empty prompts for one")
	baudRate     = flag.Int("baudrate", serialmux.GridBaudRate, "Serial baud rate")
	modeFlag     = flag.String("mode", string(grid.ModeHeatmap), "Visualization mode: heatmap, 3d or both")
	gridSize     = flag.Int("grid", grid.DefaultSize, "Grid size: 4 or 8")
	listPorts    = flag.Bool("list-ports", false, "List serial ports and exit")
	listen       = flag.String("listen", "", "Serve the web view on this address, e.g. :8080")
	snapshot     = flag.String("snapshot", "", "Write a PNG of the last frame to this path on exit")
	record       = flag.String("record", "", "Record received lines into this sqlite database")
	replay       = flag.String("replay", "", "Play back a session from this sqlite database instead of a device")
	session      = flag.String("session", recording.LatestSession, "Session id to replay")
	replaySpeed  = flag.Float64("replay-speed", 1, "Playback speed factor")
	listSessions = flag.String("list-sessions", "", "List the sessions recorded in this database and exit")
	devMode      = flag.Bool("dev", false, "Use synthetic frames instead of a device")
	headless     = flag.Bool("headless", false, "Run without a window")
	configPath   = flag.String("config", "", "JSON settings file; flags override it")
	verbose      = flag.Bool("verbose", false, "Log rejected lines")
	showVersion  = flag.Bool("version", false, "Print the version and exit")
)

// deviceWindow is how long after connecting non-frame lines are shown as
// device messages.
const deviceWindow = 2 * time.Second

func applySettings(s *config.Settings, set map[string]bool) {
	if !set["port"] && s.Port != nil {
		*portFlag = s.GetPort()
	}
	if !set["baudrate"] {
		*baudRate = s.GetBaudRate(*baudRate)
	}
	if !set["mode"] && s.Mode != nil {
		*modeFlag = string(s.GetMode())
	}
	if !set["grid"] && s.GridSize != nil {
		*gridSize = s.GetGridSize()
	}
	if !set["listen"] && s.Listen != nil {
		*listen = s.GetListen()
	}
	if !set["record"] && s.RecordPath != nil {
		*record = s.GetRecordPath()
	}
	if !set["replay-speed"] {
		*replaySpeed = s.GetReplaySpeed()
	}
	if !set["verbose"] && s.Verbose != nil {
		*verbose = s.GetVerbose()
	}
}

// deviceLog echoes the firmware's start-up chatter: lines that are not
// frames, for a short while after each (re)connect.
type deviceLog struct {
	clock  timeutil.Clock
	since  time.Time
	window time.Duration
}

func newDeviceLog(clock timeutil.Clock) *deviceLog {
	d := &deviceLog{clock: clock, window: deviceWindow}
	d.reset()
	return d
}

func (d *deviceLog) reset() { d.since = d.clock.Now() }

// observe logs line when it is a device message inside the window and
// reports whether it did.
func (d *deviceLog) observe(line string) bool {
	if strings.HasPrefix(line, "F:") || strings.TrimSpace(line) == "" {
		return false
	}
	if d.clock.Since(d.since) > d.window {
		return false
	}
	monitoring.Logf("  Device: %s", line)
	return true
}

func printBanner(w io.Writer, port string, baud int, mode grid.Mode, size int) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(w, "\n%s\nVL53L7CX LOW LATENCY MAPPER\n%s\n", rule, rule)
	fmt.Fprintf(w, "Port:      %s\n", port)
	fmt.Fprintf(w, "Baud:      %d\n", baud)
	fmt.Fprintf(w, "Mode:      %s\n", mode)
	fmt.Fprintf(w, "Grid:      %dx%d\n", size, size)
	fmt.Fprintf(w, "Target:    <50ms latency, >20 FPS\n")
	fmt.Fprintf(w, "%s\n\n", rule)
}

// devFrameCount synthetic frames are cycled by --dev.
const devFrameCount = 80

func devFrames(size int) []string {
	lines := make([]string, 0, devFrameCount)
	for n := int64(0); n < devFrameCount; n++ {
		lines = append(lines, grid.SyntheticFrame(n, size, n*50))
	}
	return lines
}

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.Banner("gridmap"))
		return
	}

	settings := &config.Settings{}
	if *configPath != "" {
		var err error
		if settings, err = config.Load(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	applySettings(settings, app.SetFlags(flag.CommandLine))
	monitoring.SetDebug(*verbose)

	if *listSessions != "" {
		if err := printSessions(*listSessions); err != nil {
			log.Fatalf("failed to list sessions: %v", err)
		}
		return
	}
	if *listPorts {
		ports, err := serialmux.ListPorts()
		if err != nil {
			log.Fatalf("failed to list serial ports: %v", err)
		}
		app.PrintPorts(os.Stdout, ports)
		return
	}

	mode, err := grid.ParseMode(*modeFlag)
	if err != nil {
		log.Fatalf("invalid --mode: %v", err)
	}
	if !grid.ValidSize(*gridSize) {
		log.Fatalf("invalid --grid %d: %v", *gridSize, grid.ErrBadSize)
	}
	serialOpts, err := serialmux.PortOptions{BaudRate: *baudRate}.Normalise()
	if err != nil {
		log.Fatalf("invalid serial options: %v", err)
	}

	if *portFlag == "" && !*devMode && *replay == "" {
		*portFlag, err = app.SelectPort(os.Stdin, os.Stdout, nil)
		if err != nil {
			if errors.Is(err, app.ErrInvalidSelection) {
				fmt.Println("Invalid selection")
			}
			os.Exit(1)
		}
	}
	printBanner(os.Stdout, *portFlag, serialOpts.BaudRate, mode, *gridSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := timeutil.RealClock{}
	rt, err := app.Start(ctx, app.Options{
		Tool:          "gridmap",
		Port:          *portFlag,
		Serial:        serialOpts,
		Dev:           *devMode,
		DevLines:      devFrames(*gridSize),
		DevInterval:   50 * time.Millisecond,
		Record:        *record,
		FlushInterval: settings.GetFlushInterval(),
		Replay:        *replay,
		Session:       *session,
		ReplaySpeed:   *replaySpeed,
		Clock:         clock,
	})
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer rt.Close()

	m, err := grid.NewMap(*gridSize, clock)
	if err != nil {
		log.Fatalf("failed to create grid: %v", err)
	}
	devLog := newDeviceLog(clock)
	pump := &loop.Pump{
		Source:      rt.Link,
		Tap:         rt.Tap,
		OnReconnect: devLog.reset,
		Ingest: func(line string) bool {
			err := m.Ingest(line)
			switch {
			case err == nil:
				return true
			case errors.Is(err, grid.ErrNotFrame):
				if !devLog.observe(line) {
					monitoring.Debugf("dropped line %q", line)
				}
			case errors.Is(err, grid.ErrNoNewData):
			default:
				monitoring.Debugf("dropped line %q: %v", line, err)
			}
			return false
		},
	}

	var wg sync.WaitGroup
	if *listen != "" {
		srv := web.NewServer(*listen, web.Sources{
			Tool:     "gridmap",
			Grid:     m,
			Link:     rt.Link,
			Recorder: rt.Recorder,
			DB:       rt.DB,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Start(ctx); err != nil {
				log.Printf("web view unavailable: %v", err)
			}
		}()
	}

	fmt.Printf("Starting visualization (mode: %s)\n", mode)
	if *headless {
		h := &loop.Headless{
			Pump:   pump,
			Clock:  clock,
			Report: 5 * time.Second,
			Status: func() string { return m.Stats().Title(mode) },
		}
		if err := h.Run(ctx); err != nil {
			log.Printf("headless loop: %v", err)
		}
	} else {
		fmt.Println("  Close window to exit")
		game := &window.GridGame{Pump: pump, Map: m, Mode: mode, Done: ctx.Done()}
		if err := game.Run(); err != nil {
			log.Printf("window: %v", err)
		}
	}
	stop()
	wg.Wait()

	if *snapshot != "" {
		written, err := saveSnapshots(*snapshot, m.Snapshot(), mode)
		if err != nil {
			log.Printf("snapshot failed: %v", err)
		}
		for _, p := range written {
			log.Printf("wrote snapshot %s", p)
		}
	}
}

// saveSnapshots writes one PNG per view in mode. In both mode the point
// cloud goes next to path with a -3d suffix.
func saveSnapshots(path string, snap grid.Snapshot, mode grid.Mode) ([]string, error) {
	var written []string
	if mode.ShowsHeatmap() {
		p, err := plots.GridHeatmap(snap)
		if err != nil {
			return written, err
		}
		if err := plots.SavePNG(p, plots.DefaultSize, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if mode.Shows3D() {
		out := path
		if mode == grid.ModeBoth {
			ext := filepath.Ext(path)
			out = strings.TrimSuffix(path, ext) + "-3d" + ext
		}
		p, err := plots.GridCloud(snap, grid.DefaultElevationDeg, grid.DefaultAzimuthDeg)
		if err != nil {
			return written, err
		}
		if err := plots.SavePNG(p, plots.DefaultSize, out); err != nil {
			return written, err
		}
		written = append(written, out)
	}
	return written, nil
}

func printSessions(path string) error {
	db, err := recording.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	sessions, err := db.Sessions()
	if err != nil {
		return err
	}
	return app.PrintSessions(os.Stdout, sessions)
}
