// Command tofscan shows a rotating time-of-flight scanner as a live polar
// plot, one dot per degree.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/rangeview/internal/app"
	"github.com/banshee-data/rangeview/internal/config"
	"github.com/banshee-data/rangeview/internal/monitoring"
	"github.com/banshee-data/rangeview/internal/recording"
	"github.com/banshee-data/rangeview/internal/render/loop"
	"github.com/banshee-data/rangeview/internal/render/plots"
	"github.com/banshee-data/rangeview/internal/render/web"
	"github.com/banshee-data/rangeview/internal/render/window"
	"github.com/banshee-data/rangeview/internal/scan"
	"github.com/banshee-data/rangeview/internal/serialmux"
	"github.com/banshee-data/rangeview/internal/version"
)

var (
	portFlag     = flag.String("port", app.AutoPort, "Serial port, or AUTO to detect a board")
	baud         = flag.Int("baud", serialmux.ScannerBaudRate, "Serial baud rate")
	maxRange     = flag.Float64("max-range", scan.DefaultMaxRangeMM, "Distance of the outer ring in mm")
	safetyZone   = flag.Bool("safety-zone", false, "Draw the safety zone and count points inside it")
	listen       = flag.String("listen", "", "Serve the web view on this address, e.g. :8080")
	snapshot     = flag.String("snapshot", "", "Write a PNG of the scan to this path on exit")
	record       = flag.String("record", "", "Record received lines into this sqlite database")
	replay       = flag.String("replay", "", "Play back a session from this sqlite database instead of a device")
	session      = flag.String("session", recording.LatestSession, "Session id to replay")
	replaySpeed  = flag.Float64("replay-speed", 1, "Playback speed factor")
	listSessions = flag.String("list-sessions", "", "List the sessions recorded in this database and exit")
	listPorts    = flag.Bool("list-ports", false, "List serial ports and exit")
	devMode      = flag.Bool("dev", false, "Use a synthetic sweep instead of a device")
	headless     = flag.Bool("headless", false, "Run without a window")
	configPath   = flag.String("config", "", "JSON settings file; flags override it")
	verbose      = flag.Bool("verbose", false, "Log dropped lines")
	showVersion  = flag.Bool("version", false, "Print the version and exit")
)

// applySettings fills every flag not given on the command line from s.
func applySettings(s *config.Settings, set map[string]bool) {
	if !set["port"] && s.Port != nil {
		*portFlag = s.GetPort()
	}
	if !set["baud"] {
		*baud = s.GetBaudRate(*baud)
	}
	if !set["max-range"] {
		*maxRange = s.GetMaxRangeMM()
	}
	if !set["safety-zone"] && s.ShowSafetyZone != nil {
		*safetyZone = s.GetShowSafetyZone()
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

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.Banner("tofscan"))
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
	if *maxRange <= 0 {
		log.Fatalf("--max-range must be positive, got %g", *maxRange)
	}
	serialOpts, err := serialmux.PortOptions{BaudRate: *baud}.Normalise()
	if err != nil {
		log.Fatalf("invalid serial options: %v", err)
	}
	var zone *scan.SafetyZone
	if *safetyZone {
		z := settings.GetSafetyZone()
		zone = &z
	}

	log.Print(version.Banner("tofscan"))
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.Start(ctx, app.Options{
		Tool:          "tofscan",
		Port:          *portFlag,
		Serial:        serialOpts,
		Dev:           *devMode,
		DevLines:      scan.SyntheticSweep(1),
		DevInterval:   5 * time.Millisecond,
		Record:        *record,
		FlushInterval: settings.GetFlushInterval(),
		Replay:        *replay,
		Session:       *session,
		ReplaySpeed:   *replaySpeed,
	})
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer rt.Close()

	bins := scan.NewBins(*maxRange)
	pump := &loop.Pump{
		Source: rt.Link,
		Tap:    rt.Tap,
		Ingest: func(line string) bool {
			if _, err := bins.Ingest(line); err != nil {
				monitoring.Debugf("dropped line %q: %v", line, err)
				return false
			}
			return true
		},
	}

	var wg sync.WaitGroup
	if *listen != "" {
		srv := web.NewServer(*listen, web.Sources{
			Tool:     "tofscan",
			Bins:     bins,
			Zone:     zone,
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

	if *headless {
		h := &loop.Headless{
			Pump:   pump,
			Report: 5 * time.Second,
			Status: func() string {
				st := rt.Link.Status()
				return fmt.Sprintf("port=%s connected=%v bins=%d updates=%d dropped=%d",
					st.Port, st.Connected, bins.Count(), bins.Updates(), st.Dropped)
			},
		}
		if err := h.Run(ctx); err != nil {
			log.Printf("headless loop: %v", err)
		}
	} else {
		game := &window.ScanGame{
			Pump:  pump,
			Bins:  bins,
			Link:  rt.Link,
			Zone:  zone,
			Title: "ToF Scanner - " + version.Banner("tofscan"),
			Done:  ctx.Done(),
		}
		if err := game.Run(); err != nil {
			log.Printf("window: %v", err)
		}
	}
	stop()
	wg.Wait()

	if *snapshot != "" {
		if err := saveSnapshot(*snapshot, bins, zone); err != nil {
			log.Printf("snapshot failed: %v", err)
		} else {
			log.Printf("wrote snapshot %s", *snapshot)
		}
	}
}

func saveSnapshot(path string, bins *scan.Bins, zone *scan.SafetyZone) error {
	p, err := plots.ScanPlot(bins.Snapshot(), bins.MaxRange(), zone)
	if err != nil {
		return err
	}
	return plots.SavePNG(p, plots.DefaultSize, path)
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
