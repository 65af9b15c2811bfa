// Package web serves a live browser view of the visualiser state: echarts
// pages, a PNG snapshot, a JSON status document and the tsweb debug routes.
package web

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/banshee-data/rangeview/internal/grid"
	"github.com/banshee-data/rangeview/internal/recording"
	"github.com/banshee-data/rangeview/internal/scan"
	"github.com/banshee-data/rangeview/internal/serialmux"
	"github.com/banshee-data/rangeview/internal/version"
)

// Sources is what the server can show. Nil members simply hide their pages.
type Sources struct {
	Tool string

	Bins     *scan.Bins
	Zone     *scan.SafetyZone // nil when the overlay is off
	Grid     *grid.Map
	Link     *serialmux.Link
	Recorder *recording.Recorder
	DB       *recording.DB

	// AssetsHost overrides where the echarts JavaScript is loaded from.
	AssetsHost string
}

// Server handles the HTTP interface.
type Server struct {
	address string
	src     Sources
	mux     *http.ServeMux
	server  *http.Server
}

// NewServer builds the routes for src.
func NewServer(address string, src Sources) *Server {
	s := &Server{address: address, src: src}
	s.mux = s.setupRoutes()
	s.server = &http.Server{
		Addr:              address,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the routes for tests and embedding.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleDashboard)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/snapshot.png", s.handleSnapshot)
	if s.src.Bins != nil {
		mux.HandleFunc("/scan", s.handleScan)
	}
	if s.src.Grid != nil {
		mux.HandleFunc("/grid/heatmap", s.handleGridHeatmap)
		mux.HandleFunc("/grid/3d", s.handleGrid3D)
	}
	if s.src.Link != nil {
		s.src.Link.AttachAdminRoutes(mux)
	}
	if s.src.DB != nil {
		if err := s.src.DB.AttachAdminRoutes(mux); err != nil {
			log.Printf("recording debug routes unavailable: %v", err)
		}
	}
	return mux
}

// Start serves until ctx is done. A listen failure is logged and returned;
// the visualiser keeps running without its web view.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on %s", s.address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := s.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("HTTP server routine stopped")
	return nil
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Status is the /api/status document.
type Status struct {
	Tool      string                `json:"tool"`
	Version   string                `json:"version"`
	Link      *serialmux.LinkStatus `json:"link,omitempty"`
	Scan      *ScanStatus           `json:"scan,omitempty"`
	Grid      *grid.Stats           `json:"grid,omitempty"`
	Recording *RecordingStatus      `json:"recording,omitempty"`
}

type ScanStatus struct {
	Bins       int    `json:"bins"`
	Updates    uint64 `json:"updates"`
	Intrusions *int   `json:"intrusions,omitempty"`
}

type RecordingStatus struct {
	Session string `json:"session"`
	Written uint64 `json:"written"`
	Dropped uint64 `json:"dropped"`
}

func (s *Server) status() Status {
	st := Status{Tool: s.src.Tool, Version: version.Version}
	if s.src.Link != nil {
		ls := s.src.Link.Status()
		st.Link = &ls
	}
	if b := s.src.Bins; b != nil {
		st.Scan = &ScanStatus{Bins: b.Count(), Updates: b.Updates()}
		if s.src.Zone != nil {
			n := b.Intrusions(*s.src.Zone)
			st.Scan.Intrusions = &n
		}
	}
	if s.src.Grid != nil {
		gs := s.src.Grid.Stats()
		st.Grid = &gs
	}
	if r := s.src.Recorder; r != nil {
		st.Recording = &RecordingStatus{Session: r.Session().ID, Written: r.Written(), Dropped: r.Dropped()}
	}
	return st
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.status())
}
