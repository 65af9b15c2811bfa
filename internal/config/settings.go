// Package config loads the optional JSON settings file shared by the
// visualisers. Every field is a pointer so a partial file only overrides
// what it names; the Get* methods supply defaults for the rest.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/rangeview/internal/grid"
	"github.com/banshee-data/rangeview/internal/scan"
	"github.com/banshee-data/rangeview/internal/serialmux"
)

// maxFileSize caps settings files at 1 MiB.
const maxFileSize = 1 * 1024 * 1024

var ErrInvalid = errors.New("invalid configuration")

// Settings is the root of the settings file.
type Settings struct {
	// Serial link
	Port     *string `json:"port,omitempty"` // "AUTO" autodetects
	BaudRate *int    `json:"baud_rate,omitempty"`

	// Scanner view
	MaxRangeMM     *float64         `json:"max_range_mm,omitempty"`
	ShowSafetyZone *bool            `json:"show_safety_zone,omitempty"`
	SafetyZone     *scan.SafetyZone `json:"safety_zone,omitempty"`

	// Grid view
	GridSize *int    `json:"grid_size,omitempty"`
	Mode     *string `json:"mode,omitempty"`

	// Web view and recording
	Listen        *string  `json:"listen,omitempty"`
	RecordPath    *string  `json:"record_path,omitempty"`
	FlushInterval *string  `json:"flush_interval,omitempty"` // duration string like "250ms"
	ReplaySpeed   *float64 `json:"replay_speed,omitempty"`

	Verbose *bool `json:"verbose,omitempty"`
}

// Load reads and validates a settings file. The path must end in .json.
func Load(path string) (*Settings, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	s := &Settings{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the values that are set.
func (s *Settings) Validate() error {
	if s.BaudRate != nil && *s.BaudRate <= 0 {
		return fmt.Errorf("%w: baud_rate must be positive, got %d", ErrInvalid, *s.BaudRate)
	}
	if s.MaxRangeMM != nil && *s.MaxRangeMM <= 0 {
		return fmt.Errorf("%w: max_range_mm must be positive, got %g", ErrInvalid, *s.MaxRangeMM)
	}
	if z := s.SafetyZone; z != nil {
		if z.XMin >= z.XMax || z.YMin >= z.YMax {
			return fmt.Errorf("%w: safety_zone min must be below max, got x [%g,%g] y [%g,%g]",
				ErrInvalid, z.XMin, z.XMax, z.YMin, z.YMax)
		}
	}
	if s.GridSize != nil && !grid.ValidSize(*s.GridSize) {
		return fmt.Errorf("%w: grid_size must be 4 or 8, got %d", ErrInvalid, *s.GridSize)
	}
	if s.Mode != nil {
		if _, err := grid.ParseMode(*s.Mode); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	if s.FlushInterval != nil && *s.FlushInterval != "" {
		d, err := time.ParseDuration(*s.FlushInterval)
		if err != nil {
			return fmt.Errorf("%w: flush_interval %q: %v", ErrInvalid, *s.FlushInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("%w: flush_interval must be positive, got %s", ErrInvalid, d)
		}
	}
	if s.ReplaySpeed != nil && *s.ReplaySpeed <= 0 {
		return fmt.Errorf("%w: replay_speed must be positive, got %g", ErrInvalid, *s.ReplaySpeed)
	}
	return nil
}

func (s *Settings) GetPort() string {
	if s.Port == nil {
		return ""
	}
	return *s.Port
}

// GetBaudRate returns the configured rate or fallback, which differs per
// tool (115200 scanner, 921600 grid).
func (s *Settings) GetBaudRate(fallback int) int {
	if s.BaudRate == nil {
		return fallback
	}
	return *s.BaudRate
}

func (s *Settings) GetMaxRangeMM() float64 {
	if s.MaxRangeMM == nil {
		return scan.DefaultMaxRangeMM
	}
	return *s.MaxRangeMM
}

func (s *Settings) GetShowSafetyZone() bool {
	if s.ShowSafetyZone == nil {
		return false
	}
	return *s.ShowSafetyZone
}

func (s *Settings) GetSafetyZone() scan.SafetyZone {
	if s.SafetyZone == nil {
		return scan.DefaultSafetyZone()
	}
	return *s.SafetyZone
}

func (s *Settings) GetGridSize() int {
	if s.GridSize == nil {
		return grid.DefaultSize
	}
	return *s.GridSize
}

func (s *Settings) GetMode() grid.Mode {
	if s.Mode == nil {
		return grid.ModeHeatmap
	}
	m, err := grid.ParseMode(*s.Mode)
	if err != nil {
		return grid.ModeHeatmap
	}
	return m
}

func (s *Settings) GetListen() string {
	if s.Listen == nil {
		return ""
	}
	return *s.Listen
}

func (s *Settings) GetRecordPath() string {
	if s.RecordPath == nil {
		return ""
	}
	return *s.RecordPath
}

// GetFlushInterval returns how often the recorder commits, 250ms by default.
func (s *Settings) GetFlushInterval() time.Duration {
	if s.FlushInterval == nil || *s.FlushInterval == "" {
		return 250 * time.Millisecond
	}
	d, err := time.ParseDuration(*s.FlushInterval)
	if err != nil || d <= 0 {
		return 250 * time.Millisecond
	}
	return d
}

func (s *Settings) GetReplaySpeed() float64 {
	if s.ReplaySpeed == nil {
		return 1
	}
	return *s.ReplaySpeed
}

func (s *Settings) GetVerbose() bool {
	return s.Verbose != nil && *s.Verbose
}

// PortOptions returns the serial options for these settings.
func (s *Settings) PortOptions(fallbackBaud int) (serialmux.PortOptions, error) {
	return serialmux.PortOptions{BaudRate: s.GetBaudRate(fallbackBaud)}.Normalise()
}
