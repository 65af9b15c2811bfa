package serialmux

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes one serial device found on the host.
type PortInfo struct {
	Path        string `json:"path"`
	Description string `json:"description"`
	IsUSB       bool   `json:"is_usb"`
	VID         string `json:"vid,omitempty"`
	PID         string `json:"pid,omitempty"`
}

// PortLister enumerates serial ports. Swapped out in tests.
type PortLister func() ([]PortInfo, error)

// ListPorts returns the serial ports on this host sorted by path.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Path:        d.Name,
			Description: d.Product,
			IsUSB:       d.IsUSB,
			VID:         d.VID,
			PID:         d.PID,
		})
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].Path < ports[j].Path })
	return ports, nil
}

var (
	boardNameHints = []string{"usbmodem", "usbserial", "cu.usb"}
	windowsCOMPort = regexp.MustCompile(`^COM[0-9]+$`)
)

// LooksLikeBoard reports whether a port is probably a microcontroller board:
// a USB CDC/serial bridge name, a Windows COMn port or an "arduino" product
// description.
func LooksLikeBoard(p PortInfo) bool {
	name := strings.ToLower(p.Path)
	for _, hint := range boardNameHints {
		if strings.Contains(name, hint) {
			return true
		}
	}
	// `\\.\COM12` and plain `COM3` both reduce to the COMn base name
	base := filepath.Base(strings.ReplaceAll(p.Path, `\`, "/"))
	if windowsCOMPort.MatchString(strings.ToUpper(base)) {
		return true
	}
	return strings.Contains(strings.ToLower(p.Description), "arduino")
}

// AutodetectPort returns the first port that looks like a board, or "" when
// none does.
func AutodetectPort(list PortLister) (string, error) {
	if list == nil {
		list = ListPorts
	}
	ports, err := list()
	if err != nil {
		return "", err
	}
	for _, p := range ports {
		if LooksLikeBoard(p) {
			return p.Path, nil
		}
	}
	return "", nil
}
