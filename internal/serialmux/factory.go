package serialmux

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// NewRealSerialMux creates a SerialMux instance backed by a real serial port at the
// given path using the provided serial options. Reads time out after the
// configured read timeout (DefaultReadTimeout if unset) so a silent device
// never blocks shutdown or reconnects.
func NewRealSerialMux(path string, opts PortOptions) (*SerialMux[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	timeout := DefaultReadTimeout
	if opts.ReadTimeout != "" {
		if timeout, err = time.ParseDuration(opts.ReadTimeout); err != nil {
			return nil, fmt.Errorf("invalid read_timeout %q: %w", opts.ReadTimeout, err)
		}
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", path, err)
	}
	// Discard whatever the device buffered before we attached.
	_ = port.ResetInputBuffer()

	return NewSerialMux[serial.Port](port), nil
}
