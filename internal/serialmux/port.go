package serialmux

import (
	"io"
	"time"
)

// SerialPorter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutSerialPorter extends SerialPorter with timeout capabilities.
// go.bug.st/serial ports and the test ports implement it.
type TimeoutSerialPorter interface {
	SerialPorter
	SetReadTimeout(timeout time.Duration) error
}

// DefaultReadTimeout keeps a silent device from stalling a read for long.
const DefaultReadTimeout = 50 * time.Millisecond
