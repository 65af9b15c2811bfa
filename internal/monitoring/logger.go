package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

var debug atomic.Bool

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetDebug enables or disables Debugf output (the --verbose flag).
func SetDebug(on bool) { debug.Store(on) }

// Debugf logs through Logf only when debug output is enabled. Used for
// per-line noise such as dropped serial lines.
func Debugf(format string, v ...interface{}) {
	if debug.Load() {
		Logf("[debug] "+format, v...)
	}
}
