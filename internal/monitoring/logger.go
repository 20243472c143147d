// Package monitoring holds the diagnostic loggers shared by the acquisition
// packages.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// Debugf logs per-packet detail. It is a no-op until SetVerbose(true).
var Debugf func(format string, v ...interface{}) = noop

func noop(string, ...interface{}) {}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
// Debugf follows the new logger when verbose output is enabled.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		f = noop
	}
	Logf = f
	if verbose {
		Debugf = f
	}
}

var verbose bool

// SetVerbose routes Debugf to Logf when enabled.
func SetVerbose(on bool) {
	verbose = on
	if on {
		Debugf = Logf
		return
	}
	Debugf = noop
}
