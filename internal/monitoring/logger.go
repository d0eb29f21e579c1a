// Package monitoring holds the diagnostic logger shared by the segmentation
// packages. Library code never writes to the standard logger directly; it
// goes through Logf so tests and embedding programs can redirect or mute it.
package monitoring

import (
	"log"
	"time"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Elapsed logs how long a named stage took, measured from start.
// Intended for use with defer: defer monitoring.Elapsed("slice", time.Now()).
func Elapsed(stage string, start time.Time) {
	Logf("[%s] took %s", stage, time.Since(start).Round(time.Microsecond))
}
