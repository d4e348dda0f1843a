// Package monitoring holds the converter's diagnostic logger and stage
// timing helpers.
package monitoring

import (
	"log"
	"time"

	"github.com/banshee-data/camtransforms/internal/timeutil"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// clock times stages; swapped in tests.
var clock timeutil.Clock = timeutil.RealClock{}

// Stage starts timing a named processing stage. Nothing is logged until
// the returned function is called; it logs the elapsed time, optionally
// followed by a summary.
//
//	done := monitoring.Stage("parse")
//	...
//	done("%d frames", n)
func Stage(name string) func(format string, v ...interface{}) {
	start := clock.Now()
	return func(format string, v ...interface{}) {
		elapsed := clock.Since(start).Round(time.Microsecond)
		if format == "" {
			Logf("%s: done in %s", name, elapsed)
			return
		}
		args := append([]interface{}{name, elapsed}, v...)
		Logf("%s: done in %s: "+format, args...)
	}
}
