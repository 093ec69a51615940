// Package monitoring provides the engine's diagnostic logger and the
// warning recorder used to surface non-fatal problems during dataset loads.
package monitoring

import (
	"fmt"
	"log"
	"sync"
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

// Recorder collects warnings emitted while a dataset is scanned and parsed.
// Skipped files, dropped attributes and discarded reloads all end up here so
// the caller can surface them alongside whatever did load. A nil *Recorder is
// valid; warnings are then only written to the package logger.
type Recorder struct {
	mu       sync.Mutex
	warnings []string
}

// Warnf records a formatted warning and forwards it to the package logger.
func (r *Recorder) Warnf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	Logf("[warn] %s", msg)
	if r == nil {
		return
	}
	r.mu.Lock()
	r.warnings = append(r.warnings, msg)
	r.mu.Unlock()
}

// Warnings returns a copy of all recorded warnings in emission order.
func (r *Recorder) Warnings() []string {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.warnings))
	copy(out, r.warnings)
	return out
}

// Len reports the number of recorded warnings.
func (r *Recorder) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.warnings)
}

// Reset discards all recorded warnings.
func (r *Recorder) Reset() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.warnings = nil
	r.mu.Unlock()
}
