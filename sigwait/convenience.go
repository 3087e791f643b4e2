//go:build unix

// Package sigwait bridges asynchronous Unix signal delivery into a
// synchronous, waitable model. Callers install interest in signal numbers,
// receive opaque handles, and block with WaitAny until any one of a set of
// registrations observes its signal.
package sigwait

import (
	"os"
	"time"
)

// Default is the shared process-wide table used by the package-level
// helpers.
var Default = New()

// Install registers interest in sig on the Default table.
func Install(sig os.Signal) (Handle, error) { return Default.Install(sig) }

// Uninstall removes a registration from the Default table.
func Uninstall(h Handle) error { return Default.Uninstall(h) }

// WaitAny blocks on the Default table until one of the handles fires or
// the timeout elapses.
func WaitAny(handles []Handle, timeout time.Duration) (int, error) {
	return Default.WaitAny(handles, timeout)
}

// Fired returns the delivery count for a Default-table registration.
func Fired(h Handle) (uint64, error) { return Default.Fired(h) }

// SetLogger sets the logger for the Default table. Safe for concurrent use.
func SetLogger(l LoggerFunc) {
	Default.mu.Lock()
	Default.logf = l
	Default.mu.Unlock()
}

// SetDebug toggles debug logging for the Default table. Safe for
// concurrent use.
func SetDebug(enabled bool) {
	Default.mu.Lock()
	Default.debug = enabled
	Default.mu.Unlock()
}
