//go:build unix

package sigwait

import (
	"os"
	"os/signal"
)

// Notifier abstracts the platform's signal routing and disposition surface.
// It is primarily useful for injecting mocks during testing.
type Notifier interface {
	// Notify registers the provided channel to receive the given signal.
	Notify(c chan<- os.Signal, sig os.Signal)
	// Stop unregisters the channel from all signals.
	Stop(c chan<- os.Signal)
	// Ignore sets the signal's disposition to ignored.
	Ignore(sig os.Signal)
	// Reset restores the signal's disposition to what it was at
	// program startup.
	Reset(sig os.Signal)
	// Ignored reports whether the signal is currently being ignored.
	Ignored(sig os.Signal) bool
}

// defaultNotifier is the production implementation of Notifier.
// It delegates to the standard library's os/signal package.
type defaultNotifier struct{}

func (defaultNotifier) Notify(c chan<- os.Signal, sig os.Signal) { signal.Notify(c, sig) }
func (defaultNotifier) Stop(c chan<- os.Signal)                  { signal.Stop(c) }
func (defaultNotifier) Ignore(sig os.Signal)                     { signal.Ignore(sig) }
func (defaultNotifier) Reset(sig os.Signal)                      { signal.Reset(sig) }
func (defaultNotifier) Ignored(sig os.Signal) bool               { return signal.Ignored(sig) }
