//go:build unix

package sigwait

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// SignalName returns the platform name for a signal ("SIGUSR1"), or the
// empty string if the signal is unknown.
func SignalName(sig os.Signal) string {
	n, ok := signum(sig)
	if !ok {
		return ""
	}
	return unix.SignalName(syscall.Signal(n))
}

// ParseSignal resolves a signal from its number ("10"), its name
// ("SIGUSR1"), or its short name in any case ("usr1").
func ParseSignal(s string) (os.Signal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("sigwait: empty signal name")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > Capacity {
			return nil, fmt.Errorf("sigwait: signal number %d out of range", n)
		}
		return syscall.Signal(n), nil
	}
	name := strings.ToUpper(s)
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	if sig := unix.SignalNum(name); sig != 0 {
		return sig, nil
	}
	return nil, fmt.Errorf("sigwait: unknown signal %q", s)
}

// Raise delivers sig to the current process. It is mainly useful for tests
// and for exercising registrations end to end.
func Raise(sig os.Signal) error {
	n, ok := signum(sig)
	if !ok {
		return fmt.Errorf("sigwait: raise %v: %w", sig, unix.EINVAL)
	}
	return unix.Kill(os.Getpid(), syscall.Signal(n))
}
