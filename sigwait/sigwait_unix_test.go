//go:build unix

package sigwait

import (
	"errors"
	"syscall"
	"testing"
	"time"
)

// These tests exercise the production Notifier with real deliveries via
// Raise, so each test owns a distinct signal number.

func TestRealSignalSingleWait(t *testing.T) {
	tb := New()
	defer tb.Close()

	h, err := tb.Install(syscall.SIGUSR1)
	if err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = Raise(syscall.SIGUSR1)
	}()

	idx, err := tb.WaitAny([]Handle{h}, 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if idx != 0 {
		t.Fatalf("expected index 0, got %d", idx)
	}
	waitForCount(t, tb, h, 1)

	if err := tb.Uninstall(h); err != nil {
		t.Fatal(err)
	}
}

func TestRealSignalSharedFanOut(t *testing.T) {
	tb := New()
	defer tb.Close()

	a, err := tb.Install(syscall.SIGUSR2)
	if err != nil {
		t.Fatal(err)
	}
	b, err := tb.Install(syscall.SIGUSR2)
	if err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = Raise(syscall.SIGUSR2)
	}()

	idx, err := tb.WaitAny([]Handle{a, b}, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if idx != 0 {
		t.Fatalf("expected index 0, got %d", idx)
	}
	waitForCount(t, tb, a, 1)
	waitForCount(t, tb, b, 1)
}

func TestRealSignalUnwaitedCount(t *testing.T) {
	tb := New()
	defer tb.Close()

	h, err := tb.Install(syscall.SIGWINCH)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := Raise(syscall.SIGWINCH); err != nil {
			t.Fatal(err)
		}
		// Raising back to back can coalesce in the runtime's queue when
		// the channel reader lags; pace the deliveries.
		waitForCount(t, tb, h, uint64(i+1))
	}
}

func TestRealSignalTimeoutNeverRaised(t *testing.T) {
	tb := New()
	defer tb.Close()

	c, err := tb.Install(syscall.SIGHUP)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := tb.WaitAny([]Handle{c}, 50*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got idx=%d err=%v", idx, err)
	}
	if got, _ := tb.Fired(c); got != 0 {
		t.Fatalf("fired count = %d, want 0", got)
	}
}

func TestDefaultTableConvenience(t *testing.T) {
	h, err := Install(syscall.SIGPIPE)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := Uninstall(h); err != nil {
			t.Fatal(err)
		}
	}()

	if got, err := Fired(h); err != nil || got != 0 {
		t.Fatalf("Fired = %d, %v", got, err)
	}
	if _, err := WaitAny([]Handle{h}, 10*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}
