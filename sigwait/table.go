//go:build unix

package sigwait

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"
)

// Capacity is the fixed number of registration slots per table. Exceeding
// it is an explicit error (ErrCapacity), never silent truncation.
const Capacity = 64

// slot is one registration arena entry. signum, fired, writeFD, readFD and
// writers are shared with the dispatch path and accessed via atomics only;
// the remaining fields are owned by the table mutex and never touched
// during fan-out.
type slot struct {
	signum  atomic.Int32 // 0 = free
	fired   atomic.Uint64
	writeFD atomic.Int32 // 0 = unarmed
	readFD  atomic.Int32
	writers atomic.Int32 // in-flight fan-out writes pinning writeFD
	gen     atomic.Uint32

	hasPrior     bool
	priorIgnored bool
}

// Handle is an opaque reference to one installed registration. It stays
// valid until Uninstall; using it afterwards yields ErrInvalidHandle, even
// if the slot has since been reused.
type Handle struct {
	t   *Table
	idx int
	gen uint32
	sig os.Signal
}

// Signal returns the signal this handle was installed for.
func (h Handle) Signal() os.Signal { return h.sig }

// Table maps OS signal deliveries onto waitable registrations. Multiple
// registrations may share one signal number; a single delivery increments
// every matching registration's fired count and wakes any wait armed on it.
//
// The zero value is not usable; call New.
type Table struct {
	mu sync.Mutex

	// configuration
	notifier Notifier
	logf     LoggerFunc
	debug    bool

	// state
	slots   [Capacity]slot
	sigch   chan os.Signal
	started bool
	closed  bool
}

// New returns an empty table. The dispatch goroutine starts lazily on the
// first Install.
func New(opts ...Option) *Table {
	t := &Table{
		notifier: defaultNotifier{},
		logf:     func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Install registers interest in sig and returns a handle for it. The first
// registration for a given signal number captures the signal's prior
// disposition and routes the signal to this table; later registrations for
// the same number share that claim without touching the OS again.
func (t *Table) Install(sig os.Signal) (Handle, error) {
	n, ok := signum(sig)
	if !ok || n < 1 || n > Capacity || n == int32(unix.SIGKILL) || n == int32(unix.SIGSTOP) {
		return Handle{}, fmt.Errorf("sigwait: install %v: %w", sig, unix.EINVAL)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return Handle{}, ErrClosed
	}

	idx := -1
	claimed := false
	priorIgnored := false
	for i := range t.slots {
		s := &t.slots[i]
		num := s.signum.Load()
		if idx < 0 && num == 0 {
			idx = i
		}
		if !claimed && num == n && s.hasPrior {
			claimed = true
			priorIgnored = s.priorIgnored
		}
	}
	if idx < 0 {
		return Handle{}, ErrCapacity
	}

	if t.sigch == nil {
		t.sigch = make(chan os.Signal, Capacity)
		go t.dispatchLoop(t.sigch)
		t.started = true
	}

	if !claimed {
		// First claim on this signal number: record the disposition in
		// effect right now, then take over delivery.
		priorIgnored = t.notifier.Ignored(sig)
		t.notifier.Notify(t.sigch, sig)
	}

	s := &t.slots[idx]
	s.hasPrior = true
	s.priorIgnored = priorIgnored
	s.fired.Store(0)
	// Publish signum last so fan-out only ever sees initialized slots.
	s.signum.Store(n)

	if t.debug {
		t.logf("sigwait: install %v slot=%d", sig, idx)
	}
	return Handle{t: t, idx: idx, gen: s.gen.Load(), sig: sig}, nil
}

// Uninstall removes a registration. If it is the last one for its signal
// number, the signal's prior disposition is restored at the OS level.
// Uninstalling a registration that is armed inside another goroutine's
// WaitAny is refused with ErrBusy.
func (t *Table) Uninstall(h Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	s, err := t.slotOf(h)
	if err != nil {
		return err
	}
	if s.writeFD.Load() != 0 {
		return ErrBusy
	}

	n := s.signum.Load()
	if s.hasPrior && t.holdersLocked(n) == 1 {
		t.restoreLocked(h.sig, s.priorIgnored)
	}
	s.hasPrior = false
	s.signum.Store(0)
	s.gen.Add(1)

	if t.debug {
		t.logf("sigwait: uninstall %v slot=%d", h.sig, h.idx)
	}
	return nil
}

// Fired reports how many deliveries the registration has observed since it
// was installed. It never blocks and takes no locks.
func (t *Table) Fired(h Handle) (uint64, error) {
	if h.t != t || h.idx < 0 || h.idx >= Capacity {
		return 0, ErrInvalidHandle
	}
	s := &t.slots[h.idx]
	if s.gen.Load() != h.gen || s.signum.Load() == 0 {
		return 0, ErrInvalidHandle
	}
	return s.fired.Load(), nil
}

// Close releases every remaining registration, restoring dispositions, and
// stops the dispatch goroutine. It refuses with ErrBusy while any wait is
// armed. All outstanding handles become invalid.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	for i := range t.slots {
		if t.slots[i].writeFD.Load() != 0 {
			return ErrBusy
		}
	}

	restored := make(map[int32]bool)
	for i := range t.slots {
		s := &t.slots[i]
		n := s.signum.Load()
		if n == 0 {
			continue
		}
		if s.hasPrior && !restored[n] {
			restored[n] = true
			t.restoreLocked(syscall.Signal(n), s.priorIgnored)
		}
		s.hasPrior = false
		s.signum.Store(0)
		s.gen.Add(1)
	}

	if t.started {
		t.notifier.Stop(t.sigch)
		close(t.sigch)
		t.sigch = nil
		t.started = false
	}
	t.closed = true
	if t.debug {
		t.logf("sigwait: table closed")
	}
	return nil
}

// slotOf validates a handle against the arena and returns its slot.
// Caller holds t.mu.
func (t *Table) slotOf(h Handle) (*slot, error) {
	if h.t != t || h.idx < 0 || h.idx >= Capacity {
		return nil, ErrInvalidHandle
	}
	s := &t.slots[h.idx]
	if s.gen.Load() != h.gen || s.signum.Load() == 0 {
		return nil, ErrInvalidHandle
	}
	return s, nil
}

// holdersLocked counts registrations for a signal number. Caller holds t.mu.
func (t *Table) holdersLocked(n int32) int {
	count := 0
	for i := range t.slots {
		if t.slots[i].signum.Load() == n {
			count++
		}
	}
	return count
}

// restoreLocked reinstates the disposition captured at first claim: ignored
// signals go back to ignored, everything else back to the program-startup
// disposition. Either call also stops delivery to t.sigch for that signal.
func (t *Table) restoreLocked(sig os.Signal, ignored bool) {
	if ignored {
		t.notifier.Ignore(sig)
	} else {
		t.notifier.Reset(sig)
	}
	if t.debug {
		t.logf("sigwait: restored disposition for %v (ignored=%v)", sig, ignored)
	}
}

// dispatchLoop drains the table's signal channel and fans each delivery out
// to every matching slot. The fan-out path mirrors signal-handler
// discipline: no locks, no allocation, atomics and best-effort non-blocking
// pipe writes only.
func (t *Table) dispatchLoop(sigch <-chan os.Signal) {
	var buf [1]byte
	for sig := range sigch {
		n, ok := signum(sig)
		if !ok {
			continue
		}
		for i := range t.slots {
			s := &t.slots[i]
			if s.signum.Load() != n {
				continue
			}
			s.fired.Add(1)
			// Pin writeFD before loading it so disarm cannot close the
			// descriptor out from under the write.
			s.writers.Add(1)
			if fd := s.writeFD.Load(); fd != 0 {
				buf[0] = byte(n)
				_, _ = unix.Write(int(fd), buf[:])
			}
			s.writers.Add(-1)
		}
	}
}

func signum(sig os.Signal) (int32, bool) {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return 0, false
	}
	return int32(s), true
}
