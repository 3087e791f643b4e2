//go:build unix

package sigwait

import (
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sys/unix"
)

// WaitAny blocks until at least one of the given registrations observes a
// delivery, then returns the index (into handles) of the lowest-indexed one
// that fired. A negative timeout blocks indefinitely; zero polls. On
// expiry it returns -1 and ErrTimeout.
//
// Duplicate handles are tolerated; only the first occurrence can be
// reported. A handle already armed by another WaitAny yields ErrBusy.
// Interruption of the underlying poll by an unrelated signal is retried
// internally with the remaining deadline and never surfaced.
func (t *Table) WaitAny(handles []Handle, timeout time.Duration) (int, error) {
	if len(handles) == 0 {
		return -1, ErrNoHandles
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return -1, ErrClosed
	}

	// Validate everything up front so arming never half-commits on a bad
	// handle.
	for _, h := range handles {
		if _, err := t.slotOf(h); err != nil {
			t.mu.Unlock()
			return -1, err
		}
	}

	// Arm one fresh pipe per distinct slot. Track the first input index
	// each armed slot answers for.
	armed := make([]*slot, 0, len(handles))
	firstIdx := make([]int, 0, len(handles))
	fds := make([]unix.PollFd, 0, len(handles))
	seen := make(map[int]bool, len(handles))
	var armErr error
	for i, h := range handles {
		if seen[h.idx] {
			continue
		}
		seen[h.idx] = true
		s := &t.slots[h.idx]
		if s.writeFD.Load() != 0 {
			armErr = ErrBusy
			break
		}
		p, err := newWakePipe()
		if err != nil {
			armErr = err
			break
		}
		s.readFD.Store(int32(p[0]))
		s.writeFD.Store(int32(p[1]))
		armed = append(armed, s)
		firstIdx = append(firstIdx, i)
		fds = append(fds, unix.PollFd{Fd: int32(p[0]), Events: unix.POLLIN})
	}
	if armErr != nil {
		t.disarmLocked(armed)
		t.mu.Unlock()
		return -1, armErr
	}
	// The lock is held only to arm; the dispatch path must stay free to
	// fire while we block.
	t.mu.Unlock()

	idx, waitErr := pollAny(fds, firstIdx, timeout)

	t.mu.Lock()
	t.disarmLocked(armed)
	t.mu.Unlock()

	return idx, waitErr
}

// newWakePipe creates one notification pipe. Both ends are non-blocking:
// the fan-out write must never stall on a full pipe, and the drain must
// never stall on one already emptied.
func newWakePipe() ([2]int, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return p, fmt.Errorf("sigwait: pipe: %w", err)
	}
	for _, fd := range p {
		if err := unix.SetNonblock(fd, true); err != nil {
			_ = unix.Close(p[0])
			_ = unix.Close(p[1])
			return p, fmt.Errorf("sigwait: pipe: %w", err)
		}
		unix.CloseOnExec(fd)
	}
	return p, nil
}

// pollAny blocks on the armed read ends, retrying on EINTR with the
// remaining deadline, and drains one byte from every ready pipe.
func pollAny(fds []unix.PollFd, firstIdx []int, timeout time.Duration) (int, error) {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}

	var n int
	for {
		ms := -1
		if timeout >= 0 {
			remaining := time.Until(deadline)
			if remaining < 0 {
				remaining = 0
			}
			// Round up so a wait never expires short of its deadline.
			ms = int((remaining + time.Millisecond - 1) / time.Millisecond)
		}
		var err error
		n, err = unix.Poll(fds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return -1, fmt.Errorf("sigwait: poll: %w", err)
		}
		break
	}
	if n == 0 {
		return -1, ErrTimeout
	}

	idx := -1
	for i := range fds {
		if fds[i].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) == 0 {
			continue
		}
		var b [1]byte
		_, _ = unix.Read(int(fds[i].Fd), b[:]) // best effort
		if idx == -1 {
			idx = firstIdx[i]
		}
	}
	if idx == -1 {
		// Poll reported readiness we could not attribute; treat as
		// spurious and report a timeout rather than a bogus index.
		return -1, ErrTimeout
	}
	return idx, nil
}

// disarmLocked unpublishes and closes each armed pipe. The write end is
// swapped out first and in-flight fan-out writes drained before close, so
// the dispatch path never writes to a reused descriptor. Caller holds t.mu.
func (t *Table) disarmLocked(armed []*slot) {
	for _, s := range armed {
		wfd := s.writeFD.Swap(0)
		rfd := s.readFD.Swap(0)
		for s.writers.Load() != 0 {
			runtime.Gosched()
		}
		if wfd != 0 {
			_ = unix.Close(int(wfd))
		}
		if rfd != 0 {
			_ = unix.Close(int(rfd))
		}
	}
}
