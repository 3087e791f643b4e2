//go:build unix

package sigwait

import (
	"syscall"
	"testing"
	"time"
)

// FuzzTableOps exercises permutations of table operations to shake out
// panics, leaked pipes, or bad state transitions. It avoids real OS
// signals by injecting a fake notifier.
func FuzzTableOps(f *testing.F) {
	f.Add([]byte{0, 1, 2, 3, 4, 5, 0, 0, 2, 5})
	f.Add([]byte{4, 4, 0, 2, 3, 1, 5, 0, 1, 2})
	f.Add([]byte{0, 0, 0, 0, 1, 1, 1, 1, 5, 5})

	f.Fuzz(func(t *testing.T, data []byte) {
		fn := newFakeNotifier()
		tb := New(WithNotifier(fn))
		defer tb.Close()

		const maxOps = 256
		pool := make([]Handle, 0, Capacity)

		for i := 0; i < len(data) && i < maxOps; i++ {
			op := data[i] % 6
			switch op {
			case 0: // Install
				sig := syscall.SIGUSR1
				if data[i]&0x40 != 0 {
					sig = syscall.SIGUSR2
				}
				if h, err := tb.Install(sig); err == nil {
					pool = append(pool, h)
				}
			case 1: // Uninstall a pooled (or stale) handle
				if len(pool) > 0 {
					idx := int(data[i]) % len(pool)
					_ = tb.Uninstall(pool[idx])
					pool = append(pool[:idx], pool[idx+1:]...)
				} else {
					_ = tb.Uninstall(Handle{t: tb, idx: int(data[i]) % Capacity})
				}
			case 2: // Fired on everything, stale handles included
				for _, h := range pool {
					_, _ = tb.Fired(h)
				}
				_, _ = tb.Fired(Handle{})
			case 3: // deliver
				if len(fn.notifies) > 0 {
					fn.deliver(t, syscall.SIGUSR1, 1)
				}
			case 4: // WaitAny with an immediate poll
				if len(pool) > 0 {
					_, _ = tb.WaitAny(pool, 0)
				} else {
					_, _ = tb.WaitAny(nil, 0)
				}
			case 5: // WaitAny with a short timeout and duplicates
				if len(pool) > 0 {
					dup := append(append([]Handle(nil), pool...), pool[0])
					_, _ = tb.WaitAny(dup, time.Millisecond)
				}
			}
		}

		// No pipes may survive once every wait has returned.
		for i := range tb.slots {
			if tb.slots[i].writeFD.Load() != 0 || tb.slots[i].readFD.Load() != 0 {
				t.Fatalf("slot %d leaked pipe fds", i)
			}
		}
	})
}
