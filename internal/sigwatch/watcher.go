package sigwatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/srozzo/go-sigwait/sigwait"
)

// Watcher owns a sigwait.Table, keeps one registration per configured
// signal, and loops WaitAny over them. Deliveries are logged through a
// rate limiter so a signal storm cannot flood the log; the counters are
// exact regardless.
type Watcher struct {
	mu      sync.Mutex
	table   *sigwait.Table
	handles []sigwait.Handle
	names   []string
	pending []string // staged by Apply, adopted between waits

	limiter    *rate.Limiter
	interval   time.Duration
	started    time.Time
	logf       func(format string, args ...any)
	suppressed uint64
}

// NewWatcher installs the configured signal set on a fresh table.
func NewWatcher(cfg *Config, logf func(format string, args ...any)) (*Watcher, error) {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	w := &Watcher{
		table:    sigwait.New(),
		limiter:  rate.NewLimiter(rate.Limit(cfg.EventsPerSecond), cfg.Burst),
		interval: time.Duration(cfg.PollIntervalMS) * time.Millisecond,
		started:  time.Now(),
		logf:     logf,
	}
	if err := w.installLocked(cfg.Signals); err != nil {
		_ = w.table.Close()
		return nil, err
	}
	return w, nil
}

// installLocked replaces the current registrations with the named set.
// Caller holds w.mu (or has exclusive access during construction). None
// of the handles may be armed; Run only calls this between waits.
func (w *Watcher) installLocked(names []string) error {
	parsed := make([]os.Signal, 0, len(names))
	for _, name := range names {
		sig, err := sigwait.ParseSignal(name)
		if err != nil {
			return err
		}
		parsed = append(parsed, sig)
	}

	for _, h := range w.handles {
		if err := w.table.Uninstall(h); err != nil {
			return fmt.Errorf("sigwatch: uninstall %v: %w", h.Signal(), err)
		}
	}
	w.handles = w.handles[:0]
	w.names = w.names[:0]

	for i, sig := range parsed {
		h, err := w.table.Install(sig)
		if err != nil {
			return fmt.Errorf("sigwatch: install %s: %w", names[i], err)
		}
		w.handles = append(w.handles, h)
		w.names = append(w.names, sigwait.SignalName(sig))
	}
	return nil
}

// Apply stages a new signal set. The Run loop adopts it between waits so
// no registration is ever uninstalled while armed.
func (w *Watcher) Apply(names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("sigwatch: empty signal set")
	}
	// Validate eagerly so a bad config is rejected at reload time, not
	// mid-loop.
	for _, name := range names {
		if _, err := sigwait.ParseSignal(name); err != nil {
			return err
		}
	}
	w.mu.Lock()
	w.pending = append([]string(nil), names...)
	w.mu.Unlock()
	return nil
}

// Run blocks waiting for deliveries until ctx is canceled. Cancellation is
// observed between waits, so shutdown can lag by up to one poll interval.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		w.mu.Lock()
		if w.pending != nil {
			if err := w.installLocked(w.pending); err != nil {
				w.mu.Unlock()
				return err
			}
			w.logf("[sigwatch] watching %v", w.names)
			w.pending = nil
		}
		handles := append([]sigwait.Handle(nil), w.handles...)
		names := append([]string(nil), w.names...)
		w.mu.Unlock()

		idx, err := w.table.WaitAny(handles, w.interval)
		switch {
		case errors.Is(err, sigwait.ErrTimeout):
			continue
		case err != nil:
			return fmt.Errorf("sigwatch: wait: %w", err)
		}

		count, _ := w.table.Fired(handles[idx])
		if w.limiter.Allow() {
			w.logf("[sigwatch] %s delivered (total %d)", names[idx], count)
		} else {
			w.mu.Lock()
			w.suppressed++
			w.mu.Unlock()
		}
	}
}

// Counts snapshots signal name to total deliveries observed.
func (w *Watcher) Counts() map[string]uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]uint64, len(w.handles))
	for i, h := range w.handles {
		n, err := w.table.Fired(h)
		if err != nil {
			continue
		}
		out[w.names[i]] += n
	}
	return out
}

// Watched returns the currently installed signal names.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.names...)
}

// Uptime reports how long the watcher has existed.
func (w *Watcher) Uptime() time.Duration { return time.Since(w.started) }

// Suppressed reports deliveries observed but not logged due to rate
// limiting.
func (w *Watcher) Suppressed() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.suppressed
}

// Close releases all registrations. Stop Run first; closing under an
// active wait returns sigwait.ErrBusy.
func (w *Watcher) Close() error {
	return w.table.Close()
}
