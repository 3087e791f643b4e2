//go:build unix

package sigwait

type LoggerFunc func(format string, args ...any)

type Option func(*Table)

func WithLogger(l LoggerFunc) Option {
	return func(t *Table) { t.logf = l }
}

func WithDebug(enabled bool) Option {
	return func(t *Table) { t.debug = enabled }
}

// WithNotifier replaces the platform signal surface. Tests use this to
// inject a fake and deliver signals deterministically.
func WithNotifier(n Notifier) Option {
	return func(t *Table) { t.notifier = n }
}
