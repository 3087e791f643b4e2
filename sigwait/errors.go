//go:build unix

package sigwait

import "errors"

var (
	ErrInvalidHandle = errors.New("sigwait: invalid handle")
	ErrCapacity      = errors.New("sigwait: registration table full")
	ErrTimeout       = errors.New("sigwait: wait timed out")
	ErrBusy          = errors.New("sigwait: registration armed by an active wait")
	ErrNoHandles     = errors.New("sigwait: no handles given")
	ErrClosed        = errors.New("sigwait: table closed")
)
