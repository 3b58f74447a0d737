package ioselect

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotOpen is returned by any mutating operation other than Wake when the
// selector's lifecycle state is not open.
var ErrNotOpen = errors.New("ioselect: selector is not open")

// ErrAlreadyRegistered is returned by Register when the descriptor is
// already present in the registration table.
var ErrAlreadyRegistered = errors.New("ioselect: descriptor already registered")

// ErrNotRegistered is returned by Reregister when the descriptor is absent
// from the registration table. Deregister is idempotent and does not
// return this error for an absent descriptor.
var ErrNotRegistered = errors.New("ioselect: descriptor not registered")

// OSError wraps a syscall failure with the errno and the label of the
// syscall that produced it, mirroring the teacher's use of
// os.NewSyscallError / errors.Wrap around epoll_ctl, epoll_wait and kevent.
type OSError struct {
	Label string
	Err   error
}

// NewOSError builds an *OSError, or nil if err is nil.
func NewOSError(label string, err error) error {
	if err == nil {
		return nil
	}
	return &OSError{Label: label, Err: err}
}

// Error implements the error interface.
func (e *OSError) Error() string {
	return fmt.Sprintf("ioselect: %s: %s", e.Label, e.Err)
}

// Unwrap allows errors.Is/errors.As to reach the underlying syscall.Errno.
func (e *OSError) Unwrap() error {
	return e.Err
}

// unsupportedFilter panics with an internal contract violation: the kernel
// returned a filter/event type the selector's dispatch switch does not
// know about. This is treated as unreachable and non-recoverable, so it
// is not a returned error.
func unsupportedFilter(what string, value interface{}) {
	panic(fmt.Sprintf("ioselect: internal contract violation: unsupported %s %v", what, value))
}
