package ioselect

import "golang.org/x/sys/unix"

// retry repeats fn until it returns something other than EINTR, wrapping any
// other failure into a structured OSError labelled by label. It wraps the
// epoll_ctl, timerfd_settime, eventfd write and kevent arm/trigger calls.
// The wait loops (epollWait, kevent in the platform files) and the kqueue
// changelist path (applyChangelist in selector_darwin.go, which has its
// own retry-and-swallow semantics) hand-roll their EINTR loops, and the
// descriptor-creation calls in New are not retried. It mirrors the teacher's repeated
// "for { ...; if err != EINTR && err != EAGAIN { return ... } }" idiom
// (internal/poller/poller_epoll.go notify, internal/poller/poller_kqueue.go
// notify) but generalized into one helper instead of being hand-rolled at
// every call site.
func retry(label string, fn func() error) error {
	for {
		err := fn()
		if err == nil {
			return nil
		}
		if err == unix.EINTR {
			continue
		}
		return NewOSError(label, err)
	}
}
