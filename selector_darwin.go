//go:build freebsd || dragonfly || darwin

package ioselect

import (
	"golang.org/x/sys/unix"

	"github.com/ser-0xff/ioselect/metrics"
)

// Selector is the BSD/Darwin kqueue implementation of the I/O readiness
// core. Unlike Linux, there is no separate wake descriptor: the kqueue
// descriptor itself doubles as the wake target via a well-known
// EVFILT_USER identity.
type Selector struct {
	base

	kq     int
	events []unix.Kevent_t
}

// New acquires the kqueue descriptor and arms the well-known wake filter,
// returning a Selector in the open state.
func New(opts ...Option) (*Selector, error) {
	o := newOptions(opts)

	kq, err := unix.Kqueue()
	if err != nil {
		return nil, NewOSError("kqueue", err)
	}
	if _, err := unix.FcntlInt(uintptr(kq), unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
		_ = unix.Close(kq)
		return nil, NewOSError("fcntl", err)
	}
	if err := retry("kevent add|clear", func() error {
		_, err := unix.Kevent(kq, []unix.Kevent_t{{
			Ident:  0,
			Filter: unix.EVFILT_USER,
			Flags:  unix.EV_ADD | unix.EV_CLEAR,
		}}, nil, nil)
		return err
	}); err != nil {
		_ = unix.Close(kq)
		return nil, err
	}

	s := &Selector{
		base:   newBase(o),
		kq:     kq,
		events: make([]unix.Kevent_t, o.initialCapacity),
	}
	// triggerWake is a plain function, not a method value: a wakeFn that
	// captured s would make the Waker reachable from itself and its
	// finalizer would never run.
	s.waker = newWaker(kq, triggerWake, func(fd int) error {
		return unix.Close(fd)
	})

	s.state.open()
	return s, nil
}

// kqueueChangelist computes the minimum set of EV_ADD/EV_DELETE changes
// needed to move a descriptor's installed filters from old to new. Read and
// write filters are independent, so the transition reduces to one diff per
// filter; when old is None (a fresh registration) only ADD changes are ever
// produced, since EV_DELETE would otherwise fail with ENOENT.
func kqueueChangelist(fd int, old, new_ IOEvent) []unix.Kevent_t {
	ident := newKeventIdent(fd)
	var changes []unix.Kevent_t

	hadRead, hadWrite := old.wantsRead(), old.wantsWrite()
	wantRead, wantWrite := new_.wantsRead(), new_.wantsWrite()

	switch {
	case wantRead && !hadRead:
		changes = append(changes, unix.Kevent_t{Ident: ident, Filter: unix.EVFILT_READ, Flags: unix.EV_ADD | unix.EV_ENABLE})
	case !wantRead && hadRead:
		changes = append(changes, unix.Kevent_t{Ident: ident, Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE})
	}
	switch {
	case wantWrite && !hadWrite:
		changes = append(changes, unix.Kevent_t{Ident: ident, Filter: unix.EVFILT_WRITE, Flags: unix.EV_ADD | unix.EV_ENABLE})
	case !wantWrite && hadWrite:
		changes = append(changes, unix.Kevent_t{Ident: ident, Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE})
	}
	return changes
}

// applyChangelist submits changes via a change-only kevent call (zero event
// slots for output). The kqueue contract guarantees that every change in
// the changelist is applied before kevent reports any failure, so once
// EINTR has been retried away there is nothing left to propagate: a
// non-EINTR error here does not mean the changes were rejected, only that
// the call itself couldn't report success cleanly (e.g. a benign race with
// a concurrently-closing peer descriptor). Swallowing it rather than
// wrapping it into an *OSError keeps that guarantee honest for callers.
func (s *Selector) applyChangelist(changes []unix.Kevent_t) error {
	if len(changes) == 0 {
		return nil
	}
	for {
		_, err := unix.Kevent(s.kq, changes, nil, nil)
		if err == nil || err != unix.EINTR {
			return nil
		}
	}
}

func (s *Selector) kernelAdd(fd int, interest IOEvent) error {
	return s.applyChangelist(kqueueChangelist(fd, None, interest))
}

func (s *Selector) kernelModify(fd int, oldInterest, newInterest IOEvent) error {
	return s.applyChangelist(kqueueChangelist(fd, oldInterest, newInterest))
}

func (s *Selector) kernelRemove(fd int, interest IOEvent) error {
	return s.applyChangelist(kqueueChangelist(fd, interest, None))
}

// Register installs sel with the kernel and inserts a Registration into
// the table.
func (s *Selector) Register(sel Selectable, interest IOEvent, factory Factory) (*Registration, error) {
	return registerWith(s, &s.base, sel, interest, factory)
}

// Reregister updates the filters installed for sel's descriptor.
func (s *Selector) Reregister(sel Selectable, interest IOEvent) error {
	return reregisterWith(s, &s.base, sel, interest)
}

// Deregister removes sel's registration, idempotent when absent.
func (s *Selector) Deregister(sel Selectable) error {
	return deregisterWith(s, &s.base, sel)
}

// triggerWake submits the well-known EVFILT_USER change with NOTE_TRIGGER.
func triggerWake(fd int) error {
	return retry("kevent", func() error {
		_, err := unix.Kevent(fd, []unix.Kevent_t{{
			Ident:  0,
			Filter: unix.EVFILT_USER,
			Fflags: unix.NOTE_TRIGGER,
		}}, nil, nil)
		return err
	})
}

// Wake causes the current or next Wait to return promptly. It does not
// take any lock, by design — see Waker — so the lifecycle check below is a
// plain atomic load rather than anything that could contend with Close.
func (s *Selector) Wake() error {
	if !s.state.isOpen() {
		s.logger.Warn("ioselect: Wake called on a closed selector")
	}
	return s.waker.Wake()
}

func strategyToTimespec(strat Strategy) *unix.Timespec {
	switch strat.kind {
	case strategyNow:
		var zero unix.Timespec
		return &zero
	case strategyTimeout:
		ts := unix.NsecToTimespec(strat.timeout)
		return &ts
	default:
		return nil
	}
}

// Wait blocks (or polls, per strat) and dispatches zero or more events to
// cb.
func (s *Selector) Wait(strat Strategy, cb Callback) error {
	if !s.state.isOpen() {
		return ErrNotOpen
	}

	ts := strategyToTimespec(strat)
	n, err := s.kevent(ts)
	if err != nil {
		return err
	}
	metrics.Add(metrics.Wait, 1)
	if strat.kind == strategyNow {
		metrics.Add(metrics.WaitNoWait, 1)
	}

	return s.dispatch(n, cb)
}

func (s *Selector) kevent(ts *unix.Timespec) (int, error) {
	for {
		n, err := unix.Kevent(s.kq, nil, s.events, ts)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return 0, NewOSError("kevent", err)
		}
		return n, nil
	}
}

func (s *Selector) dispatch(n int, cb Callback) error {
	for i := 0; i < n; i++ {
		ev := s.events[i]

		if ev.Filter == unix.EVFILT_USER {
			metrics.Add(metrics.Wakes, 1)
			continue
		}

		r := s.table.lookup(int(ev.Ident))
		if r == nil {
			// Deregistered before dispatch reached it; late-queued kqueue
			// events for an absent registration are tolerated and ignored.
			continue
		}

		var readable, writable bool
		switch ev.Filter {
		case unix.EVFILT_READ:
			readable = true
		case unix.EVFILT_WRITE:
			writable = true
		default:
			unsupportedFilter("kqueue filter", ev.Filter)
		}
		if ev.Flags&(unix.EV_EOF|unix.EV_ERROR) != 0 {
			s.foldHangup(&readable, &writable)
		}

		metrics.Add(metrics.Events, 1)
		if err := cb(Event{Readable: readable, Writable: writable, Registration: r}); err != nil {
			return err
		}
	}

	if newCap, grow := growBuffer(len(s.events), n); grow {
		s.events = make([]unix.Kevent_t, newCap)
		metrics.Add(metrics.BufferGrowths, 1)
	}
	return nil
}

// Close transitions the selector to closed. It deliberately does not close
// the kqueue descriptor itself, since that descriptor doubles as the wake
// target and a concurrent Wake may still be in flight; it is reclaimed
// when the Waker is finalized.
func (s *Selector) Close() error {
	if !s.state.beginClose() {
		return ErrNotOpen
	}
	s.state.finishClose()
	return nil
}

// GentleClose gives every registered collaborator whose Context implements
// Closeable a chance to shut down on its own terms before the caller calls
// Close.
func (s *Selector) GentleClose() *Completion {
	return GentleClose(&s.base)
}
