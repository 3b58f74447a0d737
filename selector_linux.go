//go:build linux

package ioselect

import (
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/ser-0xff/ioselect/metrics"
)

// rflags/wflags are the epoll masks for read- and write-like interest:
// both carry the always-on error/hangup bits (EPOLLERR, EPOLLHUP,
// EPOLLRDHUP) plus EPOLLIN|EPOLLPRI or EPOLLOUT respectively.
const (
	rflags = unix.EPOLLIN | unix.EPOLLRDHUP | unix.EPOLLHUP | unix.EPOLLERR | unix.EPOLLPRI
	wflags = unix.EPOLLOUT | unix.EPOLLRDHUP | unix.EPOLLHUP | unix.EPOLLERR
)

// Selector is the Linux epoll implementation of the I/O readiness core.
// One Selector owns one epoll instance plus the two auxiliary descriptors
// used to implement wake and timed wait.
type Selector struct {
	base

	epfd       int
	wakeFD     int
	timerFD    int
	timerArmed bool
	events     []unix.EpollEvent
}

// New acquires the epoll instance and its two auxiliary descriptors and
// returns a Selector in the open state.
func New(opts ...Option) (*Selector, error) {
	o := newOptions(opts)

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, NewOSError("epoll_create1", err)
	}
	wakeFD, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, NewOSError("eventfd", err)
	}
	timerFD, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(wakeFD)
		_ = unix.Close(epfd)
		return nil, NewOSError("timerfd_create", err)
	}

	s := &Selector{
		base:    newBase(o),
		epfd:    epfd,
		wakeFD:  wakeFD,
		timerFD: timerFD,
		events:  make([]unix.EpollEvent, o.initialCapacity),
	}
	// writeWake is a plain function, not a method value: a wakeFn that
	// captured s would make the Waker reachable from itself and its
	// finalizer would never run.
	s.waker = newWaker(wakeFD, writeWake, func(fd int) error {
		return unix.Close(fd)
	})

	if err := s.addAux(wakeFD); err != nil {
		_ = unix.Close(timerFD)
		_ = unix.Close(wakeFD)
		_ = unix.Close(epfd)
		return nil, err
	}
	if err := s.addAux(timerFD); err != nil {
		_ = unix.Close(timerFD)
		_ = unix.Close(wakeFD)
		_ = unix.Close(epfd)
		return nil, err
	}

	s.state.open()
	return s, nil
}

func (s *Selector) addAux(fd int) error {
	ev := unix.EpollEvent{Events: rflags, Fd: int32(fd)}
	return retry("epoll_ctl add", func() error {
		return unix.EpollCtl(s.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
	})
}

func epollMask(interest IOEvent) uint32 {
	var mask uint32
	if interest.wantsRead() {
		mask |= rflags
	}
	if interest.wantsWrite() {
		mask |= wflags
	}
	if mask == 0 {
		// none: still monitored for error/hangup.
		mask = unix.EPOLLERR | unix.EPOLLRDHUP | unix.EPOLLHUP
	}
	return mask
}

func (s *Selector) kernelAdd(fd int, interest IOEvent) error {
	ev := unix.EpollEvent{Events: epollMask(interest), Fd: int32(fd)}
	return retry("epoll_ctl add", func() error {
		return unix.EpollCtl(s.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
	})
}

func (s *Selector) kernelModify(fd int, oldInterest, newInterest IOEvent) error {
	ev := unix.EpollEvent{Events: epollMask(newInterest), Fd: int32(fd)}
	return retry("epoll_ctl mod", func() error {
		return unix.EpollCtl(s.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
	})
}

func (s *Selector) kernelRemove(fd int, interest IOEvent) error {
	return retry("epoll_ctl del", func() error {
		return unix.EpollCtl(s.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	})
}

// Register installs sel with the kernel and inserts a Registration into the
// table.
func (s *Selector) Register(sel Selectable, interest IOEvent, factory Factory) (*Registration, error) {
	return registerWith(s, &s.base, sel, interest, factory)
}

// Reregister updates the interest installed for sel's descriptor.
func (s *Selector) Reregister(sel Selectable, interest IOEvent) error {
	return reregisterWith(s, &s.base, sel, interest)
}

// Deregister removes sel's registration, idempotent when absent.
func (s *Selector) Deregister(sel Selectable) error {
	return deregisterWith(s, &s.base, sel)
}

// writeWake writes the eventfd counter, latching a wake even if Wait is not
// currently blocked.
func writeWake(fd int) error {
	buf := [8]byte{1}
	return retry("write", func() error {
		_, err := unix.Write(fd, buf[:])
		if err == unix.EAGAIN {
			// Counter would overflow: already latched, nothing to do.
			return nil
		}
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

func strategyToMsec(strat Strategy) int {
	switch strat.kind {
	case strategyNow:
		return 0
	case strategyTimeout:
		return -1 // programmed via timerfd instead; epoll_wait itself blocks indefinitely
	default:
		return -1
	}
}

// Wait blocks (or polls, per strat) and dispatches zero or more events to
// cb.
func (s *Selector) Wait(strat Strategy, cb Callback) error {
	if !s.state.isOpen() {
		return ErrNotOpen
	}
	if strat.kind == strategyTimeout {
		if err := s.armTimer(strat.timeout); err != nil {
			return err
		}
		s.timerArmed = true
	} else if s.timerArmed {
		// A prior blockUntilTimeout call armed the timer; disarm it so it
		// cannot spuriously wake this unrelated Wait.
		if err := s.armTimer(0); err != nil {
			return err
		}
		s.timerArmed = false
	}

	msec := strategyToMsec(strat)
	n, err := s.epollWait(msec)
	if err != nil {
		return err
	}
	metrics.Add(metrics.Wait, 1)
	if strat.kind == strategyNow {
		metrics.Add(metrics.WaitNoWait, 1)
	}

	return s.dispatch(n, cb)
}

func (s *Selector) armTimer(nsec int64) error {
	spec := unix.ItimerSpec{
		Value: unix.NsecToTimespec(nsec),
	}
	return retry("timerfd_settime", func() error {
		return unix.TimerfdSettime(s.timerFD, 0, &spec, nil)
	})
}

func (s *Selector) epollWait(msec int) (int, error) {
	for {
		n, err := unix.EpollWait(s.epfd, s.events, msec)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return 0, NewOSError("epoll_wait", err)
		}
		return n, nil
	}
}

func (s *Selector) dispatch(n int, cb Callback) error {
	var buf [8]byte
	for i := 0; i < n; i++ {
		ev := s.events[i]
		fd := int(ev.Fd)

		switch fd {
		case s.wakeFD:
			_, _ = unix.Read(s.wakeFD, buf[:])
			metrics.Add(metrics.Wakes, 1)
			continue
		case s.timerFD:
			_, _ = unix.Read(s.timerFD, buf[:])
			s.timerArmed = false
			continue
		}

		r := s.table.lookup(fd)
		if r == nil {
			// Descriptor deregistered between epoll_wait returning and
			// dispatch reaching it (e.g. by a callback earlier in this
			// batch); the event is ignored.
			continue
		}

		readable := ev.Events&(unix.EPOLLIN|unix.EPOLLPRI) != 0
		writable := ev.Events&unix.EPOLLOUT != 0
		if ev.Events&(unix.EPOLLHUP|unix.EPOLLRDHUP|unix.EPOLLERR) != 0 {
			s.foldHangup(&readable, &writable)
		}

		metrics.Add(metrics.Events, 1)
		if err := cb(Event{Readable: readable, Writable: writable, Registration: r}); err != nil {
			return err
		}
	}

	if newCap, grow := growBuffer(len(s.events), n); grow {
		s.events = make([]unix.EpollEvent, newCap)
		metrics.Add(metrics.BufferGrowths, 1)
	}
	return nil
}

// Close transitions the selector to closed, releasing the epoll instance
// and the timer descriptor. The wake-source descriptor is deliberately left
// open — it is reclaimed only when the Waker is finalized.
func (s *Selector) Close() error {
	if !s.state.beginClose() {
		return ErrNotOpen
	}
	defer s.state.finishClose()

	var err error
	if cerr := unix.Close(s.epfd); cerr != nil {
		err = NewOSError("close", cerr)
	}
	if cerr := unix.Close(s.timerFD); cerr != nil && err == nil {
		err = NewOSError("close", cerr)
	}
	runtime.KeepAlive(s.waker)
	return err
}

// GentleClose gives every registered collaborator whose Context implements
// Closeable a chance to shut down on its own terms before the caller calls
// Close.
func (s *Selector) GentleClose() *Completion {
	return GentleClose(&s.base)
}
