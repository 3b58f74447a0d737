package ioselect

import "runtime"

// Waker is the shared-ownership handle around the wake-source descriptor:
// the eventfd on Linux, the kqueue descriptor itself on Darwin.
//
// The wake-source descriptor needs a lifetime pinned to "when the last
// external reference to the selector is released", since a concurrent
// Wake can legitimately race a Close. Go already has exactly the
// mechanism for that — GC reachability — so Waker leans on
// runtime.SetFinalizer instead of hand-rolling a refcount: as long as
// either the Selector or any goroutine that captured a *Waker still holds
// it, the finalizer cannot run and the descriptor stays valid. Once every
// such reference is dropped, the finalizer closes it. Close never touches
// this descriptor itself.
type Waker struct {
	fd      int
	wakeFn  func(fd int) error
	closeFn func(fd int) error
}

func newWaker(fd int, wakeFn, closeFn func(fd int) error) *Waker {
	w := &Waker{fd: fd, wakeFn: wakeFn, closeFn: closeFn}
	runtime.SetFinalizer(w, (*Waker).finalize)
	return w
}

func (w *Waker) finalize() {
	_ = w.closeFn(w.fd)
}

// Wake forces the in-progress or next Wait on the owning selector to
// return promptly. It is callable from any goroutine at any time, takes
// no locks, and touches no mutable state besides the wake-source
// descriptor itself.
func (w *Waker) Wake() error {
	return w.wakeFn(w.fd)
}
