package ioselect

import (
	"github.com/ser-0xff/ioselect/log"
	"github.com/ser-0xff/ioselect/metrics"
)

const defaultEventCapacity = 64

// Option configures a Selector at construction time, mirroring the
// teacher's poller.Option / WithIgnoreTaskError pattern (internal/poller/
// pollmgr.go).
type Option func(*options)

type options struct {
	logger          log.Logger
	initialCapacity int
}

func newOptions(opts []Option) *options {
	o := &options{logger: log.Default, initialCapacity: defaultEventCapacity}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger overrides the package default logger for one Selector.
func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithInitialEventCapacity overrides the default starting capacity (64) of
// the grow-only event buffer.
func WithInitialEventCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.initialCapacity = n
		}
	}
}

// base holds the platform-independent state every Selector carries: the
// lifecycle guard, the registration table, the shared wake handle, and the
// logger. Linux and Darwin selectors embed it and add their own kernel
// handle plus event buffer.
type base struct {
	state  *lifecycleState
	table  *registrationTable
	waker  *Waker
	logger log.Logger
}

func newBase(o *options) base {
	return base{
		state:  newLifecycleState(),
		table:  newRegistrationTable(),
		logger: o.logger,
	}
}

// kernel is the small per-platform surface Register/Reregister/Deregister
// drive: install, modify, or remove the OS-level interest for a descriptor.
// Linux implements it by calling EPOLL_CTL_{ADD,MOD,DEL}; Darwin by
// emitting the minimal EV_ADD/EV_DELETE changelist for the two kqueue
// filters.
type kernel interface {
	kernelAdd(fd int, interest IOEvent) error
	kernelModify(fd int, oldInterest, newInterest IOEvent) error
	kernelRemove(fd int, interest IOEvent) error
}

// registerWith installs sel with the given initial interest, builds its
// Context via factory, and inserts it into the registration table. It
// requires fd to be currently absent from the table and the selector to
// be open.
func registerWith(k kernel, b *base, sel Selectable, interest IOEvent, factory Factory) (*Registration, error) {
	if !b.state.isOpen() {
		return nil, ErrNotOpen
	}
	fd := sel.Descriptor()
	if b.table.lookup(fd) != nil {
		return nil, ErrAlreadyRegistered
	}
	if err := k.kernelAdd(fd, interest); err != nil {
		return nil, err
	}
	var ctx interface{}
	if factory != nil {
		ctx = factory(fd)
	}
	r := b.table.insert(fd, interest, ctx)
	metrics.Add(metrics.Registrations, 1)
	return r, nil
}

// reregisterWith updates the kernel interest for sel's descriptor using
// the table's stored interest as oldInterested, then writes the new
// interest back. The table invariant — Interested always matches what the
// kernel currently has installed — is what lets deregister and the next
// reregister read "old" straight off the registration instead of the
// caller having to track it.
func reregisterWith(k kernel, b *base, sel Selectable, interest IOEvent) error {
	if !b.state.isOpen() {
		return ErrNotOpen
	}
	fd := sel.Descriptor()
	r := b.table.lookup(fd)
	if r == nil {
		return ErrNotRegistered
	}
	old := r.Interested
	if err := k.kernelModify(fd, old, interest); err != nil {
		return err
	}
	r.Interested = interest
	return nil
}

// deregisterWith removes sel's descriptor from the table, issuing whatever
// kernel delete is needed for its last known interest. Idempotent when the
// descriptor is already absent.
func deregisterWith(k kernel, b *base, sel Selectable) error {
	if !b.state.isOpen() {
		return ErrNotOpen
	}
	fd := sel.Descriptor()
	r := b.table.lookup(fd)
	if r == nil {
		return nil
	}
	if err := k.kernelRemove(fd, r.Interested); err != nil {
		return err
	}
	b.table.remove(fd)
	metrics.Add(metrics.Deregistrations, 1)
	return nil
}

// growBuffer implements the grow-only, power-of-two event buffer policy:
// when a Wait call fills the buffer completely, the next call should use a
// buffer of double the capacity. It never shrinks.
func growBuffer(capacity, filled int) (newCapacity int, shouldGrow bool) {
	if filled < capacity {
		return capacity, false
	}
	return capacity * 2, true
}

// foldHangup folds an error/hangup condition into both readability and
// writability, logging at Debug since this is expected, routine behavior
// rather than a failure.
func (b *base) foldHangup(readable, writable *bool) {
	if *readable && *writable {
		return
	}
	b.logger.Debug("ioselect: folding error/hangup into both readable and writable")
	*readable, *writable = true, true
}
