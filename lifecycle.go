package ioselect

import "go.uber.org/atomic"

// lifecycleState is one of open/closing/closed. It is adapted from the
// teacher's internal/safejob.OnceJob — a lock-free atomic-CAS "closed once"
// flag — generalized from a boolean to a three-state machine, since a
// transient "closing" value is needed while the readiness handle is being
// torn down but the wake-source descriptor is not yet reclaimable.
//
// Unlike the teacher's safejob.ExclusiveBlockJob, this type never gates
// Wake: Wake is explicitly forbidden from taking locks or touching any
// mutable shared state besides the wake-source descriptor, so the
// lifecycle state and the wake path must never share a critical section.
type lifecycleState struct {
	v atomic.Int32
}

const (
	stateClosed int32 = iota
	stateOpen
	stateClosing
)

// newLifecycleState returns a lifecycleState already in the closed state,
// the pre-construction default before any OS resource has been acquired.
func newLifecycleState() *lifecycleState {
	var s lifecycleState
	s.v.Store(stateClosed)
	return &s
}

// open transitions closed -> open. Used once, at construction, after every
// OS resource has been acquired.
func (s *lifecycleState) open() {
	s.v.Store(stateOpen)
}

// isOpen reports whether mutating operations other than Wake are currently
// permitted.
func (s *lifecycleState) isOpen() bool {
	return s.v.Load() == stateOpen
}

// beginClose transitions open -> closing exactly once, returning false if
// the selector was not open (already closed, or a concurrent Close already
// claimed the transition).
func (s *lifecycleState) beginClose() bool {
	return s.v.CAS(stateOpen, stateClosing)
}

// finishClose transitions closing -> closed.
func (s *lifecycleState) finishClose() {
	s.v.Store(stateClosed)
}
