package ioselect

import "fmt"

// IOEvent is the symbolic interest set a Registration can carry. None is
// meaningful on its own: it means "registered, but currently interested in
// no readiness events" — the descriptor is still monitored for error/hangup
// conditions on Linux.
type IOEvent uint8

// Interest set constants.
const (
	None IOEvent = iota
	Read
	Write
	All
)

// String implements fmt.Stringer.
func (e IOEvent) String() string {
	switch e {
	case None:
		return "None"
	case Read:
		return "Read"
	case Write:
		return "Write"
	case All:
		return "All"
	default:
		return fmt.Sprintf("IOEvent(%d)", uint8(e))
	}
}

// wantsRead reports whether e includes readability.
func (e IOEvent) wantsRead() bool {
	return e == Read || e == All
}

// wantsWrite reports whether e includes writability.
func (e IOEvent) wantsWrite() bool {
	return e == Write || e == All
}

// Strategy selects how long Wait may block before returning with zero
// events.
type Strategy struct {
	// kind distinguishes block / now / blockUntilTimeout. The zero
	// Strategy is Block, which is also the most common, safest default.
	kind    strategyKind
	timeout int64 // nanoseconds, only meaningful when kind == strategyTimeout
}

type strategyKind uint8

const (
	strategyBlock strategyKind = iota
	strategyNow
	strategyTimeout
)

// Block waits indefinitely for at least one event or a Wake.
func Block() Strategy { return Strategy{kind: strategyBlock} }

// Now polls without blocking.
func Now() Strategy { return Strategy{kind: strategyNow} }

// BlockUntilTimeout waits at most d nanoseconds for an event or a Wake.
// A non-positive d behaves like Now.
func BlockUntilTimeout(d int64) Strategy {
	if d <= 0 {
		return Now()
	}
	return Strategy{kind: strategyTimeout, timeout: d}
}

// Event is delivered to the Wait callback once per ready descriptor.
// Error and hangup conditions are folded into both Readable and Writable
// (see the Linux/Darwin dispatch notes) so the upstream layer observes the
// condition regardless of which side it happens to be waiting on.
type Event struct {
	Readable     bool
	Writable     bool
	Registration *Registration
}

// Callback is invoked once per dispatched Event inside Wait. An error
// returned from Callback propagates out of Wait immediately; any
// unprocessed events in the current batch are discarded — level-triggered
// semantics mean the kernel will simply redeliver the state on the next
// Wait.
type Callback func(Event) error
