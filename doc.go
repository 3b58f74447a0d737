// Package ioselect implements a portable I/O readiness selector: the
// epoll/kqueue-backed core of an event loop that multiplexes readiness
// notifications for many file descriptors onto a single owning thread.
//
// A Selector lets one goroutine register Selectables of interest, block
// efficiently in Wait until one or more become readable or writable (or a
// deadline elapses, or Wake is called from another goroutine), and deliver
// the resulting events to a callback together with the per-registration
// context supplied at Register time.
//
// Everything above the selector — channel implementations, buffered I/O,
// protocol framing, promise/future plumbing — is out of scope; this package
// only exposes the Selectable contract, the Registration contract, and the
// Wait callback.
package ioselect
