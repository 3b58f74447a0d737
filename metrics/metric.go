// Package metrics provides runtime monitoring counters for the ioselect
// selector core, such as Wait/Wake call volume and event-buffer growth —
// a good tool for tuning a long-lived event loop.
package metrics

import (
	"fmt"
	"time"

	"go.uber.org/atomic"
)

// All metrics definitions.
const (
	// Wait counts every Wait call whose underlying epoll_wait/kevent
	// succeeded (blocking or not).
	Wait = iota
	// WaitNoWait counts Wait calls made with the Now strategy.
	WaitNoWait
	// Events counts the total number of non-wake events dispatched across
	// all Wait calls.
	Events
	// Wakes counts wake notifications consumed by Wait; several Wake calls
	// that land before one Wait are counted once.
	Wakes
	// BufferGrowths counts how many times the event buffer doubled.
	BufferGrowths
	// Registrations counts successful Register calls.
	Registrations
	// Deregistrations counts successful Deregister calls.
	Deregistrations
	// Max is the number of defined counters; callers must never index at
	// or beyond it.
	Max
)

var counters [Max]atomic.Uint64

// Add adds delta to the named counter. Indices at or beyond Max are
// silently ignored rather than panicking, so instrumentation never takes
// down the selector it's measuring.
func Add(name int, delta uint64) {
	if name < 0 || name >= Max {
		return
	}
	counters[name].Add(delta)
}

// Get returns the current value of the named counter.
func Get(name int) uint64 {
	if name < 0 || name >= Max {
		return 0
	}
	return counters[name].Load()
}

// GetAll returns a snapshot of every counter.
func GetAll() [Max]uint64 {
	var m [Max]uint64
	for i := range counters {
		m[i] = counters[i].Load()
	}
	return m
}

// ShowMetricsOfPeriod blocks for d, then prints the counter deltas
// accumulated during that period.
func ShowMetricsOfPeriod(d time.Duration) {
	old := GetAll()
	<-time.After(d)
	cur := GetAll()
	var delta [Max]uint64
	for i := range counters {
		delta[i] = cur[i] - old[i]
	}
	show(delta)
}

// ShowMetrics prints the current counter values.
func ShowMetrics() {
	show(GetAll())
}

func show(m [Max]uint64) {
	fmt.Println("######### ioselect metrics (", time.Now().Format("2006-01-02 15:04:05"), ") ###########")
	fmt.Printf("%-40s: %d\n", "# number of Wait calls", m[Wait])
	fmt.Printf("%-40s: %d\n", "# number of non-blocking Wait calls", m[WaitNoWait])
	fmt.Printf("%-40s: %d\n", "# number of events dispatched", m[Events])
	if m[Wait] > 0 {
		fmt.Printf("%-40s: %.2f\n", "# average events per Wait", float64(m[Events])/float64(m[Wait]))
	}
	fmt.Printf("%-40s: %d\n", "# number of wakes observed", m[Wakes])
	fmt.Printf("%-40s: %d\n", "# number of event buffer growths", m[BufferGrowths])
	fmt.Printf("%-40s: %d\n", "# number of registrations", m[Registrations])
	fmt.Printf("%-40s: %d\n", "# number of deregistrations", m[Deregistrations])
	fmt.Printf("\n")
}
