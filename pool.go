package ioselect

// registrationPool recycles *Registration values released by deregister, to
// avoid an allocation on every register/deregister cycle of a long-lived
// event loop.
//
// This is adapted from the teacher's internal/poller/desc_cache.go, which
// pools *Desc values in power-of-two-sized blocks behind a free-list and a
// CAS spinlock. The free-list idea is kept; the block allocation is not
// (get allocates one Registration at a time when the list is empty), and
// neither is the spinlock,
// because desc_cache's locking exists to protect the free-list from
// concurrent access by the poller goroutine (allocating/handling events)
// and arbitrary caller goroutines (deregistering). Register, Reregister,
// Deregister, Wait, and Close are all confined to a single owning
// goroutine here — the only cross-thread actor is Wake, which never
// touches the registration table at all — so the free-list is accessed
// exclusively by that one owning goroutine and needs no synchronization.
type registrationPool struct {
	free []*Registration
}

func newRegistrationPool() *registrationPool {
	return &registrationPool{}
}

// get returns a zeroed *Registration, reusing one from the free-list when
// available.
func (p *registrationPool) get() *Registration {
	n := len(p.free)
	if n == 0 {
		return &Registration{}
	}
	r := p.free[n-1]
	p.free[n-1] = nil
	p.free = p.free[:n-1]
	*r = Registration{}
	return r
}

// put returns r to the free-list for reuse by a later get.
func (p *registrationPool) put(r *Registration) {
	p.free = append(p.free, r)
}
