package ioselect

// registrationTable maps descriptor to *Registration. Entries are owned by
// the selector; they reference external objects only through
// Registration.Context. A live entry holds its Context by an ordinary
// (strong) reference until remove. A removed entry goes back to the pool
// with its fields intact; the pool clears it only when get hands it out
// again.
type registrationTable struct {
	entries map[int]*Registration
	pool    *registrationPool
}

func newRegistrationTable() *registrationTable {
	return &registrationTable{
		entries: make(map[int]*Registration),
		pool:    newRegistrationPool(),
	}
}

// lookup returns the registration for fd, or nil if absent. The selector
// must never dispatch an event to a descriptor absent from the table;
// every platform dispatch path treats a nil return as "ignore this event".
func (t *registrationTable) lookup(fd int) *Registration {
	return t.entries[fd]
}

// insert adds a fresh registration for fd. The caller must have already
// confirmed fd is absent.
func (t *registrationTable) insert(fd int, interest IOEvent, ctx interface{}) *Registration {
	r := t.pool.get()
	r.fd = fd
	r.Interested = interest
	r.Context = ctx
	t.entries[fd] = r
	return r
}

// remove deletes and recycles the registration for fd, if present.
func (t *registrationTable) remove(fd int) {
	r, ok := t.entries[fd]
	if !ok {
		return
	}
	delete(t.entries, fd)
	t.pool.put(r)
}

// len reports the number of live registrations.
func (t *registrationTable) len() int {
	return len(t.entries)
}

// forEach iterates live registrations. Used by GentleClose.
func (t *registrationTable) forEach(fn func(*Registration)) {
	for _, r := range t.entries {
		fn(r)
	}
}
