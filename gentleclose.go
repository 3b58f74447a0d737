package ioselect

import "golang.org/x/sync/errgroup"

// Closeable is the contract a registered collaborator must satisfy to
// participate in GentleClose. A channel registration's Context typically
// implements this by closing the channel it owns.
type Closeable interface {
	Close() error
}

// Completion is the aggregate result of a GentleClose call, resolving once
// every collaborator's Close has returned.
type Completion struct {
	done chan struct{}
	err  error
}

// Done returns a channel that is closed once every collaborator's Close
// has returned.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Err returns the first non-nil error returned by a collaborator's Close,
// if any. Only meaningful after Done has been closed.
func (c *Completion) Err() error {
	return c.err
}

// GentleClose iterates the registration table and calls Close on every
// registration whose Context implements Closeable, returning a Completion
// that resolves when all of them have finished. It does not itself close
// the selector; callers typically follow it with Close once the
// Completion resolves.
func GentleClose(b *base) *Completion {
	var g errgroup.Group
	b.table.forEach(func(r *Registration) {
		closeable, ok := r.Context.(Closeable)
		if !ok {
			return
		}
		g.Go(closeable.Close)
	})
	c := &Completion{done: make(chan struct{})}
	go func() {
		c.err = g.Wait()
		close(c.done)
	}()
	return c
}
