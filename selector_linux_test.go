//go:build linux

package ioselect_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/ser-0xff/ioselect"
	"github.com/ser-0xff/ioselect/log"
)

type fakeCloseable struct{ closed bool }

func (f *fakeCloseable) Close() error { f.closed = true; return nil }

type warnCapturingLogger struct {
	log.Logger
	warns []string
}

func (l *warnCapturingLogger) Warn(args ...any) {
	l.warns = append(l.warns, fmt.Sprint(args...))
}

type fdSelectable struct {
	fd   int
	open bool
}

func (s *fdSelectable) Descriptor() int { return s.fd }
func (s *fdSelectable) Open() bool      { return s.open }

func newPipe(t *testing.T) (r, w int) {
	t.Helper()
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	return fds[0], fds[1]
}

// Exercises basic readability dispatch.
func TestSelectorBasicReadability(t *testing.T) {
	sel, err := ioselect.New()
	require.NoError(t, err)
	defer sel.Close()

	r, w := newPipe(t)
	defer unix.Close(r)
	defer unix.Close(w)

	rsel := &fdSelectable{fd: r, open: true}
	reg, err := sel.Register(rsel, ioselect.Read, nil)
	require.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_, _ = unix.Write(w, []byte{1})
	}()

	var got ioselect.Event
	var n int
	err = sel.Wait(ioselect.Block(), func(ev ioselect.Event) error {
		got = ev
		n++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, got.Readable)
	assert.False(t, got.Writable)
	assert.Same(t, reg, got.Registration)
}

// Exercises interest transition.
func TestSelectorInterestTransition(t *testing.T) {
	sel, err := ioselect.New()
	require.NoError(t, err)
	defer sel.Close()

	r, w := newPipe(t)
	defer unix.Close(r)
	defer unix.Close(w)

	rsel := &fdSelectable{fd: r, open: true}
	_, err = sel.Register(rsel, ioselect.Read, nil)
	require.NoError(t, err)

	_, err = unix.Write(w, []byte{1})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, sel.Reregister(rsel, ioselect.Write))

	var n int
	require.NoError(t, sel.Wait(ioselect.Now(), func(ev ioselect.Event) error {
		n++
		return nil
	}))
	assert.Equal(t, 0, n)

	require.NoError(t, sel.Reregister(rsel, ioselect.All))

	var got ioselect.Event
	require.NoError(t, sel.Wait(ioselect.Now(), func(ev ioselect.Event) error {
		got = ev
		n++
		return nil
	}))
	assert.Equal(t, 1, n)
	assert.True(t, got.Readable)
}

// Exercises wake correctness.
func TestSelectorWake(t *testing.T) {
	sel, err := ioselect.New()
	require.NoError(t, err)
	defer sel.Close()

	done := make(chan error, 1)
	var n int
	go func() {
		done <- sel.Wait(ioselect.Block(), func(ev ioselect.Event) error {
			n++
			return nil
		})
	}()

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, sel.Wake())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Millisecond):
		t.Fatal("Wait did not return within 10ms of Wake")
	}
	assert.Equal(t, 0, n)
}

// Exercises timed wait.
func TestSelectorTimedWait(t *testing.T) {
	sel, err := ioselect.New()
	require.NoError(t, err)
	defer sel.Close()

	start := time.Now()
	var n int
	err = sel.Wait(ioselect.BlockUntilTimeout(int64(50*time.Millisecond)), func(ev ioselect.Event) error {
		n++
		return nil
	})
	require.NoError(t, err)
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 200*time.Millisecond)
	assert.Equal(t, 0, n)
}

// Exercises error folding.
func TestSelectorErrorFolding(t *testing.T) {
	sel, err := ioselect.New()
	require.NoError(t, err)
	defer sel.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds[1])

	rsel := &fdSelectable{fd: fds[0], open: true}
	_, err = sel.Register(rsel, ioselect.Write, nil)
	require.NoError(t, err)
	require.NoError(t, unix.Close(fds[1]))

	var got ioselect.Event
	var n int
	require.NoError(t, sel.Wait(ioselect.Block(), func(ev ioselect.Event) error {
		got = ev
		n++
		return nil
	}))
	assert.Equal(t, 1, n)
	assert.True(t, got.Readable)
	unix.Close(fds[0])
}

func TestSelectorCloseLifecycle(t *testing.T) {
	sel, err := ioselect.New()
	require.NoError(t, err)

	r, w := newPipe(t)
	defer unix.Close(r)
	defer unix.Close(w)
	rsel := &fdSelectable{fd: r, open: true}

	require.NoError(t, sel.Close())

	_, err = sel.Register(rsel, ioselect.Read, nil)
	assert.ErrorIs(t, err, ioselect.ErrNotOpen)
	assert.ErrorIs(t, sel.Reregister(rsel, ioselect.Write), ioselect.ErrNotOpen)
	assert.ErrorIs(t, sel.Deregister(rsel), ioselect.ErrNotOpen)
	assert.ErrorIs(t, sel.Wait(ioselect.Now(), func(ioselect.Event) error { return nil }), ioselect.ErrNotOpen)

	// Wake remains safe to call after close.
	assert.NoError(t, sel.Wake())
	assert.ErrorIs(t, sel.Close(), ioselect.ErrNotOpen)
}

func TestSelectorWakeWarnsAfterClose(t *testing.T) {
	logger := &warnCapturingLogger{Logger: log.Default}
	sel, err := ioselect.New(ioselect.WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, sel.Close())

	assert.NoError(t, sel.Wake())
	assert.Len(t, logger.warns, 1)
}

func TestSelectorGentleClose(t *testing.T) {
	sel, err := ioselect.New()
	require.NoError(t, err)
	defer sel.Close()

	r, w := newPipe(t)
	defer unix.Close(r)
	defer unix.Close(w)
	rsel := &fdSelectable{fd: r, open: true}
	closeable := &fakeCloseable{}

	_, err = sel.Register(rsel, ioselect.Read, func(int) interface{} { return closeable })
	require.NoError(t, err)

	c := sel.GentleClose()
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("GentleClose did not resolve")
	}
	assert.NoError(t, c.Err())
	assert.True(t, closeable.closed)
}
