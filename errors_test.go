package ioselect

import (
	"errors"
	"testing"
)

func TestOSErrorWrapping(t *testing.T) {
	cause := errors.New("boom")
	err := NewOSError("epoll_wait", cause)
	if err == nil {
		t.Fatal("expected non-nil error")
	}
	if !errors.Is(err, cause) {
		t.Fatal("OSError must unwrap to its cause")
	}

	var osErr *OSError
	if !errors.As(err, &osErr) {
		t.Fatal("expected errors.As to find *OSError")
	}
	if osErr.Label != "epoll_wait" {
		t.Fatalf("unexpected label %q", osErr.Label)
	}
}

func TestNewOSErrorNilPassthrough(t *testing.T) {
	if err := NewOSError("whatever", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestUnsupportedFilterPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected unsupportedFilter to panic")
		}
	}()
	unsupportedFilter("kqueue filter", 99)
}
