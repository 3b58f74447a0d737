package ioselect

import "testing"

func TestLifecycleState(t *testing.T) {
	s := newLifecycleState()
	if s.isOpen() {
		t.Fatal("new lifecycleState must start closed")
	}

	s.open()
	if !s.isOpen() {
		t.Fatal("expected open after open()")
	}

	if !s.beginClose() {
		t.Fatal("beginClose from open should succeed")
	}
	if s.isOpen() {
		t.Fatal("isOpen must be false while closing")
	}
	if s.beginClose() {
		t.Fatal("beginClose must not succeed twice")
	}

	s.finishClose()
	if s.isOpen() {
		t.Fatal("must stay closed after finishClose")
	}
	if s.beginClose() {
		t.Fatal("beginClose from closed must fail")
	}
}
