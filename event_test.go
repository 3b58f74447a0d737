package ioselect

import "testing"

func TestIOEventWants(t *testing.T) {
	cases := []struct {
		e          IOEvent
		wantRead   bool
		wantWrite  bool
		wantString string
	}{
		{None, false, false, "None"},
		{Read, true, false, "Read"},
		{Write, false, true, "Write"},
		{All, true, true, "All"},
	}
	for _, c := range cases {
		if got := c.e.wantsRead(); got != c.wantRead {
			t.Errorf("%v.wantsRead() = %v, want %v", c.e, got, c.wantRead)
		}
		if got := c.e.wantsWrite(); got != c.wantWrite {
			t.Errorf("%v.wantsWrite() = %v, want %v", c.e, got, c.wantWrite)
		}
		if got := c.e.String(); got != c.wantString {
			t.Errorf("%v.String() = %q, want %q", c.e, got, c.wantString)
		}
	}
}

func TestStrategyConstructors(t *testing.T) {
	if Block().kind != strategyBlock {
		t.Fatal("Block() must produce strategyBlock")
	}
	if Now().kind != strategyNow {
		t.Fatal("Now() must produce strategyNow")
	}
	s := BlockUntilTimeout(1000)
	if s.kind != strategyTimeout || s.timeout != 1000 {
		t.Fatalf("unexpected strategy: %+v", s)
	}
	// A non-positive deadline degrades to Now() rather than blocking
	// forever on a meaningless duration.
	if z := BlockUntilTimeout(0); z.kind != strategyNow {
		t.Fatalf("BlockUntilTimeout(0) should degrade to Now(), got %+v", z)
	}
	if neg := BlockUntilTimeout(-5); neg.kind != strategyNow {
		t.Fatalf("BlockUntilTimeout(-5) should degrade to Now(), got %+v", neg)
	}
}
