package ioselect

import "testing"

func TestRegistrationTableInsertLookupRemove(t *testing.T) {
	tbl := newRegistrationTable()

	if tbl.lookup(5) != nil {
		t.Fatal("lookup on empty table must return nil")
	}

	r := tbl.insert(5, Read, "ctx")
	if r.FD() != 5 || r.Interested != Read || r.Context != "ctx" {
		t.Fatalf("unexpected registration: %+v", r)
	}
	if tbl.lookup(5) != r {
		t.Fatal("lookup must return the inserted registration")
	}
	if tbl.len() != 1 {
		t.Fatalf("expected len 1, got %d", tbl.len())
	}

	tbl.remove(5)
	if tbl.lookup(5) != nil {
		t.Fatal("lookup after remove must return nil")
	}
	if tbl.len() != 0 {
		t.Fatalf("expected len 0, got %d", tbl.len())
	}

	// Removing an absent descriptor is a no-op.
	tbl.remove(999)
}

func TestRegistrationTableForEach(t *testing.T) {
	tbl := newRegistrationTable()
	tbl.insert(1, Read, nil)
	tbl.insert(2, Write, nil)
	tbl.insert(3, All, nil)

	seen := map[int]IOEvent{}
	tbl.forEach(func(r *Registration) {
		seen[r.FD()] = r.Interested
	})
	if len(seen) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(seen))
	}
	if seen[2] != Write {
		t.Fatalf("expected fd 2 interested in Write, got %v", seen[2])
	}
}

func TestRegistrationPoolReuse(t *testing.T) {
	p := newRegistrationPool()
	r1 := p.get()
	r1.fd = 7
	r1.Interested = All
	r1.Context = "stale"
	p.put(r1)

	r2 := p.get()
	if r2 != r1 {
		t.Fatal("expected pool to reuse the freed registration")
	}
	if r2.fd != 0 || r2.Interested != None || r2.Context != nil {
		t.Fatalf("expected reused registration to be zeroed, got %+v", r2)
	}
}
