package pmem

import "testing"

func TestAllocWithinCommittedTxSurvives(t *testing.T) {
	p := NewPool()
	tx := p.Begin()
	id, buf := tx.Alloc(4)
	copy(buf, []byte("abcd"))
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	got, ok := p.Deref(id)
	if !ok {
		t.Fatalf("id not found after commit")
	}
	if string(got) != "abcd" {
		t.Fatalf("got %q, want %q", got, "abcd")
	}
}

func TestAbortFreesAllocations(t *testing.T) {
	p := NewPool()
	tx := p.Begin()
	id, _ := tx.Alloc(8)
	if err := tx.Abort(); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if _, ok := p.Deref(id); ok {
		t.Fatalf("id %d still live after abort", id)
	}
}

func TestAbortRestoresLoggedMutation(t *testing.T) {
	p := NewPool()
	tx := p.Begin()
	id, buf := tx.Alloc(4)
	copy(buf, []byte("orig"))
	tx.Commit()

	tx2 := p.Begin()
	if err := tx2.Log(id); err != nil {
		t.Fatalf("log: %v", err)
	}
	live, _ := p.Deref(id)
	copy(live, []byte("newd"))
	if err := tx2.Abort(); err != nil {
		t.Fatalf("abort: %v", err)
	}

	got, ok := p.Deref(id)
	if !ok {
		t.Fatalf("id missing after abort of a mutation-only tx")
	}
	if string(got) != "orig" {
		t.Fatalf("got %q after abort, want restored %q", got, "orig")
	}
}

func TestNestedBeginCommitOnlyUnwindsAtOutermost(t *testing.T) {
	p := NewPool()
	tx := p.Begin()
	inner := tx.Begin()
	if inner != tx {
		t.Fatalf("nested Begin should return the same *Tx")
	}
	id, _ := tx.Alloc(1)

	if err := tx.Commit(); err != nil {
		t.Fatalf("inner commit: %v", err)
	}
	// Still nested: the allocation must still be reachable and the
	// transaction not yet finished.
	if _, ok := p.Deref(id); !ok {
		t.Fatalf("allocation lost after inner commit")
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("outer commit: %v", err)
	}
	if _, ok := p.Deref(id); !ok {
		t.Fatalf("allocation lost after outer commit")
	}
}

func TestSetRootRoundTrip(t *testing.T) {
	p := NewPool()
	tx := p.Begin()
	id, _ := tx.Alloc(1)
	p.SetRoot(tx, id)
	tx.Commit()

	got, ok := p.Root()
	if !ok || got != id {
		t.Fatalf("root = %v, %v; want %v, true", got, ok, id)
	}
}

func TestSetRootUndoneOnAbort(t *testing.T) {
	p := NewPool()
	tx := p.Begin()
	id1, _ := tx.Alloc(1)
	p.SetRoot(tx, id1)
	tx.Commit()

	tx2 := p.Begin()
	id2, _ := tx2.Alloc(1)
	p.SetRoot(tx2, id2)
	tx2.Abort()

	got, ok := p.Root()
	if !ok || got != id1 {
		t.Fatalf("root = %v, %v after abort; want original root %v", got, ok, id1)
	}
}

func TestDoubleAbortErrors(t *testing.T) {
	p := NewPool()
	tx := p.Begin()
	tx.Alloc(1)
	if err := tx.Abort(); err != nil {
		t.Fatalf("first abort: %v", err)
	}
	if err := tx.Abort(); err == nil {
		t.Fatalf("second abort should fail")
	}
}
