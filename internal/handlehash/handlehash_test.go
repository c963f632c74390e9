package handlehash

import "testing"

func TestInsertLookupPutRef(t *testing.T) {
	tbl := NewTable[string](nil)
	cookie := tbl.Insert("hello")

	v, ok := tbl.Lookup(cookie)
	if !ok || v != "hello" {
		t.Fatalf("lookup = %q, %v; want hello, true", v, ok)
	}
	if err := tbl.PutRef(cookie); err != nil {
		t.Fatalf("putref: %v", err)
	}
	// Original Insert reference is still outstanding.
	if _, ok := tbl.Lookup(cookie); !ok {
		t.Fatalf("entry should still be live")
	}
}

func TestDeleteDefersFreeUntilRefcountDrains(t *testing.T) {
	var freed []int
	tbl := NewTable[int](func(v int) { freed = append(freed, v) })
	cookie := tbl.Insert(42)

	v, ok := tbl.Lookup(cookie) // refcount now 2
	if !ok || v != 42 {
		t.Fatalf("lookup failed")
	}

	if err := tbl.Delete(cookie); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(freed) != 0 {
		t.Fatalf("free callback ran early: %v", freed)
	}

	// Drop the Insert reference.
	if err := tbl.PutRef(cookie); err != nil {
		t.Fatalf("putref 1: %v", err)
	}
	if len(freed) != 0 {
		t.Fatalf("free callback ran before last ref dropped: %v", freed)
	}

	// Drop the Lookup reference: refcount reaches zero, free fires.
	if err := tbl.PutRef(cookie); err != nil {
		t.Fatalf("putref 2: %v", err)
	}
	if len(freed) != 1 || freed[0] != 42 {
		t.Fatalf("freed = %v, want [42]", freed)
	}

	if _, ok := tbl.Lookup(cookie); ok {
		t.Fatalf("entry should be gone after delete+drain")
	}
}

func TestDeleteUnknownCookie(t *testing.T) {
	tbl := NewTable[int](nil)
	if err := tbl.Delete(9999); err == nil {
		t.Fatalf("expected error deleting unknown cookie")
	}
}

func TestLenCountsOnlyLiveEntries(t *testing.T) {
	tbl := NewTable[int](nil)
	a := tbl.Insert(1)
	tbl.Insert(2)
	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}
	tbl.Delete(a)
	tbl.PutRef(a)
	if tbl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after delete+drain", tbl.Len())
	}
}
