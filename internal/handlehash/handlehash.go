// Package handlehash implements a generic, refcounted, cookie-keyed handle
// table. eq keeps its event-queue handles in one; vos's object refs do not
// use it (they live in vos's LRU-backed reference cache).
// It is stdlib-only — the table's contract (refcounted entries with a
// per-type free callback, entries addressable by an externally-visible
// 64-bit cookie) has no match among this repository's eviction-cache
// dependencies (hashicorp/golang-lru, common/lru), which discard values
// on capacity pressure rather than on an explicit refcount reaching
// zero.
package handlehash

import (
	"sync"
	"sync/atomic"

	"github.com/vosd/vos/internal/verrs"
)

// FreeFunc is called, at most once, when an entry's refcount reaches zero
// after having been deleted from the table (or when PutRef drains the
// refcount of an already-deleted entry).
type FreeFunc[T any] func(v T)

type entry[T any] struct {
	value    T
	refcount int32
	deleted  bool
}

// Table is a generic cookie -> value table with refcounted lookups.
// Insert returns a fresh cookie; Lookup bumps the refcount; PutRef drops
// it, invoking Free once a deleted entry's refcount reaches zero; Delete
// removes the entry from the table without waiting for its refcount to
// drain independently.
type Table[T any] struct {
	mu      sync.Mutex
	entries map[uint64]*entry[T]
	next    atomic.Uint64
	free    FreeFunc[T]
}

// NewTable creates an empty table. free may be nil, in which case
// refcount-zero entries are simply dropped.
func NewTable[T any](free FreeFunc[T]) *Table[T] {
	t := &Table[T]{entries: make(map[uint64]*entry[T]), free: free}
	t.next.Store(1) // cookie 0 is never issued
	return t
}

// Insert adds v to the table with an initial refcount of 1 (the caller's
// own reference), returning the cookie it was assigned.
func (t *Table[T]) Insert(v T) uint64 {
	cookie := t.next.Add(1) - 1
	t.mu.Lock()
	t.entries[cookie] = &entry[T]{value: v, refcount: 1}
	t.mu.Unlock()
	return cookie
}

// Lookup finds the entry for cookie and bumps its refcount. The caller
// must release the reference with PutRef once done.
func (t *Table[T]) Lookup(cookie uint64) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[cookie]
	if !ok || e.deleted {
		var zero T
		return zero, false
	}
	e.refcount++
	return e.value, true
}

// PutRef releases one reference to cookie's entry. If the entry has been
// deleted and the refcount reaches zero, the free callback runs (outside
// the table's lock, so it may itself call back into the table).
func (t *Table[T]) PutRef(cookie uint64) error {
	t.mu.Lock()
	e, ok := t.entries[cookie]
	if !ok {
		t.mu.Unlock()
		return verrs.New("handlehash", verrs.NoHdl, "putref: unknown cookie %d", cookie)
	}
	e.refcount--
	freeNow := e.deleted && e.refcount <= 0
	if freeNow {
		delete(t.entries, cookie)
	}
	t.mu.Unlock()
	if freeNow && t.free != nil {
		t.free(e.value)
	}
	return nil
}

// Delete removes cookie's entry from the table. Its refcount keeps
// running independently: if references are still outstanding, the free
// callback fires on the matching PutRef that drains it to zero, not here.
func (t *Table[T]) Delete(cookie uint64) error {
	t.mu.Lock()
	e, ok := t.entries[cookie]
	if !ok {
		t.mu.Unlock()
		return verrs.New("handlehash", verrs.NoHdl, "delete: unknown cookie %d", cookie)
	}
	e.deleted = true
	freeNow := e.refcount <= 0
	if freeNow {
		delete(t.entries, cookie)
	}
	t.mu.Unlock()
	if freeNow && t.free != nil {
		t.free(e.value)
	}
	return nil
}

// Len returns the number of live (non-deleted) entries in the table.
func (t *Table[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, e := range t.entries {
		if !e.deleted {
			n++
		}
	}
	return n
}
