// Package pmem provides a façade over a persistent-memory allocator:
// allocation of zeroed byte slices (not typed records) behind an opaque id,
// a root pointer, and transactional
// begin/commit/abort with an undo log. It models the transactional
// primitive vos assumes is provided by the pmem runtime, over a plain
// in-process arena rather than real non-volatile memory — there is no
// portable, unforked Go compiler with pmem intrinsics to target, so this
// package reproduces only the undo-log transaction algorithm (copy-aside
// before mutation, replay on abort), not persistence itself.
package pmem

import (
	"sync"
	"sync/atomic"

	"github.com/vosd/vos/internal/verrs"
)

// ID is an opaque persistent allocation id. The zero ID never names a
// live allocation.
type ID uint64

// Pool owns an arena of allocations and a root id, the minimal surface a
// pmem transaction needs: byte-slice allocation, pointer dereference, free,
// and a root pointer other packages anchor their own structures from.
type Pool struct {
	arena  sync.Map // ID -> []byte
	nextID atomic.Uint64
	root   atomic.Uint64
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	p := &Pool{}
	p.nextID.Store(1) // 0 is reserved as "no id"
	return p
}

// Root returns the pool's root id, or (0, false) if none has been set.
func (p *Pool) Root() (ID, bool) {
	v := p.root.Load()
	if v == 0 {
		return 0, false
	}
	return ID(v), true
}

// SetRoot installs id as the pool's root. Like every other mutation, this
// must only be called from within a transaction so it can be undone.
func (p *Pool) SetRoot(tx *Tx, id ID) {
	tx.logRoot()
	p.root.Store(uint64(id))
}

// Deref returns the live bytes backing id.
func (p *Pool) Deref(id ID) ([]byte, bool) {
	v, ok := p.arena.Load(id)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

// Begin starts a new, outermost transaction against the pool. It always
// returns a fresh Tx; nesting inside an open transaction goes through
// Tx.Begin instead. Effects including allocations are reversed on abort,
// at whatever nesting depth abort happens.
func (p *Pool) Begin() *Tx {
	return &Tx{pool: p, level: 1}
}

// Begin nests a new transaction level inside tx, returning tx itself.
func (tx *Tx) Begin() *Tx {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.level++
	return tx
}

// undoEntry is one copy-aside log record: the live bytes of id are
// restored from data on abort.
type undoEntry struct {
	id   ID
	data []byte
}

// Tx is an open pmem transaction: a log of allocations and logged
// mutations made since Begin, undone in full on Abort.
type Tx struct {
	mu        sync.Mutex
	pool      *Pool
	level     int
	allocated []ID
	log       []undoEntry
	rootLog   []uint64
	rootSet   bool
	aborted   bool
	committed bool
}

// Alloc reserves size bytes under a new id, zero-initialized, returning
// both the id (for later Free/Log/SetRoot calls) and the live slice.
func (tx *Tx) Alloc(size int) (ID, []byte) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	id := ID(tx.pool.nextID.Add(1) - 1)
	buf := make([]byte, size)
	tx.pool.arena.Store(id, buf)
	tx.allocated = append(tx.allocated, id)
	return id, buf
}

// Free releases id. Its memory is reclaimed immediately; if the enclosing
// transaction aborts after a Free, the id is not resurrected (Free is
// asymmetric with Alloc: only allocations made within the aborting
// transaction are rolled back, per the undo-log design this package is
// grounded on).
func (tx *Tx) Free(id ID) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.pool.arena.Delete(id)
}

// Log records the current contents of id's allocation before the caller
// mutates it in place, so Abort can restore them. Log must be called
// before the mutation, not after.
func (tx *Tx) Log(id ID) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	v, ok := tx.pool.arena.Load(id)
	if !ok {
		return verrs.New("pmem", verrs.NonExist, "log: unknown id %d", id)
	}
	live := v.([]byte)
	cp := make([]byte, len(live))
	copy(cp, live)
	tx.log = append(tx.log, undoEntry{id: id, data: cp})
	return nil
}

func (tx *Tx) logRoot() {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.rootLog = append(tx.rootLog, tx.pool.root.Load())
	tx.rootSet = true
}

// Commit ends one nesting level. Only the outermost Commit actually
// discards the undo log; an inner Commit is a no-op beyond decrementing
// the level, matching the undo-log transaction's nested Begin/End
// contract.
func (tx *Tx) Commit() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.level == 0 {
		return verrs.New("pmem", verrs.Inval, "commit: no open transaction")
	}
	tx.level--
	if tx.level == 0 {
		tx.log = nil
		tx.allocated = nil
		tx.rootLog = nil
		tx.rootSet = false
		tx.committed = true
	}
	return nil
}

// Abort reverses every logged mutation (restoring their pre-mutation
// bytes), the root pointer if it was changed, and frees every id
// allocated since Begin, regardless of nesting level: an abort at any
// depth unwinds the whole transaction, since a partially-committed
// transaction has no meaning for this engine.
func (tx *Tx) Abort() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.aborted || tx.committed {
		return verrs.New("pmem", verrs.Inval, "abort: transaction already finished")
	}
	for i := len(tx.log) - 1; i >= 0; i-- {
		e := tx.log[i]
		if v, ok := tx.pool.arena.Load(e.id); ok {
			live := v.([]byte)
			copy(live, e.data)
		}
	}
	if tx.rootSet && len(tx.rootLog) > 0 {
		tx.pool.root.Store(tx.rootLog[0])
	}
	for _, id := range tx.allocated {
		tx.pool.arena.Delete(id)
	}
	tx.log = nil
	tx.allocated = nil
	tx.rootLog = nil
	tx.level = 0
	tx.aborted = true
	return nil
}
