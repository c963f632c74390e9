// Package otree is the ordered-tree primitive the object store's on-disk
// layout assumes as a provided library: a key-ordered map with cursor
// iteration, range probing, and open-in-place of a nested root. It is a
// thin façade over github.com/syndtr/goleveldb, which already gives
// byte-lexicographic key ordering and a real Seek/Next/Prev cursor,
// rather than reimplementing a b-tree.
package otree

import (
	"bytes"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/vosd/vos/internal/verrs"
)

// subtreeMarker is stored at a parent key when OpenSubtree materialises
// a nested root there, so a later Probe of the parent tree sees a
// non-empty value at that key: the subtree root is materialised inline
// in the parent leaf.
var subtreeMarker = []byte{0x01}

// sep separates a parent key from its subtree's own keyspace. Child keys
// therefore always sort immediately after the parent's own entry, since
// sep is lower than any byte a caller's dkey/akey bytes would start a
// sibling key with in this tree's scheme (each level opens its own Tree
// rather than sharing one flat prefix space with siblings).
const sep = 0x00

// Tree is one nested key range within a shared goleveldb handle: a
// byte-string prefix plus the database it is rooted in. Composing
// object -> dkey -> akey -> recx as nested Trees, each opened from its
// parent via OpenSubtree, gives the store's hierarchy without any of the
// levels needing to know about the others' key schemes.
type Tree struct {
	db     *leveldb.DB
	prefix []byte
	owned  bool // true only for the root Tree returned by Open/OpenMem
}

// Open opens (creating if absent) a goleveldb database at path and
// returns its root Tree.
func Open(path string) (*Tree, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, verrs.New("otree", verrs.Inval, "open %s: %v", path, err)
	}
	return &Tree{db: db, owned: true}, nil
}

// OpenMem opens an in-memory database, for tests and for pmem-backed
// deployments that keep the tree itself volatile.
func OpenMem() (*Tree, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, verrs.New("otree", verrs.NoMem, "open mem storage: %v", err)
	}
	return &Tree{db: db, owned: true}, nil
}

// Close releases the underlying database. Only meaningful on the root
// Tree returned by Open/OpenMem; subtrees share their root's handle and
// Close on them is a no-op.
func (t *Tree) Close() error {
	if !t.owned {
		return nil
	}
	return t.db.Close()
}

func (t *Tree) fullKey(key []byte) []byte {
	fk := make([]byte, 0, len(t.prefix)+len(key))
	fk = append(fk, t.prefix...)
	fk = append(fk, key...)
	return fk
}

// Insert writes value at key, creating or overwriting it.
func (t *Tree) Insert(key, value []byte) error {
	if err := t.db.Put(t.fullKey(key), value, nil); err != nil {
		return verrs.New("otree", verrs.NoMem, "insert: %v", err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (t *Tree) Delete(key []byte) error {
	if err := t.db.Delete(t.fullKey(key), nil); err != nil {
		return verrs.New("otree", verrs.Inval, "delete: %v", err)
	}
	return nil
}

// Get performs a point lookup.
func (t *Tree) Get(key []byte) (value []byte, ok bool, err error) {
	v, derr := t.db.Get(t.fullKey(key), nil)
	if derr == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if derr != nil {
		return nil, false, verrs.New("otree", verrs.Inval, "get: %v", derr)
	}
	return v, true, nil
}

// ProbeOp selects the direction of a range probe: lookup, or range probe
// first/last/ge/le/eq.
type ProbeOp int

const (
	ProbeEQ ProbeOp = iota
	ProbeGE
	ProbeLE
	ProbeFirst
	ProbeLast
)

// Probe resolves key (ignored for ProbeFirst/ProbeLast) against op,
// returning the matched key (relative to this Tree's own prefix), its
// value, and whether a match was found.
func (t *Tree) Probe(op ProbeOp, key []byte) (matchKey, value []byte, ok bool, err error) {
	c := t.Cursor()
	defer c.Release()

	switch op {
	case ProbeFirst:
		ok = c.First()
	case ProbeLast:
		ok = c.Last()
	case ProbeEQ:
		ok = c.Seek(key) && bytes.Equal(c.Key(), key)
	case ProbeGE:
		ok = c.Seek(key)
	case ProbeLE:
		ok = c.Seek(key)
		if ok && !bytes.Equal(c.Key(), key) {
			ok = c.Prev()
		} else if !ok {
			ok = c.Last()
		}
	default:
		return nil, nil, false, verrs.New("otree", verrs.Inval, "probe: unknown op %d", op)
	}
	if !ok {
		return nil, nil, false, nil
	}
	return append([]byte{}, c.Key()...), append([]byte{}, c.Value()...), true, nil
}

// Cursor returns a fresh cursor scoped to this Tree's own key range.
// Callers must call Release when done.
func (t *Tree) Cursor() *Cursor {
	rng := util.BytesPrefix(t.prefix)
	return &Cursor{iter: t.db.NewIterator(rng, nil), prefix: t.prefix}
}

// OpenSubtree materialises (or re-opens, if already present) a nested
// Tree rooted at key within t: a marker value is written at fullKey(key)
// the first time, and the returned Tree's own prefix is that same full
// key plus a separator byte, so the child's keyspace nests directly
// under the parent's entry with no copy of the child's root.
func (t *Tree) OpenSubtree(key []byte) (child *Tree, created bool, err error) {
	fk := t.fullKey(key)
	_, exists, gerr := t.Get(key)
	if gerr != nil {
		return nil, false, gerr
	}
	if !exists {
		if err := t.db.Put(fk, subtreeMarker, nil); err != nil {
			return nil, false, verrs.New("otree", verrs.NoMem, "opensubtree: %v", err)
		}
	}
	childPrefix := make([]byte, 0, len(fk)+1)
	childPrefix = append(childPrefix, fk...)
	childPrefix = append(childPrefix, sep)
	return &Tree{db: t.db, prefix: childPrefix}, !exists, nil
}

// SubtreeView returns the Tree that OpenSubtree(key) would return, without
// checking or writing the parent-key marker. It is for read paths that
// must not materialise a subtree that was never written (fetching an
// absent akey, say): the caller has already confirmed via Get(key) that
// an entry exists there, or is content to read an empty range if not.
func (t *Tree) SubtreeView(key []byte) *Tree {
	fk := t.fullKey(key)
	childPrefix := make([]byte, 0, len(fk)+1)
	childPrefix = append(childPrefix, fk...)
	childPrefix = append(childPrefix, sep)
	return &Tree{db: t.db, prefix: childPrefix}
}

// Cursor is an in-order iterator over one Tree's key range, returning
// keys with that Tree's own prefix stripped.
type Cursor struct {
	iter   iterator.Iterator
	prefix []byte
}

func (c *Cursor) First() bool { return c.iter.First() }
func (c *Cursor) Last() bool  { return c.iter.Last() }
func (c *Cursor) Next() bool  { return c.iter.Next() }
func (c *Cursor) Prev() bool  { return c.iter.Prev() }

// Seek positions the cursor at the first key >= key (relative to the
// Tree's own prefix).
func (c *Cursor) Seek(key []byte) bool {
	fk := make([]byte, 0, len(c.prefix)+len(key))
	fk = append(fk, c.prefix...)
	fk = append(fk, key...)
	return c.iter.Seek(fk)
}

// Key returns the current entry's key with the Tree's prefix stripped.
func (c *Cursor) Key() []byte {
	k := c.iter.Key()
	if len(k) < len(c.prefix) {
		return nil
	}
	return k[len(c.prefix):]
}

// Value returns the current entry's value.
func (c *Cursor) Value() []byte { return c.iter.Value() }

// Valid reports whether the cursor is positioned at a live entry.
func (c *Cursor) Valid() bool { return c.iter.Valid() }

// Release must be called exactly once when the cursor is no longer
// needed.
func (c *Cursor) Release() { c.iter.Release() }
