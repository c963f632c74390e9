package vos

import (
	"github.com/vosd/vos/common"
	"github.com/vosd/vos/internal/otree"
	"github.com/vosd/vos/internal/verrs"
)

// IterType selects which level of the object -> dkey -> akey -> recx
// hierarchy an Iterator walks.
type IterType int

const (
	DKeyIter IterType = iota
	AKeyIter
	RecxIter
)

// EpochMode selects the epoch-range predicate a RecxIter applies per
// index.
type EpochMode int

const (
	RE EpochMode = iota // within [epr.Lo, epr.Hi], ascending
	RR                  // within [epr.Lo, epr.Hi], descending
	GE                  // first epoch >= epr.Lo per index, ascending over indices
	LE                  // largest epoch <= epr.Lo per index, ascending over indices
	EQ                  // exactly epr.Lo per index; index skipped when absent
)

// Anchor is an opaque position token: a dkey/akey iterator captures the
// matched key bytes, a recx iterator captures (idx, epoch). Probe(anchor)
// falls through to a predicate walk from the nearest position if the
// exact anchor is gone.
type Anchor struct {
	Idx   uint64
	Epoch Epoch
	key   []byte
}

// IterEntry is the value an iterator yields at its current position; the
// fields populated depend on the iterator's IterType.
type IterEntry struct {
	Key   []byte
	Recx  Recx
	Epoch Epoch
	Rsize uint64
	Data  []byte
}

// IterParams configures IterPrepare. Dkey is required for AKeyIter and
// RecxIter; Akey is required for RecxIter; RequiredAkey and Mode/Epr are
// meaningful only for DKeyIter and RecxIter respectively.
type IterParams struct {
	Type         IterType
	Obj          common.ObjID
	Dkey         []byte
	Akey         []byte
	RequiredAkey []byte
	Mode         EpochMode
	Epr          EpochRange
}

// Iterator is the uniform cursor object: prepare/probe/next/fetch/
// delete/empty/finish over one of the three key levels.
type Iterator struct {
	c       *Container
	obj     common.ObjID
	typ     IterType
	heldRef bool // true once IterPrepare has acquired an objRef for obj

	tree *otree.Tree // nil once exhausted with nothing to walk

	requiredAkey []byte // DKeyIter predicate

	mode EpochMode // RecxIter
	epr  EpochRange
	walk *otree.Cursor // backing cursor for RE/RR
	idx  uint64        // next candidate index for GE/LE/EQ

	cur      []byte // DKey/AKey: matched relative key; nil if none positioned
	curVal   []byte
	curIdx   uint64 // RecxIter: matched idx
	curEpoch Epoch  // RecxIter: matched epoch
	curData  []byte
	curRsize uint64
	have     bool // true once Probe/Next has positioned the iterator on a live entry
	done     bool
}

// IterPrepare opens an iterator over one level of obj's keyspace. A
// never-written object is not an error: it yields a done iterator that
// holds no ref, since preparing an iterator is a read and must never
// materialise an object that was never written.
func (c *Container) IterPrepare(p IterParams) (*Iterator, error) {
	ref, objExists, err := c.objRefForRead(p.Obj)
	if err != nil {
		return nil, err
	}
	if !objExists {
		if p.Type != DKeyIter && p.Type != AKeyIter && p.Type != RecxIter {
			return nil, verrs.New("vos", verrs.Inval, "iterprepare: unknown iter type %d", p.Type)
		}
		return &Iterator{c: c, obj: p.Obj, typ: p.Type, done: true}, nil
	}

	switch p.Type {
	case DKeyIter:
		return &Iterator{c: c, obj: p.Obj, typ: DKeyIter, heldRef: true, tree: ref.dkeys, requiredAkey: p.RequiredAkey}, nil

	case AKeyIter:
		dkeyTree, exists, err := c.resolveDkeyForRead(ref, p.Dkey)
		if err != nil {
			c.releaseObjRef(p.Obj)
			return nil, err
		}
		if !exists {
			c.releaseObjRef(p.Obj)
			return &Iterator{c: c, obj: p.Obj, typ: AKeyIter, done: true}, nil
		}
		return &Iterator{c: c, obj: p.Obj, typ: AKeyIter, heldRef: true, tree: dkeyTree}, nil

	case RecxIter:
		dkeyTree, exists, err := c.resolveDkeyForRead(ref, p.Dkey)
		if err != nil {
			c.releaseObjRef(p.Obj)
			return nil, err
		}
		if !exists {
			c.releaseObjRef(p.Obj)
			return &Iterator{c: c, obj: p.Obj, typ: RecxIter, done: true}, nil
		}
		akeyTree, exists, err := c.openAkeyForRead(p.Obj, dkeyTree, p.Dkey, p.Akey)
		if err != nil {
			c.releaseObjRef(p.Obj)
			return nil, err
		}
		if !exists {
			c.releaseObjRef(p.Obj)
			return &Iterator{c: c, obj: p.Obj, typ: RecxIter, done: true}, nil
		}
		it := &Iterator{c: c, obj: p.Obj, typ: RecxIter, heldRef: true, tree: akeyTree, mode: p.Mode, epr: p.Epr}
		if p.Mode == RE || p.Mode == RR {
			it.walk = akeyTree.Cursor()
		}
		return it, nil

	default:
		c.releaseObjRef(p.Obj)
		return nil, verrs.New("vos", verrs.Inval, "iterprepare: unknown iter type %d", p.Type)
	}
}

// Empty reports whether this iterator's scope has any entries at all,
// without disturbing the iterator's current position.
func (it *Iterator) Empty() (bool, error) {
	if it.tree == nil {
		return true, nil
	}
	switch it.typ {
	case DKeyIter, AKeyIter:
		_, _, ok, err := it.tree.Probe(otree.ProbeFirst, nil)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case RecxIter:
		_, _, ok, err := it.tree.Probe(otree.ProbeFirst, nil)
		if err != nil {
			return false, err
		}
		return !ok, nil
	}
	return true, nil
}

// Probe positions the iterator at anchor (or at the first entry if
// anchor is nil), returning whether a matching entry is now current.
func (it *Iterator) Probe(anchor *Anchor) (bool, error) {
	if it.done || it.tree == nil {
		it.have = false
		return false, nil
	}
	switch it.typ {
	case DKeyIter, AKeyIter:
		var seek []byte
		if anchor != nil {
			seek = anchor.key
		}
		return it.advanceKeyed(seek)
	case RecxIter:
		switch it.mode {
		case RE, RR:
			if it.walk == nil {
				it.walk = it.tree.Cursor()
			}
			var ok bool
			if anchor != nil {
				seekOk := it.walk.Seek(encodeRecxKey(anchor.Idx, anchor.Epoch))
				switch {
				case it.mode == RE:
					ok = seekOk
				case seekOk && bytesEqualKey(it.walk, anchor):
					ok = true
				case seekOk:
					ok = it.walk.Prev()
				default:
					ok = it.walk.Last()
				}
			} else if it.mode == RE {
				ok = it.walk.First()
			} else {
				ok = it.walk.Last()
			}
			return it.advanceRange(ok)
		default:
			if anchor != nil {
				it.idx = anchor.Idx
			} else {
				it.idx = 0
			}
			return it.advanceByIndex()
		}
	}
	return false, nil
}

// Next advances to the following entry, returning whether one exists.
func (it *Iterator) Next() (bool, error) {
	if it.done || it.tree == nil {
		it.have = false
		return false, nil
	}
	switch it.typ {
	case DKeyIter, AKeyIter:
		if it.cur == nil {
			return it.advanceKeyed(nil)
		}
		return it.advanceKeyed(append(append([]byte{}, it.cur...), 0x01))
	case RecxIter:
		switch it.mode {
		case RE:
			return it.advanceRange(it.walk.Next())
		case RR:
			return it.advanceRange(it.walk.Prev())
		default:
			it.idx = it.curIdx + 1
			return it.advanceByIndex()
		}
	}
	return false, nil
}

func bytesEqualKey(c *otree.Cursor, a *Anchor) bool {
	i, e := decodeRecxKey(c.Key())
	return i == a.Idx && e == a.Epoch
}

// advanceKeyed implements the shared dkey/akey subtree-skip walk: it
// seeks to the first key >= seek, skipping entirely over any nested
// subtree (whose keys all sort strictly between a parent key and that
// parent key's successor), and applies the dkey predicate if one is set.
func (it *Iterator) advanceKeyed(seek []byte) (bool, error) {
	for {
		mk, v, ok, err := it.tree.Probe(otree.ProbeGE, seek)
		if err != nil {
			return false, err
		}
		if !ok {
			it.cur, it.curVal, it.have = nil, nil, false
			return false, nil
		}
		it.cur = append([]byte{}, mk...)
		it.curVal = v
		if it.typ == DKeyIter && it.requiredAkey != nil {
			if !it.dkeyHasAkey(it.cur) {
				seek = append(append([]byte{}, it.cur...), 0x01)
				continue
			}
		}
		it.have = true
		return true, nil
	}
}

func (it *Iterator) dkeyHasAkey(dkey []byte) bool {
	dkeyTree := it.tree.SubtreeView(dkey)
	_, ok, err := dkeyTree.Get(it.requiredAkey)
	return err == nil && ok
}

// advanceRange implements RE/RR: a linear scan over the raw cursor,
// filtering to entries whose epoch falls within [epr.Lo, epr.Hi].
func (it *Iterator) advanceRange(ok bool) (bool, error) {
	span := common.NewRange(it.epr.Lo, it.epr.Hi)
	for ok {
		idx, epoch := decodeRecxKey(it.walk.Key())
		if span.Contains(epoch) {
			rsize, _, data, err := decodeRecxValue(it.walk.Value())
			if err != nil {
				return false, err
			}
			it.curIdx, it.curEpoch, it.curRsize, it.curData, it.have = idx, epoch, rsize, data, true
			return true, nil
		}
		if it.mode == RE {
			ok = it.walk.Next()
		} else {
			ok = it.walk.Prev()
		}
	}
	it.have = false
	return false, nil
}

// advanceByIndex implements GE/LE/EQ: repeatedly probes for a match at
// it.idx, jumping forward to the next existing index on a miss and
// reprobing with the mode's own direction (probe-ge or probe-le).
func (it *Iterator) advanceByIndex() (bool, error) {
	for {
		var op otree.ProbeOp
		switch it.mode {
		case GE:
			op = otree.ProbeGE
		case LE:
			op = otree.ProbeLE
		case EQ:
			op = otree.ProbeEQ
		}
		mk, v, ok, err := it.tree.Probe(op, encodeRecxKey(it.idx, it.epr.Lo))
		if err != nil {
			return false, err
		}
		if !ok {
			if it.mode == GE {
				it.have = false
				return false, nil
			}
			// LE/EQ: nothing matches at this index, but a later index may.
			nk, _, ok2, err := it.tree.Probe(otree.ProbeGE, encodeRecxKey(it.idx+1, 0))
			if err != nil {
				return false, err
			}
			if !ok2 {
				it.have = false
				return false, nil
			}
			it.idx, _ = decodeRecxKey(nk)
			continue
		}
		mi, me := decodeRecxKey(mk)
		if mi == it.idx {
			rsize, _, data, err := decodeRecxValue(v)
			if err != nil {
				return false, err
			}
			it.curIdx, it.curEpoch, it.curRsize, it.curData, it.have = mi, me, rsize, data, true
			return true, nil
		}
		if it.mode == GE || it.mode == EQ {
			if it.mode == EQ {
				nk, _, ok2, err := it.tree.Probe(otree.ProbeGE, encodeRecxKey(it.idx+1, 0))
				if err != nil {
					return false, err
				}
				if !ok2 {
					it.have = false
					return false, nil
				}
				ni, _ := decodeRecxKey(nk)
				it.idx = ni
				continue
			}
			it.idx = mi // GE: the probe already landed on the next existing index
			continue
		}
		// LE: mi < it.idx (the nearest entry at or below it.idx is for an
		// earlier index); find the next index that actually exists.
		nk, _, ok2, err := it.tree.Probe(otree.ProbeGE, encodeRecxKey(it.idx+1, 0))
		if err != nil {
			return false, err
		}
		if !ok2 {
			it.have = false
			return false, nil
		}
		ni, _ := decodeRecxKey(nk)
		it.idx = ni
	}
}

// Fetch returns the entry and reseekable anchor at the iterator's
// current position. Call only after Probe/Next reported true. Returned
// byte slices are defensive copies, safe to retain past the next
// Probe/Next/Delete call even though the iterator's own buffers are not.
func (it *Iterator) Fetch() (IterEntry, Anchor, error) {
	if !it.have {
		return IterEntry{}, Anchor{}, verrs.New("vos", verrs.NonExist, "fetch: iterator not positioned on an entry")
	}
	switch it.typ {
	case DKeyIter, AKeyIter:
		key := common.CopyBytes(it.cur)
		return IterEntry{Key: key}, Anchor{key: key}, nil
	default: // RecxIter
		e := IterEntry{Recx: Recx{Idx: it.curIdx, Nr: 1}, Epoch: it.curEpoch, Rsize: it.curRsize, Data: common.CopyBytes(it.curData)}
		a := Anchor{Idx: it.curIdx, Epoch: it.curEpoch}
		return e, a, nil
	}
}

// Delete removes the iterator's current entry, inside a pmem transaction
// so a transaction abort surfaces as an iterator error.
func (it *Iterator) Delete() error {
	if !it.have {
		return verrs.New("vos", verrs.NonExist, "delete: iterator not positioned on an entry")
	}
	tx := it.c.pool.Begin()
	var key []byte
	switch it.typ {
	case DKeyIter, AKeyIter:
		key = it.cur
	default:
		key = encodeRecxKey(it.curIdx, it.curEpoch)
	}
	if err := it.tree.Delete(key); err != nil {
		tx.Abort()
		return err
	}
	return tx.Commit()
}

// Finish releases the iterator's resources. Must be called exactly once.
func (it *Iterator) Finish() error {
	if it.walk != nil {
		it.walk.Release()
		it.walk = nil
	}
	if it.heldRef {
		it.c.releaseObjRef(it.obj)
	}
	return nil
}
