package vos

import (
	"github.com/vosd/vos/common"
	"github.com/vosd/vos/internal/otree"
	"github.com/vosd/vos/internal/pmem"
	"github.com/vosd/vos/internal/verrs"
)

// zcEntry is one staged record: the persistent id backing its iov, and
// enough of its key to install it into the recx tree at end-call time.
type zcEntry struct {
	akey  []byte
	idx   uint64
	id    pmem.ID
	rsize uint64
}

// ZCFetchCtx is the staging handle returned by ZCFetchBegin. It carries
// no pmem ids of its own (a fetch never allocates), only the object ref
// borrow that ZCFetchEnd must release exactly once — and only if Begin
// actually acquired one; a never-written object leaves heldRef false.
type ZCFetchCtx struct {
	c       *Container
	obj     common.ObjID
	heldRef bool
	done    bool
}

// ZCFetchBegin runs the same fetch algorithm as Fetch but, on a hit,
// returns the matched record's bytes directly into the result iov
// instead of copying into a caller-supplied sgl; a hole iov has Buf ==
// nil. A never-written object is not an error and never materialises a
// ref: every iod's Rsize is left zero.
func (c *Container) ZCFetchBegin(obj common.ObjID, epoch Epoch, dkey []byte, iods []IOD) (*ZCFetchCtx, [][]IOV, error) {
	out := make([][]IOV, len(iods))

	ref, objExists, err := c.objRefForRead(obj)
	if err != nil {
		return nil, nil, err
	}
	if !objExists {
		for i := range iods {
			iods[i].Rsize = 0
		}
		return &ZCFetchCtx{c: c, obj: obj}, out, nil
	}

	dkeyTree, exists, err := c.resolveDkeyForRead(ref, dkey)
	if err != nil {
		c.releaseObjRef(obj)
		return nil, nil, err
	}
	if !exists {
		for i := range iods {
			iods[i].Rsize = 0
		}
		return &ZCFetchCtx{c: c, obj: obj, heldRef: true}, out, nil
	}

	for i := range iods {
		iovs, err := c.zcFetchOne(obj, dkeyTree, dkey, epoch, &iods[i])
		if err != nil {
			c.releaseObjRef(obj)
			return nil, nil, err
		}
		out[i] = iovs
	}
	return &ZCFetchCtx{c: c, obj: obj, heldRef: true}, out, nil
}

func (c *Container) zcFetchOne(obj common.ObjID, dkeyTree *otree.Tree, dkey []byte, epoch Epoch, iod *IOD) ([]IOV, error) {
	iod.Rsize = 0
	akeyTree, exists, err := c.openAkeyForRead(obj, dkeyTree, dkey, iod.Akey)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	lo := epoch
	if iod.Epr != nil {
		lo = iod.Epr.Lo
	}

	var rsize uint64
	var iovs []IOV
	for _, recx := range iod.Recx {
		for k := uint64(0); k < recx.Nr; k++ {
			idx := recx.Idx + k
			matchKey, value, ok, err := akeyTree.Probe(otree.ProbeLE, encodeRecxKey(idx, lo))
			if err != nil {
				return nil, err
			}
			if ok {
				mi, _ := decodeRecxKey(matchKey)
				if mi == idx {
					rs, _, data, derr := decodeRecxValue(value)
					if derr != nil {
						return nil, derr
					}
					if rs > 0 {
						rsize = rs
						iovs = append(iovs, IOV{Buf: data})
						continue
					}
				}
			}
			iovs = append(iovs, IOV{})
		}
	}
	iod.Rsize = rsize
	return iovs, nil
}

// End releases the staging handle's object-ref borrow. Must be called
// exactly once, even if nothing was ever fetched.
func (ctx *ZCFetchCtx) End() error {
	if ctx.done {
		return verrs.New("vos", verrs.Inval, "zcfetchend: already finished")
	}
	ctx.done = true
	if ctx.heldRef {
		ctx.c.releaseObjRef(ctx.obj)
	}
	return nil
}

// ZCUpdateCtx is the staging handle returned by ZCUpdateBegin: the
// per-record persistent ids allocated for the caller to write into
// directly, plus enough context to install (End(nil)) or discard
// (End(err)) them.
type ZCUpdateCtx struct {
	c      *Container
	obj    common.ObjID
	dkey   []byte
	epoch  Epoch
	cookie common.Cookie

	entries []zcEntry
	done    bool
}

// ZCUpdateBegin allocates one persistent record per (descriptor, record
// index) inside its own transaction and returns the live backing slice of
// each as the caller's iov, so the caller writes data in place with no
// intermediate copy. The allocating transaction commits before
// this call returns, since the caller's own data transfer happens outside
// any transaction boundary.
func (c *Container) ZCUpdateBegin(obj common.ObjID, epoch Epoch, cookie common.Cookie, dkey []byte, iods []IOD) (*ZCUpdateCtx, [][]IOV, error) {
	for i := range iods {
		if iods[i].Epr != nil && iods[i].Epr.Hi != EpochMax {
			return nil, nil, verrs.New("vos", verrs.IOInval, "zcupdate: epr.hi must be EpochMax")
		}
	}

	ref, err := c.objRef(obj)
	if err != nil {
		return nil, nil, err
	}

	tx := c.pool.Begin()
	dkeyTree, err := c.resolveDkeyForWrite(ref, dkey)
	if err != nil {
		tx.Abort()
		c.releaseObjRef(obj)
		return nil, nil, err
	}

	out := make([][]IOV, len(iods))
	var entries []zcEntry
	for i := range iods {
		iod := &iods[i]
		if _, err := c.openAkeyForWrite(obj, dkeyTree, dkey, iod.Akey, iod.Rsize); err != nil {
			tx.Abort()
			c.releaseObjRef(obj)
			return nil, nil, err
		}
		var ivs []IOV
		for _, recx := range iod.Recx {
			for k := uint64(0); k < recx.Nr; k++ {
				idx := recx.Idx + k
				id, buf := tx.Alloc(int(iod.Rsize))
				entries = append(entries, zcEntry{akey: iod.Akey, idx: idx, id: id, rsize: iod.Rsize})
				ivs = append(ivs, IOV{Buf: buf})
			}
		}
		out[i] = ivs
	}

	if err := tx.Commit(); err != nil {
		tx.Abort()
		c.releaseObjRef(obj)
		return nil, nil, err
	}

	return &ZCUpdateCtx{c: c, obj: obj, dkey: dkey, epoch: epoch, cookie: cookie, entries: entries}, out, nil
}

// End finishes a zero-copy update. If failErr is non-nil, every staged
// id is freed inside a fresh transaction that retains nothing it
// allocated; otherwise the staged records are installed into the
// recx tree from their pmem-backed bytes and the cookie index is
// updated. Must be called exactly once, even on a begin that staged
// nothing.
func (ctx *ZCUpdateCtx) End(failErr error) error {
	if ctx.done {
		return verrs.New("vos", verrs.Inval, "zcupdateend: already finished")
	}
	ctx.done = true

	tx := ctx.c.pool.Begin()

	if failErr != nil {
		for _, e := range ctx.entries {
			tx.Free(e.id)
		}
		err := tx.Commit()
		ctx.c.releaseObjRef(ctx.obj)
		return err
	}

	// Two borrows are outstanding at this point: the one Begin took (kept
	// alive across the caller's external data transfer) and the one taken
	// just below to reach ref.dkeys/ref.observeCookie safely. Both are
	// released before returning, regardless of outcome.
	ref, err := ctx.c.objRef(ctx.obj)
	if err != nil {
		tx.Abort()
		ctx.c.releaseObjRef(ctx.obj) // Begin's borrow
		return err
	}

	dkeyTree, derr := ctx.c.resolveDkeyForWrite(ref, ctx.dkey)
	if derr != nil {
		tx.Abort()
		ctx.c.releaseObjRef(ctx.obj)
		ctx.c.releaseObjRef(ctx.obj)
		return derr
	}

	for _, e := range ctx.entries {
		akeyTree, aerr := ctx.c.openAkeyForWrite(ctx.obj, dkeyTree, ctx.dkey, e.akey, e.rsize)
		if aerr != nil {
			tx.Abort()
			ctx.c.releaseObjRef(ctx.obj)
			ctx.c.releaseObjRef(ctx.obj)
			return aerr
		}
		buf, ok := ctx.c.pool.Deref(e.id)
		if !ok {
			tx.Abort()
			ctx.c.releaseObjRef(ctx.obj)
			ctx.c.releaseObjRef(ctx.obj)
			return verrs.New("vos", verrs.NonExist, "zcupdateend: staged id %d missing", e.id)
		}
		key := encodeRecxKey(e.idx, ctx.epoch)
		value := encodeRecxValue(e.rsize, ctx.cookie, buf)
		if ierr := akeyTree.Insert(key, value); ierr != nil {
			tx.Abort()
			ctx.c.releaseObjRef(ctx.obj)
			ctx.c.releaseObjRef(ctx.obj)
			return ierr
		}
	}

	ref.observeCookie(ctx.cookie, ctx.epoch)
	err = tx.Commit()
	ctx.c.releaseObjRef(ctx.obj)
	ctx.c.releaseObjRef(ctx.obj)
	if err != nil {
		return err
	}
	ctx.c.bumpMaxEpoch(ctx.epoch)
	return nil
}
