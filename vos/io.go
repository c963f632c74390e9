package vos

import (
	"github.com/vosd/vos/common"
	"github.com/vosd/vos/internal/otree"
	"github.com/vosd/vos/internal/pmem"
	"github.com/vosd/vos/internal/verrs"
)

// akeyCacheKey must include obj: c.akeys is a single container-wide cache
// (not per-object), and dkey/akey names are routinely reused across
// distinct objects. Without obj in the key, object B's fetch of a
// (dkey, akey) pair already cached for object A would be handed A's recx
// subtree.
func akeyCacheKey(obj common.ObjID, dkey, akey []byte) string {
	return string(obj.Bytes()) + "\x00" + string(dkey) + "\x00" + string(akey)
}

// resolveDkeyForRead opens obj's dkey subtree without materialising it
// if the dkey was never written (object-not-existent and
// dkey-not-existent are both non-errors at this level).
func (c *Container) resolveDkeyForRead(ref *objRef, dkey []byte) (*otree.Tree, bool, error) {
	_, exists, err := ref.dkeys.Get(dkey)
	if err != nil || !exists {
		return nil, exists, err
	}
	return ref.dkeys.SubtreeView(dkey), true, nil
}

// resolveDkeyForWrite materialises obj's dkey subtree, creating it if
// this is the dkey's first write.
func (c *Container) resolveDkeyForWrite(ref *objRef, dkey []byte) (*otree.Tree, error) {
	t, _, err := ref.dkeys.OpenSubtree(dkey)
	return t, err
}

// openAkeyForRead resolves the recx subtree for akey within dkeyTree
// without materialising it if absent, consulting/populating the akey
// subtree cache first.
func (c *Container) openAkeyForRead(obj common.ObjID, dkeyTree *otree.Tree, dkey, akey []byte) (*otree.Tree, bool, error) {
	if t, ok := c.akeys.get([]byte(akeyCacheKey(obj, dkey, akey))); ok {
		return t, true, nil
	}
	_, exists, err := dkeyTree.Get(akey)
	if err != nil || !exists {
		return nil, exists, err
	}
	t := dkeyTree.SubtreeView(akey)
	c.akeys.add([]byte(akeyCacheKey(obj, dkey, akey)), t)
	return t, true, nil
}

// openAkeyForWrite ensures akey's metadata exists within dkeyTree
// (writing rsize if this is the first write) and returns its recx
// subtree, validating rsize uniformity. A punch (rsize 0) is exempt from
// the check and does not fix the akey's rsize; the first non-zero write
// after only punches does.
func (c *Container) openAkeyForWrite(obj common.ObjID, dkeyTree *otree.Tree, dkey, akey []byte, rsize uint64) (*otree.Tree, error) {
	val, exists, err := dkeyTree.Get(akey)
	if err != nil {
		return nil, err
	}
	if exists {
		m := decodeAkeyMeta(val)
		if rsize != 0 && m != 0 && m != rsize {
			return nil, verrs.New("vos", verrs.IOInval, "rsize mismatch for akey %q: have %d, want %d", akey, m, rsize)
		}
		if m == 0 && rsize != 0 {
			if err := dkeyTree.Insert(akey, encodeAkeyMeta(rsize)); err != nil {
				return nil, err
			}
		}
	} else {
		if err := dkeyTree.Insert(akey, encodeAkeyMeta(rsize)); err != nil {
			return nil, err
		}
	}
	t, _, err := dkeyTree.OpenSubtree(akey)
	if err != nil {
		return nil, err
	}
	c.akeys.add([]byte(akeyCacheKey(obj, dkey, akey)), t)
	return t, nil
}

// Fetch reads the record extents named by iods (at epoch, or an iod's
// own epoch-range override) under (obj, dkey) into the matching sgls.
// A never-written object, dkey, or akey is not an error: the matching
// iod's Rsize is left zero and its sgl untouched.
func (c *Container) Fetch(obj common.ObjID, epoch Epoch, dkey []byte, iods []IOD, sgls []SGL) error {
	if len(iods) != len(sgls) {
		return verrs.New("vos", verrs.Inval, "fetch: iods/sgls length mismatch")
	}
	ref, objExists, err := c.objRefForRead(obj)
	if err != nil {
		return err
	}
	if !objExists {
		for i := range iods {
			iods[i].Rsize = 0
		}
		return nil
	}
	defer c.releaseObjRef(obj)

	dkeyTree, exists, err := c.resolveDkeyForRead(ref, dkey)
	if err != nil {
		return err
	}
	if !exists {
		for i := range iods {
			iods[i].Rsize = 0
		}
		return nil
	}

	for i := range iods {
		if err := c.fetchOne(obj, dkeyTree, dkey, epoch, &iods[i], &sgls[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) fetchOne(obj common.ObjID, dkeyTree *otree.Tree, dkey []byte, epoch Epoch, iod *IOD, sgl *SGL) error {
	iod.Rsize = 0

	akeyTree, exists, err := c.openAkeyForRead(obj, dkeyTree, dkey, iod.Akey)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	lo := epoch
	if iod.Epr != nil {
		lo = iod.Epr.Lo
	}

	sink := newIOCursor(sgl)
	var rsize uint64
	sawReal := false
	pendingHoles := uint64(0)

	for _, recx := range iod.Recx {
		for k := uint64(0); k < recx.Nr; k++ {
			idx := recx.Idx + k
			probeKey := encodeRecxKey(idx, lo)
			matchKey, value, ok, perr := akeyTree.Probe(otree.ProbeLE, probeKey)
			if perr != nil {
				return perr
			}
			isReal := false
			var data []byte
			if ok {
				mi, _ := decodeRecxKey(matchKey)
				if mi == idx {
					rs, _, d, derr := decodeRecxValue(value)
					if derr != nil {
						return derr
					}
					data = d
					if rs > 0 {
						isReal = true
						rsize = rs
					}
				}
			}
			if isReal {
				if !sawReal {
					if err := sink.advance(int(pendingHoles * rsize)); err != nil {
						return err
					}
					pendingHoles = 0
					sawReal = true
				}
				if err := sink.write(data); err != nil {
					return err
				}
			} else if sawReal {
				if err := sink.advance(int(rsize)); err != nil {
					return err
				}
			} else {
				pendingHoles++
			}
		}
	}
	iod.Rsize = rsize
	return nil
}

// Update writes the record extents named by iods (all at a single epoch,
// tagged with cookie) under (obj, dkey), copying source bytes from the
// matching sgls. Every descriptor is validated for rsize uniformity
// before any is written, so a mismatch anywhere leaves all prior state
// untouched without requiring the underlying
// keyspace store to participate in pmem's own undo log.
func (c *Container) Update(obj common.ObjID, epoch Epoch, cookie common.Cookie, dkey []byte, iods []IOD, sgls []SGL) error {
	if len(iods) != len(sgls) {
		return verrs.New("vos", verrs.Inval, "update: iods/sgls length mismatch")
	}
	for i := range iods {
		if iods[i].Epr != nil && iods[i].Epr.Hi != EpochMax {
			return verrs.New("vos", verrs.IOInval, "update: epr.hi must be EpochMax")
		}
	}

	ref, err := c.objRef(obj)
	if err != nil {
		return err
	}
	defer c.releaseObjRef(obj)

	dkeyTreeForCheck, dkeyExists, err := c.resolveDkeyForRead(ref, dkey)
	if err != nil {
		return err
	}

	// Phase 1: validate rsize uniformity for every akey before writing
	// anything, so a later descriptor's mismatch can never leave an
	// earlier one half-applied.
	if dkeyExists {
		for i := range iods {
			val, exists, err := dkeyTreeForCheck.Get(iods[i].Akey)
			if err != nil {
				return err
			}
			if exists && iods[i].Rsize != 0 && decodeAkeyMeta(val) != 0 && decodeAkeyMeta(val) != iods[i].Rsize {
				return verrs.New("vos", verrs.IOInval, "rsize mismatch for akey %q: have %d, want %d", iods[i].Akey, decodeAkeyMeta(val), iods[i].Rsize)
			}
		}
	}

	tx := c.pool.Begin()

	dkeyTree, err := c.resolveDkeyForWrite(ref, dkey)
	if err != nil {
		tx.Abort()
		return err
	}

	for i := range iods {
		if err := c.updateOne(obj, tx, dkeyTree, dkey, epoch, cookie, &iods[i], &sgls[i]); err != nil {
			tx.Abort()
			return err
		}
	}

	ref.observeCookie(cookie, epoch)
	if err := tx.Commit(); err != nil {
		return err
	}
	c.bumpMaxEpoch(epoch)
	return nil
}

func (c *Container) updateOne(obj common.ObjID, tx *pmem.Tx, dkeyTree *otree.Tree, dkey []byte, epoch Epoch, cookie common.Cookie, iod *IOD, sgl *SGL) error {
	akeyTree, err := c.openAkeyForWrite(obj, dkeyTree, dkey, iod.Akey, iod.Rsize)
	if err != nil {
		return err
	}

	src := newIOCursor(sgl)
	for _, recx := range iod.Recx {
		for k := uint64(0); k < recx.Nr; k++ {
			idx := recx.Idx + k
			var data []byte
			if iod.Rsize > 0 {
				data, err = src.read(int(iod.Rsize))
				if err != nil {
					return err
				}
			}
			key := encodeRecxKey(idx, epoch)
			value := encodeRecxValue(iod.Rsize, cookie, data)
			if err := akeyTree.Insert(key, value); err != nil {
				return err
			}
		}
	}
	return nil
}
