package vos

import (
	"sync/atomic"

	"github.com/vosd/vos/common"
	"github.com/vosd/vos/internal/otree"
	"github.com/vosd/vos/internal/pmem"
	"github.com/vosd/vos/internal/verrs"
)

const (
	defaultObjRefCacheSize    = 1024
	defaultAkeySubtreeCacheSize = 1024
)

// Container is one open VOS store: an object tree (keyed by ObjID,
// nesting dkey -> akey -> recx underneath), a transactional arena
// backing its zero-copy staging paths, and a bounded object-reference
// cache.
type Container struct {
	objects *otree.Tree
	pool    *pmem.Pool
	refs    *refCache
	akeys   *akeySubtreeCache

	maxEpoch atomic.Uint64
}

// Open opens (creating if absent) a container rooted at path.
func Open(path string) (*Container, error) {
	root, err := otree.Open(path)
	if err != nil {
		return nil, err
	}
	return newContainer(root), nil
}

// OpenMem opens an in-memory container, for tests and ephemeral use.
func OpenMem() (*Container, error) {
	root, err := otree.OpenMem()
	if err != nil {
		return nil, err
	}
	return newContainer(root), nil
}

func newContainer(root *otree.Tree) *Container {
	return &Container{
		objects: root,
		pool:    pmem.NewPool(),
		refs:    newRefCache(defaultObjRefCacheSize),
		akeys:   newAkeySubtreeCache(defaultAkeySubtreeCacheSize),
	}
}

// Close releases the container's underlying storage.
func (c *Container) Close() error { return c.objects.Close() }

// MaxEpoch returns the highest epoch ever successfully committed by
// Update or a zero-copy update-end on this container, letting a caller
// pass EpochMax to Fetch without tracking the current epoch itself.
func (c *Container) MaxEpoch() Epoch { return Epoch(c.maxEpoch.Load()) }

func (c *Container) bumpMaxEpoch(e Epoch) {
	for {
		cur := c.maxEpoch.Load()
		if uint64(e) <= cur {
			return
		}
		if c.maxEpoch.CompareAndSwap(cur, uint64(e)) {
			return
		}
	}
}

// ObjExists reports whether obj's marker exists at the container root,
// that is, whether a write path has ever opened obj. It is a read-only
// probe; the I/O engine's read paths use objRefForRead instead.
func (c *Container) ObjExists(obj common.ObjID) (bool, error) {
	_, ok, err := c.objects.Get(obj.Bytes())
	if err != nil {
		return false, verrs.New("vos", verrs.Inval, "objexists: %v", err)
	}
	return ok, nil
}

// objRef returns (creating if absent) the ref for obj, materialising its
// dkey subtree at the container root. Only call this on a write path: a
// never-written object passed here becomes an existent one.
func (c *Container) objRef(obj common.ObjID) (*objRef, error) {
	return c.refs.get(c.objects, obj)
}

// objRefForRead returns the ref for obj without materialising anything.
// exists is false when obj has never been written, in which case ref is
// nil and releaseObjRef must not be called.
func (c *Container) objRefForRead(obj common.ObjID) (ref *objRef, exists bool, err error) {
	return c.refs.getForRead(c.objects, obj)
}

func (c *Container) releaseObjRef(obj common.ObjID) { c.refs.put(obj) }
