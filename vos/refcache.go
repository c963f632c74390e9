package vos

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/vosd/vos/common"
	basiclru "github.com/vosd/vos/common/lru"
	"github.com/vosd/vos/internal/otree"
)

// objRef is one cached, opened object: its dkey subtree handle and the
// per-object cookie index tracked under the same transaction as writes.
// Ownership is exclusive to refCache; callers only borrow a ref for the
// duration of one operation.
type objRef struct {
	obj      common.ObjID
	dkeys    *otree.Tree
	cmu      sync.Mutex
	cookies  map[common.Cookie]Epoch
}

func (r *objRef) observeCookie(cookie common.Cookie, epoch Epoch) {
	r.cmu.Lock()
	defer r.cmu.Unlock()
	if cur, ok := r.cookies[cookie]; !ok || epoch > cur {
		r.cookies[cookie] = epoch
	}
}

// CookieEpoch returns the highest epoch observed with cookie on this
// object, backing the cookie-index lookup used to make updates from the
// same originator idempotent.
func (r *objRef) CookieEpoch(cookie common.Cookie) (Epoch, bool) {
	r.cmu.Lock()
	defer r.cmu.Unlock()
	e, ok := r.cookies[cookie]
	return e, ok
}

// refCache is the bounded (container, object) -> *objRef map: a hit
// returns a counted handle, release decrements the count, and a
// zero-count entry remains cached (and lookup-able) until the LRU
// actually evicts it — eviction and refcounting are independent axes,
// so BasicLRU (which only tracks recency) is paired with an explicit
// refcount map here rather than asked to double as both. refcount itself
// is a ShrinkingMap rather than a plain map: entries are removed as soon
// as their count reaches zero, and long sessions that cycle through many
// distinct objects would otherwise leave the backing map's bucket array
// permanently sized to the historical high-water mark.
type refCache struct {
	mu       sync.Mutex
	lru      basiclru.BasicLRU[common.ObjID, *objRef]
	refcount *common.ShrinkingMap[common.ObjID, int32]
}

func newRefCache(capacity int) *refCache {
	return &refCache{
		lru:      basiclru.NewBasicLRU[common.ObjID, *objRef](capacity),
		refcount: common.NewShrinkingMap[common.ObjID, int32](capacity),
	}
}

// get returns the ref for obj, opening it against root (materialising
// its dkey subtree) on a cache miss, and bumps its refcount.
func (c *refCache) get(root *otree.Tree, obj common.ObjID) (*objRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ref, ok := c.lru.Get(obj); ok {
		n, _ := c.refcount.Get(obj)
		c.refcount.Set(obj, n+1)
		return ref, nil
	}
	child, _, err := root.OpenSubtree(obj.Bytes())
	if err != nil {
		return nil, err
	}
	ref := &objRef{obj: obj, dkeys: child, cookies: make(map[common.Cookie]Epoch)}
	c.lru.Add(obj, ref)
	c.refcount.Set(obj, 1)
	return ref, nil
}

// getForRead returns the ref for obj without ever writing the
// object-level marker at root: a cache hit behaves like get, but a miss
// only consults root's existing keyspace (SubtreeView, not OpenSubtree)
// and reports exists=false instead of creating an entry for an object
// that has never been written. Fetch and friends must use this, not
// get, since a read must never turn a never-written object into an
// existent one.
func (c *refCache) getForRead(root *otree.Tree, obj common.ObjID) (ref *objRef, exists bool, err error) {
	c.mu.Lock()
	if ref, ok := c.lru.Get(obj); ok {
		n, _ := c.refcount.Get(obj)
		c.refcount.Set(obj, n+1)
		c.mu.Unlock()
		return ref, true, nil
	}
	c.mu.Unlock()

	_, objExists, err := root.Get(obj.Bytes())
	if err != nil || !objExists {
		return nil, objExists, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// The cache may have been populated by another caller while this one
	// was probing root without the lock held.
	if ref, ok := c.lru.Get(obj); ok {
		n, _ := c.refcount.Get(obj)
		c.refcount.Set(obj, n+1)
		return ref, true, nil
	}
	child := root.SubtreeView(obj.Bytes())
	newRef := &objRef{obj: obj, dkeys: child, cookies: make(map[common.Cookie]Epoch)}
	c.lru.Add(obj, newRef)
	c.refcount.Set(obj, 1)
	return newRef, true, nil
}

// put releases one reference on obj. The ref itself is not evicted here
// even once the count reaches zero: it stays cached until the LRU's own
// capacity pressure evicts it. The refcount entry is dropped
// immediately, though — once no caller holds a reference there is
// nothing left for the count to track.
func (c *refCache) put(obj common.ObjID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.refcount.Get(obj)
	if !ok || n <= 0 {
		return
	}
	if n == 1 {
		c.refcount.Delete(obj)
		return
	}
	c.refcount.Set(obj, n-1)
}

// akeySubtreeCache is a second, independent cache of opened akey subtree
// handles, keyed by the combined (object, dkey, akey) triple, evicted on its own
// schedule so a hot akey's recx tree outlives the object-level LRU
// sweeping that object's siblings.
type akeySubtreeCache struct {
	c *lru.Cache
}

func newAkeySubtreeCache(capacity int) *akeySubtreeCache {
	c, _ := lru.New(capacity)
	return &akeySubtreeCache{c: c}
}

func (a *akeySubtreeCache) get(key []byte) (*otree.Tree, bool) {
	v, ok := a.c.Get(string(key))
	if !ok {
		return nil, false
	}
	return v.(*otree.Tree), true
}

func (a *akeySubtreeCache) add(key []byte, t *otree.Tree) {
	a.c.Add(string(key), t)
}
