// Copyright 2022 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package lru implements generic LRU caches. BasicLRU backs vos's bounded
// object-reference cache.
package lru

// BasicLRU is a least-recently-used cache of fixed capacity, holding plain
// values (no eviction callback). It is not safe for concurrent use; callers
// that need locking (such as vos's object reference cache) wrap it in a
// mutex themselves.
type BasicLRU[K comparable, V any] struct {
	list  *list[K]
	items map[K]lruItem[K, V]
	cap   int
}

type lruItem[K any, V any] struct {
	elem  *listElem[K]
	value V
}

// NewBasicLRU creates a new LRU cache of the given capacity.
func NewBasicLRU[K comparable, V any](capacity int) BasicLRU[K, V] {
	if capacity <= 0 {
		capacity = 1
	}
	c := BasicLRU[K, V]{
		items: make(map[K]lruItem[K, V]),
		list:  newList[K](),
		cap:   capacity,
	}
	return c
}

// Add adds a value to the cache. It returns true if an existing item was
// evicted to make room for the new item.
func (c *BasicLRU[K, V]) Add(key K, value V) (evicted bool) {
	// Already exists?
	if it, ok := c.items[key]; ok {
		c.list.moveToFront(it.elem)
		it.value = value
		c.items[key] = it
		return false
	}

	var elem *listElem[K]
	if c.list.len() >= c.cap {
		elem = c.list.removeLast()
		delete(c.items, elem.v)
		evicted = true
	} else {
		elem = new(listElem[K])
	}
	elem.v = key
	c.list.pushElemFront(elem)
	c.items[key] = lruItem[K, V]{elem, value}
	return evicted
}

// Contains reports whether the given key exists in the cache, without
// updating recency.
func (c *BasicLRU[K, V]) Contains(key K) bool {
	_, ok := c.items[key]
	return ok
}

// Get retrieves a value from the cache, marking it as most-recently used.
func (c *BasicLRU[K, V]) Get(key K) (value V, ok bool) {
	it, ok := c.items[key]
	if !ok {
		return value, false
	}
	c.list.moveToFront(it.elem)
	return it.value, true
}

// GetOldest retrieves the least-recently used item.
func (c *BasicLRU[K, V]) GetOldest() (key K, value V, ok bool) {
	lastElem := c.list.last()
	if lastElem == nil {
		return key, value, false
	}
	key = lastElem.v
	it := c.items[key]
	return key, it.value, true
}

// Len returns the current number of items in the cache.
func (c *BasicLRU[K, V]) Len() int {
	return len(c.items)
}

// Peek retrieves a value from the cache without modifying recency.
func (c *BasicLRU[K, V]) Peek(key K) (value V, ok bool) {
	it, ok := c.items[key]
	return it.value, ok
}

// Purge empties the cache.
func (c *BasicLRU[K, V]) Purge() {
	c.list.init()
	clear(c.items)
}

// Remove drops an item from the cache. Returns true if the key was present.
func (c *BasicLRU[K, V]) Remove(key K) bool {
	item, ok := c.items[key]
	if ok {
		delete(c.items, key)
		c.list.remove(item.elem)
	}
	return ok
}

// RemoveOldest removes the least-recently used item.
func (c *BasicLRU[K, V]) RemoveOldest() (key K, value V, ok bool) {
	lastElem := c.list.last()
	if lastElem == nil {
		return key, value, false
	}
	key = lastElem.v
	it := c.items[key]
	delete(c.items, key)
	c.list.remove(lastElem)
	return key, it.value, true
}

// Keys returns all keys in the cache, oldest first.
func (c *BasicLRU[K, V]) Keys() []K {
	keys := make([]K, 0, len(c.items))
	for e := c.list.last(); e != nil && e != &c.list.root; e = e.prev {
		keys = append(keys, e.v)
	}
	return keys
}

// list is a minimal doubly-linked list storing the LRU order, avoiding
// container/list's interface{}-boxed elements.
type list[K any] struct {
	root listElem[K]
	n    int
}

type listElem[K any] struct {
	next, prev *listElem[K]
	v          K
}

func newList[K any]() *list[K] {
	l := new(list[K])
	l.init()
	return l
}

func (l *list[K]) init() {
	l.root.next = &l.root
	l.root.prev = &l.root
	l.n = 0
}

func (l *list[K]) len() int {
	return l.n
}

func (l *list[K]) last() *listElem[K] {
	if l.root.prev == &l.root {
		return nil
	}
	return l.root.prev
}

func (l *list[K]) pushElemFront(e *listElem[K]) {
	e.prev = &l.root
	e.next = l.root.next
	e.prev.next = e
	e.next.prev = e
	l.n++
}

func (l *list[K]) remove(e *listElem[K]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.next = nil
	e.prev = nil
	l.n--
}

func (l *list[K]) moveToFront(e *listElem[K]) {
	if l.root.next == e {
		return
	}
	e.prev.next = e.next
	e.next.prev = e.prev
	l.n--
	l.pushElemFront(e)
}

func (l *list[K]) removeLast() *listElem[K] {
	e := l.last()
	if e == nil {
		return nil
	}
	l.remove(e)
	return e
}
