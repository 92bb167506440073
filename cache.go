package bplustree

import (
	"container/list"

	"github.com/go-logr/logr"
)

// DefaultCacheCapacity is the reference configuration's bounded cache size.
const DefaultCacheCapacity = 1024

type cacheEntry struct {
	pageId PageId
	node   *Node
}

// NodeCache is a bounded, in-memory LRU keyed on PageId. On overflow the
// least-recently-used entry is evicted and its image is written back
// through the Pager, following the write-back discipline of the original
// node_manager.h: every evicted image is written through regardless of
// whether it was actually mutated since being faulted in, since the cache
// itself does not track per-entry dirtiness (only Close-time flush and
// eviction ever reach the Pager). The cache exclusively owns the images it
// holds — callers read and write copies, never references, at the
// NodeManager boundary (see NodeManager.GetNode/PutNode).
type NodeCache struct {
	capacity int
	pager    *Pager
	log      logr.Logger

	ll      *list.List // front = MRU, back = LRU
	entries map[PageId]*list.Element
}

// NewNodeCache builds a cache of the given capacity that writes back
// through pager on eviction.
func NewNodeCache(capacity int, pager *Pager, log logr.Logger) *NodeCache {
	if capacity < 1 {
		capacity = DefaultCacheCapacity
	}
	return &NodeCache{
		capacity: capacity,
		pager:    pager,
		log:      log,
		ll:       list.New(),
		entries:  make(map[PageId]*list.Element, capacity),
	}
}

// Contains reports membership without touching recency.
func (c *NodeCache) Contains(pageId PageId) bool {
	_, ok := c.entries[pageId]
	return ok
}

// Get returns the cached image for pageId, promoting it to
// most-recently-used. The second return is false on a miss.
func (c *NodeCache) Get(pageId PageId) (*Node, bool) {
	elem, ok := c.entries[pageId]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(elem)
	return elem.Value.(*cacheEntry).node, true
}

// Put installs or replaces the image for pageId and marks it
// most-recently-used. If this insertion would exceed capacity and pageId
// is not already resident, the current LRU entry is evicted and written
// back through the Pager first.
func (c *NodeCache) Put(pageId PageId, node *Node) error {
	if elem, ok := c.entries[pageId]; ok {
		elem.Value.(*cacheEntry).node = node
		c.ll.MoveToFront(elem)
		return nil
	}

	if len(c.entries) >= c.capacity {
		if err := c.evictOne(); err != nil {
			return err
		}
	}

	elem := c.ll.PushFront(&cacheEntry{pageId: pageId, node: node})
	c.entries[pageId] = elem
	return nil
}

// Tail inspects, without removing, the current least-recently-used entry.
// The second return is false when the cache is empty.
func (c *NodeCache) Tail() (PageId, *Node, bool) {
	back := c.ll.Back()
	if back == nil {
		return 0, nil, false
	}
	e := back.Value.(*cacheEntry)
	return e.pageId, e.node, true
}

func (c *NodeCache) evictOne() error {
	back := c.ll.Back()
	if back == nil {
		return nil
	}
	e := back.Value.(*cacheEntry)
	if err := c.pager.WritePage(e.pageId, e.node); err != nil {
		return err
	}
	c.log.V(1).Info("evicted page from cache", "pageId", e.pageId)
	delete(c.entries, e.pageId)
	c.ll.Remove(back)
	return nil
}

// Traverse visits every resident (pageId, node) pair in unspecified order.
// Used by NodeManager's teardown to flush all resident entries.
func (c *NodeCache) Traverse(fn func(PageId, *Node) error) error {
	for elem := c.ll.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*cacheEntry)
		if err := fn(e.pageId, e.node); err != nil {
			return err
		}
	}
	return nil
}

// Len reports the number of resident entries.
func (c *NodeCache) Len() int {
	return len(c.entries)
}
