// Package bplustree implements a persistent, single-key B+ tree index:
// Pager handles page-granular file I/O, NodeCache is the bounded
// write-back cache in front of it, NodeManager is the only path higher
// layers use to reach a node, and Tree is the insert/search/erase
// algorithm layer built on top of NodeManager. A Tree is not safe for
// concurrent use — callers serialize access at the tree handle, exactly as
// a single os.File would require for overlapping writes.
package bplustree

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/go-logr/logr"

	"github.com/nodepage/bplusdb/storage"
)

// Tree is a single named B+ tree backed by one storage.BlockFile.
type Tree struct {
	nm         *NodeManager
	rootPageId PageId
	nextPageId PageId
	log        logr.Logger
}

// Open loads an existing tree from file, or initializes a fresh one if the
// file is absent or shorter than a metadata page. cacheCapacity <= 0 uses
// DefaultCacheCapacity.
func Open(file storage.BlockFile, cacheCapacity int, log logr.Logger) (*Tree, error) {
	pager := NewPager(file, log)
	nm := NewNodeManager(pager, cacheCapacity, log)

	t := &Tree{nm: nm, log: log}

	if !nm.FileExists() {
		t.rootPageId = 0
		t.nextPageId = 1
		root := &Node{IsLeaf: true}
		if err := nm.PutNode(t.rootPageId, root); err != nil {
			return nil, err
		}
		if err := nm.WriteMetadata(&TreeMetadata{RootPageId: t.rootPageId, NextPageId: t.nextPageId}); err != nil {
			return nil, err
		}
		log.V(1).Info("initialized new tree", "rootPageId", t.rootPageId)
		return t, nil
	}

	meta, err := nm.ReadMetadata()
	if err != nil {
		return nil, err
	}
	t.rootPageId = meta.RootPageId
	t.nextPageId = meta.NextPageId
	log.V(1).Info("loaded tree", "rootPageId", t.rootPageId, "nextPageId", t.nextPageId)
	return t, nil
}

// Close persists metadata (rootPageId, nextPageId) and flushes every
// cached node through to the backing file.
func (t *Tree) Close() error {
	if err := t.nm.WriteMetadata(&TreeMetadata{RootPageId: t.rootPageId, NextPageId: t.nextPageId}); err != nil {
		return err
	}
	return t.nm.Close()
}

func (t *Tree) allocatePage() PageId {
	id := t.nextPageId
	t.nextPageId++
	return id
}

// Search reports whether key is present in the tree.
func (t *Tree) Search(key int32) (bool, error) {
	pageId := t.rootPageId
	for {
		node, err := t.nm.GetNode(pageId)
		if err != nil {
			return false, err
		}
		if node.IsLeaf {
			idx := node.findKeyIndex(key)
			return idx < node.KeyCount && node.Keys[idx] == key, nil
		}
		idx := node.findChildIndex(key)
		pageId = node.Children[idx]
	}
}

func (t *Tree) searchLeaf(key int32) (PageId, error) {
	pageId := t.rootPageId
	for {
		node, err := t.nm.GetNode(pageId)
		if err != nil {
			return 0, err
		}
		if node.IsLeaf {
			return pageId, nil
		}
		idx := node.findChildIndex(key)
		pageId = node.Children[idx]
	}
}

// splitSignal carries a completed child split up to its parent.
type splitSignal struct {
	didSplit  bool
	splitKey  int32
	newPageId PageId
}

// Insert adds key to the tree, returning false without modification if it
// is already present.
func (t *Tree) Insert(key int32) (bool, error) {
	split, inserted, err := t.insertRecursive(t.rootPageId, key)
	if err != nil {
		return false, err
	}
	if !inserted {
		return false, nil
	}
	if split.didSplit {
		newRoot := &Node{IsLeaf: false, KeyCount: 1}
		newRoot.Keys[0] = split.splitKey
		newRoot.Children[0] = t.rootPageId
		newRoot.Children[1] = split.newPageId
		newRootId := t.allocatePage()
		if err := t.nm.PutNode(newRootId, newRoot); err != nil {
			return false, err
		}
		t.rootPageId = newRootId
		t.log.V(1).Info("root split", "newRootPageId", newRootId, "splitKey", split.splitKey)
	}
	return true, nil
}

func (t *Tree) insertRecursive(pageId PageId, key int32) (splitSignal, bool, error) {
	node, err := t.nm.GetNode(pageId)
	if err != nil {
		return splitSignal{}, false, err
	}

	if node.IsLeaf {
		idx := node.findKeyIndex(key)
		if idx < node.KeyCount && node.Keys[idx] == key {
			return splitSignal{}, false, nil // duplicate: no-op
		}
		if node.KeyCount < MaxKeys {
			insertKeyIntoLeaf(node, idx, key)
			if err := t.nm.PutNode(pageId, node); err != nil {
				return splitSignal{}, false, err
			}
			return splitSignal{}, true, nil
		}
		newPageId, splitKey, err := t.splitLeaf(pageId, node, key)
		if err != nil {
			return splitSignal{}, false, err
		}
		return splitSignal{didSplit: true, splitKey: splitKey, newPageId: newPageId}, true, nil
	}

	idx := node.findChildIndex(key)
	childPageId := node.Children[idx]
	childSplit, inserted, err := t.insertRecursive(childPageId, key)
	if err != nil || !inserted || !childSplit.didSplit {
		return splitSignal{}, inserted, err
	}

	insertPos := node.findKeyIndex(childSplit.splitKey)
	if node.KeyCount < MaxKeys {
		insertKeyChildIntoInternal(node, insertPos, childSplit.splitKey, childSplit.newPageId)
		if err := t.nm.PutNode(pageId, node); err != nil {
			return splitSignal{}, false, err
		}
		return splitSignal{}, true, nil
	}

	newPageId, splitKey, err := t.splitInternal(pageId, node, childSplit.splitKey, childSplit.newPageId)
	if err != nil {
		return splitSignal{}, false, err
	}
	return splitSignal{didSplit: true, splitKey: splitKey, newPageId: newPageId}, true, nil
}

func insertKeyIntoLeaf(n *Node, idx int32, key int32) {
	for i := n.KeyCount; i > idx; i-- {
		n.Keys[i] = n.Keys[i-1]
	}
	n.Keys[idx] = key
	n.KeyCount++
}

func insertKeyChildIntoInternal(n *Node, idx int32, key int32, child PageId) {
	for i := n.KeyCount; i > idx; i-- {
		n.Keys[i] = n.Keys[i-1]
		n.Children[i+1] = n.Children[i]
	}
	n.Keys[idx] = key
	n.Children[idx+1] = child
	n.KeyCount++
}

// splitLeaf builds the sorted MaxKeys+1 key sequence (oldLeaf's keys plus
// the incoming key), and divides it 50/50 between oldLeaf and a freshly
// allocated right sibling, relinking the leaf chain through Next.
func (t *Tree) splitLeaf(pageId PageId, oldLeaf *Node, key int32) (PageId, int32, error) {
	var allKeys [MaxKeys + 1]int32
	insertPos := oldLeaf.findKeyIndex(key)
	copy(allKeys[:insertPos], oldLeaf.Keys[:insertPos])
	allKeys[insertPos] = key
	copy(allKeys[insertPos+1:oldLeaf.KeyCount+1], oldLeaf.Keys[insertPos:oldLeaf.KeyCount])

	mid := int32((MaxKeys + 1) / 2)

	newLeaf := &Node{IsLeaf: true}
	newLeaf.KeyCount = int32(MaxKeys+1) - mid
	copy(newLeaf.Keys[:newLeaf.KeyCount], allKeys[mid:])

	oldLeaf.KeyCount = mid
	copy(oldLeaf.Keys[:mid], allKeys[:mid])

	newPageId := t.allocatePage()
	newLeaf.Next = oldLeaf.Next
	oldLeaf.Next = newPageId

	if err := t.nm.PutNode(pageId, oldLeaf); err != nil {
		return 0, 0, err
	}
	if err := t.nm.PutNode(newPageId, newLeaf); err != nil {
		return 0, 0, err
	}
	t.log.V(1).Info("split leaf", "leftPageId", pageId, "rightPageId", newPageId, "splitKey", newLeaf.Keys[0])
	return newPageId, newLeaf.Keys[0], nil
}

// splitInternal builds the MaxKeys+1/MaxKeys+2 key/child sequences
// (oldNode's contents plus the incoming splitKey/newChild pair), and
// divides them between oldNode and a freshly allocated right sibling. The
// promoted split key is kept as the right sibling's first key rather than
// lifted out of it — a deliberate variant (see DESIGN.md) that stays
// correct because internal keys are routing-only and the "equal keys route
// right" descent rule is applied consistently everywhere.
func (t *Tree) splitInternal(pageId PageId, oldNode *Node, splitKey int32, newChild PageId) (PageId, int32, error) {
	var allKeys [MaxKeys + 1]int32
	var allChildren [MaxKeys + 2]PageId

	insertPos := oldNode.findKeyIndex(splitKey)
	copy(allKeys[:insertPos], oldNode.Keys[:insertPos])
	allKeys[insertPos] = splitKey
	copy(allKeys[insertPos+1:oldNode.KeyCount+1], oldNode.Keys[insertPos:oldNode.KeyCount])

	copy(allChildren[:insertPos+1], oldNode.Children[:insertPos+1])
	allChildren[insertPos+1] = newChild
	copy(allChildren[insertPos+2:oldNode.KeyCount+2], oldNode.Children[insertPos+1:oldNode.KeyCount+1])

	mid := int32((MaxKeys + 1) / 2)

	newRight := &Node{IsLeaf: false}
	newRight.KeyCount = int32(MaxKeys+1) - mid
	copy(newRight.Keys[:newRight.KeyCount], allKeys[mid:])
	copy(newRight.Children[:newRight.KeyCount+1], allChildren[mid:])

	oldNode.KeyCount = mid
	copy(oldNode.Keys[:mid], allKeys[:mid])
	copy(oldNode.Children[:mid+1], allChildren[:mid+1])

	newPageId := t.allocatePage()
	if err := t.nm.PutNode(pageId, oldNode); err != nil {
		return 0, 0, err
	}
	if err := t.nm.PutNode(newPageId, newRight); err != nil {
		return 0, 0, err
	}
	t.log.V(1).Info("split internal node", "leftPageId", pageId, "rightPageId", newPageId, "splitKey", newRight.Keys[0])
	return newPageId, newRight.Keys[0], nil
}

// Erase removes key from the tree, returning false if it was absent.
func (t *Tree) Erase(key int32) (bool, error) {
	leafPageId, err := t.searchLeaf(key)
	if err != nil {
		return false, err
	}
	leaf, err := t.nm.GetNode(leafPageId)
	if err != nil {
		return false, err
	}

	idx := leaf.findKeyIndex(key)
	if idx >= leaf.KeyCount || leaf.Keys[idx] != key {
		return false, nil
	}

	for i := idx; i < leaf.KeyCount-1; i++ {
		leaf.Keys[i] = leaf.Keys[i+1]
	}
	leaf.KeyCount--

	if err := t.nm.PutNode(leafPageId, leaf); err != nil {
		return false, err
	}

	if leaf.KeyCount < MinKeys && leafPageId != t.rootPageId {
		t.mergeOrRedistribute(leafPageId)
	}
	return true, nil
}

// mergeOrRedistribute is a deliberate stub: deletion does not rebalance
// internal nodes or reclaim space. See DESIGN.md's tree.go notes for why
// this is preserved rather than "fixed".
func (t *Tree) mergeOrRedistribute(pageId PageId) {
	_ = pageId
}

// RootPageId and NextPageId expose the persisted allocator state for
// diagnostics (catalog.Checksum, DESCRIBE TABLE) and tests.
func (t *Tree) RootPageId() PageId { return t.rootPageId }
func (t *Tree) NextPageId() PageId { return t.nextPageId }

// Walk visits every allocated page (0..NextPageId-1) in ascending order,
// faulting each through NodeManager. It is read-only from the tree's
// perspective: it never installs writes back. Used by catalog.Checksum and
// DESCRIBE TABLE; never called mid-mutation by anything in this package.
func (t *Tree) Walk(fn func(PageId, *Node) error) error {
	for pageId := PageId(0); pageId < t.nextPageId; pageId++ {
		node, err := t.nm.GetNode(pageId)
		if err != nil {
			return err
		}
		if err := fn(pageId, node); err != nil {
			return err
		}
	}
	return nil
}

// FileSize reports the backing file's current size in bytes.
func (t *Tree) FileSize() (int64, error) {
	return t.nm.GetFileSize()
}

// Description is the read-only diagnostic snapshot produced by Describe,
// backing the DESCRIBE TABLE command.
type Description struct {
	TotalPages    PageId
	RootPageId    PageId
	LeafPages     int
	InternalPages int
	LeafKeyTotal  int

	// LeafBitmap has bit pageId set for every page that is currently a
	// leaf. It is purely informational: nothing in this package ever
	// reads it back to decide allocation, so it carries no effect on the
	// monotonic page-id allocator.
	LeafBitmap *bitset.BitSet
}

// Describe walks the whole tree and reports page-count and leaf-occupancy
// statistics. It never mutates the tree or its cache's recency ordering
// beyond the faults Walk already performs.
func (t *Tree) Describe() (*Description, error) {
	desc := &Description{
		TotalPages: t.nextPageId,
		RootPageId: t.rootPageId,
		LeafBitmap: bitset.New(uint(t.nextPageId)),
	}
	err := t.Walk(func(pageId PageId, node *Node) error {
		if node.IsLeaf {
			desc.LeafPages++
			desc.LeafKeyTotal += int(node.KeyCount)
			desc.LeafBitmap.Set(uint(pageId))
		} else {
			desc.InternalPages++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return desc, nil
}
