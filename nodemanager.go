package bplustree

import "github.com/go-logr/logr"

// NodeManager is the sole access path to nodes for BPlusTree: it hides the
// NodeCache and Pager behind a get/put interface, and enforces copy-in/
// copy-out semantics across that boundary so the cache's ownership of its
// images is never violated by a caller mutating a node it still holds a
// reference to mid-operation — the aliasing hazard documented in
// DESIGN.md's grounding notes.
type NodeManager struct {
	pager *Pager
	cache *NodeCache
	log   logr.Logger
}

// NewNodeManager builds a NodeManager backed by pager, with a cache of the
// given capacity.
func NewNodeManager(pager *Pager, cacheCapacity int, log logr.Logger) *NodeManager {
	return &NodeManager{
		pager: pager,
		cache: NewNodeCache(cacheCapacity, pager, log),
		log:   log,
	}
}

// GetNode returns a private copy of the node at pageId: a cache hit is
// cloned before being handed back, and a cache miss faults the page in
// through the Pager, installs a copy into the cache, and returns it.
func (m *NodeManager) GetNode(pageId PageId) (*Node, error) {
	if n, ok := m.cache.Get(pageId); ok {
		return n.clone(), nil
	}

	n, err := m.pager.ReadPage(pageId)
	if err != nil {
		return nil, err
	}
	if err := m.cache.Put(pageId, n.clone()); err != nil {
		return nil, err
	}
	return n, nil
}

// PutNode installs a private copy of node as the cached image for pageId,
// evicting and writing back the current LRU entry first if the cache is
// full and pageId is not already resident.
func (m *NodeManager) PutNode(pageId PageId, node *Node) error {
	return m.cache.Put(pageId, node.clone())
}

// ReadMetadata/WriteMetadata/FileExists/GetFileSize pass straight through
// to the Pager; tree metadata is never cached.

func (m *NodeManager) ReadMetadata() (*TreeMetadata, error) { return m.pager.ReadMetadata() }
func (m *NodeManager) WriteMetadata(meta *TreeMetadata) error {
	return m.pager.WriteMetadata(meta)
}
func (m *NodeManager) FileExists() bool            { return m.pager.FileExists() }
func (m *NodeManager) GetFileSize() (int64, error) { return m.pager.GetFileSize() }

// Close flushes every resident cache entry through the Pager, then
// releases the Pager's resources. This is the only point at which dirty
// in-memory state is guaranteed durable short of a prior eviction.
func (m *NodeManager) Close() error {
	if err := m.cache.Traverse(func(pageId PageId, node *Node) error {
		return m.pager.WritePage(pageId, node)
	}); err != nil {
		return err
	}
	m.log.V(1).Info("flushed cache on close", "residentEntries", m.cache.Len())
	return m.pager.Close()
}
