package bplustree

import (
	"io"

	"github.com/go-logr/logr"

	"github.com/nodepage/bplusdb/storage"
)

// Pager translates (pageId -> fixed-size page bytes) over a single
// storage.BlockFile. Page 0 holds TreeMetadata; node pages live at byte
// offset PageSize*(pageId+1), reserving page 0's file-offset slot for
// metadata. Every read or write is exactly one PageSize-sized, page-aligned
// operation — the property storage/directiofile relies on for O_DIRECT.
type Pager struct {
	file storage.BlockFile
	log  logr.Logger
}

// NewPager wraps an already-open BlockFile. The caller owns opening (and,
// via Close, closing) the file.
func NewPager(file storage.BlockFile, log logr.Logger) *Pager {
	return &Pager{file: file, log: log}
}

// ensurePageExists guarantees the file is at least (pageId+2)*PageSize
// bytes long, so that the page at pageId (and the metadata page at 0) are
// both addressable. Truncate on a BlockFile zero-extends, matching the
// "reading a gap returns an all-zero page" policy.
func (p *Pager) ensurePageExists(pageId PageId) error {
	need := int64(pageId+2) * PageSize
	size, err := p.file.Size()
	if err != nil {
		return newIoError("ensurePageExists: size", err)
	}
	if size >= need {
		return nil
	}
	if err := p.file.Truncate(need); err != nil {
		return newIoError("ensurePageExists: truncate", err)
	}
	return nil
}

// ReadPage reads the node at pageId. A page the file doesn't yet contain
// (or a short/failed read) is returned as a valid empty leaf (IsLeaf=true,
// KeyCount=0). An all-zero page image decodes with IsLeaf=false, so
// ReadPage sets IsLeaf itself for that case.
func (p *Pager) ReadPage(pageId PageId) (*Node, error) {
	if err := p.ensurePageExists(pageId); err != nil {
		return nil, err
	}
	buf := make([]byte, PageSize)
	off := int64(pageId+1) * PageSize
	n, err := p.file.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		p.log.V(1).Info("short read, returning zeroed page", "pageId", pageId, "cause", err.Error())
		return &Node{IsLeaf: true}, nil
	}
	if n < NodeEncodedSize {
		return &Node{IsLeaf: true}, nil
	}
	node := decodeNode(buf[:NodeEncodedSize])
	if !node.IsLeaf && node.KeyCount == 0 {
		node.IsLeaf = true // never-written (all-zero) page
	}
	return node, nil
}

// WritePage writes node at pageId, zero-padding the remainder of the page.
func (p *Pager) WritePage(pageId PageId, node *Node) error {
	if err := p.ensurePageExists(pageId); err != nil {
		return err
	}
	buf := make([]byte, PageSize)
	copy(buf, node.encode())
	off := int64(pageId+1) * PageSize
	if _, err := p.file.WriteAt(buf, off); err != nil {
		return newIoError("writePage", err)
	}
	if err := p.file.Sync(); err != nil {
		return newIoError("writePage: sync", err)
	}
	p.log.V(1).Info("wrote page", "pageId", pageId, "isLeaf", node.IsLeaf, "keyCount", node.KeyCount)
	return nil
}

// ReadMetadata reads TreeMetadata from page 0. Like ReadPage/WritePage, the
// I/O is a full PageSize-sized, page-aligned operation — required for
// storage/directiofile's O_DIRECT path, which only takes its aligned
// fast path when the buffer length equals the block size; only the
// leading metadataEncodedSize bytes of the page are decoded. A short/absent
// read decodes to a zero-valued TreeMetadata (rootPageId=0, nextPageId=0);
// BPlusTree.Open distinguishes "never initialized" from "loaded" via file
// size, not via this zero value.
func (p *Pager) ReadMetadata() (*TreeMetadata, error) {
	buf := make([]byte, PageSize)
	n, err := p.file.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil, newIoError("readMetadata", err)
	}
	if n < metadataEncodedSize {
		return &TreeMetadata{}, nil
	}
	return decodeMetadata(buf), nil
}

// WriteMetadata writes TreeMetadata at offset 0, zero-padded to PageSize.
func (p *Pager) WriteMetadata(m *TreeMetadata) error {
	buf := make([]byte, PageSize)
	copy(buf, m.encode())
	if _, err := p.file.WriteAt(buf, 0); err != nil {
		return newIoError("writeMetadata", err)
	}
	return newIoError("writeMetadata: sync", p.file.Sync())
}

// GetFileSize passes through to the backing BlockFile.
func (p *Pager) GetFileSize() (int64, error) {
	size, err := p.file.Size()
	if err != nil {
		return 0, newIoError("getFileSize", err)
	}
	return size, nil
}

// FileExists reports whether the backing file already holds at least one
// full metadata page — used by BPlusTree.Open to decide whether to
// initialize a fresh tree or load persisted metadata.
func (p *Pager) FileExists() bool {
	size, err := p.file.Size()
	return err == nil && size >= PageSize
}

// Close flushes and releases the backing file.
func (p *Pager) Close() error {
	return newIoError("close", p.file.Close())
}
