// Package memfile backs storage.BlockFile with an in-memory file, so the
// Pager and everything above it can be exercised in tests without touching
// a real filesystem.
package memfile

import (
	"sync"

	"github.com/dsnet/golib/memfile"

	"github.com/nodepage/bplusdb/storage"
)

// File is a storage.BlockFile backed by github.com/dsnet/golib/memfile.
type File struct {
	mu   sync.Mutex
	f    *memfile.File
	size int64
}

var _ storage.BlockFile = (*File)(nil)

// New returns an empty in-memory block file.
func New() *File {
	return &File{f: memfile.New(nil)}
}

func (m *File) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.f.ReadAt(p, off)
}

func (m *File) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.f.WriteAt(p, off)
	if end := off + int64(n); end > m.size {
		m.size = end
	}
	return n, err
}

// Truncate sets the file's size. Growing zero-fills the new region;
// shrinking only lowers the reported size. The Pager only ever grows its
// backing store.
func (m *File) Truncate(size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if size <= m.size {
		m.size = size
		return nil
	}
	zeros := make([]byte, size-m.size)
	if _, err := m.f.WriteAt(zeros, m.size); err != nil {
		return err
	}
	m.size = size
	return nil
}

func (m *File) Sync() error { return nil }

func (m *File) Size() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size, nil
}

func (m *File) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.f.Close()
}
