// Package directiofile backs storage.BlockFile with a page-aligned file,
// opened with O_DIRECT where the underlying filesystem supports it so that
// page reads/writes bypass the OS page cache — the Pager already does its
// own caching by construction (NodeCache sits above it), so a second,
// kernel-level cache only adds double-buffering.
package directiofile

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/ncw/directio"

	"github.com/nodepage/bplusdb/storage"
)

// File is a storage.BlockFile backed by an on-disk file.
type File struct {
	f          *os.File
	blockSize  int
	directMode bool
}

var _ storage.BlockFile = (*File)(nil)

// Open creates path (and its parent directories) if absent, and opens it
// read/write in block-aligned O_DIRECT mode. blockSize must equal the
// Pager's PAGE_SIZE: every ReadAt/WriteAt call this type receives is
// expected to be exactly one page, at a page-aligned offset. If the
// filesystem backing path rejects O_DIRECT (common on tmpfs/overlay test
// filesystems), Open falls back to a buffered os.File and logs the
// fallback once.
func Open(path string, blockSize int, log logr.Logger) (*File, error) {
	dir := dirname(path)
	if dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("directiofile: create data directory %q: %w", dir, err)
		}
	}

	f, err := directio.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o640)
	if err != nil {
		log.Info("O_DIRECT unavailable for path, falling back to buffered I/O", "path", path, "cause", err.Error())
		f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o640)
		if err != nil {
			return nil, fmt.Errorf("directiofile: open %q: %w", path, err)
		}
		return &File{f: f, blockSize: blockSize, directMode: false}, nil
	}

	return &File{f: f, blockSize: blockSize, directMode: true}, nil
}

func dirname(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return ""
}

// alignedCopy returns an aligned buffer in direct mode (required by
// O_DIRECT), or p itself when running in the buffered fallback.
func (d *File) alignedCopy(p []byte) []byte {
	if !d.directMode {
		return p
	}
	buf := directio.AlignedBlock(len(p))
	copy(buf, p)
	return buf
}

func (d *File) ReadAt(p []byte, off int64) (int, error) {
	if !d.directMode || len(p) == d.blockSize {
		buf := d.alignedCopy(p)
		n, err := d.f.ReadAt(buf, off)
		if d.directMode {
			copy(p, buf)
		}
		if err != nil && !errors.Is(err, os.ErrClosed) {
			return n, err
		}
		return n, err
	}
	return d.f.ReadAt(p, off)
}

func (d *File) WriteAt(p []byte, off int64) (int, error) {
	buf := d.alignedCopy(p)
	return d.f.WriteAt(buf, off)
}

func (d *File) Truncate(size int64) error {
	return d.f.Truncate(size)
}

func (d *File) Sync() error {
	return d.f.Sync()
}

func (d *File) Size() (int64, error) {
	fi, err := d.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (d *File) Close() error {
	if err := d.f.Sync(); err != nil {
		_ = d.f.Close()
		return err
	}
	return d.f.Close()
}
