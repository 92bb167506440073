package directiofile

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
)

const blockSize = 4096

func TestOpenCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "table.bpt")

	f, err := Open(path, blockSize, logr.Discard())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()
}

func TestWriteAtThenReadAtFullBlockRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.bpt")
	f, err := Open(path, blockSize, logr.Discard())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	want := bytes.Repeat([]byte{0xAB}, blockSize)
	if _, err := f.WriteAt(want, 0); err != nil {
		t.Fatalf("WriteAt() error = %v", err)
	}

	got := make([]byte, blockSize)
	if _, err := f.ReadAt(got, 0); err != nil {
		t.Fatalf("ReadAt() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("ReadAt() did not round-trip a full block")
	}
}

// TestReadAtMultipleAlignedBlocks writes and reads back several distinct,
// page-aligned blocks at non-zero offsets, the access pattern every caller
// in this module actually uses (Pager.ReadPage/WritePage/ReadMetadata all
// pass exactly one full-blockSize buffer at a page-aligned offset, which is
// the only shape directio.OpenFile's O_DIRECT mode accepts without EINVAL).
func TestReadAtMultipleAlignedBlocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.bpt")
	f, err := Open(path, blockSize, logr.Discard())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	blocks := [][]byte{
		bytes.Repeat([]byte{0x01}, blockSize),
		bytes.Repeat([]byte{0x02}, blockSize),
		bytes.Repeat([]byte{0x03}, blockSize),
	}
	for i, b := range blocks {
		if _, err := f.WriteAt(b, int64(i*blockSize)); err != nil {
			t.Fatalf("WriteAt(block %d) error = %v", i, err)
		}
	}

	for i, want := range blocks {
		got := make([]byte, blockSize)
		if _, err := f.ReadAt(got, int64(i*blockSize)); err != nil {
			t.Fatalf("ReadAt(block %d) error = %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("ReadAt(block %d) did not round-trip", i)
		}
	}
}

func TestTruncateGrowsSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.bpt")
	f, err := Open(path, blockSize, logr.Discard())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	if err := f.Truncate(int64(3 * blockSize)); err != nil {
		t.Fatalf("Truncate() error = %v", err)
	}
	size, err := f.Size()
	if err != nil {
		t.Fatalf("Size() error = %v", err)
	}
	if size != int64(3*blockSize) {
		t.Fatalf("Size() = %d, want %d", size, 3*blockSize)
	}
}

func TestCloseSyncsAndReleasesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.bpt")
	f, err := Open(path, blockSize, logr.Discard())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
