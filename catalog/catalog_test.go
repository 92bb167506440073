package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
)

func TestOpenCreatesAndReusesTable(t *testing.T) {
	dir := t.TempDir()
	cat := New(dir, 16, logr.Discard())

	t1, err := cat.Open("orders")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t2, err := cat.Open("orders")
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	if t1 != t2 {
		t.Errorf("Open(\"orders\") returned distinct handles on the second call, want the same registered tree")
	}

	if _, err := os.Stat(filepath.Join(dir, "orders.bpt")); err != nil {
		t.Errorf("backing file not created: %v", err)
	}
}

func TestDestroyRemovesFileAndRegistration(t *testing.T) {
	dir := t.TempDir()
	cat := New(dir, 16, logr.Discard())

	tree, err := cat.Open("orders")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := tree.Insert(1); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if err := cat.Destroy("orders"); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "orders.bpt")); !os.IsNotExist(err) {
		t.Errorf("backing file still present after Destroy(): err = %v", err)
	}

	reopened, err := cat.Open("orders")
	if err != nil {
		t.Fatalf("reopen after Destroy() error = %v", err)
	}
	found, err := reopened.Search(1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if found {
		t.Errorf("Search(1) after Destroy()+reopen = true, want false")
	}
}

func TestCloseAllClosesEveryTable(t *testing.T) {
	dir := t.TempDir()
	cat := New(dir, 16, logr.Discard())

	for _, name := range []string{"a", "b", "c"} {
		tree, err := cat.Open(name)
		if err != nil {
			t.Fatalf("Open(%q) error = %v", name, err)
		}
		if _, err := tree.Insert(1); err != nil {
			t.Fatalf("Insert into %q error = %v", name, err)
		}
	}

	if err := cat.CloseAll(context.Background()); err != nil {
		t.Fatalf("CloseAll() error = %v", err)
	}

	for _, name := range []string{"a", "b", "c"} {
		if _, err := os.Stat(filepath.Join(dir, name+".bpt")); err != nil {
			t.Errorf("table %q file missing after CloseAll: %v", name, err)
		}
	}
}

func TestChecksumIsStableAndTracksContent(t *testing.T) {
	dir := t.TempDir()
	cat := New(dir, 16, logr.Discard())

	tree, err := cat.Open("t")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	for _, k := range []int32{1, 2, 3} {
		if _, err := tree.Insert(k); err != nil {
			t.Fatalf("Insert(%d) error = %v", k, err)
		}
	}

	sum1, err := cat.Checksum("t")
	if err != nil {
		t.Fatalf("Checksum() error = %v", err)
	}
	sum2, err := cat.Checksum("t")
	if err != nil {
		t.Fatalf("second Checksum() error = %v", err)
	}
	if sum1 != sum2 {
		t.Errorf("Checksum() not stable across calls: %d != %d", sum1, sum2)
	}

	if _, err := tree.Insert(4); err != nil {
		t.Fatalf("Insert(4) error = %v", err)
	}
	sum3, err := cat.Checksum("t")
	if err != nil {
		t.Fatalf("third Checksum() error = %v", err)
	}
	if sum3 == sum1 {
		t.Errorf("Checksum() unchanged after inserting a new key")
	}
}

func TestDescribeReportsLeafAndInternalCounts(t *testing.T) {
	dir := t.TempDir()
	cat := New(dir, 16, logr.Discard())

	tree, err := cat.Open("t")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	for i := int32(0); i < 300; i++ {
		if _, err := tree.Insert(i); err != nil {
			t.Fatalf("Insert(%d) error = %v", i, err)
		}
	}

	desc, err := cat.Describe("t")
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if desc.LeafPages < 2 {
		t.Errorf("LeafPages = %d, want at least 2 after 300 inserts", desc.LeafPages)
	}
	if desc.InternalPages < 1 {
		t.Errorf("InternalPages = %d, want at least 1 after 300 inserts", desc.InternalPages)
	}
	if desc.LeafKeyTotal != 300 {
		t.Errorf("LeafKeyTotal = %d, want 300", desc.LeafKeyTotal)
	}
	if desc.LeafBitmap.Count() != uint(desc.LeafPages) {
		t.Errorf("LeafBitmap.Count() = %d, want %d", desc.LeafBitmap.Count(), desc.LeafPages)
	}
}
