// Package catalog owns the name -> table registry that sits above
// BPlusTree: it lazily opens a table's backing file on first mention,
// tracks every open table, and closes them down together at shutdown.
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash"
	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/nodepage/bplusdb"
	"github.com/nodepage/bplusdb/storage/directiofile"
)

// Catalog maps table name to an open *bplustree.Tree, opening files under
// dataDir on demand.
type Catalog struct {
	dataDir       string
	cacheCapacity int
	log           logr.Logger

	mu     sync.Mutex
	tables map[string]*bplustree.Tree
}

// New returns a Catalog rooted at dataDir. The directory is created lazily,
// the first time a table is opened.
func New(dataDir string, cacheCapacity int, log logr.Logger) *Catalog {
	return &Catalog{
		dataDir:       dataDir,
		cacheCapacity: cacheCapacity,
		log:           log,
		tables:        make(map[string]*bplustree.Tree),
	}
}

func (c *Catalog) pathFor(name string) string {
	return filepath.Join(c.dataDir, name+".bpt")
}

// Open returns the already-open tree for name, or opens (creating if
// necessary) its backing file under dataDir and registers it.
func (c *Catalog) Open(name string) (*bplustree.Tree, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.tables[name]; ok {
		return t, nil
	}

	file, err := directiofile.Open(c.pathFor(name), bplustree.PageSize, c.log)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %q: %w", name, err)
	}
	tree, err := bplustree.Open(file, c.cacheCapacity, c.log)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %q: %w", name, err)
	}
	c.tables[name] = tree
	c.log.V(1).Info("opened table", "name", name)
	return tree, nil
}

// Destroy closes name's tree (if open) and removes its backing file,
// matching the original's std::filesystem::remove semantics.
func (c *Catalog) Destroy(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.tables[name]; ok {
		if err := t.Close(); err != nil {
			return fmt.Errorf("catalog: destroy %q: %w", name, err)
		}
		delete(c.tables, name)
	}
	if err := os.Remove(c.pathFor(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("catalog: destroy %q: %w", name, err)
	}
	c.log.V(1).Info("destroyed table", "name", name)
	return nil
}

// CloseAll flushes and closes every open table concurrently, one goroutine
// per table. This fans out across distinct trees only — never into a
// single tree's internals, which stay single-threaded.
func (c *Catalog) CloseAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for name, tree := range c.tables {
		name, tree := name, tree
		g.Go(func() error {
			if err := tree.Close(); err != nil {
				return fmt.Errorf("catalog: close %q: %w", name, err)
			}
			return nil
		})
	}
	err := g.Wait()
	c.tables = make(map[string]*bplustree.Tree)
	return err
}

// Checksum folds every allocated page of name's table (its page id, leaf
// flag and keys) through xxhash into one digest, for the VERIFY TABLE
// diagnostic. Read-only: it never installs
// anything back into the tree's cache beyond the faults Walk performs.
func (c *Catalog) Checksum(name string) (uint64, error) {
	tree, err := c.Open(name)
	if err != nil {
		return 0, err
	}
	digest := xxhash.New()
	err = tree.Walk(func(pageId bplustree.PageId, node *bplustree.Node) error {
		var head [8]byte
		putUint64(head[:], uint64(pageId))
		if _, err := digest.Write(head[:]); err != nil {
			return err
		}
		if node.IsLeaf {
			_, err = digest.Write([]byte{1})
		} else {
			_, err = digest.Write([]byte{0})
		}
		if err != nil {
			return err
		}
		for i := int32(0); i < node.KeyCount; i++ {
			putUint64(head[:], uint64(uint32(node.Keys[i])))
			if _, err := digest.Write(head[:]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return digest.Sum64(), nil
}

// Describe returns name's table's page/occupancy diagnostic, for the
// DESCRIBE TABLE command.
func (c *Catalog) Describe(name string) (*bplustree.Description, error) {
	tree, err := c.Open(name)
	if err != nil {
		return nil, err
	}
	return tree.Describe()
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
