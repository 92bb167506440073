package command

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/nodepage/bplusdb/catalog"
)

// Executor runs parsed Commands against a Catalog and renders their output
// the way the original CLI did: QUERY prints "1"/"0", VERIFY/DESCRIBE print
// a diagnostic line, everything else is silent on success.
type Executor struct {
	cat *catalog.Catalog
	log logr.Logger
}

// NewExecutor builds an Executor over cat.
func NewExecutor(cat *catalog.Catalog, log logr.Logger) *Executor {
	return &Executor{cat: cat, log: log}
}

// Execute runs cmd and returns the line (if any) it should print. A
// Command with Op: Invalid is reported through ErrInvalid, matching the
// original's "invalid operation, continue" behavior. Execute never returns
// an error for Exit; callers check cmd.Op == Exit themselves to end the
// loop.
func (e *Executor) Execute(cmd Command) (string, error) {
	switch cmd.Op {
	case Invalid:
		return "", ErrInvalid
	case Exit:
		return "", nil
	case Create:
		if _, err := e.cat.Open(cmd.TableName); err != nil {
			return "", err
		}
		return "", nil
	case Insert:
		tree, err := e.cat.Open(cmd.TableName)
		if err != nil {
			return "", err
		}
		if _, err := tree.Insert(cmd.Key); err != nil {
			return "", err
		}
		return "", nil
	case Erase:
		tree, err := e.cat.Open(cmd.TableName)
		if err != nil {
			return "", err
		}
		if _, err := tree.Erase(cmd.Key); err != nil {
			return "", err
		}
		return "", nil
	case Query:
		tree, err := e.cat.Open(cmd.TableName)
		if err != nil {
			return "", err
		}
		found, err := tree.Search(cmd.Key)
		if err != nil {
			return "", err
		}
		if found {
			return "1", nil
		}
		return "0", nil
	case Destroy:
		if err := e.cat.Destroy(cmd.TableName); err != nil {
			return "", err
		}
		return "", nil
	case Verify:
		sum, err := e.cat.Checksum(cmd.TableName)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%016x", sum), nil
	case Describe:
		desc, err := e.cat.Describe(cmd.TableName)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("pages=%d leaves=%d internal=%d keys=%d root=%d",
			desc.TotalPages, desc.LeafPages, desc.InternalPages, desc.LeafKeyTotal, desc.RootPageId), nil
	default:
		return "", ErrInvalid
	}
}
