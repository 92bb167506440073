package bplustree

import "errors"

// ErrShortRead names a page read that returned fewer bytes than expected.
// No Pager method returns it: Pager.ReadPage answers a short read with an
// empty leaf instead of an error (see Pager.ReadPage).
var ErrShortRead = errors.New("bplustree: short read")

// ErrFileClosed names an operation attempted after Close. No method in
// this package returns it; after Close, the BlockFile's own error surfaces.
var ErrFileClosed = errors.New("bplustree: file closed")

// IoError wraps a failure from the backing BlockFile inside the Pager
// (size, truncate, write, sync, metadata read, or close). Failures to
// create the data directory or open the file come from the BlockFile
// constructor (e.g. directiofile.Open) as ordinary wrapped errors, not as
// IoError. Tree state is considered indeterminate after one is returned.
type IoError struct {
	Op  string
	Err error
}

func (e *IoError) Error() string {
	return "bplustree: " + e.Op + ": " + e.Err.Error()
}

func (e *IoError) Unwrap() error { return e.Err }

func newIoError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &IoError{Op: op, Err: err}
}
