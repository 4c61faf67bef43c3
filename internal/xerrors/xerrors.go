// Package xerrors defines the typed error taxonomy shared by the storage
// and execution layers, mirroring the sentinel-error + wrapper pattern the
// teacher repo uses in its buffer_pool package.
package xerrors

import (
	stderrors "errors"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrOutOfRange: schema or index access outside its bounds.
	ErrOutOfRange = stderrors.New("out of range")
	// ErrIndexFull: extendible hash table reached MAX_DEPTH and cannot split further.
	ErrIndexFull = stderrors.New("index full")
	// ErrBucketFull: bucket page has no free slot; recoverable, triggers a split.
	ErrBucketFull = stderrors.New("bucket full")
	// ErrBucketEmpty: bucket page has no live entries; recoverable, triggers a merge attempt.
	ErrBucketEmpty = stderrors.New("bucket empty")
	// ErrNullResult: buffer pool could not produce a frame (no free frame, no victim).
	ErrNullResult = stderrors.New("no frame available")
	// ErrInvalidPageID: page id is -1 or otherwise not addressable.
	ErrInvalidPageID = stderrors.New("invalid page id")
	// ErrNullPredicate: join plan is missing its required predicate. Fatal.
	ErrNullPredicate = stderrors.New("join predicate is nil")
	// ErrTupleInsertFailed: table heap rejected an insert. Fatal to the query.
	ErrTupleInsertFailed = stderrors.New("tuple insert failed")
	// ErrTupleDeleteFailed: table heap rejected a delete. Fatal to the query.
	ErrTupleDeleteFailed = stderrors.New("tuple delete failed")
	// ErrTupleUpdateFailed: table heap rejected an update. Fatal to the query.
	ErrTupleUpdateFailed = stderrors.New("tuple update failed")
)

// OpError wraps an error with the operation that produced it, matching the
// teacher's BufferPoolError{Op, Err} shape.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return e.Op + ": <nil>"
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error { return e.Err }

// Wrap attaches an operation label to err using pkg/errors so the returned
// error keeps a call-site trail (Cause()/StackTrace()) while still
// satisfying errors.Is against the sentinel values above.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrapf(&OpError{Op: op, Err: err}, "op=%s", op)
}

// Is reports whether err wraps target anywhere in its chain.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}
