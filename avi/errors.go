package avi

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel errors for configuration and layout violations (§7: these are
// programmer errors and abort the current operation).
var (
	ErrStreamFrozen       = errors.New("avi: stream is frozen, metadata is read-only")
	ErrWritingStarted     = errors.New("avi: cannot add stream after writing has started")
	ErrTooManyStreams     = errors.New("avi: at most 100 streams are supported")
	ErrUnknownStream      = errors.New("avi: unknown stream handle")
	ErrSuperIndexFull     = errors.New("avi: stream super-index is full (256 entries)")
	ErrChunkTooLarge      = errors.New("avi: chunk data size exceeds uint32 limit")
	ErrSizeMismatch       = errors.New("avi: declared chunk size does not match actual size on close")
	ErrUnsupportedChannels = errors.New("avi: unsupported channel count for this format")
	ErrNotFrozen          = errors.New("avi: chunk id is only readable once the stream is frozen")
)

// AVIError wraps an operation name around an underlying cause, mirroring how
// the rest of this codebase's ancestry reports errors: callers can still
// Unwrap/errors.Is/errors.As through it, but Error() always names the
// operation that failed. Configuration and arithmetic causes are wrapped
// with github.com/pkg/errors so the error carries a stack trace back to
// where the invariant was violated; I/O causes are passed through as-is
// since they already carry their own context from the underlying sink.
type AVIError struct {
	Op  string
	Err error
}

func newAVIError(op string, err error) *AVIError {
	if err == nil {
		return nil
	}
	return &AVIError{Op: op, Err: err}
}

// newProgrammerError wraps a sentinel/configuration error with a stack
// trace via github.com/pkg/errors before attaching the operation name.
func newProgrammerError(op string, err error) *AVIError {
	if err == nil {
		return nil
	}
	return &AVIError{Op: op, Err: pkgerrors.WithStack(err)}
}

func (e *AVIError) Error() string {
	return fmt.Sprintf("avi: %s: %v", e.Op, e.Err)
}

func (e *AVIError) Unwrap() error {
	return e.Err
}
