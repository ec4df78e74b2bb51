package avi

import (
	"errors"
	"io"
)

// SeekableBuffer is an in-memory io.WriteSeeker/io.Reader: the RIFF writer
// needs real seek-and-overwrite support for its two-phase size patching,
// which bytes.Buffer alone doesn't provide. Used by tests and by callers
// that want to build a whole file in memory before flushing it elsewhere.
//
// Unlike a reallocate-the-whole-buffer-per-write scheme, writes overwrite a
// backing []byte slice in place, which matters here: the AVI writer seeks
// back to patch chunk sizes and super-index entries far more often than a
// typical RIFF reader/writer round trip would.
type SeekableBuffer struct {
	data []byte
	pos  int64
}

// NewSeekableBuffer creates an empty SeekableBuffer.
func NewSeekableBuffer() *SeekableBuffer {
	return &SeekableBuffer{}
}

// Write writes p at the current position, overwriting existing bytes and
// growing the buffer as needed, then advances the position.
func (sb *SeekableBuffer) Write(p []byte) (int, error) {
	end := sb.pos + int64(len(p))
	if end > int64(len(sb.data)) {
		grown := make([]byte, end)
		copy(grown, sb.data)
		sb.data = grown
	}
	n := copy(sb.data[sb.pos:end], p)
	sb.pos = end
	return n, nil
}

// Seek sets the position for the next Write or Read. Seeking past the end
// pads the buffer with zeros up to the new position, matching the
// io.WriteSeeker contract RIFF rewrites rely on (a later patch must be able
// to seek to any offset already written).
func (sb *SeekableBuffer) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = sb.pos + offset
	case io.SeekEnd:
		newPos = int64(len(sb.data)) + offset
	default:
		return 0, errors.New("avi: invalid seek whence")
	}
	if newPos < 0 {
		return 0, errors.New("avi: seek before start of buffer")
	}
	if newPos > int64(len(sb.data)) {
		grown := make([]byte, newPos)
		copy(grown, sb.data)
		sb.data = grown
	}
	sb.pos = newPos
	return newPos, nil
}

// Read implements io.Reader for convenience in round-trip tests.
func (sb *SeekableBuffer) Read(p []byte) (int, error) {
	if sb.pos >= int64(len(sb.data)) {
		return 0, io.EOF
	}
	n := copy(p, sb.data[sb.pos:])
	sb.pos += int64(n)
	return n, nil
}

// Bytes returns the buffer's contents. The returned slice aliases the
// buffer's storage and is invalidated by a subsequent Write that grows it.
func (sb *SeekableBuffer) Bytes() []byte {
	return sb.data
}

// Len returns the number of bytes currently in the buffer.
func (sb *SeekableBuffer) Len() int {
	return len(sb.data)
}

// Reset empties the buffer and rewinds the position.
func (sb *SeekableBuffer) Reset() {
	sb.data = sb.data[:0]
	sb.pos = 0
}
