package avi

import (
	"encoding/binary"
	"io"
	"math"
)

// sizeUnknown is the sentinel declared size meaning "patch on close".
const sizeUnknown = -1

// RiffItem is the handle returned by opening a chunk or list. It records
// where the item's data begins and, if known up front, its declared size.
type RiffItem struct {
	tag          FourCC
	dataStart    int64
	declaredSize int64
}

// DataStart is the byte offset where the item's data begins (>= 8).
func (it RiffItem) DataStart() int64 { return it.dataStart }

// ItemStart is the byte offset where the item begins on disk: 8 bytes
// before DataStart (the tag and size field), for both chunks and lists.
func (it RiffItem) ItemStart() int64 { return it.dataStart - 8 }

// RiffWriter is a thin layer over a seekable byte sink: it opens/closes
// chunks and lists, reserving the 8-byte header, writing placeholder sizes,
// and back-patching sizes on close. All multi-byte fields are little-endian
// (spec §4.1); chunk data is padded to an even byte count.
type RiffWriter struct {
	w   io.WriteSeeker
	pad [1024]byte
}

// NewRiffWriter wraps a seekable sink.
func NewRiffWriter(w io.WriteSeeker) *RiffWriter {
	return &RiffWriter{w: w}
}

// Position returns the sink's current absolute offset.
func (rw *RiffWriter) Position() (int64, error) {
	return rw.w.Seek(0, io.SeekCurrent)
}

func (rw *RiffWriter) writeTag(tag FourCC) error {
	b := tag.Bytes()
	_, err := rw.w.Write(b[:])
	return err
}

func (rw *RiffWriter) writeUint32(v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := rw.w.Write(b[:])
	return err
}

// OpenChunk writes tag and a size field (expectedSize, or a zero
// placeholder if expectedSize < 0), and returns a handle at the data start.
// expectedSize above math.MaxUint32-8 is rejected immediately.
func (rw *RiffWriter) OpenChunk(tag FourCC, expectedSize int64) (RiffItem, error) {
	if expectedSize >= 0 && expectedSize > math.MaxUint32-8 {
		return RiffItem{}, newProgrammerError("open chunk", ErrChunkTooLarge)
	}
	if err := rw.writeTag(tag); err != nil {
		return RiffItem{}, newAVIError("open chunk", err)
	}
	sizeField := uint32(0)
	if expectedSize >= 0 {
		sizeField = uint32(expectedSize)
	}
	if err := rw.writeUint32(sizeField); err != nil {
		return RiffItem{}, newAVIError("open chunk", err)
	}
	dataStart, err := rw.Position()
	if err != nil {
		return RiffItem{}, newAVIError("open chunk", err)
	}
	declared := int64(sizeUnknown)
	if expectedSize >= 0 {
		declared = expectedSize
	}
	return RiffItem{tag: tag, dataStart: dataStart, declaredSize: declared}, nil
}

// OpenList writes listType ("LIST" or "RIFF"), a size placeholder, then tag
// as the first 4 bytes of the list's data. The returned handle's data
// region therefore starts 4 bytes past the size field, at the tag itself —
// the RIFF/LIST size field covers "type tag + inner content", so this is
// what keeps CloseItem's single accounting rule working for both chunks
// and lists.
func (rw *RiffWriter) OpenList(tag FourCC, listType FourCC) (RiffItem, error) {
	if err := rw.writeTag(listType); err != nil {
		return RiffItem{}, newAVIError("open list", err)
	}
	if err := rw.writeUint32(0); err != nil {
		return RiffItem{}, newAVIError("open list", err)
	}
	dataStart, err := rw.Position()
	if err != nil {
		return RiffItem{}, newAVIError("open list", err)
	}
	if err := rw.writeTag(tag); err != nil {
		return RiffItem{}, newAVIError("open list", err)
	}
	return RiffItem{tag: tag, dataStart: dataStart, declaredSize: sizeUnknown}, nil
}

// CloseItem computes actualSize = currentPosition - item.dataStart. If the
// item declared a size, actualSize must match it exactly or CloseItem
// fails loudly (programming error per §4.1). Otherwise it seeks back and
// patches the size field. If the resulting position is odd, one zero pad
// byte is written.
//
// Note: for a list opened with OpenList, dataStart points at the list's
// type tag just past the size field, so actualSize here is "tag + payload"
// (the RIFF/LIST size field
// convention), matching how RIFF/LIST sizes are defined on disk.
func (rw *RiffWriter) CloseItem(item RiffItem) error {
	pos, err := rw.Position()
	if err != nil {
		return newAVIError("close item", err)
	}
	actualSize := pos - item.dataStart
	if item.declaredSize >= 0 {
		if actualSize != item.declaredSize {
			return newProgrammerError("close item", ErrSizeMismatch)
		}
	} else {
		if _, err := rw.w.Seek(item.dataStart-4, io.SeekStart); err != nil {
			return newAVIError("close item", err)
		}
		if err := rw.writeUint32(uint32(actualSize)); err != nil {
			return newAVIError("close item", err)
		}
		if _, err := rw.w.Seek(pos, io.SeekStart); err != nil {
			return newAVIError("close item", err)
		}
	}
	if pos%2 != 0 {
		if _, err := rw.w.Write([]byte{0}); err != nil {
			return newAVIError("close item", err)
		}
	}
	return nil
}

// SkipBytes writes n zero bytes using a reusable 1 KiB buffer.
func (rw *RiffWriter) SkipBytes(n int) error {
	for n > 0 {
		chunk := len(rw.pad)
		if chunk > n {
			chunk = n
		}
		if _, err := rw.w.Write(rw.pad[:chunk]); err != nil {
			return newAVIError("skip bytes", err)
		}
		n -= chunk
	}
	return nil
}

// Seek exposes the underlying sink's seek for callers that need to patch
// fields mid-structure (e.g. the close-time header rewrite).
func (rw *RiffWriter) Seek(offset int64, whence int) (int64, error) {
	return rw.w.Seek(offset, whence)
}

// Write exposes the underlying sink's write for raw payload bytes.
func (rw *RiffWriter) Write(p []byte) (int, error) {
	return rw.w.Write(p)
}
