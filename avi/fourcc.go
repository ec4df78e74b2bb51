package avi

import "encoding/binary"

// FourCC is a 4-byte RIFF/AVI tag, stored as the little-endian uint32 the
// file actually contains. Comparable with ==, usable as a map key.
type FourCC uint32

// NewFourCCFromString builds a FourCC from an ASCII string of at most 4
// bytes, right-padded with spaces. Panics if s is longer than 4 bytes.
func NewFourCCFromString(s string) FourCC {
	if len(s) > 4 {
		panic("avi: FourCC string longer than 4 bytes: " + s)
	}
	var b [4]byte
	copy(b[:], s)
	for i := len(s); i < 4; i++ {
		b[i] = ' '
	}
	return NewFourCCFromBytes(b)
}

// NewFourCCFromBytes builds a FourCC from its raw 4-byte wire form.
func NewFourCCFromBytes(b [4]byte) FourCC {
	return FourCC(binary.LittleEndian.Uint32(b[:]))
}

// Bytes returns the raw 4-byte wire form.
func (f FourCC) Bytes() [4]byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(f))
	return b
}

// String returns the printable form, as stored (trailing spaces included).
func (f FourCC) String() string {
	b := f.Bytes()
	return string(b[:])
}

// streamChunkID derives the "##xx" chunk id for a stream, per spec: the
// two-digit decimal stream index followed by a type-specific two-character
// code ("db"/"dc" for video, "wb" for audio).
func streamChunkID(streamIndex int, twoCC string) FourCC {
	var b [4]byte
	b[0] = byte('0' + (streamIndex/10)%10)
	b[1] = byte('0' + streamIndex%10)
	b[2] = twoCC[0]
	b[3] = twoCC[1]
	return NewFourCCFromBytes(b)
}

// standardIndexChunkID derives the "ix##" chunk id for a stream's standard
// index.
func standardIndexChunkID(streamIndex int) FourCC {
	var b [4]byte
	b[0] = 'i'
	b[1] = 'x'
	b[2] = byte('0' + (streamIndex/10)%10)
	b[3] = byte('0' + streamIndex%10)
	return NewFourCCFromBytes(b)
}

// Well-known FourCC tags used throughout the container.
var (
	fccRIFF = NewFourCCFromString("RIFF")
	fccLIST = NewFourCCFromString("LIST")
	fccAVI  = NewFourCCFromString("AVI ")
	fccAVIX = NewFourCCFromString("AVIX")

	fccHDRL = NewFourCCFromString("hdrl")
	fccSTRL = NewFourCCFromString("strl")
	fccMOVI = NewFourCCFromString("movi")
	fccODML = NewFourCCFromString("odml")

	fccAVIH = NewFourCCFromString("avih")
	fccSTRH = NewFourCCFromString("strh")
	fccSTRF = NewFourCCFromString("strf")
	fccSTRN = NewFourCCFromString("strn")
	fccINDX = NewFourCCFromString("indx")
	fccDMLH = NewFourCCFromString("dmlh")
	fccIDX1 = NewFourCCFromString("idx1")

	fccVIDS = NewFourCCFromString("vids")
	fccAUDS = NewFourCCFromString("auds")
)
