package avi

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRiffWriterChunkWithKnownSize(t *testing.T) {
	buf := NewSeekableBuffer()
	rw := NewRiffWriter(buf)

	item, err := rw.OpenChunk(NewFourCCFromString("abcd"), 4)
	require.NoError(t, err)
	_, err = rw.Write([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	require.NoError(t, rw.CloseItem(item))

	data := buf.Bytes()
	require.Equal(t, "abcd", string(data[0:4]))
	require.Equal(t, uint32(4), binary.LittleEndian.Uint32(data[4:8]))
	require.Len(t, data, 12)
}

func TestRiffWriterChunkOddSizeIsPadded(t *testing.T) {
	buf := NewSeekableBuffer()
	rw := NewRiffWriter(buf)

	item, err := rw.OpenChunk(NewFourCCFromString("abcd"), -1)
	require.NoError(t, err)
	_, err = rw.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, rw.CloseItem(item))

	data := buf.Bytes()
	require.Equal(t, uint32(3), binary.LittleEndian.Uint32(data[4:8]))
	require.Len(t, data, 8+3+1) // padded to even
}

func TestRiffWriterSizeMismatchFails(t *testing.T) {
	buf := NewSeekableBuffer()
	rw := NewRiffWriter(buf)

	item, err := rw.OpenChunk(NewFourCCFromString("abcd"), 4)
	require.NoError(t, err)
	_, err = rw.Write([]byte{1, 2, 3}) // only 3 bytes, declared 4
	require.NoError(t, err)
	err = rw.CloseItem(item)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrSizeMismatch)
}

func TestRiffWriterListSizeCoversTagAndPayload(t *testing.T) {
	buf := NewSeekableBuffer()
	rw := NewRiffWriter(buf)

	list, err := rw.OpenList(NewFourCCFromString("movi"), fccLIST)
	require.NoError(t, err)
	chunk, err := rw.OpenChunk(NewFourCCFromString("00dc"), 2)
	require.NoError(t, err)
	_, err = rw.Write([]byte{0xAA, 0xBB})
	require.NoError(t, err)
	require.NoError(t, rw.CloseItem(chunk))
	require.NoError(t, rw.CloseItem(list))

	data := buf.Bytes()
	require.Equal(t, "LIST", string(data[0:4]))
	size := binary.LittleEndian.Uint32(data[4:8])
	// "movi" (4) + chunk header (8) + chunk payload (2) = 14
	require.Equal(t, uint32(14), size)
	require.Equal(t, "movi", string(data[8:12]))
}

func TestRiffWriterNestedLists(t *testing.T) {
	buf := NewSeekableBuffer()
	rw := NewRiffWriter(buf)

	outer, err := rw.OpenList(fccAVI, fccRIFF)
	require.NoError(t, err)
	inner, err := rw.OpenList(fccHDRL, fccLIST)
	require.NoError(t, err)
	leaf, err := rw.OpenChunk(fccAVIH, 4)
	require.NoError(t, err)
	_, err = rw.Write([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	require.NoError(t, rw.CloseItem(leaf))
	require.NoError(t, rw.CloseItem(inner))
	require.NoError(t, rw.CloseItem(outer))

	nodes, err := parseTopLevel(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	require.True(t, nodes[0].isList)
	require.Equal(t, fccAVI, nodes[0].tag)

	hdrl, ok := nodes[0].find(fccHDRL)
	require.True(t, ok)
	avih, ok := hdrl.find(fccAVIH)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3, 4}, avih.data)
}

func TestRiffWriterSkipBytes(t *testing.T) {
	buf := NewSeekableBuffer()
	rw := NewRiffWriter(buf)
	require.NoError(t, rw.SkipBytes(2000))
	pos, err := rw.Position()
	require.NoError(t, err)
	require.Equal(t, int64(2000), pos)
}
