package avi

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeekableBufferWriteAppends(t *testing.T) {
	sb := NewSeekableBuffer()

	n, err := sb.Write([]byte("Hello "))
	require.NoError(t, err)
	require.Equal(t, 6, n)

	pos, err := sb.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	require.EqualValues(t, 6, pos)

	_, err = sb.Write([]byte("World!"))
	require.NoError(t, err)
	require.Equal(t, "Hello World!", string(sb.Bytes()))
}

func TestSeekableBufferOverwriteInPlace(t *testing.T) {
	sb := NewSeekableBuffer()
	_, err := sb.Write([]byte("AAAAAAAAAA"))
	require.NoError(t, err)

	_, err = sb.Seek(2, io.SeekStart)
	require.NoError(t, err)
	_, err = sb.Write([]byte("BB"))
	require.NoError(t, err)

	require.Equal(t, "AABBAAAAAA", string(sb.Bytes()))
}

func TestSeekableBufferSeekPastEndPadsWithZeros(t *testing.T) {
	sb := NewSeekableBuffer()
	_, err := sb.Write([]byte("AB"))
	require.NoError(t, err)

	_, err = sb.Seek(5, io.SeekStart)
	require.NoError(t, err)
	_, err = sb.Write([]byte("Z"))
	require.NoError(t, err)

	require.Equal(t, []byte{'A', 'B', 0, 0, 0, 'Z'}, sb.Bytes())
}

func TestSeekableBufferNegativeSeekFails(t *testing.T) {
	sb := NewSeekableBuffer()
	_, err := sb.Seek(-1, io.SeekStart)
	require.Error(t, err)
}

func TestSeekableBufferRead(t *testing.T) {
	sb := NewSeekableBuffer()
	_, err := sb.Write([]byte("abcdef"))
	require.NoError(t, err)
	_, err = sb.Seek(2, io.SeekStart)
	require.NoError(t, err)

	out := make([]byte, 3)
	n, err := sb.Read(out)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, "cde", string(out))
}

func TestSeekableBufferReset(t *testing.T) {
	sb := NewSeekableBuffer()
	_, err := sb.Write([]byte("abc"))
	require.NoError(t, err)
	sb.Reset()
	require.Equal(t, 0, sb.Len())
}
