package avi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAsyncVideoStreamSerializesWrites(t *testing.T) {
	buf := NewSeekableBuffer()
	w := NewWriter(buf, Options{FramesPerSecond: 25})
	vh, err := w.AddVideoStream(VideoParams{Width: 2, Height: 2, BitsPerPixel: 24})
	require.NoError(t, err)

	enc, err := NewEncodingVideoStream(vh, &fakeVideoEncoder{maxSize: 64}, 0)
	require.NoError(t, err)
	async := NewAsyncVideoStream(enc)

	var futures []*Future
	for i := 0; i < 5; i++ {
		futures = append(futures, async.WriteAsync([]byte{byte(i)}))
	}
	for _, f := range futures {
		require.NoError(t, f.Wait())
	}
	require.NoError(t, async.FinishWriting())
	require.NoError(t, w.Close())

	nodes, err := parseTopLevel(buf.Bytes())
	require.NoError(t, err)
	movi, ok := nodes[0].find(fccMOVI)
	require.True(t, ok)
	chunks := movi.findAll(NewFourCCFromString("00db"))
	require.Len(t, chunks, 5)
	for i, c := range chunks {
		require.Equal(t, []byte{byte(i)}, c.data)
	}
}

func TestAsyncVideoStreamWriteBlocksUntilDone(t *testing.T) {
	buf := NewSeekableBuffer()
	w := NewWriter(buf, Options{FramesPerSecond: 25})
	vh, err := w.AddVideoStream(VideoParams{Width: 2, Height: 2, BitsPerPixel: 24})
	require.NoError(t, err)

	enc, err := NewEncodingVideoStream(vh, &fakeVideoEncoder{maxSize: 64}, 0)
	require.NoError(t, err)
	async := NewAsyncVideoStream(enc)

	require.NoError(t, async.Write(context.Background(), []byte{1}))
	require.NoError(t, w.Close())
}
