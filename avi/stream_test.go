package avi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVideoStreamFreezeChunkIDCompressed(t *testing.T) {
	s := newVideoStream(0, VideoParams{Width: 640, Height: 480, BitsPerPixel: 24, Codec: NewFourCCFromString("XVID")})
	s.freeze()
	id, err := s.ChunkID()
	require.NoError(t, err)
	require.Equal(t, "00dc", id.String())
}

func TestVideoStreamFreezeChunkIDUncompressed(t *testing.T) {
	s := newVideoStream(1, VideoParams{Width: 320, Height: 240, BitsPerPixel: 24})
	s.freeze()
	id, err := s.ChunkID()
	require.NoError(t, err)
	require.Equal(t, "01db", id.String())
}

func TestAudioStreamFreezeChunkID(t *testing.T) {
	s := newAudioStream(2, NewPCMAudioParams(2, 44100, 16))
	s.freeze()
	id, err := s.ChunkID()
	require.NoError(t, err)
	require.Equal(t, "02wb", id.String())
}

func TestStreamMutationFailsAfterFreeze(t *testing.T) {
	s := newVideoStream(0, VideoParams{Width: 640, Height: 480, BitsPerPixel: 24})
	s.freeze()
	err := s.SetWidth(800)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrStreamFrozen)
}

func TestChunkIDBeforeFreezeFails(t *testing.T) {
	s := newVideoStream(0, VideoParams{})
	_, err := s.ChunkID()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrNotFrozen)
}

func TestNewPCMAudioParamsGranularity(t *testing.T) {
	p := NewPCMAudioParams(2, 44100, 16)
	require.Equal(t, 4, p.BlockAlign)
	require.Equal(t, 4*44100, p.BytesPerSecond)

	// Odd bit depth rounds granularity up.
	p = NewPCMAudioParams(1, 8000, 9)
	require.Equal(t, 2, p.BlockAlign)
}
