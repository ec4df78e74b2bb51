package avi

import "errors"

// VideoEncoder compresses a raw video frame into an AVI-ready bitstream.
// Implementations are not required to be concurrency-safe. EncodingVideoStream
// does not serialize calls itself: Encode runs on the goroutine that calls
// WriteFrame, outside the Writer's lock, so concurrent WriteFrame calls reach
// the encoder concurrently; AsyncVideoStream runs them one at a time
// (§4.4.1-2, §9).
type VideoEncoder interface {
	// Encode appends encoded bytes for src into dst and returns the grown
	// slice, the encoder's reported key-frame flag, and any error.
	Encode(dst, src []byte) (out []byte, isKeyFrame bool, err error)
	// MaxEncodedSize bounds the output of a single Encode call, so callers
	// can size dst up front.
	MaxEncodedSize() int
}

// AudioEncoder compresses raw PCM bytes into an AVI-ready bitstream. Unlike
// video, audio encoders are allowed to buffer: Encode may consume less than
// all of src and Flush drains whatever is left (§4.4.3).
type AudioEncoder interface {
	Encode(dst, src []byte) (out []byte, consumed int, err error)
	// Flush drains any buffered input into a final block. Called once, at
	// Close, via the owning stream's registered finish hook.
	Flush(dst []byte) (out []byte, err error)
	MaxEncodedSize() int
}

// EncodingVideoStream wraps a VideoStreamHandle with a VideoEncoder: callers
// hand it raw frames and it performs the encode-then-write in one call,
// reusing a single growable buffer across frames instead of allocating per
// frame (§4.4.1).
type EncodingVideoStream struct {
	handle  *VideoStreamHandle
	encoder VideoEncoder
	buf     []byte
}

// NewEncodingVideoStream builds a wrapper around an already-registered video
// stream. It also sets the stream's codec to codec if codec is non-zero.
func NewEncodingVideoStream(handle *VideoStreamHandle, encoder VideoEncoder, codec FourCC) (*EncodingVideoStream, error) {
	if codec != 0 {
		if err := handle.SetCodec(codec); err != nil {
			return nil, err
		}
	}
	return &EncodingVideoStream{handle: handle, encoder: encoder}, nil
}

func (e *EncodingVideoStream) growBuffer() {
	needed := e.encoder.MaxEncodedSize()
	if cap(e.buf) < needed {
		e.buf = make([]byte, 0, needed)
	}
	e.buf = e.buf[:0]
}

// WriteFrame encodes src and writes the result as one video chunk.
func (e *EncodingVideoStream) WriteFrame(src []byte) error {
	e.growBuffer()
	out, isKeyFrame, err := e.encoder.Encode(e.buf, src)
	if err != nil {
		return newAVIError("encode video frame", err)
	}
	return e.handle.w.WriteVideoFrame(e.handle, isKeyFrame, out)
}

// EncodingAudioStream is the audio counterpart of EncodingVideoStream. It
// additionally registers a finish hook with the owning Writer so Close
// flushes any residual buffered bytes as a final block (§4.4.3).
type EncodingAudioStream struct {
	handle  *AudioStreamHandle
	encoder AudioEncoder
	buf     []byte
}

// NewEncodingAudioStream builds a wrapper and registers its flush hook.
func NewEncodingAudioStream(handle *AudioStreamHandle, encoder AudioEncoder) *EncodingAudioStream {
	e := &EncodingAudioStream{handle: handle, encoder: encoder}
	handle.w.RegisterFinishHook(handle.index, e.flush)
	return e
}

func (e *EncodingAudioStream) growBuffer() {
	needed := e.encoder.MaxEncodedSize()
	if cap(e.buf) < needed {
		e.buf = make([]byte, 0, needed)
	}
	e.buf = e.buf[:0]
}

// WriteBlock encodes src, in possibly multiple encoder calls if the encoder
// only consumes part of src at a time, and writes each encoded block.
func (e *EncodingAudioStream) WriteBlock(src []byte) error {
	for len(src) > 0 {
		e.growBuffer()
		out, consumed, err := e.encoder.Encode(e.buf, src)
		if err != nil {
			return newAVIError("encode audio block", err)
		}
		if consumed == 0 && len(out) == 0 {
			return newProgrammerError("encode audio block", errors.New("audio encoder made no progress"))
		}
		src = src[consumed:]
		if len(out) == 0 {
			continue
		}
		if err := e.handle.w.WriteAudioBlock(e.handle, out); err != nil {
			return err
		}
	}
	return nil
}

func (e *EncodingAudioStream) flush() error {
	e.growBuffer()
	out, err := e.encoder.Flush(e.buf)
	if err != nil {
		return newAVIError("flush audio encoder", err)
	}
	if len(out) == 0 {
		return nil
	}
	return e.handle.w.WriteAudioBlock(e.handle, out)
}
