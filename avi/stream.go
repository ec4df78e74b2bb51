package avi

// StreamKind tags which variant a Stream holds. Using a tagged union here
// (instead of an inheritance chain of Stream -> VideoStream/AudioStream ->
// wrappers) collapses the virtual-dispatch hierarchy the source exhibits
// into a single type the multiplexer can switch on (§9 design note).
type StreamKind int

const (
	KindVideo StreamKind = iota
	KindAudio
)

// VideoParams holds the immutable-after-freeze metadata of a video stream.
type VideoParams struct {
	Width, Height int
	BitsPerPixel  int // one of 8, 16, 24, 32
	Codec         FourCC
}

// AudioParams holds the immutable-after-freeze metadata of an audio stream.
// NewPCMAudioParams fills in the PCM defaults described in spec §3.
type AudioParams struct {
	Channels            int
	SamplesPerSecond    int
	BitsPerSample       int
	FormatTag           uint16
	BytesPerSecond      int
	BlockAlign          int // "granularity"
	FormatSpecificData  []byte
}

const formatTagPCM = 1

// NewPCMAudioParams builds AudioParams with the PCM defaults: granularity =
// ceil(bitsPerSample*channels/8), bytesPerSecond = granularity*sampleRate.
func NewPCMAudioParams(channels, samplesPerSecond, bitsPerSample int) AudioParams {
	granularity := (bitsPerSample*channels + 7) / 8
	return AudioParams{
		Channels:         channels,
		SamplesPerSecond: samplesPerSecond,
		BitsPerSample:    bitsPerSample,
		FormatTag:        formatTagPCM,
		BlockAlign:       granularity,
		BytesPerSecond:   granularity * samplesPerSecond,
	}
}

// stream is the writer's internal per-stream state: index, optional name,
// kind-specific parameters, and the frozen flag guarding mutation.
type stream struct {
	index   int
	name    string
	kind    StreamKind
	video   VideoParams
	audio   AudioParams
	frozen  bool
	chunkID FourCC

	info streamInfo
}

func newVideoStream(index int, p VideoParams) *stream {
	return &stream{index: index, kind: KindVideo, video: p}
}

func newAudioStream(index int, p AudioParams) *stream {
	return &stream{index: index, kind: KindAudio, audio: p}
}

// freeze derives the chunk id and forbids further metadata mutation. Called
// exactly once, atomically with the multiplexer's first-write transition,
// while holding mu.
func (s *stream) freeze() {
	if s.frozen {
		return
	}
	switch s.kind {
	case KindVideo:
		twoCC := "dc"
		if s.video.Codec == 0 {
			twoCC = "db"
		}
		s.chunkID = streamChunkID(s.index, twoCC)
	case KindAudio:
		s.chunkID = streamChunkID(s.index, "wb")
	}
	s.frozen = true
}

func (s *stream) requireMutable(op string) error {
	if s.frozen {
		return newProgrammerError(op, ErrStreamFrozen)
	}
	return nil
}

// ChunkID returns the stream's "##xx" chunk identifier. Only meaningful
// once frozen.
func (s *stream) ChunkID() (FourCC, error) {
	if !s.frozen {
		return 0, newProgrammerError("chunk id", ErrNotFrozen)
	}
	return s.chunkID, nil
}

// SetWidth/SetHeight/SetBitsPerPixel/SetCodec mutate video metadata; they
// fail once the stream is frozen.
func (s *stream) SetWidth(w int) error {
	if err := s.requireMutable("set width"); err != nil {
		return err
	}
	s.video.Width = w
	return nil
}

func (s *stream) SetHeight(h int) error {
	if err := s.requireMutable("set height"); err != nil {
		return err
	}
	s.video.Height = h
	return nil
}

func (s *stream) SetBitsPerPixel(bpp int) error {
	if err := s.requireMutable("set bits per pixel"); err != nil {
		return err
	}
	s.video.BitsPerPixel = bpp
	return nil
}

func (s *stream) SetCodec(codec FourCC) error {
	if err := s.requireMutable("set codec"); err != nil {
		return err
	}
	s.video.Codec = codec
	return nil
}

// SetFormatTag/SetFormatSpecificData mutate audio metadata similarly.
func (s *stream) SetFormatTag(tag uint16) error {
	if err := s.requireMutable("set format tag"); err != nil {
		return err
	}
	s.audio.FormatTag = tag
	return nil
}

func (s *stream) SetFormatSpecificData(b []byte) error {
	if err := s.requireMutable("set format specific data"); err != nil {
		return err
	}
	s.audio.FormatSpecificData = b
	return nil
}

// SetName sets the optional strn stream name, written only when non-empty.
func (s *stream) SetName(name string) error {
	if err := s.requireMutable("set name"); err != nil {
		return err
	}
	s.name = name
	return nil
}

// VideoStreamHandle is the non-owning handle callers use to write video
// frames. It carries the stream index and a pointer to the owning Writer;
// all writes dispatch back through that Writer (§9: one-way ownership instead of a
// Stream<->Writer reference cycle).
type VideoStreamHandle struct {
	w     *Writer
	index int
}

// Index returns the stream's 0-based index within the file.
func (h *VideoStreamHandle) Index() int { return h.index }

// SetCodec sets the FourCC video codec handler. Fails once writing starts.
func (h *VideoStreamHandle) SetCodec(codec FourCC) error {
	return h.w.withStream(h.index, func(s *stream) error { return s.SetCodec(codec) })
}

// SetBitsPerPixel sets the bit depth (8, 16, 24 or 32).
func (h *VideoStreamHandle) SetBitsPerPixel(bpp int) error {
	return h.w.withStream(h.index, func(s *stream) error { return s.SetBitsPerPixel(bpp) })
}

// SetName sets the optional strn stream name.
func (h *VideoStreamHandle) SetName(name string) error {
	return h.w.withStream(h.index, func(s *stream) error { return s.SetName(name) })
}

// AudioStreamHandle is the audio counterpart of VideoStreamHandle.
type AudioStreamHandle struct {
	w     *Writer
	index int
}

// Index returns the stream's 0-based index within the file.
func (h *AudioStreamHandle) Index() int { return h.index }

// SetFormatTag overrides the WAVEFORMATEX format tag (default PCM).
func (h *AudioStreamHandle) SetFormatTag(tag uint16) error {
	return h.w.withStream(h.index, func(s *stream) error { return s.SetFormatTag(tag) })
}

// SetFormatSpecificData attaches codec-specific WAVEFORMATEX trailing bytes.
func (h *AudioStreamHandle) SetFormatSpecificData(b []byte) error {
	return h.w.withStream(h.index, func(s *stream) error { return s.SetFormatSpecificData(b) })
}

// SetName sets the optional strn stream name.
func (h *AudioStreamHandle) SetName(name string) error {
	return h.w.withStream(h.index, func(s *stream) error { return s.SetName(name) })
}
