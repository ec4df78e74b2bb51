package avi

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sort"
	"sync"
)

// Options configures a Writer, per spec §6.
type Options struct {
	// FramesPerSecond drives microseconds-per-frame and video stream
	// scale/rate. Rounded to 3 decimal places before the rational
	// decomposition to stabilize against floating-point drift.
	FramesPerSecond float64
	// EmitIndex1 emits the legacy idx1 chunk in the first RIFF for AVI
	// 1.0 compatibility. Default false.
	EmitIndex1 bool
	// LeaveOpen, if true, leaves the underlying sink open on Close.
	LeaveOpen bool
}

// Writer is the AVI multiplexer (§4.3): it orchestrates file layout, opens
// the movi list, accepts frames/blocks, decides when to flush per-stream
// indices and when to cut to a new RIFF, and rewrites the header on close
// with the true counts.
type Writer struct {
	mu sync.Mutex

	riff *RiffWriter
	sink io.WriteSeeker
	opts Options

	streams []*stream

	started bool
	closed  bool

	frameRateNum uint32
	frameRateDen uint32

	isFirstRiff   bool
	currentRiff   RiffItem
	currentMovi   RiffItem
	riffThreshold int64

	totalLegacyEntries int
	riffAviFrameCount   uint32

	avihDataStart           int64
	avihTemplate            avihChunk
	strhDataStart           []int64
	strhTemplates           []strhChunk
	indexDataStart          []int64
	indexEntriesInUseOffset []int64
	dmlhDataStart           int64

	finishHooks []func() error

	// riffThresholdOverride replaces both firstRiffSizeThreshold and
	// nextRiffSizeThreshold when non-zero. Production callers never set
	// this; it exists so tests can force RIFF rollover without writing
	// gigabytes of frames.
	riffThresholdOverride int64
}

// NewWriter creates a multiplexer writing to a seekable byte sink. Nothing
// is written until the first call to WriteVideoFrame/WriteAudioBlock.
func NewWriter(sink io.WriteSeeker, opts Options) *Writer {
	return &Writer{
		riff: NewRiffWriter(sink),
		sink: sink,
		opts: opts,
	}
}

// AddVideoStream registers a video stream. Fails once writing has started
// or once 100 streams are registered (§4.3.1).
func (aw *Writer) AddVideoStream(p VideoParams) (*VideoStreamHandle, error) {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	if aw.started {
		return nil, newProgrammerError("add video stream", ErrWritingStarted)
	}
	if len(aw.streams) >= maxStreams {
		return nil, newProgrammerError("add video stream", ErrTooManyStreams)
	}
	s := newVideoStream(len(aw.streams), p)
	aw.streams = append(aw.streams, s)
	aw.finishHooks = append(aw.finishHooks, nil)
	return &VideoStreamHandle{w: aw, index: s.index}, nil
}

// AddAudioStream registers an audio stream.
func (aw *Writer) AddAudioStream(p AudioParams) (*AudioStreamHandle, error) {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	if aw.started {
		return nil, newProgrammerError("add audio stream", ErrWritingStarted)
	}
	if len(aw.streams) >= maxStreams {
		return nil, newProgrammerError("add audio stream", ErrTooManyStreams)
	}
	s := newAudioStream(len(aw.streams), p)
	aw.streams = append(aw.streams, s)
	aw.finishHooks = append(aw.finishHooks, nil)
	return &AudioStreamHandle{w: aw, index: s.index}, nil
}

// RegisterFinishHook attaches a callback run once, at Close, before any
// index flush — the hook point encoder adapters use to flush residual
// buffered bytes as a final block (§4.3.10 step 1, §4.4.3).
func (aw *Writer) RegisterFinishHook(streamIndex int, hook func() error) {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	if streamIndex >= 0 && streamIndex < len(aw.finishHooks) {
		aw.finishHooks[streamIndex] = hook
	}
}

func (aw *Writer) streamAt(index int) (*stream, error) {
	if index < 0 || index >= len(aw.streams) {
		return nil, newProgrammerError("stream lookup", ErrUnknownStream)
	}
	return aw.streams[index], nil
}

// withStream runs fn against the stream at index under the write mutex —
// the path metadata setters use so mutation is serialized with the
// first-write transition.
func (aw *Writer) withStream(index int, fn func(s *stream) error) error {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	s, err := aw.streamAt(index)
	if err != nil {
		return err
	}
	return fn(s)
}

// WriteVideoFrame writes one video chunk for the stream identified by h.
func (aw *Writer) WriteVideoFrame(h *VideoStreamHandle, isKeyFrame bool, data []byte) error {
	s, err := aw.streamAt(h.index)
	if err != nil {
		return err
	}
	return aw.writeChunk(s, isKeyFrame, data)
}

// WriteAudioBlock writes one audio chunk for the stream identified by h.
// Audio blocks are always treated as key frames (§4.3.6).
func (aw *Writer) WriteAudioBlock(h *AudioStreamHandle, data []byte) error {
	s, err := aw.streamAt(h.index)
	if err != nil {
		return err
	}
	return aw.writeChunk(s, true, data)
}

// writeChunk implements the §4.3.6 write sequence under the write mutex.
func (aw *Writer) writeChunk(s *stream, isKeyFrame bool, data []byte) error {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	if aw.closed {
		return newProgrammerError("write chunk", errors.New("writer is closed"))
	}
	if !aw.started {
		if err := aw.start(); err != nil {
			return err
		}
	}

	si := &s.info
	pos, err := aw.riff.Position()
	if err != nil {
		return newAVIError("write chunk", err)
	}

	if si.shouldFlush(uint64(pos)) {
		if err := aw.flushStreamIndex(s); err != nil {
			return err
		}
	}

	legacyDue := aw.opts.EmitIndex1 && aw.isFirstRiff

	approxNextSize := len(data)
	if legacyDue {
		approxNextSize += 16
	}
	if err := aw.createNewRiffIfNeeded(approxNextSize); err != nil {
		return err
	}

	item, err := aw.riff.OpenChunk(s.chunkID, int64(len(data)))
	if err != nil {
		return err
	}
	if _, err := aw.riff.Write(data); err != nil {
		return newAVIError("write chunk data", err)
	}
	if err := aw.riff.CloseItem(item); err != nil {
		return err
	}

	dataSize := uint32(len(data))
	si.frameCount++
	if dataSize > si.maxChunkDataSize {
		si.maxChunkDataSize = dataSize
	}
	si.totalDataSize += uint64(dataSize)
	si.appendStandardEntry(uint64(item.DataStart()), dataSize, isKeyFrame)

	if legacyDue {
		si.appendLegacyEntry(s.chunkID, isKeyFrame, uint32(item.ItemStart()-aw.currentMovi.DataStart()), dataSize)
		aw.totalLegacyEntries++
	}

	Log.WithFields(logFields{"stream": s.index, "frame": si.frameCount, "size": dataSize}).Debug("avi: wrote chunk")
	return nil
}

// start performs the §4.3.2 first-write transition.
func (aw *Writer) start() error {
	aw.frameRateNum, aw.frameRateDen = decomposeFrameRate(aw.opts.FramesPerSecond)
	for _, s := range aw.streams {
		s.freeze()
	}

	item, err := aw.riff.OpenList(fccAVI, fccRIFF)
	if err != nil {
		return err
	}
	aw.currentRiff = item
	aw.isFirstRiff = true
	aw.riffThreshold = firstRiffSizeThreshold
	if aw.riffThresholdOverride > 0 {
		aw.riffThreshold = aw.riffThresholdOverride
	}

	if err := aw.writeHeaderList(); err != nil {
		return err
	}

	movi, err := aw.riff.OpenList(fccMOVI, fccLIST)
	if err != nil {
		return err
	}
	aw.currentMovi = movi
	aw.started = true
	return nil
}

func roundFPS(fps float64) float64 {
	return math.Round(fps*1000) / 1000
}

func decomposeFrameRate(fps float64) (num, den uint32) {
	fps = roundFPS(fps)
	den = 1000
	num = uint32(math.Round(fps * 1000))
	if g := gcdUint32(num, den); g > 0 {
		num /= g
		den /= g
	}
	return
}

func gcdUint32(a, b uint32) uint32 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// writeHeaderList writes the hdrl LIST (§4.3.3): avih, one strl per stream,
// odml/dmlh. List sizes are patched automatically by RiffWriter.CloseItem;
// only the data-dependent scalar fields (avih, strh, dmlh) need a recorded
// offset for the close-time rewrite.
func (aw *Writer) writeHeaderList() error {
	hdrl, err := aw.riff.OpenList(fccHDRL, fccLIST)
	if err != nil {
		return err
	}

	var width, height uint32
	for _, s := range aw.streams {
		if s.kind == KindVideo {
			width, height = uint32(s.video.Width), uint32(s.video.Height)
			break
		}
	}

	flags := uint32(aviIsInterleaved | aviTrustCKType)
	if aw.opts.EmitIndex1 {
		flags |= aviHasIndex
	}

	fps := roundFPS(aw.opts.FramesPerSecond)
	var microSec uint32
	if fps > 0 {
		microSec = uint32(math.Round(1000000.0 / fps))
	}

	avih := avihChunk{
		MicroSecPerFrame: microSec,
		Flags:            flags,
		Streams:          uint32(len(aw.streams)),
		Width:            width,
		Height:           height,
	}
	aw.avihTemplate = avih

	avihItem, err := aw.riff.OpenChunk(fccAVIH, sizeofAVIMainHeader)
	if err != nil {
		return err
	}
	aw.avihDataStart = avihItem.DataStart()
	if err := binary.Write(aw.riff, binary.LittleEndian, &avih); err != nil {
		return newAVIError("write avih", err)
	}
	if err := aw.riff.CloseItem(avihItem); err != nil {
		return err
	}

	aw.strhTemplates = make([]strhChunk, len(aw.streams))
	aw.strhDataStart = make([]int64, len(aw.streams))
	aw.indexDataStart = make([]int64, len(aw.streams))
	aw.indexEntriesInUseOffset = make([]int64, len(aw.streams))

	for i, s := range aw.streams {
		if err := aw.writeStrl(i, s); err != nil {
			return err
		}
	}

	odml, err := aw.riff.OpenList(fccODML, fccLIST)
	if err != nil {
		return err
	}
	dmlhItem, err := aw.riff.OpenChunk(fccDMLH, sizeofDMLH)
	if err != nil {
		return err
	}
	aw.dmlhDataStart = dmlhItem.DataStart()
	var dmlh dmlhChunk
	if err := binary.Write(aw.riff, binary.LittleEndian, &dmlh); err != nil {
		return newAVIError("write dmlh", err)
	}
	if err := aw.riff.CloseItem(dmlhItem); err != nil {
		return err
	}
	if err := aw.riff.CloseItem(odml); err != nil {
		return err
	}

	return aw.riff.CloseItem(hdrl)
}

func (aw *Writer) writeStrl(i int, s *stream) error {
	strl, err := aw.riff.OpenList(fccSTRL, fccLIST)
	if err != nil {
		return err
	}

	var h strhChunk
	switch s.kind {
	case KindVideo:
		h.Type = uint32(fccVIDS)
		h.Handler = uint32(s.video.Codec)
		h.Scale = aw.frameRateDen
		h.Rate = aw.frameRateNum
		h.Quality = 0
		h.FrameRight = int16(s.video.Width)
		h.FrameBottom = int16(s.video.Height)
	case KindAudio:
		h.Type = uint32(fccAUDS)
		h.Scale = uint32(s.audio.BlockAlign)
		h.Rate = uint32(s.audio.BytesPerSecond)
		h.SuggestedBufferSize = uint32(s.audio.BytesPerSecond / 2)
		h.Quality = 0xFFFFFFFF
		h.SampleSize = uint32(s.audio.BlockAlign)
	}
	aw.strhTemplates[i] = h

	strhItem, err := aw.riff.OpenChunk(fccSTRH, sizeofAVIStreamHeader)
	if err != nil {
		return err
	}
	aw.strhDataStart[i] = strhItem.DataStart()
	if err := binary.Write(aw.riff, binary.LittleEndian, &h); err != nil {
		return newAVIError("write strh", err)
	}
	if err := aw.riff.CloseItem(strhItem); err != nil {
		return err
	}

	if s.kind == KindVideo {
		if err := aw.writeVideoFormat(s); err != nil {
			return err
		}
	} else {
		if err := aw.writeAudioFormat(s); err != nil {
			return err
		}
	}

	if s.name != "" {
		nameItem, err := aw.riff.OpenChunk(fccSTRN, int64(len(s.name)+1))
		if err != nil {
			return err
		}
		if _, err := aw.riff.Write(append([]byte(s.name), 0)); err != nil {
			return newAVIError("write strn", err)
		}
		if err := aw.riff.CloseItem(nameItem); err != nil {
			return err
		}
	}

	if err := aw.writeSuperIndexReservation(i, s); err != nil {
		return err
	}

	return aw.riff.CloseItem(strl)
}

func (aw *Writer) writeVideoFormat(s *stream) error {
	bpp := s.video.BitsPerPixel
	uncompressed := s.video.Codec == 0
	extra := 8
	if bpp == 8 && uncompressed {
		extra = 1024
	}
	item, err := aw.riff.OpenChunk(fccSTRF, int64(sizeofBitmapInfo+extra))
	if err != nil {
		return err
	}
	bih := bitmapInfoHeader{
		Size:        sizeofBitmapInfo,
		Width:       int32(s.video.Width),
		Height:      int32(s.video.Height),
		Planes:      1,
		BitCount:    uint16(bpp),
		Compression: uint32(s.video.Codec),
		SizeImage:   uint32(s.video.Width * s.video.Height * bpp / 8),
	}
	if err := binary.Write(aw.riff, binary.LittleEndian, &bih); err != nil {
		return newAVIError("write bitmap info header", err)
	}
	if bpp == 8 && uncompressed {
		var entry [4]byte
		for i := 0; i < 256; i++ {
			entry[0], entry[1], entry[2], entry[3] = byte(i), byte(i), byte(i), 0
			if _, err := aw.riff.Write(entry[:]); err != nil {
				return newAVIError("write palette", err)
			}
		}
	} else {
		if err := aw.riff.SkipBytes(8); err != nil {
			return err
		}
	}
	return aw.riff.CloseItem(item)
}

func (aw *Writer) writeAudioFormat(s *stream) error {
	extra := len(s.audio.FormatSpecificData)
	item, err := aw.riff.OpenChunk(fccSTRF, int64(sizeofWaveFormatCore+2+extra))
	if err != nil {
		return err
	}
	wf := waveFormatCore{
		FormatTag:      s.audio.FormatTag,
		Channels:       uint16(s.audio.Channels),
		SamplesPerSec:  uint32(s.audio.SamplesPerSecond),
		AvgBytesPerSec: uint32(s.audio.BytesPerSecond),
		BlockAlign:     uint16(s.audio.BlockAlign),
		BitsPerSample:  uint16(s.audio.BitsPerSample),
	}
	if err := binary.Write(aw.riff, binary.LittleEndian, &wf); err != nil {
		return newAVIError("write wave format", err)
	}
	if err := binary.Write(aw.riff, binary.LittleEndian, uint16(extra)); err != nil {
		return newAVIError("write wave format extra size", err)
	}
	if extra > 0 {
		if _, err := aw.riff.Write(s.audio.FormatSpecificData); err != nil {
			return newAVIError("write wave format extra data", err)
		}
	}
	return aw.riff.CloseItem(item)
}

// writeSuperIndexReservation reserves the fixed 256-slot "indx" chunk
// (§4.3.3), zero-filled; unused entries are legal per OpenDML and remain
// zero until flushStreamIndex claims a slot.
func (aw *Writer) writeSuperIndexReservation(i int, s *stream) error {
	size := sizeofSuperIndexHdr + maxSuperIndexEntries*sizeofSuperIndexEntry
	item, err := aw.riff.OpenChunk(fccINDX, int64(size))
	if err != nil {
		return err
	}
	header := superIndexHeader{
		LongsPerEntry: 4,
		SubType:       0,
		IndexType:     indexTypeIndexes,
		EntriesInUse:  0,
		ChunkID:       uint32(s.chunkID),
	}
	if err := binary.Write(aw.riff, binary.LittleEndian, &header); err != nil {
		return newAVIError("write super index header", err)
	}
	aw.indexEntriesInUseOffset[i] = item.DataStart() + 4
	aw.indexDataStart[i] = item.DataStart() + sizeofSuperIndexHdr
	if err := aw.riff.SkipBytes(maxSuperIndexEntries * sizeofSuperIndexEntry); err != nil {
		return err
	}
	return aw.riff.CloseItem(item)
}

// shouldFlushStreamIndex exposes streamInfo.shouldFlush for tests.
func (aw *Writer) shouldFlushStreamIndex(s *stream) bool {
	pos, _ := aw.riff.Position()
	return s.info.shouldFlush(uint64(pos))
}

// flushStreamIndex implements §4.3.8: writes an "ix##" chunk for the
// stream's pending standard index, records a super-index slot (patched
// directly into the reserved "indx" chunk), and clears the standard index.
func (aw *Writer) flushStreamIndex(s *stream) error {
	si := &s.info
	if len(si.standardIndex) == 0 {
		return nil
	}
	if len(si.superIndex) >= maxSuperIndexEntries {
		return newProgrammerError("flush stream index", ErrSuperIndexFull)
	}

	indexSize := sizeofStdIndexHeader + len(si.standardIndex)*sizeofStdIndexEntry
	if err := aw.createNewRiffIfNeeded(indexSize); err != nil {
		return err
	}

	chunkID := standardIndexChunkID(s.index)
	item, err := aw.riff.OpenChunk(chunkID, int64(indexSize))
	if err != nil {
		return err
	}

	baseOffset := si.standardIndex[0].dataOffset
	header := stdIndexHeader{
		LongsPerEntry: 2,
		SubType:       0,
		IndexType:     indexTypeChunks,
		EntriesInUse:  uint32(len(si.standardIndex)),
		ChunkID:       uint32(s.chunkID),
		BaseOffset:    baseOffset,
	}
	if err := binary.Write(aw.riff, binary.LittleEndian, &header); err != nil {
		return newAVIError("write standard index header", err)
	}
	for _, e := range si.standardIndex {
		entry := stdIndexEntry{Offset: uint32(e.dataOffset - baseOffset), Size: e.dataSize}
		if err := binary.Write(aw.riff, binary.LittleEndian, &entry); err != nil {
			return newAVIError("write standard index entry", err)
		}
	}
	if err := aw.riff.CloseItem(item); err != nil {
		return err
	}

	duration := len(si.standardIndex)
	if err := aw.recordSuperIndexSlot(s, uint64(item.ItemStart()), uint32(indexSize), duration); err != nil {
		return err
	}

	Log.WithFields(logFields{"stream": s.index, "entries": duration}).Info("avi: flushed standard index")

	si.clearStandardIndex()
	return nil
}

// recordSuperIndexSlot appends an in-memory super-index entry and patches
// it directly into the stream's reserved "indx" chunk on disk, restoring
// the write position afterwards.
func (aw *Writer) recordSuperIndexSlot(s *stream, chunkOffset uint64, chunkSize uint32, duration int) error {
	si := &s.info
	si.appendSuperIndexSlot(chunkOffset, chunkSize, duration)
	slotIndex := len(si.superIndex) - 1

	if slotIndex == maxSuperIndexEntries-1 {
		Log.WithFields(logFields{"stream": s.index}).Warn("avi: super index reached its 256-slot capacity")
	}

	entryOffset := aw.indexDataStart[s.index] + int64(slotIndex)*sizeofSuperIndexEntry
	entry := superIndexEntry{ChunkOffset: chunkOffset, ChunkSize: chunkSize, Duration: uint32(duration)}
	entriesInUse := uint32(len(si.superIndex))

	if err := aw.patchAt(entryOffset, func(w io.Writer) error {
		return binary.Write(w, binary.LittleEndian, &entry)
	}); err != nil {
		return err
	}
	return aw.patchAt(aw.indexEntriesInUseOffset[s.index], func(w io.Writer) error {
		return binary.Write(w, binary.LittleEndian, entriesInUse)
	})
}

// patchAt seeks to offset, runs write, then restores the writer's prior
// position — the two-phase "reserve now, patch later" technique used
// throughout this writer for fields only known after the fact.
func (aw *Writer) patchAt(offset int64, write func(w io.Writer) error) error {
	cur, err := aw.riff.Position()
	if err != nil {
		return newAVIError("patch", err)
	}
	if _, err := aw.riff.Seek(offset, io.SeekStart); err != nil {
		return newAVIError("patch", err)
	}
	if err := write(aw.riff); err != nil {
		return newAVIError("patch", err)
	}
	if _, err := aw.riff.Seek(cur, io.SeekStart); err != nil {
		return newAVIError("patch", err)
	}
	return nil
}

// createNewRiffIfNeeded implements §4.3.7.
func (aw *Writer) createNewRiffIfNeeded(approxNextSize int) error {
	pos, err := aw.riff.Position()
	if err != nil {
		return newAVIError("create new riff", err)
	}
	estimated := pos + int64(approxNextSize) - aw.currentRiff.ItemStart()
	if aw.isFirstRiff && aw.opts.EmitIndex1 {
		estimated += 8 + int64(aw.totalLegacyEntries)*16
	}
	if estimated <= aw.riffThreshold {
		return nil
	}

	if err := aw.riff.CloseItem(aw.currentMovi); err != nil {
		return err
	}
	if aw.isFirstRiff {
		if err := aw.performFirstRiffCloseActions(); err != nil {
			return err
		}
	}
	if err := aw.riff.CloseItem(aw.currentRiff); err != nil {
		return err
	}

	item, err := aw.riff.OpenList(fccAVIX, fccRIFF)
	if err != nil {
		return err
	}
	aw.currentRiff = item
	movi, err := aw.riff.OpenList(fccMOVI, fccLIST)
	if err != nil {
		return err
	}
	aw.currentMovi = movi
	aw.isFirstRiff = false
	aw.riffThreshold = nextRiffSizeThreshold
	if aw.riffThresholdOverride > 0 {
		aw.riffThreshold = aw.riffThresholdOverride
	}

	Log.WithFields(logFields{"offset": item.ItemStart()}).Info("avi: rolled over to a new AVIX RIFF")
	return nil
}

// performFirstRiffCloseActions runs once, when the first RIFF closes
// (either due to rollover or at Close): captures the frame count the main
// header will record, and emits idx1 if enabled (§4.3.9).
func (aw *Writer) performFirstRiffCloseActions() error {
	var maxVideoFrames uint32
	for _, s := range aw.streams {
		if s.kind == KindVideo && s.info.frameCount > maxVideoFrames {
			maxVideoFrames = s.info.frameCount
		}
	}
	aw.riffAviFrameCount = maxVideoFrames

	if aw.opts.EmitIndex1 {
		return aw.writeIdx1()
	}
	return nil
}

func (aw *Writer) writeIdx1() error {
	var all []legacyIndexEntry
	for _, s := range aw.streams {
		all = append(all, s.info.legacyIndex...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].offsetInMovi < all[j].offsetInMovi })

	size := len(all) * sizeofIndexEntry
	item, err := aw.riff.OpenChunk(fccIDX1, int64(size))
	if err != nil {
		return err
	}
	for _, e := range all {
		flags := uint32(0)
		if e.isKey {
			flags = aviIndexKeyFrame
		}
		entry := idx1Entry{ChunkID: uint32(e.chunkID), Flags: flags, Offset: e.offsetInMovi, Size: e.dataSizeFlags}
		if err := binary.Write(aw.riff, binary.LittleEndian, &entry); err != nil {
			return newAVIError("write idx1 entry", err)
		}
	}
	return aw.riff.CloseItem(item)
}

// Close implements §4.3.10: flushes pending indices, closes the final
// RIFF, and rewrites the header with final counts.
func (aw *Writer) Close() error {
	// Finish hooks write through WriteVideoFrame/WriteAudioBlock, which take
	// aw.mu themselves, so they run before the mutex is held for the rest of
	// the close sequence.
	aw.mu.Lock()
	runHooks := aw.started && !aw.closed
	hooks := aw.finishHooks
	aw.mu.Unlock()
	if runHooks {
		for _, hook := range hooks {
			if hook != nil {
				if err := hook(); err != nil {
					return err
				}
			}
		}
	}

	aw.mu.Lock()
	defer aw.mu.Unlock()

	if aw.closed {
		return nil
	}
	aw.closed = true

	if aw.started {
		for _, s := range aw.streams {
			if err := aw.flushStreamIndex(s); err != nil {
				return err
			}
		}
		if err := aw.riff.CloseItem(aw.currentMovi); err != nil {
			return err
		}
		if aw.isFirstRiff {
			if err := aw.performFirstRiffCloseActions(); err != nil {
				return err
			}
		}
		if err := aw.riff.CloseItem(aw.currentRiff); err != nil {
			return err
		}
		if err := aw.rewriteHeader(); err != nil {
			return err
		}
	}

	if !aw.opts.LeaveOpen {
		if closer, ok := aw.sink.(io.Closer); ok {
			return closer.Close()
		}
	}
	return nil
}

func (aw *Writer) rewriteHeader() error {
	var totalMaxChunk uint64
	for _, s := range aw.streams {
		totalMaxChunk += uint64(s.info.maxChunkDataSize)
	}
	fps := roundFPS(aw.opts.FramesPerSecond)
	maxBytesPerSec := uint32(math.Round(fps * float64(totalMaxChunk)))

	if err := aw.patchAt(aw.avihDataStart, func(w io.Writer) error {
		h := aw.avihTemplate
		h.MaxBytesPerSec = maxBytesPerSec
		h.TotalFrames = aw.riffAviFrameCount
		return binary.Write(w, binary.LittleEndian, &h)
	}); err != nil {
		return err
	}

	for i, s := range aw.streams {
		if err := aw.patchAt(aw.strhDataStart[i], func(w io.Writer) error {
			h := aw.strhTemplates[i]
			if s.kind == KindVideo {
				h.Length = s.info.frameCount
				h.SuggestedBufferSize = s.info.maxChunkDataSize
			} else {
				h.Length = uint32(s.info.totalDataSize)
			}
			return binary.Write(w, binary.LittleEndian, &h)
		}); err != nil {
			return err
		}
	}

	totalFrames := aw.riffAviFrameCount
	for _, s := range aw.streams {
		if s.kind == KindVideo && s.info.frameCount > totalFrames {
			totalFrames = s.info.frameCount
		}
	}
	return aw.patchAt(aw.dmlhDataStart, func(w io.Writer) error {
		d := dmlhChunk{TotalFrames: totalFrames}
		return binary.Write(w, binary.LittleEndian, &d)
	})
}
