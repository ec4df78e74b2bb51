package avi

// nonKeyFlag is the high bit set on a standard/legacy index entry's data
// size to mark a non-key (non-independently-decodable) frame.
const nonKeyFlag = uint32(1) << 31

type standardIndexEntry struct {
	dataOffset uint64
	dataSize   uint32 // high bit = non-key
}

type superIndexSlot struct {
	chunkOffset uint64
	chunkSize   uint32
	duration    uint32 // number of entries covered by the flushed ix## chunk
}

type legacyIndexEntry struct {
	chunkID        FourCC
	isKey          bool
	offsetInMovi   uint32
	dataSizeFlags  uint32 // high bit = non-key
}

// streamInfo is the multiplexer-owned bookkeeping for one stream: running
// counters plus the three indices described in spec §3.
type streamInfo struct {
	frameCount       uint32
	maxChunkDataSize uint32
	totalDataSize    uint64

	standardIndex []standardIndexEntry
	superIndex    []superIndexSlot
	legacyIndex   []legacyIndexEntry
}

func encodeDataSize(size uint32, isKeyFrame bool) uint32 {
	if isKeyFrame {
		return size
	}
	return size | nonKeyFlag
}

// shouldFlush reports whether the standard index must be flushed before
// accepting another chunk, per spec §4.3.8.
func (si *streamInfo) shouldFlush(currentPosition uint64) bool {
	if len(si.standardIndex) >= maxStandardIndexEntries {
		return true
	}
	if len(si.standardIndex) > 0 {
		base := si.standardIndex[0].dataOffset
		if currentPosition-base > uint64(^uint32(0)) {
			return true
		}
	}
	return false
}

func (si *streamInfo) appendStandardEntry(dataOffset uint64, dataSize uint32, isKeyFrame bool) {
	si.standardIndex = append(si.standardIndex, standardIndexEntry{
		dataOffset: dataOffset,
		dataSize:   encodeDataSize(dataSize, isKeyFrame),
	})
}

func (si *streamInfo) appendSuperIndexSlot(chunkOffset uint64, chunkSize uint32, duration int) {
	si.superIndex = append(si.superIndex, superIndexSlot{
		chunkOffset: chunkOffset,
		chunkSize:   chunkSize,
		duration:    uint32(duration),
	})
}

func (si *streamInfo) appendLegacyEntry(chunkID FourCC, isKeyFrame bool, offsetInMovi uint32, dataSize uint32) {
	si.legacyIndex = append(si.legacyIndex, legacyIndexEntry{
		chunkID:       chunkID,
		isKey:         isKeyFrame,
		offsetInMovi:  offsetInMovi,
		dataSizeFlags: encodeDataSize(dataSize, isKeyFrame),
	})
}

func (si *streamInfo) clearStandardIndex() {
	si.standardIndex = si.standardIndex[:0]
}
