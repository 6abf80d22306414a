package store

// Record fields that reference another record or a pool entry hold a
// 64-bit index split into two int32 words, so every block stays a flat run
// of int32 values regardless of how large the graph grows.
const (
	segmentShift = 27
	segmentSize  = 1 << segmentShift
	segmentMask  = segmentSize - 1
)

// None is the "no reference" sentinel for edge ids, node ids and pool
// offsets. It survives the segment/offset split unchanged.
const None int64 = -1

// Segment returns the high word of i.
func Segment(i int64) int32 {
	return int32(uint64(i) >> segmentShift)
}

// Offset returns the low word of i.
func Offset(i int64) int32 {
	return int32(i & segmentMask)
}

// Index joins a segment/offset pair back into the logical index.
func Index(segment, offset int32) int64 {
	return int64(segment)<<segmentShift + int64(offset)
}

// putIndex writes i as a segment/offset pair at dst[0:2].
func putIndex(dst []int32, i int64) {
	dst[0] = Segment(i)
	dst[1] = Offset(i)
}

// getIndex reads the segment/offset pair at src[0:2].
func getIndex(src []int32) int64 {
	return Index(src[0], src[1])
}
