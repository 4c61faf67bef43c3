package hash

import (
	"encoding/binary"

	"github.com/stonedb/stonedb/storage/page"
)

// MaxDepth bounds both global and local depth (spec.md §4.5: split fails
// with IndexFull once a bucket's local depth would exceed this).
const MaxDepth = 9

// dirArraySize is the largest directory the table can ever grow to,
// 1<<MaxDepth slots, always allocated up front so the directory page's
// layout never needs to move within its frame.
const dirArraySize = 1 << MaxDepth

// directory page layout within one page.Size buffer:
//
//	[0:4]              global depth (uint32)
//	[4:4+N]             per-slot local depth (byte each), N = dirArraySize
//	[4+N : 4+N+4*N]     per-slot bucket page id (int32 each)
const (
	dirGlobalDepthOff = 0
	dirLocalDepthOff  = 4
	dirBucketIDOff    = dirLocalDepthOff + dirArraySize
)

func dirInit(buf *[page.Size]byte) {
	binary.LittleEndian.PutUint32(buf[dirGlobalDepthOff:dirGlobalDepthOff+4], 0)
	for i := 0; i < dirArraySize; i++ {
		buf[dirLocalDepthOff+i] = 0
		dirSetBucketID(buf, uint32(i), page.InvalidID)
	}
}

func dirGlobalDepth(buf *[page.Size]byte) uint32 {
	return binary.LittleEndian.Uint32(buf[dirGlobalDepthOff : dirGlobalDepthOff+4])
}

func dirSetGlobalDepth(buf *[page.Size]byte, depth uint32) {
	binary.LittleEndian.PutUint32(buf[dirGlobalDepthOff:dirGlobalDepthOff+4], depth)
}

// dirSize is the number of directory slots currently in use: 1<<globalDepth.
func dirSize(buf *[page.Size]byte) uint32 {
	return 1 << dirGlobalDepth(buf)
}

func dirGlobalDepthMask(buf *[page.Size]byte) uint32 {
	return dirSize(buf) - 1
}

func dirLocalDepth(buf *[page.Size]byte, idx uint32) uint8 {
	return buf[dirLocalDepthOff+idx]
}

func dirSetLocalDepth(buf *[page.Size]byte, idx uint32, depth uint8) {
	buf[dirLocalDepthOff+idx] = depth
}

func dirBucketID(buf *[page.Size]byte, idx uint32) int32 {
	off := dirBucketIDOff + int(idx)*4
	return int32(binary.LittleEndian.Uint32(buf[off : off+4]))
}

func dirSetBucketID(buf *[page.Size]byte, idx uint32, id int32) {
	off := dirBucketIDOff + int(idx)*4
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(id))
}

// dirPairIndex returns idx's buddy: the slot it will merge with or split
// from, found by flipping the local-depth distinguishing bit.
func dirPairIndex(buf *[page.Size]byte, idx uint32) uint32 {
	d := dirLocalDepth(buf, idx)
	if d == 0 {
		return idx
	}
	return idx ^ (uint32(1) << (d - 1))
}

// dirCanShrink reports whether every occupied slot's local depth is below
// the global depth, meaning the directory can safely halve.
func dirCanShrink(buf *[page.Size]byte) bool {
	gd := dirGlobalDepth(buf)
	size := dirSize(buf)
	for i := uint32(0); i < size; i++ {
		if uint32(dirLocalDepth(buf, i)) == gd {
			return false
		}
	}
	return true
}
