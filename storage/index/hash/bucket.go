package hash

import (
	"github.com/stonedb/stonedb/storage/page"
)

// bucketCapacity computes BUCKET_ARRAY_SIZE = floor(PAGE_SIZE / (entrySize
// + 0.25)): the trailing 0.25 bytes per entry is the two bitmap bits
// (occupied + readable) each slot costs (spec.md §4.4).
func bucketCapacity(entrySize int) int {
	n := (page.Size * 4) / (entrySize*4 + 1)
	for n > 0 && bitmapBytes(n)*2+n*entrySize > page.Size {
		n--
	}
	return n
}

func bitmapBytes(n int) int { return (n + 7) / 8 }

// bucket page layout within one page.Size buffer, for a given capacity and
// entrySize = keySize+valueSize:
//
//	[0 : bm)            occupied bitmap, bm = bitmapBytes(capacity) bytes
//	[bm : 2*bm)          readable bitmap
//	[2*bm : 2*bm+cap*entrySize)   slot array, keySize bytes then valueSize bytes per slot
type bucketLayout struct {
	capacity  int
	entrySize int
	keySize   int
	valueSize int
	bm        int
}

func newBucketLayout(keySize, valueSize int) bucketLayout {
	entrySize := keySize + valueSize
	cap := bucketCapacity(entrySize)
	return bucketLayout{
		capacity:  cap,
		entrySize: entrySize,
		keySize:   keySize,
		valueSize: valueSize,
		bm:        bitmapBytes(cap),
	}
}

func (l bucketLayout) bitIndex(idx uint32) (arrayIdx int, bit uint8) {
	return int(idx) / 8, uint8(idx % 8)
}

func (l bucketLayout) isOccupied(buf *[page.Size]byte, idx uint32) bool {
	a, b := l.bitIndex(idx)
	return buf[a]&(1<<b) != 0
}

func (l bucketLayout) setOccupied(buf *[page.Size]byte, idx uint32) {
	a, b := l.bitIndex(idx)
	buf[a] |= 1 << b
}

func (l bucketLayout) isReadable(buf *[page.Size]byte, idx uint32) bool {
	a, b := l.bitIndex(idx)
	return buf[l.bm+a]&(1<<b) != 0
}

func (l bucketLayout) setReadable(buf *[page.Size]byte, idx uint32) {
	a, b := l.bitIndex(idx)
	buf[l.bm+a] |= 1 << b
}

func (l bucketLayout) clearReadable(buf *[page.Size]byte, idx uint32) {
	a, b := l.bitIndex(idx)
	buf[l.bm+a] &^= 1 << b
}

func (l bucketLayout) slotOffset(idx uint32) int {
	return 2*l.bm + int(idx)*l.entrySize
}

// isFull scans until the first non-occupied slot (spec.md §4.4: insertions
// always fill from index 0 upward when no tombstones precede the first
// free slot, so a short-circuit scan is safe).
func (l bucketLayout) isFull(buf *[page.Size]byte) bool {
	for i := 0; i < l.capacity; i++ {
		idx := uint32(i)
		if !l.isOccupied(buf, idx) {
			return false
		}
		if !l.isReadable(buf, idx) {
			return false
		}
	}
	return true
}

// isEmpty reports no readable slot before the first non-occupied one.
func (l bucketLayout) isEmpty(buf *[page.Size]byte) bool {
	for i := 0; i < l.capacity; i++ {
		idx := uint32(i)
		if !l.isOccupied(buf, idx) {
			break
		}
		if l.isReadable(buf, idx) {
			return false
		}
	}
	return true
}

func (l bucketLayout) numReadable(buf *[page.Size]byte) int {
	count := 0
	for i := 0; i < l.capacity; i++ {
		idx := uint32(i)
		if !l.isOccupied(buf, idx) {
			break
		}
		if l.isReadable(buf, idx) {
			count++
		}
	}
	return count
}

func bucketInit(buf *[page.Size]byte, l bucketLayout) {
	for i := 0; i < 2*l.bm; i++ {
		buf[i] = 0
	}
}

// bucketGetValue appends every live value whose key matches k under eq.
func bucketGetValue[K comparable, V comparable](buf *[page.Size]byte, l bucketLayout, kc Codec[K], vc Codec[V], key K) []V {
	var out []V
	for i := 0; i < l.capacity; i++ {
		idx := uint32(i)
		if !l.isOccupied(buf, idx) {
			break
		}
		if !l.isReadable(buf, idx) {
			continue
		}
		off := l.slotOffset(idx)
		if kc.Decode(buf[off:off+l.keySize]) == key {
			out = append(out, vc.Decode(buf[off+l.keySize:off+l.entrySize]))
		}
	}
	return out
}

// bucketInsert places (key,value) at the first tombstone, else the first
// never-occupied slot. Rejects exact (key,value) duplicates. Returns false
// with full=true if no slot is available at all.
func bucketInsert[K comparable, V comparable](buf *[page.Size]byte, l bucketLayout, kc Codec[K], vc Codec[V], key K, value V) (ok bool, full bool) {
	insertIdx := -1
	for i := 0; i < l.capacity; i++ {
		idx := uint32(i)
		if !l.isOccupied(buf, idx) {
			if insertIdx < 0 {
				insertIdx = i
			}
			break
		}
		if l.isReadable(buf, idx) {
			off := l.slotOffset(idx)
			if kc.Decode(buf[off:off+l.keySize]) == key && vc.Decode(buf[off+l.keySize:off+l.entrySize]) == value {
				return false, false
			}
		} else if insertIdx < 0 {
			insertIdx = i
		}
	}
	if insertIdx < 0 {
		return false, true
	}
	idx := uint32(insertIdx)
	off := l.slotOffset(idx)
	kc.Encode(key, buf[off:off+l.keySize])
	vc.Encode(value, buf[off+l.keySize:off+l.entrySize])
	l.setReadable(buf, idx)
	if !l.isOccupied(buf, idx) {
		l.setOccupied(buf, idx)
	}
	return true, false
}

// bucketRemove clears readable (keeping occupied, a tombstone) for every
// live slot matching (key,value). Returns whether anything was removed.
func bucketRemove[K comparable, V comparable](buf *[page.Size]byte, l bucketLayout, kc Codec[K], vc Codec[V], key K, value V) bool {
	removed := false
	for i := 0; i < l.capacity; i++ {
		idx := uint32(i)
		if !l.isOccupied(buf, idx) {
			break
		}
		if !l.isReadable(buf, idx) {
			continue
		}
		off := l.slotOffset(idx)
		if kc.Decode(buf[off:off+l.keySize]) == key && vc.Decode(buf[off+l.keySize:off+l.entrySize]) == value {
			l.clearReadable(buf, idx)
			removed = true
		}
	}
	return removed
}

// bucketEntries returns every live (key,value) pair, in slot order, used by
// split to rehash the old bucket's contents.
func bucketEntries[K comparable, V comparable](buf *[page.Size]byte, l bucketLayout, kc Codec[K], vc Codec[V]) []struct {
	Key   K
	Value V
	Slot  uint32
} {
	var out []struct {
		Key   K
		Value V
		Slot  uint32
	}
	for i := 0; i < l.capacity; i++ {
		idx := uint32(i)
		if !l.isOccupied(buf, idx) {
			break
		}
		if !l.isReadable(buf, idx) {
			continue
		}
		off := l.slotOffset(idx)
		out = append(out, struct {
			Key   K
			Value V
			Slot  uint32
		}{
			Key:   kc.Decode(buf[off : off+l.keySize]),
			Value: vc.Decode(buf[off+l.keySize : off+l.entrySize]),
			Slot:  idx,
		})
	}
	return out
}

func bucketRemoveAt(buf *[page.Size]byte, l bucketLayout, idx uint32) {
	l.clearReadable(buf, idx)
}
