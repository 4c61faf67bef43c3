// Package hash implements the extendible hash table index: a directory
// page of bucket pointers plus local depths, and bit-packed bucket pages,
// grounded on _examples/original_source/src/container/hash/extendible_hash_table.cpp
// and src/storage/page/hash_table_bucket_page.cpp.
//
// BusTub monomorphises the table over a handful of concrete (Key, Value,
// Comparator) triples (int/int, GenericKey<N>/RID for N in {4,8,16,32,64}).
// Go expresses that same "parametric module over fixed-width types" idea
// with a single generic Table[K, V] plus a caller-supplied fixed-width
// Codec per type, rather than hand-monomorphised copies (spec.md §9).
package hash

import (
	"encoding/binary"

	"github.com/stonedb/stonedb/storage/heap"
)

// Codec encodes and decodes a fixed-width key or value type to and from
// the bucket page's byte array. Size must be constant across every call:
// the bucket capacity formula (spec.md §4.4) depends on it.
type Codec[T comparable] struct {
	Size   int
	Encode func(T, []byte)
	Decode func([]byte) T
}

// Int32Codec encodes a 4-byte signed integer key or value, matching
// BusTub's int/int instantiation.
func Int32Codec() Codec[int32] {
	return Codec[int32]{
		Size: 4,
		Encode: func(v int32, buf []byte) {
			binary.LittleEndian.PutUint32(buf, uint32(v))
		},
		Decode: func(buf []byte) int32 {
			return int32(binary.LittleEndian.Uint32(buf))
		},
	}
}

// RIDCodec encodes a heap.RID, matching BusTub's GenericKey<N>/RID
// instantiation's value side.
func RIDCodec() Codec[heap.RID] {
	return Codec[heap.RID]{
		Size: 8,
		Encode: func(v heap.RID, buf []byte) {
			binary.LittleEndian.PutUint32(buf[0:4], uint32(v.PageID))
			binary.LittleEndian.PutUint32(buf[4:8], v.Slot)
		},
		Decode: func(buf []byte) heap.RID {
			return heap.RID{
				PageID: int32(binary.LittleEndian.Uint32(buf[0:4])),
				Slot:   binary.LittleEndian.Uint32(buf[4:8]),
			}
		},
	}
}

// FixedStringCodec encodes a key as a zero-padded/truncated byte string of
// width n, matching BusTub's GenericKey<N> family used for indexed varchar
// and multi-column keys. The trailing two bytes hold the payload's actual
// length rather than relying on a NUL terminator: catalog keys are raw
// concatenated Value.Encode() output, which routinely contains embedded
// zero bytes (e.g. any small integer), so a terminator scan would silently
// truncate them.
func FixedStringCodec(n int) Codec[string] {
	if n < 2 {
		panic("hash: FixedStringCodec needs at least 2 bytes for its length suffix")
	}
	dataWidth := n - 2
	return Codec[string]{
		Size: n,
		Encode: func(v string, buf []byte) {
			if len(v) > dataWidth {
				v = v[:dataWidth]
			}
			copy(buf, v)
			for i := len(v); i < dataWidth; i++ {
				buf[i] = 0
			}
			binary.LittleEndian.PutUint16(buf[dataWidth:], uint16(len(v)))
		},
		Decode: func(buf []byte) string {
			l := int(binary.LittleEndian.Uint16(buf[dataWidth : dataWidth+2]))
			if l > dataWidth {
				l = dataWidth
			}
			return string(buf[:l])
		},
	}
}
