// Package heap implements the table heap: an append-friendly linked list of
// slotted data pages addressed by RID, grounded on spec.md's "Table heap —
// a linked list of data pages indexed by RID" description and on the
// teacher's page-oriented row storage (server/innodb/basic.Row,
// server/innodb/innodb_store/store's page-resident row slices), simplified
// to the byte-opaque tuple model spec.md calls for instead of InnoDB's
// clustered row formats.
package heap

import (
	"encoding/binary"

	"github.com/stonedb/stonedb/internal/xerrors"
	"github.com/stonedb/stonedb/storage/page"
)

// RID identifies a tuple by the page holding it and its slot within that
// page (spec.md §3: "its RID is (page_id, slot_number)").
type RID struct {
	PageID int32
	Slot   uint32
}

// Tuple is an opaque byte-encoded row.
type Tuple struct {
	Data []byte
}

// Pool is the subset of bufferpool.Pool / bufferpool.Parallel the heap
// needs, kept minimal and defined on the consumer side per Go convention.
type Pool interface {
	Fetch(pageID int32) (*page.Frame, error)
	NewPage() (*page.Frame, int32, error)
	Unpin(pageID int32, isDirty bool) bool
}

// TableHeap is a linked list of slotted data pages. RIDs are stable for a
// tuple's lifetime: delete marks the slot as a tombstone rather than
// relocating or renumbering any other slot (spec.md §3).
type TableHeap struct {
	pool        Pool
	firstPageID int32
}

// New allocates the heap's first page and returns the heap.
func New(pool Pool) (*TableHeap, error) {
	f, id, err := pool.NewPage()
	if err != nil {
		return nil, xerrors.Wrap("heap.New", err)
	}
	f.WLatch()
	initPage(f.Data(), page.InvalidID)
	f.WUnlatch()
	pool.Unpin(id, true)
	return &TableHeap{pool: pool, firstPageID: id}, nil
}

// Open wraps an existing heap whose first page is already on disk.
func Open(pool Pool, firstPageID int32) *TableHeap {
	return &TableHeap{pool: pool, firstPageID: firstPageID}
}

// FirstPageID returns the heap's head page, for persistence in a catalog
// entry.
func (h *TableHeap) FirstPageID() int32 { return h.firstPageID }

// InsertTuple appends data to the first page with room, allocating and
// linking a new tail page if every existing page is full. Returns the new
// tuple's RID.
func (h *TableHeap) InsertTuple(data []byte) (RID, error) {
	if len(data) == 0 {
		return RID{}, xerrors.ErrTupleInsertFailed
	}

	pageID := h.firstPageID
	for {
		f, err := h.pool.Fetch(pageID)
		if err != nil {
			return RID{}, xerrors.Wrap("heap.InsertTuple", err)
		}
		f.WLatch()
		slot, ok := insertInto(f.Data(), data)
		if ok {
			f.WUnlatch()
			h.pool.Unpin(pageID, true)
			return RID{PageID: pageID, Slot: slot}, nil
		}
		next := nextPageID(f.Data())
		f.WUnlatch()

		if next != page.InvalidID {
			h.pool.Unpin(pageID, false)
			pageID = next
			continue
		}

		// This page is full and terminal: allocate a new tail page, link
		// it, and retry the insert there.
		newFrame, newID, err := h.pool.NewPage()
		if err != nil {
			h.pool.Unpin(pageID, false)
			return RID{}, xerrors.Wrap("heap.InsertTuple", err)
		}
		newFrame.WLatch()
		initPage(newFrame.Data(), page.InvalidID)
		newFrame.WUnlatch()

		f.WLatch()
		setNextPageID(f.Data(), newID)
		f.WUnlatch()
		h.pool.Unpin(pageID, true)

		h.pool.Unpin(newID, false)
		pageID = newID
	}
}

// MarkDelete tombstones rid's slot. Already-deleted or absent slots fail
// with ErrTupleDeleteFailed.
func (h *TableHeap) MarkDelete(rid RID) error {
	f, err := h.pool.Fetch(rid.PageID)
	if err != nil {
		return xerrors.Wrap("heap.MarkDelete", err)
	}
	f.WLatch()
	ok := markDeleted(f.Data(), rid.Slot)
	f.WUnlatch()
	h.pool.Unpin(rid.PageID, ok)
	if !ok {
		return xerrors.ErrTupleDeleteFailed
	}
	return nil
}

// UpdateTuple overwrites rid in place when the new encoding fits in the
// slot's existing footprint, otherwise fails: callers needing relocation
// must delete and re-insert (BusTub's own update_tuple has the same
// in-place-only limitation).
func (h *TableHeap) UpdateTuple(data []byte, rid RID) error {
	f, err := h.pool.Fetch(rid.PageID)
	if err != nil {
		return xerrors.Wrap("heap.UpdateTuple", err)
	}
	f.WLatch()
	ok := updateInPlace(f.Data(), rid.Slot, data)
	f.WUnlatch()
	h.pool.Unpin(rid.PageID, ok)
	if !ok {
		return xerrors.ErrTupleUpdateFailed
	}
	return nil
}

// GetTuple returns a copy of the live tuple at rid, or false if the slot is
// deleted or out of range.
func (h *TableHeap) GetTuple(rid RID) (Tuple, bool, error) {
	f, err := h.pool.Fetch(rid.PageID)
	if err != nil {
		return Tuple{}, false, xerrors.Wrap("heap.GetTuple", err)
	}
	f.RLatch()
	data, ok := readSlot(f.Data(), rid.Slot)
	f.RUnlatch()
	h.pool.Unpin(rid.PageID, false)
	if !ok {
		return Tuple{}, false, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return Tuple{Data: cp}, true, nil
}

// Iterator walks every live tuple in page, then slot order.
type Iterator struct {
	heap    *TableHeap
	pageID  int32
	slot    uint32
	numSlot uint32
}

// Iterator returns a fresh heap-order iterator starting at the first page.
func (h *TableHeap) Iterator() *Iterator {
	return &Iterator{heap: h, pageID: h.firstPageID}
}

// Next advances to the next live tuple, returning false once the heap is
// exhausted (spec.md §7: "sequential scan emits tuples in heap-iterator
// order").
func (it *Iterator) Next() (Tuple, RID, bool, error) {
	for it.pageID != page.InvalidID {
		f, err := it.heap.pool.Fetch(it.pageID)
		if err != nil {
			return Tuple{}, RID{}, false, xerrors.Wrap("heap.Iterator.Next", err)
		}
		f.RLatch()
		if it.numSlot == 0 {
			it.numSlot = slotCount(f.Data())
		}
		for it.slot < it.numSlot {
			data, ok := readSlot(f.Data(), it.slot)
			slot := it.slot
			it.slot++
			if ok {
				cp := make([]byte, len(data))
				copy(cp, data)
				f.RUnlatch()
				it.heap.pool.Unpin(it.pageID, false)
				return Tuple{Data: cp}, RID{PageID: it.pageID, Slot: slot}, true, nil
			}
		}
		next := nextPageID(f.Data())
		f.RUnlatch()
		it.heap.pool.Unpin(it.pageID, false)
		it.pageID = next
		it.slot = 0
		it.numSlot = 0
	}
	return Tuple{}, RID{}, false, nil
}

// --- slotted page layout ---
//
// [0:4]   next page id (int32)
// [4:8]   slot count (uint32)
// [8:12]  free space offset, growing down from page.Size (uint32)
// [12:]   slot directory: each entry is (offset uint32, length uint32);
//         length == 0 marks a tombstone. Tuple bytes are packed from the
//         end of the page backward.

const headerSize = 12
const slotEntrySize = 8

func initPage(buf *[page.Size]byte, next int32) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(next))
	binary.LittleEndian.PutUint32(buf[4:8], 0)
	binary.LittleEndian.PutUint32(buf[8:12], page.Size)
}

func nextPageID(buf *[page.Size]byte) int32 {
	return int32(binary.LittleEndian.Uint32(buf[0:4]))
}

func setNextPageID(buf *[page.Size]byte, id int32) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(id))
}

func slotCount(buf *[page.Size]byte) uint32 {
	return binary.LittleEndian.Uint32(buf[4:8])
}

func freeSpaceOffset(buf *[page.Size]byte) uint32 {
	return binary.LittleEndian.Uint32(buf[8:12])
}

func slotOffset(idx uint32) int { return headerSize + int(idx)*slotEntrySize }

func readSlotEntry(buf *[page.Size]byte, idx uint32) (offset, length uint32) {
	base := slotOffset(idx)
	return binary.LittleEndian.Uint32(buf[base : base+4]), binary.LittleEndian.Uint32(buf[base+4 : base+8])
}

func writeSlotEntry(buf *[page.Size]byte, idx uint32, offset, length uint32) {
	base := slotOffset(idx)
	binary.LittleEndian.PutUint32(buf[base:base+4], offset)
	binary.LittleEndian.PutUint32(buf[base+4:base+8], length)
}

// insertInto appends data as a new slot if the page has room for both a new
// directory entry and the tuple bytes, returning the new slot index.
func insertInto(buf *[page.Size]byte, data []byte) (uint32, bool) {
	count := slotCount(buf)
	free := freeSpaceOffset(buf)
	dirEnd := uint32(slotOffset(count + 1))
	need := uint32(len(data))
	if dirEnd > free || free-dirEnd < need {
		return 0, false
	}
	newFree := free - need
	copy(buf[newFree:free], data)
	writeSlotEntry(buf, count, newFree, need)
	binary.LittleEndian.PutUint32(buf[4:8], count+1)
	binary.LittleEndian.PutUint32(buf[8:12], newFree)
	return count, true
}

func readSlot(buf *[page.Size]byte, idx uint32) ([]byte, bool) {
	if idx >= slotCount(buf) {
		return nil, false
	}
	offset, length := readSlotEntry(buf, idx)
	if length == 0 {
		return nil, false
	}
	return buf[offset : offset+length], true
}

func markDeleted(buf *[page.Size]byte, idx uint32) bool {
	if idx >= slotCount(buf) {
		return false
	}
	offset, length := readSlotEntry(buf, idx)
	if length == 0 {
		return false
	}
	writeSlotEntry(buf, idx, offset, 0)
	return true
}

// updateInPlace overwrites a live slot's bytes only if the new value is no
// larger than the slot's original footprint.
func updateInPlace(buf *[page.Size]byte, idx uint32, data []byte) bool {
	if idx >= slotCount(buf) {
		return false
	}
	offset, length := readSlotEntry(buf, idx)
	if length == 0 || uint32(len(data)) > length {
		return false
	}
	copy(buf[offset:offset+uint32(len(data))], data)
	writeSlotEntry(buf, idx, offset, uint32(len(data)))
	return true
}
