package hash

import (
	"sync"

	"github.com/OneOfOne/xxhash"
	"github.com/k0kubun/pp"

	"github.com/stonedb/stonedb/internal/logging"
	"github.com/stonedb/stonedb/internal/xerrors"
	"github.com/stonedb/stonedb/storage/page"
)

// Pool is the subset of bufferpool.Pool / bufferpool.Parallel the table
// needs, including Delete for merge's page reclamation.
type Pool interface {
	Fetch(pageID int32) (*page.Frame, error)
	NewPage() (*page.Frame, int32, error)
	Unpin(pageID int32, isDirty bool) bool
	Delete(pageID int32) bool
}

// HashFunc computes the 64-bit hash xxhash gives us for a key; Table
// downcasts it to 32 bits itself (spec.md §4.5).
type HashFunc[K comparable] func(K) uint64

// BytesHash builds a HashFunc from a Codec by hashing its encoded form with
// xxhash, matching BusTub's HashFunction<KeyType> wrapping MurmurHash.
func BytesHash[K comparable](codec Codec[K]) HashFunc[K] {
	return func(k K) uint64 {
		buf := make([]byte, codec.Size)
		codec.Encode(k, buf)
		return xxhash.Checksum64(buf)
	}
}

// Table is an extendible hash table index: a directory page of bucket
// pointers and local depths, plus bit-packed bucket pages, all resident in
// the buffer pool (spec.md §4.5).
type Table[K comparable, V comparable] struct {
	tableLatch sync.RWMutex

	pool            Pool
	directoryPageID int32
	keyCodec        Codec[K]
	valueCodec      Codec[V]
	layout          bucketLayout
	hashFn          HashFunc[K]
}

// New allocates a fresh directory page and returns a table over it.
func New[K comparable, V comparable](pool Pool, keyCodec Codec[K], valueCodec Codec[V], hashFn HashFunc[K]) (*Table[K, V], error) {
	return newWithLayout(pool, keyCodec, valueCodec, hashFn, newBucketLayout(keyCodec.Size, valueCodec.Size))
}

func newWithLayout[K comparable, V comparable](pool Pool, keyCodec Codec[K], valueCodec Codec[V], hashFn HashFunc[K], layout bucketLayout) (*Table[K, V], error) {
	f, id, err := pool.NewPage()
	if err != nil {
		return nil, xerrors.Wrap("hash.New", err)
	}
	f.WLatch()
	dirInit(f.Data())
	f.WUnlatch()
	pool.Unpin(id, true)

	return &Table[K, V]{
		pool:            pool,
		directoryPageID: id,
		keyCodec:        keyCodec,
		valueCodec:      valueCodec,
		layout:          layout,
		hashFn:          hashFn,
	}, nil
}

// DirectoryPageID returns the table's root page, for persistence in a
// catalog entry.
func (t *Table[K, V]) DirectoryPageID() int32 { return t.directoryPageID }

func (t *Table[K, V]) hash(key K) uint32 {
	return uint32(t.hashFn(key))
}

func (t *Table[K, V]) keyToDirIndex(buf *[page.Size]byte, key K) uint32 {
	return t.hash(key) & dirGlobalDepthMask(buf)
}

// GetValue returns every value stored under key.
func (t *Table[K, V]) GetValue(key K) ([]V, error) {
	t.tableLatch.RLock()
	defer t.tableLatch.RUnlock()

	dirFrame, err := t.pool.Fetch(t.directoryPageID)
	if err != nil {
		return nil, xerrors.Wrap("hash.GetValue", err)
	}
	defer t.pool.Unpin(t.directoryPageID, false)
	dirFrame.RLatch()
	bucketID := dirBucketID(dirFrame.Data(), t.keyToDirIndex(dirFrame.Data(), key))
	dirFrame.RUnlatch()
	if bucketID == page.InvalidID {
		return nil, nil
	}

	bf, err := t.pool.Fetch(bucketID)
	if err != nil {
		return nil, xerrors.Wrap("hash.GetValue", err)
	}
	defer t.pool.Unpin(bucketID, false)
	bf.RLatch()
	defer bf.RUnlatch()
	return bucketGetValue(bf.Data(), t.layout, t.keyCodec, t.valueCodec, key), nil
}

// Insert places (key,value), splitting buckets as many times as needed.
// Returns false if (key,value) already exists, error on IndexFull.
func (t *Table[K, V]) Insert(key K, value V) (bool, error) {
	for {
		ok, duplicate, full, err := t.tryInsert(key, value)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if duplicate {
			return false, nil
		}
		if !full {
			// unreachable: tryInsert always sets one of ok/duplicate/full
			return false, xerrors.ErrNullResult
		}
		split, err := t.splitInsert(key)
		if err != nil {
			return false, err
		}
		if !split {
			return false, xerrors.ErrIndexFull
		}
	}
}

func (t *Table[K, V]) tryInsert(key K, value V) (ok, duplicate, full bool, err error) {
	t.tableLatch.RLock()
	defer t.tableLatch.RUnlock()

	dirFrame, err := t.pool.Fetch(t.directoryPageID)
	if err != nil {
		return false, false, false, xerrors.Wrap("hash.tryInsert", err)
	}
	defer t.pool.Unpin(t.directoryPageID, false)

	dirFrame.RLatch()
	idx := t.keyToDirIndex(dirFrame.Data(), key)
	bucketID := dirBucketID(dirFrame.Data(), idx)
	dirFrame.RUnlatch()

	if bucketID == page.InvalidID {
		// No bucket has ever been assigned to this slot: report full so the
		// caller re-enters under the write latch to create one.
		return false, false, true, nil
	}

	bf, err := t.pool.Fetch(bucketID)
	if err != nil {
		return false, false, false, xerrors.Wrap("hash.tryInsert", err)
	}
	bf.WLatch()
	inserted, isFull := bucketInsert(bf.Data(), t.layout, t.keyCodec, t.valueCodec, key, value)
	bf.WUnlatch()
	t.pool.Unpin(bucketID, inserted)

	if inserted {
		return true, false, false, nil
	}
	if isFull {
		return false, false, true, nil
	}
	return false, true, false, nil
}

// splitInsert grows the directory/bucket structure so a retried insert for
// key has room, or creates the first bucket if the slot was never
// populated. Returns false only when the bucket's local depth already hit
// MaxDepth.
func (t *Table[K, V]) splitInsert(key K) (bool, error) {
	t.tableLatch.Lock()
	defer t.tableLatch.Unlock()

	dirFrame, err := t.pool.Fetch(t.directoryPageID)
	if err != nil {
		return false, xerrors.Wrap("hash.splitInsert", err)
	}
	defer t.pool.Unpin(t.directoryPageID, true)

	dirFrame.WLatch()
	buf := dirFrame.Data()
	idx := t.keyToDirIndex(buf, key)
	bucketID := dirBucketID(buf, idx)

	if bucketID == page.InvalidID {
		newFrame, newID, err := t.pool.NewPage()
		if err != nil {
			dirFrame.WUnlatch()
			return false, xerrors.Wrap("hash.splitInsert", err)
		}
		newFrame.WLatch()
		bucketInit(newFrame.Data(), t.layout)
		newFrame.WUnlatch()
		t.pool.Unpin(newID, true)
		dirSetBucketID(buf, idx, newID)
		dirFrame.WUnlatch()
		return true, nil
	}

	bf, err := t.pool.Fetch(bucketID)
	if err != nil {
		dirFrame.WUnlatch()
		return false, xerrors.Wrap("hash.splitInsert", err)
	}
	bf.RLatch()
	full := t.layout.isFull(bf.Data())
	bf.RUnlatch()
	if !full {
		// Another goroutine split or removed from this bucket already.
		t.pool.Unpin(bucketID, false)
		dirFrame.WUnlatch()
		return true, nil
	}

	localDepth := dirLocalDepth(buf, idx)
	if localDepth >= MaxDepth {
		t.pool.Unpin(bucketID, false)
		dirFrame.WUnlatch()
		logging.Log.Warnf("hash: split refused, bucket at MaxDepth (idx=%d)", idx)
		return false, nil
	}

	if uint32(localDepth) == dirGlobalDepth(buf) {
		// Double the directory: global depth increments, and the first
		// half is copied verbatim into the second half (spec.md §4.5
		// step 2).
		oldSize := dirSize(buf)
		dirSetGlobalDepth(buf, dirGlobalDepth(buf)+1)
		dirSetLocalDepth(buf, idx, dirLocalDepth(buf, idx)+1)
		for i := uint32(0); i < oldSize; i++ {
			dirSetLocalDepth(buf, i+oldSize, dirLocalDepth(buf, i))
			dirSetBucketID(buf, i+oldSize, dirBucketID(buf, i))
		}
	} else {
		// Increment local depth of every directory slot whose low
		// local_depth bits equal the bucket's own (spec.md §4.5 step 2,
		// else branch), idx included.
		mask := (uint32(1) << localDepth) - 1
		group := idx & mask
		for i := uint32(0); i < dirSize(buf); i++ {
			if i&mask == group {
				dirSetLocalDepth(buf, i, dirLocalDepth(buf, i)+1)
			}
		}
	}

	newFrame, newID, err := t.pool.NewPage()
	if err != nil {
		t.pool.Unpin(bucketID, false)
		dirFrame.WUnlatch()
		return false, xerrors.Wrap("hash.splitInsert", err)
	}
	newFrame.WLatch()
	bucketInit(newFrame.Data(), t.layout)

	// newLocalDepth is idx's depth after the increment above; the bit that
	// now distinguishes idx's bucket from its new sibling is the one just
	// added, 1 << (newLocalDepth-1).
	newLocalDepth := dirLocalDepth(buf, idx)
	mask := (uint32(1) << newLocalDepth) - 1
	stayPattern := idx & mask
	movePattern := stayPattern ^ (uint32(1) << (newLocalDepth - 1))

	bf.WLatch()
	for _, e := range bucketEntries(bf.Data(), t.layout, t.keyCodec, t.valueCodec) {
		if t.hash(e.Key)&mask == movePattern {
			bucketInsert(newFrame.Data(), t.layout, t.keyCodec, t.valueCodec, e.Key, e.Value)
			bucketRemoveAt(bf.Data(), t.layout, e.Slot)
		}
	}
	bf.WUnlatch()
	newFrame.WUnlatch()

	for i := uint32(0); i < dirSize(buf); i++ {
		if i&mask == movePattern {
			dirSetBucketID(buf, i, newID)
		}
	}

	t.pool.Unpin(bucketID, true)
	t.pool.Unpin(newID, true)
	dirFrame.WUnlatch()
	return true, nil
}

// Remove deletes (key,value) if present, then attempts to merge the
// emptied bucket with its pair.
func (t *Table[K, V]) Remove(key K, value V) (bool, error) {
	removed, dirIdx, wasEmptied, err := t.tryRemove(key, value)
	if err != nil || !removed || !wasEmptied {
		return removed, err
	}
	if err := t.merge(dirIdx); err != nil {
		return removed, err
	}
	return removed, nil
}

func (t *Table[K, V]) tryRemove(key K, value V) (removed bool, dirIdx uint32, emptied bool, err error) {
	t.tableLatch.RLock()
	defer t.tableLatch.RUnlock()

	dirFrame, err := t.pool.Fetch(t.directoryPageID)
	if err != nil {
		return false, 0, false, xerrors.Wrap("hash.tryRemove", err)
	}
	defer t.pool.Unpin(t.directoryPageID, false)

	dirFrame.RLatch()
	idx := t.keyToDirIndex(dirFrame.Data(), key)
	bucketID := dirBucketID(dirFrame.Data(), idx)
	dirFrame.RUnlatch()
	if bucketID == page.InvalidID {
		return false, 0, false, nil
	}

	bf, err := t.pool.Fetch(bucketID)
	if err != nil {
		return false, 0, false, xerrors.Wrap("hash.tryRemove", err)
	}
	bf.WLatch()
	ok := bucketRemove(bf.Data(), t.layout, t.keyCodec, t.valueCodec, key, value)
	empty := ok && t.layout.isEmpty(bf.Data())
	bf.WUnlatch()
	t.pool.Unpin(bucketID, ok)
	return ok, idx, empty, nil
}

// merge collapses an empty bucket into its pair, repeatedly (spec.md §4.5
// Remove/Merge): after each successful merge it attempts to shrink the
// directory, then recurses on the lower of the two indices.
func (t *Table[K, V]) merge(dirIdx uint32) error {
	t.tableLatch.Lock()

	dirFrame, err := t.pool.Fetch(t.directoryPageID)
	if err != nil {
		t.tableLatch.Unlock()
		return xerrors.Wrap("hash.merge", err)
	}
	dirFrame.WLatch()
	buf := dirFrame.Data()

	if dirIdx >= dirSize(buf) {
		dirFrame.WUnlatch()
		t.pool.Unpin(t.directoryPageID, false)
		t.tableLatch.Unlock()
		return nil
	}
	bucketID := dirBucketID(buf, dirIdx)
	if bucketID == page.InvalidID {
		dirFrame.WUnlatch()
		t.pool.Unpin(t.directoryPageID, false)
		t.tableLatch.Unlock()
		return nil
	}

	bf, err := t.pool.Fetch(bucketID)
	if err != nil {
		dirFrame.WUnlatch()
		t.pool.Unpin(t.directoryPageID, false)
		t.tableLatch.Unlock()
		return xerrors.Wrap("hash.merge", err)
	}
	bf.RLatch()
	stillEmpty := t.layout.isEmpty(bf.Data())
	bf.RUnlatch()
	if !stillEmpty {
		// Received an insert in the interim: abort, not an error.
		t.pool.Unpin(bucketID, false)
		dirFrame.WUnlatch()
		t.pool.Unpin(t.directoryPageID, false)
		t.tableLatch.Unlock()
		return nil
	}

	localDepth := dirLocalDepth(buf, dirIdx)
	if localDepth == 0 {
		t.pool.Unpin(bucketID, true)
		t.pool.Delete(bucketID)
		dirSetBucketID(buf, dirIdx, page.InvalidID)
		dirFrame.WUnlatch()
		t.pool.Unpin(t.directoryPageID, true)
		t.tableLatch.Unlock()
		return nil
	}

	pairIdx := dirPairIndex(buf, dirIdx)
	if dirLocalDepth(buf, pairIdx) != localDepth {
		t.pool.Unpin(bucketID, false)
		dirFrame.WUnlatch()
		t.pool.Unpin(t.directoryPageID, false)
		t.tableLatch.Unlock()
		return nil
	}

	t.pool.Unpin(bucketID, true)

	// Repoint every directory slot that addressed the emptied bucket
	// (same low localDepth bits as dirIdx) to the pair's page.
	pairPageID := dirBucketID(buf, pairIdx)
	mask := (uint32(1) << localDepth) - 1
	pattern := dirIdx & mask
	for i := uint32(0); i < dirSize(buf); i++ {
		if i&mask == pattern {
			dirSetBucketID(buf, i, pairPageID)
		}
	}

	// The merged group (both the emptied bucket's old slots and the
	// pair's) now shares local depth-1, identified by their common low
	// (localDepth-1) bits.
	newDepth := localDepth - 1
	newMask := (uint32(1) << newDepth) - 1
	newPattern := pairIdx & newMask
	for i := uint32(0); i < dirSize(buf); i++ {
		if i&newMask == newPattern {
			dirSetLocalDepth(buf, i, newDepth)
		}
	}

	t.pool.Delete(bucketID)
	shrink(buf)

	dirFrame.WUnlatch()
	t.pool.Unpin(t.directoryPageID, true)
	t.tableLatch.Unlock()

	if dirIdx < pairIdx {
		return t.merge(dirIdx)
	}
	return t.merge(pairIdx)
}

func shrink(buf *[page.Size]byte) bool {
	if !dirCanShrink(buf) {
		return false
	}
	dirSetGlobalDepth(buf, dirGlobalDepth(buf)-1)
	return true
}

// DirEntry is one directory slot, as reported by Dump.
type DirEntry struct {
	Index      uint32
	LocalDepth uint8
	BucketID   int32
}

// Dump pretty-prints the directory's current slots, restoring BusTub's
// PrintDirectory diagnostic for interactive debugging.
func (t *Table[K, V]) Dump() ([]DirEntry, error) {
	t.tableLatch.RLock()
	defer t.tableLatch.RUnlock()

	dirFrame, err := t.pool.Fetch(t.directoryPageID)
	if err != nil {
		return nil, xerrors.Wrap("hash.Dump", err)
	}
	defer t.pool.Unpin(t.directoryPageID, false)
	dirFrame.RLatch()
	defer dirFrame.RUnlatch()

	buf := dirFrame.Data()
	entries := make([]DirEntry, dirSize(buf))
	for i := range entries {
		idx := uint32(i)
		entries[i] = DirEntry{Index: idx, LocalDepth: dirLocalDepth(buf, idx), BucketID: dirBucketID(buf, idx)}
	}
	logging.Log.Debugf("hash directory:\n%s", pp.Sprint(entries))
	return entries, nil
}

// GetGlobalDepth returns the directory's current global depth.
func (t *Table[K, V]) GetGlobalDepth() (uint32, error) {
	t.tableLatch.RLock()
	defer t.tableLatch.RUnlock()
	dirFrame, err := t.pool.Fetch(t.directoryPageID)
	if err != nil {
		return 0, xerrors.Wrap("hash.GetGlobalDepth", err)
	}
	defer t.pool.Unpin(t.directoryPageID, false)
	dirFrame.RLatch()
	defer dirFrame.RUnlatch()
	return dirGlobalDepth(dirFrame.Data()), nil
}
