// Package bufferpool implements the paged buffer pool that mediates all
// disk I/O: a single-instance pool (Pool) and an N-way sharded wrapper
// (Parallel), grounded on the teacher's buffer_pool.BufferPool /
// manager.BufferPoolManager pair and, for exact control flow, on
// _examples/original_source/src/buffer/buffer_pool_manager_instance.cpp.
package bufferpool

import (
	"sync"

	"github.com/stonedb/stonedb/internal/diskio"
	"github.com/stonedb/stonedb/internal/logging"
	"github.com/stonedb/stonedb/internal/xerrors"
	"github.com/stonedb/stonedb/storage/page"
	"github.com/stonedb/stonedb/storage/replacer"
)

// Pool is one buffer pool instance: pool_size frames, a page table mapping
// resident page ids to frame indices, a free list of unused frames, and an
// LRU replacer for eviction among pinned-to-zero frames. All operations
// are atomic with respect to each other under poolLatch (spec.md §4.2).
type Pool struct {
	poolLatch sync.Mutex

	frames    []*page.Frame
	pageTable map[int32]int32 // page id -> frame index
	freeList  []int32
	repl      *replacer.LRU
	disk      diskio.DiskManager

	instanceIndex int32
	numInstances  int32
	nextPageID    int32

	stats stats
}

// New constructs a single (non-sharded) buffer pool instance, equivalent to
// newInstance(poolSize, 1, 0, disk).
func New(poolSize int, disk diskio.DiskManager) *Pool {
	return newInstance(poolSize, 1, 0, disk)
}

func newInstance(poolSize int, numInstances, instanceIndex int32, disk diskio.DiskManager) *Pool {
	p := &Pool{
		frames:        make([]*page.Frame, poolSize),
		pageTable:     make(map[int32]int32, poolSize),
		freeList:      make([]int32, poolSize),
		repl:          replacer.NewLRU(poolSize),
		disk:          disk,
		instanceIndex: instanceIndex,
		numInstances:  numInstances,
		nextPageID:    instanceIndex,
	}
	for i := range p.frames {
		p.frames[i] = page.NewFrame()
		p.freeList[i] = int32(i)
	}
	return p
}

// Fetch returns the frame holding pageID, pinning it, reading it from disk
// if it was not already resident. Returns ErrNullResult if no frame could
// be obtained.
func (p *Pool) Fetch(pageID int32) (*page.Frame, error) {
	if pageID == page.InvalidID {
		return nil, xerrors.ErrInvalidPageID
	}

	p.poolLatch.Lock()
	if frameIdx, ok := p.pageTable[pageID]; ok {
		f := p.frames[frameIdx]
		f.WLatch()
		f.Pin()
		f.WUnlatch()
		p.repl.Pin(frameIdx)
		p.stats.recordHit()
		p.poolLatch.Unlock()
		return f, nil
	}
	p.stats.recordMiss()

	frameIdx, ok := p.getFrame()
	if !ok {
		p.poolLatch.Unlock()
		return nil, xerrors.ErrNullResult
	}
	f := p.frames[frameIdx]
	f.WLatch()
	f.InstallInvalid(pageID)
	if err := p.disk.ReadPage(pageID, f.Data()); err != nil {
		f.WUnlatch()
		p.poolLatch.Unlock()
		return nil, xerrors.Wrap("bufferpool.Fetch", err)
	}
	p.stats.recordRead()
	f.WUnlatch()

	p.pageTable[pageID] = frameIdx
	p.poolLatch.Unlock()
	logging.Log.Debugf("bufferpool: fetched page %d into frame %d", pageID, frameIdx)
	return f, nil
}

// NewPage allocates a fresh page id, zeroes a frame for it, pins it, and
// returns both.
func (p *Pool) NewPage() (*page.Frame, int32, error) {
	p.poolLatch.Lock()
	defer p.poolLatch.Unlock()

	frameIdx, ok := p.getFrame()
	if !ok {
		return nil, page.InvalidID, xerrors.ErrNullResult
	}
	pageID := p.allocatePageID()
	f := p.frames[frameIdx]
	f.WLatch()
	f.InstallZeroed(pageID)
	f.WUnlatch()

	p.pageTable[pageID] = frameIdx
	logging.Log.Debugf("bufferpool: new page %d in frame %d", pageID, frameIdx)
	return f, pageID, nil
}

// Unpin decrements pageID's pin count, ORing isDirty into the frame's dirty
// flag. Returns false if the page isn't resident or is already fully
// unpinned (double-unpin is an error, spec.md §5).
func (p *Pool) Unpin(pageID int32, isDirty bool) bool {
	p.poolLatch.Lock()
	defer p.poolLatch.Unlock()

	frameIdx, ok := p.pageTable[pageID]
	if !ok {
		return false
	}
	f := p.frames[frameIdx]
	f.WLatch()
	defer f.WUnlatch()

	if f.PinCount() <= 0 {
		return false
	}
	if isDirty && !f.IsDirty() {
		f.MarkDirty()
		p.stats.incDirty()
	}
	reachedZero := f.Unpin()
	if reachedZero {
		p.repl.Unpin(frameIdx)
	}
	return true
}

// Flush writes pageID back unconditionally if resident (spec.md §9 Open
// Question: flush ignores the dirty bit). Returns false if not resident.
func (p *Pool) Flush(pageID int32) bool {
	p.poolLatch.Lock()
	defer p.poolLatch.Unlock()
	frameIdx, ok := p.pageTable[pageID]
	if !ok {
		return false
	}
	return p.flushFrameLocked(frameIdx)
}

// FlushAll writes back every resident dirty page.
func (p *Pool) FlushAll() {
	p.poolLatch.Lock()
	defer p.poolLatch.Unlock()
	for _, frameIdx := range p.pageTable {
		f := p.frames[frameIdx]
		f.RLatch()
		dirty := f.IsDirty()
		f.RUnlatch()
		if dirty {
			p.flushFrameLocked(frameIdx)
		}
	}
}

// Delete removes pageID from the pool, returning it to the free list.
// Idempotent (absent page returns true); refuses while pinned.
func (p *Pool) Delete(pageID int32) bool {
	p.poolLatch.Lock()
	defer p.poolLatch.Unlock()

	frameIdx, ok := p.pageTable[pageID]
	if !ok {
		return true
	}
	f := p.frames[frameIdx]
	f.RLatch()
	pinned := f.PinCount() > 0
	f.RUnlatch()
	if pinned {
		return false
	}

	f.WLatch()
	f.Reset(page.InvalidID)
	f.WUnlatch()

	// The frame no longer holds a valid page, so it leaves the replacer.
	p.repl.Pin(frameIdx)
	delete(p.pageTable, pageID)
	p.freeList = append(p.freeList, frameIdx)
	p.disk.DeallocatePage(pageID)
	return true
}

// SnapshotStats returns a copy of the pool's hit/miss/read/write counters.
func (p *Pool) SnapshotStats() Stats { return p.stats.snapshot() }

// flushFrameLocked writes the frame's content regardless of dirty state
// once it is resident, clearing the dirty flag and accounting. Caller must
// hold poolLatch.
func (p *Pool) flushFrameLocked(frameIdx int32) bool {
	f := p.frames[frameIdx]
	f.RLatch()
	id := f.ID()
	if id == page.InvalidID {
		f.RUnlatch()
		return false
	}
	wasDirty := f.IsDirty()
	err := p.disk.WritePage(id, f.Data())
	f.RUnlatch()
	if err != nil {
		logging.Log.Errorf("bufferpool: flush page %d failed: %v", id, err)
		return false
	}
	p.stats.recordWrite()
	if wasDirty {
		f.WLatch()
		f.ClearDirty()
		f.WUnlatch()
		p.stats.decDirty()
	}
	return true
}

// getFrame obtains a free frame: the free list head first, else a
// replacer victim (flushed if dirty, erased from the page table). Caller
// must hold poolLatch.
func (p *Pool) getFrame() (int32, bool) {
	if len(p.freeList) > 0 {
		idx := p.freeList[0]
		p.freeList = p.freeList[1:]
		return idx, true
	}
	victim, ok := p.repl.Victim()
	if !ok {
		return 0, false
	}
	vf := p.frames[victim]
	vf.RLatch()
	dirty := vf.IsDirty()
	vf.RUnlatch()
	if dirty {
		p.flushFrameLocked(victim)
	}
	victimID := vf.ID()
	delete(p.pageTable, victimID)
	return victim, true
}

// allocatePageID assigns the next id owned by this instance: ids are
// handed out num_instances apart starting at instance_index, so instance k
// owns every id ≡ k (mod numInstances) with no cross-instance coordination
// (spec.md §4.2).
func (p *Pool) allocatePageID() int32 {
	id := p.nextPageID
	p.nextPageID += p.numInstances
	return id
}
