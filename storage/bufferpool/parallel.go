package bufferpool

import (
	"sync"

	"github.com/stonedb/stonedb/internal/diskio"
	"github.com/stonedb/stonedb/internal/xerrors"
	"github.com/stonedb/stonedb/storage/page"
)

// Parallel shards a buffer pool across N instances by page_id mod N, with
// no lock shared across instances (spec.md §4.3, §5). new_page probes
// instances in round-robin order so allocation pressure is spread evenly.
type Parallel struct {
	instances []*Pool

	mu         sync.Mutex
	startIndex int32
}

// NewParallel builds numInstances pools of poolSize frames each, one disk
// manager shared by all of them (as in the BusTub reference, a single
// physical disk backs every instance).
func NewParallel(poolSize int, numInstances int, disk diskio.DiskManager) *Parallel {
	if numInstances < 1 {
		numInstances = 1
	}
	pp := &Parallel{instances: make([]*Pool, numInstances)}
	for i := 0; i < numInstances; i++ {
		pp.instances[i] = newInstance(poolSize, int32(numInstances), int32(i), disk)
	}
	return pp
}

// NumInstances returns the shard count.
func (pp *Parallel) NumInstances() int { return len(pp.instances) }

func (pp *Parallel) instanceFor(pageID int32) *Pool {
	n := int32(len(pp.instances))
	idx := pageID % n
	if idx < 0 {
		idx += n
	}
	return pp.instances[idx]
}

// Fetch routes to the instance owning page_id mod N.
func (pp *Parallel) Fetch(pageID int32) (*page.Frame, error) {
	return pp.instanceFor(pageID).Fetch(pageID)
}

// Unpin routes to the owning instance.
func (pp *Parallel) Unpin(pageID int32, isDirty bool) bool {
	return pp.instanceFor(pageID).Unpin(pageID, isDirty)
}

// Flush routes to the owning instance.
func (pp *Parallel) Flush(pageID int32) bool {
	return pp.instanceFor(pageID).Flush(pageID)
}

// Delete routes to the owning instance.
func (pp *Parallel) Delete(pageID int32) bool {
	return pp.instanceFor(pageID).Delete(pageID)
}

// FlushAll flushes every instance.
func (pp *Parallel) FlushAll() {
	for _, inst := range pp.instances {
		inst.FlushAll()
	}
}

// NewPage probes each instance exactly once starting at a rotating
// startIndex, returning the first success and advancing startIndex by one
// (mod N) regardless of outcome, for fairness across repeated calls
// (spec.md §4.3).
func (pp *Parallel) NewPage() (*page.Frame, int32, error) {
	pp.mu.Lock()
	start := pp.startIndex
	pp.startIndex = (pp.startIndex + 1) % int32(len(pp.instances))
	pp.mu.Unlock()

	n := int32(len(pp.instances))
	for i := int32(0); i < n; i++ {
		idx := (start + i) % n
		f, id, err := pp.instances[idx].NewPage()
		if err == nil {
			return f, id, nil
		}
	}
	return nil, page.InvalidID, xerrors.ErrNullResult
}
