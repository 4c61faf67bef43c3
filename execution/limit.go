package execution

import (
	"github.com/stonedb/stonedb/storage/heap"
	"github.com/stonedb/stonedb/types"
)

// Limit stops pulling from its child once Count tuples have been emitted
// (spec.md §4.6.9). No BusTub executor cpp file covers this operator; the
// counting Next loop follows the same child-driven shape every other
// executor in this package uses.
type Limit struct {
	child   Executor
	count   int
	emitted int
}

func NewLimit(child Executor, count int) *Limit {
	return &Limit{child: child, count: count}
}

func (e *Limit) Init() error {
	e.emitted = 0
	return e.child.Init()
}

func (e *Limit) OutputSchema() *types.Schema { return e.child.OutputSchema() }

func (e *Limit) Next() (heap.Tuple, heap.RID, bool, error) {
	if e.emitted >= e.count {
		return heap.Tuple{}, heap.RID{}, false, nil
	}
	tuple, rid, ok, err := e.child.Next()
	if err != nil || !ok {
		return heap.Tuple{}, heap.RID{}, false, err
	}
	e.emitted++
	return tuple, rid, true, nil
}
