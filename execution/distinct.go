package execution

import (
	"github.com/stonedb/stonedb/storage/heap"
	"github.com/stonedb/stonedb/types"
)

// Distinct suppresses duplicate rows from its child, keyed by the whole
// tuple (spec.md §4.6.8), grounded on
// _examples/original_source/src/execution/distinct_executor.cpp.
type Distinct struct {
	child Executor
	seen  map[string]struct{}
}

func NewDistinct(child Executor) *Distinct {
	return &Distinct{child: child}
}

func (e *Distinct) Init() error {
	e.seen = make(map[string]struct{})
	return e.child.Init()
}

func (e *Distinct) OutputSchema() *types.Schema { return e.child.OutputSchema() }

func (e *Distinct) Next() (heap.Tuple, heap.RID, bool, error) {
	for {
		tuple, rid, ok, err := e.child.Next()
		if err != nil {
			return heap.Tuple{}, heap.RID{}, false, err
		}
		if !ok {
			return heap.Tuple{}, heap.RID{}, false, nil
		}
		key := string(tuple.Data)
		if _, dup := e.seen[key]; dup {
			continue
		}
		e.seen[key] = struct{}{}
		return tuple, rid, true, nil
	}
}
