// Package execution implements the pull-model (Volcano) executor
// framework and physical executors spec.md §4.6 describes, generalized
// from the teacher's engine.Iterator/engine.Executor split
// (server/innodb/engine/executor.go) and engine.BaseExecutor, with each
// operator's exact control flow ported from
// _examples/original_source/src/execution/*.cpp.
package execution

import (
	"github.com/stonedb/stonedb/catalog"
	"github.com/stonedb/stonedb/storage/heap"
	"github.com/stonedb/stonedb/txn"
	"github.com/stonedb/stonedb/types"
)

// Context is the per-query collaborator bundle every executor receives,
// the generalized equivalent of BusTub's ExecutorContext.
type Context struct {
	Catalog     *catalog.Catalog
	Transaction *txn.Transaction
}

// Executor is the pull-model iterator contract (spec.md §4.6): Init readies
// the operator, Next pulls one row at a time until ok is false. This
// mirrors BusTub's Next(Tuple*, RID*) bool in Go idiom — return values
// instead of out-parameters, matching storage/heap.Iterator's own Next
// signature rather than the teacher's separate Next()/GetRow() split.
type Executor interface {
	Init() error
	Next() (tuple heap.Tuple, rid heap.RID, ok bool, err error)
	OutputSchema() *types.Schema
}
