package execution

import (
	"github.com/stonedb/stonedb/catalog"
	"github.com/stonedb/stonedb/internal/xerrors"
	"github.com/stonedb/stonedb/storage/heap"
	"github.com/stonedb/stonedb/types"
)

// Delete marks every tuple its child produces as deleted and removes the
// matching entry from each secondary index (spec.md §4.6.3), grounded on
// _examples/original_source/src/execution/delete_executor.cpp.
type Delete struct {
	ctx       *Context
	tableName string
	child     Executor

	tableInfo *catalog.TableInfo
	indexes   []*catalog.IndexInfo
	done      bool
}

func NewDelete(ctx *Context, tableName string, child Executor) *Delete {
	return &Delete{ctx: ctx, tableName: tableName, child: child}
}

func (e *Delete) Init() error {
	info, ok := e.ctx.Catalog.GetTableByName(e.tableName)
	if !ok {
		return xerrorsTableNotFound(e.tableName)
	}
	e.tableInfo = info
	e.indexes = e.ctx.Catalog.GetTableIndexes(e.tableName)
	return e.child.Init()
}

func (e *Delete) OutputSchema() *types.Schema { return nil }

func (e *Delete) Next() (heap.Tuple, heap.RID, bool, error) {
	if e.done {
		return heap.Tuple{}, heap.RID{}, false, nil
	}
	e.done = true

	for {
		tuple, rid, ok, err := e.child.Next()
		if err != nil {
			return heap.Tuple{}, heap.RID{}, false, err
		}
		if !ok {
			break
		}
		if err := e.tableInfo.Table.MarkDelete(rid); err != nil {
			return heap.Tuple{}, heap.RID{}, false, xerrors.Wrap("execution.Delete", xerrors.ErrTupleDeleteFailed)
		}
		for _, ix := range e.indexes {
			key := ix.KeyFromTuple(e.tableInfo.Schema, tuple.Data)
			if _, err := ix.Index.Remove(key, rid); err != nil {
				return heap.Tuple{}, heap.RID{}, false, xerrors.Wrap("execution.Delete", err)
			}
		}
	}
	return heap.Tuple{}, heap.RID{}, false, nil
}
