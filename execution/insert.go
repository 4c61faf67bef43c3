package execution

import (
	"github.com/stonedb/stonedb/catalog"
	"github.com/stonedb/stonedb/internal/xerrors"
	"github.com/stonedb/stonedb/storage/heap"
	"github.com/stonedb/stonedb/types"
)

// Insert writes either a fixed set of raw rows or every row its child
// produces into a table, maintaining every secondary index as it goes
// (spec.md §4.6.2), grounded on
// _examples/original_source/src/execution/insert_executor.cpp.
type Insert struct {
	ctx       *Context
	tableName string
	rawValues [][]types.Value // non-nil for a VALUES-style insert
	child     Executor         // non-nil for an INSERT ... SELECT

	tableInfo *catalog.TableInfo
	indexes   []*catalog.IndexInfo
	done      bool
}

func NewInsertRaw(ctx *Context, tableName string, rows [][]types.Value) *Insert {
	return &Insert{ctx: ctx, tableName: tableName, rawValues: rows}
}

func NewInsertFromChild(ctx *Context, tableName string, child Executor) *Insert {
	return &Insert{ctx: ctx, tableName: tableName, child: child}
}

func (e *Insert) Init() error {
	info, ok := e.ctx.Catalog.GetTableByName(e.tableName)
	if !ok {
		return xerrorsTableNotFound(e.tableName)
	}
	e.tableInfo = info
	e.indexes = e.ctx.Catalog.GetTableIndexes(e.tableName)
	if e.child != nil {
		if err := e.child.Init(); err != nil {
			return err
		}
	}
	return nil
}

// OutputSchema is empty: like BusTub's InsertExecutor, Insert produces no
// result rows, only side effects.
func (e *Insert) OutputSchema() *types.Schema { return nil }

// Next drives every row to completion on its first call and always
// reports done, matching the teacher's "materialize everything, return
// false" Next contract for DML executors.
func (e *Insert) Next() (heap.Tuple, heap.RID, bool, error) {
	if e.done {
		return heap.Tuple{}, heap.RID{}, false, nil
	}
	e.done = true

	if e.rawValues != nil {
		for _, row := range e.rawValues {
			data := e.tableInfo.Schema.Encode(row)
			if err := e.insertTuple(data); err != nil {
				return heap.Tuple{}, heap.RID{}, false, err
			}
		}
		return heap.Tuple{}, heap.RID{}, false, nil
	}

	for {
		tuple, _, ok, err := e.child.Next()
		if err != nil {
			return heap.Tuple{}, heap.RID{}, false, err
		}
		if !ok {
			break
		}
		if err := e.insertTuple(tuple.Data); err != nil {
			return heap.Tuple{}, heap.RID{}, false, err
		}
	}
	return heap.Tuple{}, heap.RID{}, false, nil
}

func (e *Insert) insertTuple(data []byte) error {
	rid, err := e.tableInfo.Table.InsertTuple(data)
	if err != nil {
		return xerrors.Wrap("execution.Insert", xerrors.ErrTupleInsertFailed)
	}
	for _, ix := range e.indexes {
		key := ix.KeyFromTuple(e.tableInfo.Schema, data)
		if _, err := ix.Index.Insert(key, rid); err != nil {
			return xerrors.Wrap("execution.Insert", err)
		}
	}
	return nil
}
