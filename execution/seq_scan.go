package execution

import (
	"github.com/stonedb/stonedb/catalog"
	"github.com/stonedb/stonedb/storage/heap"
	"github.com/stonedb/stonedb/types"
)

// SeqScan walks a table heap front to back, filtering through an optional
// predicate (spec.md §4.6.1), grounded on
// _examples/original_source/src/execution/seq_scan_executor.cpp.
type SeqScan struct {
	ctx       *Context
	tableName string
	predicate types.Expression

	tableInfo *catalog.TableInfo
	iter      *heap.Iterator
}

func NewSeqScan(ctx *Context, tableName string, predicate types.Expression) *SeqScan {
	return &SeqScan{ctx: ctx, tableName: tableName, predicate: predicate}
}

func (e *SeqScan) Init() error {
	info, ok := e.ctx.Catalog.GetTableByName(e.tableName)
	if !ok {
		return xerrorsTableNotFound(e.tableName)
	}
	e.tableInfo = info
	e.iter = info.Table.Iterator()
	return nil
}

func (e *SeqScan) OutputSchema() *types.Schema { return e.tableInfo.Schema }

func (e *SeqScan) Next() (heap.Tuple, heap.RID, bool, error) {
	for {
		tuple, rid, ok, err := e.iter.Next()
		if err != nil {
			return heap.Tuple{}, heap.RID{}, false, err
		}
		if !ok {
			return heap.Tuple{}, heap.RID{}, false, nil
		}
		if e.predicate == nil {
			return tuple, rid, true, nil
		}
		if e.predicate.Evaluate(tuple.Data, e.tableInfo.Schema).AsBoolean() {
			return tuple, rid, true, nil
		}
	}
}
