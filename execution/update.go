package execution

import (
	"github.com/stonedb/stonedb/catalog"
	"github.com/stonedb/stonedb/internal/xerrors"
	"github.com/stonedb/stonedb/storage/heap"
	"github.com/stonedb/stonedb/types"
)

// UpdateKind distinguishes a column assignment's two forms, matching
// BusTub's UpdateType (spec.md §4.6.4).
type UpdateKind int

const (
	UpdateSet UpdateKind = iota
	UpdateAdd
)

// UpdateAttr is one column's assignment: either set it to Value, or add
// Value to the column's current contents.
type UpdateAttr struct {
	Kind  UpdateKind
	Value types.Value
}

// Update rewrites every tuple its child produces by applying Attrs to
// each column index present, then refreshes every secondary index entry
// (spec.md §4.6.4), grounded on
// _examples/original_source/src/execution/update_executor.cpp.
type Update struct {
	ctx       *Context
	tableName string
	attrs     map[int]UpdateAttr
	child     Executor

	tableInfo *catalog.TableInfo
	indexes   []*catalog.IndexInfo
	done      bool
}

func NewUpdate(ctx *Context, tableName string, attrs map[int]UpdateAttr, child Executor) *Update {
	return &Update{ctx: ctx, tableName: tableName, attrs: attrs, child: child}
}

func (e *Update) Init() error {
	info, ok := e.ctx.Catalog.GetTableByName(e.tableName)
	if !ok {
		return xerrorsTableNotFound(e.tableName)
	}
	e.tableInfo = info
	e.indexes = e.ctx.Catalog.GetTableIndexes(e.tableName)
	return e.child.Init()
}

func (e *Update) OutputSchema() *types.Schema { return nil }

func (e *Update) Next() (heap.Tuple, heap.RID, bool, error) {
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
		updated := e.generateUpdatedTuple(tuple.Data)
		if err := e.tableInfo.Table.UpdateTuple(updated, rid); err != nil {
			return heap.Tuple{}, heap.RID{}, false, xerrors.Wrap("execution.Update", xerrors.ErrTupleUpdateFailed)
		}
		for _, ix := range e.indexes {
			oldKey := ix.KeyFromTuple(e.tableInfo.Schema, tuple.Data)
			newKey := ix.KeyFromTuple(e.tableInfo.Schema, updated)
			if _, err := ix.Index.Remove(oldKey, rid); err != nil {
				return heap.Tuple{}, heap.RID{}, false, xerrors.Wrap("execution.Update", err)
			}
			if _, err := ix.Index.Insert(newKey, rid); err != nil {
				return heap.Tuple{}, heap.RID{}, false, xerrors.Wrap("execution.Update", err)
			}
		}
	}
	return heap.Tuple{}, heap.RID{}, false, nil
}

func (e *Update) generateUpdatedTuple(src []byte) []byte {
	schema := e.tableInfo.Schema
	values := schema.Decode(src)
	for idx, attr := range e.attrs {
		switch attr.Kind {
		case UpdateAdd:
			values[idx] = values[idx].Add(attr.Value)
		case UpdateSet:
			values[idx] = attr.Value
		}
	}
	return schema.Encode(values)
}
