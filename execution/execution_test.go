package execution

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stonedb/stonedb/catalog"
	"github.com/stonedb/stonedb/internal/diskio"
	"github.com/stonedb/stonedb/storage/bufferpool"
	"github.com/stonedb/stonedb/storage/heap"
	"github.com/stonedb/stonedb/storage/index/hash"
	"github.com/stonedb/stonedb/txn"
	"github.com/stonedb/stonedb/types"
)

func newExecCtx(t *testing.T) *Context {
	t.Helper()
	return &Context{Catalog: catalog.New(), Transaction: txn.New(1, txn.ReadCommitted)}
}

func newPool(t *testing.T) *bufferpool.Pool {
	t.Helper()
	return bufferpool.New(32, diskio.NewMemoryDiskManager())
}

// seedTable creates a table named name with schema and inserts rows, each
// encoded through schema, returning its TableInfo.
func seedTable(t *testing.T, ctx *Context, name string, schema *types.Schema, rows [][]types.Value) *catalog.TableInfo {
	t.Helper()
	th, err := heap.New(newPool(t))
	require.NoError(t, err)
	info, err := ctx.Catalog.CreateTable(name, schema, th)
	require.NoError(t, err)
	for _, row := range rows {
		_, err := th.InsertTuple(schema.Encode(row))
		require.NoError(t, err)
	}
	return info
}

func personSchema() *types.Schema {
	return types.NewSchema(
		types.Column{Name: "id", Type: types.Integer},
		types.Column{Name: "name", Type: types.Varchar},
		types.Column{Name: "age", Type: types.Integer},
	)
}

func TestSeqScanAll(t *testing.T) {
	ctx := newExecCtx(t)
	schema := personSchema()
	seedTable(t, ctx, "people", schema, [][]types.Value{
		{types.NewInteger(1), types.NewVarchar("alice"), types.NewInteger(30)},
		{types.NewInteger(2), types.NewVarchar("bob"), types.NewInteger(25)},
	})

	scan := NewSeqScan(ctx, "people", nil)
	require.NoError(t, scan.Init())

	var got []int64
	for {
		tuple, _, ok, err := scan.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, schema.GetValue(tuple.Data, 0).AsInteger())
	}
	require.ElementsMatch(t, []int64{1, 2}, got)
}

func TestSeqScanWithPredicate(t *testing.T) {
	ctx := newExecCtx(t)
	schema := personSchema()
	seedTable(t, ctx, "people", schema, [][]types.Value{
		{types.NewInteger(1), types.NewVarchar("alice"), types.NewInteger(30)},
		{types.NewInteger(2), types.NewVarchar("bob"), types.NewInteger(25)},
	})

	pred := &types.ComparisonExpr{
		Op:    types.OpGreaterThan,
		Left:  &types.ColumnExpr{Idx: 2},
		Right: &types.ConstantExpr{Value: types.NewInteger(26)},
	}
	scan := NewSeqScan(ctx, "people", pred)
	require.NoError(t, scan.Init())

	tuple, _, ok, err := scan.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "alice", schema.GetValue(tuple.Data, 1).AsVarchar())

	_, _, ok, err = scan.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInsertRawAndIndexMaintained(t *testing.T) {
	ctx := newExecCtx(t)
	schema := personSchema()
	th, err := heap.New(newPool(t))
	require.NoError(t, err)
	info, err := ctx.Catalog.CreateTable("people", schema, th)
	require.NoError(t, err)

	idx, err := hash.New[string, heap.RID](newPool(t), hash.FixedStringCodec(catalog.IndexKeyWidth), hash.RIDCodec(), hash.BytesHash(hash.FixedStringCodec(catalog.IndexKeyWidth)))
	require.NoError(t, err)
	ctx.Catalog.CreateIndex("people_pk", "people", []int{0}, idx)

	ins := NewInsertRaw(ctx, "people", [][]types.Value{
		{types.NewInteger(1), types.NewVarchar("alice"), types.NewInteger(30)},
	})
	require.NoError(t, ins.Init())
	_, _, ok, err := ins.Next()
	require.NoError(t, err)
	require.False(t, ok)

	scan := NewSeqScan(ctx, "people", nil)
	require.NoError(t, scan.Init())
	tuple, _, ok, err := scan.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), schema.GetValue(tuple.Data, 0).AsInteger())

	key := info.Schema.GetValue(tuple.Data, 0).Encode()
	rids, err := idx.GetValue(string(key))
	require.NoError(t, err)
	require.Len(t, rids, 1)
}

func TestDeleteRemovesTupleAndIndexEntry(t *testing.T) {
	ctx := newExecCtx(t)
	schema := personSchema()
	th, err := heap.New(newPool(t))
	require.NoError(t, err)
	_, err = ctx.Catalog.CreateTable("people", schema, th)
	require.NoError(t, err)
	rid, err := th.InsertTuple(schema.Encode([]types.Value{types.NewInteger(1), types.NewVarchar("alice"), types.NewInteger(30)}))
	require.NoError(t, err)

	idx, err := hash.New[string, heap.RID](newPool(t), hash.FixedStringCodec(catalog.IndexKeyWidth), hash.RIDCodec(), hash.BytesHash(hash.FixedStringCodec(catalog.IndexKeyWidth)))
	require.NoError(t, err)
	ixInfo := ctx.Catalog.CreateIndex("people_pk", "people", []int{0}, idx)
	key := ixInfo.KeyFromTuple(schema, schema.Encode([]types.Value{types.NewInteger(1), types.NewVarchar("alice"), types.NewInteger(30)}))
	_, err = idx.Insert(key, rid)
	require.NoError(t, err)

	pred := &types.ComparisonExpr{
		Op:    types.OpEqual,
		Left:  &types.ColumnExpr{Idx: 0},
		Right: &types.ConstantExpr{Value: types.NewInteger(1)},
	}
	del := NewDelete(ctx, "people", NewSeqScan(ctx, "people", pred))
	require.NoError(t, del.Init())
	_, _, ok, err := del.Next()
	require.NoError(t, err)
	require.False(t, ok)

	_, found, err := th.GetTuple(rid)
	require.NoError(t, err)
	require.False(t, found)

	vals, err := idx.GetValue(key)
	require.NoError(t, err)
	require.Empty(t, vals)
}

func TestUpdateAdd(t *testing.T) {
	ctx := newExecCtx(t)
	schema := personSchema()
	seedTable(t, ctx, "people", schema, [][]types.Value{
		{types.NewInteger(1), types.NewVarchar("alice"), types.NewInteger(30)},
	})

	upd := NewUpdate(ctx, "people", map[int]UpdateAttr{
		2: {Kind: UpdateAdd, Value: types.NewInteger(1)},
	}, NewSeqScan(ctx, "people", nil))
	require.NoError(t, upd.Init())
	_, _, ok, err := upd.Next()
	require.NoError(t, err)
	require.False(t, ok)

	scan := NewSeqScan(ctx, "people", nil)
	require.NoError(t, scan.Init())
	tuple, _, ok, err := scan.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(31), schema.GetValue(tuple.Data, 2).AsInteger())
}

func TestDistinctSuppressesDuplicates(t *testing.T) {
	ctx := newExecCtx(t)
	schema := types.NewSchema(types.Column{Name: "n", Type: types.Integer})
	seedTable(t, ctx, "nums", schema, [][]types.Value{
		{types.NewInteger(1)}, {types.NewInteger(1)}, {types.NewInteger(2)},
	})

	dist := NewDistinct(NewSeqScan(ctx, "nums", nil))
	require.NoError(t, dist.Init())
	var got []int64
	for {
		tuple, _, ok, err := dist.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, schema.GetValue(tuple.Data, 0).AsInteger())
	}
	require.ElementsMatch(t, []int64{1, 2}, got)
}

func TestLimitStopsAtCount(t *testing.T) {
	ctx := newExecCtx(t)
	schema := types.NewSchema(types.Column{Name: "n", Type: types.Integer})
	seedTable(t, ctx, "nums", schema, [][]types.Value{
		{types.NewInteger(1)}, {types.NewInteger(2)}, {types.NewInteger(3)},
	})

	lim := NewLimit(NewSeqScan(ctx, "nums", nil), 2)
	require.NoError(t, lim.Init())
	count := 0
	for {
		_, _, ok, err := lim.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	require.Equal(t, 2, count)
}

func TestNestedLoopJoin(t *testing.T) {
	ctx := newExecCtx(t)
	leftSchema := types.NewSchema(types.Column{Name: "id", Type: types.Integer})
	rightSchema := types.NewSchema(types.Column{Name: "ref", Type: types.Integer}, types.Column{Name: "val", Type: types.Varchar})
	seedTable(t, ctx, "left", leftSchema, [][]types.Value{{types.NewInteger(1)}, {types.NewInteger(2)}})
	seedTable(t, ctx, "right", rightSchema, [][]types.Value{
		{types.NewInteger(1), types.NewVarchar("one")},
		{types.NewInteger(3), types.NewVarchar("three")},
	})

	outSchema := types.NewSchema(types.Column{Name: "id", Type: types.Integer}, types.Column{Name: "val", Type: types.Varchar})
	predicate := &types.ComparisonExpr{
		Op:    types.OpEqual,
		Left:  &types.ColumnExpr{Side: types.LeftSide, Idx: 0},
		Right: &types.ColumnExpr{Side: types.RightSide, Idx: 0},
	}
	projection := []types.Expression{
		&types.ColumnExpr{Side: types.LeftSide, Idx: 0},
		&types.ColumnExpr{Side: types.RightSide, Idx: 1},
	}
	join := NewNestedLoopJoin(NewSeqScan(ctx, "left", nil), NewSeqScan(ctx, "right", nil), predicate, outSchema, projection)
	require.NoError(t, join.Init())

	tuple, _, ok, err := join.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), outSchema.GetValue(tuple.Data, 0).AsInteger())
	require.Equal(t, "one", outSchema.GetValue(tuple.Data, 1).AsVarchar())

	_, _, ok, err = join.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashJoin(t *testing.T) {
	ctx := newExecCtx(t)
	leftSchema := types.NewSchema(types.Column{Name: "id", Type: types.Integer})
	rightSchema := types.NewSchema(types.Column{Name: "ref", Type: types.Integer}, types.Column{Name: "val", Type: types.Varchar})
	seedTable(t, ctx, "left", leftSchema, [][]types.Value{{types.NewInteger(1)}, {types.NewInteger(2)}})
	seedTable(t, ctx, "right", rightSchema, [][]types.Value{
		{types.NewInteger(1), types.NewVarchar("one")},
		{types.NewInteger(2), types.NewVarchar("two")},
		{types.NewInteger(9), types.NewVarchar("nope")},
	})

	outSchema := types.NewSchema(types.Column{Name: "id", Type: types.Integer}, types.Column{Name: "val", Type: types.Varchar})
	leftKey := &types.ColumnExpr{Side: types.LeftSide, Idx: 0}
	rightKey := &types.ColumnExpr{Side: types.RightSide, Idx: 0}
	projection := []types.Expression{
		&types.ColumnExpr{Side: types.LeftSide, Idx: 0},
		&types.ColumnExpr{Side: types.RightSide, Idx: 1},
	}
	join := NewHashJoin(NewSeqScan(ctx, "left", nil), NewSeqScan(ctx, "right", nil), leftKey, rightKey, outSchema, projection)
	require.NoError(t, join.Init())

	var got []string
	for {
		tuple, _, ok, err := join.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, outSchema.GetValue(tuple.Data, 1).AsVarchar())
	}
	require.ElementsMatch(t, []string{"one", "two"}, got)
}

func TestAggregationSumGroupBy(t *testing.T) {
	ctx := newExecCtx(t)
	schema := types.NewSchema(types.Column{Name: "dept", Type: types.Varchar}, types.Column{Name: "salary", Type: types.Integer})
	seedTable(t, ctx, "salaries", schema, [][]types.Value{
		{types.NewVarchar("eng"), types.NewInteger(100)},
		{types.NewVarchar("eng"), types.NewInteger(200)},
		{types.NewVarchar("sales"), types.NewInteger(50)},
	})

	outSchema := types.NewSchema(types.Column{Name: "dept", Type: types.Varchar}, types.Column{Name: "total", Type: types.Integer})
	agg := NewAggregation(
		NewSeqScan(ctx, "salaries", nil),
		[]types.Expression{&types.ColumnExpr{Idx: 0}},
		[]AggregateTerm{{Op: types.Sum, Expr: &types.ColumnExpr{Idx: 1}}},
		nil,
		outSchema,
		[]types.Expression{
			&types.AggregateTermExpr{IsGroupBy: true, Idx: 0},
			&types.AggregateTermExpr{IsGroupBy: false, Idx: 0},
		},
	)
	require.NoError(t, agg.Init())

	totals := map[string]int64{}
	for {
		tuple, _, ok, err := agg.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		totals[outSchema.GetValue(tuple.Data, 0).AsVarchar()] = outSchema.GetValue(tuple.Data, 1).AsInteger()
	}
	require.Equal(t, int64(300), totals["eng"])
	require.Equal(t, int64(50), totals["sales"])
}

func TestAggregationHavingFilters(t *testing.T) {
	ctx := newExecCtx(t)
	schema := types.NewSchema(types.Column{Name: "dept", Type: types.Varchar}, types.Column{Name: "salary", Type: types.Integer})
	seedTable(t, ctx, "salaries", schema, [][]types.Value{
		{types.NewVarchar("eng"), types.NewInteger(100)},
		{types.NewVarchar("eng"), types.NewInteger(200)},
		{types.NewVarchar("sales"), types.NewInteger(50)},
	})

	outSchema := types.NewSchema(types.Column{Name: "dept", Type: types.Varchar}, types.Column{Name: "total", Type: types.Integer})
	having := &types.ComparisonExpr{
		Op:    types.OpGreaterThan,
		Left:  &types.AggregateTermExpr{IsGroupBy: false, Idx: 0},
		Right: &types.ConstantExpr{Value: types.NewInteger(100)},
	}
	agg := NewAggregation(
		NewSeqScan(ctx, "salaries", nil),
		[]types.Expression{&types.ColumnExpr{Idx: 0}},
		[]AggregateTerm{{Op: types.Sum, Expr: &types.ColumnExpr{Idx: 1}}},
		having,
		outSchema,
		[]types.Expression{
			&types.AggregateTermExpr{IsGroupBy: true, Idx: 0},
			&types.AggregateTermExpr{IsGroupBy: false, Idx: 0},
		},
	)
	require.NoError(t, agg.Init())

	var depts []string
	for {
		tuple, _, ok, err := agg.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		depts = append(depts, outSchema.GetValue(tuple.Data, 0).AsVarchar())
	}
	require.Equal(t, []string{"eng"}, depts)
}
