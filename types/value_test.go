package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueCompare(t *testing.T) {
	require.Equal(t, 0, NewInteger(5).Compare(NewInteger(5)))
	require.Equal(t, -1, NewInteger(3).Compare(NewInteger(5)))
	require.Equal(t, 1, NewInteger(5).Compare(NewInteger(3)))
	require.Equal(t, -1, NewNull().Compare(NewInteger(0)))
	require.Equal(t, 1, NewInteger(0).Compare(NewNull()))
	require.Equal(t, 0, NewNull().Compare(NewNull()))
}

func TestValueAdd(t *testing.T) {
	require.Equal(t, NewInteger(12), NewInteger(7).Add(NewInteger(5)))
}

func TestValueEncodeDistinguishesKind(t *testing.T) {
	require.NotEqual(t, NewInteger(0).Encode(), NewNull().Encode())
	require.NotEqual(t, NewInteger(0).Encode(), NewBoolean(false).Encode())
}

func TestSchemaEncodeDecodeRoundTrip(t *testing.T) {
	schema := NewSchema(
		Column{Name: "id", Type: Integer},
		Column{Name: "name", Type: Varchar},
		Column{Name: "active", Type: Boolean},
	)
	values := []Value{NewInteger(42), NewVarchar("alice"), NewBoolean(true)}
	data := schema.Encode(values)
	decoded := schema.Decode(data)
	require.Equal(t, values, decoded)
}

func TestSchemaEncodeDecodeNulls(t *testing.T) {
	schema := NewSchema(
		Column{Name: "id", Type: Integer},
		Column{Name: "name", Type: Varchar},
	)
	values := []Value{NewInteger(1), NewNull()}
	data := schema.Encode(values)
	decoded := schema.Decode(data)
	require.True(t, decoded[1].IsNull())
	require.Equal(t, int64(1), decoded[0].AsInteger())
}

func TestComparisonExpr(t *testing.T) {
	schema := NewSchema(Column{Name: "id", Type: Integer})
	tuple := schema.Encode([]Value{NewInteger(10)})

	expr := &ComparisonExpr{
		Op:    OpGreaterThan,
		Left:  &ColumnExpr{Idx: 0},
		Right: &ConstantExpr{Value: NewInteger(5)},
	}
	require.True(t, expr.Evaluate(tuple, schema).AsBoolean())

	expr.Right = &ConstantExpr{Value: NewInteger(50)}
	require.False(t, expr.Evaluate(tuple, schema).AsBoolean())
}

func TestAggregateCombineSum(t *testing.T) {
	running := Initial(Sum)
	running = Combine(Sum, running, NewInteger(3))
	running = Combine(Sum, running, NewInteger(4))
	require.Equal(t, int64(7), running.AsInteger())
}

func TestAggregateCombineMinMax(t *testing.T) {
	min := Initial(Min)
	for _, v := range []int64{5, 2, 9} {
		min = Combine(Min, min, NewInteger(v))
	}
	require.Equal(t, int64(2), min.AsInteger())

	max := Initial(Max)
	for _, v := range []int64{5, 2, 9} {
		max = Combine(Max, max, NewInteger(v))
	}
	require.Equal(t, int64(9), max.AsInteger())
}

func TestAggregateCombineCountStar(t *testing.T) {
	count := Initial(CountStar)
	count = Combine(CountStar, count, NewNull())
	count = Combine(CountStar, count, NewInteger(1))
	require.Equal(t, int64(2), count.AsInteger())
}
