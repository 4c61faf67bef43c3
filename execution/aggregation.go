package execution

import (
	"github.com/stonedb/stonedb/storage/heap"
	"github.com/stonedb/stonedb/types"
)

// AggregateTerm is one column of the aggregation's output: either a
// group-by expression or an AggregateOp applied to an input expression.
type AggregateTerm struct {
	Op   types.AggregateOp
	Expr types.Expression // nil for CountStar
}

// Aggregation groups its child's rows by GroupBys, folding each group's
// rows through Aggregates, then projects Having/output over the finished
// (group-bys, aggregates) pair (spec.md §4.6.7), grounded on
// _examples/original_source/src/execution/aggregation_executor.cpp: an
// in-memory hash table keyed by the encoded group-by tuple, matching
// BusTub's SimpleAggregationHashTable.
type Aggregation struct {
	child      Executor
	groupBys   []types.Expression
	aggregates []AggregateTerm
	having     types.Expression
	output     *types.Schema
	projection []types.Expression

	keys    [][]types.Value
	running map[string][]types.Value
	order   []string
	idx     int
}

func NewAggregation(child Executor, groupBys []types.Expression, aggregates []AggregateTerm, having types.Expression, output *types.Schema, projection []types.Expression) *Aggregation {
	return &Aggregation{
		child:      child,
		groupBys:   groupBys,
		aggregates: aggregates,
		having:     having,
		output:     output,
		projection: projection,
	}
}

func (e *Aggregation) Init() error {
	if err := e.child.Init(); err != nil {
		return err
	}
	e.running = make(map[string][]types.Value)
	groupValues := make(map[string][]types.Value)

	for {
		tuple, _, ok, err := e.child.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		schema := e.child.OutputSchema()

		keyVals := make([]types.Value, len(e.groupBys))
		var keyBytes []byte
		for i, g := range e.groupBys {
			keyVals[i] = g.Evaluate(tuple.Data, schema)
			keyBytes = append(keyBytes, keyVals[i].Encode()...)
		}
		key := string(keyBytes)

		running, seen := e.running[key]
		if !seen {
			running = make([]types.Value, len(e.aggregates))
			for i, agg := range e.aggregates {
				running[i] = types.Initial(agg.Op)
			}
			groupValues[key] = keyVals
			e.order = append(e.order, key)
		}
		for i, agg := range e.aggregates {
			var input types.Value
			if agg.Expr != nil {
				input = agg.Expr.Evaluate(tuple.Data, schema)
			}
			running[i] = types.Combine(agg.Op, running[i], input)
		}
		e.running[key] = running
	}

	e.keys = make([][]types.Value, len(e.order))
	for i, key := range e.order {
		e.keys[i] = groupValues[key]
	}
	return nil
}

func (e *Aggregation) OutputSchema() *types.Schema { return e.output }

func (e *Aggregation) Next() (heap.Tuple, heap.RID, bool, error) {
	for e.idx < len(e.order) {
		key := e.order[e.idx]
		groupBys := e.keys[e.idx]
		aggregates := e.running[key]
		e.idx++

		if e.having != nil && !e.having.EvaluateAggregate(groupBys, aggregates).AsBoolean() {
			continue
		}
		values := make([]types.Value, len(e.projection))
		for i, expr := range e.projection {
			values[i] = expr.EvaluateAggregate(groupBys, aggregates)
		}
		return heap.Tuple{Data: e.output.Encode(values)}, heap.RID{}, true, nil
	}
	return heap.Tuple{}, heap.RID{}, false, nil
}
