package execution

import (
	"github.com/stonedb/stonedb/storage/heap"
	"github.com/stonedb/stonedb/types"
)

// HashJoin builds an in-memory hash table over the left child keyed by
// LeftKey, then probes it once per right row with RightKey (spec.md
// §4.6.6), grounded on
// _examples/original_source/src/execution/hash_join_executor.cpp. Unlike
// BusTub's SimpleHashJoinHashTable (one value per key), this keeps every
// matching left row so a non-unique join key still returns every match.
type HashJoin struct {
	left, right        Executor
	leftKey, rightKey  types.Expression
	output             *types.Schema
	projection         []types.Expression

	table map[string][]heap.Tuple

	rightTuple   heap.Tuple
	rightOk      bool
	matches      []heap.Tuple
	matchIdx     int
	needsMatches bool
}

func NewHashJoin(left, right Executor, leftKey, rightKey types.Expression, output *types.Schema, projection []types.Expression) *HashJoin {
	return &HashJoin{left: left, right: right, leftKey: leftKey, rightKey: rightKey, output: output, projection: projection}
}

func (e *HashJoin) Init() error {
	if err := e.left.Init(); err != nil {
		return err
	}
	e.table = make(map[string][]heap.Tuple)
	for {
		tuple, _, ok, err := e.left.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		keyVal := e.leftKey.EvaluateJoin(tuple.Data, e.left.OutputSchema(), nil, nil)
		if keyVal.IsNull() {
			// A null key never matches (spec.md §4.6.6); never index it.
			continue
		}
		key := string(keyVal.Encode())
		e.table[key] = append(e.table[key], tuple)
	}

	if err := e.right.Init(); err != nil {
		return err
	}
	var err error
	e.rightTuple, _, e.rightOk, err = e.right.Next()
	e.needsMatches = true
	return err
}

func (e *HashJoin) OutputSchema() *types.Schema { return e.output }

func (e *HashJoin) Next() (heap.Tuple, heap.RID, bool, error) {
	for e.rightOk {
		if e.needsMatches {
			rightKeyVal := e.rightKey.EvaluateJoin(nil, nil, e.rightTuple.Data, e.right.OutputSchema())
			if rightKeyVal.IsNull() {
				// A null key never matches (spec.md §4.6.6).
				e.matches = nil
			} else {
				e.matches = e.table[string(rightKeyVal.Encode())]
			}
			e.matchIdx = 0
			e.needsMatches = false
		}

		if e.matchIdx < len(e.matches) {
			left := e.matches[e.matchIdx]
			e.matchIdx++
			return e.generateJoinTuple(left, e.rightTuple), heap.RID{}, true, nil
		}

		var err error
		e.rightTuple, _, e.rightOk, err = e.right.Next()
		if err != nil {
			return heap.Tuple{}, heap.RID{}, false, err
		}
		e.needsMatches = true
	}
	return heap.Tuple{}, heap.RID{}, false, nil
}

func (e *HashJoin) generateJoinTuple(left, right heap.Tuple) heap.Tuple {
	values := make([]types.Value, len(e.projection))
	for i, expr := range e.projection {
		values[i] = expr.EvaluateJoin(left.Data, e.left.OutputSchema(), right.Data, e.right.OutputSchema())
	}
	return heap.Tuple{Data: e.output.Encode(values)}
}
