package execution

import (
	"github.com/stonedb/stonedb/internal/xerrors"
	"github.com/stonedb/stonedb/storage/heap"
	"github.com/stonedb/stonedb/types"
)

// NestedLoopJoin pairs every left row with every matching right row under
// Predicate (spec.md §4.6.5), grounded on
// _examples/original_source/src/execution/nested_loop_join_executor.cpp:
// the right child is rewound and replayed once per left row.
type NestedLoopJoin struct {
	left, right Executor
	predicate   types.Expression
	output      *types.Schema
	projection  []types.Expression

	leftTuple heap.Tuple
	leftOk    bool
}

// NewNestedLoopJoin builds a join whose output row is produced by
// evaluating each projection expression against the matched (left,right)
// pair, mirroring the teacher's per-output-column EvaluateJoin loop.
func NewNestedLoopJoin(left, right Executor, predicate types.Expression, output *types.Schema, projection []types.Expression) *NestedLoopJoin {
	return &NestedLoopJoin{left: left, right: right, predicate: predicate, output: output, projection: projection}
}

func (e *NestedLoopJoin) Init() error {
	if e.predicate == nil {
		return xerrors.Wrap("execution.NestedLoopJoin", xerrors.ErrNullPredicate)
	}
	if err := e.left.Init(); err != nil {
		return err
	}
	var err error
	e.leftTuple, _, e.leftOk, err = e.left.Next()
	if err != nil {
		return err
	}
	return e.right.Init()
}

func (e *NestedLoopJoin) OutputSchema() *types.Schema { return e.output }

func (e *NestedLoopJoin) Next() (heap.Tuple, heap.RID, bool, error) {
	for e.leftOk {
		for {
			rightTuple, _, ok, err := e.right.Next()
			if err != nil {
				return heap.Tuple{}, heap.RID{}, false, err
			}
			if !ok {
				break
			}
			match := e.predicate.EvaluateJoin(e.leftTuple.Data, e.left.OutputSchema(), rightTuple.Data, e.right.OutputSchema())
			if match.AsBoolean() {
				out := e.generateJoinTuple(e.leftTuple, rightTuple)
				return out, heap.RID{}, true, nil
			}
		}
		if err := e.right.Init(); err != nil {
			return heap.Tuple{}, heap.RID{}, false, err
		}
		var err error
		e.leftTuple, _, e.leftOk, err = e.left.Next()
		if err != nil {
			return heap.Tuple{}, heap.RID{}, false, err
		}
	}
	return heap.Tuple{}, heap.RID{}, false, nil
}

func (e *NestedLoopJoin) generateJoinTuple(left, right heap.Tuple) heap.Tuple {
	values := make([]types.Value, len(e.projection))
	for i, expr := range e.projection {
		values[i] = expr.EvaluateJoin(left.Data, e.left.OutputSchema(), right.Data, e.right.OutputSchema())
	}
	return heap.Tuple{Data: e.output.Encode(values)}
}
