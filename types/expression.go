package types

// Expression is the scalar/join/aggregate evaluator every executor's
// predicate and output projection runs through (spec.md §4.6 "Expression
// evaluator (consumed)"), generalized from the teacher's sqlparser AST
// expression interface down to the three evaluation contexts BusTub's
// executors actually call: a single tuple, a pair of join-side tuples, and
// an aggregation's (group-bys, aggregates) result row.
type Expression interface {
	// Evaluate reads a value out of one tuple, e.g. a SeqScan predicate or
	// an Insert/Update literal.
	Evaluate(tuple []byte, schema *Schema) Value
	// EvaluateJoin reads a value that may reference either side of a join;
	// either tuple/schema pair may be nil for an expression that only
	// touches the other side.
	EvaluateJoin(left []byte, leftSchema *Schema, right []byte, rightSchema *Schema) Value
	// EvaluateAggregate projects an aggregation's output row from its
	// group-by values and computed aggregate values.
	EvaluateAggregate(groupBys []Value, aggregates []Value) Value
}

// ConstantExpr always evaluates to the same literal value.
type ConstantExpr struct{ Value Value }

func (e *ConstantExpr) Evaluate([]byte, *Schema) Value { return e.Value }
func (e *ConstantExpr) EvaluateJoin([]byte, *Schema, []byte, *Schema) Value { return e.Value }
func (e *ConstantExpr) EvaluateAggregate([]Value, []Value) Value { return e.Value }

// ColumnExpr reads one column out of a tuple. Side selects which tuple a
// join evaluation pulls from.
type ColumnExpr struct {
	Side JoinSide
	Idx  int
}

type JoinSide int

const (
	LeftSide JoinSide = iota
	RightSide
)

func (e *ColumnExpr) Evaluate(tuple []byte, schema *Schema) Value {
	return schema.GetValue(tuple, e.Idx)
}

func (e *ColumnExpr) EvaluateJoin(left []byte, leftSchema *Schema, right []byte, rightSchema *Schema) Value {
	if e.Side == LeftSide {
		return leftSchema.GetValue(left, e.Idx)
	}
	return rightSchema.GetValue(right, e.Idx)
}

// EvaluateAggregate is unused for a plain ColumnExpr: aggregation output
// projection goes through AggregateTermExpr instead.
func (e *ColumnExpr) EvaluateAggregate([]Value, []Value) Value {
	panic("types: ColumnExpr cannot be evaluated in an aggregate context")
}

// AggregateTermExpr projects either a group-by column or a computed
// aggregate into an aggregation executor's output row (spec.md §4.6.7).
type AggregateTermExpr struct {
	IsGroupBy bool
	Idx       int
}

func (e *AggregateTermExpr) Evaluate([]byte, *Schema) Value {
	panic("types: AggregateTermExpr only evaluates in an aggregate context")
}
func (e *AggregateTermExpr) EvaluateJoin([]byte, *Schema, []byte, *Schema) Value {
	panic("types: AggregateTermExpr only evaluates in an aggregate context")
}
func (e *AggregateTermExpr) EvaluateAggregate(groupBys []Value, aggregates []Value) Value {
	if e.IsGroupBy {
		return groupBys[e.Idx]
	}
	return aggregates[e.Idx]
}

// CompareOp is a ComparisonExpr's operator, trimmed from the teacher's
// full CompareType string set to the ones a boolean predicate needs.
type CompareOp int

const (
	OpEqual CompareOp = iota
	OpNotEqual
	OpLessThan
	OpLessEqual
	OpGreaterThan
	OpGreaterEqual
)

// ComparisonExpr evaluates Left `Op` Right into a Boolean value, the
// building block of every SeqScan/join predicate.
type ComparisonExpr struct {
	Op          CompareOp
	Left, Right Expression
}

func (e *ComparisonExpr) compare(l, r Value) Value {
	if l.IsNull() || r.IsNull() {
		// A comparison with a NULL operand is unknown, which a predicate
		// treats as not satisfied.
		return NewBoolean(false)
	}
	c := l.Compare(r)
	var res bool
	switch e.Op {
	case OpEqual:
		res = c == 0
	case OpNotEqual:
		res = c != 0
	case OpLessThan:
		res = c < 0
	case OpLessEqual:
		res = c <= 0
	case OpGreaterThan:
		res = c > 0
	case OpGreaterEqual:
		res = c >= 0
	}
	return NewBoolean(res)
}

func (e *ComparisonExpr) Evaluate(tuple []byte, schema *Schema) Value {
	return e.compare(e.Left.Evaluate(tuple, schema), e.Right.Evaluate(tuple, schema))
}

func (e *ComparisonExpr) EvaluateJoin(left []byte, leftSchema *Schema, right []byte, rightSchema *Schema) Value {
	return e.compare(
		e.Left.EvaluateJoin(left, leftSchema, right, rightSchema),
		e.Right.EvaluateJoin(left, leftSchema, right, rightSchema),
	)
}

func (e *ComparisonExpr) EvaluateAggregate(groupBys []Value, aggregates []Value) Value {
	return e.compare(
		e.Left.EvaluateAggregate(groupBys, aggregates),
		e.Right.EvaluateAggregate(groupBys, aggregates),
	)
}

// LogicOp is a LogicExpr's boolean connective.
type LogicOp int

const (
	OpAnd LogicOp = iota
	OpOr
)

// LogicExpr combines two boolean sub-expressions, letting predicates chain
// multiple comparisons (e.g. a join predicate plus a filter).
type LogicExpr struct {
	Op          LogicOp
	Left, Right Expression
}

func (e *LogicExpr) combine(l, r Value) Value {
	switch e.Op {
	case OpAnd:
		return NewBoolean(l.AsBoolean() && r.AsBoolean())
	default:
		return NewBoolean(l.AsBoolean() || r.AsBoolean())
	}
}

func (e *LogicExpr) Evaluate(tuple []byte, schema *Schema) Value {
	return e.combine(e.Left.Evaluate(tuple, schema), e.Right.Evaluate(tuple, schema))
}

func (e *LogicExpr) EvaluateJoin(left []byte, leftSchema *Schema, right []byte, rightSchema *Schema) Value {
	return e.combine(
		e.Left.EvaluateJoin(left, leftSchema, right, rightSchema),
		e.Right.EvaluateJoin(left, leftSchema, right, rightSchema),
	)
}

func (e *LogicExpr) EvaluateAggregate(groupBys []Value, aggregates []Value) Value {
	return e.combine(
		e.Left.EvaluateAggregate(groupBys, aggregates),
		e.Right.EvaluateAggregate(groupBys, aggregates),
	)
}
