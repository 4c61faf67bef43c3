package types

import "github.com/shopspring/decimal"

// AggregateOp is one of the aggregate functions the aggregation executor
// supports (spec.md §4.6.7).
type AggregateOp int

const (
	CountStar AggregateOp = iota
	Count
	Sum
	Min
	Max
)

// Initial returns the running value an aggregate starts from before any
// input row has been combined, matching BusTub's AggregateValue default
// construction per aggregate type.
func Initial(op AggregateOp) Value {
	switch op {
	case CountStar, Count:
		return NewInteger(0)
	default:
		return NewNull()
	}
}

// Combine folds one input value into an aggregate's running value. SUM
// accumulates through shopspring/decimal internally so repeated additions
// across a long-running aggregation don't drift the way float64 would;
// the folded result is still stored back as an integer Value, matching
// the executor's integer-only column domain.
func Combine(op AggregateOp, running Value, input Value) Value {
	switch op {
	case CountStar:
		return NewInteger(running.AsInteger() + 1)
	case Count:
		if input.IsNull() {
			return running
		}
		return NewInteger(running.AsInteger() + 1)
	case Sum:
		if input.IsNull() {
			return running
		}
		if running.IsNull() {
			return NewInteger(input.AsInteger())
		}
		sum := decimal.NewFromInt(running.AsInteger()).Add(decimal.NewFromInt(input.AsInteger()))
		return NewInteger(sum.IntPart())
	case Min:
		if input.IsNull() {
			return running
		}
		if running.IsNull() || input.Compare(running) < 0 {
			return input
		}
		return running
	case Max:
		if input.IsNull() {
			return running
		}
		if running.IsNull() || input.Compare(running) > 0 {
			return input
		}
		return running
	default:
		return running
	}
}
