// Package types implements the value/comparison/expression subsystem the
// executors treat as a pure library (spec.md §4.6), generalized from the
// teacher's ValueType/CompareType taxonomy in
// server/innodb/basic/{types,value}.go down to the handful of kinds a
// schema-less storage core actually needs: null, bool, int, varchar.
package types

import (
	"encoding/binary"
	"fmt"
)

// Kind is a value's runtime type tag, the Go-sized stand-in for the
// teacher's much larger ValueType enumeration.
type Kind int

const (
	Null Kind = iota
	Boolean
	Integer
	Varchar
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "NULL"
	case Boolean:
		return "BOOLEAN"
	case Integer:
		return "INTEGER"
	case Varchar:
		return "VARCHAR"
	default:
		return "UNKNOWN"
	}
}

// Value is a single column value. Zero Value is SQL NULL.
type Value struct {
	kind Kind
	i    int64
	s    string
	b    bool
}

func NewNull() Value               { return Value{kind: Null} }
func NewInteger(v int64) Value     { return Value{kind: Integer, i: v} }
func NewBoolean(v bool) Value      { return Value{kind: Boolean, b: v} }
func NewVarchar(v string) Value    { return Value{kind: Varchar, s: v} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == Null }

func (v Value) AsInteger() int64 {
	if v.kind != Integer {
		panic(fmt.Sprintf("types: AsInteger on a %s value", v.kind))
	}
	return v.i
}

func (v Value) AsBoolean() bool {
	if v.kind != Boolean {
		panic(fmt.Sprintf("types: AsBoolean on a %s value", v.kind))
	}
	return v.b
}

func (v Value) AsVarchar() string {
	if v.kind != Varchar {
		panic(fmt.Sprintf("types: AsVarchar on a %s value", v.kind))
	}
	return v.s
}

func (v Value) String() string {
	switch v.kind {
	case Null:
		return "NULL"
	case Boolean:
		if v.b {
			return "true"
		}
		return "false"
	case Integer:
		return fmt.Sprintf("%d", v.i)
	case Varchar:
		return v.s
	default:
		return "?"
	}
}

// Compare orders two values of the same kind. NULL sorts below every
// non-null value and equal to itself, matching SQL's ORDER BY treatment
// (not its comparison semantics: ComparisonExpr handles those separately,
// evaluating any comparison with a NULL operand to false).
func (v Value) Compare(other Value) int {
	if v.kind == Null || other.kind == Null {
		switch {
		case v.kind == Null && other.kind == Null:
			return 0
		case v.kind == Null:
			return -1
		default:
			return 1
		}
	}
	if v.kind != other.kind {
		panic(fmt.Sprintf("types: cannot compare %s with %s", v.kind, other.kind))
	}
	switch v.kind {
	case Integer:
		switch {
		case v.i < other.i:
			return -1
		case v.i > other.i:
			return 1
		default:
			return 0
		}
	case Boolean:
		switch {
		case v.b == other.b:
			return 0
		case !v.b:
			return -1
		default:
			return 1
		}
	case Varchar:
		switch {
		case v.s < other.s:
			return -1
		case v.s > other.s:
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}

// Equals is shorthand for Compare(other) == 0.
func (v Value) Equals(other Value) bool { return v.Compare(other) == 0 }

// Add implements the executor framework's only arithmetic need: the
// update executor's UpdateType::Add (spec.md §4.6.4).
func (v Value) Add(other Value) Value {
	if v.kind != Integer || other.kind != Integer {
		panic("types: Add requires two integer values")
	}
	return NewInteger(v.i + other.i)
}

// Encode renders a value as a byte string that preserves equality (used as
// a hash/index key by hash join, aggregation grouping, and catalog index
// keys). It is not
// required to preserve ordering.
func (v Value) Encode() []byte {
	switch v.kind {
	case Null:
		return []byte{0}
	case Boolean:
		if v.b {
			return []byte{1, 1}
		}
		return []byte{1, 0}
	case Integer:
		buf := make([]byte, 9)
		buf[0] = 2
		binary.BigEndian.PutUint64(buf[1:], uint64(v.i))
		return buf
	case Varchar:
		buf := make([]byte, 1+len(v.s))
		buf[0] = 3
		copy(buf[1:], v.s)
		return buf
	default:
		return nil
	}
}
