package vm

import (
	"math"
	"strconv"
	"strings"

	"github.com/chazu/opprof/bytecode"
)

// Value is a dynamic value held in a register. The dynamic type is one of:
//
//	nil       the nil object
//	bool      true and false
//	int64     integers
//	float64   floats
//	string    strings
//	Symbol    interned names
//	*Array    growable arrays
type Value any

// Symbol is a name loaded with LOADSYM.
type Symbol string

// Array is a mutable, growable sequence of values.
type Array struct {
	Elems []Value
}

// NewArray returns an array holding a copy of elems.
func NewArray(elems ...Value) *Array {
	return &Array{Elems: append([]Value(nil), elems...)}
}

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.Elems) }

// At returns element i, or nil when i is out of range. Negative indices
// count from the end.
func (a *Array) At(i int) Value {
	if i < 0 {
		i += len(a.Elems)
	}
	if i < 0 || i >= len(a.Elems) {
		return nil
	}
	return a.Elems[i]
}

// Push appends v.
func (a *Array) Push(v Value) {
	a.Elems = append(a.Elems, v)
}

// literalValue converts a pool entry to a value.
func literalValue(l bytecode.Literal) Value {
	switch l.Kind {
	case bytecode.LiteralInt:
		return l.Int
	case bytecode.LiteralFloat:
		return l.Float
	case bytecode.LiteralString:
		return l.Str
	default:
		return nil
	}
}

// ---------------------------------------------------------------------------
// Predicates and conversions
// ---------------------------------------------------------------------------

// Truthy reports whether v counts as true in a condition. Only nil and false
// are false.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	default:
		return true
	}
}

// TypeName returns the class name of v.
func TypeName(v Value) string {
	switch v.(type) {
	case nil:
		return "NilClass"
	case bool:
		if v.(bool) {
			return "TrueClass"
		}
		return "FalseClass"
	case int64:
		return "Integer"
	case float64:
		return "Float"
	case string:
		return "String"
	case Symbol:
		return "Symbol"
	case *Array:
		return "Array"
	default:
		return "Object"
	}
}

// ToS returns the display form of v, as puts prints it.
func ToS(v Value) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case Symbol:
		return string(v)
	default:
		return Inspect(v)
	}
}

// Inspect returns the source-like form of v.
func Inspect(v Value) string {
	switch v := v.(type) {
	case nil:
		return "nil"
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return formatFloat(v)
	case string:
		return strconv.Quote(v)
	case Symbol:
		return ":" + string(v)
	case *Array:
		var sb strings.Builder
		sb.WriteByte('[')
		for i, e := range v.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			if e == v {
				sb.WriteString("[...]")
				continue
			}
			sb.WriteString(Inspect(e))
		}
		sb.WriteByte(']')
		return sb.String()
	default:
		return "#<Object>"
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Equal reports whether a and b are equal. Integers and floats compare by
// numeric value; arrays compare element-wise.
func Equal(a, b Value) bool {
	if x, ok := a.(int64); ok {
		if y, ok := b.(int64); ok {
			return x == y
		}
	}
	if x, y, ok := numbers(a, b); ok {
		return x == y
	}
	switch a := a.(type) {
	case *Array:
		b, ok := b.(*Array)
		if !ok || len(a.Elems) != len(b.Elems) {
			return false
		}
		if a == b {
			return true
		}
		for i := range a.Elems {
			if !Equal(a.Elems[i], b.Elems[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// numbers returns a and b as floats when both are numeric.
func numbers(a, b Value) (float64, float64, bool) {
	x, okA := toFloat(a)
	y, okB := toFloat(b)
	return x, y, okA && okB
}

func toFloat(v Value) (float64, bool) {
	switch v := v.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
