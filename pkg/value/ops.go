package value

import (
	"math"
	"strings"
)

// binary is the common frame of all binary operators: error
// propagation (left error wins), reference rejection and
// array broadcasting.
func binary(a, b Value, op func(x, y Value) Value) Value {
	if e, ok := FirstError(a, b); ok {
		return e
	}
	if IsReference(a) || IsReference(b) {
		return ErrorValue
	}
	return broadcast(a, b, func(x, y Value) Value {
		if e, ok := FirstError(x, y); ok {
			return e
		}
		return op(x, y)
	})
}

func unary(a Value, op func(x Value) Value) Value {
	if e, ok := a.(Error); ok {
		return e
	}
	if IsReference(a) {
		return ErrorValue
	}
	if arr, ok := a.(*Array); ok {
		return arr.Map(func(e Value) Value {
			if err, ok := e.(Error); ok {
				return err
			}
			return op(e)
		})
	}
	return op(a)
}

func arithmetic(f func(x, y float64) Value) func(a, b Value) Value {
	return func(a, b Value) Value {
		x, err := ToNumber(a)
		if err != nil {
			return err
		}
		y, err := ToNumber(b)
		if err != nil {
			return err
		}
		return f(x, y)
	}
}

var (
	add      = arithmetic(func(x, y float64) Value { return number(x + y) })
	subtract = arithmetic(func(x, y float64) Value { return number(x - y) })
	multiply = arithmetic(func(x, y float64) Value { return number(x * y) })
	divide   = arithmetic(func(x, y float64) Value {
		if y == 0 {
			return ErrorDiv0
		}
		return number(x / y)
	})
	power = arithmetic(func(x, y float64) Value {
		if x == 0 {
			switch {
			case y == 0:
				return ErrorNum
			case y < 0:
				return ErrorDiv0
			}
		}
		return number(math.Pow(x, y))
	})
)

func Add(a, b Value) Value {
	return binary(a, b, add)
}

func Subtract(a, b Value) Value {
	return binary(a, b, subtract)
}

func Multiply(a, b Value) Value {
	return binary(a, b, multiply)
}

func Divide(a, b Value) Value {
	return binary(a, b, divide)
}

func Power(a, b Value) Value {
	return binary(a, b, power)
}

// Concat joins the text forms of both operands.
func Concat(a, b Value) Value {
	return binary(a, b, func(x, y Value) Value {
		s1, err := ToText(x)
		if err != nil {
			return err
		}
		s2, err := ToText(y)
		if err != nil {
			return err
		}
		return Text(s1 + s2)
	})
}

func Negate(a Value) Value {
	return unary(a, func(x Value) Value {
		n, err := ToNumber(x)
		if err != nil {
			return err
		}
		return number(-n)
	})
}

func Percent(a Value) Value {
	return unary(a, func(x Value) Value {
		n, err := ToNumber(x)
		if err != nil {
			return err
		}
		return number(n / 100)
	})
}

func Not(a Value) Value {
	return unary(a, func(x Value) Value {
		b, err := ToBoolean(x)
		if err != nil {
			return err
		}
		return Boolean(!b)
	})
}

////////////////////////////////////////////////////////////////////////////////

type CompareOp string

const (
	OpEqual        CompareOp = "="
	OpNotEqual     CompareOp = "<>"
	OpLess         CompareOp = "<"
	OpLessEqual    CompareOp = "<="
	OpGreater      CompareOp = ">"
	OpGreaterEqual CompareOp = ">="
)

func (o CompareOp) Valid() bool {
	switch o {
	case OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		return true
	}
	return false
}

func (o CompareOp) eval(c int) bool {
	switch o {
	case OpEqual:
		return c == 0
	case OpNotEqual:
		return c != 0
	case OpLess:
		return c < 0
	case OpLessEqual:
		return c <= 0
	case OpGreater:
		return c > 0
	case OpGreaterEqual:
		return c >= 0
	}
	return false
}

// Compare applies a comparison operator.
func Compare(op CompareOp, a, b Value) Value {
	if !op.Valid() {
		return ErrorValue
	}
	return binary(a, b, func(x, y Value) Value {
		return Boolean(op.eval(CompareScalars(x, y)))
	})
}

// typeRank is the spreadsheet sort order of mixed types.
func typeRank(v Value) int {
	switch v.Kind() {
	case KindNumber:
		return 1
	case KindText:
		return 2
	case KindBoolean:
		return 3
	}
	return 0
}

// CompareScalars compares two scalar non-error values.
// A blank operand takes the zero value of the other operand's type.
// Text "true"/"false" (case-insensitive) equals the corresponding boolean.
// Otherwise numbers sort before text and text before booleans,
// text is compared case-insensitive.
func CompareScalars(a, b Value) int {
	if a == nil {
		a = Blank{}
	}
	if b == nil {
		b = Blank{}
	}
	if IsBlank(a) && IsBlank(b) {
		return 0
	}
	if IsBlank(a) {
		a = zeroOf(b)
	}
	if IsBlank(b) {
		b = zeroOf(a)
	}

	switch x := a.(type) {
	case Number:
		if y, ok := b.(Number); ok {
			return cmpFloat(float64(x), float64(y))
		}
	case Text:
		switch y := b.(type) {
		case Text:
			return strings.Compare(strings.ToLower(string(x)), strings.ToLower(string(y)))
		case Boolean:
			if t, ok := parseBoolean(string(x)); ok {
				return cmpBool(t, bool(y))
			}
		}
	case Boolean:
		switch y := b.(type) {
		case Boolean:
			return cmpBool(bool(x), bool(y))
		case Text:
			if t, ok := parseBoolean(string(y)); ok {
				return cmpBool(bool(x), t)
			}
		}
	}
	return typeRank(a) - typeRank(b)
}

func zeroOf(v Value) Value {
	switch v.Kind() {
	case KindText:
		return Text("")
	case KindBoolean:
		return Boolean(false)
	default:
		return Number(0)
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

////////////////////////////////////////////////////////////////////////////////

// Apply applies a scalar operation to two operands using the
// operator frame: error propagation, reference rejection and
// array broadcasting.
func Apply(a, b Value, op func(x, y Value) Value) Value {
	return binary(a, b, op)
}

// ApplyUnary applies a scalar operation element-wise.
func ApplyUnary(a Value, op func(x Value) Value) Value {
	return unary(a, op)
}
