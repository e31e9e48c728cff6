package functions

import (
	"github.com/mandelsoft/fxengine/pkg/value"
)

// Operators are implemented as meta functions, so they get the
// standard argument handling of Invoke.

func operator(name string, op func(a, b value.Value) value.Value) Function {
	return New(name, 2, 2, func(_ *Context, args []value.Value) value.Value {
		return op(args[0], args[1])
	})
}

func compare(op value.CompareOp) Function {
	return operator(string(op), func(a, b value.Value) value.Value {
		return value.Compare(op, a, b)
	})
}

var (
	Plus     = operator("plus", value.Add)
	Minus    = operator("minus", value.Subtract)
	Multiply = operator("multiply", value.Multiply)
	Divide   = operator("divide", value.Divide)
	Power    = operator("power", value.Power)
	Concat   = operator("concat", value.Concat)

	Negate = New("negate", 1, 1, func(_ *Context, args []value.Value) value.Value {
		return value.Negate(args[0])
	})
	Percent = New("percent", 1, 1, func(_ *Context, args []value.Value) value.Value {
		return value.Percent(args[0])
	})
	Identity = New("identity", 1, 1, func(_ *Context, args []value.Value) value.Value {
		return args[0]
	})
)

var binaryOperators = map[string]Function{
	"+": Plus,
	"-": Minus,
	"*": Multiply,
	"/": Divide,
	"^": Power,
	"&": Concat,

	string(value.OpEqual):        compare(value.OpEqual),
	string(value.OpNotEqual):     compare(value.OpNotEqual),
	string(value.OpLess):         compare(value.OpLess),
	string(value.OpLessEqual):    compare(value.OpLessEqual),
	string(value.OpGreater):      compare(value.OpGreater),
	string(value.OpGreaterEqual): compare(value.OpGreaterEqual),
}

var unaryOperators = map[string]Function{
	"-": Negate,
	"+": Identity,
	"%": Percent,
}
