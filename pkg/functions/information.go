package functions

import (
	"math"

	"github.com/mandelsoft/fxengine/pkg/value"
)

func is(name string, f func(v value.Value) bool) Function {
	return New(name, 1, 1, predicate(f), AcceptErrors())
}

var (
	IsBlank   = is("ISBLANK", value.IsBlank)
	IsError   = is("ISERROR", value.IsError)
	IsNA      = is("ISNA", func(v value.Value) bool { return value.Equal(v, value.ErrorNA) })
	IsNumber  = is("ISNUMBER", func(v value.Value) bool { return v.Kind() == value.KindNumber })
	IsText    = is("ISTEXT", func(v value.Value) bool { return v.Kind() == value.KindText })
	IsNonText = is("ISNONTEXT", func(v value.Value) bool { return v.Kind() != value.KindText })
	IsLogical = is("ISLOGICAL", func(v value.Value) bool { return v.Kind() == value.KindBoolean })
	IsErr     = is("ISERR", func(v value.Value) bool {
		return value.IsError(v) && !value.Equal(v, value.ErrorNA)
	})
)

// IsRef checks the argument without resolving it.
var IsRef = New("ISREF", 1, 1, func(_ *Context, args []value.Value) value.Value {
	return value.Boolean(value.IsReference(args[0]))
}, AcceptErrors(), AcceptReferences())

func parity(name string, odd bool) Function {
	return New(name, 1, 1, number(func(x float64) value.Value {
		return value.Boolean((int64(math.Trunc(x))%2 != 0) == odd)
	}))
}

var IsEven = parity("ISEVEN", false)
var IsOdd = parity("ISODD", true)

var ErrorType = New("ERROR.TYPE", 1, 1, func(_ *Context, args []value.Value) value.Value {
	if e, ok := value.Scalar(args[0]).(value.Error); ok {
		return value.Number(e.Type())
	}
	return value.ErrorNA
}, AcceptErrors())

var NA = New("NA", 0, 0, func(*Context, []value.Value) value.Value {
	return value.ErrorNA
})

// N converts a value to a number, non-numeric values yield 0.
var N = New("N", 1, 1, func(_ *Context, args []value.Value) value.Value {
	v := args[0]
	if arr, ok := v.(*value.Array); ok {
		v = arr.At(0, 0)
	}
	switch x := v.(type) {
	case value.Number:
		return x
	case value.Boolean:
		if x {
			return value.Number(1)
		}
		return value.Number(0)
	case value.Error:
		return x
	}
	return value.Number(0)
})

var types = map[value.Kind]int{
	value.KindBlank:   1,
	value.KindNumber:  1,
	value.KindText:    2,
	value.KindBoolean: 4,
	value.KindError:   16,
	value.KindArray:   64,
}

var Type = New("TYPE", 1, 1, func(_ *Context, args []value.Value) value.Value {
	return value.Number(types[args[0].Kind()])
}, AcceptErrors())
