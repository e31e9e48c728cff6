package functions

import (
	"github.com/mandelsoft/fxengine/pkg/value"
)

// elements iterates over the scalar values of the arguments.
// References are resolved here, values of referenced cells and array
// elements are reported with direct=false. Iteration stops if f
// returns a non-nil value, which is returned.
func elements(ctx *Context, args []value.Value, f func(v value.Value, direct bool) value.Value) value.Value {
	for _, a := range args {
		direct := true
		if value.IsReference(a) {
			a = ctx.Resolve(a)
			direct = false
		}
		if arr, ok := a.(*value.Array); ok {
			for _, e := range arr.Values() {
				if r := f(e, false); r != nil {
					return r
				}
			}
			continue
		}
		if r := f(a, direct); r != nil {
			return r
		}
	}
	return nil
}

// numbers collects the numeric values of the arguments the way
// aggregating functions do: direct arguments are coerced, array
// elements only count if they are numbers. Errors are returned.
func numbers(ctx *Context, args []value.Value) ([]float64, value.Value) {
	var result []float64
	err := elements(ctx, args, func(v value.Value, direct bool) value.Value {
		switch x := v.(type) {
		case value.Error:
			return x
		case value.Number:
			result = append(result, float64(x))
		default:
			if direct && !value.IsBlank(v) {
				n, err := value.ToNumber(v)
				if err != nil {
					return err
				}
				result = append(result, n)
			}
		}
		return nil
	})
	return result, err
}

// number maps a numeric scalar function element-wise.
func number(f func(x float64) value.Value) func(_ *Context, args []value.Value) value.Value {
	return func(_ *Context, args []value.Value) value.Value {
		return value.ApplyUnary(args[0], func(v value.Value) value.Value {
			n, err := value.ToNumber(v)
			if err != nil {
				return err
			}
			return f(n)
		})
	}
}

// number2 maps a numeric function of two arguments with broadcasting.
func number2(a, b value.Value, f func(x, y float64) value.Value) value.Value {
	return value.Apply(a, b, func(a, b value.Value) value.Value {
		x, err := value.ToNumber(a)
		if err != nil {
			return err
		}
		y, err := value.ToNumber(b)
		if err != nil {
			return err
		}
		return f(x, y)
	})
}

// text maps a text function element-wise.
func text(f func(s string) value.Value) func(_ *Context, args []value.Value) value.Value {
	return func(_ *Context, args []value.Value) value.Value {
		return value.ApplyUnary(args[0], func(v value.Value) value.Value {
			s, err := value.ToText(v)
			if err != nil {
				return err
			}
			return f(s)
		})
	}
}

// predicate maps a type check element-wise, errors included.
func predicate(f func(v value.Value) bool) func(_ *Context, args []value.Value) value.Value {
	return func(_ *Context, args []value.Value) value.Value {
		if arr, ok := args[0].(*value.Array); ok {
			return arr.Map(func(e value.Value) value.Value { return value.Boolean(f(e)) })
		}
		return value.Boolean(f(args[0]))
	}
}

func optional(args []value.Value, i int, def value.Value) value.Value {
	if i < len(args) {
		return args[i]
	}
	return def
}
