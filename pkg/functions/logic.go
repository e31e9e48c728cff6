package functions

import (
	"github.com/mandelsoft/fxengine/pkg/value"
)

// evaluate evaluates a deferred argument and materializes references.
func evaluate(ctx *Context, t Thunk) value.Value {
	return value.Scalar(ctx.Resolve(t()))
}

// If evaluates only the selected branch.
var If = NewLazy("IF", 2, 3, func(ctx *Context, args []Thunk) value.Value {
	c := evaluate(ctx, args[0])
	b, err := value.ToBoolean(c)
	if err != nil {
		return err
	}
	if b {
		return args[1]()
	}
	if len(args) < 3 {
		return value.Boolean(false)
	}
	return args[2]()
})

var IfError = NewLazy("IFERROR", 2, 2, func(ctx *Context, args []Thunk) value.Value {
	v := evaluate(ctx, args[0])
	if value.IsError(v) {
		return args[1]()
	}
	return v
})

var IfNA = NewLazy("IFNA", 2, 2, func(ctx *Context, args []Thunk) value.Value {
	v := evaluate(ctx, args[0])
	if value.Equal(v, value.ErrorNA) {
		return args[1]()
	}
	return v
})

// logical folds the logical values of the arguments. Text and blanks
// found in referenced cells or arrays are ignored, direct text must
// be convertible. Without logical values the result is #VALUE!.
func logical(name string, f func(count, trues int) bool) Function {
	return New(name, 1, -1, func(ctx *Context, args []value.Value) value.Value {
		count, trues := 0, 0
		err := elements(ctx, args, func(v value.Value, direct bool) value.Value {
			switch v.(type) {
			case value.Error:
				return v
			case value.Boolean, value.Number:
			case value.Text:
				if !direct {
					return nil
				}
			default:
				return nil
			}
			b, err := value.ToBoolean(v)
			if err != nil {
				return err
			}
			count++
			if b {
				trues++
			}
			return nil
		})
		if err != nil {
			return err
		}
		if count == 0 {
			return value.ErrorValue
		}
		return value.Boolean(f(count, trues))
	}, AcceptReferences())
}

var And = logical("AND", func(count, trues int) bool { return count == trues })
var Or = logical("OR", func(count, trues int) bool { return trues > 0 })
var Xor = logical("XOR", func(count, trues int) bool { return trues%2 == 1 })

var Not = New("NOT", 1, 1, func(_ *Context, args []value.Value) value.Value {
	return value.Not(args[0])
})

var True = New("TRUE", 0, 0, func(*Context, []value.Value) value.Value {
	return value.Boolean(true)
})

var False = New("FALSE", 0, 0, func(*Context, []value.Value) value.Value {
	return value.Boolean(false)
})
