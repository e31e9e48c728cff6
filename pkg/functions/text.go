package functions

import (
	"strings"

	"github.com/mandelsoft/fxengine/pkg/value"
)

// Concatenate joins its arguments, arrays are broadcast.
var Concatenate = New("CONCATENATE", 1, -1, func(_ *Context, args []value.Value) value.Value {
	var r value.Value = value.Text("")
	for _, a := range args {
		r = value.Concat(r, a)
	}
	return r
})

// ConcatFunc joins all elements of its arguments.
var ConcatFunc = New("CONCAT", 1, -1, func(ctx *Context, args []value.Value) value.Value {
	var b strings.Builder
	err := elements(ctx, args, func(v value.Value, _ bool) value.Value {
		s, err := value.ToText(v)
		if err != nil {
			return err
		}
		b.WriteString(s)
		return nil
	})
	if err != nil {
		return err
	}
	return value.Text(b.String())
}, AcceptReferences())

var Len = New("LEN", 1, 1, text(func(s string) value.Value {
	return value.Number(len([]rune(s)))
}))

var Upper = New("UPPER", 1, 1, text(func(s string) value.Value {
	return value.Text(strings.ToUpper(s))
}))

var Lower = New("LOWER", 1, 1, text(func(s string) value.Value {
	return value.Text(strings.ToLower(s))
}))

// Trim removes leading and trailing spaces and collapses inner ones.
var Trim = New("TRIM", 1, 1, text(func(s string) value.Value {
	return value.Text(strings.Join(strings.Fields(s), " "))
}))

func substring(name string, f func(r []rune, n int) string) Function {
	return New(name, 1, 2, func(_ *Context, args []value.Value) value.Value {
		return value.Apply(args[0], optional(args, 1, value.Number(1)), func(a, b value.Value) value.Value {
			s, err := value.ToText(a)
			if err != nil {
				return err
			}
			n, err := value.ToNumber(b)
			if err != nil {
				return err
			}
			if n < 0 {
				return value.ErrorValue
			}
			r := []rune(s)
			return value.Text(f(r, min(int(n), len(r))))
		})
	})
}

var Left = substring("LEFT", func(r []rune, n int) string { return string(r[:n]) })
var Right = substring("RIGHT", func(r []rune, n int) string { return string(r[len(r)-n:]) })
