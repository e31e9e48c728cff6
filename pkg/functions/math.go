package functions

import (
	"math"

	"github.com/mandelsoft/fxengine/pkg/value"
)

func aggregate(name string, f func(list []float64) value.Value) Function {
	return New(name, 1, -1, func(ctx *Context, args []value.Value) value.Value {
		list, err := numbers(ctx, args)
		if err != nil {
			return err
		}
		return f(list)
	}, AcceptReferences())
}

var Sum = aggregate("SUM", func(list []float64) value.Value {
	sum := 0.0
	for _, n := range list {
		sum += n
	}
	return value.NumberOf(sum)
})

var Product = aggregate("PRODUCT", func(list []float64) value.Value {
	if len(list) == 0 {
		return value.Number(0)
	}
	p := 1.0
	for _, n := range list {
		p *= n
	}
	return value.NumberOf(p)
})

var Average = aggregate("AVERAGE", func(list []float64) value.Value {
	if len(list) == 0 {
		return value.ErrorDiv0
	}
	sum := 0.0
	for _, n := range list {
		sum += n
	}
	return value.NumberOf(sum / float64(len(list)))
})

var Min = aggregate("MIN", func(list []float64) value.Value {
	if len(list) == 0 {
		return value.Number(0)
	}
	m := list[0]
	for _, n := range list[1:] {
		m = math.Min(m, n)
	}
	return value.Number(m)
})

var Max = aggregate("MAX", func(list []float64) value.Value {
	if len(list) == 0 {
		return value.Number(0)
	}
	m := list[0]
	for _, n := range list[1:] {
		m = math.Max(m, n)
	}
	return value.Number(m)
})

// Count counts numbers. Direct arguments count if they are
// convertible to numbers, errors are not propagated.
var Count = New("COUNT", 1, -1, func(ctx *Context, args []value.Value) value.Value {
	count := 0
	elements(ctx, args, func(v value.Value, direct bool) value.Value {
		switch v.(type) {
		case value.Number:
			count++
		case value.Text, value.Boolean:
			if direct {
				if _, err := value.ToNumber(v); err == nil {
					count++
				}
			}
		}
		return nil
	})
	return value.Number(count)
}, AcceptErrors(), AcceptReferences())

var CountA = New("COUNTA", 1, -1, func(ctx *Context, args []value.Value) value.Value {
	count := 0
	elements(ctx, args, func(v value.Value, _ bool) value.Value {
		if !value.IsBlank(v) {
			count++
		}
		return nil
	})
	return value.Number(count)
}, AcceptErrors(), AcceptReferences())

// CountBlank counts empty cells and empty texts.
var CountBlank = New("COUNTBLANK", 1, 1, func(ctx *Context, args []value.Value) value.Value {
	count := 0
	elements(ctx, args, func(v value.Value, _ bool) value.Value {
		if value.IsBlank(v) || v == value.Text("") {
			count++
		}
		return nil
	})
	return value.Number(count)
}, AcceptErrors(), AcceptReferences())

var Abs = New("ABS", 1, 1, number(func(x float64) value.Value {
	return value.Number(math.Abs(x))
}))

var Int = New("INT", 1, 1, number(func(x float64) value.Value {
	return value.Number(math.Floor(x))
}))

var Sqrt = New("SQRT", 1, 1, number(func(x float64) value.Value {
	if x < 0 {
		return value.ErrorNum
	}
	return value.Number(math.Sqrt(x))
}))

var Sign = New("SIGN", 1, 1, number(func(x float64) value.Value {
	switch {
	case x > 0:
		return value.Number(1)
	case x < 0:
		return value.Number(-1)
	}
	return value.Number(0)
}))

// Round rounds half away from zero, negative digits round to the
// left of the decimal point.
var Round = New("ROUND", 1, 2, func(_ *Context, args []value.Value) value.Value {
	return number2(args[0], optional(args, 1, value.Number(0)), func(x, d float64) value.Value {
		d = math.Trunc(d)
		if d < 0 {
			m := math.Pow(10, -d)
			return value.NumberOf(math.Round(x/m) * m)
		}
		m := math.Pow(10, d)
		return value.NumberOf(math.Round(x*m) / m)
	})
})

// Mod returns the remainder with the sign of the divisor.
var Mod = New("MOD", 2, 2, func(_ *Context, args []value.Value) value.Value {
	return number2(args[0], args[1], func(x, d float64) value.Value {
		if d == 0 {
			return value.ErrorDiv0
		}
		return value.NumberOf(x - d*math.Floor(x/d))
	})
})

var PowerFunc = New("POWER", 2, 2, func(_ *Context, args []value.Value) value.Value {
	return value.Power(args[0], args[1])
})

var Pi = New("PI", 0, 0, func(*Context, []value.Value) value.Value {
	return value.Number(math.Pi)
})
