package value

import (
	"strings"
)

// Array is an immutable two-dimensional grid of scalar values.
type Array struct {
	rows int
	cols int
	data []Value
}

// NewArray creates an array from a row list. Missing cells of
// ragged rows are filled with Blank.
func NewArray(rows [][]Value) *Array {
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	a := &Array{rows: len(rows), cols: cols, data: make([]Value, len(rows)*cols)}
	for i, r := range rows {
		for j := 0; j < cols; j++ {
			var v Value = Blank{}
			if j < len(r) && r[j] != nil {
				v = r[j]
			}
			a.data[i*cols+j] = v
		}
	}
	return a
}

// NewArrayFunc creates an array with the given dimension
// filled by f.
func NewArrayFunc(rows, cols int, f func(r, c int) Value) *Array {
	a := &Array{rows: rows, cols: cols, data: make([]Value, rows*cols)}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			a.data[i*cols+j] = f(i, j)
		}
	}
	return a
}

func (*Array) Kind() Kind { return KindArray }

func (a *Array) Rows() int {
	return a.rows
}

func (a *Array) Cols() int {
	return a.cols
}

func (a *Array) At(r, c int) Value {
	return a.data[r*a.cols+c]
}

// Values returns the elements in row major order.
func (a *Array) Values() []Value {
	return a.data
}

// Map creates a new array with f applied to all elements.
func (a *Array) Map(f func(Value) Value) *Array {
	return NewArrayFunc(a.rows, a.cols, func(r, c int) Value { return f(a.At(r, c)) })
}

func (a *Array) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i := 0; i < a.rows; i++ {
		if i > 0 {
			b.WriteString(";")
		}
		for j := 0; j < a.cols; j++ {
			if j > 0 {
				b.WriteString(",")
			}
			v := a.At(i, j)
			if t, ok := v.(Text); ok {
				b.WriteString(`"` + strings.ReplaceAll(string(t), `"`, `""`) + `"`)
			} else {
				b.WriteString(v.String())
			}
		}
	}
	b.WriteString("}")
	return b.String()
}

// Scalar returns the single element of a 1x1 array or the value itself.
func Scalar(v Value) Value {
	if a, ok := v.(*Array); ok && a.rows == 1 && a.cols == 1 {
		return a.data[0]
	}
	return v
}

////////////////////////////////////////////////////////////////////////////////

// broadcast applies a scalar operator element-wise. Scalars are
// expanded, vectors are expanded along a matching dimension.
// Any other shape mismatch yields #VALUE!.
func broadcast(a, b Value, op func(x, y Value) Value) Value {
	x, xok := a.(*Array)
	y, yok := b.(*Array)

	switch {
	case !xok && !yok:
		return op(a, b)
	case xok && !yok:
		return x.Map(func(e Value) Value { return op(e, b) })
	case !xok && yok:
		return y.Map(func(e Value) Value { return op(a, e) })
	}

	rows, ok := dimension(x.rows, y.rows)
	if !ok {
		return ErrorValue
	}
	cols, ok := dimension(x.cols, y.cols)
	if !ok {
		return ErrorValue
	}
	return NewArrayFunc(rows, cols, func(r, c int) Value {
		return op(x.At(min(r, x.rows-1), min(c, x.cols-1)), y.At(min(r, y.rows-1), min(c, y.cols-1)))
	})
}

func dimension(a, b int) (int, bool) {
	switch {
	case a == b:
		return a, true
	case a == 1:
		return b, true
	case b == 1:
		return a, true
	default:
		return 0, false
	}
}
