package reference

import (
	"github.com/mandelsoft/fxengine/pkg/value"
)

// CellRaw is the raw content of a cell. A formula cell carries
// its formula source and the last committed value.
type CellRaw struct {
	Value   value.Value
	Formula string
}

func (c CellRaw) IsFormula() bool {
	return c.Formula != ""
}

// GridProvider is the read access to the grid data.
type GridProvider interface {
	HasUnit(unit string) bool
	HasSheet(unit, sheet string) bool
	// Bounds returns the declared size of a sheet.
	Bounds(unit, sheet string) (rows, cols int)
	ReadCell(unit, sheet string, row, col int) (CellRaw, bool)
	// ReadRange returns the raw cells of an in-bounds range,
	// missing cells are returned as zero CellRaw.
	ReadRange(unit, sheet string, rng RangeRef) ([][]CellRaw, error)
}

// ValueSource provides the current results of formula nodes. It
// overlays the committed values found in the grid, so that results
// committed by an earlier evaluation level are visible to later ones.
// A nil value means never computed.
type ValueSource interface {
	CellValue(cell CellRef) (value.Value, bool)
	FormulaValue(ref FormulaRef) (value.Value, bool)
}

// Resolver materializes references. It never mutates the grid and
// does not cache anything.
type Resolver struct {
	grid   GridProvider
	values ValueSource
}

func NewResolver(grid GridProvider, values ValueSource) *Resolver {
	return &Resolver{grid: grid, values: values}
}

// Resolve returns the scalar value of a single cell reference or
// an array for ranges. Non-reference values are returned as they are.
func (r *Resolver) Resolve(v value.Value) value.Value {
	switch ref := v.(type) {
	case CellRef:
		return r.cell(ref)
	case RangeRef:
		return r.rng(ref)
	case FormulaRef:
		return r.formula(ref)
	case value.Reference:
		return value.ErrorRef
	default:
		return v
	}
}

func (r *Resolver) valid(unit, sheet string) bool {
	return r.grid != nil && r.grid.HasUnit(unit) && r.grid.HasSheet(unit, sheet)
}

func (r *Resolver) inBounds(unit, sheet string, row, col int) bool {
	rows, cols := r.grid.Bounds(unit, sheet)
	return row >= 0 && col >= 0 && row < rows && col < cols
}

func (r *Resolver) cell(ref CellRef) value.Value {
	if !r.valid(ref.Unit, ref.Sheet) || !r.inBounds(ref.Unit, ref.Sheet, ref.Row, ref.Col) {
		return value.ErrorRef
	}
	raw, _ := r.grid.ReadCell(ref.Unit, ref.Sheet, ref.Row, ref.Col)
	return r.content(ref, raw)
}

func (r *Resolver) content(ref CellRef, raw CellRaw) value.Value {
	if raw.IsFormula() && r.values != nil {
		if v, ok := r.values.CellValue(ref); ok {
			return blank(v)
		}
	}
	return blank(raw.Value)
}

func (r *Resolver) rng(ref RangeRef) value.Value {
	if !r.valid(ref.Unit, ref.Sheet) ||
		!r.inBounds(ref.Unit, ref.Sheet, ref.StartRow, ref.StartCol) ||
		!r.inBounds(ref.Unit, ref.Sheet, ref.EndRow, ref.EndCol) {
		return value.ErrorRef
	}
	cells, err := r.grid.ReadRange(ref.Unit, ref.Sheet, ref)
	if err != nil {
		return value.ErrorRef
	}
	if ref.Rows() == 1 && ref.Cols() == 1 {
		return r.content(ref.Start(), cells[0][0])
	}
	return value.NewArrayFunc(ref.Rows(), ref.Cols(), func(row, col int) value.Value {
		return r.content(NewCellRef(ref.Unit, ref.Sheet, ref.StartRow+row, ref.StartCol+col), cells[row][col])
	})
}

func (r *Resolver) formula(ref FormulaRef) value.Value {
	if r.values == nil {
		return value.ErrorRef
	}
	v, ok := r.values.FormulaValue(ref)
	if !ok {
		return value.ErrorRef
	}
	if v == nil {
		return value.Blank{}
	}
	if value.IsReference(v) {
		return value.ErrorValue
	}
	return v
}

func blank(v value.Value) value.Value {
	if v == nil {
		return value.Blank{}
	}
	return v
}
