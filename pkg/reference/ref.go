// Package reference describes references to cells, ranges and other
// formula results and resolves them against a grid data provider.
package reference

import (
	"fmt"

	"github.com/mandelsoft/fxengine/pkg/value"
)

// Ref is implemented by all reference descriptors of this package.
type Ref interface {
	value.Reference
	// Format renders the reference relative to a formula context.
	Format(unit, sheet string) string
}

// CellRef addresses a single cell. Row and Col are 0-based.
// It is comparable and used as index key for raw cell inputs.
type CellRef struct {
	Unit  string
	Sheet string
	Row   int
	Col   int
}

var _ value.Reference = CellRef{}

func NewCellRef(unit, sheet string, row, col int) CellRef {
	return CellRef{Unit: unit, Sheet: sheet, Row: row, Col: col}
}

func (CellRef) Kind() value.Kind { return value.KindReference }

func (r CellRef) String() string {
	return r.Address()
}

// Address is the fully qualified address of the cell.
func (r CellRef) Address() string {
	return qualifier(r.Unit, r.Sheet) + r.A1()
}

// A1 is the unqualified A1 name of the cell.
func (r CellRef) A1() string {
	return FormatCell(r.Row, r.Col)
}

// Format renders the cell relative to the given unit and sheet.
func (r CellRef) Format(unit, sheet string) string {
	return relative(r.Unit, r.Sheet, unit, sheet) + r.A1()
}

func (r CellRef) Range() RangeRef {
	return RangeRef{Unit: r.Unit, Sheet: r.Sheet, StartRow: r.Row, StartCol: r.Col, EndRow: r.Row, EndCol: r.Col}
}

////////////////////////////////////////////////////////////////////////////////

// RangeRef addresses a rectangular area, bounds are inclusive.
type RangeRef struct {
	Unit     string
	Sheet    string
	StartRow int
	StartCol int
	EndRow   int
	EndCol   int
}

var _ value.Reference = RangeRef{}

// NewRangeRef creates a normalized range for two corner cells.
func NewRangeRef(unit, sheet string, r1, c1, r2, c2 int) RangeRef {
	return RangeRef{
		Unit:     unit,
		Sheet:    sheet,
		StartRow: min(r1, r2),
		StartCol: min(c1, c2),
		EndRow:   max(r1, r2),
		EndCol:   max(c1, c2),
	}
}

func (RangeRef) Kind() value.Kind { return value.KindReference }

func (r RangeRef) String() string {
	return r.Address()
}

func (r RangeRef) Address() string {
	return qualifier(r.Unit, r.Sheet) + r.A1()
}

func (r RangeRef) A1() string {
	return FormatCell(r.StartRow, r.StartCol) + ":" + FormatCell(r.EndRow, r.EndCol)
}

func (r RangeRef) Format(unit, sheet string) string {
	return relative(r.Unit, r.Sheet, unit, sheet) + r.A1()
}

func (r RangeRef) Rows() int {
	return r.EndRow - r.StartRow + 1
}

func (r RangeRef) Cols() int {
	return r.EndCol - r.StartCol + 1
}

// Start returns the upper left cell.
func (r RangeRef) Start() CellRef {
	return CellRef{Unit: r.Unit, Sheet: r.Sheet, Row: r.StartRow, Col: r.StartCol}
}

// Contains checks whether the cell is part of the range.
func (r RangeRef) Contains(c CellRef) bool {
	return r.Unit == c.Unit && r.Sheet == c.Sheet &&
		c.Row >= r.StartRow && c.Row <= r.EndRow &&
		c.Col >= r.StartCol && c.Col <= r.EndCol
}

// Overlaps checks whether two ranges share at least one cell.
func (r RangeRef) Overlaps(o RangeRef) bool {
	return r.Unit == o.Unit && r.Sheet == o.Sheet &&
		r.StartRow <= o.EndRow && o.StartRow <= r.EndRow &&
		r.StartCol <= o.EndCol && o.StartCol <= r.EndCol
}

// Contains checks whether the range contains the cell.
func Contains(rng RangeRef, cell CellRef) bool {
	return rng.Contains(cell)
}

func Overlaps(a, b RangeRef) bool {
	return a.Overlaps(b)
}

////////////////////////////////////////////////////////////////////////////////

// FormulaRef refers to the result of an item of the
// other-formula registry. Sheet is the sub component id.
type FormulaRef struct {
	Unit      string
	Sheet     string
	FormulaId string
}

var _ value.Reference = FormulaRef{}

func (FormulaRef) Kind() value.Kind { return value.KindReference }

func (r FormulaRef) String() string {
	return r.Address()
}

func (r FormulaRef) Address() string {
	return qualifier(r.Unit, r.Sheet) + "@" + r.FormulaId
}

func (r FormulaRef) Format(unit, sheet string) string {
	return relative(r.Unit, r.Sheet, unit, sheet) + "@" + r.FormulaId
}

////////////////////////////////////////////////////////////////////////////////

func qualifier(unit, sheet string) string {
	s := ""
	if unit != "" {
		s = fmt.Sprintf("[%s]", unit)
	}
	if sheet != "" {
		s += QuoteSheet(sheet) + "!"
	}
	return s
}

func relative(unit, sheet, cunit, csheet string) string {
	if unit != cunit {
		return qualifier(unit, sheet)
	}
	if sheet != csheet {
		return qualifier("", sheet)
	}
	return ""
}
