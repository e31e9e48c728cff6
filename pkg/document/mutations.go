package document

import (
	"fmt"
	"strings"

	"github.com/mandelsoft/fxengine/pkg/expression"
	"github.com/mandelsoft/fxengine/pkg/functions"
	"github.com/mandelsoft/fxengine/pkg/graph"
	"github.com/mandelsoft/fxengine/pkg/reference"
	"github.com/mandelsoft/fxengine/pkg/value"
)

func cellRef(unit, sheet, a1 string) (reference.CellRef, error) {
	row, col, err := reference.ParseCell(a1)
	if err != nil {
		return reference.CellRef{}, err
	}
	return reference.NewCellRef(unit, sheet, row, col), nil
}

// Mutator is the mutation interface shared by documents and batches.
type Mutator interface {
	AddSheet(unit, sheet string, rows, cols int) error
	SetCell(unit, sheet, a1 string, v value.Value) error
	SetFormula(unit, sheet, a1, src string) error
	SetInput(unit, sheet, a1, input string) error
	ClearCell(unit, sheet, a1 string) error
	RemoveSheet(unit, sheet string) error
	RemoveUnit(unit string) error
	RegisterFormula(unit, sub, id, src string, payload ...interface{}) error
	RemoveFormula(unit, sub, id string) error
}

var _ Mutator = (*Document)(nil)

func (d *Document) AddSheet(unit, sheet string, rows, cols int) error {
	return d.submit(d.addSheetOp(unit, sheet, rows, cols))
}

// SetCell sets a raw (non-formula) value.
func (d *Document) SetCell(unit, sheet, a1 string, v value.Value) error {
	o, err := d.setCellOp(unit, sheet, a1, v)
	if err != nil {
		return err
	}
	return d.submit(o)
}

// SetFormula sets a cell formula. Parse and compile errors are
// reported and leave the cell unchanged.
func (d *Document) SetFormula(unit, sheet, a1, src string) error {
	o, err := d.setFormulaOp(unit, sheet, a1, src)
	if err != nil {
		return err
	}
	return d.submit(o)
}

// SetInput sets a cell like user input: text starting with "="
// is a formula, everything else a literal.
func (d *Document) SetInput(unit, sheet, a1, input string) error {
	o, err := d.setInputOp(unit, sheet, a1, input)
	if err != nil {
		return err
	}
	return d.submit(o)
}

func (d *Document) ClearCell(unit, sheet, a1 string) error {
	o, err := d.clearCellOp(unit, sheet, a1)
	if err != nil {
		return err
	}
	return d.submit(o)
}

// RemoveSheet removes a sheet with its cells and other formulas.
// Readers of the sheet get #REF!.
func (d *Document) RemoveSheet(unit, sheet string) error {
	return d.submit(d.removeSheetOp(unit, sheet))
}

func (d *Document) RemoveUnit(unit string) error {
	return d.submit(d.removeUnitOp(unit))
}

////////////////////////////////////////////////////////////////////////////////

func (d *Document) compile(unit, sheet, src string) (*expression.Formula, functions.Program, error) {
	f, err := expression.Parse(src, unit, sheet)
	if err != nil {
		return nil, nil, err
	}
	p, err := d.functions.Compile(f.Root)
	if err != nil {
		return nil, nil, err
	}
	return f, p, nil
}

func (d *Document) addSheetOp(unit, sheet string, rows, cols int) *operation {
	return op(fmt.Sprintf("add sheet [%s]%s", unit, sheet), func() error {
		d.workbook.AddSheet(unit, sheet, rows, cols)
		d.graph.MarkSheetDirty(unit, sheet)
		return nil
	})
}

func (d *Document) setCellOp(unit, sheet, a1 string, v value.Value) (*operation, error) {
	c, err := cellRef(unit, sheet, a1)
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = value.Blank{}
	}
	if value.IsReference(v) {
		return nil, fmt.Errorf("%s: references cannot be stored as cell value", c)
	}
	return op("set "+c.String(), func() error {
		if err := d.workbook.SetCell(c, reference.CellRaw{Value: v}); err != nil {
			return err
		}
		d.graph.RemoveNode(graph.CellId(c))
		d.graph.MarkCellDirty(c)
		return nil
	}), nil
}

func (d *Document) setFormulaOp(unit, sheet, a1, src string) (*operation, error) {
	c, err := cellRef(unit, sheet, a1)
	if err != nil {
		return nil, err
	}
	f, p, err := d.compile(unit, sheet, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c, err)
	}
	return op("set formula "+c.String(), func() error {
		return d.setCellFormula(c, f, p)
	}), nil
}

func (d *Document) setCellFormula(c reference.CellRef, f *expression.Formula, p functions.Program) error {
	if err := d.workbook.SetCell(c, reference.CellRaw{Formula: f.String()}); err != nil {
		return err
	}
	_, err := d.graph.SetNode(graph.CellId(c), f, p)
	return err
}

func (d *Document) setInputOp(unit, sheet, a1, input string) (*operation, error) {
	if strings.HasPrefix(input, "=") {
		return d.setFormulaOp(unit, sheet, a1, input)
	}
	return d.setCellOp(unit, sheet, a1, value.Literal(input))
}

func (d *Document) clearCellOp(unit, sheet, a1 string) (*operation, error) {
	c, err := cellRef(unit, sheet, a1)
	if err != nil {
		return nil, err
	}
	return op("clear "+c.String(), func() error {
		if err := d.workbook.ClearCell(c); err != nil {
			return err
		}
		d.graph.RemoveNode(graph.CellId(c))
		d.graph.MarkCellDirty(c)
		return nil
	}), nil
}

func (d *Document) removeSheetOp(unit, sheet string) *operation {
	return op(fmt.Sprintf("remove sheet [%s]%s", unit, sheet), func() error {
		d.formulas.RemoveSub(unit, sheet)
		d.workbook.RemoveSheet(unit, sheet)
		removed := d.graph.RemoveSheet(unit, sheet)
		d.log.Debug("removed sheet [{{unit}}]{{sheet}} with {{count}} formulas", "unit", unit, "sheet", sheet, "count", len(removed))
		return nil
	})
}

func (d *Document) removeUnitOp(unit string) *operation {
	return op(fmt.Sprintf("remove unit %s", unit), func() error {
		d.formulas.RemoveUnit(unit)
		d.workbook.RemoveUnit(unit)
		removed := d.graph.RemoveUnit(unit)
		d.log.Debug("removed unit {{unit}} with {{count}} formulas", "unit", unit, "count", len(removed))
		return nil
	})
}
