package document

import (
	"github.com/mandelsoft/fxengine/pkg/otherformula"
	"github.com/mandelsoft/fxengine/pkg/utils"
	"github.com/mandelsoft/fxengine/pkg/value"
)

// Batch collects mutations applied together with a single
// recalculation.
type Batch struct {
	doc *Document
	ops []*operation
}

var _ Mutator = (*Batch)(nil)

// Batch executes f with a fresh batch. If f succeeds, all collected
// mutations are applied at once. Otherwise nothing is applied.
func (d *Document) Batch(f func(b *Batch) error) error {
	b := &Batch{doc: d}
	if err := f(b); err != nil {
		return err
	}
	if len(b.ops) == 0 {
		return nil
	}
	return d.submit(b.ops...)
}

func (b *Batch) add(o *operation, err error) error {
	if err == nil {
		b.ops = append(b.ops, o)
	}
	return err
}

func (b *Batch) Len() int {
	return len(b.ops)
}

func (b *Batch) AddSheet(unit, sheet string, rows, cols int) error {
	return b.add(b.doc.addSheetOp(unit, sheet, rows, cols), nil)
}

func (b *Batch) SetCell(unit, sheet, a1 string, v value.Value) error {
	return b.add(b.doc.setCellOp(unit, sheet, a1, v))
}

func (b *Batch) SetFormula(unit, sheet, a1, src string) error {
	return b.add(b.doc.setFormulaOp(unit, sheet, a1, src))
}

func (b *Batch) SetInput(unit, sheet, a1, input string) error {
	return b.add(b.doc.setInputOp(unit, sheet, a1, input))
}

func (b *Batch) ClearCell(unit, sheet, a1 string) error {
	return b.add(b.doc.clearCellOp(unit, sheet, a1))
}

func (b *Batch) RemoveSheet(unit, sheet string) error {
	return b.add(b.doc.removeSheetOp(unit, sheet), nil)
}

func (b *Batch) RemoveUnit(unit string) error {
	return b.add(b.doc.removeUnitOp(unit), nil)
}

func (b *Batch) RegisterFormula(unit, sub, id, src string, payload ...interface{}) error {
	p := otherformula.NewSearchParam(unit, sub, id)
	return b.add(b.doc.registerFormulaOp(p, src, utils.Optional(payload...)), nil)
}

func (b *Batch) RemoveFormula(unit, sub, id string) error {
	return b.add(b.doc.removeFormulaOp(otherformula.NewSearchParam(unit, sub, id)), nil)
}
