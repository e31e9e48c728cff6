package document

import (
	"fmt"

	"github.com/mandelsoft/vfs/pkg/vfs"

	"github.com/mandelsoft/fxengine/pkg/graph"
	"github.com/mandelsoft/fxengine/pkg/grid"
	"github.com/mandelsoft/fxengine/pkg/otherformula"
	"github.com/mandelsoft/fxengine/pkg/reference"
	"github.com/mandelsoft/fxengine/pkg/utils"
)

// Load applies a workbook spec: units, sheets and cells are created,
// formula cells and other formulas are compiled. Everything is
// applied with a single recalculation.
func (d *Document) Load(spec *grid.Spec) error {
	return d.submit(op("load workbook", func() error {
		return d.load(spec)
	}))
}

// LoadFile loads a workbook spec file.
func (d *Document) LoadFile(path string, fss ...vfs.FileSystem) error {
	spec, err := grid.Load(path, fss...)
	if err != nil {
		return err
	}
	return d.Load(spec)
}

func (d *Document) load(spec *grid.Spec) error {
	if err := d.workbook.Apply(spec); err != nil {
		return err
	}
	snapshot := d.workbook.Snapshot()
	for _, un := range utils.OrderedMapKeys(spec.Units) {
		u := spec.Units[un]
		for _, sn := range utils.OrderedMapKeys(u.Sheets) {
			for _, c := range snapshot.Cells(un, sn) {
				if c.IsFormula() {
					if err := d.loadFormula(c.CellRef, c.Formula); err != nil {
						return err
					}
				} else {
					d.graph.RemoveNode(graph.CellId(c.CellRef))
					d.graph.MarkCellDirty(c.CellRef)
				}
			}
			d.graph.MarkSheetDirty(un, sn)
		}
	}
	for _, un := range utils.OrderedMapKeys(spec.Units) {
		u := spec.Units[un]
		for _, sn := range utils.OrderedMapKeys(u.Sheets) {
			s := u.Sheets[sn]
			for _, id := range utils.OrderedMapKeys(s.Formulas) {
				if err := d.registerFormulaOp(otherformula.NewSearchParam(un, sn, id), s.Formulas[id], nil).apply(); err != nil {
					return err
				}
			}
		}
	}
	d.log.Info("loaded workbook with {{units}} units", "units", len(spec.Units))
	return nil
}

func (d *Document) loadFormula(c reference.CellRef, src string) error {
	f, p, err := d.compile(c.Unit, c.Sheet, src)
	if err != nil {
		return fmt.Errorf("%s: %w", c, err)
	}
	return d.setCellFormula(c, f, p)
}
