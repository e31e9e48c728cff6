// Package random generates random acyclic workbooks for load tests.
package random

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/goombaio/namegenerator"

	"github.com/mandelsoft/fxengine/pkg/grid"
	"github.com/mandelsoft/fxengine/pkg/reference"
)

type Config struct {
	Units  int
	Sheets int
	Rows   int
	Cols   int
	// Formulas is the number of other formulas per sheet.
	Formulas int
}

type sheet struct {
	unit string
	name string
}

type generator struct {
	cfg    Config
	rand   *rand.Rand
	names  namegenerator.Generator
	used   map[string]bool
	sheets []sheet
}

// Generate creates a workbook. Constants are placed in the first column,
// formulas only refer to earlier columns, earlier sheets or earlier
// other formulas, so the workbook never contains cycles.
func Generate(seed int64, cfg Config) *grid.Spec {
	g := &generator{
		cfg:   cfg,
		rand:  rand.New(rand.NewSource(seed)),
		names: namegenerator.NewNameGenerator(seed),
		used:  map[string]bool{},
	}
	g.cfg.Units = max(g.cfg.Units, 1)
	g.cfg.Sheets = max(g.cfg.Sheets, 1)
	g.cfg.Rows = max(g.cfg.Rows, 1)
	g.cfg.Cols = max(g.cfg.Cols, 1)

	spec := &grid.Spec{Units: map[string]grid.UnitSpec{}}
	for u := 0; u < g.cfg.Units; u++ {
		unit := grid.UnitSpec{Sheets: map[string]grid.SheetSpec{}}
		un := g.name()
		for s := 0; s < g.cfg.Sheets; s++ {
			sn := g.name()
			if s == 0 {
				sn = strings.ReplaceAll(sn, "-", "_")
			}
			unit.Sheets[sn] = g.sheet(un, sn)
			g.sheets = append(g.sheets, sheet{un, sn})
		}
		spec.Units[un] = unit
	}
	return spec
}

func (g *generator) name() string {
	n := g.names.Generate()
	for i := 2; g.used[n]; i++ {
		n = fmt.Sprintf("%s-%d", g.names.Generate(), i)
	}
	g.used[n] = true
	return n
}

func (g *generator) sheet(unit, name string) grid.SheetSpec {
	s := grid.SheetSpec{
		Rows:  g.cfg.Rows,
		Cols:  g.cfg.Cols,
		Cells: map[string]interface{}{},
	}
	for r := 0; r < g.cfg.Rows; r++ {
		s.Cells[reference.FormatCell(r, 0)] = g.rand.Intn(1000)
		for c := 1; c < g.cfg.Cols; c++ {
			s.Cells[reference.FormatCell(r, c)] = g.formula(unit, name, c)
		}
	}
	if g.cfg.Formulas > 0 {
		s.Formulas = map[string]string{}
		for i := 0; i < g.cfg.Formulas; i++ {
			col := reference.ColumnName(g.rand.Intn(g.cfg.Cols))
			src := fmt.Sprintf("=SUM(%s1:%s%d)", col, col, g.cfg.Rows)
			if i > 0 {
				src += fmt.Sprintf("+@total%d", g.rand.Intn(i)+1)
			}
			s.Formulas[fmt.Sprintf("total%d", i+1)] = src
		}
	}
	return s
}

// formula creates a formula for a cell in the given column.
func (g *generator) formula(unit, name string, col int) string {
	a := g.operand(col)
	switch g.rand.Intn(5) {
	case 0:
		c := reference.ColumnName(g.rand.Intn(col))
		return fmt.Sprintf("=SUM(%s1:%s%d)", c, c, g.cfg.Rows)
	case 1:
		return fmt.Sprintf("=IF(%s>500,%s,%s*2)", a, a, g.operand(col))
	case 2:
		return fmt.Sprintf("=ROUND(%s/%d,2)", a, g.rand.Intn(9)+1)
	case 3:
		if len(g.sheets) > 0 {
			return fmt.Sprintf("=%s+%s", a, g.foreign(unit, name))
		}
		fallthrough
	default:
		return fmt.Sprintf("=%s+%s", a, g.operand(col))
	}
}

// operand refers to a cell of an earlier column of the same sheet.
func (g *generator) operand(col int) string {
	return reference.FormatCell(g.rand.Intn(g.cfg.Rows), g.rand.Intn(col))
}

// foreign refers to a cell of an earlier sheet.
func (g *generator) foreign(unit, name string) string {
	s := g.sheets[g.rand.Intn(len(g.sheets))]
	ref := reference.NewCellRef(s.unit, s.name, g.rand.Intn(g.cfg.Rows), g.rand.Intn(g.cfg.Cols))
	return ref.Format(unit, name)
}
