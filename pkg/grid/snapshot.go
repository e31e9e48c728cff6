package grid

import (
	"fmt"
	"slices"

	"github.com/mandelsoft/fxengine/pkg/reference"
	"github.com/mandelsoft/fxengine/pkg/utils"
)

// Snapshot is an immutable view of a workbook.
type Snapshot struct {
	version int64
	units   map[string]map[string]*sheet
}

var _ reference.GridProvider = (*Snapshot)(nil)

func (s *Snapshot) Version() int64 {
	return s.version
}

func (s *Snapshot) HasUnit(unit string) bool {
	_, ok := s.units[unit]
	return ok
}

func (s *Snapshot) HasSheet(unit, sheet string) bool {
	return s.sheet(unit, sheet) != nil
}

func (s *Snapshot) sheet(unit, sheet string) *sheet {
	return s.units[unit][sheet]
}

func (s *Snapshot) Bounds(unit, sheet string) (int, int) {
	sh := s.sheet(unit, sheet)
	if sh == nil {
		return 0, 0
	}
	return sh.rows, sh.cols
}

func (s *Snapshot) ReadCell(unit, sheet string, row, col int) (reference.CellRaw, bool) {
	sh := s.sheet(unit, sheet)
	if sh == nil {
		return reference.CellRaw{}, false
	}
	raw, ok := sh.cells[cellKey{row, col}]
	return raw, ok
}

func (s *Snapshot) ReadRange(unit, sheet string, rng reference.RangeRef) ([][]reference.CellRaw, error) {
	sh := s.sheet(unit, sheet)
	if sh == nil {
		return nil, fmt.Errorf("sheet %q in unit %q: %w", sheet, unit, ErrNotFound)
	}
	if rng.StartRow < 0 || rng.StartCol < 0 || rng.EndRow >= sh.rows || rng.EndCol >= sh.cols {
		return nil, fmt.Errorf("%s: %w", rng, ErrOutOfBounds)
	}
	result := make([][]reference.CellRaw, rng.Rows())
	for r := range result {
		result[r] = make([]reference.CellRaw, rng.Cols())
		for c := range result[r] {
			result[r][c] = sh.cells[cellKey{rng.StartRow + r, rng.StartCol + c}]
		}
	}
	return result, nil
}

func (s *Snapshot) Units() []string {
	return utils.OrderedMapKeys(s.units)
}

func (s *Snapshot) Sheets(unit string) []string {
	return utils.OrderedMapKeys(s.units[unit])
}

// Cell is a non-empty cell of a sheet.
type Cell struct {
	reference.CellRef
	reference.CellRaw
}

// Cells returns the non-empty cells of a sheet in row major order.
func (s *Snapshot) Cells(unit, sheet string) []Cell {
	sh := s.sheet(unit, sheet)
	if sh == nil {
		return nil
	}
	var result []Cell
	for k, raw := range sh.cells {
		result = append(result, Cell{reference.NewCellRef(unit, sheet, k.row, k.col), raw})
	}
	slices.SortFunc(result, func(a, b Cell) int {
		if a.Row != b.Row {
			return a.Row - b.Row
		}
		return a.Col - b.Col
	})
	return result
}
