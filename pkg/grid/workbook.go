// Package grid provides an in-memory grid data provider: a workbook
// of units, each with a set of sheets holding sparse cells.
package grid

import (
	"fmt"
	"sync"

	"github.com/mandelsoft/fxengine/pkg/reference"
	"github.com/mandelsoft/fxengine/pkg/value"
)

const (
	DefaultRows = 1000
	DefaultCols = 26
)

var ErrNotFound = fmt.Errorf("not found")
var ErrOutOfBounds = fmt.Errorf("cell out of bounds")

type cellKey struct {
	row, col int
}

type sheet struct {
	rows, cols int
	cells      map[cellKey]reference.CellRaw
}

func newSheet(rows, cols int) *sheet {
	if rows <= 0 {
		rows = DefaultRows
	}
	if cols <= 0 {
		cols = DefaultCols
	}
	return &sheet{rows: rows, cols: cols, cells: map[cellKey]reference.CellRaw{}}
}

func (s *sheet) copy() *sheet {
	n := &sheet{rows: s.rows, cols: s.cols, cells: make(map[cellKey]reference.CellRaw, len(s.cells))}
	for k, v := range s.cells {
		n.cells[k] = v
	}
	return n
}

type unit struct {
	sheets map[string]*sheet
}

// Workbook is the mutable grid. Readers work on snapshots, so
// a running evaluation never blocks writers.
type Workbook struct {
	lock     sync.RWMutex
	version  int64
	units    map[string]*unit
	snapshot *Snapshot
}

func New() *Workbook {
	return &Workbook{units: map[string]*unit{}}
}

func (w *Workbook) modified() {
	w.version++
	w.snapshot = nil
}

func (w *Workbook) Version() int64 {
	w.lock.RLock()
	defer w.lock.RUnlock()
	return w.version
}

func (w *Workbook) AddUnit(name string) {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.addUnit(name)
}

func (w *Workbook) addUnit(name string) *unit {
	u := w.units[name]
	if u == nil {
		u = &unit{sheets: map[string]*sheet{}}
		w.units[name] = u
		w.modified()
	}
	return u
}

// AddSheet adds a sheet with the given bounds, the unit is created
// on demand. Non-positive bounds are defaulted. The bounds of an
// existing sheet are updated.
func (w *Workbook) AddSheet(unitName, sheetName string, rows, cols int) {
	w.lock.Lock()
	defer w.lock.Unlock()

	u := w.addUnit(unitName)
	n := newSheet(rows, cols)
	if s := u.sheets[sheetName]; s != nil {
		n.cells = s.cells
	}
	u.sheets[sheetName] = n
	w.modified()
}

func (w *Workbook) RemoveSheet(unitName, sheetName string) bool {
	w.lock.Lock()
	defer w.lock.Unlock()

	u := w.units[unitName]
	if u == nil || u.sheets[sheetName] == nil {
		return false
	}
	delete(u.sheets, sheetName)
	w.modified()
	return true
}

func (w *Workbook) RemoveUnit(unitName string) bool {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.units[unitName] == nil {
		return false
	}
	delete(w.units, unitName)
	w.modified()
	return true
}

func (w *Workbook) lookup(cell reference.CellRef) (*sheet, error) {
	u := w.units[cell.Unit]
	if u == nil {
		return nil, fmt.Errorf("unit %q: %w", cell.Unit, ErrNotFound)
	}
	s := u.sheets[cell.Sheet]
	if s == nil {
		return nil, fmt.Errorf("sheet %q in unit %q: %w", cell.Sheet, cell.Unit, ErrNotFound)
	}
	if cell.Row < 0 || cell.Col < 0 || cell.Row >= s.rows || cell.Col >= s.cols {
		return nil, fmt.Errorf("%s: %w", cell, ErrOutOfBounds)
	}
	return s, nil
}

// SetCell sets the raw content of a cell.
func (w *Workbook) SetCell(cell reference.CellRef, raw reference.CellRaw) error {
	w.lock.Lock()
	defer w.lock.Unlock()

	s, err := w.lookup(cell)
	if err != nil {
		return err
	}
	s.cells[cellKey{cell.Row, cell.Col}] = raw
	w.modified()
	return nil
}

// SetComputed stores the committed result of a formula cell.
// It is ignored, if the cell is no formula cell (anymore).
func (w *Workbook) SetComputed(cell reference.CellRef, formula string, v value.Value) {
	w.lock.Lock()
	defer w.lock.Unlock()

	s, err := w.lookup(cell)
	if err != nil {
		return
	}
	k := cellKey{cell.Row, cell.Col}
	raw, ok := s.cells[k]
	if !ok || raw.Formula != formula {
		return
	}
	raw.Value = v
	s.cells[k] = raw
	w.modified()
}

func (w *Workbook) ClearCell(cell reference.CellRef) error {
	w.lock.Lock()
	defer w.lock.Unlock()

	s, err := w.lookup(cell)
	if err != nil {
		return err
	}
	k := cellKey{cell.Row, cell.Col}
	if _, ok := s.cells[k]; ok {
		delete(s.cells, k)
		w.modified()
	}
	return nil
}

func (w *Workbook) Cell(cell reference.CellRef) (reference.CellRaw, bool) {
	w.lock.RLock()
	defer w.lock.RUnlock()

	s, err := w.lookup(cell)
	if err != nil {
		return reference.CellRaw{}, false
	}
	raw, ok := s.cells[cellKey{cell.Row, cell.Col}]
	return raw, ok
}

// Snapshot returns an immutable view of the current state.
// It is shared until the next modification.
func (w *Workbook) Snapshot() *Snapshot {
	w.lock.RLock()
	s := w.snapshot
	w.lock.RUnlock()
	if s != nil {
		return s
	}

	w.lock.Lock()
	defer w.lock.Unlock()
	if w.snapshot == nil {
		w.snapshot = w.createSnapshot()
	}
	return w.snapshot
}

func (w *Workbook) createSnapshot() *Snapshot {
	s := &Snapshot{version: w.version, units: make(map[string]map[string]*sheet, len(w.units))}
	for un, u := range w.units {
		sheets := make(map[string]*sheet, len(u.sheets))
		for sn, sh := range u.sheets {
			sheets[sn] = sh.copy()
		}
		s.units[un] = sheets
	}
	return s
}
