package document

import (
	"context"

	"github.com/mandelsoft/fxengine/pkg/events"
	"github.com/mandelsoft/fxengine/pkg/graph"
	"github.com/mandelsoft/fxengine/pkg/grid"
	"github.com/mandelsoft/fxengine/pkg/otherformula"
	"github.com/mandelsoft/fxengine/pkg/reference"
	"github.com/mandelsoft/fxengine/pkg/utils"
	"github.com/mandelsoft/fxengine/pkg/value"
)

// Value returns the current value of a cell. Formula cells provide
// their last computed value, missing locations #REF!.
func (d *Document) Value(unit, sheet, a1 string) (value.Value, error) {
	c, err := cellRef(unit, sheet, a1)
	if err != nil {
		return nil, err
	}
	d.lock.RLock()
	defer d.lock.RUnlock()
	return reference.NewResolver(d.workbook.Snapshot(), d.graph).Resolve(c), nil
}

// FormulaValue returns the last computed value of an other formula.
func (d *Document) FormulaValue(p otherformula.SearchParam) (value.Value, bool) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	v, ok := d.graph.FormulaValue(reference.FormulaRef{Unit: p.UnitId, Sheet: p.SubComponentId, FormulaId: p.FormulaId})
	if ok && v == nil {
		v = value.Blank{}
	}
	return v, ok
}

// Subscribe registers a change handler for a unit and optional sub
// components (an empty unit matches everything). With current=true
// the handler first gets events for all computed nodes in scope,
// the returned Sync is done when they are delivered.
func (d *Document) Subscribe(h events.Handler, current bool, unit string, subs ...string) (events.Registration, utils.Sync) {
	return d.events.RegisterHandler(h, current, unit, subs...)
}

var _ events.Lister = (*Document)(nil)

// ListEvents provides the current state for handler registrations.
func (d *Document) ListEvents(unit, sub string, atomic func()) []events.ChangeEvent {
	d.lock.RLock()
	defer d.lock.RUnlock()

	var list []events.ChangeEvent
	for _, n := range d.graph.Nodes() {
		id := n.Id()
		if (unit == "" || id.Unit == unit) && (sub == "" || id.Sub == sub) && n.Computed() && n.State() != graph.Dirty {
			list = append(list, changeEvent(n))
		}
	}
	atomic()
	return list
}

// State provides access to the internals of a document for tools
// like snapshots. It is only valid during the callback it is passed to.
type State struct {
	doc *Document
}

func (s *State) Name() string {
	return s.doc.name
}

func (s *State) Graph() *graph.Graph {
	return s.doc.graph
}

func (s *State) Grid() *grid.Snapshot {
	return s.doc.workbook.Snapshot()
}

func (s *State) Formulas() *otherformula.Registry {
	return s.doc.formulas
}

// SetFormula sets a cell formula without triggering a recalculation.
func (s *State) SetFormula(unit, sheet, a1, src string) error {
	o, err := s.doc.setFormulaOp(unit, sheet, a1, src)
	if err != nil {
		return err
	}
	return o.apply()
}

func (s *State) RegisterFormula(unit, sub, id, src string, payload interface{}) error {
	return s.doc.registerFormulaOp(otherformula.NewSearchParam(unit, sub, id), src, payload).apply()
}

// RestoreValue sets the value of a node without evaluation,
// the node gets clean. It reports whether the node exists.
func (s *State) RestoreValue(id graph.NodeId, v value.Value) bool {
	n, ok := s.doc.graph.Node(id)
	if !ok {
		return false
	}
	s.doc.graph.Restore(id, v)
	if c, ok := id.Cell(); ok {
		s.doc.workbook.SetComputed(c, n.Formula().String(), v)
	}
	return true
}

// Inspect calls f with shared access to the document state.
// f must not modify the state.
func (d *Document) Inspect(f func(s *State) error) error {
	d.lock.RLock()
	defer d.lock.RUnlock()
	if d.disposed {
		return ErrDisposed
	}
	return f(&State{d})
}

// Modify calls f with exclusive access to the document state after
// applying pending mutations. Afterwards the document is recalculated,
// if recalc is set.
func (d *Document) Modify(ctx context.Context, recalc bool, f func(s *State) error) error {
	return d.process(ctx, recalc, func() error { return f(&State{d}) })
}
