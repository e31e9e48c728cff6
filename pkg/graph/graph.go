// Package graph implements the formula dependency graph.
//
// Nodes are cell formulas and other formulas. An edge from node A to
// node B means A reads the result of B. Raw (non-formula) cell inputs
// are indexed by cell and by range, so that an edit of a raw cell
// dirties all its readers. Edges to formulas not registered yet are
// kept in the reader indexes and linked when the target appears.
//
// A graph is not safe for concurrent modification, the owner has
// to serialize all mutations. Read access during an evaluation pass
// is allowed concurrently.
package graph

import (
	"fmt"
	"slices"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mandelsoft/fxengine/pkg/expression"
	"github.com/mandelsoft/fxengine/pkg/functions"
	"github.com/mandelsoft/fxengine/pkg/reference"
	"github.com/mandelsoft/fxengine/pkg/utils"
	"github.com/mandelsoft/fxengine/pkg/value"
)

var ErrCorrupted = fmt.Errorf("corrupted dependency graph")
var ErrNotFound = fmt.Errorf("node not found")
var ErrExists = fmt.Errorf("node already exists")

type Graph struct {
	nodes map[NodeId]*Node
	seq   int64

	// cell nodes per sheet
	cells map[sheetKey]sets.Set[NodeId]

	// reader indexes
	cellReaders    map[reference.CellRef]sets.Set[NodeId]
	rangeReaders   map[sheetKey]map[NodeId][]reference.RangeRef
	formulaReaders map[NodeId]sets.Set[NodeId]
}

var _ reference.ValueSource = (*Graph)(nil)

func New() *Graph {
	return &Graph{
		nodes:          map[NodeId]*Node{},
		cells:          map[sheetKey]sets.Set[NodeId]{},
		cellReaders:    map[reference.CellRef]sets.Set[NodeId]{},
		rangeReaders:   map[sheetKey]map[NodeId][]reference.RangeRef{},
		formulaReaders: map[NodeId]sets.Set[NodeId]{},
	}
}

func (g *Graph) Len() int {
	return len(g.nodes)
}

func (g *Graph) Node(id NodeId) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes ordered by registration sequence.
func (g *Graph) Nodes() []*Node {
	list := utils.MapElements(g.nodes)
	slices.SortFunc(list, bySeq)
	return list
}

func bySeq(a, b *Node) int {
	return int(a.seq - b.seq)
}

// AddNode adds a new formula node. The node is dirty and
// forced to be evaluated with the next pass. Readers waiting
// for this node are linked and dirtied.
func (g *Graph) AddNode(id NodeId, f *expression.Formula, p functions.Program) (*Node, error) {
	if _, ok := g.nodes[id]; ok {
		return nil, fmt.Errorf("%s: %w", id, ErrExists)
	}
	g.seq++
	n := newNode(id, g.seq)
	g.nodes[id] = n
	if c, ok := id.Cell(); ok {
		readerSet(g.cells, sheetKey{c.Unit, c.Sheet}).Insert(id)
	}
	g.setFormula(n, f, p)

	readers := g.readersOf(id)
	for r := range readers {
		g.link(r, id)
	}
	g.MarkDirty(append(readers.UnsortedList(), id)...)
	log.Debug("added node {{node}} ({{readers}} readers)", "node", id, "readers", readers.Len())
	return n, nil
}

// SetNodeFormula replaces the formula of an existing node
// and relinks its dependencies.
func (g *Graph) SetNodeFormula(id NodeId, f *expression.Formula, p functions.Program) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	g.unlinkInputs(n)
	g.setFormula(n, f, p)
	g.MarkDirty(id)
	log.Debug("updated formula of node {{node}}", "node", id)
	return nil
}

// SetNode adds or updates a node.
func (g *Graph) SetNode(id NodeId, f *expression.Formula, p functions.Program) (*Node, error) {
	if n, ok := g.nodes[id]; ok {
		return n, g.SetNodeFormula(id, f, p)
	}
	return g.AddNode(id, f, p)
}

// RemoveNode removes a node. Its readers are unlinked and dirtied,
// they keep waiting for the node to reappear.
func (g *Graph) RemoveNode(id NodeId) bool {
	n, ok := g.nodes[id]
	if !ok {
		return false
	}
	readers := n.readBy.UnsortedList()
	for _, r := range readers {
		g.unlink(r, id)
	}
	g.unlinkInputs(n)
	delete(g.nodes, id)
	if c, ok := id.Cell(); ok {
		if s := g.cells[sheetKey{c.Unit, c.Sheet}]; s != nil {
			s.Delete(id)
		}
	}
	g.markForced(readers...)
	log.Debug("removed node {{node}}", "node", id)
	return true
}

// RemoveSheet removes all nodes of a sheet and dirties all readers
// of the sheet's cells and formulas.
func (g *Graph) RemoveSheet(unit, sheet string) []NodeId {
	return g.remove(func(k sheetKey) bool { return k.unit == unit && k.sheet == sheet })
}

func (g *Graph) RemoveUnit(unit string) []NodeId {
	return g.remove(func(k sheetKey) bool { return k.unit == unit })
}

func (g *Graph) remove(match func(k sheetKey) bool) []NodeId {
	var removed []NodeId
	for _, n := range g.Nodes() {
		if match(sheetKey{n.id.Unit, n.id.Sub}) {
			g.RemoveNode(n.id)
			removed = append(removed, n.id)
		}
	}

	g.markForced(g.readersIn(match)...)
	return removed
}

// MarkSheetDirty dirties all readers of cells and formulas of a sheet.
// It is used when a sheet appears or changes its bounds.
func (g *Graph) MarkSheetDirty(unit, sheet string) {
	g.markForced(g.readersIn(func(k sheetKey) bool { return k.unit == unit && k.sheet == sheet })...)
}

func (g *Graph) readersIn(match func(k sheetKey) bool) []NodeId {
	readers := sets.New[NodeId]()
	for c, s := range g.cellReaders {
		if match(sheetKey{c.Unit, c.Sheet}) {
			readers.Insert(s.UnsortedList()...)
		}
	}
	for k, m := range g.rangeReaders {
		if match(k) {
			readers.Insert(utils.MapKeys(m)...)
		}
	}
	for id, s := range g.formulaReaders {
		if match(sheetKey{id.Unit, id.Sub}) {
			readers.Insert(s.UnsortedList()...)
		}
	}
	return readers.UnsortedList()
}

////////////////////////////////////////////////////////////////////////////////

func (g *Graph) setFormula(n *Node, f *expression.Formula, p functions.Program) {
	n.formula = f
	n.program = p
	n.inputs = nil
	if f == nil {
		return
	}
	n.inputs = f.References()
	for _, in := range n.inputs {
		switch r := in.(type) {
		case reference.CellRef:
			readerSet(g.cellReaders, r).Insert(n.id)
			if _, ok := g.nodes[CellId(r)]; ok {
				g.link(n.id, CellId(r))
			}
		case reference.RangeRef:
			k := sheetKey{r.Unit, r.Sheet}
			m := g.rangeReaders[k]
			if m == nil {
				m = map[NodeId][]reference.RangeRef{}
				g.rangeReaders[k] = m
			}
			m[n.id] = append(m[n.id], r)
			for c := range g.cells[k] {
				if cell, _ := c.Cell(); r.Contains(cell) {
					g.link(n.id, c)
				}
			}
		case reference.FormulaRef:
			t := OtherId(r.Unit, r.Sheet, r.FormulaId)
			readerSet(g.formulaReaders, t).Insert(n.id)
			if _, ok := g.nodes[t]; ok {
				g.link(n.id, t)
			}
		}
	}
}

func (g *Graph) unlinkInputs(n *Node) {
	for _, t := range n.reads.UnsortedList() {
		g.unlink(n.id, t)
	}
	for _, in := range n.inputs {
		switch r := in.(type) {
		case reference.CellRef:
			if s := g.cellReaders[r]; s != nil {
				s.Delete(n.id)
				if s.Len() == 0 {
					delete(g.cellReaders, r)
				}
			}
		case reference.RangeRef:
			k := sheetKey{r.Unit, r.Sheet}
			if m := g.rangeReaders[k]; m != nil {
				delete(m, n.id)
				if len(m) == 0 {
					delete(g.rangeReaders, k)
				}
			}
		case reference.FormulaRef:
			t := OtherId(r.Unit, r.Sheet, r.FormulaId)
			if s := g.formulaReaders[t]; s != nil {
				s.Delete(n.id)
				if s.Len() == 0 {
					delete(g.formulaReaders, t)
				}
			}
		}
	}
	n.inputs = nil
}

// readersOf returns the nodes declaring a reference to the given node.
func (g *Graph) readersOf(id NodeId) sets.Set[NodeId] {
	result := sets.New[NodeId]()
	if c, ok := id.Cell(); ok {
		result = result.Union(g.CellReaders(c))
	} else {
		if s := g.formulaReaders[id]; s != nil {
			result.Insert(s.UnsortedList()...)
		}
	}
	return result
}

// CellReaders returns the nodes reading the cell directly or by
// a range.
func (g *Graph) CellReaders(c reference.CellRef) sets.Set[NodeId] {
	result := sets.New[NodeId]()
	if s := g.cellReaders[c]; s != nil {
		result.Insert(s.UnsortedList()...)
	}
	for id, ranges := range g.rangeReaders[sheetKey{c.Unit, c.Sheet}] {
		for _, r := range ranges {
			if r.Contains(c) {
				result.Insert(id)
				break
			}
		}
	}
	return result
}

func (g *Graph) link(reader, target NodeId) {
	r, t := g.nodes[reader], g.nodes[target]
	r.reads.Insert(target)
	if t != nil {
		t.readBy.Insert(reader)
	}
}

func (g *Graph) unlink(reader, target NodeId) {
	if r := g.nodes[reader]; r != nil {
		r.reads.Delete(target)
	}
	if t := g.nodes[target]; t != nil {
		t.readBy.Delete(reader)
	}
}

// Link adds an explicit dependency edge. The target is not
// validated, Check reports edges to missing nodes.
func (g *Graph) Link(reader, target NodeId) error {
	if _, ok := g.nodes[reader]; !ok {
		return fmt.Errorf("%s: %w", reader, ErrNotFound)
	}
	g.link(reader, target)
	return nil
}

////////////////////////////////////////////////////////////////////////////////

// MarkDirty marks the given nodes as forced to be evaluated and
// all transitive readers as dirty. Each node is visited once.
func (g *Graph) MarkDirty(ids ...NodeId) {
	visited := sets.New[NodeId]()
	queue := make([]NodeId, 0, len(ids))
	for _, id := range ids {
		if n := g.nodes[id]; n != nil {
			n.forced = true
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited.Has(id) {
			continue
		}
		visited.Insert(id)
		n := g.nodes[id]
		if n == nil {
			continue
		}
		n.state = Dirty
		for r := range n.readBy {
			if !visited.Has(r) {
				queue = append(queue, r)
			}
		}
	}
	if visited.Len() > 0 {
		log.Trace("marked {{count}} nodes dirty", "count", visited.Len())
	}
}

func (g *Graph) markForced(ids ...NodeId) {
	if len(ids) > 0 {
		g.MarkDirty(ids...)
	}
}

// Force marks a dirty node to be evaluated, because one of its
// inputs changed. Clean nodes are not affected.
func (g *Graph) Force(id NodeId) {
	if n := g.nodes[id]; n != nil && n.state == Dirty {
		n.forced = true
	}
}

// MarkCellDirty handles the modification of raw cells.
func (g *Graph) MarkCellDirty(cells ...reference.CellRef) {
	readers := sets.New[NodeId]()
	for _, c := range cells {
		readers = readers.Union(g.CellReaders(c))
	}
	g.markForced(readers.UnsortedList()...)
}

// Dirty returns the dirty nodes ordered by registration sequence.
func (g *Graph) Dirty() []*Node {
	var list []*Node
	for _, n := range g.nodes {
		if n.state == Dirty {
			list = append(list, n)
		}
	}
	slices.SortFunc(list, bySeq)
	return list
}

func (g *Graph) HasDirty() bool {
	for _, n := range g.nodes {
		if n.state == Dirty {
			return true
		}
	}
	return false
}

////////////////////////////////////////////////////////////////////////////////

// SetState is used by an evaluator to track the evaluation state.
func (g *Graph) SetState(id NodeId, s State) {
	if n := g.nodes[id]; n != nil {
		n.state = s
	}
}

// Commit stores the result of an evaluation. The node gets clean
// (or Error for error values) and is not forced anymore. It reports
// whether the value changed.
func (g *Graph) Commit(id NodeId, v value.Value) bool {
	n := g.nodes[id]
	if n == nil {
		return false
	}
	changed := n.value == nil || !value.Equal(n.value, v)
	n.value = v
	n.forced = false
	if value.IsError(v) {
		n.state = Error
	} else {
		n.state = Clean
	}
	return changed
}

// Skip marks a dirty node clean without evaluation, because none
// of its inputs changed.
func (g *Graph) Skip(id NodeId) {
	if n := g.nodes[id]; n != nil {
		n.forced = false
		if value.IsError(n.value) {
			n.state = Error
		} else {
			n.state = Clean
		}
	}
}

// Restore sets the value of a node without evaluation.
func (g *Graph) Restore(id NodeId, v value.Value) {
	g.Commit(id, v)
}

////////////////////////////////////////////////////////////////////////////////

// CellValue returns the current result of a formula cell.
func (g *Graph) CellValue(c reference.CellRef) (value.Value, bool) {
	n, ok := g.nodes[CellId(c)]
	if !ok {
		return nil, false
	}
	return n.value, true
}

// FormulaValue returns the current result of an other formula.
func (g *Graph) FormulaValue(r reference.FormulaRef) (value.Value, bool) {
	n, ok := g.nodes[OtherId(r.Unit, r.Sheet, r.FormulaId)]
	if !ok {
		return nil, false
	}
	return n.value, true
}

////////////////////////////////////////////////////////////////////////////////

// Check verifies the mutual consistency of the adjacency sets.
func (g *Graph) Check() error {
	for _, n := range g.Nodes() {
		if err := g.CheckNode(n.id); err != nil {
			return err
		}
	}
	return nil
}

// CheckNode verifies the edges of a single node.
func (g *Graph) CheckNode(id NodeId) error {
	n := g.nodes[id]
	if n == nil {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	for _, t := range sortedIds(n.reads) {
		tn := g.nodes[t]
		if tn == nil {
			return fmt.Errorf("%w: %s reads missing node %s", ErrCorrupted, id, t)
		}
		if !tn.readBy.Has(id) {
			return fmt.Errorf("%w: %s reads %s, but is not registered as reader", ErrCorrupted, id, t)
		}
	}
	for _, r := range sortedIds(n.readBy) {
		rn := g.nodes[r]
		if rn == nil {
			return fmt.Errorf("%w: %s is read by missing node %s", ErrCorrupted, id, r)
		}
		if !rn.reads.Has(id) {
			return fmt.Errorf("%w: %s is read by %s, which does not read it", ErrCorrupted, id, r)
		}
	}
	return nil
}

func readerSet[K comparable](m map[K]sets.Set[NodeId], k K) sets.Set[NodeId] {
	s, ok := m[k]
	if !ok {
		s = sets.New[NodeId]()
		m[k] = s
	}
	return s
}

// Ids maps a node list to its ids.
func Ids(nodes []*Node) []NodeId {
	return utils.TransformSlice(nodes, (*Node).Id)
}
