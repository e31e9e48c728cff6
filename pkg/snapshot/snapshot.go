// Package snapshot persists the evaluation state of a document.
//
// A snapshot keeps for every formula node its identity, its normalized
// formula, its last value and fingerprints of the data it reads.
// Restoring a snapshot avoids the evaluation of all nodes whose
// inputs are still unchanged.
package snapshot

import (
	"context"
	"fmt"

	"github.com/mandelsoft/fxengine/pkg/document"
	"github.com/mandelsoft/fxengine/pkg/graph"
	"github.com/mandelsoft/fxengine/pkg/reference"
	"github.com/mandelsoft/fxengine/pkg/utils"
	"github.com/mandelsoft/fxengine/pkg/value"
)

type Snapshot struct {
	Document string          `json:"document"`
	Session  string          `json:"session,omitempty"`
	Taken    utils.Timestamp `json:"taken"`
	Nodes    []NodeState     `json:"nodes,omitempty"`
}

type NodeState struct {
	Id      graph.NodeId   `json:"id"`
	Formula string         `json:"formula"`
	Value   *value.Encoded `json:"value,omitempty"`
	// Fingerprints maps the addresses of the inputs to the hash
	// of their raw content.
	Fingerprints map[string]string `json:"fingerprints,omitempty"`
}

func (s *Snapshot) Node(id graph.NodeId) *NodeState {
	for i := range s.Nodes {
		if s.Nodes[i].Id == id {
			return &s.Nodes[i]
		}
	}
	return nil
}

// Capture takes a snapshot of a document. Nodes without a
// current value are recorded without value.
func Capture(doc *document.Document) (*Snapshot, error) {
	snap := &Snapshot{
		Document: doc.Name(),
		Session:  doc.SessionId(),
		Taken:    utils.NewTimestamp(),
	}
	err := doc.Inspect(func(s *document.State) error {
		grid := s.Grid()
		for _, n := range s.Graph().Nodes() {
			ns := NodeState{
				Id:           n.Id(),
				Formula:      n.Formula().String(),
				Fingerprints: fingerprints(grid, s.Graph(), n.Inputs()),
			}
			if n.Computed() && n.State() != graph.Dirty {
				ns.Value = value.Encode(n.Value())
			}
			snap.Nodes = append(snap.Nodes, ns)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Result describes the outcome of a restore.
type Result struct {
	Created  []graph.NodeId
	Restored []graph.NodeId
	// Outdated nodes were restored, but have to be recalculated,
	// because their inputs changed.
	Outdated []graph.NodeId
}

// Restore applies a snapshot to a document. Missing formula nodes are
// created, nodes with an unchanged formula get their last value.
// Afterwards only nodes with changed inputs (and nodes not found in
// the snapshot) are recalculated.
func Restore(ctx context.Context, doc *document.Document, snap *Snapshot) (*Result, error) {
	result := &Result{}
	err := doc.Modify(ctx, true, func(s *document.State) error {
		g := s.Graph()
		for _, ns := range snap.Nodes {
			if _, ok := g.Node(ns.Id); ok {
				continue
			}
			if err := create(s, ns); err != nil {
				return err
			}
			result.Created = append(result.Created, ns.Id)
		}

		grid := s.Grid()
		for _, ns := range snap.Nodes {
			n, ok := g.Node(ns.Id)
			if !ok || n.Formula().String() != ns.Formula || ns.Value == nil {
				continue
			}
			v, err := ns.Value.Decode()
			if err != nil {
				return fmt.Errorf("node %s: %w", ns.Id, err)
			}
			s.RestoreValue(ns.Id, v)
			result.Restored = append(result.Restored, ns.Id)
			if !equal(fingerprints(grid, s.Graph(), n.Inputs()), ns.Fingerprints) {
				result.Outdated = append(result.Outdated, ns.Id)
			}
		}
		g.MarkDirty(result.Outdated...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Debug("restored snapshot of {{document}}: {{restored}} restored, {{outdated}} outdated",
		"document", snap.Document, "restored", len(result.Restored), "outdated", len(result.Outdated))
	return result, nil
}

func create(s *document.State, ns NodeState) error {
	id := ns.Id
	switch id.Kind {
	case graph.CellNode:
		return s.SetFormula(id.Unit, id.Sub, id.Name, ns.Formula)
	case graph.OtherNode:
		return s.RegisterFormula(id.Unit, id.Sub, id.Name, ns.Formula, nil)
	default:
		return fmt.Errorf("invalid node kind %q", id.Kind)
	}
}

func equal(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

////////////////////////////////////////////////////////////////////////////////

type cellContent struct {
	Formula string         `json:"formula,omitempty"`
	Value   *value.Encoded `json:"value,omitempty"`
}

func content(raw reference.CellRaw) cellContent {
	if raw.IsFormula() {
		return cellContent{Formula: raw.Formula}
	}
	return cellContent{Value: value.Encode(raw.Value)}
}

// fingerprints hashes the raw content of the inputs. For formulas
// only the normalized source is used, their results are restored
// on their own.
func fingerprints(grid reference.GridProvider, g *graph.Graph, inputs []reference.Ref) map[string]string {
	if len(inputs) == 0 {
		return nil
	}
	result := map[string]string{}
	for _, in := range inputs {
		var data interface{}
		switch r := in.(type) {
		case reference.CellRef:
			data = cells(grid, r.Range())
		case reference.RangeRef:
			data = cells(grid, r)
		case reference.FormulaRef:
			if n, ok := g.Node(graph.OtherId(r.Unit, r.Sheet, r.FormulaId)); ok {
				data = n.Formula().String()
			} else {
				data = "missing"
			}
		}
		result[in.Address()] = utils.HashData(data)
	}
	return result
}

func cells(grid reference.GridProvider, r reference.RangeRef) interface{} {
	if !grid.HasSheet(r.Unit, r.Sheet) {
		return "missing"
	}
	rows, cols := grid.Bounds(r.Unit, r.Sheet)
	if r.EndRow >= rows || r.EndCol >= cols {
		return "out of bounds"
	}
	data, err := grid.ReadRange(r.Unit, r.Sheet, r)
	if err != nil {
		return err.Error()
	}
	return utils.TransformSlice(data, func(row []reference.CellRaw) []cellContent {
		return utils.TransformSlice(row, content)
	})
}

// Ids returns the node ids of a snapshot in registration order.
func (s *Snapshot) Ids() []graph.NodeId {
	return utils.TransformSlice(s.Nodes, func(n NodeState) graph.NodeId { return n.Id })
}
