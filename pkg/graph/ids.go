package graph

import (
	"fmt"
	"strings"

	"github.com/mandelsoft/fxengine/pkg/reference"
)

type NodeKind string

const (
	CellNode  NodeKind = "cell"
	OtherNode NodeKind = "other"
)

// NodeId identifies a formula node. Cell formulas use the A1 name
// of the cell, other formulas their formula id.
type NodeId struct {
	Kind NodeKind `json:"kind"`
	Unit string   `json:"unit"`
	Sub  string   `json:"sub"`
	Name string   `json:"name"`
}

func CellId(c reference.CellRef) NodeId {
	return NodeId{Kind: CellNode, Unit: c.Unit, Sub: c.Sheet, Name: c.A1()}
}

func OtherId(unit, sub, formulaId string) NodeId {
	return NodeId{Kind: OtherNode, Unit: unit, Sub: sub, Name: formulaId}
}

func (id NodeId) String() string {
	return fmt.Sprintf("%s:%s/%s/%s", id.Kind, id.Unit, id.Sub, id.Name)
}

// Cell returns the cell of a cell node.
func (id NodeId) Cell() (reference.CellRef, bool) {
	if id.Kind != CellNode {
		return reference.CellRef{}, false
	}
	r, c, err := reference.ParseCell(id.Name)
	if err != nil {
		return reference.CellRef{}, false
	}
	return reference.NewCellRef(id.Unit, id.Sub, r, c), true
}

// FormulaRef returns the reference to an other formula node.
func (id NodeId) FormulaRef() (reference.FormulaRef, bool) {
	if id.Kind != OtherNode {
		return reference.FormulaRef{}, false
	}
	return reference.FormulaRef{Unit: id.Unit, Sheet: id.Sub, FormulaId: id.Name}, true
}

func CompareNodeId(a, b NodeId) int {
	if c := strings.Compare(string(a.Kind), string(b.Kind)); c != 0 {
		return c
	}
	if c := strings.Compare(a.Unit, b.Unit); c != 0 {
		return c
	}
	if c := strings.Compare(a.Sub, b.Sub); c != 0 {
		return c
	}
	return strings.Compare(a.Name, b.Name)
}

type sheetKey struct {
	unit, sheet string
}
