package graph

import (
	"slices"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mandelsoft/fxengine/pkg/expression"
	"github.com/mandelsoft/fxengine/pkg/functions"
	"github.com/mandelsoft/fxengine/pkg/reference"
	"github.com/mandelsoft/fxengine/pkg/value"
)

type State int

const (
	Clean State = iota
	Dirty
	Evaluating
	// Error is the state of a node whose last result is an error value.
	Error
)

func (s State) String() string {
	switch s {
	case Clean:
		return "Clean"
	case Dirty:
		return "Dirty"
	case Evaluating:
		return "Evaluating"
	case Error:
		return "Error"
	}
	return "Unknown"
}

type Node struct {
	id      NodeId
	seq     int64
	formula *expression.Formula
	program functions.Program
	inputs  []reference.Ref

	value value.Value
	state State
	// forced nodes have to be evaluated in the next pass,
	// because their own formula or a raw input changed.
	forced bool

	reads  sets.Set[NodeId]
	readBy sets.Set[NodeId]
}

func newNode(id NodeId, seq int64) *Node {
	return &Node{
		id:     id,
		seq:    seq,
		state:  Dirty,
		forced: true,
		reads:  sets.New[NodeId](),
		readBy: sets.New[NodeId](),
	}
}

func (n *Node) Id() NodeId {
	return n.id
}

// Seq is the registration sequence number.
func (n *Node) Seq() int64 {
	return n.seq
}

func (n *Node) Formula() *expression.Formula {
	return n.formula
}

func (n *Node) Program() functions.Program {
	return n.program
}

// Inputs returns the declared references of the formula.
func (n *Node) Inputs() []reference.Ref {
	return slices.Clone(n.inputs)
}

// Value returns the last committed value, nil if never computed.
func (n *Node) Value() value.Value {
	return n.value
}

func (n *Node) State() State {
	return n.state
}

func (n *Node) Forced() bool {
	return n.forced
}

func (n *Node) Computed() bool {
	return n.value != nil
}

// Reads returns the nodes read by this node, ordered by id.
func (n *Node) Reads() []NodeId {
	return sortedIds(n.reads)
}

// ReadBy returns the nodes reading this node, ordered by id.
func (n *Node) ReadBy() []NodeId {
	return sortedIds(n.readBy)
}

// ReadsNode checks for a direct dependency.
func (n *Node) ReadsNode(id NodeId) bool {
	return n.reads.Has(id)
}

func sortedIds(s sets.Set[NodeId]) []NodeId {
	list := s.UnsortedList()
	slices.SortFunc(list, CompareNodeId)
	return list
}
