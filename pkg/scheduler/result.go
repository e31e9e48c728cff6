package scheduler

import (
	"github.com/mandelsoft/fxengine/pkg/graph"
)

// PassResult describes the outcome of a single evaluation pass.
type PassResult struct {
	// Evaluated lists the evaluated nodes in evaluation order.
	Evaluated []graph.NodeId
	// Changed lists the nodes whose committed value changed,
	// in commit order.
	Changed []graph.NodeId
	// Cycles lists the members of detected reference cycles.
	Cycles []graph.NodeId
	// Skipped lists dirty nodes cleaned without evaluation,
	// because none of their inputs changed.
	Skipped []graph.NodeId
	Levels  int
	Aborted bool
}

func (r *PassResult) Empty() bool {
	return len(r.Evaluated) == 0 && len(r.Cycles) == 0 && len(r.Skipped) == 0
}

func (r *PassResult) add(o *PassResult) {
	r.Evaluated = append(r.Evaluated, o.Evaluated...)
	r.Changed = append(r.Changed, o.Changed...)
	r.Cycles = append(r.Cycles, o.Cycles...)
	r.Skipped = append(r.Skipped, o.Skipped...)
	r.Levels += o.Levels
	r.Aborted = r.Aborted || o.Aborted
}
