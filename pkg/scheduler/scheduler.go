// Package scheduler evaluates the dirty part of a dependency graph.
//
// A pass takes the dirty set of the graph, assigns #CYCLE! to all
// members of reference cycles and evaluates the rest level by level in
// topological order. Nodes of a level may be evaluated in parallel,
// their results are committed in registration order after all nodes of
// the level are done, so later levels see the committed values.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mandelsoft/fxengine/pkg/functions"
	"github.com/mandelsoft/fxengine/pkg/graph"
	"github.com/mandelsoft/fxengine/pkg/reference"
	"github.com/mandelsoft/fxengine/pkg/value"
)

const DefaultMaxPasses = 1000

var ErrNotConverged = fmt.Errorf("recalculation did not converge")
var ErrEvaluation = fmt.Errorf("evaluation fault")

type Scheduler struct {
	workers     int
	maxPasses   int
	evaluations atomic.Int64
}

type Option func(s *Scheduler)

// WithWorkers sets the number of goroutines used to evaluate a level.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithMaxPasses(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxPasses = n
		}
	}
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{workers: 1, maxPasses: DefaultMaxPasses}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Scheduler) Workers() int {
	return s.workers
}

// Evaluations returns the number of node evaluations done so far.
func (s *Scheduler) Evaluations() int64 {
	return s.evaluations.Load()
}

// Recalculate runs passes until the graph is clean.
func (s *Scheduler) Recalculate(ctx context.Context, g *graph.Graph, grid reference.GridProvider) (*PassResult, error) {
	total := &PassResult{}
	for i := 0; g.HasDirty(); i++ {
		if i >= s.maxPasses {
			return total, fmt.Errorf("%w after %d passes", ErrNotConverged, i)
		}
		r, err := s.Run(ctx, g, grid)
		if r != nil {
			total.add(r)
		}
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Run executes a single evaluation pass.
func (s *Scheduler) Run(ctx context.Context, g *graph.Graph, grid reference.GridProvider) (*PassResult, error) {
	result := &PassResult{}
	dirty := g.Dirty()
	if len(dirty) == 0 {
		return result, nil
	}
	for _, n := range dirty {
		if err := g.CheckNode(n.Id()); err != nil {
			log.Error("pass aborted: {{error}}", "error", err)
			return result, err
		}
	}
	log.Debug("starting pass for {{count}} dirty nodes", "count", len(dirty))

	changed := sets.New[graph.NodeId]()
	inPass := sets.New[graph.NodeId](graph.Ids(dirty)...)

	commit := func(id graph.NodeId, v value.Value) {
		if g.Commit(id, v) {
			changed.Insert(id)
			result.Changed = append(result.Changed, id)
			n, _ := g.Node(id)
			for _, r := range n.ReadBy() {
				if inPass.Has(r) {
					// keeps the change for a later pass if this one is aborted
					g.Force(r)
				} else {
					g.MarkDirty(r)
				}
			}
		}
	}

	cyclic := sets.New[graph.NodeId]()
	for _, comp := range cycles(g, dirty) {
		for _, n := range comp {
			cyclic.Insert(n.Id())
			result.Cycles = append(result.Cycles, n.Id())
			commit(n.Id(), value.ErrorCycle)
			g.SetState(n.Id(), graph.Clean)
		}
		log.Info("detected reference cycle {{cycle}}", "cycle", graph.Ids(comp))
	}

	var acyclic []*graph.Node
	for _, n := range dirty {
		if !cyclic.Has(n.Id()) {
			acyclic = append(acyclic, n)
		}
	}
	order, err := levels(acyclic)
	if err != nil {
		log.Error("pass aborted: {{error}}", "error", err)
		return result, err
	}

	resolver := reference.NewResolver(grid, g)
	for _, level := range order {
		if err := ctx.Err(); err != nil {
			result.Aborted = true
			log.Info("pass aborted after {{levels}} levels", "levels", result.Levels)
			return result, err
		}

		var todo []*graph.Node
		for _, n := range level {
			if needsEvaluation(n, changed) {
				todo = append(todo, n)
				g.SetState(n.Id(), graph.Evaluating)
			} else {
				g.Skip(n.Id())
				result.Skipped = append(result.Skipped, n.Id())
			}
		}

		values, err := s.evaluate(ctx, todo, resolver)
		if err != nil {
			for _, n := range todo {
				g.SetState(n.Id(), graph.Dirty)
			}
			log.Error("pass aborted: {{error}}", "error", err)
			return result, err
		}
		for i, n := range todo {
			result.Evaluated = append(result.Evaluated, n.Id())
			commit(n.Id(), values[i])
		}
		result.Levels++
	}
	log.Debug("pass done: {{evaluated}} evaluated, {{changed}} changed, {{skipped}} skipped",
		"evaluated", len(result.Evaluated), "changed", len(result.Changed), "skipped", len(result.Skipped))
	return result, nil
}

// needsEvaluation checks whether a dirty node has to be evaluated.
// Nodes reached by dirty propagation only are evaluated if one of
// their inputs has changed in the current pass.
func needsEvaluation(n *graph.Node, changed sets.Set[graph.NodeId]) bool {
	if n.Forced() || !n.Computed() {
		return true
	}
	for _, t := range n.Reads() {
		if changed.Has(t) {
			return true
		}
	}
	return false
}

func (s *Scheduler) evaluate(ctx context.Context, nodes []*graph.Node, resolver functions.Resolver) ([]value.Value, error) {
	values := make([]value.Value, len(nodes))
	if s.workers <= 1 || len(nodes) <= 1 {
		for i, n := range nodes {
			v, err := s.eval(n, resolver)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		return values, nil
	}

	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(s.workers)
	for i, n := range nodes {
		eg.Go(func() error {
			v, err := s.eval(n, resolver)
			values[i] = v
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return values, nil
}

func (s *Scheduler) eval(n *graph.Node, resolver functions.Resolver) (v value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("evaluation of {{node}} failed: {{panic}}\n{{stack}}", "node", n.Id(), "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %s: %v", ErrEvaluation, n.Id(), r)
		}
	}()
	s.evaluations.Add(1)
	p := n.Program()
	if p == nil {
		return value.ErrorValue, nil
	}
	id := n.Id()
	v = p.Eval(functions.NewContext(id.Unit, id.Sub, resolver))
	if v == nil {
		v = value.Blank{}
	}
	log.Trace("evaluated {{node}}: {{value}}", "node", id, "value", v)
	return v, nil
}
