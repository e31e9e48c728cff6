package scheduler

import (
	"fmt"
	"slices"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mandelsoft/fxengine/pkg/graph"
)

// cycles determines the strongly connected components of the dirty
// sub graph forming a cycle (more than one member or a self reference).
func cycles(g *graph.Graph, dirty []*graph.Node) [][]*graph.Node {
	scope := sets.New[graph.NodeId](graph.Ids(dirty)...)

	index := map[graph.NodeId]int{}
	low := map[graph.NodeId]int{}
	onStack := sets.New[graph.NodeId]()
	var stack []graph.NodeId
	var result [][]*graph.Node
	next := 0

	var visit func(n *graph.Node)
	visit = func(n *graph.Node) {
		id := n.Id()
		index[id] = next
		low[id] = next
		next++
		stack = append(stack, id)
		onStack.Insert(id)

		for _, t := range n.Reads() {
			if !scope.Has(t) {
				continue
			}
			if _, ok := index[t]; !ok {
				tn, _ := g.Node(t)
				visit(tn)
				low[id] = min(low[id], low[t])
			} else if onStack.Has(t) {
				low[id] = min(low[id], index[t])
			}
		}

		if low[id] == index[id] {
			var comp []*graph.Node
			for {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack.Delete(top)
				tn, _ := g.Node(top)
				comp = append(comp, tn)
				if top == id {
					break
				}
			}
			if len(comp) > 1 || n.ReadsNode(id) {
				slices.SortFunc(comp, bySeq)
				result = append(result, comp)
			}
		}
	}

	for _, n := range dirty {
		if _, ok := index[n.Id()]; !ok {
			visit(n)
		}
	}
	return result
}

// levels orders the given acyclic node set in topological levels.
// Within a level nodes are ordered by registration sequence.
func levels(nodes []*graph.Node) ([][]*graph.Node, error) {
	scope := map[graph.NodeId]*graph.Node{}
	for _, n := range nodes {
		scope[n.Id()] = n
	}

	degree := map[graph.NodeId]int{}
	var current []*graph.Node
	for _, n := range nodes {
		for _, t := range n.Reads() {
			if _, ok := scope[t]; ok {
				degree[n.Id()]++
			}
		}
		if degree[n.Id()] == 0 {
			current = append(current, n)
		}
	}

	var result [][]*graph.Node
	done := 0
	for len(current) > 0 {
		slices.SortFunc(current, bySeq)
		result = append(result, current)
		done += len(current)

		var next []*graph.Node
		for _, n := range current {
			for _, r := range n.ReadBy() {
				if _, ok := scope[r]; !ok {
					continue
				}
				degree[r]--
				if degree[r] == 0 {
					next = append(next, scope[r])
				}
			}
		}
		current = next
	}
	if done != len(nodes) {
		return nil, fmt.Errorf("%w: %d nodes left after ordering", graph.ErrCorrupted, len(nodes)-done)
	}
	return result, nil
}

func bySeq(a, b *graph.Node) int {
	return int(a.Seq() - b.Seq())
}
