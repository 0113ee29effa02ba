package cfg

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// Loop is a natural loop identified by a backward edge Latch -> Header.
type Loop struct {
	Header NodeID
	Latch  NodeID
	Nodes  []NodeID // sorted, header and latch included
}

// Contains reports whether id belongs to the loop body.
func (l *Loop) Contains(id NodeID) bool {
	_, found := slices.BinarySearch(l.Nodes, id)
	return found
}

// Metrics summarises the shape of a graph.
type Metrics struct {
	NodeCount            int  `json:"node_count"`
	EdgeCount            int  `json:"edge_count"`
	ReachableNodes       int  `json:"reachable_nodes"`
	UnreachableNodes     int  `json:"unreachable_nodes"`
	LoopCount            int  `json:"loop_count"`
	CyclomaticComplexity int  `json:"cyclomatic_complexity"`
	Reducible            bool `json:"reducible"`
}

// Reachable returns the set of nodes reachable from root.
func (g *Graph) Reachable() mapset.Set[NodeID] {
	reachable := mapset.NewThreadUnsafeSet[NodeID]()
	worklist := []NodeID{g.Root().ID}
	for len(worklist) > 0 {
		id := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if !reachable.Add(id) {
			continue
		}
		worklist = append(worklist, g.Children(id)...)
	}
	return reachable
}

// Dominators computes, for every reachable node, the set of nodes that
// dominate it. Unreachable nodes are absent from the result.
func (g *Graph) Dominators() map[NodeID]mapset.Set[NodeID] {
	reachable := g.Reachable()
	root := g.Root().ID
	dominators := make(map[NodeID]mapset.Set[NodeID], reachable.Cardinality())

	// Entry node dominates only itself; all others start with every node.
	for _, n := range g.nodes {
		if !reachable.Contains(n.ID) {
			continue
		}
		if n.ID == root {
			dominators[n.ID] = mapset.NewThreadUnsafeSet(root)
		} else {
			dominators[n.ID] = reachable.Clone()
		}
	}

	changed := true
	for changed {
		changed = false
		for _, n := range g.nodes {
			if n.ID == root || !reachable.Contains(n.ID) {
				continue
			}

			var newDoms mapset.Set[NodeID]
			for _, pred := range g.parents[n.ID] {
				predDoms, ok := dominators[pred]
				if !ok {
					continue
				}
				if newDoms == nil {
					newDoms = predDoms.Clone()
				} else {
					newDoms = newDoms.Intersect(predDoms)
				}
			}
			if newDoms == nil {
				newDoms = mapset.NewThreadUnsafeSet[NodeID]()
			}
			newDoms.Add(n.ID)

			if !newDoms.Equal(dominators[n.ID]) {
				dominators[n.ID] = newDoms
				changed = true
			}
		}
	}

	return dominators
}

// RetreatingEdges returns the edges classified as back edges by the
// depth-first traversal, i.e. edges into a tree ancestor (or self).
func (g *Graph) RetreatingEdges() []Edge {
	var out []Edge
	for _, e := range g.edges {
		if g.edgeTypes[e] == EdgeBack {
			out = append(out, e)
		}
	}
	return out
}

// BackwardEdges returns the retreating edges whose target dominates their
// source.
func (g *Graph) BackwardEdges() []Edge {
	doms := g.Dominators()
	var out []Edge
	for _, e := range g.RetreatingEdges() {
		if d, ok := doms[e.From]; ok && d.Contains(e.To) {
			out = append(out, e)
		}
	}
	return out
}

// AllRetreatingEdgesAreBackwards reports whether every retreating edge is a
// backward edge, which holds exactly for reducible graphs.
func (g *Graph) AllRetreatingEdgesAreBackwards() bool {
	return len(g.RetreatingEdges()) == len(g.BackwardEdges())
}

// NaturalCyclesForBackwardEdges returns the natural loop of every backward
// edge n -> h: h plus every node that reaches n without passing through h.
// Each edge is confirmed against the spanning tree before its loop is built.
func (g *Graph) NaturalCyclesForBackwardEdges() []*Loop {
	tree := NewDepthSpanningTree(g)
	reachable := g.Reachable()
	var loops []*Loop
	for _, e := range g.BackwardEdges() {
		if e.From != e.To && !tree.FindBackwardPath(e.From, e.To) {
			continue
		}
		loops = append(loops, g.naturalLoop(e.To, e.From, reachable))
	}
	return loops
}

func (g *Graph) naturalLoop(header, latch NodeID, reachable mapset.Set[NodeID]) *Loop {
	body := mapset.NewThreadUnsafeSet(header)
	worklist := make([]NodeID, 0)
	if body.Add(latch) {
		worklist = append(worklist, latch)
	}

	for len(worklist) > 0 {
		node := worklist[0]
		worklist = worklist[1:]
		for _, pred := range g.parents[node] {
			if reachable.Contains(pred) && body.Add(pred) {
				worklist = append(worklist, pred)
			}
		}
	}

	nodes := body.ToSlice()
	slices.Sort(nodes)
	return &Loop{Header: header, Latch: latch, Nodes: nodes}
}

// ComputeMetrics computes shape metrics for the graph.
func (g *Graph) ComputeMetrics() *Metrics {
	m := &Metrics{
		NodeCount: len(g.nodes),
		EdgeCount: len(g.edges),
	}

	// Cyclomatic complexity: E - N + 2 (for connected graph)
	m.CyclomaticComplexity = m.EdgeCount - m.NodeCount + 2

	m.ReachableNodes = g.Reachable().Cardinality()
	m.UnreachableNodes = m.NodeCount - m.ReachableNodes
	m.LoopCount = len(g.NaturalCyclesForBackwardEdges())
	m.Reducible = g.AllRetreatingEdgesAreBackwards()
	return m
}
