package cfg

import (
	"fmt"
	"sort"
	"strings"
)

// DepthSpanningTree is the depth-first spanning tree of a graph from its root.
// It depends only on topology, so it stays valid while instructions change.
type DepthSpanningTree struct {
	graph   *Graph
	numbers map[NodeID]int
	parent  map[NodeID]NodeID
	edges   []Edge
}

// NewDepthSpanningTree builds the tree. A node is numbered when first
// discovered, starting with 0 at the root; the direct child is explored
// before the goto child.
func NewDepthSpanningTree(g *Graph) *DepthSpanningTree {
	t := &DepthSpanningTree{
		graph:   g,
		numbers: make(map[NodeID]int),
		parent:  make(map[NodeID]NodeID),
	}

	type frame struct {
		id       NodeID
		children []NodeID
		next     int
	}

	root := g.Root().ID
	current := 0
	t.numbers[root] = current
	stack := []*frame{{id: root, children: g.Children(root)}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.children) {
			stack = stack[:len(stack)-1]
			continue
		}
		child := top.children[top.next]
		top.next++
		if _, seen := t.numbers[child]; seen {
			continue
		}

		kind := EdgeDirect
		if d, ok := g.Node(top.id).DirectChild(); !ok || d != child {
			kind = EdgeGoto
		}
		t.edges = append(t.edges, Edge{From: top.id, To: child, Kind: kind})
		t.parent[child] = top.id

		current++
		t.numbers[child] = current
		stack = append(stack, &frame{id: child, children: g.Children(child)})
	}

	return t
}

// Number returns the visitation number of id.
func (t *DepthSpanningTree) Number(id NodeID) (int, bool) {
	n, ok := t.numbers[id]
	return n, ok
}

// Numbers returns a copy of the node numbering.
func (t *DepthSpanningTree) Numbers() map[NodeID]int {
	out := make(map[NodeID]int, len(t.numbers))
	for k, v := range t.numbers {
		out[k] = v
	}
	return out
}

// Contains reports whether id was reached from the root.
func (t *DepthSpanningTree) Contains(id NodeID) bool {
	_, ok := t.numbers[id]
	return ok
}

// TreeParent returns the node whose tree edge discovered id.
func (t *DepthSpanningTree) TreeParent(id NodeID) (NodeID, bool) {
	p, ok := t.parent[id]
	return p, ok
}

// TreeEdges returns the tree edges in discovery order.
func (t *DepthSpanningTree) TreeEdges() []Edge {
	out := make([]Edge, len(t.edges))
	copy(out, t.edges)
	return out
}

// FindBackwardPath follows incoming tree edges upward from source and reports
// whether target is met. It returns false when source is not in the tree or
// has no incoming tree edge, and never treats source as its own ancestor.
func (t *DepthSpanningTree) FindBackwardPath(source, target NodeID) bool {
	current, ok := t.parent[source]
	for ok {
		if current == target {
			return true
		}
		current, ok = t.parent[current]
	}
	return false
}

// IsAncestor reports whether a is b or a proper tree ancestor of b.
func (t *DepthSpanningTree) IsAncestor(a, b NodeID) bool {
	if a == b {
		return t.Contains(a)
	}
	return t.FindBackwardPath(b, a)
}

// DOT renders the tree in Graphviz format. Vertices are labelled with the
// label of their block's first instruction.
func (t *DepthSpanningTree) DOT() string {
	var sb strings.Builder
	sb.WriteString("digraph DST {\n")
	sb.WriteString("  node [shape=box];\n\n")

	ids := make([]NodeID, 0, len(t.numbers))
	for id := range t.numbers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return t.numbers[ids[i]] < t.numbers[ids[j]] })

	for _, id := range ids {
		node := t.graph.Node(id)
		fmt.Fprintf(&sb, "  %d [label=\"%s\\n#%d\"];\n", id, escapeDOT(string(node.EntryLabel())), t.numbers[id])
	}
	sb.WriteString("\n")
	for _, e := range t.edges {
		fmt.Fprintf(&sb, "  %d -> %d;\n", e.From, e.To)
	}
	sb.WriteString("}\n")
	return sb.String()
}
