package cfg

// EdgeType classifies an edge relative to a depth-first traversal from root.
type EdgeType int

const (
	EdgeUnreachable EdgeType = iota
	EdgeTree
	EdgeForward
	EdgeBack
	EdgeCross
)

func (t EdgeType) String() string {
	switch t {
	case EdgeTree:
		return "tree"
	case EdgeForward:
		return "forward"
	case EdgeBack:
		return "back"
	case EdgeCross:
		return "cross"
	default:
		return "unreachable"
	}
}

type color int

const (
	white color = iota
	gray
	black
)

// EdgeTypes returns the classification of every edge.
func (g *Graph) EdgeTypes() map[Edge]EdgeType {
	out := make(map[Edge]EdgeType, len(g.edgeTypes))
	for e, t := range g.edgeTypes {
		out[e] = t
	}
	return out
}

// EdgeType returns the classification of a single edge.
func (g *Graph) EdgeType(e Edge) EdgeType {
	return g.edgeTypes[e]
}

// classifyEdges runs one depth-first traversal from root, visiting the direct
// child before the goto child, and colours nodes white, gray (on the stack)
// or black (finished). Edges out of nodes never reached stay unreachable.
func (g *Graph) classifyEdges() map[Edge]EdgeType {
	types := make(map[Edge]EdgeType, len(g.edges))
	colors := make([]color, len(g.nodes))
	pre := make([]int, len(g.nodes))
	clock := 0

	out := make([][]Edge, len(g.nodes))
	for _, e := range g.edges {
		out[e.From] = append(out[e.From], e)
		types[e] = EdgeUnreachable
	}

	type frame struct {
		id   NodeID
		next int
	}

	root := g.Root().ID
	colors[root] = gray
	pre[root] = clock
	clock++
	stack := []*frame{{id: root}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(out[top.id]) {
			colors[top.id] = black
			stack = stack[:len(stack)-1]
			continue
		}

		e := out[top.id][top.next]
		top.next++

		switch colors[e.To] {
		case white:
			types[e] = EdgeTree
			colors[e.To] = gray
			pre[e.To] = clock
			clock++
			stack = append(stack, &frame{id: e.To})
		case gray:
			types[e] = EdgeBack
		case black:
			if pre[e.From] < pre[e.To] {
				types[e] = EdgeForward
			} else {
				types[e] = EdgeCross
			}
		}
	}

	return types
}
