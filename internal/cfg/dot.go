package cfg

import (
	"fmt"
	"strings"
)

// Visualizer renders a graph in DOT format.
type Visualizer struct {
	graph *Graph
}

// NewVisualizer creates a visualizer for g.
func NewVisualizer(g *Graph) *Visualizer {
	return &Visualizer{graph: g}
}

// ToDotFormat exports the graph with each edge styled by its classification.
func (v *Visualizer) ToDotFormat() string {
	var sb strings.Builder
	sb.WriteString("digraph CFG {\n")
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box];\n\n")

	for _, node := range v.graph.nodes {
		fmt.Fprintf(&sb, "  %d [label=\"%s\", shape=%s];\n", node.ID, v.nodeLabel(node), v.nodeShape(node))
	}

	sb.WriteString("\n")

	for _, edge := range v.graph.edges {
		kind := v.graph.edgeTypes[edge]
		fmt.Fprintf(&sb, "  %d -> %d [label=\"%s\", style=%s];\n",
			edge.From, edge.To, kind, v.edgeStyle(edge, kind))
	}

	sb.WriteString("}\n")
	return sb.String()
}

func (v *Visualizer) nodeLabel(node *Node) string {
	lines := make([]string, 0, node.Block.Len()+1)
	lines = append(lines, node.String())
	for instr := range node.Block.Enumerate() {
		lines = append(lines, escapeDOT(instr.String()))
	}
	return strings.Join(lines, "\\l") + "\\l"
}

func (v *Visualizer) nodeShape(node *Node) string {
	switch {
	case node.ID == v.graph.Root().ID:
		return "ellipse"
	case v.graph.IsExit(node.ID):
		return "doubleoctagon"
	case len(v.graph.parents[node.ID]) >= 2:
		return "hexagon"
	default:
		return "box"
	}
}

func (v *Visualizer) edgeStyle(edge Edge, kind EdgeType) string {
	switch kind {
	case EdgeBack:
		return "bold"
	case EdgeUnreachable:
		return "dotted"
	}
	if edge.Kind == EdgeGoto {
		return "dashed"
	}
	return "solid"
}

func escapeDOT(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
