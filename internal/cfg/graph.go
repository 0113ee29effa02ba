package cfg

import (
	"errors"
	"fmt"
	"slices"

	"github.com/meyzoo/OptimizingCompiler/internal/ir"
)

var (
	ErrNoBlocks         = errors.New("no basic blocks: graph has no root")
	ErrEmptyBlock       = errors.New("empty basic block")
	ErrUnresolvedTarget = errors.New("jump target does not start any block")
)

// NodeID indexes a node in the graph's arena, in program order.
type NodeID int

// NoNode marks an absent child.
const NoNode NodeID = -1

// Node wraps one basic block and its structural successors.
type Node struct {
	ID     NodeID
	Block  *ir.Block
	direct NodeID
	jump   NodeID
}

// DirectChild returns the fall-through successor.
func (n *Node) DirectChild() (NodeID, bool) {
	return n.direct, n.direct != NoNode
}

// GotoChild returns the branch successor.
func (n *Node) GotoChild() (NodeID, bool) {
	return n.jump, n.jump != NoNode
}

// ExitLabel is the label of the block's last instruction.
func (n *Node) ExitLabel() ir.Label {
	return n.Block.Last().Label
}

// EntryLabel is the label of the block's first instruction.
func (n *Node) EntryLabel() ir.Label {
	return n.Block.First().Label
}

func (n *Node) String() string {
	return fmt.Sprintf("B%d", n.ID)
}

// EdgeKind tells which structural link an edge comes from.
type EdgeKind int

const (
	EdgeDirect EdgeKind = iota
	EdgeGoto
)

func (k EdgeKind) String() string {
	if k == EdgeGoto {
		return "goto"
	}
	return "direct"
}

// Edge is a directed control transfer between two nodes.
type Edge struct {
	From NodeID
	To   NodeID
	Kind EdgeKind
}

func (e Edge) String() string {
	return fmt.Sprintf("B%d -> B%d (%s)", e.From, e.To, e.Kind)
}

// Graph is a control-flow graph over an arena of nodes. Topology is fixed at
// construction; only instruction content may change afterwards.
type Graph struct {
	nodes     []*Node
	parents   [][]NodeID
	edges     []Edge
	edgeTypes map[Edge]EdgeType
}

// New links blocks, given in program order, into a control-flow graph.
// A block falls through to its successor unless it ends in an unconditional
// goto; a conditional goto yields both a fall-through and a branch edge.
func New(blocks []*ir.Block) (*Graph, error) {
	if len(blocks) == 0 {
		return nil, ErrNoBlocks
	}

	g := &Graph{
		nodes:   make([]*Node, len(blocks)),
		parents: make([][]NodeID, len(blocks)),
	}

	starts := make(map[ir.Label]NodeID, len(blocks))
	for i, block := range blocks {
		if block == nil || block.Len() == 0 {
			return nil, fmt.Errorf("block %d: %w", i, ErrEmptyBlock)
		}
		id := NodeID(i)
		g.nodes[i] = &Node{ID: id, Block: block, direct: NoNode, jump: NoNode}
		starts[block.First().Label] = id
	}

	for i, node := range g.nodes {
		last := node.Block.Last()
		next := NodeID(i + 1)
		if int(next) >= len(g.nodes) {
			next = NoNode
		}

		if last.Op != ir.OpGoto {
			node.direct = next
		}
		if target, ok := last.Target(); ok {
			to, found := starts[target]
			if !found {
				return nil, fmt.Errorf("block %d jumps to %q: %w", i, target, ErrUnresolvedTarget)
			}
			node.jump = to
		} else if last.Op.IsJump() {
			return nil, fmt.Errorf("block %d: jump without label target: %w", i, ErrUnresolvedTarget)
		}
	}

	for _, node := range g.nodes {
		if to, ok := node.DirectChild(); ok {
			g.addEdge(node.ID, to, EdgeDirect)
		}
		if to, ok := node.GotoChild(); ok {
			g.addEdge(node.ID, to, EdgeGoto)
		}
	}
	for i := range g.parents {
		slices.Sort(g.parents[i])
	}

	g.edgeTypes = g.classifyEdges()
	return g, nil
}

func (g *Graph) addEdge(from, to NodeID, kind EdgeKind) {
	g.edges = append(g.edges, Edge{From: from, To: to, Kind: kind})
	if !slices.Contains(g.parents[to], from) {
		g.parents[to] = append(g.parents[to], from)
	}
}

// Root returns the entry node, the first block in program order.
func (g *Graph) Root() *Node {
	return g.nodes[0]
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) *Node {
	return g.nodes[id]
}

// Nodes returns all nodes in program order.
func (g *Graph) Nodes() []*Node {
	return slices.Clone(g.nodes)
}

// Blocks returns every block in program order.
func (g *Graph) Blocks() []*ir.Block {
	out := make([]*ir.Block, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.Block
	}
	return out
}

// Edges returns all edges, ordered by source node then direct before goto.
func (g *Graph) Edges() []Edge {
	return slices.Clone(g.edges)
}

// Parents returns the predecessors of id sorted by NodeID.
func (g *Graph) Parents(id NodeID) []NodeID {
	return slices.Clone(g.parents[id])
}

// Children returns the direct child then the goto child, without duplicates.
func (g *Graph) Children(id NodeID) []NodeID {
	n := g.nodes[id]
	out := make([]NodeID, 0, 2)
	if to, ok := n.DirectChild(); ok {
		out = append(out, to)
	}
	if to, ok := n.GotoChild(); ok && !slices.Contains(out, to) {
		out = append(out, to)
	}
	return out
}

// IsExit reports whether the node has no successors.
func (g *Graph) IsExit(id NodeID) bool {
	return len(g.Children(id)) == 0
}

// NodeByLabel finds the node whose block starts with label.
func (g *Graph) NodeByLabel(label ir.Label) (*Node, bool) {
	for _, n := range g.nodes {
		if n.EntryLabel() == label {
			return n, true
		}
	}
	return nil, false
}

// Listing renders every block, one instruction per line, blocks separated by
// their node name.
func (g *Graph) Listing() string {
	var out []byte
	for _, n := range g.nodes {
		out = fmt.Appendf(out, "%s:\n", n)
		for instr := range n.Block.Enumerate() {
			out = fmt.Appendf(out, "  %s\n", instr)
		}
	}
	return string(out)
}
