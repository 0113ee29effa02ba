package cfg

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meyzoo/OptimizingCompiler/internal/ir"
	"github.com/meyzoo/OptimizingCompiler/internal/ir/irtest"
)

func mustGraph(t *testing.T, blocks []*ir.Block) *Graph {
	t.Helper()
	g, err := New(blocks)
	require.NoError(t, err)
	return g
}

func TestGraphConstruction(t *testing.T) {
	g := mustGraph(t, irtest.While())

	require.Equal(t, 4, g.Len())
	assert.Equal(t, NodeID(0), g.Root().ID)

	direct, ok := g.Node(0).DirectChild()
	assert.True(t, ok)
	assert.Equal(t, NodeID(1), direct)
	_, ok = g.Node(0).GotoChild()
	assert.False(t, ok)

	assert.Equal(t, []NodeID{2, 3}, g.Children(1))

	// unconditional goto sets only the goto child
	_, ok = g.Node(2).DirectChild()
	assert.False(t, ok)
	jump, ok := g.Node(2).GotoChild()
	assert.True(t, ok)
	assert.Equal(t, NodeID(1), jump)

	assert.Equal(t, []NodeID{0, 2}, g.Parents(1))
	assert.Equal(t, []NodeID{1}, g.Parents(2))
	assert.Equal(t, []NodeID{1}, g.Parents(3))
	assert.Empty(t, g.Parents(0))
	assert.True(t, g.IsExit(3))
	assert.Equal(t, ir.Label("L4"), g.Node(2).ExitLabel())
}

func TestGraphParentsAreInverseOfChildren(t *testing.T) {
	for name, blocks := range map[string][]*ir.Block{
		"counter": irtest.Counter(),
		"while":   irtest.While(),
		"diamond": irtest.Diamond(),
		"nested":  irtest.Nested(),
	} {
		t.Run(name, func(t *testing.T) {
			g := mustGraph(t, blocks)
			for _, n := range g.Nodes() {
				for _, child := range g.Children(n.ID) {
					assert.Contains(t, g.Parents(child), n.ID)
				}
				for _, parent := range g.Parents(n.ID) {
					assert.Contains(t, g.Children(parent), n.ID)
				}
			}
		})
	}
}

func TestGraphBranchToNextBlock(t *testing.T) {
	g := mustGraph(t, irtest.Counter())

	assert.Equal(t, []NodeID{2}, g.Children(1))
	assert.Equal(t, []NodeID{1}, g.Parents(2))
	assert.Equal(t, []NodeID{0, 2}, g.Parents(1))
	assert.Len(t, g.Edges(), 4)
}

func TestGraphConstructionErrors(t *testing.T) {
	tests := []struct {
		name     string
		blocks   []*ir.Block
		expected error
	}{
		{"no blocks", nil, ErrNoBlocks},
		{"empty block", []*ir.Block{ir.NewBlock(irtest.Assign("L1", "x", "1")), ir.NewBlock()}, ErrEmptyBlock},
		{"unresolved goto", []*ir.Block{ir.NewBlock(irtest.Goto("L1", "nowhere"))}, ErrUnresolvedTarget},
		{"target in middle of block", []*ir.Block{
			ir.NewBlock(irtest.Assign("L1", "x", "1"), irtest.Assign("L2", "y", "2")),
			ir.NewBlock(irtest.If("L3", "c", "L2")),
		}, ErrUnresolvedTarget},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := New(test.blocks)
			require.Error(t, err)
			assert.True(t, errors.Is(err, test.expected), "got %v", err)
		})
	}
}

func TestEdgeTypes(t *testing.T) {
	g := mustGraph(t, irtest.While())
	types := g.EdgeTypes()

	assert.Equal(t, EdgeTree, types[Edge{From: 0, To: 1, Kind: EdgeDirect}])
	assert.Equal(t, EdgeTree, types[Edge{From: 1, To: 2, Kind: EdgeDirect}])
	assert.Equal(t, EdgeTree, types[Edge{From: 1, To: 3, Kind: EdgeGoto}])
	assert.Equal(t, EdgeBack, types[Edge{From: 2, To: 1, Kind: EdgeGoto}])
}

func TestEdgeTypesForwardAndUnreachable(t *testing.T) {
	blocks := []*ir.Block{
		ir.NewBlock(irtest.If("L1", "c", "L3")),
		ir.NewBlock(irtest.Assign("L2", "x", "1")),
		ir.NewBlock(irtest.Print("L3", "x"), irtest.Goto("L4", "L6")),
		ir.NewBlock(irtest.Assign("L5", "dead", "0")),
		ir.NewBlock(irtest.Print("L6", "x")),
	}
	g := mustGraph(t, blocks)

	assert.Equal(t, EdgeForward, g.EdgeType(Edge{From: 0, To: 2, Kind: EdgeGoto}))
	assert.Equal(t, EdgeUnreachable, g.EdgeType(Edge{From: 3, To: 4, Kind: EdgeDirect}))
	assert.Equal(t, EdgeTree, g.EdgeType(Edge{From: 2, To: 4, Kind: EdgeGoto}))
}

func TestEdgeTypesCross(t *testing.T) {
	// B0 branches to B2 and falls into B1; B1 jumps to B3; B2 falls into B3.
	blocks := []*ir.Block{
		ir.NewBlock(irtest.If("L1", "c", "L3")),
		ir.NewBlock(irtest.Goto("L2", "L4")),
		ir.NewBlock(irtest.Assign("L3", "x", "1")),
		ir.NewBlock(irtest.Print("L4", "x")),
	}
	g := mustGraph(t, blocks)

	assert.Equal(t, EdgeTree, g.EdgeType(Edge{From: 1, To: 3, Kind: EdgeGoto}))
	assert.Equal(t, EdgeTree, g.EdgeType(Edge{From: 0, To: 2, Kind: EdgeGoto}))
	assert.Equal(t, EdgeCross, g.EdgeType(Edge{From: 2, To: 3, Kind: EdgeDirect}))
}

func TestListing(t *testing.T) {
	g := mustGraph(t, irtest.Counter())
	expected := "B0:\n  L1: i = m - 1\nB1:\n  L2: if cond goto L3\nB2:\n  L3: i = i + 1\n  L4: goto L2\n"
	assert.Equal(t, expected, g.Listing())
}
