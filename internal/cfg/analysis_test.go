package cfg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meyzoo/OptimizingCompiler/internal/ir"
	"github.com/meyzoo/OptimizingCompiler/internal/ir/irtest"
)

// irreducible has a cycle B1 <-> B2 with entries into both.
func irreducible() []*ir.Block {
	return []*ir.Block{
		ir.NewBlock(irtest.If("L1", "c", "L3")),
		ir.NewBlock(irtest.Assign("L2", "x", "1")),
		ir.NewBlock(irtest.Assign("L3", "y", "2"), irtest.Goto("L4", "L2")),
	}
}

func TestDominators(t *testing.T) {
	g := mustGraph(t, irtest.While())
	doms := g.Dominators()

	assert.ElementsMatch(t, []NodeID{0}, doms[0].ToSlice())
	assert.ElementsMatch(t, []NodeID{0, 1}, doms[1].ToSlice())
	assert.ElementsMatch(t, []NodeID{0, 1, 2}, doms[2].ToSlice())
	assert.ElementsMatch(t, []NodeID{0, 1, 3}, doms[3].ToSlice())
}

func TestNaturalLoopWhile(t *testing.T) {
	g := mustGraph(t, irtest.While())

	assert.Equal(t, []Edge{{From: 2, To: 1, Kind: EdgeGoto}}, g.RetreatingEdges())
	assert.True(t, g.AllRetreatingEdgesAreBackwards())

	loops := g.NaturalCyclesForBackwardEdges()
	require.Len(t, loops, 1)
	assert.Equal(t, NodeID(1), loops[0].Header)
	assert.Equal(t, NodeID(2), loops[0].Latch)
	assert.Equal(t, []NodeID{1, 2}, loops[0].Nodes)
	assert.True(t, loops[0].Contains(2))
	assert.False(t, loops[0].Contains(3))
}

func TestNaturalLoopNested(t *testing.T) {
	g := mustGraph(t, irtest.Nested())

	loops := g.NaturalCyclesForBackwardEdges()
	require.Len(t, loops, 1)
	assert.Equal(t, NodeID(1), loops[0].Header)
	assert.Equal(t, NodeID(6), loops[0].Latch)
	assert.Equal(t, []NodeID{1, 3, 4, 5, 6}, loops[0].Nodes)
}

func TestSelfLoop(t *testing.T) {
	blocks := []*ir.Block{
		ir.NewBlock(irtest.Assign("L1", "x", "0")),
		ir.NewBlock(irtest.Op("L2", ir.OpAdd, "x", "x", "1"), irtest.If("L3", "c", "L2")),
		ir.NewBlock(irtest.Print("L4", "x")),
	}
	g := mustGraph(t, blocks)

	assert.Equal(t, EdgeBack, g.EdgeType(Edge{From: 1, To: 1, Kind: EdgeGoto}))
	loops := g.NaturalCyclesForBackwardEdges()
	require.Len(t, loops, 1)
	assert.Equal(t, []NodeID{1}, loops[0].Nodes)
}

func TestIrreducibleGraph(t *testing.T) {
	g := mustGraph(t, irreducible())

	assert.Len(t, g.RetreatingEdges(), 1)
	assert.Empty(t, g.BackwardEdges())
	assert.False(t, g.AllRetreatingEdgesAreBackwards())
	assert.Empty(t, g.NaturalCyclesForBackwardEdges())
}

func TestComputeMetrics(t *testing.T) {
	m := mustGraph(t, irtest.While()).ComputeMetrics()

	assert.Equal(t, &Metrics{
		NodeCount:            4,
		EdgeCount:            4,
		ReachableNodes:       4,
		UnreachableNodes:     0,
		LoopCount:            1,
		CyclomaticComplexity: 2,
		Reducible:            true,
	}, m)
}

func TestVisualizer(t *testing.T) {
	dot := NewVisualizer(mustGraph(t, irtest.While())).ToDotFormat()

	assert.True(t, strings.HasPrefix(dot, "digraph CFG {"))
	assert.Contains(t, dot, `2 -> 1 [label="back", style=bold];`)
	assert.Contains(t, dot, `1 -> 3 [label="tree", style=dashed];`)
	assert.Contains(t, dot, "shape=hexagon")
}
