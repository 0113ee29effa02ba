package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meyzoo/OptimizingCompiler/internal/cfg"
	"github.com/meyzoo/OptimizingCompiler/internal/config"
	"github.com/meyzoo/OptimizingCompiler/internal/ir"
	"github.com/meyzoo/OptimizingCompiler/internal/ir/irtest"
	"github.com/meyzoo/OptimizingCompiler/internal/loader"
)

func testConfig(parallel int) *config.Config {
	return &config.Config{
		Format:   "text",
		Parallel: parallel,
		SSA:      config.SSAConfig{Remove: true, Verify: true},
		Analysis: config.AnalysisConfig{Loops: true, Tree: true},
	}
}

func programs() []*loader.Program {
	return []*loader.Program{
		{Name: "counter", Blocks: irtest.Counter()},
		{Name: "while", Blocks: irtest.While()},
		{Name: "diamond", Blocks: irtest.Diamond()},
		{Name: "nested", Blocks: irtest.Nested()},
	}
}

func TestProcessWhile(t *testing.T) {
	p := New(testConfig(1), nil)
	unit := p.Process(&loader.Program{Name: "while", Blocks: irtest.While()})

	require.NoError(t, unit.Err)
	assert.True(t, unit.RoundTripOK)
	assert.Equal(t, unit.Original, unit.Restored)
	assert.Contains(t, unit.SSA, "L5: print i1")

	assert.Equal(t, map[cfg.NodeID]int{0: 0, 1: 1, 2: 2, 3: 3}, unit.Numbering)
	require.Len(t, unit.Loops, 1)
	assert.Equal(t, []cfg.NodeID{1, 2}, unit.Loops[0].Nodes)

	var back []EdgeReport
	for _, e := range unit.Edges {
		if e.Type == cfg.EdgeBack.String() {
			back = append(back, e)
		}
	}
	assert.Equal(t, []EdgeReport{{From: 2, To: 1, Kind: "goto", Type: "back"}}, back)
	assert.Contains(t, unit.TreeDOT, "digraph DST")
	assert.Contains(t, unit.GraphDOT, "digraph")
}

func TestProcessWithoutRemoval(t *testing.T) {
	c := testConfig(1)
	c.SSA.Remove = false
	c.Analysis = config.AnalysisConfig{}

	unit := New(c, nil).Process(&loader.Program{Name: "counter", Blocks: irtest.Counter()})
	require.NoError(t, unit.Err)
	assert.Nil(t, unit.Remove)
	assert.Empty(t, unit.Restored)
	assert.False(t, unit.RoundTripOK)
	assert.Nil(t, unit.Numbering)
	assert.Nil(t, unit.Loops)
}

func TestProcessReportsUnitErrors(t *testing.T) {
	bad := &loader.Program{
		Name:   "bad",
		Blocks: []*ir.Block{ir.NewBlock(irtest.Goto("L1", "nowhere"))},
	}
	unit := New(testConfig(1), nil).Process(bad)

	require.Error(t, unit.Err)
	assert.True(t, errors.Is(unit.Err, cfg.ErrUnresolvedTarget))
	assert.NotEmpty(t, unit.Error)
}

func TestRun(t *testing.T) {
	for _, workers := range []int{1, 3, 8} {
		units := programs()
		units = append(units, &loader.Program{
			Name:   "undefined",
			Blocks: []*ir.Block{ir.NewBlock(irtest.Op("L1", ir.OpAdd, "y", "x", "1"), irtest.Assign("L2", "x", "2"))},
		})

		result, err := New(testConfig(workers), nil).Run(context.Background(), units)
		require.NoError(t, err)
		require.Len(t, result.Units, 5)

		// results keep input order whatever the worker count
		names := make([]string, 0, len(result.Units))
		for _, u := range result.Units {
			names = append(names, u.Name)
		}
		assert.Equal(t, []string{"counter", "while", "diamond", "nested", "undefined"}, names)

		stats := result.Statistics
		assert.Equal(t, 5, stats.UnitsProcessed)
		assert.Equal(t, 1, stats.UnitsFailed)
		assert.Equal(t, 0, stats.RoundTripFailures)
		assert.Equal(t, workers, stats.Workers)
		// counter 1, while 1, diamond 2, nested 6
		assert.Equal(t, 10, stats.PhiGroups)
		assert.Equal(t, 3, stats.Loops)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := New(testConfig(2), nil).Run(ctx, programs())
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Less(t, len(result.Units), 4)
}

func TestRunExamplePrograms(t *testing.T) {
	programs, err := loader.New(nil).LoadPaths([]string{"../../examples"})
	require.NoError(t, err)
	require.NotEmpty(t, programs)

	result, err := New(testConfig(4), nil).Run(context.Background(), programs)
	require.NoError(t, err)

	for _, unit := range result.Units {
		assert.NoError(t, unit.Err, unit.Name)
		assert.True(t, unit.RoundTripOK, unit.Name)
	}
	assert.Equal(t, 1, result.Statistics.Irreducible)
}
