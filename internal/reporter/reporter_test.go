package reporter

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meyzoo/OptimizingCompiler/internal/config"
	"github.com/meyzoo/OptimizingCompiler/internal/ir/irtest"
	"github.com/meyzoo/OptimizingCompiler/internal/loader"
	"github.com/meyzoo/OptimizingCompiler/internal/pipeline"
)

func runWhile(t *testing.T, cfg *config.Config) *pipeline.Result {
	t.Helper()
	result, err := pipeline.New(cfg, nil).Run(context.Background(), []*loader.Program{
		{Name: "while", Source: "while.yaml", Blocks: irtest.While()},
	})
	require.NoError(t, err)
	return result
}

func testConfig(format string) *config.Config {
	return &config.Config{
		Format:   format,
		Parallel: 1,
		SSA:      config.SSAConfig{Remove: true, Verify: true},
		Analysis: config.AnalysisConfig{Loops: true, Tree: true},
	}
}

func TestRenderText(t *testing.T) {
	cfg := testConfig("text")
	out, err := New(cfg, nil).Render(runWhile(t, cfg))
	require.NoError(t, err)

	for _, want := range []string{
		"=== SSA Pipeline Report ===",
		"Units processed: 1",
		"=== Unit: while (while.yaml) ===",
		"-- Program --",
		"  L2: if c goto L5",
		"-- Edges --",
		"back",
		"-- Depth spanning tree --",
		"-- Natural loops --",
		"-- SSA --",
		"  phi0: i1 = phi0",
		"Round trip:",
		"OK",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "-- Restored --")
}

func TestRenderJSON(t *testing.T) {
	cfg := testConfig("json")
	out, err := New(cfg, nil).Render(runWhile(t, cfg))
	require.NoError(t, err)

	var decoded struct {
		Units []struct {
			Name        string   `json:"name"`
			SSA         []string `json:"ssa"`
			RoundTripOK bool     `json:"round_trip_ok"`
		} `json:"units"`
		Statistics struct {
			UnitsProcessed int `json:"units_processed"`
		} `json:"statistics"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded.Units, 1)
	assert.Equal(t, "while", decoded.Units[0].Name)
	assert.True(t, decoded.Units[0].RoundTripOK)
	assert.Contains(t, decoded.Units[0].SSA, "L3: i2 = i1 + 1")
	assert.Equal(t, 1, decoded.Statistics.UnitsProcessed)
}

func TestRenderDOT(t *testing.T) {
	cfg := testConfig("dot")
	out, err := New(cfg, nil).Render(runWhile(t, cfg))
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "digraph CFG {"))
	assert.Equal(t, 1, strings.Count(out, "digraph DST {"))
	assert.Contains(t, out, "// while: depth spanning tree")
}

func TestRenderUnsupportedFormat(t *testing.T) {
	cfg := testConfig("sarif")
	_, err := New(cfg, nil).Render(&pipeline.Result{})
	assert.Error(t, err)
}

func TestGenerateWritesFile(t *testing.T) {
	cfg := testConfig("json")
	cfg.OutputFile = filepath.Join(t.TempDir(), "report.json")

	require.NoError(t, New(cfg, nil).Generate(runWhile(t, cfg)))

	data, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}
