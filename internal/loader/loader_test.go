package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meyzoo/OptimizingCompiler/internal/ir"
)

const counterYAML = `
name: counter
description: single loop
blocks:
  - instructions:
      - {label: L1, op: sub, dst: i, left: m, right: 1}
  - instructions:
      - {label: L2, op: if, left: cond, target: L3}
  - instructions:
      - {label: L3, op: add, dst: i, left: i, right: 1}
      - {label: L4, op: goto, target: L2}
`

func TestParse(t *testing.T) {
	program, err := Parse([]byte(counterYAML))
	require.NoError(t, err)

	assert.Equal(t, "counter", program.Name)
	assert.Equal(t, "single loop", program.Description)
	require.Len(t, program.Blocks, 3)

	var listing []string
	for _, b := range program.Blocks {
		for instr := range b.Enumerate() {
			listing = append(listing, instr.String())
		}
	}
	assert.Equal(t, []string{
		"L1: i = m - 1",
		"L2: if cond goto L3",
		"L3: i = i + 1",
		"L4: goto L2",
	}, listing)

	target, ok := program.Blocks[2].Last().Target()
	require.True(t, ok)
	assert.Equal(t, ir.Label("L2"), target)
}

func TestParseAutoLabels(t *testing.T) {
	program, err := Parse([]byte(`
blocks:
  - instructions:
      - {op: assign, dst: x, left: 1}
      - {op: print, left: x}
  - instructions:
      - {op: noop}
`))
	require.NoError(t, err)
	assert.Equal(t, ir.Label("L1"), program.Blocks[0].First().Label)
	assert.Equal(t, ir.Label("L2"), program.Blocks[0].Last().Label)
	assert.Equal(t, ir.Label("L3"), program.Blocks[1].First().Label)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no blocks", "name: empty\n"},
		{"empty block", "blocks:\n  - instructions: []\n"},
		{"unknown op", "blocks:\n  - instructions:\n      - {op: jump, target: L1}\n"},
		{"missing target", "blocks:\n  - instructions:\n      - {op: goto}\n"},
		{"target on assign", "blocks:\n  - instructions:\n      - {op: assign, dst: x, left: 1, target: L1}\n"},
		{"duplicate label", "blocks:\n  - instructions:\n      - {label: A, op: noop}\n      - {label: A, op: noop}\n"},
		{"reserved identifier", "blocks:\n  - instructions:\n      - {op: assign, dst: phi0, left: 1}\n"},
		{"reserved label", "blocks:\n  - instructions:\n      - {label: phi1.2, op: noop}\n"},
		{"phi in source", "blocks:\n  - instructions:\n      - {op: phi, dst: x, left: y, right: L1}\n"},
		{"constant destination", "blocks:\n  - instructions:\n      - {op: assign, dst: 3, left: 1}\n"},
		{"missing operand", "blocks:\n  - instructions:\n      - {op: add, dst: x, left: 1}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidProgram)
		})
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("blocks:\n  - instructions:\n      - {op: noop, colour: red}\n"))
	assert.Error(t, err)
}

func TestParseAllowsPhiLikeNames(t *testing.T) {
	program, err := Parse([]byte("blocks:\n  - instructions:\n      - {op: assign, dst: phil, left: 1}\n"))
	require.NoError(t, err)
	assert.Equal(t, "L1: phil = 1", program.Blocks[0].First().String())
}

func TestLoadPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(counterYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yml"), []byte("blocks:\n  - instructions:\n      - {op: noop}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	programs, err := New(nil).LoadPaths([]string{dir})
	require.NoError(t, err)
	require.Len(t, programs, 2)

	// unnamed programs take their file name
	assert.Equal(t, "a", programs[0].Name)
	assert.Equal(t, "counter", programs[1].Name)
	assert.Equal(t, filepath.Join(dir, "b.yaml"), programs[1].Source)
}

func TestLoadPathsMissing(t *testing.T) {
	_, err := New(nil).LoadPaths([]string{filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
