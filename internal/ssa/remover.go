package ssa

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/meyzoo/OptimizingCompiler/internal/cfg"
	"github.com/meyzoo/OptimizingCompiler/internal/ir"
)

// RemoveSummary describes one SSA destruction.
type RemoveSummary struct {
	Removed  int `json:"removed"`
	Restored int `json:"restored"`
}

// Remover takes a graph produced by Builder back to its original names.
type Remover struct {
	graph  *cfg.Graph
	logger *zap.Logger
}

// NewRemover creates a remover for g.
func NewRemover(g *cfg.Graph, logger *zap.Logger) *Remover {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Remover{graph: g, logger: logger}
}

type removeRun struct {
	names   *namer
	summary *RemoveSummary
}

// Remove deletes every phi group, then replays the builder's walk with the
// counters running backwards, dropping the version of every occurrence.
func (r *Remover) Remove() (*RemoveSummary, error) {
	run := &removeRun{
		names:   newNamer(-1),
		summary: &RemoveSummary{},
	}

	for _, node := range r.graph.Nodes() {
		var doomed []*ir.Instruction
		for instr := range node.Block.Enumerate() {
			if instr.IsPhi() || instr.IsPhiAssign() {
				doomed = append(doomed, instr)
			}
		}
		for _, instr := range doomed {
			if err := node.Block.Remove(instr); err != nil {
				return nil, fmt.Errorf("strip phi in %s: %w", node, err)
			}
		}
		run.summary.Removed += len(doomed)
	}
	r.logger.Debug("Removed phi instructions", zap.Int("removed", run.summary.Removed))

	if err := walk(r.graph, run.names, run); err != nil {
		return nil, fmt.Errorf("restore names: %w", err)
	}
	r.logger.Debug("Restored variable names", zap.Int("restored", run.summary.Restored))

	return run.summary, nil
}

func (r *removeRun) rename(node *cfg.Node) ([]string, error) {
	var defs []string
	for instr := range node.Block.Enumerate() {
		instr.Right = r.strip(instr.Right)
		instr.Left = r.strip(instr.Left)
		if dst, ok := instr.Defines(); ok {
			r.names.fresh(dst.Name)
			defs = append(defs, dst.Name)
			instr.Destination = r.strip(dst)
		}
	}
	return defs, nil
}

// patch clears versions on any phi arm left in child. After the strip pass
// there are none, but the walk stays identical to the builder's.
func (r *removeRun) patch(node, child *cfg.Node) error {
	for instr := range child.Block.Enumerate() {
		if instr.IsPhi() {
			instr.Left = r.strip(instr.Left)
		}
	}
	return nil
}

func (r *removeRun) strip(v ir.Value) ir.Value {
	id, ok := ir.AsIdentifier(v)
	if !ok || !id.Renamed {
		return v
	}
	r.summary.Restored++
	return id.Base()
}
