package ssa

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/meyzoo/OptimizingCompiler/internal/cfg"
	"github.com/meyzoo/OptimizingCompiler/internal/ir"
)

// BuildSummary describes one SSA construction.
type BuildSummary struct {
	Variables   []string `json:"variables"`
	PhiGroups   int      `json:"phi_groups"`
	PhiArms     int      `json:"phi_arms"`
	Definitions int      `json:"definitions"`
}

// Builder converts a graph into SSA form in place.
//
// Phi groups are placed at every node with two or more predecessors for
// every variable defined anywhere in the graph. The placement is not pruned
// by liveness or dominance frontiers, so some groups may be redundant; the
// Remover relies on exactly this layout.
type Builder struct {
	graph  *cfg.Graph
	logger *zap.Logger
}

// NewBuilder creates a builder for g.
func NewBuilder(g *cfg.Graph, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{graph: g, logger: logger}
}

// buildRun is the state of a single Build call.
type buildRun struct {
	graph   *cfg.Graph
	names   *namer
	vars    mapset.Set[string]
	summary *BuildSummary
}

// Build inserts phi groups and renames every variable occurrence.
func (b *Builder) Build() (*BuildSummary, error) {
	if err := checkUnversioned(b.graph); err != nil {
		return nil, err
	}

	vars := DiscoverVariables(b.graph)
	run := &buildRun{
		graph:   b.graph,
		names:   newNamer(1),
		vars:    mapset.NewThreadUnsafeSet(vars...),
		summary: &BuildSummary{Variables: vars},
	}

	if err := run.insertPhi(); err != nil {
		return nil, fmt.Errorf("insert phi: %w", err)
	}
	b.logger.Debug("Inserted phi groups",
		zap.Int("variables", len(vars)),
		zap.Int("groups", run.summary.PhiGroups),
		zap.Int("arms", run.summary.PhiArms))

	if err := walk(b.graph, run.names, run); err != nil {
		return nil, fmt.Errorf("rename: %w", err)
	}
	b.logger.Debug("Renamed variables", zap.Int("definitions", run.summary.Definitions))

	return run.summary, nil
}

// insertPhi gives every merge node one group per variable: the assignment
// "v = phiN" followed by one "phiN = phi(v, exit)" per predecessor.
func (r *buildRun) insertPhi() error {
	counter := 0
	anchors := make(map[cfg.NodeID]*ir.Instruction)

	for _, name := range r.summary.Variables {
		variable := ir.Identifier{Name: name}
		for _, node := range r.graph.Nodes() {
			parents := r.graph.Parents(node.ID)
			if len(parents) < 2 {
				continue
			}

			placeholder := ir.PhiPlaceholder(counter)
			counter++

			shadow := ir.NewInstruction(ir.Label(placeholder.Name), ir.OpAssign, variable, placeholder, nil)
			if anchor, ok := anchors[node.ID]; ok {
				if err := node.Block.InsertAfter(anchor, shadow); err != nil {
					return err
				}
			} else {
				node.Block.Prepend(shadow)
			}

			anchor := shadow
			for i, p := range parents {
				label := ir.Label(fmt.Sprintf("%s.%d", placeholder.Name, i+1))
				from := ir.LabelRef{Label: r.graph.Node(p).ExitLabel()}
				phi := ir.NewInstruction(label, ir.OpPhi, placeholder, variable, from)
				if err := node.Block.InsertAfter(anchor, phi); err != nil {
					return err
				}
				anchor = phi
			}
			anchors[node.ID] = anchor

			r.summary.PhiGroups++
			r.summary.PhiArms += len(parents)
		}
	}
	return nil
}

func (r *buildRun) rename(node *cfg.Node) ([]string, error) {
	var defs []string
	for instr := range node.Block.Enumerate() {
		if instr.IsPhi() {
			continue
		}
		if instr.IsPhiAssign() {
			dst, _ := ir.AsIdentifier(instr.Destination)
			instr.Destination = dst.WithVersion(r.names.fresh(dst.Name))
			defs = append(defs, dst.Name)
			r.summary.Definitions++
			continue
		}

		var err error
		if instr.Right, err = r.use(instr, instr.Right); err != nil {
			return nil, err
		}
		if instr.Left, err = r.use(instr, instr.Left); err != nil {
			return nil, err
		}
		if dst, ok := instr.Defines(); ok && r.vars.Contains(dst.Name) {
			instr.Destination = dst.WithVersion(r.names.fresh(dst.Name))
			defs = append(defs, dst.Name)
			r.summary.Definitions++
		}
	}
	return defs, nil
}

// use rewrites a read of a variable to its active version. Identifiers that
// are never defined in the graph are inputs and stay as they are.
func (r *buildRun) use(instr *ir.Instruction, v ir.Value) (ir.Value, error) {
	id, ok := ir.AsIdentifier(v)
	if !ok || !r.vars.Contains(id.Name) {
		return v, nil
	}
	version, ok := r.names.current(id.Name)
	if !ok {
		return v, fmt.Errorf("%s at %q: %w", id.Name, instr.Label, ErrUndefinedVariable)
	}
	return id.WithVersion(version), nil
}

// patch points child's phi arms for node at node's active versions. An arm
// whose variable has no version on this path stays unversioned.
func (r *buildRun) patch(node, child *cfg.Node) error {
	exit := node.ExitLabel()
	for instr := range child.Block.Enumerate() {
		if !instr.IsPhi() {
			continue
		}
		variable, from, err := phiArm(r.graph, child, instr)
		if err != nil {
			return err
		}
		if from != exit {
			continue
		}
		if version, ok := r.names.current(variable.Name); ok {
			instr.Left = variable.WithVersion(version)
		}
	}
	return nil
}

func checkUnversioned(g *cfg.Graph) error {
	for _, node := range g.Nodes() {
		for instr := range node.Block.Enumerate() {
			for _, v := range []ir.Value{instr.Destination, instr.Left, instr.Right} {
				if id, ok := ir.AsIdentifier(v); ok && id.Renamed {
					return fmt.Errorf("%s at %q: %w", id, instr.Label, ErrAlreadySSA)
				}
			}
		}
	}
	return nil
}
