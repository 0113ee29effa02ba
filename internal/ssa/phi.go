package ssa

import (
	"errors"
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/meyzoo/OptimizingCompiler/internal/cfg"
	"github.com/meyzoo/OptimizingCompiler/internal/ir"
)

var (
	ErrUndefinedVariable = errors.New("variable used before any definition")
	ErrMalformedPhi      = errors.New("malformed phi instruction")
	ErrAlreadySSA        = errors.New("graph already carries SSA versions")
	ErrDuplicateVersion  = errors.New("version defined more than once")
)

// DiscoverVariables returns the sorted names of every variable defined in g,
// ignoring phi instructions and the reserved placeholder namespace.
func DiscoverVariables(g *cfg.Graph) []string {
	vars := mapset.NewThreadUnsafeSet[string]()
	for _, block := range g.Blocks() {
		for instr := range block.Enumerate() {
			if instr.IsPhi() {
				continue
			}
			if dst, ok := instr.Defines(); ok && !ir.IsPhiName(dst.Name) {
				vars.Add(dst.Name)
			}
		}
	}
	return sortedNames(vars)
}

// phiArm validates a phi instruction found in child and returns the variable
// it merges and the exit label of the predecessor it merges from.
func phiArm(g *cfg.Graph, child *cfg.Node, instr *ir.Instruction) (ir.Identifier, ir.Label, error) {
	variable, ok := ir.AsIdentifier(instr.Left)
	if !ok || !ir.IsPhiPlaceholder(instr.Destination) {
		return ir.Identifier{}, "", fmt.Errorf("%q in %s: bad operands: %w", instr.Label, child, ErrMalformedPhi)
	}
	ref, ok := instr.Right.(ir.LabelRef)
	if !ok {
		return ir.Identifier{}, "", fmt.Errorf("%q in %s: no predecessor label: %w", instr.Label, child, ErrMalformedPhi)
	}
	for _, p := range g.Parents(child.ID) {
		if g.Node(p).ExitLabel() == ref.Label {
			return variable, ref.Label, nil
		}
	}
	return ir.Identifier{}, "", fmt.Errorf("%q in %s: %q is not a predecessor exit: %w", instr.Label, child, ref.Label, ErrMalformedPhi)
}

func sortedNames(set mapset.Set[string]) []string {
	names := set.ToSlice()
	slices.Sort(names)
	return names
}
