package ssa

import (
	"fmt"

	"github.com/meyzoo/OptimizingCompiler/internal/cfg"
	"github.com/meyzoo/OptimizingCompiler/internal/ir"
)

// Verify checks that no two definitions of a variable share a version.
func Verify(g *cfg.Graph) error {
	seen := make(map[string]map[int]ir.Label)
	for _, node := range g.Nodes() {
		for instr := range node.Block.Enumerate() {
			dst, ok := instr.Defines()
			if !ok || !dst.Renamed {
				continue
			}
			versions, ok := seen[dst.Name]
			if !ok {
				versions = make(map[int]ir.Label)
				seen[dst.Name] = versions
			}
			if prev, dup := versions[dst.Version]; dup {
				return fmt.Errorf("%s at %q and %q: %w", dst, prev, instr.Label, ErrDuplicateVersion)
			}
			versions[dst.Version] = instr.Label
		}
	}
	return nil
}
