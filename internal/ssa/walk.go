package ssa

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/meyzoo/OptimizingCompiler/internal/cfg"
)

// visitor supplies the per-node bodies of the renaming walk.
type visitor interface {
	// rename rewrites the node's own instructions and returns the names it
	// pushed a version for, in push order.
	rename(node *cfg.Node) ([]string, error)
	// patch fixes the phi arms in child that merge from node.
	patch(node, child *cfg.Node) error
}

type frame struct {
	node     *cfg.Node
	children []cfg.NodeID
	next     int
	defs     []string
}

// walk performs the depth-first renaming walk from root. A node is renamed,
// its children's phi arms are patched (visited children included, so back
// edges fill their arm), the node is marked visited, then each unvisited
// child is walked, direct child first. When a node's subtree is finished,
// the versions it pushed are popped again.
//
// The walk keeps an explicit stack but visits nodes in exactly the order of
// the recursive formulation, which both builder and remover rely on.
func walk(g *cfg.Graph, names *namer, v visitor) error {
	visited := mapset.NewThreadUnsafeSet[cfg.NodeID]()

	enter := func(node *cfg.Node) (*frame, error) {
		defs, err := v.rename(node)
		if err != nil {
			return nil, err
		}
		children := g.Children(node.ID)
		for _, id := range children {
			if err := v.patch(node, g.Node(id)); err != nil {
				return nil, err
			}
		}
		visited.Add(node.ID)
		return &frame{node: node, children: children, defs: defs}, nil
	}

	root, err := enter(g.Root())
	if err != nil {
		return err
	}
	stack := []*frame{root}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next < len(top.children) {
			child := top.children[top.next]
			top.next++
			if visited.Contains(child) {
				continue
			}
			f, err := enter(g.Node(child))
			if err != nil {
				return err
			}
			stack = append(stack, f)
			continue
		}

		for i := len(top.defs) - 1; i >= 0; i-- {
			names.pop(top.defs[i])
		}
		stack = stack[:len(stack)-1]
	}

	return nil
}
