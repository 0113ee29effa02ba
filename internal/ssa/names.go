package ssa

// namer holds the per-run version state: a stack of active versions and the
// next version to hand out, both keyed by variable name. step is +1 while
// building and -1 while removing.
type namer struct {
	stacks   map[string][]int
	counters map[string]int
	step     int
}

func newNamer(step int) *namer {
	return &namer{
		stacks:   make(map[string][]int),
		counters: make(map[string]int),
		step:     step,
	}
}

// fresh allocates the next version of name and makes it active.
func (n *namer) fresh(name string) int {
	v := n.counters[name]
	n.stacks[name] = append(n.stacks[name], v)
	n.counters[name] = v + n.step
	return v
}

// current returns the active version of name.
func (n *namer) current(name string) (int, bool) {
	stack := n.stacks[name]
	if len(stack) == 0 {
		return 0, false
	}
	return stack[len(stack)-1], true
}

// pop discards the innermost active version of name.
func (n *namer) pop(name string) {
	stack := n.stacks[name]
	if len(stack) == 0 {
		return
	}
	n.stacks[name] = stack[:len(stack)-1]
}

// depth reports how many versions of name are active.
func (n *namer) depth(name string) int {
	return len(n.stacks[name])
}
