// Package irtest provides instruction builders and small sample programs for
// tests.
package irtest

import "github.com/meyzoo/OptimizingCompiler/internal/ir"

// Op builds "label: dst = left <op> right".
func Op(label string, op ir.Operation, dst, left, right string) *ir.Instruction {
	return ir.NewInstruction(ir.Label(label), op, ir.ParseOperand(dst), ir.ParseOperand(left), ir.ParseOperand(right))
}

// Assign builds "label: dst = src".
func Assign(label, dst, src string) *ir.Instruction {
	return Op(label, ir.OpAssign, dst, src, "")
}

// Goto builds "label: goto target".
func Goto(label, target string) *ir.Instruction {
	return ir.NewInstruction(ir.Label(label), ir.OpGoto, ir.LabelRef{Label: ir.Label(target)}, nil, nil)
}

// If builds "label: if cond goto target".
func If(label, cond, target string) *ir.Instruction {
	return ir.NewInstruction(ir.Label(label), ir.OpCondGoto, ir.LabelRef{Label: ir.Label(target)}, ir.ParseOperand(cond), nil)
}

// Print builds "label: print v".
func Print(label, v string) *ir.Instruction {
	return ir.NewInstruction(ir.Label(label), ir.OpPrint, nil, ir.ParseOperand(v), nil)
}

// Counter is the three-block loop
//
//	B0: L1: i = m - 1
//	B1: L2: if cond goto L3
//	B2: L3: i = i + 1
//	    L4: goto L2
//
// B1 merges B0 and B2.
func Counter() []*ir.Block {
	return []*ir.Block{
		ir.NewBlock(Op("L1", ir.OpSub, "i", "m", "1")),
		ir.NewBlock(If("L2", "cond", "L3")),
		ir.NewBlock(Op("L3", ir.OpAdd, "i", "i", "1"), Goto("L4", "L2")),
	}
}

// While is a loop with an exit block:
//
//	B0: L1: i = m - 1
//	B1: L2: if c goto L5
//	B2: L3: i = i + 1
//	    L4: goto L2
//	B3: L5: print i
func While() []*ir.Block {
	return []*ir.Block{
		ir.NewBlock(Op("L1", ir.OpSub, "i", "m", "1")),
		ir.NewBlock(If("L2", "c", "L5")),
		ir.NewBlock(Op("L3", ir.OpAdd, "i", "i", "1"), Goto("L4", "L2")),
		ir.NewBlock(Print("L5", "i")),
	}
}

// Diamond defines x on both arms of a conditional and y on one only:
//
//	B0: L1: x = 0
//	    L2: if c goto L6
//	B1: L3: x = 1
//	    L4: y = x + 2
//	    L5: goto L7
//	B2: L6: x = 2
//	B3: L7: print x
func Diamond() []*ir.Block {
	return []*ir.Block{
		ir.NewBlock(Assign("L1", "x", "0"), If("L2", "c", "L6")),
		ir.NewBlock(Assign("L3", "x", "1"), Op("L4", ir.OpAdd, "y", "x", "2"), Goto("L5", "L7")),
		ir.NewBlock(Assign("L6", "x", "2")),
		ir.NewBlock(Print("L7", "x")),
	}
}

// Nested is the source loop
//
//	i = m - 1; j = n; a = u1
//	while 1 { i = i + 1; j = j - 1; if 5 { a = u2 }; i = u3 }
//
// lowered to blocks:
//
//	B0: L1: i = m - 1
//	    L2: j = n
//	    L3: a = u1
//	B1: L4: if 1 goto L6
//	B2: L5: goto L12
//	B3: L6: i = i + 1
//	    L7: j = j - 1
//	    L8: if 5 goto L10
//	B4: L9: goto L11
//	B5: L10: a = u2
//	B6: L11: i = u3
//	    L13: goto L4
//	B7: L12: noop
func Nested() []*ir.Block {
	return []*ir.Block{
		ir.NewBlock(Op("L1", ir.OpSub, "i", "m", "1"), Assign("L2", "j", "n"), Assign("L3", "a", "u1")),
		ir.NewBlock(If("L4", "1", "L6")),
		ir.NewBlock(Goto("L5", "L12")),
		ir.NewBlock(Op("L6", ir.OpAdd, "i", "i", "1"), Op("L7", ir.OpSub, "j", "j", "1"), If("L8", "5", "L10")),
		ir.NewBlock(Goto("L9", "L11")),
		ir.NewBlock(Assign("L10", "a", "u2")),
		ir.NewBlock(Assign("L11", "i", "u3"), Goto("L13", "L4")),
		ir.NewBlock(ir.NewInstruction("L12", ir.OpNoop, nil, nil, nil)),
	}
}

// Listing renders blocks as plain text, one instruction per line.
func Listing(blocks []*ir.Block) []string {
	var out []string
	for _, b := range blocks {
		for instr := range b.Enumerate() {
			out = append(out, instr.String())
		}
	}
	return out
}
