package ir

import (
	"fmt"
	"strings"
)

// Operation is the opcode of a three-address instruction.
type Operation int

const (
	OpNoop Operation = iota
	OpAssign
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLess
	OpLessEq
	OpGreater
	OpGreaterEq
	OpEqual
	OpNotEqual
	OpAnd
	OpOr
	OpNot
	OpGoto
	OpCondGoto
	OpPrint
	OpPhi
)

var operationNames = [...]string{
	OpNoop:      "noop",
	OpAssign:    "assign",
	OpAdd:       "add",
	OpSub:       "sub",
	OpMul:       "mul",
	OpDiv:       "div",
	OpMod:       "mod",
	OpLess:      "lt",
	OpLessEq:    "le",
	OpGreater:   "gt",
	OpGreaterEq: "ge",
	OpEqual:     "eq",
	OpNotEqual:  "ne",
	OpAnd:       "and",
	OpOr:        "or",
	OpNot:       "not",
	OpGoto:      "goto",
	OpCondGoto:  "if",
	OpPrint:     "print",
	OpPhi:       "phi",
}

var binarySymbols = map[Operation]string{
	OpAdd:       "+",
	OpSub:       "-",
	OpMul:       "*",
	OpDiv:       "/",
	OpMod:       "%",
	OpLess:      "<",
	OpLessEq:    "<=",
	OpGreater:   ">",
	OpGreaterEq: ">=",
	OpEqual:     "==",
	OpNotEqual:  "!=",
	OpAnd:       "&&",
	OpOr:        "||",
}

func (op Operation) String() string {
	if op >= 0 && int(op) < len(operationNames) {
		return operationNames[op]
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// ParseOperation maps a mnemonic back to its operation.
func ParseOperation(s string) (Operation, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for op, name := range operationNames {
		if name == s {
			return Operation(op), true
		}
	}
	switch s {
	case "cond_goto", "condgoto", "ifgoto":
		return OpCondGoto, true
	case "=", "mov", "copy":
		return OpAssign, true
	}
	return OpNoop, false
}

// IsJump reports whether the operation transfers control.
func (op Operation) IsJump() bool {
	return op == OpGoto || op == OpCondGoto
}

// Instruction is one three-address operation. Instructions are addressed by
// pointer identity; Label is the cross-reference tag.
type Instruction struct {
	Op          Operation
	Destination Value
	Left        Value
	Right       Value
	Label       Label
}

// NewInstruction creates an instruction with the given operands.
func NewInstruction(label Label, op Operation, dst, left, right Value) *Instruction {
	return &Instruction{
		Op:          op,
		Destination: dst,
		Left:        left,
		Right:       right,
		Label:       label,
	}
}

// Target returns the jump target label of a goto or conditional goto.
func (i *Instruction) Target() (Label, bool) {
	if !i.Op.IsJump() {
		return "", false
	}
	ref, ok := i.Destination.(LabelRef)
	if !ok {
		return "", false
	}
	return ref.Label, true
}

// Defines returns the identifier the instruction assigns, if any.
func (i *Instruction) Defines() (Identifier, bool) {
	if i.Op.IsJump() {
		return Identifier{}, false
	}
	return AsIdentifier(i.Destination)
}

// IsPhi reports whether the instruction is a phi arm.
func (i *Instruction) IsPhi() bool {
	return i.Op == OpPhi
}

// IsPhiAssign reports whether the instruction is the ordinary assignment that
// binds a merged variable to its phi placeholder.
func (i *Instruction) IsPhiAssign() bool {
	return i.Op == OpAssign && IsPhiPlaceholder(i.Left)
}

// Clone returns a shallow copy. Values are immutable so this is a full copy.
func (i *Instruction) Clone() *Instruction {
	c := *i
	return &c
}

func (i *Instruction) String() string {
	var b strings.Builder
	if i.Label != "" {
		fmt.Fprintf(&b, "%s: ", i.Label)
	}
	b.WriteString(i.body())
	return b.String()
}

func (i *Instruction) body() string {
	switch i.Op {
	case OpNoop:
		return "noop"
	case OpGoto:
		return fmt.Sprintf("goto %s", str(i.Destination))
	case OpCondGoto:
		return fmt.Sprintf("if %s goto %s", str(i.Left), str(i.Destination))
	case OpPrint:
		return fmt.Sprintf("print %s", str(i.Left))
	case OpPhi:
		return fmt.Sprintf("%s = phi(%s, %s)", str(i.Destination), str(i.Left), str(i.Right))
	case OpAssign:
		return fmt.Sprintf("%s = %s", str(i.Destination), str(i.Left))
	case OpNot:
		return fmt.Sprintf("%s = !%s", str(i.Destination), str(i.Left))
	}
	if sym, ok := binarySymbols[i.Op]; ok {
		return fmt.Sprintf("%s = %s %s %s", str(i.Destination), str(i.Left), sym, str(i.Right))
	}
	return fmt.Sprintf("%s %s %s %s", i.Op, str(i.Destination), str(i.Left), str(i.Right))
}

func str(v Value) string {
	if v == nil {
		return "_"
	}
	return v.String()
}
