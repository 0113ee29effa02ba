package ir

import (
	"strconv"
	"strings"
)

// Value is an instruction operand: an identifier, a constant or a label reference.
type Value interface {
	isValue()
	String() string
}

// Identifier names a variable. Two identifiers denote the same variable when
// their names are equal; the SSA version is carried separately.
type Identifier struct {
	Name    string
	Version int
	Renamed bool
}

func (Identifier) isValue() {}

func (id Identifier) String() string {
	if !id.Renamed {
		return id.Name
	}
	return id.Name + strconv.Itoa(id.Version)
}

// Base returns the identifier without its SSA version.
func (id Identifier) Base() Identifier {
	return Identifier{Name: id.Name}
}

// WithVersion returns the identifier tagged with SSA version v.
func (id Identifier) WithVersion(v int) Identifier {
	return Identifier{Name: id.Name, Version: v, Renamed: true}
}

// Constant is a literal operand, kept in its source spelling.
type Constant struct {
	Literal string
}

func (Constant) isValue() {}

func (c Constant) String() string { return c.Literal }

// LabelRef refers to the instruction carrying Label. Jumps use it as their
// target and phi instructions use it to record the predecessor they merge from.
type LabelRef struct {
	Label Label
}

func (LabelRef) isValue() {}

func (l LabelRef) String() string { return string(l.Label) }

// Label tags an instruction. Labels are unique within a program.
type Label string

// PhiPrefix starts every synthetic merge placeholder name.
const PhiPrefix = "phi"

// PhiPlaceholder returns the placeholder identifier for merge group n.
func PhiPlaceholder(n int) Identifier {
	return Identifier{Name: PhiPrefix + strconv.Itoa(n)}
}

// IsPhiName reports whether name lies in the reserved placeholder namespace,
// i.e. "phi" followed by one or more decimal digits.
func IsPhiName(name string) bool {
	digits, ok := strings.CutPrefix(name, PhiPrefix)
	if !ok || digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsPhiPlaceholder reports whether v is a phi placeholder identifier.
func IsPhiPlaceholder(v Value) bool {
	id, ok := v.(Identifier)
	return ok && IsPhiName(id.Name)
}

// AsIdentifier returns v as an identifier when it is one.
func AsIdentifier(v Value) (Identifier, bool) {
	id, ok := v.(Identifier)
	return id, ok
}

// ParseOperand turns an operand spelling into a value. Numeric spellings and
// quoted strings become constants, everything else an identifier.
func ParseOperand(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return Constant{Literal: s}
	}
	if s == "true" || s == "false" || strings.HasPrefix(s, `"`) {
		return Constant{Literal: s}
	}
	return Identifier{Name: s}
}
