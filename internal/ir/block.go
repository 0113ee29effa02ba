package ir

import (
	"errors"
	"fmt"
	"iter"
	"strings"
)

// ErrNotFound is returned when an instruction is not part of a block.
var ErrNotFound = errors.New("instruction not found in block")

// Block is an ordered, mutable sequence of instructions.
type Block struct {
	instrs []*Instruction
}

// NewBlock creates a block holding instrs in order.
func NewBlock(instrs ...*Instruction) *Block {
	b := &Block{instrs: make([]*Instruction, 0, len(instrs))}
	b.instrs = append(b.instrs, instrs...)
	return b
}

// Len returns the number of instructions.
func (b *Block) Len() int { return len(b.instrs) }

// First returns the first instruction or nil for an empty block.
func (b *Block) First() *Instruction {
	if len(b.instrs) == 0 {
		return nil
	}
	return b.instrs[0]
}

// Last returns the exit instruction or nil for an empty block.
func (b *Block) Last() *Instruction {
	if len(b.instrs) == 0 {
		return nil
	}
	return b.instrs[len(b.instrs)-1]
}

// Append adds instr at the end of the block.
func (b *Block) Append(instr *Instruction) {
	b.instrs = append(b.instrs, instr)
}

// Prepend adds instr at the front of the block.
func (b *Block) Prepend(instr *Instruction) {
	b.instrs = append([]*Instruction{instr}, b.instrs...)
}

// InsertAfter places instr directly behind anchor.
func (b *Block) InsertAfter(anchor, instr *Instruction) error {
	idx := b.indexOf(anchor)
	if idx < 0 {
		return fmt.Errorf("insert after %q: %w", anchor.Label, ErrNotFound)
	}
	b.instrs = append(b.instrs, nil)
	copy(b.instrs[idx+2:], b.instrs[idx+1:])
	b.instrs[idx+1] = instr
	return nil
}

// Remove deletes instr, compared by identity.
func (b *Block) Remove(instr *Instruction) error {
	idx := b.indexOf(instr)
	if idx < 0 {
		return fmt.Errorf("remove %q: %w", instr.Label, ErrNotFound)
	}
	b.instrs = append(b.instrs[:idx], b.instrs[idx+1:]...)
	return nil
}

// Contains reports whether instr belongs to the block.
func (b *Block) Contains(instr *Instruction) bool {
	return b.indexOf(instr) >= 0
}

// Enumerate yields the instructions present at call time. The snapshot is
// private to the returned sequence, so the block may be mutated while it is
// being ranged over.
func (b *Block) Enumerate() iter.Seq[*Instruction] {
	snapshot := b.Instructions()
	return func(yield func(*Instruction) bool) {
		for _, instr := range snapshot {
			if !yield(instr) {
				return
			}
		}
	}
}

// Instructions returns a copy of the instruction list.
func (b *Block) Instructions() []*Instruction {
	out := make([]*Instruction, len(b.instrs))
	copy(out, b.instrs)
	return out
}

func (b *Block) indexOf(instr *Instruction) int {
	if instr == nil {
		return -1
	}
	for i, x := range b.instrs {
		if x == instr {
			return i
		}
	}
	return -1
}

func (b *Block) String() string {
	var sb strings.Builder
	for _, instr := range b.instrs {
		sb.WriteString(instr.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
