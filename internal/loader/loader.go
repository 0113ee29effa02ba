// Package loader reads compilation units from YAML. A unit is a list of
// basic blocks that have already been partitioned; each block is a list of
// three-address instructions.
//
//	name: counter
//	blocks:
//	  - instructions:
//	      - {label: L1, op: sub, dst: i, left: m, right: 1}
//	  - instructions:
//	      - {label: L2, op: if, left: cond, target: L3}
//
// Instructions without a label are labelled L<n> by program position.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/meyzoo/OptimizingCompiler/internal/ir"
)

var ErrInvalidProgram = errors.New("invalid program")

// YAMLProgram is the on-disk form of a compilation unit.
type YAMLProgram struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Blocks      []YAMLBlock `yaml:"blocks"`
}

// YAMLBlock is one basic block.
type YAMLBlock struct {
	Instructions []YAMLInstruction `yaml:"instructions"`
}

// YAMLInstruction is one three-address instruction. Operands are written as
// they print: identifiers, numeric or boolean literals, or quoted strings.
type YAMLInstruction struct {
	Label  string `yaml:"label"`
	Op     string `yaml:"op"`
	Dst    string `yaml:"dst"`
	Left   string `yaml:"left"`
	Right  string `yaml:"right"`
	Target string `yaml:"target"`
}

// Program is a loaded compilation unit.
type Program struct {
	Name        string
	Description string
	Source      string
	Blocks      []*ir.Block
}

// Loader reads programs from files and directories.
type Loader struct {
	logger *zap.Logger
}

// New creates a loader.
func New(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// LoadPaths loads every path given. Directories contribute their *.yaml and
// *.yml files in name order.
func (l *Loader) LoadPaths(paths []string) ([]*Program, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		found, err := yamlFiles(path)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}

	programs := make([]*Program, 0, len(files))
	for _, file := range files {
		program, err := l.LoadFile(file)
		if err != nil {
			return nil, err
		}
		programs = append(programs, program)
	}
	return programs, nil
}

// LoadFile loads a single program. A program without a name is named after
// its file.
func (l *Loader) LoadFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	program, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if program.Name == "" {
		program.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	program.Source = path

	l.logger.Debug("Loaded program",
		zap.String("name", program.Name),
		zap.String("source", path),
		zap.Int("blocks", len(program.Blocks)))
	return program, nil
}

// Parse decodes and validates a program.
func Parse(data []byte) (*Program, error) {
	var raw YAMLProgram
	if err := yaml.UnmarshalStrict(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return convert(&raw)
}

func convert(raw *YAMLProgram) (*Program, error) {
	if len(raw.Blocks) == 0 {
		return nil, fmt.Errorf("no blocks: %w", ErrInvalidProgram)
	}

	labels := make(map[string]bool)
	position := 0
	program := &Program{Name: raw.Name, Description: raw.Description}

	for b, block := range raw.Blocks {
		if len(block.Instructions) == 0 {
			return nil, fmt.Errorf("block %d is empty: %w", b, ErrInvalidProgram)
		}
		instrs := make([]*ir.Instruction, 0, len(block.Instructions))
		for _, yi := range block.Instructions {
			position++
			label := yi.Label
			if label == "" {
				label = fmt.Sprintf("L%d", position)
			}
			if labels[label] {
				return nil, fmt.Errorf("duplicate label %q: %w", label, ErrInvalidProgram)
			}
			labels[label] = true

			instr, err := convertInstruction(label, yi)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", label, err)
			}
			instrs = append(instrs, instr)
		}
		program.Blocks = append(program.Blocks, ir.NewBlock(instrs...))
	}
	return program, nil
}

func convertInstruction(label string, yi YAMLInstruction) (*ir.Instruction, error) {
	if ir.IsPhiName(label) || isPhiArmLabel(label) {
		return nil, fmt.Errorf("label %q is reserved: %w", label, ErrInvalidProgram)
	}

	op, ok := ir.ParseOperation(yi.Op)
	if !ok {
		return nil, fmt.Errorf("unknown operation %q: %w", yi.Op, ErrInvalidProgram)
	}
	if op == ir.OpPhi {
		return nil, fmt.Errorf("phi is not a source operation: %w", ErrInvalidProgram)
	}

	var dst ir.Value
	if op.IsJump() {
		if yi.Target == "" {
			return nil, fmt.Errorf("%s without target: %w", op, ErrInvalidProgram)
		}
		dst = ir.LabelRef{Label: ir.Label(yi.Target)}
	} else if yi.Target != "" {
		return nil, fmt.Errorf("%s cannot jump: %w", op, ErrInvalidProgram)
	} else {
		dst = ir.ParseOperand(yi.Dst)
		if dst != nil {
			if _, ok := ir.AsIdentifier(dst); !ok {
				return nil, fmt.Errorf("cannot assign to %s: %w", dst, ErrInvalidProgram)
			}
		}
	}

	left, right := ir.ParseOperand(yi.Left), ir.ParseOperand(yi.Right)
	for _, v := range []ir.Value{dst, left, right} {
		if id, ok := ir.AsIdentifier(v); ok && ir.IsPhiName(id.Name) {
			return nil, fmt.Errorf("identifier %q is reserved: %w", id.Name, ErrInvalidProgram)
		}
	}

	if err := checkArity(op, dst, left, right); err != nil {
		return nil, err
	}
	return ir.NewInstruction(ir.Label(label), op, dst, left, right), nil
}

func checkArity(op ir.Operation, dst, left, right ir.Value) error {
	switch op {
	case ir.OpNoop, ir.OpGoto:
		return nil
	case ir.OpCondGoto, ir.OpPrint:
		if left == nil {
			return fmt.Errorf("%s needs an operand: %w", op, ErrInvalidProgram)
		}
		return nil
	case ir.OpAssign, ir.OpNot:
		if dst == nil || left == nil {
			return fmt.Errorf("%s needs dst and left: %w", op, ErrInvalidProgram)
		}
		return nil
	}
	if dst == nil || left == nil || right == nil {
		return fmt.Errorf("%s needs dst, left and right: %w", op, ErrInvalidProgram)
	}
	return nil
}

// isPhiArmLabel matches the "phiN.k" labels given to phi arms.
func isPhiArmLabel(label string) bool {
	group, arm, ok := strings.Cut(label, ".")
	if !ok || !ir.IsPhiName(group) || arm == "" {
		return false
	}
	for _, r := range arm {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func yamlFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err == nil {
		files = append(files, ymlFiles...)
	}
	sort.Strings(files)
	return files, nil
}
