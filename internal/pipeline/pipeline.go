// Package pipeline runs compilation units through graph construction,
// spanning-tree numbering, SSA construction and SSA destruction.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/meyzoo/OptimizingCompiler/internal/cfg"
	"github.com/meyzoo/OptimizingCompiler/internal/config"
	"github.com/meyzoo/OptimizingCompiler/internal/loader"
	"github.com/meyzoo/OptimizingCompiler/internal/ssa"
)

var ErrRoundTrip = errors.New("program changed across SSA round trip")

// Pipeline processes compilation units on a pool of workers
type Pipeline struct {
	config *config.Config
	logger *zap.Logger
}

// New creates a new pipeline instance
func New(cfg *config.Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{config: cfg, logger: logger}
}

// Result represents the outcome of one run
type Result struct {
	Units      []*UnitResult `json:"units"`
	Statistics *Statistics   `json:"statistics"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Duration   time.Duration `json:"duration"`
}

// Statistics aggregates over all units
type Statistics struct {
	UnitsProcessed    int           `json:"units_processed"`
	UnitsFailed       int           `json:"units_failed"`
	Blocks            int           `json:"blocks"`
	Variables         int           `json:"variables"`
	PhiGroups         int           `json:"phi_groups"`
	PhiArms           int           `json:"phi_arms"`
	Loops             int           `json:"loops"`
	Irreducible       int           `json:"irreducible"`
	RoundTripFailures int           `json:"round_trip_failures"`
	ProcessingTime    time.Duration `json:"processing_time"`
	Workers           int           `json:"workers"`
}

// UnitResult is everything computed for one compilation unit
type UnitResult struct {
	Name        string             `json:"name"`
	Source      string             `json:"source,omitempty"`
	Original    []string           `json:"original"`
	SSA         []string           `json:"ssa,omitempty"`
	Restored    []string           `json:"restored,omitempty"`
	Edges       []EdgeReport       `json:"edges"`
	Numbering   map[cfg.NodeID]int `json:"numbering,omitempty"`
	TreeDOT     string             `json:"tree_dot,omitempty"`
	GraphDOT    string             `json:"graph_dot,omitempty"`
	Loops       []*cfg.Loop        `json:"loops,omitempty"`
	Metrics     *cfg.Metrics       `json:"metrics,omitempty"`
	Build       *ssa.BuildSummary  `json:"build,omitempty"`
	Remove      *ssa.RemoveSummary `json:"remove,omitempty"`
	RoundTripOK bool               `json:"round_trip_ok"`
	Error       string             `json:"error,omitempty"`
	Duration    time.Duration      `json:"duration"`
	Err         error              `json:"-"`

	blocks   int
	sequence int
}

// EdgeReport is one classified edge
type EdgeReport struct {
	From cfg.NodeID `json:"from"`
	To   cfg.NodeID `json:"to"`
	Kind string     `json:"kind"`
	Type string     `json:"type"`
}

// unitJob is a unit waiting for a worker
type unitJob struct {
	sequence int
	program  *loader.Program
}

// Run processes every program. A unit that fails is reported with its error
// and does not stop the others; cancelling ctx stops handing out new units.
func (p *Pipeline) Run(ctx context.Context, programs []*loader.Program) (*Result, error) {
	startTime := time.Now()
	workers := p.config.Parallel
	if workers <= 0 {
		workers = 1
	}

	p.logger.Info("Starting pipeline",
		zap.Int("units", len(programs)),
		zap.Int("workers", workers))

	result := &Result{
		Units:      make([]*UnitResult, 0, len(programs)),
		StartTime:  startTime,
		Statistics: &Statistics{Workers: workers},
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan *unitJob, workers*2)
	units := make(chan *UnitResult, workers*2)

	// Start workers
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go p.worker(ctx, &wg, jobs, units)
	}

	// Start unit collector
	collected := make([]*UnitResult, len(programs))
	var collectorWg sync.WaitGroup
	collectorWg.Add(1)
	go func() {
		defer collectorWg.Done()
		for unit := range units {
			collected[unit.sequence] = unit
		}
	}()

	dispatchErr := dispatch(ctx, programs, jobs)

	close(jobs)
	wg.Wait()
	close(units)
	collectorWg.Wait()

	for _, unit := range collected {
		if unit == nil {
			continue
		}
		result.Units = append(result.Units, unit)
		p.account(result.Statistics, unit)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Statistics.ProcessingTime = result.Duration

	p.logger.Info("Pipeline completed",
		zap.Int("units", result.Statistics.UnitsProcessed),
		zap.Int("failed", result.Statistics.UnitsFailed),
		zap.Duration("duration", result.Duration))

	if dispatchErr != nil {
		return result, fmt.Errorf("pipeline interrupted: %w", dispatchErr)
	}
	return result, nil
}

func dispatch(ctx context.Context, programs []*loader.Program, jobs chan<- *unitJob) error {
	for i, program := range programs {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case jobs <- &unitJob{sequence: i, program: program}:
		}
	}
	return nil
}

// worker processes unit jobs in parallel
func (p *Pipeline) worker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan *unitJob, units chan<- *UnitResult) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			unit := p.Process(job.program)
			unit.sequence = job.sequence
			units <- unit
		}
	}
}

// Process runs a single unit to completion. The program's blocks are
// rewritten in place.
func (p *Pipeline) Process(program *loader.Program) *UnitResult {
	start := time.Now()
	unit := &UnitResult{
		Name:   program.Name,
		Source: program.Source,
		blocks: len(program.Blocks),
	}

	if err := p.process(program, unit); err != nil {
		unit.Err = err
		unit.Error = err.Error()
		p.logger.Warn("Unit failed", zap.String("unit", program.Name), zap.Error(err))
	}
	unit.Duration = time.Since(start)

	p.logger.Debug("Processed unit",
		zap.String("unit", program.Name),
		zap.Bool("round_trip_ok", unit.RoundTripOK),
		zap.Duration("duration", unit.Duration))
	return unit
}

func (p *Pipeline) process(program *loader.Program, unit *UnitResult) error {
	g, err := cfg.New(program.Blocks)
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}
	unit.Original = lines(g)

	types := g.EdgeTypes()
	for _, e := range g.Edges() {
		unit.Edges = append(unit.Edges, EdgeReport{
			From: e.From,
			To:   e.To,
			Kind: e.Kind.String(),
			Type: types[e].String(),
		})
	}
	unit.Metrics = g.ComputeMetrics()
	unit.GraphDOT = cfg.NewVisualizer(g).ToDotFormat()

	if p.config.Analysis.Tree {
		tree := cfg.NewDepthSpanningTree(g)
		unit.Numbering = tree.Numbers()
		unit.TreeDOT = tree.DOT()
	}
	if p.config.Analysis.Loops {
		unit.Loops = g.NaturalCyclesForBackwardEdges()
	}

	unit.Build, err = ssa.NewBuilder(g, p.logger).Build()
	if err != nil {
		return fmt.Errorf("build ssa: %w", err)
	}
	unit.SSA = lines(g)

	if p.config.SSA.Verify {
		if err := ssa.Verify(g); err != nil {
			return fmt.Errorf("verify ssa: %w", err)
		}
	}

	if !p.config.SSA.Remove {
		return nil
	}

	unit.Remove, err = ssa.NewRemover(g, p.logger).Remove()
	if err != nil {
		return fmt.Errorf("remove ssa: %w", err)
	}
	unit.Restored = lines(g)
	unit.RoundTripOK = slices.Equal(unit.Original, unit.Restored)
	if !unit.RoundTripOK {
		return ErrRoundTrip
	}
	return nil
}

func (p *Pipeline) account(stats *Statistics, unit *UnitResult) {
	stats.UnitsProcessed++
	stats.Blocks += unit.blocks
	if unit.Err != nil {
		stats.UnitsFailed++
	}
	if unit.Build != nil {
		stats.Variables += len(unit.Build.Variables)
		stats.PhiGroups += unit.Build.PhiGroups
		stats.PhiArms += unit.Build.PhiArms
	}
	if unit.Metrics != nil {
		stats.Loops += unit.Metrics.LoopCount
		if !unit.Metrics.Reducible {
			stats.Irreducible++
		}
	}
	if unit.Remove != nil && !unit.RoundTripOK {
		stats.RoundTripFailures++
	}
}

func lines(g *cfg.Graph) []string {
	var out []string
	for _, b := range g.Blocks() {
		for instr := range b.Enumerate() {
			out = append(out, instr.String())
		}
	}
	return out
}
