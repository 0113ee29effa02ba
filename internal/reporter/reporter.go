package reporter

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/meyzoo/OptimizingCompiler/internal/cfg"
	"github.com/meyzoo/OptimizingCompiler/internal/config"
	"github.com/meyzoo/OptimizingCompiler/internal/pipeline"
)

// Reporter generates pipeline reports
type Reporter struct {
	config *config.Config
	logger *zap.Logger
}

// New creates a new reporter instance
func New(cfg *config.Config, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		config: cfg,
		logger: logger,
	}
}

// Generate renders results and writes them to the configured file or stdout
func (r *Reporter) Generate(results *pipeline.Result) error {
	output, err := r.Render(results)
	if err != nil {
		return err
	}

	// Write to file or stdout
	if r.config.OutputFile != "" {
		if err := os.WriteFile(r.config.OutputFile, []byte(output), 0644); err != nil {
			return fmt.Errorf("failed to write report to file: %w", err)
		}
		r.logger.Info("Report written", zap.String("file", r.config.OutputFile))
	} else {
		fmt.Print(output)
	}

	return nil
}

// Render renders results in the configured format
func (r *Reporter) Render(results *pipeline.Result) (string, error) {
	format, ok := config.ParseFormat(r.config.Format)
	if !ok {
		return "", fmt.Errorf("unsupported output format: %s", r.config.Format)
	}

	var output string
	var err error
	switch format {
	case config.FormatJSON:
		output, err = r.generateJSON(results)
	case config.FormatDOT:
		output = r.generateDOT(results)
	default:
		output = r.generateText(results)
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}
	return output, nil
}

// generateText generates a human-readable text report
func (r *Reporter) generateText(results *pipeline.Result) string {
	var sb strings.Builder

	// Header
	sb.WriteString("=== SSA Pipeline Report ===\n\n")
	sb.WriteString(fmt.Sprintf("Completed at: %s\n", results.EndTime.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Duration: %s\n", results.Duration.String()))
	if stats := results.Statistics; stats != nil {
		sb.WriteString(fmt.Sprintf("Units processed: %d\n", stats.UnitsProcessed))
		sb.WriteString(fmt.Sprintf("Units failed: %d\n", stats.UnitsFailed))
		sb.WriteString(fmt.Sprintf("Blocks: %d\n", stats.Blocks))
		sb.WriteString(fmt.Sprintf("Phi groups: %d (%d arms)\n", stats.PhiGroups, stats.PhiArms))
		sb.WriteString(fmt.Sprintf("Natural loops: %d\n", stats.Loops))
		sb.WriteString(fmt.Sprintf("Irreducible graphs: %d\n", stats.Irreducible))
	}
	sb.WriteString("\n")

	for _, unit := range results.Units {
		r.writeUnit(&sb, unit)
	}
	return sb.String()
}

func (r *Reporter) writeUnit(sb *strings.Builder, unit *pipeline.UnitResult) {
	title := unit.Name
	if unit.Source != "" {
		title = fmt.Sprintf("%s (%s)", unit.Name, unit.Source)
	}
	sb.WriteString(fmt.Sprintf("=== Unit: %s ===\n", title))

	if m := unit.Metrics; m != nil {
		sb.WriteString(fmt.Sprintf("Nodes: %d  Edges: %d  Unreachable: %d  Cyclomatic complexity: %d  Reducible: %s\n",
			m.NodeCount, m.EdgeCount, m.UnreachableNodes, m.CyclomaticComplexity, yesNo(m.Reducible)))
	}

	if len(unit.Original) > 0 {
		writeListing(sb, "Program", unit.Original)
	}

	if len(unit.Edges) > 0 {
		sb.WriteString("-- Edges --\n")
		rows := make([][]string, 0, len(unit.Edges))
		for _, e := range unit.Edges {
			rows = append(rows, []string{nodeName(e.From), nodeName(e.To), e.Kind, e.Type})
		}
		writeTable(sb, []string{"From", "To", "Kind", "Type"}, rows)
	}

	if len(unit.Numbering) > 0 {
		sb.WriteString("-- Depth spanning tree --\n")
		ids := make([]cfg.NodeID, 0, len(unit.Numbering))
		for id := range unit.Numbering {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return unit.Numbering[ids[i]] < unit.Numbering[ids[j]] })
		rows := make([][]string, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, []string{strconv.Itoa(unit.Numbering[id]), nodeName(id)})
		}
		writeTable(sb, []string{"Number", "Node"}, rows)
	}

	if len(unit.Loops) > 0 {
		sb.WriteString("-- Natural loops --\n")
		rows := make([][]string, 0, len(unit.Loops))
		for _, loop := range unit.Loops {
			body := make([]string, 0, len(loop.Nodes))
			for _, id := range loop.Nodes {
				body = append(body, nodeName(id))
			}
			rows = append(rows, []string{nodeName(loop.Header), nodeName(loop.Latch), strings.Join(body, " ")})
		}
		writeTable(sb, []string{"Header", "Latch", "Body"}, rows)
	}

	if len(unit.SSA) > 0 {
		writeListing(sb, "SSA", unit.SSA)
	}
	if b := unit.Build; b != nil {
		sb.WriteString(fmt.Sprintf("Variables: %s  Phi groups: %d  Phi arms: %d  Definitions: %d\n",
			strings.Join(b.Variables, ", "), b.PhiGroups, b.PhiArms, b.Definitions))
	}

	if unit.Remove != nil {
		status := color.New(color.FgGreen, color.Bold).Sprint("OK")
		if !unit.RoundTripOK {
			status = color.New(color.FgRed, color.Bold).Sprint("MISMATCH")
			writeListing(sb, "Restored", unit.Restored)
		}
		sb.WriteString(fmt.Sprintf("Round trip: %s (%d removed, %d restored)\n",
			status, unit.Remove.Removed, unit.Remove.Restored))
	}

	if unit.Error != "" {
		sb.WriteString(fmt.Sprintf("%s %s\n", color.New(color.FgRed).Sprint("Error:"), unit.Error))
	}
	sb.WriteString("\n")
}

// generateJSON generates a JSON report
func (r *Reporter) generateJSON(results *pipeline.Result) (string, error) {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}

// generateDOT emits the graph and the spanning tree of every unit
func (r *Reporter) generateDOT(results *pipeline.Result) string {
	var sb strings.Builder
	for _, unit := range results.Units {
		if unit.GraphDOT != "" {
			sb.WriteString(fmt.Sprintf("// %s: control-flow graph\n", unit.Name))
			sb.WriteString(unit.GraphDOT)
		}
		if unit.TreeDOT != "" {
			sb.WriteString(fmt.Sprintf("// %s: depth spanning tree\n", unit.Name))
			sb.WriteString(unit.TreeDOT)
		}
	}
	return sb.String()
}

func writeListing(sb *strings.Builder, title string, lines []string) {
	sb.WriteString(fmt.Sprintf("-- %s --\n", title))
	for _, line := range lines {
		sb.WriteString("  ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
}

func writeTable(sb *strings.Builder, header []string, rows [][]string) {
	table := tablewriter.NewWriter(sb)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.AppendBulk(rows)
	table.Render()
}

func nodeName(id cfg.NodeID) string {
	return fmt.Sprintf("B%d", id)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
