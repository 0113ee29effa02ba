package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Inputs     []string
	OutputFile string
	Format     string
	Parallel   int
	Verbose    bool
	SSA        SSAConfig      `mapstructure:"ssa"`
	Analysis   AnalysisConfig `mapstructure:"analysis"`
	Index      IndexConfig    `mapstructure:"index"`
}

// SSAConfig controls the SSA stages run on every unit
type SSAConfig struct {
	Remove bool `mapstructure:"remove"` // convert back out of SSA and compare with the input
	Verify bool `mapstructure:"verify"` // check version uniqueness after the build
}

// AnalysisConfig selects the graph analyses included in results
type AnalysisConfig struct {
	Loops bool `mapstructure:"loops"`
	Tree  bool `mapstructure:"tree"`
}

// IndexConfig holds the result index configuration
type IndexConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load loads configuration from various sources
func Load() *Config {
	cfg := &Config{
		Format:   "text",
		Parallel: runtime.NumCPU(),
		SSA: SSAConfig{
			Remove: true,
			Verify: true,
		},
		Analysis: AnalysisConfig{
			Loops: true,
			Tree:  true,
		},
		Index: IndexConfig{
			Enabled: false,
			Path:    ".lyssa/index.db",
		},
	}

	// Override with viper values
	if viper.IsSet("format") {
		cfg.Format = viper.GetString("format")
	}
	if viper.IsSet("output") {
		cfg.OutputFile = viper.GetString("output")
	}
	if viper.IsSet("parallel") {
		cfg.Parallel = viper.GetInt("parallel")
	}
	if viper.IsSet("verbose") {
		cfg.Verbose = viper.GetBool("verbose")
	}

	if viper.IsSet("ssa") {
		viper.UnmarshalKey("ssa", &cfg.SSA)
	}
	if viper.IsSet("analysis") {
		viper.UnmarshalKey("analysis", &cfg.Analysis)
	}
	if viper.IsSet("index") {
		viper.UnmarshalKey("index", &cfg.Index)
	}

	// Auto-detect parallel workers
	if cfg.Parallel <= 0 {
		cfg.Parallel = runtime.NumCPU()
	}

	return cfg
}

// Validate reports settings no run can work with
func (c *Config) Validate() error {
	if _, ok := ParseFormat(c.Format); !ok {
		return fmt.Errorf("unknown output format %q", c.Format)
	}
	if c.Index.Enabled && c.Index.Path == "" {
		return fmt.Errorf("index enabled without a path")
	}
	return nil
}

// OutputFormat is a report encoding
type OutputFormat int

const (
	FormatText OutputFormat = iota
	FormatJSON
	FormatDOT
)

// String returns string representation of the format
func (f OutputFormat) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatJSON:
		return "json"
	case FormatDOT:
		return "dot"
	default:
		return "unknown"
	}
}

// ParseFormat parses an output format from string
func ParseFormat(s string) (OutputFormat, bool) {
	switch strings.ToLower(s) {
	case "text", "":
		return FormatText, true
	case "json":
		return FormatJSON, true
	case "dot", "graphviz":
		return FormatDOT, true
	default:
		return FormatText, false
	}
}
