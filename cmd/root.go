package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/meyzoo/OptimizingCompiler/internal/config"
	"github.com/meyzoo/OptimizingCompiler/internal/index"
	"github.com/meyzoo/OptimizingCompiler/internal/loader"
	"github.com/meyzoo/OptimizingCompiler/internal/pipeline"
	"github.com/meyzoo/OptimizingCompiler/internal/reporter"
)

var (
	cfgFile    string
	outputFile string
	format     string
	parallel   int
	verbose    bool
	noRemove   bool
	noVerify   bool
	// Indexing flags
	useIndex    bool
	indexPath   string
	indexStatus bool
	cleanIndex  bool
)

var rootCmd = &cobra.Command{
	Use:   "lyssa [program.yaml|dir ...]",
	Short: "SSA construction and destruction over three-address code",
	Long: `Builds the control-flow graph of each program, classifies its edges, numbers
its depth spanning tree, finds natural loops, converts it to static single
assignment form and back, and reports whether the round trip restored the
original program.`,
	RunE: runPipeline,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .lyssa.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", "text", "output format (text, json, dot)")
	rootCmd.PersistentFlags().IntVarP(&parallel, "parallel", "p", 0, "number of parallel workers (0 = auto)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noRemove, "no-remove", false, "stop after SSA construction")
	rootCmd.PersistentFlags().BoolVar(&noVerify, "no-verify", false, "skip the version uniqueness check")

	// Indexing flags
	rootCmd.PersistentFlags().BoolVar(&useIndex, "index", false, "store results in the SQLite index")
	rootCmd.PersistentFlags().StringVar(&indexPath, "index-path", "", "index database path (default: .lyssa/index.db)")
	rootCmd.PersistentFlags().BoolVar(&indexStatus, "index-status", false, "list the units stored in the index")
	rootCmd.PersistentFlags().BoolVar(&cleanIndex, "clean-index", false, "delete the index database")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".lyssa")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("LYSSA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig layers explicitly set flags over config.Load
func loadConfig(cmd *cobra.Command, args []string) *config.Config {
	cfg := config.Load()
	cfg.Inputs = args

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.OutputFile = outputFile
	}
	if flags.Changed("format") {
		cfg.Format = format
	}
	if parallel > 0 {
		cfg.Parallel = parallel
	}
	if flags.Changed("verbose") {
		cfg.Verbose = verbose
	}
	if noRemove {
		cfg.SSA.Remove = false
	}
	if noVerify {
		cfg.SSA.Verify = false
	}
	if useIndex {
		cfg.Index.Enabled = true
	}
	if indexPath != "" {
		cfg.Index.Path = indexPath
	}
	return cfg
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd, args)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Initialize logger
	logger := initLogger(cfg.Verbose)
	defer logger.Sync()

	// Handle indexing operations
	if indexStatus || cleanIndex {
		return handleIndexOperations(cfg, logger)
	}

	if len(args) == 0 {
		return fmt.Errorf("no input programs given")
	}

	programs, err := loader.New(logger).LoadPaths(args)
	if err != nil {
		return fmt.Errorf("failed to load programs: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := pipeline.New(cfg, logger).Run(ctx, programs)
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	if cfg.Index.Enabled {
		if err := storeResults(cfg, logger, results); err != nil {
			return err
		}
	}

	// Generate report
	r := reporter.New(cfg, logger)
	if err := r.Generate(results); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if results.Statistics.UnitsFailed > 0 {
		return fmt.Errorf("%d of %d units failed", results.Statistics.UnitsFailed, results.Statistics.UnitsProcessed)
	}
	return nil
}

func storeResults(cfg *config.Config, logger *zap.Logger, results *pipeline.Result) error {
	ix, err := index.Open(cfg.Index.Path, logger)
	if err != nil {
		return err
	}
	defer ix.Close()

	logger.Debug("Storing results", zap.String("index", ix.Path()), zap.Int("units", len(results.Units)))
	if err := ix.StoreResult(results); err != nil {
		return fmt.Errorf("failed to index results: %w", err)
	}
	return nil
}

func handleIndexOperations(cfg *config.Config, logger *zap.Logger) error {
	if cleanIndex {
		return handleCleanIndex(cfg, logger)
	}
	return handleIndexStatus(cfg, logger)
}

func handleIndexStatus(cfg *config.Config, logger *zap.Logger) error {
	fmt.Printf("Index Path: %s\n", cfg.Index.Path)

	// Check if index exists
	if _, err := os.Stat(cfg.Index.Path); os.IsNotExist(err) {
		fmt.Println("Status: No index found")
		return nil
	}

	ix, err := index.Open(cfg.Index.Path, logger)
	if err != nil {
		return err
	}
	defer ix.Close()

	units, err := ix.ListUnits()
	if err != nil {
		return fmt.Errorf("failed to list units: %w", err)
	}
	size, err := ix.Size()
	if err != nil {
		return fmt.Errorf("failed to read index size: %w", err)
	}

	fmt.Printf("Status: %d units, %d bytes\n", len(units), size)
	for _, u := range units {
		status := "ok"
		if u.Error != "" {
			status = "error: " + u.Error
		} else if !u.RoundTripOK {
			status = "no round trip"
		}
		fmt.Printf("  %-20s blocks=%d phi=%d loops=%d updated=%s %s\n",
			u.Name, u.BlockCount, u.PhiGroups, u.LoopCount, u.UpdatedAt.Format("2006-01-02 15:04:05"), status)
	}
	return nil
}

func handleCleanIndex(cfg *config.Config, logger *zap.Logger) error {
	fmt.Printf("Cleaning index: %s\n", cfg.Index.Path)

	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(cfg.Index.Path + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to clean index: %w", err)
		}
	}

	logger.Debug("Index removed", zap.String("path", cfg.Index.Path))
	fmt.Println("Index cleaned successfully")
	return nil
}

func initLogger(verbose bool) *zap.Logger {
	var logger *zap.Logger
	var err error

	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}

	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	return logger
}
