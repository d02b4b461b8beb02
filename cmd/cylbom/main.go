package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cylbom/internal/catalog"
	"cylbom/internal/config"
	"cylbom/internal/logging"
	"cylbom/internal/pipeline"
	"cylbom/internal/rules"
	"cylbom/internal/store"
)

var (
	// Global flags
	cfgPath     string
	verbose     bool
	catalogPath string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cylbom",
	Short: "cylbom - hydraulic cylinder BOM inference engine",
	Long: `cylbom parses hydraulic-cylinder item codes, classifies them
through a rule-driven knowledge graph and infers bills of materials
with compatible components, quantities, assembly sequence and
maintenance schedule.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger, err = logging.New(cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "cylbom.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(similarCmd)
	rootCmd.AddCommand(bomCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(rulesCmd)
}

// openKnowledge opens the configured SQLite store.
func openKnowledge() (store.Knowledge, error) {
	kn, err := store.OpenSQLite(cfg.Store.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store at %s: %w", cfg.Store.DatabasePath, err)
	}
	return kn, nil
}

// loadOperatorRules loads the configured rules directory; a missing
// directory just means no operator rules.
func loadOperatorRules() ([]rules.Rule, error) {
	return rules.LoadDir(cfg.Rules.Directory, logger)
}

// newGenerator wires the pipeline from config, catalog and store.
func newGenerator(src catalog.Source, kn store.Knowledge) (*pipeline.Generator, error) {
	extra, err := loadOperatorRules()
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.StageTimeout()
	if err != nil {
		return nil, err
	}
	return pipeline.New(src, kn, extra, logger,
		pipeline.WithStageTimeout(timeout),
		pipeline.WithMaxIterations(cfg.Rules.MaxIterations),
		pipeline.WithTopN(cfg.Pipeline.SuggestTopN),
		pipeline.WithMemoCapacity(cfg.Pipeline.MemoCapacity)), nil
}

func loadCatalog() (*catalog.Memory, error) {
	if catalogPath == "" {
		return nil, fmt.Errorf("--catalog is required")
	}
	return catalog.LoadFile(catalogPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
