package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/crosstab-cli/internal/config"
	"github.com/KaramelBytes/crosstab-cli/internal/crosstab"
	"github.com/KaramelBytes/crosstab-cli/internal/logging"
	"github.com/KaramelBytes/crosstab-cli/internal/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	cfgFile  string
	debug    bool
	logLevel string

	// Loaded configuration
	cfg *cfgpkg.Global
	// Shared logger; replaced once config is loaded
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "crosstab",
	Short: "crosstab: survey tabulation and chi-square significance testing",
	Long: `crosstab annotates aggregated survey tables with chi-square p-values and significance marks,
and builds two-way frequency tables from raw responses using a question-definition document.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.crosstab/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = &cfgpkg.Global{}
	}
	cfg = c

	if rootCmd.PersistentFlags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	l, err := logging.New(cfg.LogLevel, debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
		l, _ = logging.New("info", debug)
	}
	logger = logging.OrNop(l)
}

// currentConfig returns the loaded configuration, loading it on first use.
func currentConfig() *cfgpkg.Global {
	if cfg == nil {
		loadConfig()
	}
	return cfg
}

// settings maps the configuration onto the pipeline settings; blank keys
// keep the built-in defaults.
func settings(c *cfgpkg.Global) (pipeline.Settings, error) {
	s := pipeline.DefaultSettings()
	if len(c.TotalLabels) > 0 {
		s.TotalLabels = c.TotalLabels
	}
	if c.NoAnswerLabel != "" {
		s.NoAnswer = c.NoAnswerLabel
	}
	if c.MarginLabel != "" {
		s.Margin = c.MarginLabel
	}
	if c.UntestableMark != "" {
		s.Untestable = c.UntestableMark
	}
	if c.PValueColumn != "" {
		s.PValueColumn = c.PValueColumn
	}
	if c.MarkColumn != "" {
		s.MarkColumn = c.MarkColumn
	}
	if c.CrosstabOrder != "" {
		o, err := crosstab.ParseOrder(c.CrosstabOrder)
		if err != nil {
			return s, err
		}
		s.Order = o
	}
	return s, nil
}

// newPipeline builds a pipeline from the loaded configuration.
func newPipeline() (*pipeline.Pipeline, error) {
	s, err := settings(currentConfig())
	if err != nil {
		return nil, err
	}
	return pipeline.New(s, logger), nil
}
