package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	cfgpkg "github.com/KaramelBytes/csvscope-cli/internal/config"
	"github.com/KaramelBytes/csvscope-cli/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile   string
	debug     bool
	logLevel  string
	logFormat string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "csvscope",
	Short: "csvscope: score, explore and report on CSV datasets",
	Long: `csvscope loads CSV/TSV/XLSX files, rates their quality on a 0-100 scale,
profiles columns, cleans missing values, builds chart data and renders PDF
dashboards. The same analysis is served over HTTP by "csvscope serve".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(cmd.Root().ErrOrStderr())
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.csvscope/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output (same as --log-level debug)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text|json|cli (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: currentConfig retries and reports it to commands that need it
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
}

// currentConfig returns the loaded configuration, loading it on first use
// so commands run outside Execute (tests) see the same values.
func currentConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}

func setupLogging(w io.Writer) error {
	c, err := currentConfig()
	if err != nil {
		return err
	}
	lvlStr, format := c.LogLevel, c.LogFormat
	if logLevel != "" {
		lvlStr = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}
	lvl, err := logging.ParseLevel(lvlStr)
	if err != nil {
		return err
	}
	if debug {
		lvl = slog.LevelDebug
	}
	if format == "" {
		format = logging.FormatText
	}
	if !logging.ValidFormat(format) {
		return fmt.Errorf("unsupported --log-format: %s (use text|json|cli)", format)
	}
	logging.Init(lvl, format, w)
	return nil
}
