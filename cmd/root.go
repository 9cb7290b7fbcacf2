package cmd

import (
	"fmt"
	"log/slog"
	"os"

	cfgpkg "github.com/KaramelBytes/segmenta/internal/config"
	"github.com/KaramelBytes/segmenta/internal/logging"
	"github.com/KaramelBytes/segmenta/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global
	// logger is built from cfg once it is loaded
	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "segmenta",
	Short: "Segmenta: k-means segmentation of survey and tabular data",
	Long: `Segmenta loads CSV/TSV/XLSX survey data, standardizes the selected columns,
clusters the rows with k-means and ranks the resulting segments into favorable,
neutral and weak groups. Use it one-shot from the command line or as an HTTP service.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.segmenta/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c

	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	l, err := logging.New(level, cfg.LogFormat, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
		return
	}
	logger = l
	slog.SetDefault(l)
}

// currentConfig returns the loaded configuration, loading it on demand when the
// command runs outside Execute (tests).
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

// pipelineOptions maps configuration onto pipeline defaults.
func pipelineOptions(c *cfgpkg.Global) pipeline.Options {
	return pipeline.Options{
		DefaultK: c.DefaultK,
		KMin:     c.KMin,
		KMax:     c.KMax,
		Seed:     c.Seed,
		Restarts: c.Restarts,
		MaxIter:  c.MaxIter,
	}
}
