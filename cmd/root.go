package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kulmaganbetov/overbot123/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "overbot",
	Short: "Shop assistant: product search, PC builds under a budget and chat",
	Long: `overbot answers customer questions over the shop catalog. It finds
products, assembles PC builds that fit a budget and keeps a per-session
chat history. Run "overbot serve" for the HTTP API or use the search and
assemble commands against the catalog directly.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig reads and validates the configuration and builds the logger.
// The LLM section is only validated when needLLM is set.
func loadConfig(needLLM bool) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if !needLLM {
		cfg.LLM.Enabled = false
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, cfg.Log.NewLogger(os.Stderr), nil
}
