package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperreplay/hyperreplay/config"
)

var rootCmd = &cobra.Command{
	Use:   "hyperreplay",
	Short: "Exchange incident analysis: ADL extraction and account replay",
	Long: `Hyperreplay analyzes exchange event logs from the October 10, 2025
liquidation cascade.

It provides two pipelines:
  - extract: stream the node_fills archive, keep forced-deleveraging fills
    inside the analysis window, aggregate them per ticker and write CSV and
    Markdown reports
  - replay: fold fills, funding and ledger events over the clearinghouse
    snapshot to reconstruct per-account equity, leverage and PnL at the
    moment of each ADL`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

var cfgFile string

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults to the canonical incident setup")
}

// loadConfig returns the run configuration, honoring the --config flag.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
