package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hyperreplay/hyperreplay/archive"
	"github.com/hyperreplay/hyperreplay/event"
	"github.com/hyperreplay/hyperreplay/extract"
	"github.com/hyperreplay/hyperreplay/logging"
	"github.com/hyperreplay/hyperreplay/report"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract and aggregate ADL fills from the node_fills archive",
	Long: `Extract streams the lz4-compressed node_fills log, keeps fills whose
direction contains "Auto-Deleveraging" inside the [start, end) window,
drops spot symbols, and writes:
  - adl_fills_raw.csv       every retained fill
  - adl_net_volume.csv      per-ticker aggregation, ranked by net notional
  - ADL_NET_VOLUME.md       narrative report

Example:
  hyperreplay extract --raw-dir data/raw --out data/canonical`,
	RunE: runExtract,
}

var (
	exRawDir string
	exOutDir string
)

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&exRawDir, "raw-dir", "", "raw data directory (overrides config)")
	extractCmd.Flags().StringVar(&exOutDir, "out", "", "output directory (overrides config)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if exRawDir != "" {
		cfg.Inputs.RawDir = exRawDir
	}
	if exOutDir != "" {
		cfg.Outputs.Dir = exOutDir
	}

	log := logging.New("extract")

	start, err := cfg.Window.StartTime()
	if err != nil {
		return err
	}
	end, err := cfg.Window.EndTime()
	if err != nil {
		return err
	}

	sourcePath, err := archive.AssembleParts(cfg.Inputs.RawDir, cfg.Inputs.FillsArchive)
	if err != nil {
		return fmt.Errorf("fills archive: %w", err)
	}

	if err := os.MkdirAll(cfg.Outputs.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	fmt.Printf("Extracting ADL fills\n")
	fmt.Printf("  Window: %s -> %s\n", start.Format("2006-01-02 15:04:05"), end.Format("15:04:05"))
	fmt.Printf("  Source: %s\n\n", sourcePath)

	src, err := archive.OpenLines(sourcePath)
	if err != nil {
		return fmt.Errorf("open fills archive: %w", err)
	}
	defer src.Close()

	diags := event.NewDiagnostics(log)
	extractor := extract.New(
		extract.Window{Start: start, End: end},
		event.NewParser(diags),
		log,
	)

	records, stats, err := extractor.Scan(src)
	if err != nil {
		return fmt.Errorf("scan fills: %w", err)
	}

	rawOut := filepath.Join(cfg.Outputs.Dir, "adl_fills_raw.csv")
	if err := report.WriteFillsCSV(rawOut, records); err != nil {
		return err
	}

	summaries := extract.AggregateByTicker(records)
	tickerOut := filepath.Join(cfg.Outputs.Dir, "adl_net_volume.csv")
	if err := report.WriteTickerCSV(tickerOut, summaries); err != nil {
		return err
	}

	mdData := report.NewMarkdownData(summaries, start, end, cfg.Inputs.FillsArchive, cfg.Outputs.BaselineNotionalUSD)
	mdOut := filepath.Join(cfg.Outputs.Dir, "ADL_NET_VOLUME.md")
	if err := report.WriteMarkdown(mdOut, mdData); err != nil {
		return err
	}

	printTickerTable(summaries)

	notional, pnl, events := extract.Totals(summaries)
	fmt.Printf("\nExtraction complete\n")
	fmt.Printf("  Lines processed:  %d\n", stats.LinesProcessed)
	fmt.Printf("  Fills in window:  %d\n", stats.FillsInWindow)
	fmt.Printf("  ADL events:       %d\n", events)
	fmt.Printf("  Net notional:     $%.0f\n", notional)
	fmt.Printf("  Realized PNL:     $%.0f\n", pnl)
	if skipped := diags.Total(); skipped > 0 {
		fmt.Printf("  Skipped records:  %d (%v)\n", skipped, diags.Reasons())
	}
	if cfg.Outputs.BaselineNotionalUSD > 0 {
		fmt.Printf("  Prior sample:     $%.0f (scaling %.2fx)\n",
			cfg.Outputs.BaselineNotionalUSD, notional/cfg.Outputs.BaselineNotionalUSD)
	}

	fmt.Printf("\nFiles created:\n")
	for _, path := range []string{rawOut, tickerOut, mdOut} {
		fmt.Printf("  - %s\n", path)
	}
	return nil
}

func printTickerTable(summaries []extract.TickerSummary) {
	fmt.Printf("%-6s%-12s%-18s%-22s%-14s%-14s%s\n",
		"Rank", "Ticker", "Net Volume", "Net Notional (USD)", "Avg Price", "# ADL Events", "Total PNL")

	for i, s := range summaries {
		fmt.Printf("%-6d%-12s%-18.4f$%-21.0f$%-13.2f%-14d$%.0f\n",
			i+1, s.Ticker, s.NetVolume, s.NetNotional, s.AvgPrice, s.NumEvents, s.TotalPnl)
	}
}
