package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hyperreplay/hyperreplay/config"
	"github.com/hyperreplay/hyperreplay/event"
	"github.com/hyperreplay/hyperreplay/ingest"
	"github.com/hyperreplay/hyperreplay/journal"
	"github.com/hyperreplay/hyperreplay/logging"
	"github.com/hyperreplay/hyperreplay/pkg/id"
	"github.com/hyperreplay/hyperreplay/replay"
	"github.com/hyperreplay/hyperreplay/report"
	"github.com/hyperreplay/hyperreplay/snapshot"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Reconstruct per-account state at the moment of each ADL",
	Long: `Replay folds fills, funding and ledger events over the clearinghouse
snapshot in timestamp order and records derived metrics (equity, leverage,
unrealized PnL) immediately after each forced-deleveraging fill is applied.

Outputs:
  - adl_detailed_analysis_realtime.csv   one row per ADL event
  - adl_user_aggregation.csv             per-account rollup
  - adl_coin_aggregation.csv             per-instrument rollup
  - adl_analysis_summary_realtime.json   key findings and run bookkeeping`,
	RunE: runReplay,
}

var (
	rpRawDir     string
	rpOutDir     string
	rpJournalDB  string
	rpUseJournal bool
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVar(&rpRawDir, "raw-dir", "", "raw data directory (overrides config)")
	replayCmd.Flags().StringVar(&rpOutDir, "out", "", "output directory (overrides config)")
	replayCmd.Flags().BoolVar(&rpUseJournal, "journal", false, "persist the run to the SQLite journal")
	replayCmd.Flags().StringVar(&rpJournalDB, "journal-db", "", "journal database path (overrides config)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if rpRawDir != "" {
		cfg.Inputs.RawDir = rpRawDir
	}
	if rpOutDir != "" {
		cfg.Outputs.Dir = rpOutDir
	}
	if rpUseJournal {
		cfg.Journal.Enabled = true
	}
	if rpJournalDB != "" {
		cfg.Journal.DBPath = rpJournalDB
	}

	log := logging.New("replay")

	end, err := cfg.Window.EndTime()
	if err != nil {
		return err
	}
	endMs := end.UnixMilli()
	snapshotMs := cfg.Window.SnapshotTimeMs

	if err := ingest.EnsureClearinghouseInputs(cfg, log); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Outputs.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	state, err := loadBaseline(cfg, log)
	if err != nil {
		return err
	}

	diags := event.NewDiagnostics(log)
	events, err := loadEvents(cfg, diags, log)
	if err != nil {
		return err
	}

	windowed := event.InWindow(events, snapshotMs, endMs)
	fmt.Printf("Replaying %d events (%d loaded, window %s -> %s)\n",
		len(windowed), len(events),
		time.UnixMilli(snapshotMs).UTC().Format("15:04:05.000"),
		end.Format("15:04:05"))

	rec := replay.NewReconstructor(state, log)
	metrics, stats := rec.Run(windowed)

	runID := id.NewRunID()
	findings := report.Findings(metrics)
	if err := writeReplayArtifacts(cfg, runID, snapshotMs, endMs, metrics, stats, diags); err != nil {
		return err
	}

	printReplaySummary(runID, stats, findings, diags)

	if cfg.Journal.Enabled {
		if err := journalRun(cfg, runID, snapshotMs, endMs, metrics, stats); err != nil {
			return err
		}
		fmt.Printf("\nRun journaled to %s\n", cfg.Journal.DBPath)
	}

	if cfg.Inputs.PriorDetailCSV != "" {
		printComparison(cfg, findings)
	}
	return nil
}

func loadBaseline(cfg *config.Config, log zerolog.Logger) (*replay.State, error) {
	values, err := snapshot.LoadAccountValues(filepath.Join(cfg.Inputs.RawDir, cfg.Inputs.AccountSnapshot))
	if err != nil {
		return nil, err
	}
	markets, err := snapshot.LoadMarketPositions(filepath.Join(cfg.Inputs.RawDir, cfg.Inputs.PositionsSnapshot))
	if err != nil {
		return nil, err
	}

	state := replay.FromSnapshot(values, markets, cfg.Window.SnapshotTimeMs)
	log.Info().
		Int("accounts", len(state.Accounts)).
		Float64("total_value", state.TotalValue()).
		Msg("baseline snapshot loaded")
	return state, nil
}

func loadEvents(cfg *config.Config, diags *event.Diagnostics, log zerolog.Logger) ([]event.Event, error) {
	loader := ingest.NewLoader(diags, log)

	var events []event.Event
	for _, name := range cfg.Inputs.FillsFiles {
		loaded, err := loader.LoadFills(filepath.Join(cfg.Inputs.RawDir, name))
		if err != nil {
			return nil, err
		}
		events = append(events, loaded...)
	}
	for _, name := range cfg.Inputs.MiscFiles {
		loaded, err := loader.LoadMisc(filepath.Join(cfg.Inputs.RawDir, name))
		if err != nil {
			return nil, err
		}
		events = append(events, loaded...)
	}
	return events, nil
}

func writeReplayArtifacts(cfg *config.Config, runID string, snapshotMs, endMs int64, metrics []replay.Metrics, stats replay.Stats, diags *event.Diagnostics) error {
	detailOut := filepath.Join(cfg.Outputs.Dir, "adl_detailed_analysis_realtime.csv")
	if err := report.WriteDetailCSV(detailOut, metrics); err != nil {
		return err
	}
	userOut := filepath.Join(cfg.Outputs.Dir, "adl_user_aggregation.csv")
	if err := report.WriteUserCSV(userOut, report.AggregateByUser(metrics)); err != nil {
		return err
	}
	coinOut := filepath.Join(cfg.Outputs.Dir, "adl_coin_aggregation.csv")
	if err := report.WriteCoinCSV(coinOut, report.AggregateByCoin(metrics)); err != nil {
		return err
	}

	summary := report.NewRunSummary(runID, snapshotMs, endMs, metrics, stats, diags.Counts())
	summaryOut := filepath.Join(cfg.Outputs.Dir, "adl_analysis_summary_realtime.json")
	if err := summary.WriteJSON(summaryOut); err != nil {
		return err
	}

	fmt.Printf("\nFiles created:\n")
	for _, path := range []string{detailOut, userOut, coinOut, summaryOut} {
		fmt.Printf("  - %s\n", path)
	}
	return nil
}

func printReplaySummary(runID string, stats replay.Stats, kf report.KeyFindings, diags *event.Diagnostics) {
	fmt.Printf("\nRun %s\n", runID)
	fmt.Printf("  Events processed:     %d\n", stats.EventsProcessed)
	fmt.Printf("  ADL fills:            %d (%d skipped, no position)\n", stats.ADLFills, stats.SkippedNoPosition)
	fmt.Printf("  Liquidations:         %d\n", stats.Liquidations)
	fmt.Printf("  Accounts tracked:     %d\n", stats.AccountsTracked)
	fmt.Printf("\nKey findings\n")
	fmt.Printf("  Average leverage:     %.2fx\n", kf.AverageLeverage)
	fmt.Printf("  Median leverage:      %.2fx\n", kf.MedianLeverage)
	fmt.Printf("  Profitable positions: %.1f%%\n", kf.ProfitablePositionsPct)
	fmt.Printf("  Average PnL:          %.2f%%\n", kf.AveragePnlPercent)
	fmt.Printf("  Negative equity:      %d accounts, $%.0f total\n", kf.NegativeEquityCount, kf.NegativeEquityTotal)
	fmt.Printf("  Total ADL notional:   $%.0f\n", kf.TotalADLNotional)
	if skipped := diags.Total(); skipped > 0 {
		fmt.Printf("  Skipped records:      %d (%v)\n", skipped, diags.Reasons())
	}
}

func journalRun(cfg *config.Config, runID string, snapshotMs, endMs int64, metrics []replay.Metrics, stats replay.Stats) error {
	j, err := journal.NewSQLite(cfg.Journal.DBPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	run := journal.Run{
		RunID:           runID,
		Created:         time.Now().UTC(),
		SnapshotTimeMs:  snapshotMs,
		EndTimeMs:       endMs,
		EventsProcessed: stats.EventsProcessed,
		ADLEvents:       len(metrics),
		Liquidations:    stats.Liquidations,
		AccountsTracked: stats.AccountsTracked,
	}
	if err := j.RecordRun(run, metrics); err != nil {
		return fmt.Errorf("journal run: %w", err)
	}
	return nil
}

func printComparison(cfg *config.Config, findings report.KeyFindings) {
	priorPath := filepath.Join(cfg.Inputs.RawDir, cfg.Inputs.PriorDetailCSV)
	cmp, err := report.CompareWithPrior(priorPath, findings)
	if err != nil {
		// A missing prior run is advisory only.
		fmt.Printf("\nNo prior-run comparison: %v\n", err)
		return
	}

	fmt.Printf("\nComparison with prior run (%d events)\n", cmp.PriorEvents)
	fmt.Printf("  %-24s%-14s%s\n", "", "Prior", "Current")
	fmt.Printf("  %-24s%-14.2f%.2f\n", "Average leverage", cmp.PriorAvgLeverage, cmp.CurrentAvgLeverage)
	fmt.Printf("  %-24s%-14.2f%.2f\n", "Median leverage", cmp.PriorMedianLeverage, cmp.CurrentMedianLever)
	fmt.Printf("  %-24s%-14.1f%.1f\n", "Profitable %", cmp.PriorProfitablePct, cmp.CurrentProfitable)
}
