package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperreplay/hyperreplay/journal"
)

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List journaled replay runs, or show one run's ADL records",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().StringVar(&rpJournalDB, "journal-db", "", "journal database path (overrides config)")
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if rpJournalDB != "" {
		cfg.Journal.DBPath = rpJournalDB
	}

	j, err := journal.NewSQLite(cfg.Journal.DBPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	if len(args) == 1 {
		return showRun(j, args[0])
	}

	runs, err := j.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no journaled runs")
		return nil
	}

	fmt.Printf("%-28s%-22s%-10s%-8s%-8s%s\n", "Run ID", "Created", "Events", "ADLs", "Liqs", "Accounts")
	for _, run := range runs {
		fmt.Printf("%-28s%-22s%-10d%-8d%-8d%d\n",
			run.RunID, run.Created.UTC().Format(time.RFC3339),
			run.EventsProcessed, run.ADLEvents, run.Liquidations, run.AccountsTracked)
	}
	return nil
}

func showRun(j *journal.SQLite, runID string) error {
	run, err := j.GetRun(runID)
	if err != nil {
		return err
	}
	metrics, err := j.ListMetricsByRun(runID)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s (created %s)\n", run.RunID, run.Created.UTC().Format(time.RFC3339))
	fmt.Printf("  Events processed: %d, ADL events: %d, liquidations: %d\n\n",
		run.EventsProcessed, run.ADLEvents, run.Liquidations)

	fmt.Printf("%-14s%-8s%-24s%-12s%-14s%s\n", "Time (UTC)", "Coin", "User", "Leverage", "Equity", "Notional")
	for _, m := range metrics {
		fmt.Printf("%-14s%-8s%-24s%-12.2f$%-13.0f$%.0f\n",
			time.UnixMilli(m.Time).UTC().Format("15:04:05.000"),
			m.Coin, m.User, m.Leverage, m.TotalEquity, m.ADLNotional)
	}
	return nil
}
