package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hyperreplay/hyperreplay/replay"
)

// KeyFindings holds the top-level scalar results of a replay run.
type KeyFindings struct {
	AverageLeverage        float64 `json:"average_leverage_realtime"`
	MedianLeverage         float64 `json:"median_leverage_realtime"`
	ProfitablePositionsPct float64 `json:"profitable_positions_pct"`
	AveragePnlPercent      float64 `json:"average_pnl_percent"`
	NegativeEquityCount    int     `json:"negative_equity_count"`
	NegativeEquityTotal    float64 `json:"negative_equity_total"`
	TotalADLNotional       float64 `json:"total_adl_notional"`
}

// RunSummary is the JSON run artifact: key findings plus run bookkeeping
// and the full skip-reason diagnostic tally.
type RunSummary struct {
	RunID             string         `json:"run_id"`
	AnalysisType      string         `json:"analysis_type"`
	SnapshotTime      time.Time      `json:"snapshot_time"`
	AnalysisEnd       time.Time      `json:"analysis_end"`
	EventsProcessed   int            `json:"events_processed"`
	ADLEventsAnalyzed int            `json:"adl_events_analyzed"`
	Liquidations      int            `json:"liquidations"`
	AccountsTracked   int            `json:"accounts_tracked"`
	SkippedNoPosition int            `json:"skipped_no_position"`
	SkippedRecords    map[string]int `json:"skipped_records"`
	KeyFindings       KeyFindings    `json:"key_findings"`
}

// Findings reduces the per-event metrics to the run's key findings.
func Findings(metrics []replay.Metrics) KeyFindings {
	leverages := make([]float64, 0, len(metrics))
	pnlPcts := make([]float64, 0, len(metrics))

	kf := KeyFindings{}
	profitable := 0
	for _, m := range metrics {
		leverages = append(leverages, m.Leverage)
		pnlPcts = append(pnlPcts, m.PnlPercent)
		kf.TotalADLNotional += m.ADLNotional
		if m.PnlPercent > 0 {
			profitable++
		}
		if m.NegativeEquity {
			kf.NegativeEquityCount++
			kf.NegativeEquityTotal += m.TotalEquity
		}
	}

	kf.AverageLeverage = mean(leverages)
	kf.MedianLeverage = median(leverages)
	kf.AveragePnlPercent = mean(pnlPcts)
	if len(metrics) > 0 {
		kf.ProfitablePositionsPct = float64(profitable) / float64(len(metrics)) * 100
	}
	return kf
}

// NewRunSummary assembles the run summary for a finished replay.
func NewRunSummary(runID string, snapshotMs, endMs int64, metrics []replay.Metrics, stats replay.Stats, skips map[string]int) RunSummary {
	return RunSummary{
		RunID:             runID,
		AnalysisType:      "Real-Time Account Value Reconstruction",
		SnapshotTime:      msToTime(snapshotMs),
		AnalysisEnd:       msToTime(endMs),
		EventsProcessed:   stats.EventsProcessed,
		ADLEventsAnalyzed: len(metrics),
		Liquidations:      stats.Liquidations,
		AccountsTracked:   stats.AccountsTracked,
		SkippedNoPosition: stats.SkippedNoPosition,
		SkippedRecords:    skips,
		KeyFindings:       Findings(metrics),
	}
}

// WriteJSON writes the summary with stable indentation.
func (s RunSummary) WriteJSON(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
