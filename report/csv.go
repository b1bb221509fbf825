// Package report turns extraction and replay results into the run
// artifacts: CSV tables, a Markdown narrative and a JSON summary.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hyperreplay/hyperreplay/extract"
	"github.com/hyperreplay/hyperreplay/replay"
)

// blockTimeLayout stamps extractor rows with microsecond precision.
const blockTimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// WriteFillsCSV writes the raw retained ADL fills.
func WriteFillsCSV(path string, records []extract.Record) error {
	return writeCSV(path,
		[]string{"block_time", "user", "coin", "direction", "price", "size", "side", "start_position", "closed_pnl", "fee", "notional"},
		len(records),
		func(i int) []string {
			r := records[i]
			return []string{
				r.BlockTime.UTC().Format(blockTimeLayout),
				r.User,
				r.Coin,
				r.Direction,
				f(r.Price),
				f(r.Size),
				r.Side,
				f(r.StartPosition),
				f(r.ClosedPnl),
				f(r.Fee),
				f(r.Notional),
			}
		})
}

// WriteTickerCSV writes the per-ticker ADL volume summary.
func WriteTickerCSV(path string, summaries []extract.TickerSummary) error {
	return writeCSV(path,
		[]string{"ticker", "net_volume", "net_notional_usd", "total_pnl", "num_adl_events", "avg_price"},
		len(summaries),
		func(i int) []string {
			s := summaries[i]
			return []string{
				s.Ticker,
				f(s.NetVolume),
				f(s.NetNotional),
				f(s.TotalPnl),
				strconv.Itoa(s.NumEvents),
				f(s.AvgPrice),
			}
		})
}

// WriteDetailCSV writes the per-event replay metrics.
func WriteDetailCSV(path string, metrics []replay.Metrics) error {
	return writeCSV(path,
		[]string{
			"user", "coin", "time", "adl_price", "adl_size", "adl_notional",
			"closed_pnl", "position_size", "entry_price", "account_value",
			"total_unrealized_pnl", "total_equity", "is_negative_equity",
			"leverage", "position_unrealized_pnl", "pnl_percent", "liquidated_user",
		},
		len(metrics),
		func(i int) []string {
			m := metrics[i]
			return []string{
				m.User,
				m.Coin,
				strconv.FormatInt(m.Time, 10),
				f(m.ADLPrice),
				f(m.ADLSize),
				f(m.ADLNotional),
				f(m.ClosedPnl),
				f(m.PositionSize),
				f(m.EntryPrice),
				f(m.AccountValue),
				f(m.TotalUnrealizedPnl),
				f(m.TotalEquity),
				strconv.FormatBool(m.NegativeEquity),
				f(m.Leverage),
				f(m.PositionUnrealizedPnl),
				f(m.PnlPercent),
				m.LiquidatedUser,
			}
		})
}

// WriteUserCSV writes the per-account aggregation.
func WriteUserCSV(path string, summaries []UserSummary) error {
	return writeCSV(path,
		[]string{"user", "adl_notional", "closed_pnl", "avg_leverage", "avg_pnl_percent", "account_value", "any_negative_equity", "num_adl_events"},
		len(summaries),
		func(i int) []string {
			s := summaries[i]
			return []string{
				s.User,
				f(s.ADLNotional),
				f(s.ClosedPnl),
				f(s.AvgLeverage),
				f(s.AvgPnlPercent),
				f(s.AccountValue),
				strconv.FormatBool(s.AnyNegativeEquity),
				strconv.Itoa(s.NumEvents),
			}
		})
}

// WriteCoinCSV writes the per-instrument aggregation.
func WriteCoinCSV(path string, summaries []CoinSummary) error {
	return writeCSV(path,
		[]string{"coin", "adl_notional", "closed_pnl", "avg_leverage", "avg_pnl_percent", "negative_equity_events", "num_users", "num_events"},
		len(summaries),
		func(i int) []string {
			s := summaries[i]
			return []string{
				s.Coin,
				f(s.ADLNotional),
				f(s.ClosedPnl),
				f(s.AvgLeverage),
				f(s.AvgPnlPercent),
				strconv.Itoa(s.NegativeEquityEvents),
				strconv.Itoa(s.NumUsers),
				strconv.Itoa(s.NumEvents),
			}
		})
}

func writeCSV(path string, header []string, n int, row func(i int) []string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		out.Close()
		return err
	}
	for i := 0; i < n; i++ {
		if err := w.Write(row(i)); err != nil {
			out.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

// msToTime converts unix milliseconds to UTC time for report prose.
func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
