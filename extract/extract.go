// Package extract streams a node_fills log, keeps forced-deleveraging fills
// inside a fixed time window, and aggregates them per ticker.
package extract

import (
	"bufio"
	"io"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyperreplay/hyperreplay/event"
)

// maxLineBytes bounds the scanner buffer; fill blocks during the cascade
// peak run to a few megabytes.
const maxLineBytes = 16 * 1024 * 1024

// progressEvery throttles progress logging while streaming large archives.
const progressEvery = 50_000

// Window is the closed-open extraction interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window. The start boundary is
// included, the end boundary is not.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Record is one retained ADL fill, stamped with its block time.
type Record struct {
	BlockTime     time.Time
	User          string
	Coin          string
	Direction     string
	Price         float64
	Size          float64
	Side          string
	StartPosition float64
	ClosedPnl     float64
	Fee           float64
	Notional      float64 // size x price as reported
}

// ScanStats counts what the stream pass saw.
type ScanStats struct {
	LinesProcessed int
	FillsInWindow  int
	ADLFills       int
}

// Extractor filters a fills stream down to in-window ADL records.
type Extractor struct {
	win    Window
	parser *event.Parser
	log    zerolog.Logger
}

func New(win Window, parser *event.Parser, log zerolog.Logger) *Extractor {
	return &Extractor{win: win, parser: parser, log: log}
}

// Scan reads the line-delimited stream and returns the retained fills.
// Malformed lines are skipped through the parser's diagnostics; only a
// stream-level read failure aborts the pass.
func (x *Extractor) Scan(r io.Reader) ([]Record, ScanStats, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var (
		out   []Record
		stats ScanStats
	)

	for scanner.Scan() {
		stats.LinesProcessed++
		if stats.LinesProcessed%progressEvery == 0 {
			x.log.Debug().
				Int("lines", stats.LinesProcessed).
				Int("adl_fills", stats.ADLFills).
				Msg("scanning fills stream")
		}

		block, ok := x.parser.ParseFillBlock(scanner.Bytes())
		if !ok {
			continue
		}
		if !x.win.Contains(block.Time) {
			continue
		}

		for _, fill := range block.Fills {
			stats.FillsInWindow++
			if !fill.IsADL() {
				continue
			}
			// Spot symbols cannot be auto-deleveraged; drop them regardless
			// of the direction label.
			if fill.IsSpot() {
				continue
			}
			stats.ADLFills++

			out = append(out, Record{
				BlockTime:     block.Time,
				User:          fill.User,
				Coin:          fill.Coin,
				Direction:     fill.Direction,
				Price:         fill.Price,
				Size:          fill.Size,
				Side:          fill.Side,
				StartPosition: fill.StartPosition,
				ClosedPnl:     fill.ClosedPnl,
				Fee:           fill.Fee,
				Notional:      fill.Notional(),
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, err
	}
	return out, stats, nil
}

// TickerSummary aggregates retained fills for one instrument.
type TickerSummary struct {
	Ticker      string
	NetVolume   float64
	NetNotional float64
	TotalPnl    float64
	NumEvents   int
	AvgPrice    float64
}

// AggregateByTicker groups records per instrument, summing volume, notional
// and realized PnL, and averaging price. Sorted by net notional descending.
func AggregateByTicker(records []Record) []TickerSummary {
	byTicker := make(map[string]*TickerSummary)
	priceSums := make(map[string]float64)

	for _, rec := range records {
		summary, ok := byTicker[rec.Coin]
		if !ok {
			summary = &TickerSummary{Ticker: rec.Coin}
			byTicker[rec.Coin] = summary
		}
		summary.NetVolume += rec.Size
		summary.NetNotional += rec.Notional
		summary.TotalPnl += rec.ClosedPnl
		summary.NumEvents++
		priceSums[rec.Coin] += rec.Price
	}

	out := make([]TickerSummary, 0, len(byTicker))
	for coin, summary := range byTicker {
		summary.AvgPrice = priceSums[coin] / float64(summary.NumEvents)
		out = append(out, *summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NetNotional != out[j].NetNotional {
			return out[i].NetNotional > out[j].NetNotional
		}
		return out[i].Ticker < out[j].Ticker
	})
	return out
}

// Totals sums notional, PnL and event count across ticker summaries.
func Totals(summaries []TickerSummary) (notional, pnl float64, events int) {
	for _, s := range summaries {
		notional += s.NetNotional
		pnl += s.TotalPnl
		events += s.NumEvents
	}
	return notional, pnl, events
}
