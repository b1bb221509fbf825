package report

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
	"time"

	"github.com/hyperreplay/hyperreplay/extract"
)

// MarkdownData feeds the extractor's narrative report template.
type MarkdownData struct {
	WindowStart time.Time
	WindowEnd   time.Time
	Source      string
	Generated   time.Time

	Tickers       []extract.TickerSummary
	Top           []extract.TickerSummary
	TotalNotional float64
	TotalPnl      float64
	TotalEvents   int

	// Optional prior-sample comparison.
	BaselineNotional float64
	ScalingFactor    float64
}

// NewMarkdownData assembles the template payload from ticker summaries.
// baselineNotional of zero disables the comparison section.
func NewMarkdownData(summaries []extract.TickerSummary, start, end time.Time, source string, baselineNotional float64) MarkdownData {
	notional, pnl, events := extract.Totals(summaries)

	top := summaries
	if len(top) > 10 {
		top = top[:10]
	}

	data := MarkdownData{
		WindowStart:      start,
		WindowEnd:        end,
		Source:           source,
		Generated:        time.Now().UTC(),
		Tickers:          summaries,
		Top:              top,
		TotalNotional:    notional,
		TotalPnl:         pnl,
		TotalEvents:      events,
		BaselineNotional: baselineNotional,
	}
	if baselineNotional > 0 {
		data.ScalingFactor = notional / baselineNotional
	}
	return data
}

// DurationMinutes returns the window length in whole minutes for rate math.
func (d MarkdownData) DurationMinutes() float64 {
	return d.WindowEnd.Sub(d.WindowStart).Minutes()
}

// EventsPerMinute is the ADL rate over the window.
func (d MarkdownData) EventsPerMinute() float64 {
	minutes := d.DurationMinutes()
	if minutes == 0 {
		return 0
	}
	return float64(d.TotalEvents) / minutes
}

// PctOfTotal returns a ticker's share of total notional.
func (d MarkdownData) PctOfTotal(notional float64) float64 {
	if d.TotalNotional == 0 {
		return 0
	}
	return notional / d.TotalNotional * 100
}

var markdownFuncs = template.FuncMap{
	"usd": func(x float64) string { return fmt.Sprintf("$%.0f", x) },
	"num": func(x float64) string { return fmt.Sprintf("%.4f", x) },
	"px":  func(x float64) string { return fmt.Sprintf("$%.2f", x) },
	"pct": func(x float64) string { return fmt.Sprintf("%.1f%%", x) },
	"inc": func(i int) int { return i + 1 },
}

// WriteMarkdown renders the narrative ADL volume report.
func WriteMarkdown(path string, data MarkdownData) error {
	t, err := template.New("adl").Funcs(markdownFuncs).Parse(markdownTemplate)
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := t.Execute(buf, data); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

const markdownTemplate = `# ADL Net Volume Analysis

**Time Window**: {{.WindowStart.Format "2006-01-02 15:04:05"}} - {{.WindowEnd.Format "15:04:05"}} UTC
**Data Source**: {{.Source}}

---

## Executive Summary

**Total ADL'd Assets**: {{len .Tickers}} tickers
**Total ADL Events**: {{.TotalEvents}}
**Total Net Notional**: {{usd .TotalNotional}}
**Total Realized PNL**: {{usd .TotalPnl}}

---

## ADL Net Volume by Ticker

| Rank | Ticker | Net Volume | Net Notional (USD) | Avg Price | # ADL Events | Total PNL |
|------|--------|------------|--------------------|-----------|--------------|-----------|
{{- range $i, $t := .Tickers}}
| {{inc $i}} | {{$t.Ticker}} | {{num $t.NetVolume}} | {{usd $t.NetNotional}} | {{px $t.AvgPrice}} | {{$t.NumEvents}} | {{usd $t.TotalPnl}} |
{{- end}}

---

## Top Tickers (Detailed)
{{range $i, $t := .Top}}
### {{inc $i}}. {{$t.Ticker}}

- **Net Volume ADL'd**: {{num $t.NetVolume}} {{$t.Ticker}}
- **Net Notional**: {{usd $t.NetNotional}}
- **Average Price**: {{px $t.AvgPrice}}
- **Number of ADL Events**: {{$t.NumEvents}}
- **Total Realized PNL**: {{usd $t.TotalPnl}}
- **% of Total Notional**: {{pct ($.PctOfTotal $t.NetNotional)}}
{{end}}
---

## Key Insights

- **Total ADL volume**: {{usd .TotalNotional}} over {{printf "%.0f" .DurationMinutes}} minutes
- **{{.TotalEvents}} ADL events**, averaging {{printf "%.0f" .EventsPerMinute}} per minute
- **Total realized PNL** from ADL'd positions: {{usd .TotalPnl}}

---

## Methodology

- **Filter**: only fills whose direction label contains "Auto-Deleveraging"
- **Exclusions**: spot symbols (the "@" marker) cannot be ADL'd and are dropped
- **Window**: [start, end) half-open on block time
- **Net Notional**: sum of size x price per retained fill
{{if gt .BaselineNotional 0.0}}
---

## Comparison With Prior Sample

- **Prior sample notional**: {{usd .BaselineNotional}}
- **This window**: {{usd .TotalNotional}}
- **Scaling factor**: {{printf "%.2f" .ScalingFactor}}x
{{end}}
---

**Generated**: {{.Generated.Format "2006-01-02 15:04:05"}}
`
