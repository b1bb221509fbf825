package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Comparison lines up a prior run's leverage and profitability stats with
// the current run.
type Comparison struct {
	PriorAvgLeverage    float64
	CurrentAvgLeverage  float64
	PriorMedianLeverage float64
	CurrentMedianLever  float64
	PriorProfitablePct  float64
	CurrentProfitable   float64
	PriorEvents         int
}

// CompareWithPrior reads a prior detailed CSV (any file carrying "leverage"
// and "pnl_percent" columns) and compares it against the current findings.
// A missing or unreadable prior file is not an error worth failing a run
// over, so callers should treat the error as advisory.
func CompareWithPrior(priorPath string, current KeyFindings) (Comparison, error) {
	f, err := os.Open(priorPath)
	if err != nil {
		return Comparison{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return Comparison{}, fmt.Errorf("read prior header: %w", err)
	}
	levIdx, pnlIdx := -1, -1
	for i, col := range header {
		switch col {
		case "leverage", "leverage_realtime":
			levIdx = i
		case "pnl_percent":
			pnlIdx = i
		}
	}
	if levIdx < 0 || pnlIdx < 0 {
		return Comparison{}, fmt.Errorf("prior CSV %s lacks leverage/pnl_percent columns", priorPath)
	}

	var leverages, pnlPcts []float64
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Comparison{}, fmt.Errorf("read prior row: %w", err)
		}
		if levIdx >= len(row) || pnlIdx >= len(row) {
			continue
		}
		lev, err1 := strconv.ParseFloat(row[levIdx], 64)
		pnl, err2 := strconv.ParseFloat(row[pnlIdx], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		leverages = append(leverages, lev)
		pnlPcts = append(pnlPcts, pnl)
	}
	if len(leverages) == 0 {
		return Comparison{}, fmt.Errorf("prior CSV %s has no parsable rows", priorPath)
	}

	profitable := 0
	for _, p := range pnlPcts {
		if p > 0 {
			profitable++
		}
	}

	return Comparison{
		PriorAvgLeverage:    mean(leverages),
		CurrentAvgLeverage:  current.AverageLeverage,
		PriorMedianLeverage: median(leverages),
		CurrentMedianLever:  current.MedianLeverage,
		PriorProfitablePct:  float64(profitable) / float64(len(pnlPcts)) * 100,
		CurrentProfitable:   current.ProfitablePositionsPct,
		PriorEvents:         len(leverages),
	}, nil
}
