package report

import (
	"sort"

	"github.com/hyperreplay/hyperreplay/replay"
)

// UserSummary aggregates one account's ADL records.
type UserSummary struct {
	User              string
	ADLNotional       float64
	ClosedPnl         float64
	AvgLeverage       float64
	AvgPnlPercent     float64
	AccountValue      float64 // first seen in the record set
	AnyNegativeEquity bool
	NumEvents         int
}

// CoinSummary aggregates one instrument's ADL records.
type CoinSummary struct {
	Coin                 string
	ADLNotional          float64
	ClosedPnl            float64
	AvgLeverage          float64
	AvgPnlPercent        float64
	NegativeEquityEvents int
	NumUsers             int
	NumEvents            int
}

// AggregateByUser groups replay metrics per account, sorted by ADL notional
// descending.
func AggregateByUser(metrics []replay.Metrics) []UserSummary {
	type acc struct {
		UserSummary
		leverageSum float64
		pnlPctSum   float64
	}

	byUser := make(map[string]*acc)
	for _, m := range metrics {
		a, ok := byUser[m.User]
		if !ok {
			a = &acc{UserSummary: UserSummary{User: m.User, AccountValue: m.AccountValue}}
			byUser[m.User] = a
		}
		a.ADLNotional += m.ADLNotional
		a.ClosedPnl += m.ClosedPnl
		a.leverageSum += m.Leverage
		a.pnlPctSum += m.PnlPercent
		a.AnyNegativeEquity = a.AnyNegativeEquity || m.NegativeEquity
		a.NumEvents++
	}

	out := make([]UserSummary, 0, len(byUser))
	for _, a := range byUser {
		n := float64(a.NumEvents)
		a.AvgLeverage = a.leverageSum / n
		a.AvgPnlPercent = a.pnlPctSum / n
		out = append(out, a.UserSummary)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ADLNotional != out[j].ADLNotional {
			return out[i].ADLNotional > out[j].ADLNotional
		}
		return out[i].User < out[j].User
	})
	return out
}

// AggregateByCoin groups replay metrics per instrument, sorted by ADL
// notional descending.
func AggregateByCoin(metrics []replay.Metrics) []CoinSummary {
	type acc struct {
		CoinSummary
		leverageSum float64
		pnlPctSum   float64
		users       map[string]struct{}
	}

	byCoin := make(map[string]*acc)
	for _, m := range metrics {
		a, ok := byCoin[m.Coin]
		if !ok {
			a = &acc{CoinSummary: CoinSummary{Coin: m.Coin}, users: make(map[string]struct{})}
			byCoin[m.Coin] = a
		}
		a.ADLNotional += m.ADLNotional
		a.ClosedPnl += m.ClosedPnl
		a.leverageSum += m.Leverage
		a.pnlPctSum += m.PnlPercent
		if m.NegativeEquity {
			a.NegativeEquityEvents++
		}
		a.users[m.User] = struct{}{}
		a.NumEvents++
	}

	out := make([]CoinSummary, 0, len(byCoin))
	for _, a := range byCoin {
		n := float64(a.NumEvents)
		a.AvgLeverage = a.leverageSum / n
		a.AvgPnlPercent = a.pnlPctSum / n
		a.NumUsers = len(a.users)
		out = append(out, a.CoinSummary)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ADLNotional != out[j].ADLNotional {
			return out[i].ADLNotional > out[j].ADLNotional
		}
		return out[i].Coin < out[j].Coin
	})
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
