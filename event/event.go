// Package event defines the typed clearinghouse events the replay and
// extraction pipelines consume, plus the best-effort parsers that turn raw
// line-delimited JSON blocks into them.
package event

import (
	"sort"
	"strings"
)

// Kind tags the event union.
type Kind string

const (
	KindFill       Kind = "fill"
	KindFunding    Kind = "funding"
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindTransfer   Kind = "transfer"
)

// Direction substrings recognized on fills.
const (
	dirADL        = "Auto-Deleveraging"
	dirLiquidated = "Liquidated"
)

// spotMarker prefixes spot-market instrument symbols, which are never ADL'd.
const spotMarker = "@"

// Event is the tagged union over fills, funding payments and ledger
// movements. Time is unix milliseconds; User is an opaque account id.
type Event struct {
	Kind Kind
	Time int64
	User string

	// Fill fields.
	Coin           string
	Price          float64
	Size           float64
	Side           string
	Direction      string
	ClosedPnl      float64
	Fee            float64
	StartPosition  float64
	LiquidatedUser string

	// Funding fields.
	FundingAmount float64

	// Ledger fields. Amount is signed; for transfers the sign already
	// carries direction (positive when moving into the margin account).
	Amount float64
}

// IsADL reports whether the event is a forced-deleveraging fill.
func (e Event) IsADL() bool {
	return e.Kind == KindFill && strings.Contains(e.Direction, dirADL)
}

// IsLiquidation reports whether the event is a liquidation fill.
func (e Event) IsLiquidation() bool {
	return e.Kind == KindFill && strings.Contains(e.Direction, dirLiquidated)
}

// IsSpotCoin reports whether the symbol belongs to a spot market.
// Spot fills are excluded from perp account reconstruction.
func IsSpotCoin(coin string) bool {
	return strings.HasPrefix(coin, spotMarker) || coin == "PURR/USDC"
}

// SortStable orders events by ascending timestamp. The sort is stable so
// same-timestamp events keep their combined source order.
func SortStable(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time < events[j].Time
	})
}

// InWindow filters events to snapshotTime <= t <= endTime. The replay
// window is inclusive at both ends, unlike the extractor's half-open one.
func InWindow(events []Event, snapshotTime, endTime int64) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Time >= snapshotTime && e.Time <= endTime {
			out = append(out, e)
		}
	}
	return out
}
