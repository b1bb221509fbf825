package replay

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/hyperreplay/hyperreplay/event"
)

// Metrics is the derived record snapshotted the moment an ADL fill is
// applied during the forward pass.
type Metrics struct {
	User string
	Coin string
	Time int64 // unix ms

	ADLPrice    float64
	ADLSize     float64
	ADLNotional float64
	ClosedPnl   float64

	PositionSize float64
	EntryPrice   float64

	AccountValue          float64
	TotalUnrealizedPnl    float64
	TotalEquity           float64
	NegativeEquity        bool
	Leverage              float64
	PositionUnrealizedPnl float64
	PnlPercent            float64

	LiquidatedUser string
}

// Stats summarizes one reconstruction pass.
type Stats struct {
	EventsProcessed   int
	ADLFills          int
	Liquidations      int
	AccountsTracked   int
	SkippedNoPosition int
}

// Reconstructor folds events into a State. The state is owned by the
// caller; a single Run consumes it.
type Reconstructor struct {
	state *State
	log   zerolog.Logger
}

func NewReconstructor(state *State, log zerolog.Logger) *Reconstructor {
	return &Reconstructor{state: state, log: log}
}

// State exposes the fold state, mainly so callers can inspect it after Run.
func (r *Reconstructor) State() *State {
	return r.state
}

// Run sorts events by ascending timestamp (stable, so same-timestamp events
// keep their source order) and applies them in a single forward pass. For
// every forced-deleveraging fill it snapshots derived metrics immediately
// after the fill itself has been applied.
func (r *Reconstructor) Run(events []event.Event) ([]Metrics, Stats) {
	event.SortStable(events)

	var (
		out   []Metrics
		stats Stats
	)

	for _, ev := range events {
		r.apply(ev)
		stats.EventsProcessed++

		if ev.Kind != event.KindFill {
			continue
		}
		if ev.IsLiquidation() {
			stats.Liquidations++
		}
		if !ev.IsADL() {
			continue
		}
		stats.ADLFills++

		m, ok := r.metricsAt(ev)
		if !ok {
			stats.SkippedNoPosition++
			continue
		}
		out = append(out, m)
	}

	stats.AccountsTracked = len(r.state.Accounts)

	r.log.Info().
		Int("events", stats.EventsProcessed).
		Int("adl_fills", stats.ADLFills).
		Int("liquidations", stats.Liquidations).
		Int("accounts", stats.AccountsTracked).
		Msg("reconstruction pass complete")

	return out, stats
}

// apply mutates the fold state with one event.
func (r *Reconstructor) apply(ev event.Event) {
	acct := r.state.Account(ev.User, ev.Time)

	switch ev.Kind {
	case event.KindFill:
		acct.Value += ev.ClosedPnl
		acct.Value -= ev.Fee

		pos, ok := acct.Positions[ev.Coin]
		if !ok {
			pos = &Position{EntryPrice: ev.Price}
			acct.Positions[ev.Coin] = pos
		}
		// The fill's reported pre-trade size, not a computed post-trade
		// size. Stored size therefore lags the true position by one fill.
		// Reproduced as-is for parity with prior runs; flagged upstream.
		pos.Size = ev.StartPosition

		r.state.LastPrices[ev.Coin] = ev.Price

	case event.KindFunding:
		acct.Value += ev.FundingAmount

	case event.KindDeposit:
		acct.Value += ev.Amount

	case event.KindWithdrawal:
		acct.Value -= ev.Amount

	case event.KindTransfer:
		acct.Value += ev.Amount
	}

	acct.LastUpdate = ev.Time
}

// metricsAt derives the ADL-moment record for a just-applied ADL fill.
// Returns ok=false when the account holds no position in the fill's
// instrument, in which case the fill is excluded from output.
func (r *Reconstructor) metricsAt(ev event.Event) (Metrics, bool) {
	acct, ok := r.state.Accounts[ev.User]
	if !ok {
		return Metrics{}, false
	}

	// Mark every open position at its last observed trade price. Positions
	// with no price yet, or with an unset entry price, stay out of the
	// aggregate.
	totalUnrealized := 0.0
	for coin, pos := range acct.Positions {
		if pos.Size == 0 {
			continue
		}
		current := r.state.LastPrices[coin]
		if current == 0 {
			continue
		}
		if pos.EntryPrice == 0 {
			continue
		}
		if pos.Size > 0 {
			totalUnrealized += pos.Size * (current - pos.EntryPrice)
		} else {
			totalUnrealized += math.Abs(pos.Size) * (pos.EntryPrice - current)
		}
	}
	totalEquity := acct.Value + totalUnrealized

	pos, ok := acct.Positions[ev.Coin]
	if !ok {
		return Metrics{}, false
	}

	var positionUnrealized float64
	if pos.Size > 0 {
		positionUnrealized = pos.Size * (ev.Price - pos.EntryPrice)
	} else {
		positionUnrealized = math.Abs(pos.Size) * (pos.EntryPrice - ev.Price)
	}

	positionNotional := math.Abs(pos.Size) * ev.Price

	pnlPercent := 0.0
	if positionNotional > 0 {
		pnlPercent = positionUnrealized / positionNotional * 100
	}

	leverage := 0.0
	if acct.Value > 0 {
		leverage = positionNotional / acct.Value
	}

	return Metrics{
		User:                  ev.User,
		Coin:                  ev.Coin,
		Time:                  ev.Time,
		ADLPrice:              ev.Price,
		ADLSize:               ev.Size,
		ADLNotional:           math.Abs(ev.Size) * ev.Price,
		ClosedPnl:             ev.ClosedPnl,
		PositionSize:          pos.Size,
		EntryPrice:            pos.EntryPrice,
		AccountValue:          acct.Value,
		TotalUnrealizedPnl:    totalUnrealized,
		TotalEquity:           totalEquity,
		NegativeEquity:        totalEquity < 0,
		Leverage:              leverage,
		PositionUnrealizedPnl: positionUnrealized,
		PnlPercent:            pnlPercent,
		LiquidatedUser:        ev.LiquidatedUser,
	}, true
}
