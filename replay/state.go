// Package replay reconstructs per-account state by folding a chronologically
// sorted event stream over a baseline snapshot, and derives equity, leverage
// and PnL metrics at the instant each forced-deleveraging fill lands.
package replay

import (
	"github.com/hyperreplay/hyperreplay/snapshot"
)

// Position is one open perp position. EntryPrice is fixed when the position
// is first seen (snapshot entry, or the creating fill's price) and is never
// recomputed afterwards, so it tracks "first observed price", not a weighted
// average. Known approximation, kept for numeric parity with prior runs.
type Position struct {
	Size       float64
	EntryPrice float64
	Notional   float64
}

// Account is the mutable fold state for one account.
type Account struct {
	Value      float64
	Positions  map[string]*Position
	LastUpdate int64 // unix ms of the last applied event
}

// State owns the whole fold: all account states plus the last observed trade
// price per instrument. It is an explicit value passed into the
// reconstructor, never ambient, so folds are testable in isolation.
type State struct {
	Accounts   map[string]*Account
	LastPrices map[string]float64
}

func NewState() *State {
	return &State{
		Accounts:   make(map[string]*Account),
		LastPrices: make(map[string]float64),
	}
}

// FromSnapshot builds the baseline state from the clearinghouse snapshot
// files. Accounts that appear only in the positions file are created with
// the account value recorded there.
func FromSnapshot(values []snapshot.AccountValue, markets []snapshot.MarketPositions, snapshotTime int64) *State {
	s := NewState()

	for _, av := range values {
		s.Accounts[av.User] = &Account{
			Value:      av.AccountValue,
			Positions:  make(map[string]*Position),
			LastUpdate: snapshotTime,
		}
	}

	for _, market := range markets {
		coin := market.Coin()
		for _, pos := range market.Positions {
			acct, ok := s.Accounts[pos.User]
			if !ok {
				acct = &Account{
					Value:      pos.AccountValue,
					Positions:  make(map[string]*Position),
					LastUpdate: snapshotTime,
				}
				s.Accounts[pos.User] = acct
			}
			acct.Positions[coin] = &Position{
				Size:       pos.Size,
				EntryPrice: pos.EntryPrice,
				Notional:   pos.NotionalSize,
			}
		}
	}

	return s
}

// Account returns the state for user, lazily creating a zero-value account
// on first reference. Events may touch accounts absent from the snapshot.
func (s *State) Account(user string, now int64) *Account {
	acct, ok := s.Accounts[user]
	if !ok {
		acct = &Account{
			Positions:  make(map[string]*Position),
			LastUpdate: now,
		}
		s.Accounts[user] = acct
	}
	return acct
}

// TotalValue sums account values across the state. Used for snapshot-load
// sanity reporting.
func (s *State) TotalValue() float64 {
	total := 0.0
	for _, acct := range s.Accounts {
		total += acct.Value
	}
	return total
}
