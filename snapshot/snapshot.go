// Package snapshot loads the clearinghouse baseline: per-account values and
// per-market open positions captured at a single block height. The replay
// fold starts from this state.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// marketPrefix namespaces market names in the positions snapshot
// ("hyperliquid:BTC" -> "BTC").
const marketPrefix = "hyperliquid:"

// AccountValue is one row of the account-value snapshot.
type AccountValue struct {
	User         string  `json:"user"`
	AccountValue float64 `json:"account_value"`
}

// Position is one open position inside a market snapshot. AccountValue is
// repeated here because some accounts appear only in the positions file.
type Position struct {
	User         string  `json:"user"`
	Size         float64 `json:"size"`
	EntryPrice   float64 `json:"entry_price"`
	NotionalSize float64 `json:"notional_size"`
	AccountValue float64 `json:"account_value"`
}

// MarketPositions groups the open positions of one perp market.
type MarketPositions struct {
	MarketName string     `json:"market_name"`
	Positions  []Position `json:"positions"`
}

// Coin returns the market's instrument symbol with the exchange namespace
// prefix stripped.
func (m MarketPositions) Coin() string {
	return strings.TrimPrefix(m.MarketName, marketPrefix)
}

// LoadAccountValues reads the account-value snapshot file.
func LoadAccountValues(path string) ([]AccountValue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read account snapshot: %w", err)
	}
	var out []AccountValue
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse account snapshot %s: %w", path, err)
	}
	return out, nil
}

// LoadMarketPositions reads the per-market positions snapshot file.
func LoadMarketPositions(path string) ([]MarketPositions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read positions snapshot: %w", err)
	}
	var out []MarketPositions
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse positions snapshot %s: %w", path, err)
	}
	return out, nil
}
