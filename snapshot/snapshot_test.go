package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAccountValues(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "accounts.json")
	body := `[
		{"user": "0xaaa", "account_value": 1234.5},
		{"user": "0xbbb", "account_value": -10}
	]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	values, err := LoadAccountValues(path)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "0xaaa", values[0].User)
	assert.Equal(t, 1234.5, values[0].AccountValue)
	assert.Equal(t, -10.0, values[1].AccountValue)
}

func TestLoadMarketPositions(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "positions.json")
	body := `[
		{"market_name": "hyperliquid:BTC", "positions": [
			{"user": "0xaaa", "size": 2, "entry_price": 100, "notional_size": 200, "account_value": 1000}
		]},
		{"market_name": "ETH", "positions": []}
	]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	markets, err := LoadMarketPositions(path)
	require.NoError(t, err)
	require.Len(t, markets, 2)

	// Exchange namespace prefix is stripped; bare names pass through.
	assert.Equal(t, "BTC", markets[0].Coin())
	assert.Equal(t, "ETH", markets[1].Coin())

	pos := markets[0].Positions[0]
	assert.Equal(t, 2.0, pos.Size)
	assert.Equal(t, 100.0, pos.EntryPrice)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadAccountValues(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
	_, err = LoadMarketPositions(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
