package event

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() (*Parser, *Diagnostics) {
	diags := NewDiagnostics(zerolog.Nop())
	return NewParser(diags), diags
}

func TestParseFillBlock(t *testing.T) {
	t.Parallel()

	p, diags := newTestParser()

	line := []byte(`{
		"block_time": "2025-10-10T21:15:00.123456789",
		"events": [
			["0xaaa", {"coin":"BTC","px":"60000.5","sz":"0.25","side":"A","time":1760130900123,
				"dir":"Auto-Deleveraging","closedPnl":"-20.5","fee":"1.25","startPosition":"2",
				"liquidation":{"liquidatedUser":"0xdead"}}],
			["0xbbb", {"coin":"ETH","px":3000,"sz":1.5,"side":"B","time":1760130900456,
				"dir":"Open Long","closedPnl":0,"fee":"0.3","startPosition":"0"}]
		]
	}`)

	block, ok := p.ParseFillBlock(line)
	require.True(t, ok)
	require.Len(t, block.Fills, 2)
	assert.Equal(t, 0, diags.Total())

	adl := block.Fills[0]
	assert.Equal(t, "0xaaa", adl.User)
	assert.Equal(t, "BTC", adl.Coin)
	assert.Equal(t, 60000.5, adl.Price)
	assert.Equal(t, 0.25, adl.Size)
	assert.Equal(t, int64(1760130900123), adl.Time)
	assert.Equal(t, -20.5, adl.ClosedPnl)
	assert.Equal(t, 1.25, adl.Fee)
	assert.Equal(t, 2.0, adl.StartPosition)
	assert.Equal(t, "0xdead", adl.LiquidatedUser)
	assert.True(t, adl.IsADL())
	assert.False(t, adl.IsSpot())

	// Mixed string/number encodings parse the same way.
	other := block.Fills[1]
	assert.Equal(t, 3000.0, other.Price)
	assert.Equal(t, 1.5, other.Size)
	assert.False(t, other.IsADL())

	// Block timestamp normalized to microsecond precision, taken as UTC.
	assert.Equal(t, "2025-10-10T21:15:00.123456Z", block.Time.Format("2006-01-02T15:04:05.000000Z07:00"))
}

func TestParseFillBlockSkipsMalformed(t *testing.T) {
	t.Parallel()

	p, diags := newTestParser()

	_, ok := p.ParseFillBlock([]byte(`not json`))
	assert.False(t, ok)

	// Missing or unusable block_time keeps the fills but zeroes the block
	// timestamp, which window filters exclude.
	block, ok := p.ParseFillBlock([]byte(`{"events": []}`))
	assert.True(t, ok)
	assert.True(t, block.Time.IsZero())

	block, ok = p.ParseFillBlock([]byte(`{"block_time": "garbage", "events": []}`))
	assert.True(t, ok)
	assert.True(t, block.Time.IsZero())

	// A bad pair inside a good block is dropped, the rest survive.
	block, ok = p.ParseFillBlock([]byte(`{
		"block_time": "2025-10-10T21:16:00",
		"events": [
			["only-user"],
			["0xccc", {"coin":"SOL","px":"200","sz":"3","side":"A","time":1760130960000,"dir":"Close Long"}]
		]
	}`))
	require.True(t, ok)
	require.Len(t, block.Fills, 1)
	assert.Equal(t, "0xccc", block.Fills[0].User)

	counts := diags.Counts()
	assert.Equal(t, 1, counts[string(SkipBadJSON)])
	assert.Equal(t, 1, counts[string(SkipMissingTimestamp)])
	assert.Equal(t, 1, counts[string(SkipBadTimestamp)])
	assert.Equal(t, 1, counts[string(SkipBadEventShape)])
	assert.Equal(t, 4, diags.Total())
}

func TestParseMiscBlock(t *testing.T) {
	t.Parallel()

	p, _ := newTestParser()

	line := []byte(`{"events": [
		{"time": "2025-10-10T21:15:30.500Z",
		 "inner": {"Funding": {"deltas": [
			{"user": "0xaaa", "coin": "BTC", "funding_amount": "1.5"},
			{"user": "0xbbb", "coin": "BTC", "funding_amount": "-0.75"}
		 ]}}},
		{"time": "2025-10-10T21:15:31Z",
		 "inner": {"LedgerUpdate": {"users": ["0xccc"], "delta": {"type": "deposit", "usdc": "100"}}}},
		{"time": "2025-10-10T21:15:32Z",
		 "inner": {"LedgerUpdate": {"users": ["0xccc"], "delta": {"type": "withdraw", "usdc": "40"}}}},
		{"time": "2025-10-10T21:15:33Z",
		 "inner": {"LedgerUpdate": {"users": ["0xddd"], "delta": {"type": "accountClassTransfer", "usdc": "25", "toPerp": false}}}}
	]}`)

	events, ok := p.ParseMiscBlock(line)
	require.True(t, ok)
	require.Len(t, events, 5)

	assert.Equal(t, KindFunding, events[0].Kind)
	assert.Equal(t, 1.5, events[0].FundingAmount)
	assert.Equal(t, "0xaaa", events[0].User)
	assert.Equal(t, -0.75, events[1].FundingAmount)

	assert.Equal(t, KindDeposit, events[2].Kind)
	assert.Equal(t, 100.0, events[2].Amount)

	assert.Equal(t, KindWithdrawal, events[3].Kind)
	assert.Equal(t, 40.0, events[3].Amount)

	// Transfer out of the margin account flips the sign.
	assert.Equal(t, KindTransfer, events[4].Kind)
	assert.Equal(t, -25.0, events[4].Amount)
}

func TestParseMiscBlockUnknownLedgerType(t *testing.T) {
	t.Parallel()

	p, diags := newTestParser()

	events, ok := p.ParseMiscBlock([]byte(`{"events": [
		{"time": "2025-10-10T21:15:31Z",
		 "inner": {"LedgerUpdate": {"users": ["0xccc"], "delta": {"type": "vaultDistribution", "usdc": "9"}}}}
	]}`))
	require.True(t, ok)
	assert.Empty(t, events)
	assert.Equal(t, 1, diags.Counts()[string(SkipUnknownLedgerType)])
}

func TestIsSpotCoin(t *testing.T) {
	t.Parallel()

	assert.True(t, IsSpotCoin("@107"))
	assert.True(t, IsSpotCoin("PURR/USDC"))
	assert.False(t, IsSpotCoin("BTC"))
	assert.False(t, IsSpotCoin("HYPE"))
}

func TestSortStableKeepsTieOrder(t *testing.T) {
	t.Parallel()

	events := []Event{
		{Kind: KindFill, Time: 30, User: "c"},
		{Kind: KindFunding, Time: 10, User: "a"},
		{Kind: KindDeposit, Time: 20, User: "first"},
		{Kind: KindWithdrawal, Time: 20, User: "second"},
		{Kind: KindTransfer, Time: 20, User: "third"},
	}
	SortStable(events)

	assert.Equal(t, int64(10), events[0].Time)
	assert.Equal(t, "first", events[1].User)
	assert.Equal(t, "second", events[2].User)
	assert.Equal(t, "third", events[3].User)
	assert.Equal(t, int64(30), events[4].Time)
}

func TestInWindowInclusiveBounds(t *testing.T) {
	t.Parallel()

	events := []Event{
		{Time: 99}, {Time: 100}, {Time: 150}, {Time: 200}, {Time: 201},
	}
	got := InWindow(events, 100, 200)
	require.Len(t, got, 3)
	assert.Equal(t, int64(100), got[0].Time)
	assert.Equal(t, int64(200), got[2].Time)
}
