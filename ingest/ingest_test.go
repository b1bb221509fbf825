package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperreplay/hyperreplay/config"
	"github.com/hyperreplay/hyperreplay/event"
)

func newTestLoader() (*Loader, *event.Diagnostics) {
	diags := event.NewDiagnostics(zerolog.Nop())
	return NewLoader(diags, zerolog.Nop()), diags
}

func TestLoadFillsSkipsSpot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "21_fills.json")
	body := `{"block_time":"2025-10-10T21:15:00","events":[` +
		`["0xaaa",{"coin":"BTC","px":"100","sz":"1","side":"A","time":1760130900000,"dir":"Open Long"}],` +
		`["0xbbb",{"coin":"@42","px":"1","sz":"10","side":"B","time":1760130900001,"dir":"Buy"}],` +
		`["0xccc",{"coin":"PURR/USDC","px":"0.2","sz":"50","side":"A","time":1760130900002,"dir":"Sell"}]]}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	loader, diags := newTestLoader()
	events, err := loader.LoadFills(path)
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, event.KindFill, events[0].Kind)
	assert.Equal(t, "BTC", events[0].Coin)
	assert.Equal(t, int64(1760130900000), events[0].Time)
	assert.Equal(t, 2, diags.Counts()[string(event.SkipSpotFill)])
}

func TestLoadMisc(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "21_misc.json")
	body := `{"events":[{"time":"2025-10-10T21:15:30Z","inner":{"Funding":{"deltas":[{"user":"0xaaa","coin":"BTC","funding_amount":"2"}]}}}]}` + "\n" +
		`garbage` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	loader, diags := newTestLoader()
	events, err := loader.LoadMisc(path)
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, event.KindFunding, events[0].Kind)
	assert.Equal(t, 1, diags.Counts()[string(event.SkipBadJSON)])
}

func TestEnsureClearinghouseInputsAllPresent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Inputs.RawDir = dir
	cfg.Inputs.FillsFiles = []string{"f.json"}
	cfg.Inputs.MiscFiles = []string{"m.json"}
	cfg.Inputs.AccountSnapshot = "a.json"
	cfg.Inputs.PositionsSnapshot = "p.json"

	for _, name := range []string{"f.json", "m.json", "a.json", "p.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("[]"), 0o644))
	}

	assert.NoError(t, EnsureClearinghouseInputs(cfg, zerolog.Nop()))
}

func TestEnsureClearinghouseInputsMissingArchive(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Inputs.RawDir = t.TempDir()

	err := EnsureClearinghouseInputs(cfg, zerolog.Nop())
	require.Error(t, err)
	// The error names what is missing and how to rebuild the archive.
	assert.Contains(t, err.Error(), "missing clearinghouse inputs")
	assert.Contains(t, err.Error(), "cat")
}
