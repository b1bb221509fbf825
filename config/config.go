// Package config holds the run configuration: the analysis window, input
// archive layout and output locations. Defaults reproduce the October 10,
// 2025 12-minute cascade analysis.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete analysis configuration.
type Config struct {
	Window  WindowConfig  `json:"window" yaml:"window"`
	Inputs  InputsConfig  `json:"inputs" yaml:"inputs"`
	Outputs OutputsConfig `json:"outputs" yaml:"outputs"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
}

// WindowConfig bounds the analysis. Start/End are RFC 3339. The extractor
// treats [start, end) as half-open; the replay applies events from the
// snapshot instant through end inclusive.
type WindowConfig struct {
	Start          string `json:"start" yaml:"start"`
	End            string `json:"end" yaml:"end"`
	SnapshotTimeMs int64  `json:"snapshot_time_ms" yaml:"snapshot_time_ms"`
}

// StartTime parses the window start.
func (w WindowConfig) StartTime() (time.Time, error) {
	return parseRFC3339("window.start", w.Start)
}

// EndTime parses the window end.
func (w WindowConfig) EndTime() (time.Time, error) {
	return parseRFC3339("window.end", w.End)
}

func parseRFC3339(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, err)
	}
	return t.UTC(), nil
}

// InputsConfig names the raw artifacts. File names are relative to RawDir.
type InputsConfig struct {
	RawDir               string   `json:"raw_dir" yaml:"raw_dir"`
	FillsArchive         string   `json:"fills_archive" yaml:"fills_archive"`
	ClearinghouseArchive string   `json:"clearinghouse_archive" yaml:"clearinghouse_archive"`
	FillsFiles           []string `json:"fills_files" yaml:"fills_files"`
	MiscFiles            []string `json:"misc_files" yaml:"misc_files"`
	AccountSnapshot      string   `json:"account_snapshot" yaml:"account_snapshot"`
	PositionsSnapshot    string   `json:"positions_snapshot" yaml:"positions_snapshot"`
	PriorDetailCSV       string   `json:"prior_detail_csv,omitempty" yaml:"prior_detail_csv,omitempty"`
}

// OutputsConfig controls where the run artifacts land.
type OutputsConfig struct {
	Dir string `json:"dir" yaml:"dir"`

	// BaselineNotionalUSD enables the prior-sample scaling comparison in
	// the extractor report; zero disables it.
	BaselineNotionalUSD float64 `json:"baseline_notional_usd,omitempty" yaml:"baseline_notional_usd,omitempty"`
}

// JournalConfig controls optional SQLite persistence of replay runs.
type JournalConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	DBPath  string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if strings.HasSuffix(path, ".json") {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for obvious misuse.
func (c *Config) Validate() error {
	start, err := c.Window.StartTime()
	if err != nil {
		return err
	}
	end, err := c.Window.EndTime()
	if err != nil {
		return err
	}
	if !end.After(start) {
		return fmt.Errorf("window.end must be after window.start")
	}
	if c.Window.SnapshotTimeMs <= 0 {
		return fmt.Errorf("window.snapshot_time_ms must be positive")
	}
	if c.Window.SnapshotTimeMs > end.UnixMilli() {
		return fmt.Errorf("window.snapshot_time_ms is after window.end")
	}
	if c.Inputs.RawDir == "" {
		return fmt.Errorf("inputs.raw_dir is required")
	}
	if c.Outputs.Dir == "" {
		return fmt.Errorf("outputs.dir is required")
	}
	if c.Journal.Enabled && c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path required when journal is enabled")
	}
	return nil
}

// Default returns the canonical October 10, 2025 incident configuration.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Start:          "2025-10-10T21:15:00Z",
			End:            "2025-10-10T21:27:00Z",
			SnapshotTimeMs: 1760126694218, // 20:04:54.218 UTC clearinghouse snapshot
		},
		Inputs: InputsConfig{
			RawDir:               "data/raw",
			FillsArchive:         "node_fills_20251010_21.lz4",
			ClearinghouseArchive: "clearinghouse_snapshot_20251010.tar.xz",
			FillsFiles:           []string{"20_fills.json", "21_fills.json"},
			MiscFiles:            []string{"20_misc.json", "21_misc.json"},
			AccountSnapshot:      "account_value_snapshot_758750000_1760126694218.json",
			PositionsSnapshot:    "perp_positions_by_market_758750000_1760126694218.json",
			PriorDetailCSV:       "adl_detailed_analysis.csv",
		},
		Outputs: OutputsConfig{
			Dir:                 "data/canonical",
			BaselineNotionalUSD: 285_546_805, // 2-minute SonarX sample
		},
		Journal: JournalConfig{
			Enabled: false,
			DBPath:  "./hyperreplay.sqlite",
		},
	}
}
