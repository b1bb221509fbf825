// Package ingest glues the raw archives to the typed event stream: it makes
// sure the clearinghouse inputs exist and loads fills and misc logs into
// replay events.
package ingest

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hyperreplay/hyperreplay/archive"
	"github.com/hyperreplay/hyperreplay/config"
	"github.com/hyperreplay/hyperreplay/event"
)

const maxLineBytes = 16 * 1024 * 1024

// EnsureClearinghouseInputs checks that the replay input files are present,
// reassembling and extracting the snapshot archive when they are not.
func EnsureClearinghouseInputs(cfg *config.Config, log zerolog.Logger) error {
	required := requiredInputs(cfg)

	missing := missingFiles(required)
	if len(missing) == 0 {
		return nil
	}

	archivePath, err := archive.AssembleParts(cfg.Inputs.RawDir, cfg.Inputs.ClearinghouseArchive)
	if err != nil {
		return fmt.Errorf("missing clearinghouse inputs (%s): %w", strings.Join(missing, ", "), err)
	}

	log.Info().Str("archive", archivePath).Msg("extracting clearinghouse snapshot archive")
	if err := archive.ExtractTarXz(archivePath, cfg.Inputs.RawDir); err != nil {
		return fmt.Errorf("extract clearinghouse archive: %w", err)
	}

	if missing = missingFiles(required); len(missing) > 0 {
		return fmt.Errorf("clearinghouse archive did not provide: %s", strings.Join(missing, ", "))
	}
	return nil
}

func requiredInputs(cfg *config.Config) []string {
	var out []string
	for _, name := range cfg.Inputs.FillsFiles {
		out = append(out, filepath.Join(cfg.Inputs.RawDir, name))
	}
	for _, name := range cfg.Inputs.MiscFiles {
		out = append(out, filepath.Join(cfg.Inputs.RawDir, name))
	}
	out = append(out,
		filepath.Join(cfg.Inputs.RawDir, cfg.Inputs.AccountSnapshot),
		filepath.Join(cfg.Inputs.RawDir, cfg.Inputs.PositionsSnapshot),
	)
	return out
}

func missingFiles(paths []string) []string {
	var missing []string
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, filepath.Base(path))
		}
	}
	return missing
}

// Loader streams raw log files into typed events.
type Loader struct {
	parser *event.Parser
	diags  *event.Diagnostics
	log    zerolog.Logger
}

func NewLoader(diags *event.Diagnostics, log zerolog.Logger) *Loader {
	return &Loader{
		parser: event.NewParser(diags),
		diags:  diags,
		log:    log,
	}
}

// LoadFills reads a line-delimited fills log (plain or .lz4) and returns
// perp fill events. Spot fills are dropped with a diagnostic.
func (l *Loader) LoadFills(path string) ([]event.Event, error) {
	var out []event.Event
	err := l.scanLines(path, func(line []byte) {
		block, ok := l.parser.ParseFillBlock(line)
		if !ok {
			return
		}
		for _, fill := range block.Fills {
			if fill.IsSpot() {
				l.diags.Skip(event.SkipSpotFill, fill.Coin)
				continue
			}
			out = append(out, fill.Event())
		}
	})
	if err != nil {
		return nil, fmt.Errorf("load fills %s: %w", path, err)
	}
	return out, nil
}

// LoadMisc reads a funding/ledger log and returns the resulting events.
func (l *Loader) LoadMisc(path string) ([]event.Event, error) {
	var out []event.Event
	err := l.scanLines(path, func(line []byte) {
		events, ok := l.parser.ParseMiscBlock(line)
		if !ok {
			return
		}
		out = append(out, events...)
	})
	if err != nil {
		return nil, fmt.Errorf("load misc %s: %w", path, err)
	}
	return out, nil
}

func (l *Loader) scanLines(path string, handle func(line []byte)) error {
	rc, err := archive.OpenLines(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lines := 0
	for scanner.Scan() {
		lines++
		if lines%50_000 == 0 {
			l.log.Debug().Str("file", filepath.Base(path)).Int("lines", lines).Msg("loading events")
		}
		handle(scanner.Bytes())
	}
	return scanner.Err()
}
