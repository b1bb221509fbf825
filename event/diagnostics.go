package event

import (
	"sort"

	"github.com/rs/zerolog"
)

// SkipReason enumerates why a record was dropped during parsing. Every skip
// is counted so a run can report its full diagnostic tally instead of only
// printing the first few warnings.
type SkipReason string

const (
	SkipBadJSON           SkipReason = "bad_json"
	SkipMissingTimestamp  SkipReason = "missing_timestamp"
	SkipBadTimestamp      SkipReason = "bad_timestamp"
	SkipBadEventShape     SkipReason = "bad_event_shape"
	SkipSpotFill          SkipReason = "spot_fill"
	SkipUnknownLedgerType SkipReason = "unknown_ledger_type"
)

// warnLimit caps the number of logged warnings per skip reason; the rest
// are dropped silently but still counted.
const warnLimit = 5

// Diagnostics counts skipped records per reason across a run.
type Diagnostics struct {
	log    zerolog.Logger
	counts map[SkipReason]int
}

func NewDiagnostics(log zerolog.Logger) *Diagnostics {
	return &Diagnostics{
		log:    log,
		counts: make(map[SkipReason]int),
	}
}

// Skip records one skipped item. The first few occurrences of each reason
// are logged at warn level to avoid flooding on bulk-malformed inputs.
func (d *Diagnostics) Skip(reason SkipReason, detail string) {
	d.counts[reason]++
	if d.counts[reason] <= warnLimit {
		d.log.Warn().
			Str("reason", string(reason)).
			Str("detail", detail).
			Msg("record skipped")
	}
}

// Counts returns the per-reason skip totals, keyed by the reason string so
// the map serializes cleanly into the run summary.
func (d *Diagnostics) Counts() map[string]int {
	out := make(map[string]int, len(d.counts))
	for reason, n := range d.counts {
		out[string(reason)] = n
	}
	return out
}

// Total returns the number of skipped records across all reasons.
func (d *Diagnostics) Total() int {
	n := 0
	for _, c := range d.counts {
		n += c
	}
	return n
}

// Reasons returns the observed skip reasons in sorted order.
func (d *Diagnostics) Reasons() []string {
	reasons := make([]string, 0, len(d.counts))
	for reason := range d.counts {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	return reasons
}
