package event

import (
	"fmt"
	"strings"
	"time"
)

// normalizeFraction rewrites the fractional-second part of an RFC 3339-ish
// timestamp to exactly six digits, truncating or zero-padding as needed and
// preserving any zone suffix. Source logs carry anywhere from millisecond to
// nanosecond precision; a fixed-width fraction keeps parsing uniform.
func normalizeFraction(s string) string {
	dot := strings.LastIndexByte(s, '.')
	if dot < 0 {
		return s
	}

	frac := s[dot+1:]
	end := 0
	for end < len(frac) && frac[end] >= '0' && frac[end] <= '9' {
		end++
	}
	if end == 0 {
		return s
	}

	digits := frac[:end]
	if len(digits) > 6 {
		digits = digits[:6]
	} else {
		digits = digits + strings.Repeat("0", 6-len(digits))
	}
	return s[:dot+1] + digits + frac[end:]
}

// ParseBlockTime parses a block or ledger timestamp string. Naive
// timestamps are taken as UTC; "Z" and numeric offsets are honored.
func ParseBlockTime(s string) (time.Time, error) {
	s = normalizeFraction(strings.TrimSpace(s))
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	layouts := []string{
		"2006-01-02T15:04:05.000000Z07:00",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02T15:04:05.000000",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad timestamp %q", s)
}
