package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFraction(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"2025-10-10T21:15:00", "2025-10-10T21:15:00"},
		{"2025-10-10T21:15:00.1", "2025-10-10T21:15:00.100000"},
		{"2025-10-10T21:15:00.123456789", "2025-10-10T21:15:00.123456"},
		{"2025-10-10T21:15:00.123456789Z", "2025-10-10T21:15:00.123456Z"},
		{"2025-10-10T21:15:00.123456789+00:00", "2025-10-10T21:15:00.123456+00:00"},
		{"2025-10-10T21:15:00.12Z", "2025-10-10T21:15:00.120000Z"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, normalizeFraction(tc.in), "input %q", tc.in)
	}
}

func TestParseBlockTime(t *testing.T) {
	t.Parallel()

	// Naive timestamps are UTC.
	got, err := ParseBlockTime("2025-10-10T21:15:00.123456789")
	require.NoError(t, err)
	want := time.Date(2025, 10, 10, 21, 15, 0, 123456000, time.UTC)
	assert.True(t, got.Equal(want), "got %v", got)

	// Zulu suffix.
	got, err = ParseBlockTime("2025-10-10T21:15:30.500Z")
	require.NoError(t, err)
	assert.Equal(t, int64(1760130930500), got.UnixMilli())

	// No fraction at all.
	got, err = ParseBlockTime("2025-10-10T21:27:00")
	require.NoError(t, err)
	assert.Equal(t, int64(1760131620000), got.UnixMilli())

	_, err = ParseBlockTime("")
	assert.Error(t, err)
	_, err = ParseBlockTime("10/10/2025 21:15")
	assert.Error(t, err)
}
