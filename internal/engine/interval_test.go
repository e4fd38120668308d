package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderflow-engine/internal/model"
)

func TestParseInterval(t *testing.T) {
	testCases := []struct {
		in   string
		want time.Duration
	}{
		{"1min", time.Minute},
		{"5min", 5 * time.Minute},
		{"15m", 15 * time.Minute},
		{"30s", 30 * time.Second},
		{"1H", time.Hour},
		{"4H", 4 * time.Hour},
		{"1h", time.Hour},
		{"1D", 24 * time.Hour},
		{"3T", 3 * time.Minute},
	}
	for _, tc := range testCases {
		got, err := ParseInterval(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got.Duration, tc.in)
		assert.Equal(t, tc.in, got.Label)
	}
}

func TestParseIntervalRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "min", "abc", "5x", "0min", "1w"} {
		_, err := ParseInterval(in)
		require.Error(t, err, in)

		var cfgErr *model.ConfigurationError
		assert.True(t, errors.As(err, &cfgErr), "want ConfigurationError for %q", in)
	}
}

func TestAlignBarStart(t *testing.T) {
	ts := func(h, m, s int) time.Time {
		return time.Date(2025, 5, 6, h, m, s, 0, time.UTC)
	}

	testCases := []struct {
		name     string
		ts       time.Time
		interval time.Duration
		want     time.Time
	}{
		{"5min floors within hour", ts(12, 7, 33), 5 * time.Minute, ts(12, 5, 0)},
		{"5min at boundary", ts(12, 5, 0), 5 * time.Minute, ts(12, 5, 0)},
		{"5min end of window", ts(12, 9, 59), 5 * time.Minute, ts(12, 5, 0)},
		{"1min", ts(12, 7, 33), time.Minute, ts(12, 7, 0)},
		{"15min", ts(12, 44, 1), 15 * time.Minute, ts(12, 30, 0)},
		{"1H", ts(13, 47, 12), time.Hour, ts(13, 0, 0)},
		{"4H floors within day", ts(13, 47, 12), 4 * time.Hour, ts(12, 0, 0)},
		{"1D floors to midnight", ts(13, 47, 12), 24 * time.Hour, ts(0, 0, 0)},
		{"30s floors within minute", ts(12, 7, 44), 30 * time.Second, ts(12, 7, 30)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AlignBarStart(tc.ts, tc.interval))
		})
	}
}

func TestAlignBarStartIsIdempotent(t *testing.T) {
	ts := time.Date(2025, 5, 6, 12, 7, 33, 0, time.UTC)
	aligned := AlignBarStart(ts, 5*time.Minute)
	assert.Equal(t, aligned, AlignBarStart(aligned, 5*time.Minute))
}

func TestAlignBarStartKeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	ts := time.Date(2025, 5, 6, 12, 7, 33, 0, loc)
	aligned := AlignBarStart(ts, 5*time.Minute)
	assert.Equal(t, loc, aligned.Location())
	assert.Equal(t, 12, aligned.Hour())
	assert.Equal(t, 5, aligned.Minute())
}
