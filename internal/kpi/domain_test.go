package kpi

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	cases := map[string]Period{
		"":     DefaultPeriod,
		"7":    PeriodWeek,
		"30d":  PeriodMonth,
		" 90 ": PeriodQuarter,
		"365D": PeriodYear,
	}
	for raw, want := range cases {
		got, err := ParsePeriod(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got)
	}
	for _, raw := range []string{"14", "abc", "-7", "0"} {
		_, err := ParsePeriod(raw)
		require.True(t, errors.Is(err, ErrInvalidPeriod), raw)
	}
}

func TestWindowForIsContiguous(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 30, 0, 0, time.FixedZone("BRT", -3*3600))
	for _, p := range Periods() {
		w := WindowFor(now, p)
		require.Equal(t, now.UTC(), w.CurrentEnd)
		require.Equal(t, w.CurrentStart, w.PreviousEnd)
		require.Equal(t, p.Duration(), w.CurrentEnd.Sub(w.CurrentStart))
		require.Equal(t, p.Duration(), w.PreviousEnd.Sub(w.PreviousStart))
	}
}
