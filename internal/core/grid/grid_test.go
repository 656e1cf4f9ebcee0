package grid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAbsoluteDay_EpochAnchoredToSunday(t *testing.T) {
	cal := NewCalendar(time.UTC)

	epoch := time.Date(1970, time.January, 4, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Sunday, epoch.Weekday())
	require.Equal(t, 0, cal.AbsoluteDay(epoch))
	require.Equal(t, 0, cal.AbsoluteDay(epoch.Add(23*time.Hour+59*time.Minute)))
	require.Equal(t, 1, cal.AbsoluteDay(epoch.AddDate(0, 0, 1)))
	require.Equal(t, -1, cal.AbsoluteDay(epoch.Add(-time.Minute)))
}

func TestPosition_ColumnAlwaysNormalized(t *testing.T) {
	cal := NewCalendar(time.UTC)

	tests := []struct {
		name     string
		ts       time.Time
		wantWeek int
		wantCol  int
	}{
		{name: "epoch sunday", ts: time.Date(1970, 1, 4, 12, 0, 0, 0, time.UTC), wantWeek: 0, wantCol: 0},
		{name: "epoch saturday", ts: time.Date(1970, 1, 10, 12, 0, 0, 0, time.UTC), wantWeek: 0, wantCol: 6},
		{name: "next sunday", ts: time.Date(1970, 1, 11, 0, 0, 0, 0, time.UTC), wantWeek: 1, wantCol: 0},
		{name: "day before epoch", ts: time.Date(1970, 1, 3, 12, 0, 0, 0, time.UTC), wantWeek: -1, wantCol: 6},
		{name: "week before epoch", ts: time.Date(1969, 12, 28, 12, 0, 0, 0, time.UTC), wantWeek: -1, wantCol: 0},
		{name: "far pre-epoch", ts: time.Date(1969, 6, 15, 12, 0, 0, 0, time.UTC), wantWeek: -29, wantCol: 0},
		{name: "modern date", ts: time.Date(2026, 1, 18, 10, 6, 0, 0, time.UTC), wantCol: 0, wantWeek: 2924},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := cal.Position(tc.ts)
			require.Equal(t, tc.wantWeek, p.Week)
			require.Equal(t, tc.wantCol, p.Col)
			require.GreaterOrEqual(t, p.Col, 0)
			require.LessOrEqual(t, p.Col, 6)
		})
	}
}

func TestPosition_DayFraction(t *testing.T) {
	cal := NewCalendar(time.UTC)

	p := cal.Position(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	require.Equal(t, 0.0, p.DayFraction)

	p = cal.Position(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	require.InDelta(t, 0.5, p.DayFraction, 1e-9)

	p = cal.Position(time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC))
	require.InDelta(t, 0.75, p.DayFraction, 1e-9)
}

func TestGridRoundTrip(t *testing.T) {
	cal := NewCalendar(time.UTC)

	timestamps := []time.Time{
		time.Date(2026, 1, 18, 10, 6, 0, 0, time.UTC),
		time.Date(1970, 1, 4, 0, 0, 0, 0, time.UTC),
		time.Date(1969, 12, 31, 23, 59, 0, 0, time.UTC),
		time.Date(1955, 7, 2, 6, 30, 0, 0, time.UTC),
		time.Date(2099, 12, 31, 18, 45, 0, 0, time.UTC),
	}

	for _, ts := range timestamps {
		p := cal.Position(ts)
		reconstructed := cal.WeekStart(p.Week).
			AddDate(0, 0, p.Col).
			Add(time.Duration(p.DayFraction * 24 * float64(time.Hour)))
		require.WithinDuration(t, ts, reconstructed, time.Second,
			"round trip failed for %s", ts)
	}
}

func TestWeekStart_InverseOfPosition(t *testing.T) {
	cal := NewCalendar(time.UTC)

	for _, week := range []int{-100, -1, 0, 1, 2924} {
		start := cal.WeekStart(week)
		require.Equal(t, time.Sunday, start.Weekday())
		p := cal.Position(start)
		require.Equal(t, week, p.Week)
		require.Equal(t, 0, p.Col)
		require.Equal(t, 0.0, p.DayFraction)
	}
}

func TestAbsoluteDay_DSTTransition(t *testing.T) {
	// America/New_York springs forward 2026-03-08: that day is 23h long.
	// Day counting must still advance by exactly one per calendar day.
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	cal := NewCalendar(loc)

	before := time.Date(2026, 3, 7, 12, 0, 0, 0, loc)
	during := time.Date(2026, 3, 8, 12, 0, 0, 0, loc)
	after := time.Date(2026, 3, 9, 12, 0, 0, 0, loc)

	require.Equal(t, cal.AbsoluteDay(before)+1, cal.AbsoluteDay(during))
	require.Equal(t, cal.AbsoluteDay(during)+1, cal.AbsoluteDay(after))

	// Noon on the 23h day has already passed 12 of 23 hours.
	p := cal.Position(during)
	require.InDelta(t, 12.0/23.0, p.DayFraction, 1e-9)
}

func TestEndOfDay(t *testing.T) {
	cal := NewCalendar(time.UTC)
	got := cal.EndOfDay(time.Date(2026, 4, 2, 14, 30, 0, 0, time.UTC))
	require.Equal(t, time.Date(2026, 4, 2, 23, 59, 59, 0, time.UTC), got)
}
