package streak

import (
	"testing"
	"time"
)

func TestSameCalendarDay(t *testing.T) {
	loc := time.UTC
	cases := []struct {
		name string
		a, b time.Time
		want bool
	}{
		{
			name: "same moment",
			a:    time.Date(2025, 1, 2, 10, 0, 0, 0, loc),
			b:    time.Date(2025, 1, 2, 10, 0, 0, 0, loc),
			want: true,
		},
		{
			name: "two minutes across midnight",
			a:    time.Date(2025, 1, 2, 23, 59, 0, 0, loc),
			b:    time.Date(2025, 1, 3, 0, 1, 0, 0, loc),
			want: false,
		},
		{
			name: "same day start and end",
			a:    time.Date(2025, 1, 2, 0, 0, 1, 0, loc),
			b:    time.Date(2025, 1, 2, 23, 59, 59, 0, loc),
			want: true,
		},
		{
			name: "same day-of-month different month",
			a:    time.Date(2025, 1, 2, 10, 0, 0, 0, loc),
			b:    time.Date(2025, 2, 2, 10, 0, 0, 0, loc),
			want: false,
		},
		{
			name: "same day-of-month different year",
			a:    time.Date(2024, 1, 2, 10, 0, 0, 0, loc),
			b:    time.Date(2025, 1, 2, 10, 0, 0, 0, loc),
			want: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SameCalendarDay(tc.a, tc.b, loc); got != tc.want {
				t.Fatalf("SameCalendarDay(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestSameCalendarDayUsesLocation(t *testing.T) {
	// 23:30 UTC and 00:30 UTC next day are the same local day one hour east.
	east := time.FixedZone("east", 3600)
	a := time.Date(2025, 1, 2, 23, 30, 0, 0, time.UTC)
	b := time.Date(2025, 1, 3, 0, 30, 0, 0, time.UTC)

	if SameCalendarDay(a, b, time.UTC) {
		t.Fatal("expected different UTC days")
	}
	if !SameCalendarDay(a, b, east) {
		t.Fatal("expected same local day in UTC+1")
	}
}

func TestYesterdayAcrossMonthBoundary(t *testing.T) {
	e := NewEngine(nil, nil, time.UTC)
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	last := time.Date(2025, 2, 28, 22, 0, 0, 0, time.UTC)

	if !e.isYesterday(last, now) {
		t.Fatal("Feb 28 should be yesterday relative to Mar 1")
	}
	if e.isToday(last, now) {
		t.Fatal("Feb 28 must not be today relative to Mar 1")
	}
}
