package usage

import (
	"testing"
	"time"
)

func TestMonthKeyUsesUTC(t *testing.T) {
	// 23:30 on Dec 31 in UTC+10 is already January in local time but still
	// December in UTC; the key must come from UTC.
	loc := time.FixedZone("UTC+10", 10*3600)
	at := time.Date(2026, time.January, 1, 9, 30, 0, 0, loc) // 2025-12-31T23:30Z

	if got := MonthKey(at); got != "2025-12" {
		t.Fatalf("MonthKey = %q, want %q", got, "2025-12")
	}
}

func TestMonthKeyFormat(t *testing.T) {
	at := time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC)
	if got := MonthKey(at); got != "2026-03" {
		t.Fatalf("MonthKey = %q, want %q", got, "2026-03")
	}
}

func TestWeekKeyISOWeek(t *testing.T) {
	// Jan 1 2027 falls in ISO week 53 of 2026.
	at := time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)
	if got := WeekKey(at); got != "2026-W53" {
		t.Fatalf("WeekKey = %q, want %q", got, "2026-W53")
	}
}

func TestMonthStart(t *testing.T) {
	at := time.Date(2026, time.August, 30, 15, 4, 5, 0, time.UTC)
	want := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	if got := MonthStart(at); !got.Equal(want) {
		t.Fatalf("MonthStart = %v, want %v", got, want)
	}
}
