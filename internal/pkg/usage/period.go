package usage

import (
	"fmt"
	"time"
)

// MonthKey returns the calendar-month accounting period key, "YYYY-MM" in UTC.
// All processes must derive keys in UTC or requests near midnight would land
// in different periods depending on host timezone.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// WeekKey returns the legacy ISO-week period key, "YYYY-Www" in UTC.
// New usage events are keyed by month; this remains for the deprecated
// week_key column and historical reports.
func WeekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// MonthStart returns the UTC start of the calendar month containing t.
// The budget spend window is [MonthStart(now), now).
func MonthStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}
