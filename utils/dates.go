package utils

import (
	"math"
	"time"
)

// DateLayout is the due-date format stored on tasks.
const DateLayout = "2006-01-02"

// ParseDate accepts YYYY-MM-DD or an RFC3339 timestamp and returns the
// calendar day at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return DayOf(ts), nil
}

// DayOf truncates t to its calendar day, keeping t's wall-clock date.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Today formats now's calendar day.
func Today(now time.Time) string {
	return FormatDate(DayOf(now))
}

// NextOccurrence advances date by value units of kind. An empty or
// unparsable date yields "", an unknown kind yields date unchanged.
// Month and year steps normalize overflow (Jan 31 + 1 month is Mar 3 in a
// non-leap year).
func NextOccurrence(date, kind string, value int) string {
	if date == "" {
		return ""
	}
	d, err := ParseDate(date)
	if err != nil {
		return ""
	}

	switch kind {
	case "daily":
		d = d.AddDate(0, 0, value)
	case "weekly":
		d = d.AddDate(0, 0, value*7)
	case "monthly":
		d = d.AddDate(0, value, 0)
	case "yearly":
		d = d.AddDate(value, 0, 0)
	default:
		return date
	}
	return FormatDate(d)
}

// IsOverdue reports whether date falls strictly before now's calendar day.
func IsOverdue(date string, now time.Time) bool {
	if date == "" {
		return false
	}
	d, err := ParseDate(date)
	if err != nil {
		return false
	}
	return d.Before(DayOf(now))
}

// DayOfWeek returns 0 for Sunday through 6 for Saturday.
func DayOfWeek(date string) int {
	d, err := ParseDate(date)
	if err != nil {
		return 0
	}
	return int(d.Weekday())
}

// WeekNumber counts weeks from January 1st, with the first partial week
// numbered 1.
func WeekNumber(date string) int {
	d, err := ParseDate(date)
	if err != nil {
		return 0
	}
	first := time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	pastDays := d.Sub(first).Hours() / 24
	return int(math.Ceil((pastDays + float64(first.Weekday()) + 1) / 7))
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
