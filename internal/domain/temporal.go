package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used on every surface
const DateLayout = "2006-01-02"

// TemporalFeatures are the calendar attributes derived from a sale date
type TemporalFeatures struct {
	Weekday     int `json:"weekday"`       // 0=Mon ... 6=Sun
	WeekOfMonth int `json:"week_of_month"` // 1..5
	Month       int `json:"month"`         // 1..12
}

// Features derives weekday, week-of-month and month from a date
func Features(date time.Time) TemporalFeatures {
	return TemporalFeatures{
		Weekday:     Weekday(date),
		WeekOfMonth: (date.Day()-1)/7 + 1,
		Month:       int(date.Month()),
	}
}

// Weekday returns the Monday-based weekday index of date.
func Weekday(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO YYYY-MM-DD date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", ErrValidation, s)
	}
	return t, nil
}

// FormatDate renders a date as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysBetween returns the number of whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// DateRange lists every date from start to end inclusive.
func DateRange(start, end time.Time) []time.Time {
	start, end = DateOf(start), DateOf(end)
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}
