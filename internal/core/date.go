package core

import (
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// dateLayouts are tried in order by ParseDate. Day-first is preferred over
// month-first for slashed dates.
var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"01/02/2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

// ParseDate parses a calendar date and normalises it to UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDate creates a date from year, month, day.
func NewDate(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// MonthOf returns the YYYY-MM month a date falls in.
func MonthOf(t time.Time) string {
	return t.Format(MonthLayout)
}

// ValidMonth reports whether s is a YYYY-MM month.
func ValidMonth(s string) bool {
	if len(s) != len(MonthLayout) {
		return false
	}
	_, err := time.Parse(MonthLayout, s)
	return err == nil
}
