// ABOUTME: Calendar date values as entered by users
// ABOUTME: Parses lazily so bad input is reported rather than fatal
package models

import (
	"strings"
	"time"
)

// Date holds a user-entered date or date-time, usually YYYY-MM-DD.
type Date string

// DayLayout is the canonical calendar-day format.
const DayLayout = "2006-01-02"

var dateLayouts = []string{
	DayLayout,
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// DateOf formats t as a calendar day.
func DateOf(t time.Time) Date {
	return Date(t.Format(DayLayout))
}

// DateTimeOf formats t as a date-time with its offset.
func DateTimeOf(t time.Time) Date {
	return Date(t.Format(time.RFC3339))
}

// IsZero reports whether no value was entered.
func (d Date) IsZero() bool {
	return strings.TrimSpace(string(d)) == ""
}

// Time parses the value. Naive layouts are read as UTC. The boolean is false
// for empty or unparseable input.
func (d Date) Time() (time.Time, bool) {
	s := strings.TrimSpace(string(d))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Day returns the calendar-day component as YYYY-MM-DD.
func (d Date) Day() (string, bool) {
	t, ok := d.Time()
	if !ok {
		return "", false
	}
	return t.Format(DayLayout), true
}

func (d Date) String() string {
	return string(d)
}
