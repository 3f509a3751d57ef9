package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical calendar date format used in records and on the CLI
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"02-01-2006",
	"02/01/2006",
	time.RFC3339,
}

// CalendarDate drops the time of day, keeping the wall clock date of t at UTC midnight.
// Due dates are stored this way, so as-of instants are compared as calendar dates.
func CalendarDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a calendar date. Dates without a zone are taken as UTC.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrInvalidDate)
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
}
