package models

import (
	"strings"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimestampLayout = time.RFC3339
)

var parseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	DateLayout,
}

// ParseTime parses the date and timestamp encodings found in stored records.
// Values without a zone are read in loc.
func ParseTime(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range parseLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Date is a calendar date stored as YYYY-MM-DD.
type Date string

func NewDate(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// In returns midnight of the date in loc.
func (d Date) In(loc *time.Location) (time.Time, bool) {
	t, ok := ParseTime(string(d), loc)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()), true
}

func (d Date) IsZero() bool {
	return strings.TrimSpace(string(d)) == ""
}

// Timestamp is an audit instant stored as RFC 3339.
type Timestamp string

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t.Format(TimestampLayout))
}

func (ts Timestamp) Time() (time.Time, bool) {
	return ParseTime(string(ts), time.UTC)
}

func (ts Timestamp) IsZero() bool {
	return strings.TrimSpace(string(ts)) == ""
}
