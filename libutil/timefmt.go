package libutil

import (
	"fmt"
	"time"
)

const (
	DefaultParseLayout  = "2006-01-02 15:04:05.000000"
	DefaultFormatLayout = "2006-01-02 03:04:05"
)

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.DateOnly,
}

// UTCToLocal interprets t's wall clock as UTC and converts it to the local
// zone.
func UTCToLocal(t time.Time) time.Time {
	utc := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return utc.Local()
}

// StringToDatetime parses s with layout, or DefaultParseLayout when layout
// is empty.
func StringToDatetime(s, layout string) (time.Time, error) {
	if layout == "" {
		layout = DefaultParseLayout
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse datetime %q: %w", s, err)
	}
	return t, nil
}

// DatetimeToString parses an ISO-8601 timestamp and formats it with layout,
// or DefaultFormatLayout when layout is empty.
func DatetimeToString(s, layout string) (string, error) {
	if layout == "" {
		layout = DefaultFormatLayout
	}
	t, err := ParseISO(s)
	if err != nil {
		return "", err
	}
	return t.Format(layout), nil
}

// ParseISO accepts the ISO-8601 shapes produced by databases and APIs,
// with either a T or a space between date and time.
func ParseISO(s string) (time.Time, error) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse iso datetime %q: unrecognized format", s)
}
