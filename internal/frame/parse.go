package frame

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical on-disk date format.
const DateLayout = "2006-01-02"

// dateLayouts are tried in order by ParseDate. Providers disagree on date
// formatting even between versions of the same endpoint.
var dateLayouts = []string{
	DateLayout,
	"02-Jan-2006",
	"02-01-2006",
	"2006/01/02",
	"02/01/2006",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate parses a date string leniently against the known provider
// layouts. The result is truncated to the calendar day in UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), true
		}
	}
	return time.Time{}, false
}

// Day truncates t to midnight UTC on its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CleanNumeric strips every character that is not a digit, sign, or decimal
// point. It removes thousands separators, currency symbols, and stray
// whitespace, then verifies the remainder parses as a number. Values that do
// not survive cleaning come back as the empty string (a null cell), never an
// error.
func CleanNumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '+' || r == '-' || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return ""
	}
	if _, err := strconv.ParseFloat(cleaned, 64); err != nil {
		return ""
	}
	return cleaned
}
