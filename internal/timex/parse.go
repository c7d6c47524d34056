package timex

import (
	"strings"
	"time"
)

// Layouts tried after ISO 8601, in order. They cover what browsers emit
// from Date.toLocaleString for the US and en-GB locales plus an SQL style.
// Day-first 12h comes last, so an ambiguous date reads month-first.
var localeLayouts = []string{
	"1/2/2006, 3:04:05 PM",
	"2/1/2006, 15:04:05",
	"1/2/2006, 15:04:05",
	"2006-01-02 15:04:05",
	"2/1/2006, 3:04:05 PM",
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// ParseFlexible parses a client-supplied timestamp. Inputs without a zone
// are read as UTC. ok is false when no layout matches.
func ParseFlexible(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	for _, layout := range localeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// ParseOrNow is ParseFlexible falling back to now.
func ParseOrNow(s string, now time.Time) (time.Time, bool) {
	if t, ok := ParseFlexible(s); ok {
		return t, true
	}
	return now, false
}
