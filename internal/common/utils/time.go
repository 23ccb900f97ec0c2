package utils

import (
	"fmt"
	"strings"
	"time"
)

// ParseDuration parses a duration string with support for days ("d") and
// weeks ("w") in addition to the units understood by time.ParseDuration.
//
// Examples:
//
//	ParseDuration("90d")   // 2160 hours
//	ParseDuration("2w")    // 336 hours
//	ParseDuration("5m")    // 5 minutes
func ParseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	var n int
	var unit string
	if count, err := fmt.Sscanf(s, "%d%s", &n, &unit); err == nil && count == 2 {
		switch unit {
		case "d":
			return time.Duration(n) * 24 * time.Hour, nil
		case "w":
			return time.Duration(n) * 7 * 24 * time.Hour, nil
		}
	}

	return 0, fmt.Errorf("invalid duration: %q", s)
}

// FormatDuration formats a duration using the largest sensible unit:
// seconds below a minute, minutes below an hour, hours below a day, days otherwise.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%.1fh", d.Hours())
	}
	return fmt.Sprintf("%.1fd", d.Hours()/24)
}

// siteDateLayouts are the date formats seen on editorial system pages
var siteDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"01/02/2006",
}

// ParseSiteDate parses a date string scraped from an editorial system page.
// The second result is false when none of the known layouts match.
func ParseSiteDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range siteDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
