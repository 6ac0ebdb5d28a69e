// Package format holds the pure presentation helpers shared by every frontend.
package format

import (
	"fmt"
	"time"
	"unicode/utf8"
)

const (
	// UnknownDate is rendered for movies without a release date.
	UnknownDate = "Unknown date"
	// InvalidDate is rendered for release dates that cannot be parsed.
	InvalidDate = "Invalid Date"
	// Ellipsis is appended to truncated text.
	Ellipsis = "..."
	// OverviewLength is the default synopsis length on a result card.
	OverviewLength = 100
)

const longDate = "January 2, 2006"

// dateLayouts lists the accepted release date forms, most common first.
var dateLayouts = []string{time.DateOnly, time.RFC3339, "2006-01"}

// Date renders an ISO date as a long-form date such as "July 16, 2010".
func Date(s string) string {
	if s == "" {
		return UnknownDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(longDate)
		}
	}
	return InvalidDate
}

// Truncate returns s unchanged when it has at most max characters, otherwise
// its first max characters followed by an ellipsis.
func Truncate(s string, maxLen int) string {
	if maxLen < 0 {
		maxLen = 0
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + Ellipsis
}

// Rating renders a vote average with one decimal place.
func Rating(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

// PageInfo renders the pagination caption.
func PageInfo(page, totalPages int) string {
	return fmt.Sprintf("Page %d of %d", page, totalPages)
}

// Runtime renders a duration in minutes as "2h 28m".
func Runtime(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}
