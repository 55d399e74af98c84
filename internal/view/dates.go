package view

import (
	"time"

	"github.com/dustin/go-humanize"
)

const dateLayout = "January 2, 2006"

// FormatDate renders an article date for bylines.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// ListingDate is the relative date on listing cards. Anything older than a
// week falls back to the absolute date.
func ListingDate(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	if now.Sub(t) > 7*24*time.Hour {
		return FormatDate(t)
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
