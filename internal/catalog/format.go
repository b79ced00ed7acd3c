package catalog

import (
	"fmt"
	"time"
)

// FormatDate renders a timestamp for history rows, e.g. "Mar 5, 14:02".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 15:04")
}

// FormatRelativeTime renders a coarse "time ago" label.
func FormatRelativeTime(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("1/2/2006")
	}
}
