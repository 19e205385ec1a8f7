package util

import (
	"fmt"
	"time"
)

// FormatScore renders a rubric score as "7.5/10".
func FormatScore(score float64) string {
	return fmt.Sprintf("%.1f/10", score)
}

// FormatDuration renders a duration rounded to the second, e.g. "2m5s".
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	return d.Round(time.Second).String()
}

// FormatDateTime formats a time as 2006-01-02 15:04 in local time.
// The zero time renders as "-".
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// Truncate shortens s to n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
