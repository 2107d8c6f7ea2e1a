package shuttle

import (
	"fmt"
	"strings"
	"time"
)

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// HumanSize renders a byte count in binary-prefixed units with one decimal
// place, dropping a trailing ".0". Whole bytes never carry a decimal.
//
//	512     -> "512 B"
//	2048    -> "2 KB"
//	1536000 -> "1.5 MB"
func HumanSize(size int64) string {
	if size < 1024 {
		return fmt.Sprintf("%d B", size)
	}
	v := float64(size)
	unit := 0
	for v >= 1024 && unit < len(sizeUnits)-1 {
		v /= 1024
		unit++
	}
	s := fmt.Sprintf("%.1f", v)
	s = strings.TrimSuffix(s, ".0")
	return s + " " + sizeUnits[unit]
}

// RelativeAge renders t relative to now: "just now", "N min ago",
// "N hours ago", "N days ago", or the calendar date once a week has passed.
// Times in the future read as "just now".
func RelativeAge(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d min ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d/time.Hour))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d/(24*time.Hour)))
	default:
		return t.Local().Format("2006-01-02")
	}
}
