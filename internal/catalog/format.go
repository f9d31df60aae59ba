package catalog

import (
	"fmt"
	"strings"
	"time"
)

// TimeAgo renders the elapsed time since t as a coarse English phrase
// ("3 days ago"). Future or zero timestamps render as "Unknown".
func TimeAgo(t time.Time, now time.Time) string {
	if t.IsZero() || t.After(now) {
		return "Unknown"
	}
	d := now.Sub(t)

	seconds := int64(d / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24
	weeks := days / 7
	months := days / 30
	years := days / 365

	switch {
	case years > 0:
		return plural(years, "year")
	case months > 0:
		return plural(months, "month")
	case weeks > 0:
		return plural(weeks, "week")
	case days > 0:
		return plural(days, "day")
	case hours > 0:
		return plural(hours, "hour")
	case minutes > 0:
		return plural(minutes, "minute")
	default:
		return plural(seconds, "second")
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// FormatDownloads compacts a download count to "12.3k" / "4.5M" / "1.2B".
func FormatDownloads(n int64) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// capitalize uppercases the first byte of an ASCII word ("fabric" → "Fabric").
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
