package metrics

import (
	"fmt"
	"math"
	"time"
)

const justNow = "Just now"

// FormatRelative renders value relative to now: "Just now", "5 min ago",
// "In 3h", "2d ago". Absent or unparseable dates render as "Just now".
func FormatRelative(value string, now time.Time, loc *time.Location) string {
	t, ok := ParseDate(value, loc)
	if !ok {
		return justNow
	}
	return formatDelta(now.Sub(t))
}

// formatDelta picks the unit by magnitude and the phrasing by sign; a negative
// diff is a date in the future.
func formatDelta(diff time.Duration) string {
	abs := diff
	if abs < 0 {
		abs = -abs
	}
	future := diff < 0

	switch {
	case abs < time.Minute:
		return justNow
	case abs < time.Hour:
		n := roundUnits(abs, time.Minute)
		if future {
			return fmt.Sprintf("In %d min", n)
		}
		return fmt.Sprintf("%d min ago", n)
	case abs < 24*time.Hour:
		n := roundUnits(abs, time.Hour)
		if future {
			return fmt.Sprintf("In %dh", n)
		}
		return fmt.Sprintf("%dh ago", n)
	default:
		n := roundUnits(abs, 24*time.Hour)
		if future {
			return fmt.Sprintf("In %dd", n)
		}
		return fmt.Sprintf("%dd ago", n)
	}
}

func roundUnits(d, unit time.Duration) int64 {
	return int64(math.Round(float64(d) / float64(unit)))
}

const isoLayout = "2006-01-02T15:04:05.000Z"

// FormatISO renders t as a UTC timestamp with millisecond precision, the form
// used for lastSynced and rate-limit reset headers.
func FormatISO(t time.Time) string { return t.UTC().Format(isoLayout) }
