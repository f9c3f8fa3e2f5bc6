package metrics

import (
	"strings"
	"time"
)

// isoLocalNano is an ISO timestamp without a zone, fraction optional.
const isoLocalNano = "2006-01-02T15:04:05.999999999"

// Layouts tried, in order, once "." has been rewritten to "/". The export is
// hand-edited so the same sheet mixes ISO dates, US slashes and month names.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-1-2",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006/1/2",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Mon Jan 2 2006",
	time.RFC1123,
	time.RFC1123Z,
}

// ParseDate is total: blank or unrecognised input reports ok=false instead of
// an error. Values without a zone are read in loc (UTC when nil).
func ParseDate(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}

	// ISO timestamps with fractional seconds would be mangled by the rewrite.
	if strings.Contains(value, "T") {
		if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
			return t, true
		}
		if t, err := time.ParseInLocation(isoLocalNano, value, loc); err == nil {
			return t, true
		}
	}

	normalized := strings.ReplaceAll(value, ".", "/")
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, normalized, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
