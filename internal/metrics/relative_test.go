package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRelative(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) string { return now.Add(d).Format(time.RFC3339) }

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"blank", "", "Just now"},
		{"garbage", "whenever", "Just now"},
		{"30s past", at(-30 * time.Second), "Just now"},
		{"30s future", at(30 * time.Second), "Just now"},
		{"5m past", at(-5 * time.Minute), "5 min ago"},
		{"5m future", at(5 * time.Minute), "In 5 min"},
		{"3h past", at(-3 * time.Hour), "3h ago"},
		{"3h future", at(3 * time.Hour), "In 3h"},
		{"2d past", at(-48 * time.Hour), "2d ago"},
		{"2d future", at(48 * time.Hour), "In 2d"},
		{"rounds minutes", at(-(5*time.Minute + 40*time.Second)), "6 min ago"},
		{"dotted date", "2025.03.13", "3d ago"}, // 2.5 days rounds up
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatRelative(tc.in, now, time.UTC))
		})
	}
}
