package report

import "time"

// FormatTimestamp returns t as an RFC3339 UTC string.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
