package catalog

import (
	"fmt"
	"time"
)

// FormatSize renders a byte count the way the catalog page shows it: whole
// bytes, otherwise one decimal, stepping through KB and MB and capping at GB.
func FormatSize(numBytes int64) string {
	size := float64(numBytes)
	units := []string{"B", "KB", "MB", "GB"}
	for i, unit := range units {
		if size < 1024.0 || i == len(units)-1 {
			if unit == "B" {
				return fmt.Sprintf("%d %s", int64(size), unit)
			}
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= 1024.0
	}
	return fmt.Sprintf("%d B", numBytes)
}

// FormatTimestamp parses an ISO-8601 timestamp into its display form and a
// sortable key. Empty input yields empty strings; anything unparsable is
// passed through raw, for both values, so the page still shows whatever the
// API sent.
func FormatTimestamp(raw string) (display, sortKey string) {
	if raw == "" {
		return "", ""
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Offset-less timestamps are still renderable.
		parsed, err = time.Parse("2006-01-02T15:04:05", raw)
		if err != nil {
			return raw, raw
		}
		return parsed.Format("2006-01-02 15:04 UTC"), parsed.Format("2006-01-02T15:04:05")
	}

	return parsed.Format("2006-01-02 15:04 UTC"), parsed.Format("2006-01-02T15:04:05-07:00")
}
