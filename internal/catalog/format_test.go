package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		name     string
		numBytes int64
		expected string
	}{
		{
			name:     "zero bytes",
			numBytes: 0,
			expected: "0 B",
		},
		{
			name:     "bytes stay integral",
			numBytes: 512,
			expected: "512 B",
		},
		{
			name:     "just below one kilobyte",
			numBytes: 1023,
			expected: "1023 B",
		},
		{
			name:     "exactly one kilobyte",
			numBytes: 1024,
			expected: "1.0 KB",
		},
		{
			name:     "fractional kilobytes",
			numBytes: 1536,
			expected: "1.5 KB",
		},
		{
			name:     "two kilobytes",
			numBytes: 2048,
			expected: "2.0 KB",
		},
		{
			name:     "megabytes",
			numBytes: 1500000,
			expected: "1.4 MB",
		},
		{
			name:     "decimal megabytes round to one place",
			numBytes: 1536000,
			expected: "1.5 MB",
		},
		{
			name:     "exact megabytes",
			numBytes: 2621440,
			expected: "2.5 MB",
		},
		{
			name:     "gigabytes",
			numBytes: 1073741824,
			expected: "1.0 GB",
		},
		{
			name:     "capped at gigabytes",
			numBytes: 5497558138880,
			expected: "5120.0 GB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatSize(tt.numBytes))
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		name            string
		raw             string
		expectedDisplay string
		expectedSort    string
	}{
		{
			name:            "empty input",
			raw:             "",
			expectedDisplay: "",
			expectedSort:    "",
		},
		{
			name:            "UTC timestamp",
			raw:             "2024-05-01T12:30:00Z",
			expectedDisplay: "2024-05-01 12:30 UTC",
			expectedSort:    "2024-05-01T12:30:00+00:00",
		},
		{
			name: "offset timestamp keeps its wall clock",
			raw:  "2024-05-01T14:30:00+02:00",
			// The display shows the timestamp's own wall clock.
			expectedDisplay: "2024-05-01 14:30 UTC",
			expectedSort:    "2024-05-01T14:30:00+02:00",
		},
		{
			name:            "timestamp without offset",
			raw:             "2024-05-01T12:30:00",
			expectedDisplay: "2024-05-01 12:30 UTC",
			expectedSort:    "2024-05-01T12:30:00",
		},
		{
			name:            "unparsable input passes through",
			raw:             "not-a-date",
			expectedDisplay: "not-a-date",
			expectedSort:    "not-a-date",
		},
		{
			name:            "out of range components pass through",
			raw:             "2024-13-45T99:99:99Z",
			expectedDisplay: "2024-13-45T99:99:99Z",
			expectedSort:    "2024-13-45T99:99:99Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			display, sortKey := FormatTimestamp(tt.raw)
			assert.Equal(t, tt.expectedDisplay, display)
			assert.Equal(t, tt.expectedSort, sortKey)
		})
	}
}
