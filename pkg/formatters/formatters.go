// Package formatters provides human-readable formatting for byte counts and durations.
package formatters

import (
	"fmt"
	"time"
)

// Exported constants.
const (
	// BytesPerUnit is the divisor between successive byte units (KB, MB, ...).
	BytesPerUnit = 1024.0
	// SecondsPerMinute is the number of seconds in a minute.
	SecondsPerMinute = 60
	// SecondsPerHour is the number of seconds in an hour.
	SecondsPerHour = 3600
)

// byteUnits are the unit suffixes for FormatBytes, smallest first.
var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes converts a byte count to a human-readable string like "1.5 GB".
func FormatBytes(n int64) string {
	return FormatBytesFloat(float64(n))
}

// FormatBytesFloat converts a fractional byte count (e.g. a bytes/sec rate)
// to a human-readable string.
func FormatBytesFloat(n float64) string {
	for _, unit := range byteUnits {
		if n < BytesPerUnit {
			return fmt.Sprintf("%.1f %s", n, unit)
		}

		n /= BytesPerUnit
	}

	return fmt.Sprintf("%.1f PB", n)
}

// FormatSpeed formats a bytes/sec rate as "12.3 MB/s".
func FormatSpeed(bytesPerSecond float64) string {
	return FormatBytesFloat(bytesPerSecond) + "/s"
}

// FormatDuration formats a duration as "42s", "3m 12s" or "2h 5m".
func FormatDuration(d time.Duration) string {
	seconds := int(d.Seconds())

	switch {
	case seconds < SecondsPerMinute:
		return fmt.Sprintf("%ds", seconds)
	case seconds < SecondsPerHour:
		return fmt.Sprintf("%dm %ds", seconds/SecondsPerMinute, seconds%SecondsPerMinute)
	default:
		rem := seconds % SecondsPerHour

		return fmt.Sprintf("%dh %dm", seconds/SecondsPerHour, rem/SecondsPerMinute)
	}
}

// FormatETA formats a remaining-time estimate for display.
// Non-positive estimates read as "almost done" rather than a bogus countdown.
func FormatETA(d time.Duration) string {
	if d <= 0 {
		return "almost done"
	}

	return FormatDuration(d) + " remaining"
}
