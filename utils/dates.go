// utils/dates.go
package utils

import (
	"fmt"
	"time"
)

// HoursBetween returns the fractional hours from start to end.
func HoursBetween(start, end time.Time) float64 {
	return end.Sub(start).Hours()
}

// DaysAgo renders t relative to now as "Today", "Yesterday" or "N days ago".
func DaysAgo(t, now time.Time) string {
	days := int(now.Sub(t).Hours() / 24)
	switch {
	case days <= 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}
