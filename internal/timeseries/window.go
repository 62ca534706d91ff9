package timeseries

import (
	"fmt"
	"time"
)

// Window is a resolved query time range.
type Window struct {
	Start time.Time
	End   time.Time
}

// ParseWindow resolves a dashboard period label into a concrete window ending
// at now. Recognized labels are "24h", "7d", and "30d"; empty defaults to
// "24h".
func ParseWindow(period string, now time.Time) (Window, error) {
	now = now.UTC()
	switch period {
	case "", "24h":
		return Window{Start: now.Add(-24 * time.Hour), End: now}, nil
	case "7d":
		return Window{Start: now.AddDate(0, 0, -7), End: now}, nil
	case "30d":
		return Window{Start: now.AddDate(0, 0, -30), End: now}, nil
	default:
		return Window{}, fmt.Errorf("unknown period %q", period)
	}
}

// ParseBucket validates a timeseries bucket size. Buckets below one minute
// or above one day are rejected; empty defaults to 5 minutes.
func ParseBucket(raw string) (time.Duration, error) {
	if raw == "" {
		return 5 * time.Minute, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid bucket %q", raw)
	}
	if d < time.Minute || d > 24*time.Hour {
		return 0, fmt.Errorf("bucket %s out of range (1m-24h)", d)
	}
	return d, nil
}
