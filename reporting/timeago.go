package reporting

import (
	"fmt"
	"time"
)

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = time.Duration(30.44 * float64(day))
	year  = time.Duration(365.25 * float64(day))
)

// TimeAgo formats ts relative to the current time.
func TimeAgo(ts time.Time) string {
	return TimeAgoAt(ts, time.Now())
}

// TimeAgoAt formats ts relative to now using the coarsest whole unit, e.g.
// "3 days ago". A zero ts yields "" and a ts after now yields "Future".
func TimeAgoAt(ts, now time.Time) string {
	if ts.IsZero() {
		return ""
	}
	diff := now.Sub(ts)
	if diff < 0 {
		return "Future"
	}
	units := []struct {
		size time.Duration
		name string
	}{
		{year, "year"},
		{month, "month"},
		{week, "week"},
		{day, "day"},
		{time.Hour, "hour"},
		{time.Minute, "minute"},
	}
	for _, u := range units {
		if n := int64(diff / u.size); n > 0 {
			return plural(n, u.name) + " ago"
		}
	}
	return "Just now"
}

// TimeAgoPtr is TimeAgo for optional timestamps.
func TimeAgoPtr(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return TimeAgo(*ts)
}

func plural(n int64, unit string) string {
	if n > 1 {
		return fmt.Sprintf("%d %ss", n, unit)
	}
	return fmt.Sprintf("%d %s", n, unit)
}
