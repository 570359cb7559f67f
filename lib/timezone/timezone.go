package timezone

import "time"

// Location is the zone calendar computations (month starts, analytics
// buckets) are done in. Stored timestamps are unix milliseconds and carry
// no zone.
var Location = time.UTC

func Now() time.Time {
	return time.Now().In(Location)
}

func StartOfDay(t time.Time) time.Time {
	t = t.In(Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Location)
}

func StartOfMonth(t time.Time) time.Time {
	t = t.In(Location)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, Location)
}

// DayKey formats t as the YYYY-MM-DD day it falls on.
func DayKey(t time.Time) string {
	return t.In(Location).Format(time.DateOnly)
}

// FromMillis converts a stored unix millisecond timestamp.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).In(Location)
}
