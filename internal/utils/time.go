package utils

import (
	"time"
)

// UnixTimeToTime converts a Unix timestamp to a time.Time object
func UnixTimeToTime(unixTime int64) time.Time {
	return time.Unix(unixTime, 0)
}

// DayKey is the UTC calendar day of t, used to bucket daily counters.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
